package testutil

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/store"
)

// mockTestingT implements TB for testing our test helpers
type mockTestingT struct {
	failed   bool
	errorMsg string
	helper   bool
}

func (m *mockTestingT) Helper() {
	m.helper = true
}

func (m *mockTestingT) Errorf(format string, args ...any) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Fatalf(format string, args ...any) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		shouldFail bool
	}{
		{"matching status", http.StatusOK, http.StatusOK, false},
		{"different status", http.StatusOK, http.StatusNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockTestingT{}
			AssertHTTPStatus(m, tt.expected, tt.actual, "ctx")
			if m.failed != tt.shouldFail {
				t.Errorf("failed=%v, want %v (%s)", m.failed, tt.shouldFail, m.errorMsg)
			}
			if !m.helper {
				t.Error("expected Helper to be called")
			}
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	m := &mockTestingT{}
	var got models.LeadRecord
	body := MustMarshalJSON(m, models.Success(models.LeadRecord{UserID: 9, Completed: true}))
	DecodeEnvelope(m, body, models.APIStatusOK, &got)
	if m.failed || got.UserID != 9 {
		t.Errorf("unexpected decode %+v (%s)", got, m.errorMsg)
	}

	m = &mockTestingT{}
	msg := DecodeEnvelope(m, MustMarshalJSON(m, models.Error("boom")), models.APIStatusOK, nil)
	if !m.failed || msg != "boom" {
		t.Errorf("expected status mismatch to fail with message, got failed=%v msg=%q", m.failed, msg)
	}

	m = &mockTestingT{}
	DecodeEnvelope(m, []byte("not json"), models.APIStatusOK, nil)
	if !m.failed {
		t.Error("expected invalid JSON to fail")
	}
}

func TestSampleLeadAndSeed(t *testing.T) {
	repo := store.NewInMemoryStore()
	m := &mockTestingT{}
	SeedLeads(m,
		repo,
		SampleLead(models.DialogRequestForm, 1, time.Minute),
		SampleLead(models.DialogWelcomeSurvey, 2, 2*time.Minute),
		SampleLead(models.DialogTechQuestion, 3, 3*time.Minute),
	)
	if m.failed {
		t.Fatalf("seed failed: %s", m.errorMsg)
	}
	recs, _ := repo.ListLeads(t.Context(), 10)
	if len(recs) != 3 || recs[0].UserID != 3 {
		t.Fatalf("unexpected leads %+v", recs)
	}
	if !SampleLead(models.DialogRequestForm, 1, 0).IsDetailed() {
		t.Error("request sample should be detailed")
	}

	SeedLeads(m, repo, models.LeadRecord{UserID: 0})
	if !m.failed {
		t.Error("expected invalid lead to fail the seed")
	}
}

func TestFixedClockAndIdentity(t *testing.T) {
	clock := FixedClock(Epoch)
	if !clock().Equal(Epoch) || !clock().Equal(clock()) {
		t.Error("clock should be fixed")
	}
	if got := Identity(42).DisplayName(); got != "Тест 42" {
		t.Errorf("unexpected display name %q", got)
	}
}
