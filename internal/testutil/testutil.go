// Package testutil provides shared fixtures and assertions for ADC Navigator tests.
package testutil

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/store"
)

// TB is the subset of testing.TB used by the helpers.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Epoch is the reference time used by fixtures.
var Epoch = time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// Identity returns a deterministic user identity for id.
func Identity(id int64) models.UserIdentity {
	return models.UserIdentity{ID: id, Username: "user" + itoa(id), FirstName: "Тест", LastName: itoa(id)}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// SampleLead builds a completed record of kind for userID, completed at
// Epoch plus the given offset.
func SampleLead(kind models.DialogKind, userID int64, offset time.Duration) models.LeadRecord {
	ident := Identity(userID)
	rec := models.LeadRecord{
		UserID:       userID,
		Username:     ident.Username,
		FullName:     ident.FullName(),
		FirstContact: Epoch,
		CompletedAt:  Epoch.Add(offset),
		DialogKind:   kind,
		Completed:    true,
		Source:       models.SourceTelegram,
	}
	switch kind {
	case models.DialogRequestForm:
		rec.ObjectType = "Склад / логистика"
		rec.Area = "5 000 – 20 000 м²"
		rec.Region = "Москва"
		rec.Contact = "+7 900 000-00-00"
	case models.DialogTechQuestion:
		rec.Question = "Нужна ли экспертиза?"
	default:
		rec.HasProject = models.BoolPtr(false)
		rec.Interests = []string{"BIM"}
		rec.GiveawayParticipant = models.BoolPtr(false)
	}
	return rec
}

// SeedLeads writes recs into repo and fails the test on error.
func SeedLeads(t TB, repo store.LeadRepo, recs ...models.LeadRecord) {
	t.Helper()
	for _, rec := range recs {
		if err := repo.UpsertLead(context.Background(), rec); err != nil {
			t.Fatalf("failed to seed lead %d: %v", rec.UserID, err)
		}
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// DecodeEnvelope decodes an API envelope, checks its status and, when target
// is non-nil, decodes the result into it. It returns the envelope message.
func DecodeEnvelope(t TB, body []byte, expected models.APIStatus, target any) string {
	t.Helper()
	var env struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("failed to decode JSON envelope %q: %v", body, err)
		return ""
	}
	if env.Status != string(expected) {
		t.Errorf("expected status '%s', got '%s'", expected, env.Status)
	}
	if target != nil {
		if err := json.Unmarshal(env.Result, target); err != nil {
			t.Fatalf("failed to decode result %q: %v", env.Result, err)
		}
	}
	return env.Message
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}
