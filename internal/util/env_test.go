package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"ON", false, true},
		{" 0 ", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("ADC_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("ADC_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("ADC_TEST_INT", "")
	if got := ParseIntEnv("ADC_TEST_INT", 10); got != 10 {
		t.Errorf("expected default 10, got %d", got)
	}
	t.Setenv("ADC_TEST_INT", " 25 ")
	if got := ParseIntEnv("ADC_TEST_INT", 10); got != 25 {
		t.Errorf("expected 25, got %d", got)
	}
	t.Setenv("ADC_TEST_INT", "ten")
	if got := ParseIntEnv("ADC_TEST_INT", 10); got != 10 {
		t.Errorf("expected default for invalid value, got %d", got)
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Hour},
		{"90", 90 * time.Second},
		{"30m", 30 * time.Minute},
		{"-5m", time.Hour},
		{"soon", time.Hour},
	}
	for _, tt := range tests {
		t.Setenv("ADC_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("ADC_TEST_DURATION", time.Hour); got != tt.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
