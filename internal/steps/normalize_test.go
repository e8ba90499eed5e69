package steps

import (
	"strings"
	"testing"
)

func TestNormalizeStepID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already canonical", "step-budget-range", "step-budget-range"},
		{"underscores become hyphens", "step_budget_range", "step-budget-range"},
		{"mixed case", "Step-Budget-Range", "step-budget-range"},
		{"unsupported characters stripped", "step!!budget??range", "step-budget-range"},
		{"collapsed hyphen runs", "step---budget", "step-budget"},
		{"surrounding whitespace", "  step-goal  ", "step-goal"},
		{"empty input", "", ""},
		{"only junk", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStepID(tt.raw); got != tt.want {
				t.Errorf("NormalizeStepID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeStepIDCapsLength(t *testing.T) {
	long := strings.Repeat("abc-", 40)
	got := NormalizeStepID(long)
	if len(got) > MaxStepIDLength {
		t.Errorf("NormalizeStepID length = %d, want <= %d", len(got), MaxStepIDLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("NormalizeStepID left trailing hyphen after truncation: %q", got)
	}
}

func TestNormalizePlanKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"step prefix dropped", "step-budget-range", "budget_range"},
		{"hyphens become underscores", "budget-range", "budget_range"},
		{"already canonical", "budget_range", "budget_range"},
		{"mixed case", "Budget_Range", "budget_range"},
		{"collapsed underscore runs", "budget___range", "budget_range"},
		{"empty input", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePlanKey(tt.raw); got != tt.want {
				t.Errorf("NormalizePlanKey(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestKeyIDRoundTrip(t *testing.T) {
	// A plan key and the step id derived from it must compare equal after
	// the inverse mapping, otherwise asked-id bookkeeping breaks.
	keys := []string{"budget_range", "upload_brand_logo", "goal"}
	for _, key := range keys {
		id := StepIDFromKey(key)
		if got := KeyFromStepID(id); got != key {
			t.Errorf("KeyFromStepID(StepIDFromKey(%q)) = %q, want %q", key, got, key)
		}
	}
}

func TestKeyFromStepIDUnderscoreVariant(t *testing.T) {
	// step_budget_range and step-budget-range are the same step.
	a := KeyFromStepID("step_budget_range")
	b := KeyFromStepID("step-budget-range")
	if a != b || a != "budget_range" {
		t.Errorf("underscore and hyphen ids diverged: %q vs %q", a, b)
	}
}
