package steps

import (
	"testing"

	"github.com/formforge/FormForge/internal/models"
)

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"full placeholder", "<<max_depth>>", true},
		{"truncated leading fragment", "<<max_depth", true},
		{"truncated trailing fragment", "max_depth>>", true},
		{"single bracket form", "<max_depth>", true},
		{"bare token", "max_depth", true},
		{"embedded in prose", "choose <<max_depth>> levels", true},
		{"upper case", "MAX_DEPTH", true},
		{"clean label", "Modern", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPlaceholder(tt.text); got != tt.want {
				t.Errorf("IsPlaceholder(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSanitizeOptionsDropsPlaceholders(t *testing.T) {
	options := []models.Option{
		{Label: "Modern", Value: "modern"},
		{Label: "<<max_depth>>", Value: "<<max_depth>>"},
		{Label: "Classic", Value: "classic"},
	}
	kept, record := SanitizeOptions("step-style", options)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept options, got %d", len(kept))
	}
	if kept[0].Value != "modern" || kept[1].Value != "classic" {
		t.Errorf("unexpected surviving options: %+v", kept)
	}
	if len(record.DroppedOptions) != 1 {
		t.Errorf("expected 1 dropped option recorded, got %d", len(record.DroppedOptions))
	}
	if record.FallbackApplied {
		t.Error("fallback should not apply when real options survive")
	}
}

func TestSanitizeOptionsAllPlaceholdersYieldsFallback(t *testing.T) {
	options := []models.Option{
		{Label: "<<max_depth>>", Value: "<<max_depth>>"},
		{Label: "max_depth>>", Value: ""},
	}
	kept, record := SanitizeOptions("step-goal", options)
	if len(kept) != 1 {
		t.Fatalf("expected exactly the fallback option, got %d options", len(kept))
	}
	if kept[0] != FallbackOption {
		t.Errorf("expected fallback option %+v, got %+v", FallbackOption, kept[0])
	}
	if !record.FallbackApplied {
		t.Error("expected FallbackApplied to be recorded")
	}
	if len(record.DroppedOptions) != 2 {
		t.Errorf("expected 2 dropped options recorded, got %d", len(record.DroppedOptions))
	}
}

func TestSanitizeOptionsEmptyInputStaysEmpty(t *testing.T) {
	kept, record := SanitizeOptions("step-x", nil)
	if len(kept) != 0 {
		t.Errorf("expected no options, got %d", len(kept))
	}
	if record.FallbackApplied {
		t.Error("fallback must not apply to an originally empty list")
	}
}

func TestSanitizeOptionsIdempotent(t *testing.T) {
	options := []models.Option{
		{Label: "<<max_depth>>", Value: "<<max_depth>>"},
	}
	once, _ := SanitizeOptions("step-goal", options)
	twice, record := SanitizeOptions("step-goal", once)
	if len(twice) != len(once) || twice[0] != once[0] {
		t.Errorf("sanitizing sanitized output changed it: %+v -> %+v", once, twice)
	}
	if record.FallbackApplied || len(record.DroppedOptions) != 0 {
		t.Errorf("second pass should be a no-op, got record %+v", record)
	}
}

func TestSlugOptionValue(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Modern Look", "modern_look"},
		{"budget-friendly", "budget_friendly"},
		{"  Spaced  Out  ", "spaced_out"},
		{"!!!", "option"},
	}
	for _, tt := range tests {
		if got := SlugOptionValue(tt.label); got != tt.want {
			t.Errorf("SlugOptionValue(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}
