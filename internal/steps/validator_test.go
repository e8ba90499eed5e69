package steps

import (
	"math"
	"testing"

	"github.com/formforge/FormForge/internal/models"
)

func TestValidateTotalOnJunk(t *testing.T) {
	v := NewValidator()
	junk := []any{
		nil,
		"a string",
		42.0,
		true,
		[]any{"nested"},
		map[string]any{},
		map[string]any{"type": 7.0},
		map[string]any{"type": "hologram"},
		map[string]any{"type": "multiple_choice"},
		map[string]any{"type": "multiple_choice", "question": "Pick one", "options": "not a list"},
	}
	for i, raw := range junk {
		_, _, reason := v.Validate(raw)
		if reason == RejectNone {
			t.Errorf("junk candidate %d was accepted", i)
		}
	}
}

func TestValidatePlaceholderOptionsGetFallback(t *testing.T) {
	v := NewValidator()
	raw := map[string]any{
		"id":   "step_goal",
		"type": "multiple_choice",
		"options": []any{
			map[string]any{"label": "<<max_depth>>", "value": "<<max_depth>>"},
		},
	}
	step, cleanup, reason := v.Validate(raw)
	if reason != RejectNone {
		t.Fatalf("expected acceptance, got reject %q", reason)
	}
	if step.ID != "step-goal" {
		t.Errorf("id = %q, want step-goal", step.ID)
	}
	if len(step.Options) != 1 || step.Options[0] != FallbackOption {
		t.Errorf("options = %+v, want single fallback", step.Options)
	}
	if !cleanup.FallbackApplied {
		t.Error("cleanup record should mark fallback")
	}
}

func TestValidateTitleQuestionMirroring(t *testing.T) {
	v := NewValidator()

	step, _, reason := v.Validate(map[string]any{
		"type": "text_input", "question": "Describe your project",
	})
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q", reason)
	}
	if step.Title != "Describe your project" {
		t.Errorf("title not mirrored from question: %q", step.Title)
	}

	step, _, reason = v.Validate(map[string]any{
		"type": "text_input", "title": "Project details",
	})
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q", reason)
	}
	if step.Question != "Project details" {
		t.Errorf("question not mirrored from title: %q", step.Question)
	}

	// Copy is optional: a step with neither question nor title is still
	// accepted, with both fields left empty.
	step, _, reason = v.Validate(map[string]any{"type": "text_input"})
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q for step without copy", reason)
	}
	if step.Question != "" || step.Title != "" {
		t.Errorf("copyless step got question=%q title=%q, want both empty", step.Question, step.Title)
	}
}

func TestValidateTypeAliases(t *testing.T) {
	tests := []struct {
		tag  string
		want models.StepType
	}{
		{"text", models.StepTypeTextInput},
		{"choice", models.StepTypeMultipleChoice},
		{"slider", models.StepTypeRating},
		{"upload", models.StepTypeFileUpload},
		{"file_picker", models.StepTypeFileUpload},
		{"CHOICE", models.StepTypeMultipleChoice},
	}
	for _, tt := range tests {
		if got := CanonicalType(tt.tag); got != tt.want {
			t.Errorf("CanonicalType(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestValidateScaleRules(t *testing.T) {
	base := func(extra map[string]any) map[string]any {
		m := map[string]any{"type": "rating", "question": "Rate it"}
		for k, val := range extra {
			m[k] = val
		}
		return m
	}
	tests := []struct {
		name   string
		extra  map[string]any
		reason RejectReason
	}{
		{"missing bounds", nil, RejectInvalidScale},
		{"min equals max", map[string]any{"scale_min": 5.0, "scale_max": 5.0}, RejectInvalidScale},
		{"min above max", map[string]any{"scale_min": 9.0, "scale_max": 1.0}, RejectInvalidScale},
		{"valid bounds", map[string]any{"scale_min": 1.0, "scale_max": 5.0}, RejectNone},
		{"negative step", map[string]any{"scale_min": 1.0, "scale_max": 5.0, "step": -1.0}, RejectInvalidStep},
		{"uneven step", map[string]any{"scale_min": 0.0, "scale_max": 10.0, "step": 3.0}, RejectInvalidStep},
		{"even step", map[string]any{"scale_min": 0.0, "scale_max": 10.0, "step": 2.5}, RejectNone},
		{"numeric strings tolerated", map[string]any{"scale_min": "1", "scale_max": "5"}, RejectNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, reason := NewValidator().Validate(base(tt.extra))
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}

func TestValidateBudgetRanges(t *testing.T) {
	mk := func(ranges []any) map[string]any {
		return map[string]any{"type": "budget_cards", "question": "Budget?", "ranges": ranges}
	}

	_, _, reason := NewValidator().Validate(mk(nil))
	if reason != RejectMissingRanges {
		t.Errorf("expected missing_ranges, got %q", reason)
	}

	overlapping := []any{
		map[string]any{"label": "Low", "min": 0.0, "max": 500.0},
		map[string]any{"label": "Mid", "min": 400.0, "max": 1000.0},
	}
	_, _, reason = NewValidator().Validate(mk(overlapping))
	if reason != RejectOverlapRanges {
		t.Errorf("expected overlapping_ranges, got %q", reason)
	}

	valid := []any{
		map[string]any{"label": "Low", "min": 0.0, "max": 500.0},
		map[string]any{"label": "Mid", "min": 500.0, "max": 1000.0},
	}
	step, _, reason := NewValidator().Validate(mk(valid))
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q", reason)
	}
	if len(step.Ranges) != 2 {
		t.Errorf("expected 2 ranges, got %d", len(step.Ranges))
	}
}

func TestValidateUploadRules(t *testing.T) {
	_, _, reason := NewValidator().Validate(map[string]any{
		"type": "file_upload", "question": "Upload your logo",
	})
	if reason != RejectMissingFiles {
		t.Errorf("expected missing_file_types, got %q", reason)
	}

	_, _, reason = NewValidator().Validate(map[string]any{
		"type": "file_upload", "question": "Upload your logo",
		"allowed_file_types": []any{"png", "svg"},
	})
	if reason != RejectInvalidMaxSize {
		t.Errorf("expected invalid_max_size, got %q", reason)
	}

	step, _, reason := NewValidator().Validate(map[string]any{
		"type": "file_upload", "question": "Upload your logo",
		"allowed_file_types": []any{"png", "svg"},
		"max_size_mb":        10.0,
		"upload_role":        "brand_logo",
	})
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q", reason)
	}
	if step.UploadRole != "brand_logo" {
		t.Errorf("upload role = %q, want brand_logo", step.UploadRole)
	}
	if step.MaxSizeMB == nil || *step.MaxSizeMB != 10.0 {
		t.Errorf("max size not carried: %v", step.MaxSizeMB)
	}
}

func TestValidateChipsMultiForcesAllowMultiple(t *testing.T) {
	step, _, reason := NewValidator().Validate(map[string]any{
		"type": "chips_multi", "question": "Pick all that apply",
		"options":        []any{"One", "Two"},
		"allow_multiple": false,
	})
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q", reason)
	}
	if step.AllowMultiple == nil || !*step.AllowMultiple {
		t.Error("chips_multi must force allow_multiple true")
	}
}

func TestValidateStringOptionsCoerced(t *testing.T) {
	step, _, reason := NewValidator().Validate(map[string]any{
		"type": "multiple_choice", "question": "Style?",
		"options": []any{"Modern Look", "Modern Look", "Classic"},
	})
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q", reason)
	}
	if len(step.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(step.Options))
	}
	if step.Options[0].Value != "modern_look" {
		t.Errorf("first value = %q, want modern_look", step.Options[0].Value)
	}
	if step.Options[1].Value != "modern_look_2" {
		t.Errorf("duplicate value not suffixed: %q", step.Options[1].Value)
	}
}

func TestValidateDuplicateIDFirstWriterWins(t *testing.T) {
	v := NewValidator()
	first := map[string]any{
		"id": "step-goal", "type": "text_input", "question": "First",
	}
	second := map[string]any{
		"id": "step_goal", "type": "text_input", "question": "Second",
	}
	step, _, reason := v.Validate(first)
	if reason != RejectNone {
		t.Fatalf("first candidate rejected: %q", reason)
	}
	if step.Question != "First" {
		t.Errorf("unexpected first step: %+v", step)
	}
	_, _, reason = v.Validate(second)
	if reason != RejectDuplicateID {
		t.Errorf("expected duplicate_id for normalized collision, got %q", reason)
	}
}

func TestValidateFallbackStepIDDeterministic(t *testing.T) {
	raw := map[string]any{
		"type": "multiple_choice", "question": "What style do you prefer for your new site?",
		"options": []any{map[string]any{"label": "Modern", "value": "modern"}},
	}
	a, _, reason := NewValidator().Validate(raw)
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q", reason)
	}
	b, _, _ := NewValidator().Validate(raw)
	if a.ID != b.ID {
		t.Errorf("fallback id not deterministic: %q vs %q", a.ID, b.ID)
	}
	if a.ID == "" || len(a.ID) > MaxStepIDLength {
		t.Errorf("fallback id out of bounds: %q", a.ID)
	}
}

func TestValidateMetricGainDefaults(t *testing.T) {
	tr, fa := true, false
	tests := []struct {
		name     string
		raw      map[string]any
		required *bool
		want     float64
	}{
		{"choice family", map[string]any{"type": "multiple_choice", "question": "q", "options": []any{"A"}}, nil, 0.12},
		{"scale family", map[string]any{"type": "rating", "question": "q", "scale_min": 1.0, "scale_max": 5.0}, nil, 0.10},
		{"text family", map[string]any{"type": "text_input", "question": "q"}, nil, 0.08},
		{"intro family", map[string]any{"type": "intro", "question": "q"}, nil, 0.05},
		{"required bumps up", map[string]any{"type": "multiple_choice", "question": "q", "options": []any{"A"}}, &tr, 0.15},
		{"optional nudges down", map[string]any{"type": "multiple_choice", "question": "q", "options": []any{"A"}}, &fa, 0.10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.required != nil {
				tt.raw["required"] = *tt.required
			}
			step, _, reason := NewValidator().Validate(tt.raw)
			if reason != RejectNone {
				t.Fatalf("unexpected reject %q", reason)
			}
			if step.MetricGain == nil || math.Abs(*step.MetricGain-tt.want) > 1e-9 {
				t.Errorf("metric gain = %v, want %v", step.MetricGain, tt.want)
			}
		})
	}
}

func TestValidateExplicitMetricGainKept(t *testing.T) {
	step, _, reason := NewValidator().Validate(map[string]any{
		"type": "text_input", "question": "q", "metric_gain": 0.2,
	})
	if reason != RejectNone {
		t.Fatalf("unexpected reject %q", reason)
	}
	if step.MetricGain == nil || *step.MetricGain != 0.2 {
		t.Errorf("explicit metric gain overridden: %v", step.MetricGain)
	}
}
