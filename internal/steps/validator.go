package steps

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/formforge/FormForge/internal/models"
)

// RejectReason codes why a candidate was refused. An empty reason means
// the candidate was accepted.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectNotObject      RejectReason = "not_object"
	RejectUnknownType    RejectReason = "unknown_type"
	RejectMissingOptions RejectReason = "missing_options"
	RejectInvalidScale   RejectReason = "invalid_scale"
	RejectInvalidStep    RejectReason = "invalid_scale_step"
	RejectMissingRanges  RejectReason = "missing_ranges"
	RejectOverlapRanges  RejectReason = "overlapping_ranges"
	RejectMissingFiles   RejectReason = "missing_file_types"
	RejectInvalidMaxSize RejectReason = "invalid_max_size"
	RejectDuplicateID    RejectReason = "duplicate_id"
)

// Validator maps raw candidate objects to fully-formed steps. It is
// scoped to one batch: accepted ids are remembered so a later candidate
// reusing an id is rejected (first writer wins).
type Validator struct {
	seen map[string]struct{}
}

// NewValidator creates a batch-scoped validator.
func NewValidator() *Validator {
	return &Validator{seen: make(map[string]struct{})}
}

// Validate turns one raw candidate into a Step or a reject reason. It is
// total: any decodable JSON value yields exactly one well-formed step or
// one reason code, never a panic and never a partially-filled step.
func (v *Validator) Validate(raw any) (models.Step, models.CleanupRecord, RejectReason) {
	var cleanup models.CleanupRecord

	m, ok := raw.(map[string]any)
	if !ok || m == nil {
		return models.Step{}, cleanup, RejectNotObject
	}

	spec, ok := Lookup(strField(m, "type", "component_hint", "componentHint", "componentType", "component_type"))
	if !ok {
		return models.Step{}, cleanup, RejectUnknownType
	}

	step := models.Step{Type: spec.Type}

	// Copy normalization: some generation runs emit `question`, others
	// `title`, and some omit both. Clients expect both fields whenever
	// either is present; a step with neither is still usable.
	question := strings.TrimSpace(strField(m, "question"))
	title := strings.TrimSpace(strField(m, "title"))
	if question == "" {
		question = title
	}
	if title == "" {
		title = question
	}
	step.Question = question
	step.Title = title

	step.Humanism = strField(m, "humanism")
	step.VisualHint = strField(m, "visual_hint", "visualHint")
	step.Required = boolField(m, "required")
	if bp, ok := m["blueprint"].(map[string]any); ok && len(bp) > 0 {
		step.Blueprint = bp
	}

	rawID := strField(m, "id", "stepId", "step_id", "stepID")
	cleanup.StepID = NormalizeStepID(rawID)

	if spec.OptionBearing {
		options := coerceOptions(m["options"])
		if len(options) == 0 {
			return models.Step{}, cleanup, RejectMissingOptions
		}
		options, cleanup = SanitizeOptions(cleanup.StepID, options)
		step.Options = options
		step.AllowMultiple = boolField(m, "allow_multiple", "allowMultiple", "multi_select", "multiSelect")
		if spec.MultiSelect {
			t := true
			step.AllowMultiple = &t
		}
	}

	if spec.Scale {
		scaleMin := numField(m, "scale_min", "scaleMin", "min")
		scaleMax := numField(m, "scale_max", "scaleMax", "max")
		if scaleMin == nil || scaleMax == nil || *scaleMin >= *scaleMax {
			return models.Step{}, cleanup, RejectInvalidScale
		}
		step.ScaleMin = scaleMin
		step.ScaleMax = scaleMax
		if scaleStep := numField(m, "step", "scale_step", "scaleStep"); scaleStep != nil {
			if *scaleStep <= 0 || !dividesEvenly(*scaleMax-*scaleMin, *scaleStep) {
				return models.Step{}, cleanup, RejectInvalidStep
			}
			step.ScaleStep = scaleStep
		}
	}

	if spec.Ranges {
		ranges := coerceRanges(m["ranges"])
		if len(ranges) == 0 {
			return models.Step{}, cleanup, RejectMissingRanges
		}
		if rangesOverlap(ranges) {
			return models.Step{}, cleanup, RejectOverlapRanges
		}
		step.Ranges = ranges
	}

	if spec.Upload {
		step.AllowedFileTypes = stringList(m["allowed_file_types"])
		if len(step.AllowedFileTypes) == 0 {
			step.AllowedFileTypes = stringList(m["allowedFileTypes"])
		}
		if len(step.AllowedFileTypes) == 0 {
			return models.Step{}, cleanup, RejectMissingFiles
		}
		maxSize := numField(m, "max_size_mb", "maxSizeMb", "maxSizeMB")
		if maxSize == nil || *maxSize <= 0 {
			return models.Step{}, cleanup, RejectInvalidMaxSize
		}
		step.MaxSizeMB = maxSize
		step.UploadRole = strField(m, "upload_role", "uploadRole", "role")
	}

	if spec.Type == models.StepTypeDatePicker {
		step.MinDate = strField(m, "min_date", "minDate")
		step.MaxDate = strField(m, "max_date", "maxDate")
	}

	if mg := numField(m, "metric_gain", "metricGain"); mg != nil {
		step.MetricGain = mg
	} else {
		gain := defaultMetricGain(spec, step.Required)
		step.MetricGain = &gain
	}

	id := NormalizeStepID(rawID)
	if id == "" {
		id = fallbackStepID(spec.Type, step.Question, step.Options)
	}
	if _, taken := v.seen[id]; taken {
		slog.Debug("Validator.Validate: duplicate id within batch, rejecting later candidate", "id", id)
		return models.Step{}, cleanup, RejectDuplicateID
	}
	v.seen[id] = struct{}{}
	step.ID = id
	cleanup.StepID = id

	return step, cleanup, RejectNone
}

// defaultMetricGain seeds metric_gain per variant family, nudged by the
// required flag and clamped to [0.03, 0.25].
func defaultMetricGain(spec VariantSpec, required *bool) float64 {
	gain := spec.BaseMetricGain
	if required != nil {
		if *required {
			gain = math.Min(0.25, gain+0.03)
		} else {
			gain = math.Max(0.03, gain-0.02)
		}
	}
	return gain
}

// fallbackStepID is the deterministic backstop for candidates that omit
// an id: type, the first question words, and the first option value.
func fallbackStepID(stepType models.StepType, question string, options []models.Option) string {
	parts := []string{"step", string(stepType)}
	if q := NormalizeStepID(question); q != "" {
		tokens := strings.Split(q, "-")
		if len(tokens) > 6 {
			tokens = tokens[:6]
		}
		parts = append(parts, strings.Join(tokens, "-"))
	}
	if len(options) > 0 {
		opt := options[0].Value
		if opt == "" {
			opt = options[0].Label
		}
		if o := NormalizeStepID(opt); o != "" {
			parts = append(parts, o)
		}
	}
	return NormalizeStepID(strings.Join(parts, "-"))
}

func dividesEvenly(span, step float64) bool {
	const eps = 1e-9
	r := math.Mod(span, step)
	return r < eps || step-r < eps
}

func rangesOverlap(ranges []models.BudgetRange) bool {
	for _, r := range ranges {
		if r.Min >= r.Max {
			return true
		}
	}
	sorted := make([]models.BudgetRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Min < sorted[i-1].Max {
			return true
		}
	}
	return false
}

// coerceOptions normalizes an option array into canonical objects.
// String entries become {label, slug}; duplicate values get a numeric
// suffix so every value stays unique within the step.
func coerceOptions(raw any) []models.Option {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]models.Option, 0, len(list))
	counts := make(map[string]int)
	for _, el := range list {
		var opt models.Option
		switch o := el.(type) {
		case string:
			opt.Label = strings.TrimSpace(o)
			opt.Value = SlugOptionValue(opt.Label)
		case map[string]any:
			opt.Label = strings.TrimSpace(strField(o, "label", "value"))
			opt.Value = strings.TrimSpace(strField(o, "value"))
			opt.Description = strField(o, "description")
			opt.Icon = strField(o, "icon")
			opt.ImageURL = strField(o, "imageUrl", "image_url")
		default:
			continue
		}
		if opt.Label == "" {
			continue
		}
		if opt.Value == "" {
			opt.Value = SlugOptionValue(opt.Label)
		}
		counts[opt.Value]++
		if n := counts[opt.Value]; n > 1 {
			opt.Value = fmt.Sprintf("%s_%d", opt.Value, n)
		}
		out = append(out, opt)
	}
	return out
}

func coerceRanges(raw any) []models.BudgetRange {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]models.BudgetRange, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		minVal := numField(m, "min")
		maxVal := numField(m, "max")
		if minVal == nil || maxVal == nil {
			continue
		}
		out = append(out, models.BudgetRange{
			Label: strField(m, "label"),
			Min:   *minVal,
			Max:   *maxVal,
		})
	}
	return out
}

func stringList(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// strField returns the first non-empty string under the given keys.
func strField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// numField returns the first numeric value under the given keys. JSON
// numbers decode as float64; numeric strings are tolerated since
// generation output quotes numbers unpredictably.
func numField(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		switch n := m[k].(type) {
		case float64:
			val := n
			return &val
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

func boolField(m map[string]any, keys ...string) *bool {
	for _, k := range keys {
		if b, ok := m[k].(bool); ok {
			val := b
			return &val
		}
	}
	return nil
}
