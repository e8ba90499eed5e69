package steps

import (
	"strings"

	"github.com/formforge/FormForge/internal/models"
)

// VariantSpec describes the structural constraints of one UI step
// variant. The registry is pure data; validation logic lives in the
// validator, which dispatches on these flags.
type VariantSpec struct {
	Type models.StepType
	// Aliases are alternate type tags seen in generation output; they
	// resolve to this variant but the canonical tag is kept on output.
	Aliases []string
	// OptionBearing variants require a non-empty options array and run
	// through the placeholder sanitizer.
	OptionBearing bool
	// MultiSelect forces allow_multiple on accepted steps.
	MultiSelect bool
	// Scale variants require scale_min < scale_max.
	Scale bool
	// Ranges variants require non-overlapping numeric ranges.
	Ranges bool
	// Upload variants require allowed_file_types and max_size_mb.
	Upload bool
	// BaseMetricGain seeds metric_gain when the candidate omits it.
	BaseMetricGain float64
	// RequiredFields is advisory schema data for the capabilities query.
	RequiredFields []string
}

var registry = []VariantSpec{
	{Type: models.StepTypeTextInput, Aliases: []string{"text"}, BaseMetricGain: 0.08, RequiredFields: []string{"question"}},
	{Type: models.StepTypeMultipleChoice, Aliases: []string{"choice"}, OptionBearing: true, BaseMetricGain: 0.12, RequiredFields: []string{"question", "options"}},
	{Type: models.StepTypeSegmentedChoice, OptionBearing: true, BaseMetricGain: 0.12, RequiredFields: []string{"question", "options"}},
	{Type: models.StepTypeChipsMulti, OptionBearing: true, MultiSelect: true, BaseMetricGain: 0.12, RequiredFields: []string{"question", "options"}},
	{Type: models.StepTypeYesNo, OptionBearing: true, BaseMetricGain: 0.12, RequiredFields: []string{"question", "options"}},
	{Type: models.StepTypeImageChoiceGrid, OptionBearing: true, BaseMetricGain: 0.12, RequiredFields: []string{"question", "options"}},
	{Type: models.StepTypeSearchableSelect, OptionBearing: true, BaseMetricGain: 0.12, RequiredFields: []string{"question", "options"}},
	{Type: models.StepTypeRating, Aliases: []string{"slider"}, Scale: true, BaseMetricGain: 0.10, RequiredFields: []string{"question", "scale_min", "scale_max"}},
	{Type: models.StepTypeRangeSlider, Scale: true, BaseMetricGain: 0.10, RequiredFields: []string{"question", "scale_min", "scale_max"}},
	{Type: models.StepTypeBudgetCards, Ranges: true, BaseMetricGain: 0.10, RequiredFields: []string{"question", "ranges"}},
	{Type: models.StepTypeFileUpload, Aliases: []string{"upload", "file_picker"}, Upload: true, BaseMetricGain: 0.15, RequiredFields: []string{"question", "allowed_file_types", "max_size_mb"}},
	{Type: models.StepTypeDatePicker, BaseMetricGain: 0.10, RequiredFields: []string{"question"}},
	{Type: models.StepTypeColorPicker, BaseMetricGain: 0.10, RequiredFields: []string{"question"}},
	{Type: models.StepTypeIntro, BaseMetricGain: 0.05, RequiredFields: []string{"question"}},
}

var byTag map[string]VariantSpec

func init() {
	byTag = make(map[string]VariantSpec, len(registry)*2)
	for _, spec := range registry {
		byTag[string(spec.Type)] = spec
		for _, alias := range spec.Aliases {
			byTag[alias] = spec
		}
	}
}

// Lookup resolves a raw type tag (canonical or alias, any case) to its
// variant spec.
func Lookup(tag string) (VariantSpec, bool) {
	spec, ok := byTag[strings.ToLower(strings.TrimSpace(tag))]
	return spec, ok
}

// CanonicalType resolves a raw tag to the canonical type, or "" when the
// tag is unknown.
func CanonicalType(tag string) models.StepType {
	if spec, ok := Lookup(tag); ok {
		return spec.Type
	}
	return ""
}

// Variants returns the registry in declaration order.
func Variants() []VariantSpec {
	out := make([]VariantSpec, len(registry))
	copy(out, registry)
	return out
}

// VariantSchema is the serializable form of one variant for clients.
type VariantSchema struct {
	Type           string   `json:"type"`
	Aliases        []string `json:"aliases,omitempty"`
	OptionBearing  bool     `json:"optionBearing"`
	RequiredFields []string `json:"requiredFields,omitempty"`
}

// CapabilitiesPayload is the read-only schema snapshot served to
// clients for drift detection.
type CapabilitiesPayload struct {
	SchemaVersion string          `json:"schemaVersion"`
	StepTypes     []VariantSchema `json:"stepTypes"`
}

// Capabilities serializes the registry under the given contract version.
func Capabilities(schemaVersion string) CapabilitiesPayload {
	out := CapabilitiesPayload{SchemaVersion: schemaVersion}
	for _, spec := range registry {
		out.StepTypes = append(out.StepTypes, VariantSchema{
			Type:           string(spec.Type),
			Aliases:        spec.Aliases,
			OptionBearing:  spec.OptionBearing,
			RequiredFields: spec.RequiredFields,
		})
	}
	return out
}
