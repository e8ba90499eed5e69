package steps

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/formforge/FormForge/internal/models"
)

// placeholderPatterns matches the template artifact family generation
// providers leak into option text. Leading and trailing fragments are
// included to tolerate truncated output; matching is substring and
// case-insensitive.
var placeholderPatterns = []string{
	"<<max_depth>>",
	"<<max_depth",
	"max_depth>>",
	"<max_depth>",
	"max_depth",
}

// FallbackOption replaces an option list the sanitizer emptied out, so
// the step stays presentable instead of silently vanishing.
var FallbackOption = models.Option{Label: "Not sure", Value: "not_sure"}

// IsPlaceholder reports whether a label or value carries a placeholder
// artifact.
func IsPlaceholder(text string) bool {
	t := strings.ToLower(text)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(t, pattern) {
			return true
		}
	}
	return false
}

// SanitizeOptions drops placeholder options from an option-bearing step.
// When every option is a placeholder, one deterministic fallback option
// is substituted. The returned record says what happened; it is data for
// observability, the caller does not branch on it beyond the fallback
// exemption in the policy filter.
func SanitizeOptions(stepID string, options []models.Option) ([]models.Option, models.CleanupRecord) {
	record := models.CleanupRecord{StepID: stepID}
	kept := make([]models.Option, 0, len(options))
	for _, opt := range options {
		if IsPlaceholder(opt.Label) || IsPlaceholder(opt.Value) {
			dropped := opt.Label
			if dropped == "" {
				dropped = opt.Value
			}
			record.DroppedOptions = append(record.DroppedOptions, dropped)
			continue
		}
		kept = append(kept, opt)
	}
	if len(kept) == 0 && len(options) > 0 {
		kept = []models.Option{FallbackOption}
		record.FallbackApplied = true
		slog.Debug("Sanitizer.SanitizeOptions: all options were placeholders, applying fallback", "stepID", stepID, "dropped", len(record.DroppedOptions))
	}
	return kept, record
}

var optionValueStrip = regexp.MustCompile(`[^a-z0-9]+`)

// SlugOptionValue derives a machine value from an option label.
func SlugOptionValue(label string) string {
	v := optionValueStrip.ReplaceAllString(strings.ToLower(label), "_")
	v = strings.Trim(v, "_")
	if v == "" {
		return "option"
	}
	return v
}
