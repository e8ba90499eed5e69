// Package steps turns untrusted generation output into validated UI steps.
//
// It holds the step schema registry, the placeholder sanitizer, the step
// validator, and the JSON Lines candidate scanner. Everything in this
// package is pure: malformed input is the expected common case and is
// answered with reject reasons, never errors or panics.
package steps

import (
	"regexp"
	"strings"
)

const (
	// MaxStepIDLength caps normalized step ids.
	MaxStepIDLength = 64
	// MaxPlanKeyLength caps normalized plan keys.
	MaxPlanKeyLength = 48
)

var (
	stepIDStrip  = regexp.MustCompile(`[^a-z0-9-]+`)
	planKeyStrip = regexp.MustCompile(`[^a-z0-9_]+`)
	hyphenRuns   = regexp.MustCompile(`-{2,}`)
	unscoreRuns  = regexp.MustCompile(`_{2,}`)
)

// NormalizeStepID canonicalizes a step id: underscores become hyphens,
// the result is lower-cased, and unsupported characters are stripped, so
// ids from heterogeneous generation runs converge to one form.
func NormalizeStepID(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return ""
	}
	t = strings.ReplaceAll(t, "_", "-")
	t = stepIDStrip.ReplaceAllString(t, "-")
	t = hyphenRuns.ReplaceAllString(t, "-")
	t = strings.Trim(t, "-")
	if len(t) > MaxStepIDLength {
		t = strings.Trim(t[:MaxStepIDLength], "-")
	}
	return t
}

// NormalizePlanKey canonicalizes a backlog key. A leading "step-" prefix
// is dropped so step ids and plan keys compare under one form.
func NormalizePlanKey(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return ""
	}
	t = strings.TrimPrefix(t, "step-")
	t = strings.ReplaceAll(t, "-", "_")
	t = planKeyStrip.ReplaceAllString(t, "_")
	t = unscoreRuns.ReplaceAllString(t, "_")
	t = strings.Trim(t, "_")
	if len(t) > MaxPlanKeyLength {
		t = strings.Trim(t[:MaxPlanKeyLength], "_")
	}
	return t
}

// StepIDFromKey derives the canonical step id a plan key is expected to
// surface as.
func StepIDFromKey(key string) string {
	k := NormalizePlanKey(key)
	if k == "" {
		return ""
	}
	return "step-" + strings.ReplaceAll(k, "_", "-")
}

// KeyFromStepID is the inverse mapping used for asked-id comparisons.
func KeyFromStepID(id string) string {
	return NormalizePlanKey(NormalizeStepID(id))
}
