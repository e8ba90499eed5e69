// Package flow implements the batch generation engine: flow-plan backlog
// management, candidate admission policy, deterministic placements, and the
// orchestrator that assembles a response batch from untrusted provider output.
package flow

import (
	"strings"

	"github.com/formforge/FormForge/internal/models"
	"github.com/formforge/FormForge/internal/steps"
)

// DropReason labels why the admission policy rejected a candidate step.
type DropReason string

const (
	DropNone                DropReason = ""
	DropBudgetExhausted     DropReason = "budget_exhausted"
	DropAlreadyAsked        DropReason = "already_asked"
	DropDuplicateInBatch    DropReason = "duplicate_in_batch"
	DropTypeNotAllowed      DropReason = "type_not_allowed"
	DropBannedFiller        DropReason = "banned_filler"
	DropUploadMismatch      DropReason = "upload_mismatch"
	DropExplorationExceeded DropReason = "exploration_exceeded"
)

// bannedOptionSets are option vocabularies that signal the provider fell back
// to generic filler instead of grounded content. A candidate whose options
// cover one of these sets (with at most one extra option) is rejected.
var bannedOptionSets = [][]string{
	{"red", "blue", "green"},
	{"circle", "square", "triangle"},
}

// bannedOptionTerms reject a candidate when any option label or value
// contains the term.
var bannedOptionTerms = []string{"abstract"}

// PolicyConfig carries the per-batch admission inputs.
type PolicyConfig struct {
	MaxSteps        int
	AllowedTypes    []string
	AskedStepIDs    []string
	Answers         map[string]any
	RequiredUploads []models.RequiredUpload
	PlanKeys        []string
	Rigidity        float64
}

// PolicyFilter applies the ordered admission rules to validated candidate
// steps. It is stateful within a batch: accepted steps consume budget and
// reserve their identifiers.
type PolicyFilter struct {
	maxSteps       int
	allowed        map[models.StepType]bool
	askedKeys      map[string]bool
	seenIDs        map[string]bool
	satisfiedRoles map[string]bool
	uploadKeys     map[string]bool
	hasUploadReqs  bool

	explorationBudget int
	explorationUsed   int
	planKeys          map[string]bool

	emitted int
}

// NewPolicyFilter builds a filter for one batch.
func NewPolicyFilter(cfg PolicyConfig) *PolicyFilter {
	allowed := make(map[models.StepType]bool, len(cfg.AllowedTypes))
	for _, tag := range cfg.AllowedTypes {
		if spec, ok := steps.Lookup(tag); ok {
			allowed[spec.Type] = true
		}
	}

	askedKeys := make(map[string]bool, len(cfg.AskedStepIDs))
	for _, id := range cfg.AskedStepIDs {
		if key := steps.KeyFromStepID(id); key != "" {
			askedKeys[key] = true
		}
	}

	answeredKeys := make(map[string]bool, len(cfg.Answers))
	for id := range cfg.Answers {
		if key := steps.KeyFromStepID(id); key != "" {
			answeredKeys[key] = true
		}
	}

	satisfiedRoles := make(map[string]bool)
	uploadKeys := make(map[string]bool, len(cfg.RequiredUploads))
	for _, upload := range cfg.RequiredUploads {
		key := steps.KeyFromStepID(upload.StepID)
		if key == "" {
			continue
		}
		uploadKeys[key] = true
		if answeredKeys[key] && upload.Role != "" {
			satisfiedRoles[strings.ToLower(upload.Role)] = true
		}
	}

	planKeys := make(map[string]bool, len(cfg.PlanKeys))
	for _, key := range cfg.PlanKeys {
		if norm := steps.NormalizePlanKey(key); norm != "" {
			planKeys[norm] = true
		}
	}

	rigidity := cfg.Rigidity
	if rigidity < 0 {
		rigidity = 0
	}
	if rigidity > 1 {
		rigidity = 1
	}
	exploration := int(float64(cfg.MaxSteps) * (1 - rigidity))
	if exploration < 0 {
		exploration = 0
	}

	return &PolicyFilter{
		maxSteps:          cfg.MaxSteps,
		allowed:           allowed,
		askedKeys:         askedKeys,
		seenIDs:           make(map[string]bool),
		satisfiedRoles:    satisfiedRoles,
		uploadKeys:        uploadKeys,
		hasUploadReqs:     len(cfg.RequiredUploads) > 0,
		explorationBudget: exploration,
		planKeys:          planKeys,
	}
}

// Full reports whether the batch budget is exhausted; callers stop evaluating
// further candidates once it returns true.
func (p *PolicyFilter) Full() bool {
	return p.emitted >= p.maxSteps
}

// Emitted returns the number of steps accepted so far.
func (p *PolicyFilter) Emitted() int {
	return p.emitted
}

// Admit runs the candidate through the ordered admission rules.
// fallbackOnly marks a step whose options were reduced to the single
// sanitizer fallback; such steps are exempt from the banned-filler rule.
func (p *PolicyFilter) Admit(step models.Step, fallbackOnly bool) (bool, DropReason) {
	if p.Full() {
		return false, DropBudgetExhausted
	}

	key := steps.KeyFromStepID(step.ID)
	if key != "" && p.askedKeys[key] {
		return false, DropAlreadyAsked
	}

	if p.seenIDs[step.ID] {
		return false, DropDuplicateInBatch
	}

	if !p.allowed[step.Type] {
		return false, DropTypeNotAllowed
	}

	if !fallbackOnly && len(step.Options) > 0 && hasBannedOptions(step.Options) {
		return false, DropBannedFiller
	}

	if reason := p.checkUploadFit(step, key); reason != DropNone {
		return false, reason
	}

	if len(p.planKeys) > 0 && !p.planKeys[key] {
		if p.explorationUsed >= p.explorationBudget {
			return false, DropExplorationExceeded
		}
		p.explorationUsed++
	}

	p.seenIDs[step.ID] = true
	p.emitted++
	return true, DropNone
}

// checkUploadFit rejects uploads that duplicate an already-satisfied
// requirement or fall outside the declared requirement set, and non-upload
// steps that masquerade under an upload-flavored identifier.
func (p *PolicyFilter) checkUploadFit(step models.Step, key string) DropReason {
	looksLikeUpload := strings.Contains(key, "upload") || strings.Contains(key, "file")

	if step.Type == models.StepTypeFileUpload {
		if step.UploadRole != "" && p.satisfiedRoles[strings.ToLower(step.UploadRole)] {
			return DropUploadMismatch
		}
		if p.hasUploadReqs && !p.uploadKeys[key] {
			return DropUploadMismatch
		}
		return DropNone
	}

	// A declared required-upload id must carry an upload type; a required
	// upload misclassified as anything else would silently satisfy nothing.
	if p.uploadKeys[key] {
		return DropUploadMismatch
	}
	if looksLikeUpload && step.Type == models.StepTypeTextInput {
		return DropUploadMismatch
	}
	return DropNone
}

func hasBannedOptions(options []models.Option) bool {
	labels := make(map[string]bool, len(options))
	for _, opt := range options {
		label := strings.ToLower(strings.TrimSpace(opt.Label))
		combined := label + " " + strings.ToLower(strings.TrimSpace(opt.Value))
		for _, term := range bannedOptionTerms {
			if strings.Contains(combined, term) {
				return true
			}
		}
		if label != "" && !strings.Contains(label, " ") {
			labels[label] = true
		}
	}
	for _, banned := range bannedOptionSets {
		if len(labels) > len(banned)+1 {
			continue
		}
		covered := true
		for _, want := range banned {
			if !labels[want] {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}
