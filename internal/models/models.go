// Package models defines the core data structures for FormForge.
//
// It includes the wire contract for batch generation requests and responses,
// the UI step catalog, and the flow plan types shared across modules.
package models

import (
	"errors"
	"strings"
)

// StepType tags a UI step variant.
type StepType string

const (
	// StepTypeTextInput is a free-text question.
	StepTypeTextInput StepType = "text_input"
	// StepTypeMultipleChoice is a single-select option list.
	StepTypeMultipleChoice StepType = "multiple_choice"
	// StepTypeSegmentedChoice is a segmented-control option list.
	StepTypeSegmentedChoice StepType = "segmented_choice"
	// StepTypeChipsMulti is a multi-select chip list.
	StepTypeChipsMulti StepType = "chips_multi"
	// StepTypeYesNo is a binary choice.
	StepTypeYesNo StepType = "yes_no"
	// StepTypeImageChoiceGrid is an image-backed option grid.
	StepTypeImageChoiceGrid StepType = "image_choice_grid"
	// StepTypeSearchableSelect is a type-ahead option list.
	StepTypeSearchableSelect StepType = "searchable_select"
	// StepTypeRating is a numeric rating scale.
	StepTypeRating StepType = "rating"
	// StepTypeRangeSlider is a numeric range selection.
	StepTypeRangeSlider StepType = "range_slider"
	// StepTypeBudgetCards selects one of several numeric ranges.
	StepTypeBudgetCards StepType = "budget_cards"
	// StepTypeFileUpload collects a file from the user.
	StepTypeFileUpload StepType = "file_upload"
	// StepTypeDatePicker collects a date.
	StepTypeDatePicker StepType = "date_picker"
	// StepTypeColorPicker collects a color.
	StepTypeColorPicker StepType = "color_picker"
	// StepTypeIntro is a non-question presentation step.
	StepTypeIntro StepType = "intro"
)

// Error variables for structural request failures. These are the only
// error class surfaced to callers as a hard failure; everything the
// generation provider gets wrong degrades to fewer steps instead.
var (
	ErrMissingBatchID       = errors.New("batchId is required")
	ErrInvalidBatchNumber   = errors.New("batchNumber must be >= 1")
	ErrInvalidMaxSteps      = errors.New("maxSteps must be >= 0")
	ErrMissingAllowedTypes  = errors.New("allowedComponentTypes cannot be empty")
	ErrInvalidSatietyTarget = errors.New("satietyTarget must be within [0, 1]")
	ErrInvalidRigidity      = errors.New("rigidity must be within [0, 1]")
)

// Option is a selectable choice on option-bearing steps.
type Option struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// BudgetRange is one selectable numeric range on a budget_cards step.
type BudgetRange struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Step is a fully-formed UI step. The variant is tagged by Type; fields
// beyond the shared base are populated per variant and validated by the
// steps package before a Step is ever constructed.
type Step struct {
	ID         string         `json:"id"`
	Type       StepType       `json:"type"`
	Question   string         `json:"question"`
	Title      string         `json:"title,omitempty"`
	Humanism   string         `json:"humanism,omitempty"`
	VisualHint string         `json:"visual_hint,omitempty"`
	Required   *bool          `json:"required,omitempty"`
	MetricGain *float64       `json:"metric_gain,omitempty"`
	Blueprint  map[string]any `json:"blueprint,omitempty"`

	// Option-bearing variants.
	Options       []Option `json:"options,omitempty"`
	AllowMultiple *bool    `json:"allow_multiple,omitempty"`

	// Scale variants (rating, range_slider).
	ScaleMin  *float64 `json:"scale_min,omitempty"`
	ScaleMax  *float64 `json:"scale_max,omitempty"`
	ScaleStep *float64 `json:"step,omitempty"`

	// budget_cards.
	Ranges []BudgetRange `json:"ranges,omitempty"`

	// file_upload.
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`
	MaxSizeMB        *float64 `json:"max_size_mb,omitempty"`
	UploadRole       string   `json:"upload_role,omitempty"`

	// date_picker.
	MinDate string `json:"min_date,omitempty"`
	MaxDate string `json:"max_date,omitempty"`
}

// PlanPriority orders flow plan items into consumption tiers.
type PlanPriority string

const (
	PriorityCritical PlanPriority = "critical"
	PriorityHigh     PlanPriority = "high"
	PriorityMedium   PlanPriority = "medium"
	PriorityOptional PlanPriority = "optional"
)

// Rank returns the tier index for sorting; lower consumes first.
// Unknown priorities sort with optional so a garbled provider value
// never jumps the queue.
func (p PlanPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityOptional:
		return 3
	default:
		return 3
	}
}

// FlowPlanItem is one planned question topic in the session backlog.
// Key identifies the topic and is distinct from any emitted step id.
type FlowPlanItem struct {
	Key                string       `json:"key"`
	Goal               string       `json:"goal,omitempty"`
	Why                string       `json:"why,omitempty"`
	ComponentHint      string       `json:"component_hint,omitempty"`
	Priority           PlanPriority `json:"priority,omitempty"`
	ImportanceWeight   float64      `json:"importance_weight,omitempty"`
	ExpectedMetricGain float64      `json:"expected_metric_gain,omitempty"`
	Deterministic      bool         `json:"deterministic,omitempty"`
	Role               string       `json:"role,omitempty"`
}

// PlanConstraints bounds the overall session.
type PlanConstraints struct {
	MaxBatches       int `json:"maxBatches,omitempty"`
	MaxStepsTotal    int `json:"maxStepsTotal,omitempty"`
	MaxStepsPerBatch int `json:"maxStepsPerBatch,omitempty"`
	TokenBudgetTotal int `json:"tokenBudgetTotal,omitempty"`
}

// PlanBatch describes one planned phase of the form.
type PlanBatch struct {
	BatchID               string   `json:"batchId"`
	Purpose               string   `json:"purpose,omitempty"`
	MaxSteps              int      `json:"maxSteps,omitempty"`
	AllowedComponentTypes []string `json:"allowedComponentTypes,omitempty"`
	Rigidity              *float64 `json:"rigidity,omitempty"`
}

// PlanStop holds the session stop condition.
type PlanStop struct {
	RequiredComplete bool    `json:"requiredComplete,omitempty"`
	SatietyTarget    float64 `json:"satietyTarget,omitempty"`
}

// FlowPlanSnapshot is the cross-batch backlog state. It is created once
// on the first batch and thereafter round-tripped by the caller; later
// batches only consume it.
type FlowPlanSnapshot struct {
	V              int             `json:"v"`
	Constraints    PlanConstraints `json:"constraints"`
	Batches        []PlanBatch     `json:"batches,omitempty"`
	Stop           PlanStop        `json:"stop"`
	NextBatchGuide []FlowPlanItem  `json:"nextBatchGuide,omitempty"`
}

// RequiredUpload names an upload the form must collect.
type RequiredUpload struct {
	StepID string `json:"stepId"`
	Role   string `json:"role,omitempty"`
}

// Placement is a non-generated step insertion computed from policy.
type Placement struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Role          string  `json:"role,omitempty"`
	Position      string  `json:"position"`
	AnchorStepID  *string `json:"anchor_step_id"`
	Deterministic bool    `json:"deterministic"`
}

// Placement positions.
const (
	PlacementBefore = "before"
	PlacementAfter  = "after"
)

// SessionState is the caller-supplied session snapshot. Nothing in it is
// persisted server-side; continuity exists only because the caller
// resubmits the previous response's state.
type SessionState struct {
	Answers                map[string]any    `json:"answers,omitempty"`
	AskedStepIDs           []string          `json:"askedStepIds,omitempty"`
	SatietyCurrent         float64           `json:"satietyCurrent,omitempty"`
	PersonalizationSummary string            `json:"personalizationSummary,omitempty"`
	FormPlan               *FlowPlanSnapshot `json:"formPlan,omitempty"`
}

// BatchConstraint bounds a single generation round.
type BatchConstraint struct {
	BatchID               string   `json:"batchId"`
	BatchNumber           int      `json:"batchNumber"`
	MaxSteps              int      `json:"maxSteps"`
	AllowedComponentTypes []string `json:"allowedComponentTypes"`
	SatietyTarget         float64  `json:"satietyTarget,omitempty"`
	Rigidity              *float64 `json:"rigidity,omitempty"`
}

// EffectiveRigidity returns the rigidity to apply, defaulting to fully
// plan-bound when the caller does not send one.
func (b *BatchConstraint) EffectiveRigidity() float64 {
	if b.Rigidity == nil {
		return 1.0
	}
	return *b.Rigidity
}

// Validate checks the structural request invariants that cannot be
// safely defaulted.
func (b *BatchConstraint) Validate() error {
	if strings.TrimSpace(b.BatchID) == "" {
		return ErrMissingBatchID
	}
	if b.BatchNumber < 1 {
		return ErrInvalidBatchNumber
	}
	if b.MaxSteps < 0 {
		return ErrInvalidMaxSteps
	}
	nonEmpty := 0
	for _, t := range b.AllowedComponentTypes {
		if strings.TrimSpace(t) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return ErrMissingAllowedTypes
	}
	if b.SatietyTarget < 0 || b.SatietyTarget > 1 {
		return ErrInvalidSatietyTarget
	}
	if b.Rigidity != nil && (*b.Rigidity < 0 || *b.Rigidity > 1) {
		return ErrInvalidRigidity
	}
	return nil
}

// ContextBundle is the pre-fetched generation context. When absent from
// a request the orchestrator loads instance defaults from the store.
type ContextBundle struct {
	Industry         string   `json:"industry,omitempty"`
	Service          string   `json:"service,omitempty"`
	PlatformGoal     string   `json:"platformGoal,omitempty"`
	GroundingSummary string   `json:"groundingSummary,omitempty"`
	AnchorTerms      []string `json:"anchorTerms,omitempty"`
}

// NextStepsRequest is the inbound payload for one generation batch.
type NextStepsRequest struct {
	InstanceID      string           `json:"instanceId,omitempty"`
	SessionID       string           `json:"sessionId,omitempty"`
	Session         SessionState     `json:"session"`
	CurrentBatch    BatchConstraint  `json:"currentBatch"`
	Context         *ContextBundle   `json:"context,omitempty"`
	RequiredUploads []RequiredUpload `json:"requiredUploads,omitempty"`
	IncludeMeta     bool             `json:"includeMeta,omitempty"`
}

// Validate checks the request for the structural errors that produce a
// hard failure response.
func (r *NextStepsRequest) Validate() error {
	return r.CurrentBatch.Validate()
}

// CleanupRecord describes what the placeholder sanitizer removed from
// one candidate step. It is observability data, not control flow.
type CleanupRecord struct {
	StepID          string   `json:"stepId,omitempty"`
	DroppedOptions  []string `json:"droppedOptions,omitempty"`
	FallbackApplied bool     `json:"fallbackApplied,omitempty"`
}

// BatchMeta is optional response metadata, included only when the
// request asks for it.
type BatchMeta struct {
	LatencyMs      int64           `json:"latencyMs"`
	CandidateCount int             `json:"candidateCount"`
	DroppedCount   int             `json:"droppedCount"`
	PlanState      string          `json:"planState,omitempty"`
	ProviderModel  string          `json:"providerModel,omitempty"`
	Cleanup        []CleanupRecord `json:"cleanup,omitempty"`
	DropReasons    map[string]int  `json:"dropReasons,omitempty"`
}

// NextStepsResponse is the outbound batch result.
type NextStepsResponse struct {
	RequestID               string            `json:"requestId"`
	SchemaVersion           string            `json:"schemaVersion"`
	MiniSteps               []Step            `json:"miniSteps"`
	FormPlan                *FlowPlanSnapshot `json:"formPlan,omitempty"`
	DeterministicPlacements []Placement       `json:"deterministicPlacements,omitempty"`
	Meta                    *BatchMeta        `json:"meta,omitempty"`
}
