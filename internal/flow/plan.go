package flow

import (
	"context"
	"log/slog"
	"sort"

	"github.com/formforge/FormForge/internal/genai"
	"github.com/formforge/FormForge/internal/models"
	"github.com/formforge/FormForge/internal/plancache"
	"github.com/formforge/FormForge/internal/steps"
)

// PlanState describes the backlog lifecycle for response metadata.
type PlanState string

const (
	PlanStateAbsent    PlanState = "absent"
	PlanStatePlanned   PlanState = "planned"
	PlanStateExhausted PlanState = "exhausted"
	PlanStateComplete  PlanState = "complete"
)

// Session-level planning defaults applied when the caller does not
// constrain them.
const (
	defaultMaxBatches       = 3
	defaultMaxStepsPerBatch = 4
	defaultTokenBudget      = 3000
	defaultSatietyTarget    = 0.8
)

// Deterministic plan items injected for required uploads.
const (
	uploadItemWeight = 0.15
	uploadItemGain   = 0.05
)

// batchSkeleton returns the phase descriptors embedded in a fresh plan:
// early batches stay with low-friction choices, later ones unlock free
// text and uploads.
func batchSkeleton(maxSteps int) []models.PlanBatch {
	if maxSteps <= 0 {
		maxSteps = defaultMaxStepsPerBatch
	}
	return []models.PlanBatch{
		{
			BatchID:               "batch-1",
			Purpose:               "discover",
			MaxSteps:              maxSteps,
			AllowedComponentTypes: []string{"multiple_choice", "segmented_choice", "chips_multi", "image_choice_grid"},
		},
		{
			BatchID:               "batch-2",
			Purpose:               "quantify",
			MaxSteps:              maxSteps,
			AllowedComponentTypes: []string{"multiple_choice", "yes_no", "rating", "range_slider", "budget_cards"},
		},
		{
			BatchID:               "batch-3",
			Purpose:               "finalize",
			MaxSteps:              maxSteps,
			AllowedComponentTypes: []string{"text_input", "file_upload", "date_picker", "searchable_select"},
		},
	}
}

// PlanManager creates, consumes, and advances flow-plan backlogs. The
// snapshot itself travels with the caller; the manager only holds the
// planning provider and the per-session backlog cache.
type PlanManager struct {
	provider genai.Provider
	cache    plancache.Cache
	logger   *slog.Logger
}

// NewPlanManager builds a manager. cache may be nil when backlog caching
// is disabled.
func NewPlanManager(provider genai.Provider, cache plancache.Cache) *PlanManager {
	return &PlanManager{
		provider: provider,
		cache:    cache,
		logger:   slog.Default().With("component", "plan"),
	}
}

// EnsurePlan returns the snapshot the batch should consume. A snapshot
// already present in the session wins. Otherwise a new backlog is planned,
// but only on the first batch: a session that reaches batch two without a
// plan continues unplanned rather than re-planning mid-form.
func (m *PlanManager) EnsurePlan(ctx context.Context, sessionID string, session models.SessionState, batch models.BatchConstraint, payload genai.ContextPayload, requiredUploads []models.RequiredUpload) *models.FlowPlanSnapshot {
	if session.FormPlan != nil && session.FormPlan.V >= 1 {
		return session.FormPlan
	}
	if batch.BatchNumber > 1 {
		m.logger.Warn("PlanManager.EnsurePlan: no plan past first batch, continuing unplanned", "batchNumber", batch.BatchNumber)
		return nil
	}

	items := m.backlogItems(ctx, sessionID, payload)
	items = dropConsumed(items, session.AskedStepIDs)
	items = append(items, uploadPlanItems(requiredUploads, items)...)
	if len(items) == 0 {
		return nil
	}

	target := batch.SatietyTarget
	if target <= 0 {
		target = defaultSatietyTarget
	}
	maxSteps := batch.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxStepsPerBatch
	}
	return &models.FlowPlanSnapshot{
		V: 1,
		Constraints: models.PlanConstraints{
			MaxBatches:       defaultMaxBatches,
			MaxStepsPerBatch: maxSteps,
			MaxStepsTotal:    defaultMaxBatches * maxSteps,
			TokenBudgetTotal: defaultTokenBudget,
		},
		Batches:        batchSkeleton(maxSteps),
		Stop:           models.PlanStop{RequiredComplete: true, SatietyTarget: target},
		NextBatchGuide: items,
	}
}

// backlogItems resolves the planned backlog from cache or the provider.
// A provider failure yields an empty backlog, never an error.
func (m *PlanManager) backlogItems(ctx context.Context, sessionID string, payload genai.ContextPayload) []models.FlowPlanItem {
	if m.cache != nil && sessionID != "" {
		if items, ok := m.cache.Get(ctx, sessionID); ok {
			return items
		}
	}
	if m.provider == nil {
		return nil
	}
	items, err := m.provider.PlanBacklog(ctx, payload)
	if err != nil {
		m.logger.Warn("PlanManager.backlogItems: planning call failed", "error", err)
		return nil
	}
	if m.cache != nil && sessionID != "" && len(items) > 0 {
		m.cache.Set(ctx, sessionID, items)
	}
	return items
}

// NextSlice selects up to maxSteps unconsumed items, critical-first and
// insertion-stable within a tier.
func (m *PlanManager) NextSlice(plan *models.FlowPlanSnapshot, askedStepIDs []string, maxSteps int) []models.FlowPlanItem {
	if plan == nil || maxSteps <= 0 {
		return nil
	}
	remaining := dropConsumed(plan.NextBatchGuide, askedStepIDs)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Priority.Rank() < remaining[j].Priority.Rank()
	})
	if len(remaining) > maxSteps {
		remaining = remaining[:maxSteps]
	}
	return remaining
}

// Advance returns a new snapshot with the emitted steps' keys removed from
// the backlog. The input snapshot is not mutated.
func (m *PlanManager) Advance(plan *models.FlowPlanSnapshot, emitted []models.Step) *models.FlowPlanSnapshot {
	if plan == nil {
		return nil
	}
	consumed := make(map[string]bool, len(emitted))
	for _, step := range emitted {
		if key := steps.KeyFromStepID(step.ID); key != "" {
			consumed[key] = true
		}
	}
	next := *plan
	next.NextBatchGuide = nil
	for _, item := range plan.NextBatchGuide {
		if !consumed[steps.NormalizePlanKey(item.Key)] {
			next.NextBatchGuide = append(next.NextBatchGuide, item)
		}
	}
	return &next
}

// State classifies the advanced snapshot for response metadata. Completion
// is evaluated last and wins from any state.
func (m *PlanManager) State(plan *models.FlowPlanSnapshot, satiety float64, batchTarget float64) PlanState {
	if plan == nil {
		if batchTarget > 0 && satiety >= batchTarget {
			return PlanStateComplete
		}
		return PlanStateAbsent
	}
	target := plan.Stop.SatietyTarget
	if target <= 0 {
		target = defaultSatietyTarget
	}
	backlogEmpty := len(plan.NextBatchGuide) == 0
	if satiety >= target && (!plan.Stop.RequiredComplete || backlogEmpty) {
		return PlanStateComplete
	}
	if backlogEmpty {
		return PlanStateExhausted
	}
	return PlanStatePlanned
}

// dropConsumed removes backlog items whose key maps to an already-asked
// step id, and deduplicates keys first-writer-wins.
func dropConsumed(items []models.FlowPlanItem, askedStepIDs []string) []models.FlowPlanItem {
	asked := make(map[string]bool, len(askedStepIDs))
	for _, id := range askedStepIDs {
		if key := steps.KeyFromStepID(id); key != "" {
			asked[key] = true
		}
	}
	seen := make(map[string]bool, len(items))
	out := make([]models.FlowPlanItem, 0, len(items))
	for _, item := range items {
		key := steps.NormalizePlanKey(item.Key)
		if key == "" || asked[key] || seen[key] {
			continue
		}
		seen[key] = true
		item.Key = key
		out = append(out, item)
	}
	return out
}

// uploadPlanItems appends a deterministic critical backlog item for every
// required upload the planner did not already cover.
func uploadPlanItems(uploads []models.RequiredUpload, existing []models.FlowPlanItem) []models.FlowPlanItem {
	covered := make(map[string]bool, len(existing))
	for _, item := range existing {
		covered[steps.NormalizePlanKey(item.Key)] = true
	}
	var out []models.FlowPlanItem
	for _, upload := range uploads {
		key := steps.KeyFromStepID(upload.StepID)
		if key == "" || covered[key] {
			continue
		}
		covered[key] = true
		out = append(out, models.FlowPlanItem{
			Key:                key,
			Goal:               "collect the required upload",
			ComponentHint:      string(models.StepTypeFileUpload),
			Priority:           models.PriorityCritical,
			ImportanceWeight:   uploadItemWeight,
			ExpectedMetricGain: uploadItemGain,
			Deterministic:      true,
			Role:               upload.Role,
		})
	}
	return out
}
