package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/formforge/FormForge/internal/genai"
	"github.com/formforge/FormForge/internal/models"
)

const candidateJSONL = `{"id":"step-goal","type":"multiple_choice","question":"What is your goal?","options":["Launch","Redesign","Refresh"]}
{"id":"step-style","type":"multiple_choice","question":"Preferred style?","options":["Minimal","Bold"]}
{"id":"step-notes","type":"text_input","question":"Anything else?"}
{"id":"step-pace","type":"multiple_choice","question":"How fast?","options":["Soon","Later"]}
{"id":"step-vibe","type":"multiple_choice","question":"Which vibe?","options":["Warm","Cool"]}`

func testRequest(maxSteps int, allowed ...string) models.NextStepsRequest {
	if len(allowed) == 0 {
		allowed = []string{"multiple_choice", "text_input"}
	}
	return models.NextStepsRequest{
		SessionID: "session-1",
		CurrentBatch: models.BatchConstraint{
			BatchID:               "batch-1",
			BatchNumber:           1,
			MaxSteps:              maxSteps,
			AllowedComponentTypes: allowed,
			SatietyTarget:         0.8,
		},
	}
}

func newTestOrchestrator(provider *genai.MockProvider, opts ...Option) *Orchestrator {
	return NewOrchestrator(provider, NewPlanManager(provider, nil), opts...)
}

func TestGenerateBatchBudgetTruncates(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsOutput = candidateJSONL
	o := newTestOrchestrator(provider)

	resp, err := o.GenerateBatch(context.Background(), testRequest(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.MiniSteps) != 2 {
		t.Fatalf("emitted %d steps, want 2", len(resp.MiniSteps))
	}
	if resp.MiniSteps[0].ID != "step-goal" || resp.MiniSteps[1].ID != "step-style" {
		t.Errorf("stream order not preserved: %+v", resp.MiniSteps)
	}
	if resp.RequestID == "" || !strings.HasPrefix(resp.RequestID, "req_") {
		t.Errorf("unexpected request id: %q", resp.RequestID)
	}
	if resp.SchemaVersion != DefaultSchemaVersion {
		t.Errorf("schema version = %q, want %q", resp.SchemaVersion, DefaultSchemaVersion)
	}
}

func TestGenerateBatchTypeContainment(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsOutput = candidateJSONL
	o := newTestOrchestrator(provider)

	resp, err := o.GenerateBatch(context.Background(), testRequest(5, "text_input"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.MiniSteps) != 1 || resp.MiniSteps[0].ID != "step-notes" {
		t.Errorf("expected only the text step, got %+v", resp.MiniSteps)
	}
}

func TestGenerateBatchWholeArrayRetry(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsOutput = `[
	{"id":"step-goal","type":"multiple_choice","question":"Goal?","options":["Launch","Redesign"]},
	{"id":"step-style","type":"multiple_choice","question":"Style?","options":["Minimal","Bold"]}
]`
	o := newTestOrchestrator(provider)

	resp, err := o.GenerateBatch(context.Background(), testRequest(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.MiniSteps) != 2 {
		t.Errorf("whole-output retry failed: %+v", resp.MiniSteps)
	}
}

func TestGenerateBatchGarbageYieldsEmptyBatch(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsOutput = "I am sorry, I cannot produce steps today."
	o := newTestOrchestrator(provider)

	resp, err := o.GenerateBatch(context.Background(), testRequest(4))
	if err != nil {
		t.Fatalf("garbage output must not error: %v", err)
	}
	if len(resp.MiniSteps) != 0 {
		t.Errorf("expected empty batch, got %+v", resp.MiniSteps)
	}
}

func TestGenerateBatchProviderFailureYieldsEmptyBatch(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsErr = errors.New("rate limited")
	o := newTestOrchestrator(provider)

	resp, err := o.GenerateBatch(context.Background(), testRequest(4))
	if err != nil {
		t.Fatalf("provider failure must not error: %v", err)
	}
	if len(resp.MiniSteps) != 0 {
		t.Errorf("expected empty batch, got %+v", resp.MiniSteps)
	}
	if resp.RequestID == "" {
		t.Error("response must still carry a request id")
	}
}

func TestGenerateBatchInvalidRequest(t *testing.T) {
	o := newTestOrchestrator(genai.NewMockProvider())

	req := testRequest(4)
	req.CurrentBatch.AllowedComponentTypes = nil
	_, err := o.GenerateBatch(context.Background(), req)
	if !errors.Is(err, models.ErrMissingAllowedTypes) {
		t.Errorf("expected ErrMissingAllowedTypes, got %v", err)
	}

	req = testRequest(4)
	req.CurrentBatch.BatchID = ""
	_, err = o.GenerateBatch(context.Background(), req)
	if !errors.Is(err, models.ErrMissingBatchID) {
		t.Errorf("expected ErrMissingBatchID, got %v", err)
	}
}

func TestGenerateBatchAdvancesCarriedPlan(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsOutput = candidateJSONL
	o := newTestOrchestrator(provider)

	req := testRequest(2)
	req.CurrentBatch.BatchNumber = 2
	req.Session.FormPlan = &models.FlowPlanSnapshot{
		V:    1,
		Stop: models.PlanStop{RequiredComplete: true, SatietyTarget: 0.8},
		NextBatchGuide: []models.FlowPlanItem{
			{Key: "goal", Priority: models.PriorityCritical},
			{Key: "style", Priority: models.PriorityHigh},
			{Key: "budget", Priority: models.PriorityMedium},
		},
	}

	resp, err := o.GenerateBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FormPlan == nil {
		t.Fatal("carried plan must round-trip")
	}
	// step-goal and step-style were emitted, so only budget remains.
	if len(resp.FormPlan.NextBatchGuide) != 1 || resp.FormPlan.NextBatchGuide[0].Key != "budget" {
		t.Errorf("plan not advanced: %+v", resp.FormPlan.NextBatchGuide)
	}
	if len(provider.PlanCalls) != 0 {
		t.Error("planner must not run when a plan is carried")
	}
}

func TestGenerateBatchIncludesMetaOnRequest(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsOutput = candidateJSONL
	o := newTestOrchestrator(provider)

	req := testRequest(2)
	req.IncludeMeta = true
	resp, err := o.GenerateBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta == nil {
		t.Fatal("meta requested but absent")
	}
	if resp.Meta.CandidateCount != 5 {
		t.Errorf("candidate count = %d, want 5", resp.Meta.CandidateCount)
	}
	if resp.Meta.ProviderModel != "mock" {
		t.Errorf("provider model = %q, want mock", resp.Meta.ProviderModel)
	}

	req.IncludeMeta = false
	resp, err = o.GenerateBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta != nil {
		t.Error("meta must be omitted unless requested")
	}
}

func TestGenerateBatchPlacementsForOutstandingUploads(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsOutput = candidateJSONL
	o := newTestOrchestrator(provider)

	req := testRequest(2)
	req.RequiredUploads = []models.RequiredUpload{{StepID: "step-upload-brand-logo", Role: "brand_logo"}}
	resp, err := o.GenerateBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.DeterministicPlacements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(resp.DeterministicPlacements))
	}
	if resp.DeterministicPlacements[0].Role != "brand_logo" {
		t.Errorf("unexpected placement: %+v", resp.DeterministicPlacements[0])
	}
}

type shoutLinter struct{}

func (shoutLinter) Lint(step models.Step) models.Step {
	step.Title = strings.ToUpper(step.Title)
	return step
}

func TestGenerateBatchAppliesLinter(t *testing.T) {
	provider := genai.NewMockProvider()
	provider.StepsOutput = candidateJSONL
	o := newTestOrchestrator(provider, WithLinter(shoutLinter{}))

	resp, err := o.GenerateBatch(context.Background(), testRequest(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.MiniSteps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(resp.MiniSteps))
	}
	if resp.MiniSteps[0].Title != strings.ToUpper(resp.MiniSteps[0].Question) {
		t.Errorf("linter not applied: %+v", resp.MiniSteps[0])
	}
}
