package genai

import (
	"context"

	"github.com/formforge/FormForge/internal/models"
)

// MockProvider is a Provider used by tests and local development. It
// replays canned output and records the payloads it was called with.
type MockProvider struct {
	StepsOutput string
	StepsErr    error
	PlanItems   []models.FlowPlanItem
	PlanErr     error

	GenerateCalls []ContextPayload
	PlanCalls     []ContextPayload
}

// NewMockProvider creates an empty mock; configure the fields directly.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// GenerateSteps returns the canned raw output.
func (m *MockProvider) GenerateSteps(_ context.Context, payload ContextPayload) (string, error) {
	m.GenerateCalls = append(m.GenerateCalls, payload)
	if m.StepsErr != nil {
		return "", m.StepsErr
	}
	return m.StepsOutput, nil
}

// PlanBacklog returns the canned plan items.
func (m *MockProvider) PlanBacklog(_ context.Context, payload ContextPayload) ([]models.FlowPlanItem, error) {
	m.PlanCalls = append(m.PlanCalls, payload)
	if m.PlanErr != nil {
		return nil, m.PlanErr
	}
	items := make([]models.FlowPlanItem, len(m.PlanItems))
	copy(items, m.PlanItems)
	return items, nil
}

// Model reports a stable fake model name.
func (m *MockProvider) Model() string {
	return "mock"
}
