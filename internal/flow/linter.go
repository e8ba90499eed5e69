package flow

import "github.com/formforge/FormForge/internal/models"

// CopyLinter rewrites the user-facing text of accepted steps before they
// are returned. Implementations must be pure with respect to step identity:
// ids, types, and option values are already final when the linter runs.
type CopyLinter interface {
	Lint(step models.Step) models.Step
}

// NoopLinter passes steps through unchanged; it is the default.
type NoopLinter struct{}

func (NoopLinter) Lint(step models.Step) models.Step { return step }
