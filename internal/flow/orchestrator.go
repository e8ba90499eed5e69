package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/formforge/FormForge/internal/genai"
	"github.com/formforge/FormForge/internal/models"
	"github.com/formforge/FormForge/internal/steps"
	"github.com/formforge/FormForge/internal/store"
	"github.com/formforge/FormForge/internal/util"
)

// DefaultSchemaVersion identifies the response wire format.
const DefaultSchemaVersion = "1.0"

// DefaultProviderTimeout bounds one generation call.
const DefaultProviderTimeout = 30 * time.Second

// Opts holds configuration options for the orchestrator.
type Opts struct {
	Store           store.Store
	Linter          CopyLinter
	SchemaVersion   string
	ProviderTimeout time.Duration
}

// Option configures the orchestrator.
type Option func(*Opts)

// WithStore supplies the instance-defaults store.
func WithStore(s store.Store) Option {
	return func(o *Opts) { o.Store = s }
}

// WithLinter supplies the copy linter applied to accepted steps.
func WithLinter(l CopyLinter) Option {
	return func(o *Opts) { o.Linter = l }
}

// WithSchemaVersion overrides the response schema version.
func WithSchemaVersion(v string) Option {
	return func(o *Opts) { o.SchemaVersion = v }
}

// WithProviderTimeout overrides the per-call generation timeout.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *Opts) { o.ProviderTimeout = d }
}

// Orchestrator runs one generation batch end to end: resolve context,
// consume the flow plan, call the generation provider, admit candidates,
// and assemble the response. Provider misbehavior of any kind degrades to
// fewer steps; only a structurally invalid request is an error.
type Orchestrator struct {
	provider genai.Provider
	plans    *PlanManager
	store    store.Store
	linter   CopyLinter
	schema   string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewOrchestrator builds an orchestrator around a generation provider and
// plan manager.
func NewOrchestrator(provider genai.Provider, plans *PlanManager, opts ...Option) *Orchestrator {
	cfg := Opts{
		Linter:          NoopLinter{},
		SchemaVersion:   DefaultSchemaVersion,
		ProviderTimeout: DefaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{
		provider: provider,
		plans:    plans,
		store:    cfg.Store,
		linter:   cfg.Linter,
		schema:   cfg.SchemaVersion,
		timeout:  cfg.ProviderTimeout,
		logger:   slog.Default().With("component", "orchestrator"),
	}
}

// GenerateBatch produces the next batch of steps for a session. The only
// error it returns is request validation failure.
func (o *Orchestrator) GenerateBatch(ctx context.Context, req models.NextStepsRequest) (models.NextStepsResponse, error) {
	if err := req.Validate(); err != nil {
		return models.NextStepsResponse{}, err
	}

	started := time.Now()
	requestID := util.GenerateRequestID()
	batch := req.CurrentBatch

	bundle, requiredUploads := o.resolveContext(ctx, req)

	payload := buildPayload(bundle, req.Session, batch, requiredUploads)
	plan := o.plans.EnsurePlan(ctx, req.SessionID, req.Session, batch, payload, requiredUploads)
	slice := o.plans.NextSlice(plan, req.Session.AskedStepIDs, batch.MaxSteps)
	payload.PlanSlice = slice

	raw := o.callProvider(ctx, payload)

	var planKeys []string
	for _, item := range slice {
		planKeys = append(planKeys, item.Key)
	}
	policyCfg := PolicyConfig{
		MaxSteps:        batch.MaxSteps,
		AllowedTypes:    batch.AllowedComponentTypes,
		AskedStepIDs:    req.Session.AskedStepIDs,
		Answers:         req.Session.Answers,
		RequiredUploads: requiredUploads,
		PlanKeys:        planKeys,
		Rigidity:        batch.EffectiveRigidity(),
	}

	result := admitCandidates(steps.DecodeCandidates(raw), policyCfg)
	if len(result.emitted) == 0 && raw != "" {
		// Some providers ignore the line-delimited instruction and emit one
		// JSON document; retry with a whole-output parse before giving up.
		whole := admitCandidates(steps.DecodeWhole(raw), policyCfg)
		if len(whole.emitted) > 0 || whole.candidates > result.candidates {
			result = whole
		}
	}

	for i, step := range result.emitted {
		result.emitted[i] = o.linter.Lint(step)
	}

	advanced := o.plans.Advance(plan, result.emitted)
	placements := ComputePlacements(requiredUploads, req.Session.Answers, result.emitted)
	state := o.plans.State(advanced, req.Session.SatietyCurrent, batch.SatietyTarget)

	resp := models.NextStepsResponse{
		RequestID:               requestID,
		SchemaVersion:           o.schema,
		MiniSteps:               result.emitted,
		FormPlan:                advanced,
		DeterministicPlacements: placements,
	}
	if req.IncludeMeta {
		resp.Meta = &models.BatchMeta{
			LatencyMs:      time.Since(started).Milliseconds(),
			CandidateCount: result.candidates,
			DroppedCount:   result.candidates - len(result.emitted),
			PlanState:      string(state),
			ProviderModel:  o.providerModel(),
			Cleanup:        result.cleanup,
			DropReasons:    result.dropReasons,
		}
	}

	o.logger.Info("Orchestrator.GenerateBatch: batch assembled",
		"requestID", requestID,
		"batchID", batch.BatchID,
		"emitted", len(result.emitted),
		"candidates", result.candidates,
		"planState", state,
		"latencyMs", time.Since(started).Milliseconds())
	return resp, nil
}

// resolveContext prefers the request's inline context bundle, falling back
// to stored instance defaults. Missing context is not an error; generation
// simply runs ungrounded.
func (o *Orchestrator) resolveContext(ctx context.Context, req models.NextStepsRequest) (*models.ContextBundle, []models.RequiredUpload) {
	bundle := req.Context
	uploads := req.RequiredUploads

	if (bundle == nil || len(uploads) == 0) && o.store != nil && req.InstanceID != "" {
		defaults, err := o.store.GetInstanceDefaults(ctx, req.InstanceID)
		if err != nil {
			o.logger.Warn("Orchestrator.resolveContext: defaults lookup failed", "error", err, "instanceID", req.InstanceID)
		} else if defaults != nil {
			if bundle == nil {
				ctxCopy := defaults.Context
				bundle = &ctxCopy
			}
			if len(uploads) == 0 {
				uploads = defaults.RequiredUploads
			}
		}
	}
	return bundle, uploads
}

// callProvider runs the generation call under the configured timeout.
// Any failure returns empty output so the batch degrades instead of erroring.
func (o *Orchestrator) callProvider(ctx context.Context, payload genai.ContextPayload) string {
	if o.provider == nil {
		return ""
	}
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raw, err := o.provider.GenerateSteps(callCtx, payload)
	if err != nil {
		o.logger.Warn("Orchestrator.callProvider: generation failed", "error", err)
		return ""
	}
	return raw
}

func (o *Orchestrator) providerModel() string {
	if o.provider == nil {
		return ""
	}
	return o.provider.Model()
}

func buildPayload(bundle *models.ContextBundle, session models.SessionState, batch models.BatchConstraint, uploads []models.RequiredUpload) genai.ContextPayload {
	payload := genai.ContextPayload{
		PersonalizationSummary: session.PersonalizationSummary,
		KnownAnswers:           session.Answers,
		AskedStepIDs:           session.AskedStepIDs,
		AllowedComponentTypes:  batch.AllowedComponentTypes,
		MaxSteps:               batch.MaxSteps,
		RequiredUploads:        uploads,
		SatietyCurrent:         session.SatietyCurrent,
		SatietyTarget:          batch.SatietyTarget,
	}
	if bundle != nil {
		payload.Industry = bundle.Industry
		payload.Service = bundle.Service
		payload.PlatformGoal = bundle.PlatformGoal
		payload.GroundingSummary = bundle.GroundingSummary
		payload.AnchorTerms = bundle.AnchorTerms
	}
	return payload
}

// admission aggregates one evaluation pass over decoded candidates.
type admission struct {
	emitted     []models.Step
	cleanup     []models.CleanupRecord
	dropReasons map[string]int
	candidates  int
}

// admitCandidates runs validation then policy over each candidate in order,
// stopping as soon as the batch budget fills.
func admitCandidates(candidates []map[string]any, cfg PolicyConfig) admission {
	validator := steps.NewValidator()
	policy := NewPolicyFilter(cfg)
	result := admission{dropReasons: make(map[string]int), candidates: len(candidates)}

	for _, raw := range candidates {
		if policy.Full() {
			break
		}
		step, cleanup, reject := validator.Validate(raw)
		if cleanup.StepID != "" || len(cleanup.DroppedOptions) > 0 || cleanup.FallbackApplied {
			result.cleanup = append(result.cleanup, cleanup)
		}
		if reject != steps.RejectNone {
			result.dropReasons[string(reject)]++
			continue
		}
		ok, drop := policy.Admit(step, cleanup.FallbackApplied)
		if !ok {
			result.dropReasons[string(drop)]++
			continue
		}
		result.emitted = append(result.emitted, step)
	}
	return result
}
