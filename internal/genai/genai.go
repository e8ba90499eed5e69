// Package genai provides the generation provider boundary using the OpenAI API.
//
// The engine treats everything returned from here as untrusted text; all
// structural guarantees live in the steps and flow packages.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/formforge/FormForge/internal/models"
	"github.com/formforge/FormForge/internal/steps"
)

// ContextPayload carries everything the provider may ground a batch on.
// It is serialized to compact JSON for the model.
type ContextPayload struct {
	Industry               string                  `json:"industry,omitempty"`
	Service                string                  `json:"service,omitempty"`
	PlatformGoal           string                  `json:"platformGoal,omitempty"`
	GroundingSummary       string                  `json:"groundingSummary,omitempty"`
	AnchorTerms            []string                `json:"anchorTerms,omitempty"`
	PersonalizationSummary string                  `json:"personalizationSummary,omitempty"`
	KnownAnswers           map[string]any          `json:"knownAnswers,omitempty"`
	AskedStepIDs           []string                `json:"askedStepIds,omitempty"`
	AllowedComponentTypes  []string                `json:"allowedComponentTypes,omitempty"`
	MaxSteps               int                     `json:"maxSteps,omitempty"`
	PlanSlice              []models.FlowPlanItem   `json:"planSlice,omitempty"`
	RequiredUploads        []models.RequiredUpload `json:"requiredUploads,omitempty"`
	SatietyCurrent         float64                 `json:"satietyCurrent,omitempty"`
	SatietyTarget          float64                 `json:"satietyTarget,omitempty"`
}

// Provider is the generation boundary the orchestrator depends on.
// GenerateSteps returns raw text expected (not guaranteed) to be one
// JSON candidate per line. PlanBacklog is used only when a session's
// flow plan is first created.
type Provider interface {
	GenerateSteps(ctx context.Context, payload ContextPayload) (string, error)
	PlanBacklog(ctx context.Context, payload ContextPayload) ([]models.FlowPlanItem, error)
	Model() string
}

// chatService defines the minimal interface for chat completions,
// allowing tests to substitute the OpenAI client.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat        chatService
	model       openai.ChatModel
	temperature float64
	maxTokens   int64
}

// Opts holds Client configuration.
type Opts struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Option configures the Client.
type Option func(*Opts)

// WithAPIKey overrides the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// WithMaxTokens bounds the completion size.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// NewClient initializes a new generation client. The API key falls back
// to the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Temperature: 0.7, MaxTokens: 2000}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := openai.ChatModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	svc := cli.Chat.Completions
	slog.Debug("genai.NewClient: created client", "model", model)
	return &Client{chat: &svc, model: model, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

// Model reports the configured chat model.
func (c *Client) Model() string {
	return string(c.model)
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// compactJSON is the stable serialization sent to the model; Go's
// encoder already sorts map keys so equal payloads produce equal text.
func compactJSON(payload ContextPayload) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// GenerateSteps asks the model for the batch's candidate steps as JSON
// Lines. The raw text is returned untouched.
func (c *Client) GenerateSteps(ctx context.Context, payload ContextPayload) (string, error) {
	slog.Debug("Client.GenerateSteps: requesting candidates", "maxSteps", payload.MaxSteps, "planSliceLen", len(payload.PlanSlice))
	out, err := c.complete(ctx, stepsSystemPrompt, compactJSON(payload))
	if err != nil {
		slog.Error("Client.GenerateSteps: provider call failed", "error", err)
		return "", fmt.Errorf("generate steps: %w", err)
	}
	return out, nil
}

// PlanBacklog asks the model for the session's ordered question backlog.
// The response is parsed best-effort; keys are normalized and deduped,
// everything else about the items is passed through for the plan manager
// to order and store.
func (c *Client) PlanBacklog(ctx context.Context, payload ContextPayload) ([]models.FlowPlanItem, error) {
	slog.Debug("Client.PlanBacklog: requesting backlog plan", "maxSteps", payload.MaxSteps)
	out, err := c.complete(ctx, planSystemPrompt, compactJSON(payload))
	if err != nil {
		slog.Error("Client.PlanBacklog: provider call failed", "error", err)
		return nil, fmt.Errorf("plan backlog: %w", err)
	}
	return ParsePlanItems(out), nil
}

// ParsePlanItems extracts flow plan items from raw planning output.
// Tolerates a bare array or an envelope object; items without a usable
// key are dropped, later duplicates lose.
func ParsePlanItems(raw string) []models.FlowPlanItem {
	parsed, ok := steps.BestEffortJSON(raw)
	if !ok {
		return nil
	}
	var list []any
	switch v := parsed.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"plan", "question_keys", "items"} {
			if l, ok := v[key].([]any); ok {
				list = l
				break
			}
		}
	}
	out := make([]models.FlowPlanItem, 0, len(list))
	seen := make(map[string]struct{})
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		data, err := json.Marshal(m)
		if err != nil {
			continue
		}
		var item models.FlowPlanItem
		if err := json.Unmarshal(data, &item); err != nil {
			continue
		}
		item.Key = steps.NormalizePlanKey(item.Key)
		if item.Key == "" {
			continue
		}
		if _, dup := seen[item.Key]; dup {
			continue
		}
		seen[item.Key] = struct{}{}
		out = append(out, item)
	}
	return out
}
