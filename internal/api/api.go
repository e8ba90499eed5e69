// Package api provides HTTP handlers and the main API server logic for
// FormForge.
//
// It exposes the batch generation endpoint plus read-only capabilities and
// health endpoints, wiring together the store, plan cache, generation
// provider, and flow orchestrator.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/formforge/FormForge/internal/flow"
	"github.com/formforge/FormForge/internal/genai"
	"github.com/formforge/FormForge/internal/plancache"
	"github.com/formforge/FormForge/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr            string
	SchemaVersion   string
	RedisURL        string
	PlanCacheTTL    time.Duration
	ProviderTimeout time.Duration
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSchemaVersion sets the response schema version.
func WithSchemaVersion(v string) Option {
	return func(o *Opts) { o.SchemaVersion = v }
}

// WithRedisURL enables the Redis-backed plan cache.
func WithRedisURL(url string) Option {
	return func(o *Opts) { o.RedisURL = url }
}

// WithPlanCacheTTL sets the plan cache entry lifetime.
func WithPlanCacheTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.PlanCacheTTL = ttl }
}

// WithProviderTimeout sets the per-call generation timeout.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *Opts) { o.ProviderTimeout = d }
}

// Server handles HTTP requests for batch generation.
type Server struct {
	orchestrator *flow.Orchestrator
	schema       string
}

// NewServer creates an API server around an orchestrator.
func NewServer(orchestrator *flow.Orchestrator, schemaVersion string) *Server {
	if schemaVersion == "" {
		schemaVersion = flow.DefaultSchemaVersion
	}
	return &Server{orchestrator: orchestrator, schema: schemaVersion}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/next-steps", s.nextStepsHandler)
	mux.HandleFunc("/api/v1/capabilities", s.capabilitiesHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run assembles the configured modules and serves the API. It blocks until
// the listener fails.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := Opts{
		Addr:          DefaultAddr,
		SchemaVersion: flow.DefaultSchemaVersion,
	}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	provider, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize generation client: %w", err)
	}

	cache, err := buildPlanCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize plan cache: %w", err)
	}

	flowOpts := []flow.Option{
		flow.WithStore(st),
		flow.WithSchemaVersion(cfg.SchemaVersion),
	}
	if cfg.ProviderTimeout > 0 {
		flowOpts = append(flowOpts, flow.WithProviderTimeout(cfg.ProviderTimeout))
	}
	orchestrator := flow.NewOrchestrator(provider, flow.NewPlanManager(provider, cache), flowOpts...)

	server := NewServer(orchestrator, cfg.SchemaVersion)
	slog.Info("Server.Run: FormForge API listening", "addr", cfg.Addr)
	return http.ListenAndServe(cfg.Addr, server.Handler())
}

// buildStore picks a persistent backend from the DSN when one is
// configured, falling back to the in-memory store.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("Server.buildStore: no DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		return store.NewPostgresStore(storeOpts...)
	}
	return store.NewSQLiteStore(storeOpts...)
}

func buildPlanCache(cfg Opts) (plancache.Cache, error) {
	ttl := plancache.ClampTTL(cfg.PlanCacheTTL)
	if cfg.RedisURL != "" {
		return plancache.NewRedisCache(cfg.RedisURL, ttl)
	}
	return plancache.NewMemoryCache(ttl), nil
}
