// Package store provides storage backends for form-instance defaults.
//
// Instance defaults supply the context bundle and required-upload list for
// requests that identify an instance without embedding its context. An
// in-memory store covers tests and single-process setups; SQLite and
// PostgreSQL back persistent deployments.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/formforge/FormForge/internal/models"
)

// InstanceDefaults is the stored per-instance configuration.
type InstanceDefaults struct {
	InstanceID      string                  `json:"instanceId"`
	Context         models.ContextBundle    `json:"context"`
	RequiredUploads []models.RequiredUpload `json:"requiredUploads,omitempty"`
	UpdatedAt       time.Time               `json:"updatedAt,omitempty"`
}

// Store is the persistence interface the engine consumes.
// GetInstanceDefaults returns (nil, nil) when the instance is unknown;
// a non-nil error means the backend itself failed.
type Store interface {
	GetInstanceDefaults(ctx context.Context, instanceID string) (*InstanceDefaults, error)
	SaveInstanceDefaults(ctx context.Context, defaults InstanceDefaults) error
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore keeps instance defaults in a map.
type InMemoryStore struct {
	mu       sync.RWMutex
	defaults map[string]InstanceDefaults
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{defaults: make(map[string]InstanceDefaults)}
}

func (s *InMemoryStore) GetInstanceDefaults(_ context.Context, instanceID string) (*InstanceDefaults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.defaults[instanceID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *InMemoryStore) SaveInstanceDefaults(_ context.Context, defaults InstanceDefaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defaults.UpdatedAt = time.Now().UTC()
	s.defaults[defaults.InstanceID] = defaults
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
