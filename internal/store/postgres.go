// Package store provides storage backends for form-instance defaults.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetInstanceDefaults(ctx context.Context, instanceID string) (*InstanceDefaults, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT instance_id, context_json, required_uploads_json, updated_at
		FROM instance_defaults WHERE instance_id = $1`, instanceID)
	defaults, err := scanInstanceDefaults(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetInstanceDefaults failed", "error", err, "instanceID", instanceID)
		return nil, fmt.Errorf("failed to load defaults for %s: %w", instanceID, err)
	}
	slog.Debug("PostgresStore GetInstanceDefaults succeeded", "instanceID", instanceID)
	return defaults, nil
}

func (s *PostgresStore) SaveInstanceDefaults(ctx context.Context, defaults InstanceDefaults) error {
	contextJSON, uploadsJSON, err := encodeInstanceDefaults(defaults)
	if err != nil {
		slog.Error("PostgresStore SaveInstanceDefaults marshal failed", "error", err, "instanceID", defaults.InstanceID)
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instance_defaults (instance_id, context_json, required_uploads_json, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (instance_id) DO UPDATE SET
			context_json = EXCLUDED.context_json,
			required_uploads_json = EXCLUDED.required_uploads_json,
			updated_at = EXCLUDED.updated_at`,
		defaults.InstanceID, contextJSON, nilIfEmpty(uploadsJSON), time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore SaveInstanceDefaults failed", "error", err, "instanceID", defaults.InstanceID)
		return fmt.Errorf("failed to save defaults for %s: %w", defaults.InstanceID, err)
	}
	slog.Debug("PostgresStore SaveInstanceDefaults succeeded", "instanceID", defaults.InstanceID)
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
