// Package store provides storage backends for form-instance defaults.
//
// This file implements the SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path to the
// database file; its directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetInstanceDefaults(ctx context.Context, instanceID string) (*InstanceDefaults, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT instance_id, context_json, required_uploads_json, updated_at
		FROM instance_defaults WHERE instance_id = ?`, instanceID)
	defaults, err := scanInstanceDefaults(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetInstanceDefaults failed", "error", err, "instanceID", instanceID)
		return nil, fmt.Errorf("failed to load defaults for %s: %w", instanceID, err)
	}
	slog.Debug("SQLiteStore GetInstanceDefaults succeeded", "instanceID", instanceID)
	return defaults, nil
}

func (s *SQLiteStore) SaveInstanceDefaults(ctx context.Context, defaults InstanceDefaults) error {
	contextJSON, uploadsJSON, err := encodeInstanceDefaults(defaults)
	if err != nil {
		slog.Error("SQLiteStore SaveInstanceDefaults marshal failed", "error", err, "instanceID", defaults.InstanceID)
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO instance_defaults (instance_id, context_json, required_uploads_json, updated_at)
		VALUES (?, ?, ?, ?)`,
		defaults.InstanceID, contextJSON, nilIfEmpty(uploadsJSON), time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore SaveInstanceDefaults failed", "error", err, "instanceID", defaults.InstanceID)
		return fmt.Errorf("failed to save defaults for %s: %w", defaults.InstanceID, err)
	}
	slog.Debug("SQLiteStore SaveInstanceDefaults succeeded", "instanceID", defaults.InstanceID)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
