package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite" so callers can
// pick a backend from a single connection-string setting.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// encodeInstanceDefaults marshals the JSON columns of an InstanceDefaults row.
func encodeInstanceDefaults(d InstanceDefaults) (contextJSON, uploadsJSON string, err error) {
	ctxBytes, err := json.Marshal(d.Context)
	if err != nil {
		return "", "", fmt.Errorf("marshal context failed: %w", err)
	}
	contextJSON = string(ctxBytes)

	if len(d.RequiredUploads) > 0 {
		uploadBytes, err := json.Marshal(d.RequiredUploads)
		if err != nil {
			return "", "", fmt.Errorf("marshal required uploads failed: %w", err)
		}
		uploadsJSON = string(uploadBytes)
	}
	return contextJSON, uploadsJSON, nil
}

// scanInstanceDefaults scans an InstanceDefaults from a single sql.Row.
func scanInstanceDefaults(row *sql.Row) (*InstanceDefaults, error) {
	var d InstanceDefaults
	var contextJSON, uploadsJSON sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&d.InstanceID, &contextJSON, &uploadsJSON, &updatedAt); err != nil {
		return nil, err
	}
	if contextJSON.Valid && contextJSON.String != "" {
		if err := json.Unmarshal([]byte(contextJSON.String), &d.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context failed: %w", err)
		}
	}
	if uploadsJSON.Valid && uploadsJSON.String != "" {
		if err := json.Unmarshal([]byte(uploadsJSON.String), &d.RequiredUploads); err != nil {
			return nil, fmt.Errorf("unmarshal required uploads failed: %w", err)
		}
	}
	if updatedAt.Valid {
		d.UpdatedAt = updatedAt.Time
	}
	return &d, nil
}
