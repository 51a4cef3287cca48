// Package storage provides the durable SQLite backend for the alert store.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/nightjar-io/nightjar/internal/models"
)

// SQLite persists alert records in a local SQLite database. It implements
// store.Backend.
type SQLite struct {
	path string
	db   *sql.DB
}

// NewSQLite creates a SQLite backend for the given database path.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

// Open initializes the database connection.
func (s *SQLite) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *SQLite) Migrate() error {
	return runMigrations(s.db)
}

// LoadAll returns every persisted alert across all tenants.
func (s *SQLite) LoadAll(ctx context.Context) ([]*models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, alert_id, trigger_id, ctime, severity, status,
			tags_json, lifecycle_json, evals_json
		FROM alerts
	`)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// SaveAlert inserts or replaces an alert record.
func (s *SQLite) SaveAlert(ctx context.Context, a *models.Alert) error {
	tagsJSON, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	lifecycleJSON, err := json.Marshal(a.Lifecycle)
	if err != nil {
		return fmt.Errorf("marshal lifecycle: %w", err)
	}
	evalsJSON, err := json.Marshal(a.EvalSets)
	if err != nil {
		return fmt.Errorf("marshal eval sets: %w", err)
	}

	query := `
		INSERT INTO alerts (tenant_id, alert_id, trigger_id, ctime, severity,
			status, tags_json, lifecycle_json, evals_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, alert_id) DO UPDATE SET
			severity = excluded.severity,
			status = excluded.status,
			tags_json = excluded.tags_json,
			lifecycle_json = excluded.lifecycle_json,
			evals_json = excluded.evals_json
	`
	_, err = s.db.ExecContext(ctx, query,
		a.TenantID, a.AlertID, a.TriggerID, a.Ctime, a.Severity,
		a.Status, string(tagsJSON), string(lifecycleJSON), string(evalsJSON),
	)
	if err != nil {
		return fmt.Errorf("save alert: %w", err)
	}
	return nil
}

// DeleteAlert removes an alert record. Missing records are not an error.
func (s *SQLite) DeleteAlert(ctx context.Context, tenantID, alertID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM alerts WHERE tenant_id = ? AND alert_id = ?",
		tenantID, alertID,
	)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return nil
}

func scanAlert(rows *sql.Rows) (*models.Alert, error) {
	var a models.Alert
	var tagsJSON, lifecycleJSON, evalsJSON string

	err := rows.Scan(&a.TenantID, &a.AlertID, &a.TriggerID, &a.Ctime,
		&a.Severity, &a.Status, &tagsJSON, &lifecycleJSON, &evalsJSON)
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags for %s: %w", a.AlertID, err)
	}
	if err := json.Unmarshal([]byte(lifecycleJSON), &a.Lifecycle); err != nil {
		return nil, fmt.Errorf("unmarshal lifecycle for %s: %w", a.AlertID, err)
	}
	if err := json.Unmarshal([]byte(evalsJSON), &a.EvalSets); err != nil {
		return nil, fmt.Errorf("unmarshal eval sets for %s: %w", a.AlertID, err)
	}
	return &a, nil
}
