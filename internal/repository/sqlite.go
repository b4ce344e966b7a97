package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"binderflow/backend/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tenants (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS workflow_sessions (
	id            TEXT NOT NULL,
	tenant_id     TEXT NOT NULL DEFAULT '',
	project_name  TEXT NOT NULL,
	current_stage TEXT NOT NULL,
	document      TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS workflow_sessions_updated_idx ON workflow_sessions (tenant_id, updated_at DESC);
`

// SQLiteStore is a file-backed implementation of the Repository interface
// for local runs.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveSession inserts or replaces a session.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *models.WorkflowSession) error {
	tenant := tenantScope(ctx)
	session.TenantID = tenant
	doc, err := session.ToJSON()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_sessions (id, tenant_id, project_name, current_stage, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			project_name = excluded.project_name,
			current_stage = excluded.current_stage,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		session.SessionID, tenant, session.ProjectName, string(session.CurrentStage), string(doc),
		session.CreatedAt.UTC(), session.LastUpdated.UTC())
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}
	return nil
}

// GetSession retrieves a session by its ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.WorkflowSession, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM workflow_sessions WHERE tenant_id = ? AND id = ?", tenantScope(ctx), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.SessionFromJSON([]byte(doc))
}

// ListSessions returns session summaries, most recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_name, current_stage, created_at, updated_at
		FROM workflow_sessions WHERE tenant_id = ? ORDER BY updated_at DESC`, tenantScope(ctx))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.SessionSummary{}
	for rows.Next() {
		var sum models.SessionSummary
		var stage string
		var created, updated time.Time
		if err := rows.Scan(&sum.SessionID, &sum.ProjectName, &stage, &created, &updated); err != nil {
			return nil, err
		}
		sum.CurrentStage = models.WorkflowStage(stage)
		sum.CreatedAt = created.UTC()
		sum.LastUpdated = updated.UTC()
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM workflow_sessions WHERE tenant_id = ? AND id = ?", tenantScope(ctx), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTenantByDomain looks up a tenant by email domain.
func (s *SQLiteStore) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRowContext(ctx, "SELECT id, name, domain, created_at, updated_at FROM tenants WHERE domain = ?", domain).
		Scan(&t.ID, &t.Name, &t.Domain, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTenant inserts a tenant, assigning its ID and timestamps.
func (s *SQLiteStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	ts := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, "INSERT INTO tenants (id, name, domain, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		tenant.ID, tenant.Name, tenant.Domain, ts, ts); err != nil {
		return err
	}
	tenant.CreatedAt, tenant.UpdatedAt = ts, ts
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
