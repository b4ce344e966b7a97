package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"binderflow/backend/pkg/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tenants (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS workflow_sessions (
	id            TEXT NOT NULL,
	tenant_id     TEXT NOT NULL DEFAULT '',
	project_name  TEXT NOT NULL,
	current_stage TEXT NOT NULL,
	document      JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS workflow_sessions_updated_idx ON workflow_sessions (tenant_id, updated_at DESC);
`

// PostgresStore is a PostgreSQL implementation of the Repository interface.
// Sessions are stored as JSONB documents.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// SaveSession inserts or replaces a session.
func (s *PostgresStore) SaveSession(ctx context.Context, session *models.WorkflowSession) error {
	tenant := tenantScope(ctx)
	session.TenantID = tenant
	doc, err := session.ToJSON()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO workflow_sessions (id, tenant_id, project_name, current_stage, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			project_name = EXCLUDED.project_name,
			current_stage = EXCLUDED.current_stage,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`,
		session.SessionID, tenant, session.ProjectName, string(session.CurrentStage), doc, session.CreatedAt, session.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}
	return nil
}

// GetSession retrieves a session by its ID.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.WorkflowSession, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, "SELECT document FROM workflow_sessions WHERE tenant_id = $1 AND id = $2", tenantScope(ctx), id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.SessionFromJSON(doc)
}

// ListSessions returns session summaries, most recently updated first.
func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, project_name, current_stage, created_at, updated_at
		FROM workflow_sessions WHERE tenant_id = $1 ORDER BY updated_at DESC`, tenantScope(ctx))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.SessionSummary{}
	for rows.Next() {
		var sum models.SessionSummary
		var stage string
		if err := rows.Scan(&sum.SessionID, &sum.ProjectName, &stage, &sum.CreatedAt, &sum.LastUpdated); err != nil {
			return nil, err
		}
		sum.CurrentStage = models.WorkflowStage(stage)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteSession removes a session.
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM workflow_sessions WHERE tenant_id = $1 AND id = $2", tenantScope(ctx), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTenantByDomain looks up a tenant by email domain.
func (s *PostgresStore) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	var t models.Tenant
	var id uuid.UUID
	err := s.db.QueryRow(ctx, "SELECT id, name, domain, created_at, updated_at FROM tenants WHERE domain = $1", domain).
		Scan(&id, &t.Name, &t.Domain, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.ID = id.String()
	return &t, nil
}

// CreateTenant inserts a tenant, assigning its ID and timestamps.
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	return s.db.QueryRow(ctx,
		"INSERT INTO tenants (id, name, domain) VALUES ($1, $2, $3) RETURNING created_at, updated_at",
		tenant.ID, tenant.Name, tenant.Domain).Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
