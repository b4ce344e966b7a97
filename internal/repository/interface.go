package repository

import (
	"context"
	"errors"

	"binderflow/backend/pkg/models"
)

// ErrNotFound is returned when a session or tenant does not exist in the
// caller's scope.
var ErrNotFound = errors.New("not found")

// SessionStore persists workflow sessions. Every call is scoped to the tenant
// carried by ctx (models.ContextWithTenant); without one, the unscoped local
// namespace is used.
type SessionStore interface {
	// SaveSession inserts or replaces a session.
	SaveSession(ctx context.Context, session *models.WorkflowSession) error
	// GetSession retrieves a session by its ID.
	GetSession(ctx context.Context, id string) (*models.WorkflowSession, error)
	// ListSessions returns summaries, most recently updated first.
	ListSessions(ctx context.Context) ([]models.SessionSummary, error)
	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, id string) error
}

// TenantStore resolves and provisions tenants.
type TenantStore interface {
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
}

// Repository is the full persistence surface used by the server.
type Repository interface {
	SessionStore
	TenantStore
	Ping(ctx context.Context) error
	Close() error
}

func tenantScope(ctx context.Context) string {
	id, _ := models.TenantFromContext(ctx)
	return id
}
