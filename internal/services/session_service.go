package services

import (
	"context"
	"errors"
	"fmt"

	"binderflow/backend/internal/repository"
	"binderflow/backend/pkg/models"
)

// ErrInvalidDocument is returned by Import for documents that do not decode
// into a valid session.
var ErrInvalidDocument = errors.New("invalid session document")

// SessionService is a service for managing workflow sessions.
type SessionService struct {
	store repository.SessionStore
}

// NewSessionService creates a new SessionService.
func NewSessionService(store repository.SessionStore) *SessionService {
	return &SessionService{store: store}
}

// Create starts and stores a new session.
func (s *SessionService) Create(ctx context.Context, projectName string) (*models.WorkflowSession, error) {
	session := models.NewSession(projectName)
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get retrieves a session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.WorkflowSession, error) {
	return s.store.GetSession(ctx, id)
}

// Save stores the current state of a session.
func (s *SessionService) Save(ctx context.Context, session *models.WorkflowSession) error {
	return s.store.SaveSession(ctx, session)
}

// List returns session summaries.
func (s *SessionService) List(ctx context.Context) ([]models.SessionSummary, error) {
	return s.store.ListSessions(ctx)
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteSession(ctx, id)
}

// Update loads a session, applies fn and saves the result. The session is not
// saved when fn fails.
func (s *SessionService) Update(ctx context.Context, id string, fn func(*models.WorkflowSession) error) (*models.WorkflowSession, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return session, err
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Export renders a stored session in the given format.
func (s *SessionService) Export(ctx context.Context, id string, format models.ExportFormat) ([]byte, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.Export(format)
}

// Import decodes and stores a session document, keeping its session ID.
func (s *SessionService) Import(ctx context.Context, format models.ExportFormat, data []byte) (*models.WorkflowSession, error) {
	session, err := models.Import(format, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
