package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binderflow/backend/pkg/models"
)

func newSession(t *testing.T, name string) *models.WorkflowSession {
	t.Helper()
	s := models.NewSession(name)
	require.NoError(t, s.SetTargetInput(models.TargetInput{Sequence: "MKTAYIAKQRQISFVKSHFSRQ"}))
	return s
}

// exerciseSessionStore runs the behaviour shared by every Repository.
func exerciseSessionStore(t *testing.T, store Repository) {
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	t.Run("Save and Get", func(t *testing.T) {
		s := newSession(t, "alpha")
		require.NoError(t, store.SaveSession(ctx, s))

		got, err := store.GetSession(ctx, s.SessionID)
		require.NoError(t, err)
		assert.Equal(t, s.SessionID, got.SessionID)
		assert.Equal(t, s.Target.Sequence, got.Target.Sequence)
		assert.Equal(t, models.StageTargetStructure, got.CurrentStage)
		assert.Equal(t, models.StatusCompleted, got.StatusOf(models.StageTargetInput))
	})

	t.Run("Save replaces", func(t *testing.T) {
		s := newSession(t, "beta")
		require.NoError(t, store.SaveSession(ctx, s))
		s.Notes = "second revision"
		s.LastUpdated = s.LastUpdated.Add(time.Minute)
		require.NoError(t, store.SaveSession(ctx, s))

		got, err := store.GetSession(ctx, s.SessionID)
		require.NoError(t, err)
		assert.Equal(t, "second revision", got.Notes)
	})

	t.Run("Tenant scoping", func(t *testing.T) {
		acme := models.ContextWithTenant(ctx, "acme")
		s := newSession(t, "scoped")
		require.NoError(t, store.SaveSession(acme, s))
		assert.Equal(t, "acme", s.TenantID)

		_, err := store.GetSession(ctx, s.SessionID)
		assert.ErrorIs(t, err, ErrNotFound)

		list, err := store.ListSessions(acme)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "scoped", list[0].ProjectName)
	})

	t.Run("List and Delete", func(t *testing.T) {
		list, err := store.ListSessions(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
		assert.Equal(t, "beta", list[0].ProjectName)

		require.NoError(t, store.DeleteSession(ctx, list[0].SessionID))
		assert.ErrorIs(t, store.DeleteSession(ctx, list[0].SessionID), ErrNotFound)
		_, err = store.GetSession(ctx, list[0].SessionID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Tenants", func(t *testing.T) {
		_, err := store.GetTenantByDomain(ctx, "example.org")
		assert.ErrorIs(t, err, ErrNotFound)

		tenant := &models.Tenant{Name: "example.org", Domain: "example.org"}
		require.NoError(t, store.CreateTenant(ctx, tenant))
		assert.NotEmpty(t, tenant.ID)

		got, err := store.GetTenantByDomain(ctx, "example.org")
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, got.ID)
	})
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseSessionStore(t, store)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(ctx))

	_, err = Open(ctx, "mysql", "whatever")
	assert.ErrorContains(t, err, "unsupported db driver")
}
