package alarm

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// newTestRepository opens a repository backed by a throwaway database file.
func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "alarms.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, repo.Close())
	})

	return repo
}

// TestCreateAndList verifies that a created alarm comes back active and unfired.
func TestCreateAndList(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	scheduledAt := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	created, err := repo.Create(ctx, "Wake up", scheduledAt)
	require.NoError(t, err)
	require.Positive(t, created.ID)
	require.True(t, created.IsActive)
	require.Nil(t, created.FiredAt)

	alarms, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	require.Equal(t, created.ID, alarms[0].ID)
	require.Equal(t, "Wake up", alarms[0].Title)
	require.Equal(t, scheduledAt, alarms[0].ScheduledAt)
	require.True(t, alarms[0].IsActive)
	require.Nil(t, alarms[0].FiredAt)
}

// TestCreate_RejectsEmptyTitle guards the non-empty title invariant at the store.
func TestCreate_RejectsEmptyTitle(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	_, err := repo.Create(context.Background(), "", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrEmptyTitle)
}

// TestGetByID covers lookup of present and absent rows.
func TestGetByID(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Meeting", time.Now().Add(time.Hour))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Meeting", got.Title)

	_, err = repo.GetByID(ctx, created.ID+1000)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// TestDelete verifies removal and the NotFound result for unknown ids.
func TestDelete(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Doomed", time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	require.ErrorIs(t, repo.Delete(ctx, created.ID), domain.ErrNotFound)

	// The row must not reappear.
	alarms, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, alarms)
}

// TestUpdateActive toggles the flag both ways and checks the NotFound path.
func TestUpdateActive(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Nap", time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateActive(ctx, created.ID, false))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.Equal(t, domain.StatusCancelled, got.Status(false))

	require.NoError(t, repo.UpdateActive(ctx, created.ID, true))

	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)

	require.ErrorIs(t, repo.UpdateActive(ctx, created.ID+1000, true), domain.ErrNotFound)
}

// TestUpdateFired verifies the set-exactly-once guard and error mapping.
func TestUpdateFired(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Ring", time.Now().Add(time.Hour))
	require.NoError(t, err)

	firedAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.UpdateFired(ctx, created.ID, firedAt))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FiredAt)
	require.Equal(t, firedAt, *got.FiredAt)
	require.Equal(t, domain.StatusFired, got.Status(false))

	// A second write must not move the firing instant.
	require.ErrorIs(t, repo.UpdateFired(ctx, created.ID, firedAt.Add(time.Minute)), domain.ErrAlreadyFired)

	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, firedAt, *got.FiredAt)

	// Deleted rows surface NotFound, which the fire path treats as benign.
	require.ErrorIs(t, repo.UpdateFired(ctx, created.ID+1000, firedAt), domain.ErrNotFound)
}

// TestCreate_SurvivesReopen verifies rows persist across repository restarts.
func TestCreate_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alarms.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(ctx, path)
	require.NoError(t, err)

	created, err := repo.Create(ctx, "Persistent", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(ctx, path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	got, err := reopened.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Persistent", got.Title)
}
