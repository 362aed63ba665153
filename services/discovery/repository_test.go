package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryCreate(t *testing.T) {
	repo, err := NewMemoryRepository(t.TempDir())
	require.NoError(t, err)

	d, err := repo.Create(context.Background(), Discovery{Status: StatusAccepted})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, d.ID)
	require.False(t, d.CreatedTimestamp.IsZero())
	require.DirExists(t, d.OutputDir)
}

func TestMemoryRepositorySaveStatus(t *testing.T) {
	repo, err := NewMemoryRepository(t.TempDir())
	require.NoError(t, err)

	d, err := repo.Create(context.Background(), Discovery{Status: StatusAccepted})
	require.NoError(t, err)

	require.NoError(t, repo.SaveStatus(context.Background(), d.ID, StatusPending, nil))
	require.NoError(t, repo.SaveStatus(context.Background(), d.ID, StatusRunning, nil))

	got, err := repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, got.Status)
	require.NotNil(t, got.StartedTimestamp)
	require.Nil(t, got.FinishedTimestamp)

	// backwards transitions are rejected without mutating the record
	err = repo.SaveStatus(context.Background(), d.ID, StatusPending, nil)
	require.ErrorIs(t, err, ErrStaleTransition)

	url := "http://localhost:8080/v1/discoveries/x/results.tar.gz"
	require.NoError(t, repo.SaveStatus(context.Background(), d.ID, StatusSucceeded, &url))

	got, err = repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, got.Status)
	require.NotNil(t, got.FinishedTimestamp)
	require.NotNil(t, got.ArchiveURL)
	require.Equal(t, url, *got.ArchiveURL)

	// duplicate completion loses the conditional update
	err = repo.SaveStatus(context.Background(), d.ID, StatusFailed, nil)
	require.ErrorIs(t, err, ErrStaleTransition)

	// expiry revokes the archive URL
	require.NoError(t, repo.SaveStatus(context.Background(), d.ID, StatusExpired, nil))
	got, err = repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Nil(t, got.ArchiveURL)

	err = repo.SaveStatus(context.Background(), uuid.New(), StatusRunning, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryDeleteAll(t *testing.T) {
	repo, err := NewMemoryRepository(t.TempDir())
	require.NoError(t, err)

	for range 3 {
		_, err := repo.Create(context.Background(), Discovery{Status: StatusAccepted})
		require.NoError(t, err)
	}

	count, err := repo.DeleteAll(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestStatusUpdates(t *testing.T) {
	now := time.Now().UTC()
	url := "http://example.com/a.tar.gz"

	updates := statusUpdates(StatusRunning, nil, now)
	require.Equal(t, "running", updates["status"])
	require.Equal(t, now, updates["started_timestamp"])

	updates = statusUpdates(StatusSucceeded, &url, now)
	require.Equal(t, now, updates["finished_timestamp"])
	require.Equal(t, url, updates["archive_url"])

	updates = statusUpdates(StatusExpired, nil, now)
	require.Contains(t, updates, "archive_url")
	require.Nil(t, updates["archive_url"])
}
