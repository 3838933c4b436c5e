package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followup-tracker/internal/model"
	"followup-tracker/internal/repository"
)

func TestBoltSnapshotRepositoryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "tracker.db")

	repo, err := Open(path)
	require.NoError(t, err)

	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, repository.ErrSnapshotNotFound)

	received := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	state := model.NewTrackedState()
	state.Messages = append(state.Messages, model.NewTrackedMessage("msg_1", "Hi", "Gus", "gus@example.com", "", received, received))
	state.Weights.Senders["gus@example.com"] = 10
	require.NoError(t, repo.Save(ctx, state))
	require.NoError(t, repo.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	require.NoError(t, reopened.Delete(ctx))
	_, err = reopened.Load(ctx)
	assert.ErrorIs(t, err, repository.ErrSnapshotNotFound)
}

func TestBoltSnapshotRepositoryCorruptData(t *testing.T) {
	repo, err := Open(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.PutRaw([]byte("{broken")))

	_, err = repo.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrSnapshotNotFound)
}
