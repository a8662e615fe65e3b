package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailcheck/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResults() []model.Result {
	ok := model.SuccessResult("alice@gmail.com", model.AuthAppPassword, 12, 3, 2*time.Second)
	ok.Position = 0
	ok.Note = "sent folder not found"

	bad := model.FailureResult("bob@gmail.com", model.AuthOAuth2, "no stored token", time.Second)
	bad.Position = 1

	return []model.Result{ok, bad}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	startedAt := time.Now().Add(-time.Minute)
	runID, err := store.SaveRun(ctx, startedAt, sampleResults())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Total)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)

	results, err := store.RunResults(ctx, runID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "alice@gmail.com", results[0].Email)
	assert.Equal(t, 12, results[0].InboxCount)
	assert.Equal(t, "sent folder not found", results[0].Note)
	assert.Equal(t, 2*time.Second, results[0].Elapsed)

	assert.Equal(t, model.ResultFailed, results[1].Status)
	assert.Equal(t, "no stored token", results[1].ErrorMessage)
}

func TestRecentRuns_NewestFirstAndLimited(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.SaveRun(ctx, time.Now(), sampleResults())
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond)
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestRunResults_UnknownRunIsEmpty(t *testing.T) {
	store := openTestStore(t)

	results, err := store.RunResults(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(path)
	require.NoError(t, err)
	runID, err := store.SaveRun(context.Background(), time.Now(), sampleResults())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Migrations must be idempotent on an already-migrated file.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
}
