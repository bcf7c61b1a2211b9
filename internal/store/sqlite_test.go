package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/chebi/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "files", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)

	run, err := s.StartRun("230")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	run.NewVersion = "231"
	run.State = domain.StateSynced
	run.NodeDelta = 12
	run.EdgeDelta = 30
	run.NewNames = 12
	run.NewSmiles = 9
	run.PredictionErrors = 1
	require.NoError(t, s.FinishRun(run))

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VersionTag("230"), got.OldVersion)
	assert.Equal(t, domain.VersionTag("231"), got.NewVersion)
	assert.Equal(t, domain.StateSynced, got.State)
	assert.Equal(t, 12, got.NodeDelta)
	assert.Equal(t, 1, got.PredictionErrors)
	require.NotNil(t, got.FinishedAt)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)

	var ids []string
	for _, v := range []domain.VersionTag{"228", "229", "230"} {
		run, err := s.StartRun(v)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Nil(t, runs[0].FinishedAt)
}

func TestLastSynced(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LastSynced()
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := s.StartRun("230")
	require.NoError(t, err)
	ok.State, ok.NewVersion = domain.StateSynced, "231"
	require.NoError(t, s.FinishRun(ok))

	failed, err := s.StartRun("231")
	require.NoError(t, err)
	failed.State, failed.Error = domain.StateFailed, "boom"
	require.NoError(t, s.FinishRun(failed))

	last, err := s.LastSynced()
	require.NoError(t, err)
	assert.Equal(t, ok.ID, last.ID)
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.FinishRun(&domain.SyncRun{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
