package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/propstore"
	"github.com/pbaille/chebi/internal/store"
)

type fixture struct {
	history *store.Store
	props   *propstore.Store
	version *propstore.VersionFile
	srv     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	history, err := store.New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	f := &fixture{
		history: history,
		props:   propstore.New(dir),
		version: propstore.NewVersionFile(filepath.Join(dir, "ontology_version.txt")),
	}
	f.srv = httptest.NewServer(New(f.history, f.props, f.version, "").Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, f.get(t, "/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	var empty StatusResponse
	assert.Equal(t, http.StatusOK, f.get(t, "/status", &empty))
	assert.Equal(t, domain.VersionTag(""), empty.LocalVersion)
	assert.Nil(t, empty.LastSynced)

	require.NoError(t, f.version.Write("231"))
	run, err := f.history.StartRun("230")
	require.NoError(t, err)
	run.NewVersion, run.State = "231", domain.StateSynced
	require.NoError(t, f.history.FinishRun(run))

	var got StatusResponse
	assert.Equal(t, http.StatusOK, f.get(t, "/status", &got))
	assert.Equal(t, domain.VersionTag("231"), got.LocalVersion)
	require.NotNil(t, got.LastSynced)
	assert.Equal(t, run.ID, got.LastSynced.ID)
}

func TestRuns(t *testing.T) {
	f := newFixture(t)
	for _, v := range []domain.VersionTag{"228", "229", "230"} {
		_, err := f.history.StartRun(v)
		require.NoError(t, err)
	}

	var body struct {
		Runs  []domain.SyncRun `json:"runs"`
		Limit int              `json:"limit"`
	}
	assert.Equal(t, http.StatusOK, f.get(t, "/runs?limit=2", &body))
	assert.Equal(t, 2, body.Limit)
	require.Len(t, body.Runs, 2)
	assert.Equal(t, domain.VersionTag("230"), body.Runs[0].OldVersion)

	var run domain.SyncRun
	assert.Equal(t, http.StatusOK, f.get(t, "/runs/"+body.Runs[1].ID, &run))
	assert.Equal(t, domain.VersionTag("229"), run.OldVersion)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/runs/nope", nil))
}

func TestEntity(t *testing.T) {
	f := newFixture(t)
	_, err := f.props.Append(domain.Names, domain.Delta{{ID: "15377", Value: "water"}})
	require.NoError(t, err)
	require.NoError(t, f.props.Rewrite(domain.Mass, domain.Delta{{ID: "15377", Value: "18.01530"}}))
	require.NoError(t, f.props.Rewrite(domain.Superterms, domain.Delta{{ID: "15377", Value: "33579,24431"}}))

	var got EntityResponse
	assert.Equal(t, http.StatusOK, f.get(t, "/entities/CHEBI:15377", &got))
	assert.Equal(t, "15377", got.ID)
	assert.Equal(t, "water", got.Properties["Names"])
	assert.Equal(t, "18.01530", got.Properties["Mass"])
	assert.NotContains(t, got.Properties, "logP")
	assert.Equal(t, []string{"33579", "24431"}, got.Superterms)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/entities/1", nil))
}
