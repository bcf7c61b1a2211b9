package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/propstore"
)

func sampleProps() Properties {
	return Properties{
		domain.Names:      {"1": "water", "2": "ethanol", "3": "caffeine"},
		domain.Mass:       {"1": "18.015", "2": "-", "3": "194.19"},
		domain.LogP:       {"1": "-0.5", "2": "-0.3", "3": "-0.1"},
		domain.Superterms: {"1": "-", "2": "5", "3": "5,6"},
	}
}

func TestAssemble_DropsIncomplete(t *testing.T) {
	ct := newCountTable("tea")
	ct.Add("3", "P1")
	ct.Add("1", "P1")
	ct.Add("2", "P2")
	ct.Add("3", "P2")
	scores := map[string]int64{"1": 4, "2": 7, "3": 9}

	rows, failed := Assemble(ct, scores, sampleProps())

	assert.Equal(t, 1, failed)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{ID: "3", Count: 2, Score: 9, Name: "caffeine", Mass: "194.19", LogP: "-0.1", Superterms: []string{"5", "6"}}, rows[0])
	assert.Equal(t, "1", rows[1].ID)
	assert.Empty(t, rows[1].Superterms)
}

func TestAssemble_MissingStoreEntry(t *testing.T) {
	ct := newCountTable("tea")
	ct.Add("1", "P1")
	ct.Add("4", "P1")
	props := sampleProps()
	delete(props, domain.LogP)

	rows, failed := Assemble(ct, map[string]int64{"1": 1, "4": 1}, props)
	assert.Empty(t, rows)
	assert.Equal(t, 2, failed)
}

func TestWriteTable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tables")
	rows := []Row{
		{ID: "3", Count: 2, Score: 9, Name: "caffeine", Mass: "194.19", LogP: "-0.1", Superterms: []string{"5", "6"}},
		{ID: "1", Count: 1, Score: -2, Name: "water", Mass: "18.015", LogP: "-0.5"},
	}

	path, err := WriteTable(dir, "tea", rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tea_table.tsv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3\t2\t9\tcaffeine\t194.19\t-0.1\t5\t6\n1\t1\t-2\twater\t18.015\t-0.5\n", string(data))
}

func TestLoadProperties(t *testing.T) {
	store := propstore.New(t.TempDir())
	_, err := store.Append(domain.Names, domain.Delta{{ID: "1", Value: "water"}})
	require.NoError(t, err)

	props, err := LoadProperties(store, TableKinds...)
	require.NoError(t, err)
	assert.Equal(t, "water", props[domain.Names]["1"])
	assert.Empty(t, props[domain.Mass])
}

func TestGenerator_GenerateAll(t *testing.T) {
	root := t.TempDir()
	searches := filepath.Join(root, "searches")
	require.NoError(t, os.Mkdir(searches, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(searches, "tea_results.txt"), []byte("1 P1\n3 P1\n3 P2\n2 P2\n"), 0644))

	corpus := NewCorpus()
	for _, p := range []string{"P1", "P2", "P3", "P4", "P5"} {
		corpus.Universe[p] = struct{}{}
	}

	g := &Generator{Corpus: corpus, Props: sampleProps(), TablesDir: filepath.Join(root, "tables")}
	results, err := g.GenerateAll(searches)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tea", results[0].Term)
	assert.Equal(t, 2, results[0].Rows)
	assert.Equal(t, 1, results[0].Failed)
	assert.FileExists(t, results[0].Path)
}
