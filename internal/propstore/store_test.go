package propstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/chebi/internal/domain"
)

func TestRead_Missing(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Read(domain.Names)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	rows, err := s.ReadOrEmpty(domain.Names)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRead_SkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	content := "1\twater\nnot-a-row\n2\t-\r\n\n3\t  spaced  \n"
	require.NoError(t, os.WriteFile(s.Path(domain.Names), []byte(content), 0644))

	rows, err := s.Read(domain.Names)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "water", "2": "-", "3": "spaced"}, rows)
}

func TestLookup(t *testing.T) {
	s := New(t.TempDir())

	_, ok, err := s.Lookup(domain.Names, "1")
	require.NoError(t, err)
	assert.False(t, ok, "missing file")

	content := "10\tdecane\n1\twater\r\n2\t-\n"
	require.NoError(t, os.WriteFile(s.Path(domain.Names), []byte(content), 0644))

	v, ok, err := s.Lookup(domain.Names, "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "water", v)

	v, ok, err = s.Lookup(domain.Names, "2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "-", v)

	_, ok, err = s.Lookup(domain.Names, "3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppend_RoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "files"))

	n, err := s.Append(domain.Names, domain.Delta{{ID: "1", Value: "water"}, {ID: "2", Value: "ethanol"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// id 2 already stored, id 3 repeated inside the delta
	n, err = s.Append(domain.Names, domain.Delta{
		{ID: "2", Value: "changed"},
		{ID: "3", Value: "glucose"},
		{ID: "3", Value: "glucose again"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := s.Read(domain.Names)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "water", "2": "ethanol", "3": "glucose"}, rows)

	raw, err := os.ReadFile(s.Path(domain.Names))
	require.NoError(t, err)
	assert.Equal(t, "1\twater\n2\tethanol\n3\tglucose\n", string(raw))
}

func TestAppend_EmptyDeltaCreatesFile(t *testing.T) {
	s := New(t.TempDir())

	n, err := s.Append(domain.LogP, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.FileExists(t, s.Path(domain.LogP))
}

func TestAppend_CleansCells(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Append(domain.Names, domain.Delta{{ID: "1", Value: "a\tb\nc"}})
	require.NoError(t, err)

	rows, err := s.Read(domain.Names)
	require.NoError(t, err)
	assert.Equal(t, "a b c", rows["1"])
}

func TestRewrite_Idempotent(t *testing.T) {
	s := New(t.TempDir())
	records := domain.Delta{{ID: "1", Value: "18.015"}, {ID: "2", Value: "-"}}

	_, err := s.Append(domain.Mass, domain.Delta{{ID: "9", Value: "stale"}})
	require.NoError(t, err)
	require.NoError(t, s.Rewrite(domain.Mass, records))
	first, err := os.ReadFile(s.Path(domain.Mass))
	require.NoError(t, err)

	require.NoError(t, s.Rewrite(domain.Mass, records))
	second, err := os.ReadFile(s.Path(domain.Mass))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "1\t18.015\n2\t-\n", string(first))

	entries, err := os.ReadDir(filepath.Dir(s.Path(domain.Mass)))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestListEncoding(t *testing.T) {
	assert.Equal(t, "-", EncodeList(nil))
	assert.Equal(t, "33693,24431", EncodeList([]string{"33693", "24431"}))
	assert.Equal(t, []string{"33693", "24431"}, DecodeList("33693,24431"))
	assert.Nil(t, DecodeList("-"))
	assert.Nil(t, DecodeList(""))
}
