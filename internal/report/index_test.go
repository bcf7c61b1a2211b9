package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/chebi/internal/domain"
)

func TestTermFromPath(t *testing.T) {
	assert.Equal(t, "caffeine", TermFromPath("/data/searches/caffeine_results.txt"))
	assert.Equal(t, "caffeine", TermFromPath("caffeine.txt"))
	assert.Equal(t, "green", TermFromPath("green_tea_hits"))
}

func TestIndex_CountsAndOrder(t *testing.T) {
	in := strings.Join([]string{
		"2 PMC1 extra tokens",
		"1 PMC1",
		"2 PMC2",
		"",
		"lonely",
		"2 PMC2",
	}, "\n")

	ct, err := Index("tea", strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, "tea", ct.Term)
	assert.Equal(t, []string{"2", "1"}, ct.Order)
	assert.Equal(t, map[string]int{"2": 3, "1": 1}, ct.Counts)
	assert.Len(t, ct.Publications["2"], 2)
	assert.Contains(t, ct.Publications["2"], "PMC2")
	assert.Equal(t, 1, ct.Malformed)
}

func TestIndexFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coffee_results.txt")
	require.NoError(t, os.WriteFile(path, []byte("10 PMC9\n10 PMC9\n"), 0644))

	ct, err := IndexFile(path)
	require.NoError(t, err)
	assert.Equal(t, "coffee", ct.Term)
	assert.Equal(t, 2, ct.Counts["10"])

	_, err = IndexFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResultFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_x.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_x.txt"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	files, err := ResultFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a_x.txt"), filepath.Join(dir, "b_x.txt")}, files)

	_, err = ResultFiles(filepath.Join(dir, "nope"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
