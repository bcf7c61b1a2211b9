package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/chebi/internal/domain"
)

func TestParseInputType(t *testing.T) {
	got, err := ParseInputType("file")
	require.NoError(t, err)
	assert.Equal(t, InputFile, got)

	got, err = ParseInputType("folder")
	require.NoError(t, err)
	assert.Equal(t, InputFolder, got)

	_, err = ParseInputType("dir")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.EqualError(t, err, "please give 'file' or 'folder' as input type")
}
