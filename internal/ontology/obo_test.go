package ontology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/chebi/internal/domain"
)

const sampleOBO = `format-version: 1.2
data-version: 231
ontology: chebi

[Term]
id: CHEBI:15377
name: water
def: "An oxygen hydride." []
property_value: http://purl.obolibrary.org/obo/chebi/formula "H2O" xsd:string
property_value: http://purl.obolibrary.org/obo/chebi/mass "18.01530" xsd:string
property_value: http://purl.obolibrary.org/obo/chebi/monoisotopicmass "18.01056" xsd:string
property_value: http://purl.obolibrary.org/obo/chebi/smiles "[H]O[H]" xsd:string
is_a: CHEBI:33693 ! oxygen hydride
relationship: has_role CHEBI:48360 ! amphiprotic solvent

[Term]
id: CHEBI:33693
name: oxygen hydride
is_a: CHEBI:24431

[Term]
id: CHEBI:24431
name: chemical entity

[Term]
id: CHEBI:99999
name: retired
is_a: CHEBI:24431
is_obsolete: true

[Typedef]
id: has_role
name: has role
`

func TestParseOBO(t *testing.T) {
	g, err := ParseOBO(strings.NewReader(sampleOBO))
	require.NoError(t, err)

	assert.Equal(t, domain.VersionTag("231"), g.DataVersion)
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 3, g.EdgeCount())

	ids := make([]domain.EntityID, 0, g.Len())
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []domain.EntityID{"CHEBI:15377", "CHEBI:33693", "CHEBI:24431"}, ids)

	water, ok := g.Node("CHEBI:15377")
	require.True(t, ok)
	assert.Equal(t, "water", water.Name)
	assert.Len(t, water.PropertyValues, 4)
	assert.Equal(t, []domain.EntityID{"CHEBI:33693"}, g.Parents("CHEBI:15377"))

	_, ok = g.Node("CHEBI:99999")
	assert.False(t, ok, "obsolete terms are skipped")
}

func TestParseOBO_Malformed(t *testing.T) {
	_, err := ParseOBO(strings.NewReader("[Term]\nid CHEBI 1\n"))
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestCompare(t *testing.T) {
	latest, err := ParseOBO(strings.NewReader(sampleOBO))
	require.NoError(t, err)
	old := NewGraph("230")
	old.AddNode(Node{ID: "CHEBI:24431"})

	s := Compare(latest, old)
	assert.Equal(t, Summary{NewNodes: 2, TotalNodes: 3, NewEdges: 3, TotalEdges: 3}, s)
	assert.Contains(t, s.String(), "2 new chemicals of 3 total chemicals")

	assert.Equal(t, 0, Compare(latest, nil).NewNodes)
}
