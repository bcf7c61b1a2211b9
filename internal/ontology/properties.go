package ontology

import (
	"strings"

	"github.com/pbaille/chebi/internal/domain"
)

// quoted returns the first double-quoted field of a property_value string.
func quoted(s string) (string, bool) {
	parts := strings.Split(s, `"`)
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}

// Mass returns the average mass of a term, or the sentinel. Monoisotopic
// mass values are ignored. When several values match, the last one wins.
func Mass(n *Node) string {
	mass := domain.Sentinel
	for _, pv := range n.PropertyValues {
		if !strings.Contains(pv, "mass") || strings.Contains(pv, "monoisotopicmass") {
			continue
		}
		if v, ok := quoted(pv); ok {
			mass = v
		}
	}
	return mass
}

// SMILES returns the structural descriptor of a term, or "" if it has none.
func SMILES(n *Node) string {
	smiles := ""
	for _, pv := range n.PropertyValues {
		if !strings.Contains(pv, "smile") {
			continue
		}
		if v, ok := quoted(pv); ok {
			smiles = v
		}
	}
	return smiles
}

// Name returns the term name, or the sentinel when the release has none.
func Name(n *Node) string {
	if n.Name == "" {
		return domain.Sentinel
	}
	return n.Name
}
