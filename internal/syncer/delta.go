package syncer

import (
	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/ontology"
)

// NewNames returns the names of terms whose local id is not in existing,
// in graph order.
func NewNames(g *ontology.Graph, existing map[string]string) domain.Delta {
	var delta domain.Delta
	for _, n := range g.Nodes() {
		id := n.ID.LocalID()
		if _, ok := existing[id]; ok {
			continue
		}
		delta = append(delta, domain.Record{ID: id, Value: ontology.Name(n)})
	}
	return delta
}

// NewSmiles returns the SMILES of terms whose local id is not in existing,
// in graph order. Terms without a SMILES are left out.
func NewSmiles(g *ontology.Graph, existing map[string]string) domain.Delta {
	var delta domain.Delta
	for _, n := range g.Nodes() {
		id := n.ID.LocalID()
		if _, ok := existing[id]; ok {
			continue
		}
		if s := ontology.SMILES(n); s != "" {
			delta = append(delta, domain.Record{ID: id, Value: s})
		}
	}
	return delta
}
