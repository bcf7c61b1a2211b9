package ontology

import (
	"fmt"

	"github.com/pbaille/chebi/internal/domain"
)

// Ancestors returns the local ids of every is_a ancestor of id, level by level.
//
// Each level holds the distinct parents of the previous level, in discovery
// order. Deduplication is per level only, so a term reachable at two depths
// appears once per depth: A->B, A->D, B->D yields [B D D]. A diamond
// A->B, A->C, B->D, C->D yields [B C D] since both paths reach D on the same level.
//
// A path longer than the number of distinct terms seen must repeat a term,
// which is reported as domain.ErrCycle instead of looping forever.
func (g *Graph) Ancestors(id domain.EntityID) ([]string, error) {
	var out []string
	frontier := []domain.EntityID{id}
	seen := map[domain.EntityID]struct{}{id: {}}

	for level := 1; ; level++ {
		var next []domain.EntityID
		inLevel := make(map[domain.EntityID]struct{})
		for _, n := range frontier {
			for _, p := range g.parents[n] {
				if _, dup := inLevel[p]; dup {
					continue
				}
				inLevel[p] = struct{}{}
				next = append(next, p)
			}
		}
		if len(next) == 0 {
			return out, nil
		}

		for _, p := range next {
			out = append(out, p.LocalID())
			seen[p] = struct{}{}
		}
		if level+1 > len(seen) {
			return nil, fmt.Errorf("ancestors of %s: %w", id, domain.ErrCycle)
		}
		frontier = next
	}
}
