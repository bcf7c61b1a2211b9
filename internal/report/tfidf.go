package report

import (
	"fmt"
	"math"

	"github.com/pbaille/chebi/internal/domain"
)

// Score computes floor(tf * ln(n / (1 + npubs))). An entity found in more
// publications than n-1 gets a negative idf and so a negative score; that is
// kept as-is.
func Score(tf, npubs, n int) int64 {
	idf := math.Log(float64(n) / float64(1+npubs))
	return int64(math.Floor(float64(tf) * idf))
}

// Normalize scores every entity of ct against the corpus.
func Normalize(ct *CountTable, c *Corpus) (map[string]int64, error) {
	n := c.N()
	if n == 0 {
		return nil, fmt.Errorf("normalize %q: %w", ct.Term, domain.ErrEmptyUniverse)
	}
	scores := make(map[string]int64, len(ct.Counts))
	for id, tf := range ct.Counts {
		scores[id] = Score(tf, c.NPubs(id), n)
	}
	return scores, nil
}
