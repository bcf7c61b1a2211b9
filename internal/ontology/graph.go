package ontology

import (
	"fmt"

	"github.com/pbaille/chebi/internal/domain"
)

// IsA is the only relation kind that drives ancestry.
const IsA = "is_a"

// Node is one ontology term
type Node struct {
	ID             domain.EntityID
	Name           string
	PropertyValues []string
}

// Edge is a typed relation from a child term to a parent term
type Edge struct {
	Child  domain.EntityID
	Parent domain.EntityID
	Kind   string
}

// Graph is a read-only snapshot of one ontology release. Nodes keep the
// order in which the release declares them.
type Graph struct {
	DataVersion domain.VersionTag

	nodes   []*Node
	index   map[domain.EntityID]*Node
	edges   []Edge
	parents map[domain.EntityID][]domain.EntityID
}

// NewGraph creates an empty graph for the given version.
func NewGraph(version domain.VersionTag) *Graph {
	return &Graph{
		DataVersion: version,
		index:       make(map[domain.EntityID]*Node),
		parents:     make(map[domain.EntityID][]domain.EntityID),
	}
}

// AddNode adds a term. Re-adding an id replaces its attributes in place.
func (g *Graph) AddNode(n Node) {
	if existing, ok := g.index[n.ID]; ok {
		*existing = n
		return
	}
	node := n
	g.nodes = append(g.nodes, &node)
	g.index[n.ID] = &node
}

// AddEdge records a typed relation.
func (g *Graph) AddEdge(e Edge) {
	g.edges = append(g.edges, e)
	if e.Kind == IsA {
		g.parents[e.Child] = append(g.parents[e.Child], e.Parent)
	}
}

// Nodes returns the terms in declaration order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Node looks up a term by id.
func (g *Graph) Node(id domain.EntityID) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Len is the number of terms
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount is the number of typed relations of every kind
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Parents returns the direct is_a parents of id in declaration order.
func (g *Graph) Parents(id domain.EntityID) []domain.EntityID {
	return g.parents[id]
}

// Summary compares two releases by node and edge counts
type Summary struct {
	NewNodes   int
	TotalNodes int
	NewEdges   int
	TotalEdges int
}

// Compare reports how far latest has grown relative to old.
func Compare(latest, old *Graph) Summary {
	s := Summary{TotalNodes: latest.Len(), TotalEdges: latest.EdgeCount()}
	if old != nil {
		s.NewNodes = s.TotalNodes - old.Len()
		s.NewEdges = s.TotalEdges - old.EdgeCount()
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("Latest ChEBI ontology contains %d new chemicals of %d total chemicals...\nand %d new relations of %d total relations",
		s.NewNodes, s.TotalNodes, s.NewEdges, s.TotalEdges)
}
