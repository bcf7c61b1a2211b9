package ontology

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pbaille/chebi/internal/domain"
)

type stanza struct {
	kind     string
	id       string
	name     string
	values   []string
	isA      []string
	rels     [][2]string
	obsolete bool
}

// ParseOBO reads an OBO 1.2/1.4 document into a Graph. Only [Term] stanzas
// become nodes; obsolete terms are skipped. is_a lines become is_a edges and
// relationship lines become edges typed by their relation name.
func ParseOBO(r io.Reader) (*Graph, error) {
	g := NewGraph("")
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var cur *stanza
	flush := func() {
		if cur == nil || cur.kind != "Term" || cur.id == "" || cur.obsolete {
			return
		}
		id := domain.EntityID(cur.id)
		g.AddNode(Node{ID: id, Name: cur.name, PropertyValues: cur.values})
		for _, p := range cur.isA {
			g.AddEdge(Edge{Child: id, Parent: domain.EntityID(p), Kind: IsA})
		}
		for _, rel := range cur.rels {
			g.AddEdge(Edge{Child: id, Parent: domain.EntityID(rel[1]), Kind: rel[0]})
		}
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			cur = &stanza{kind: line[1 : len(line)-1]}
			continue
		}

		tag, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("obo line %d: %w: %q", lineNo, domain.ErrMalformed, line)
		}
		value = strings.TrimSpace(value)

		if cur == nil {
			if tag == "data-version" {
				g.DataVersion = domain.VersionTag(value)
			}
			continue
		}

		switch tag {
		case "id":
			cur.id = value
		case "name":
			cur.name = value
		case "property_value":
			cur.values = append(cur.values, value)
		case "is_a":
			if target := firstField(value); target != "" {
				cur.isA = append(cur.isA, target)
			}
		case "relationship":
			fields := strings.Fields(stripComment(value))
			if len(fields) >= 2 {
				cur.rels = append(cur.rels, [2]string{fields[0], fields[1]})
			}
		case "is_obsolete":
			cur.obsolete = value == "true"
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read obo: %w", err)
	}
	flush()

	return g, nil
}

func stripComment(s string) string {
	if i := strings.Index(s, " !"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func firstField(s string) string {
	fields := strings.Fields(stripComment(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
