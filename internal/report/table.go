package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
	"github.com/pbaille/chebi/internal/propstore"
)

// Properties maps each property kind to its id -> value rows.
type Properties map[domain.PropertyKind]map[string]string

// TableKinds are the property stores a report row is built from.
var TableKinds = []domain.PropertyKind{domain.Names, domain.Mass, domain.LogP, domain.Superterms}

// LoadProperties reads the given kinds from store. A store that does not
// exist yet is loaded as empty.
func LoadProperties(store *propstore.Store, kinds ...domain.PropertyKind) (Properties, error) {
	props := make(Properties, len(kinds))
	for _, k := range kinds {
		rows, err := store.ReadOrEmpty(k)
		if err != nil {
			return nil, err
		}
		props[k] = rows
	}
	return props, nil
}

func (p Properties) lookup(kind domain.PropertyKind, id string) (string, error) {
	rows, ok := p[kind]
	if !ok {
		return "", fmt.Errorf("%s store not loaded: %w", kind, domain.ErrNotFound)
	}
	v, ok := rows[id]
	if !ok {
		return "", fmt.Errorf("%s of %s: %w", kind, id, domain.ErrNotFound)
	}
	return v, nil
}

var errIncomplete = errors.New("mass or logP unknown")

// Row is one line of a report table
type Row struct {
	ID         string
	Count      int
	Score      int64
	Name       string
	Mass       string
	LogP       string
	Superterms []string
}

// Fields renders the row as report columns; the ancestors expand into
// trailing columns so rows vary in width.
func (r Row) Fields() []string {
	fields := []string{
		r.ID,
		strconv.Itoa(r.Count),
		strconv.FormatInt(r.Score, 10),
		r.Name,
		r.Mass,
		r.LogP,
	}
	return append(fields, r.Superterms...)
}

func buildRow(id string, count int, score int64, props Properties) (Row, error) {
	mass, err := props.lookup(domain.Mass, id)
	if err != nil {
		return Row{}, err
	}
	logP, err := props.lookup(domain.LogP, id)
	if err != nil {
		return Row{}, err
	}
	if mass == domain.Sentinel || logP == domain.Sentinel {
		return Row{}, errIncomplete
	}
	name, err := props.lookup(domain.Names, id)
	if err != nil {
		return Row{}, err
	}
	superterms, err := props.lookup(domain.Superterms, id)
	if err != nil {
		return Row{}, err
	}
	return Row{
		ID:         id,
		Count:      count,
		Score:      score,
		Name:       name,
		Mass:       mass,
		LogP:       logP,
		Superterms: propstore.DecodeList(superterms),
	}, nil
}

// Assemble joins the counted entities of ct with their scores and stored
// properties, in first-appearance order. Entities missing mass or logP, or
// any other property, are left out and counted in failed.
func Assemble(ct *CountTable, scores map[string]int64, props Properties) (rows []Row, failed int) {
	for _, id := range ct.Order {
		score, ok := scores[id]
		if !ok {
			failed++
			continue
		}
		row, err := buildRow(id, ct.Counts[id], score, props)
		if err != nil {
			logger.Debug("row skipped", "term", ct.Term, "id", id, "err", err)
			failed++
			continue
		}
		rows = append(rows, row)
	}
	logger.Info(fmt.Sprintf("From %d of %d ChEBI IDs not all properties could be found", failed, len(ct.Order)), "term", ct.Term)
	return rows, failed
}

// TablePath is where the report for term is written.
func TablePath(dir, term string) string {
	return filepath.Join(dir, term+"_table.tsv")
}

// WriteTable writes rows to <dir>/<term>_table.tsv and returns the path.
func WriteTable(dir, term string, rows []Row) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create tables dir: %w", err)
	}
	path := TablePath(dir, term)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'
	for _, r := range rows {
		if err := w.Write(r.Fields()); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
