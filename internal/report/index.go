package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
)

// CountTable holds per-entity occurrence counts for one search term.
type CountTable struct {
	Term string
	// Order lists ids by first appearance.
	Order        []string
	Counts       map[string]int
	Publications map[string]map[string]struct{}
	Malformed    int
}

func newCountTable(term string) *CountTable {
	return &CountTable{
		Term:         term,
		Counts:       make(map[string]int),
		Publications: make(map[string]map[string]struct{}),
	}
}

// Add records one hit of id in publication pub.
func (ct *CountTable) Add(id, pub string) {
	if _, ok := ct.Counts[id]; !ok {
		ct.Order = append(ct.Order, id)
		ct.Publications[id] = make(map[string]struct{})
	}
	ct.Counts[id]++
	ct.Publications[id][pub] = struct{}{}
}

// TermFromPath derives the search term from a result file name: the base
// name up to the first underscore ("caffeine_results.txt" -> "caffeine").
func TermFromPath(path string) string {
	base := filepath.Base(path)
	term, _, _ := strings.Cut(base, "_")
	return strings.TrimSuffix(term, filepath.Ext(term))
}

// IndexFile parses one raw hit file.
func IndexFile(path string) (*CountTable, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ct, err := Index(TermFromPath(path), f)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}
	logger.Info(fmt.Sprintf("Input file contains %d unique ChEBI IDs", len(ct.Order)), "term", ct.Term)
	if ct.Malformed > 0 {
		logger.Warn("skipped malformed lines", "file", path, "lines", ct.Malformed)
	}
	return ct, nil
}

// Index reads whitespace separated "<entity> <publication> ..." lines.
// Extra tokens are ignored; lines with fewer than two tokens are counted
// as malformed and skipped.
func Index(term string, r io.Reader) (*CountTable, error) {
	ct := newCountTable(term)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			ct.Malformed++
			continue
		}
		ct.Add(fields[0], fields[1])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ct, nil
}

// ResultFiles lists the regular files of dir in name order.
func ResultFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list %s: %w", dir, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
