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

// Corpus is the publication index built from the yearly search dumps.
type Corpus struct {
	// Universe holds every publication id across all years.
	Universe map[string]struct{}
	// PubsByID holds the distinct publications each entity occurs in.
	PubsByID  map[string]map[string]struct{}
	Malformed int
}

// NewCorpus returns an empty corpus
func NewCorpus() *Corpus {
	return &Corpus{
		Universe: make(map[string]struct{}),
		PubsByID: make(map[string]map[string]struct{}),
	}
}

// N is the size of the publication universe.
func (c *Corpus) N() int { return len(c.Universe) }

// NPubs is the number of distinct publications id occurs in, 0 if unknown.
func (c *Corpus) NPubs(id string) int { return len(c.PubsByID[id]) }

// Read adds the tab separated "<entity>\t<publication>" lines of r.
func (c *Corpus) Read(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		id, pub, ok := strings.Cut(line, "\t")
		pub, _, _ = strings.Cut(pub, "\t")
		if !ok || id == "" || pub == "" {
			c.Malformed++
			continue
		}
		c.Universe[pub] = struct{}{}
		pubs, ok := c.PubsByID[id]
		if !ok {
			pubs = make(map[string]struct{})
			c.PubsByID[id] = pubs
		}
		pubs[pub] = struct{}{}
	}
	return sc.Err()
}

// LoadCorpus reads every file in dir whose name contains ".tsv".
func LoadCorpus(dir string) (*Corpus, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list %s: %w", dir, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(e.Name(), ".tsv") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	c := NewCorpus()
	for _, name := range names {
		path := filepath.Join(dir, name)
		logger.Debug("reading yearly search", "file", path)
		if err := c.readFile(path); err != nil {
			return nil, err
		}
	}
	if c.Malformed > 0 {
		logger.Warn("skipped malformed corpus lines", "dir", dir, "lines", c.Malformed)
	}
	logger.Info("Loaded publication universe", "files", len(names), "publications", c.N(), "entities", len(c.PubsByID))
	return c, nil
}

func (c *Corpus) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := c.Read(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
