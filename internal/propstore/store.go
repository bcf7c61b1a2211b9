package propstore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
)

// ListSep separates list items stored in a single cell (superterms).
const ListSep = ","

var cellCleaner = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// Store persists one two-column TSV file per property kind:
//
//	<local-id>\t<value>\n
//
// Values never contain tabs or newlines; they are replaced by spaces on write.
// Store is not safe for concurrent writers.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file backing kind.
func (s *Store) Path(kind domain.PropertyKind) string {
	return filepath.Join(s.dir, kind.FileName())
}

// Read loads every row of kind. A missing file yields an error wrapping
// domain.ErrNotFound. Rows without a tab are skipped and logged.
func (s *Store) Read(kind domain.PropertyKind) (map[string]string, error) {
	path := s.Path(kind)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	rows := make(map[string]string)
	malformed := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		id, value, ok := strings.Cut(line, "\t")
		if !ok {
			malformed++
			continue
		}
		rows[id] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if malformed > 0 {
		logger.Warn("skipped malformed rows", "file", path, "rows", malformed)
	}
	return rows, nil
}

// Lookup scans kind for id and stops at the first match. A missing file
// reads as an empty store.
func (s *Store) Lookup(kind domain.PropertyKind, id string) (string, bool, error) {
	path := s.Path(kind)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	prefix := id + "\t"
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	return "", false, nil
}

// ReadOrEmpty is Read with a missing file treated as an empty store.
func (s *Store) ReadOrEmpty(kind domain.PropertyKind) (map[string]string, error) {
	rows, err := s.Read(kind)
	if errors.Is(err, domain.ErrNotFound) {
		return map[string]string{}, nil
	}
	return rows, err
}

// Append adds the records whose ids are not yet in the file, in order,
// leaving existing rows untouched. It returns the number of rows written.
func (s *Store) Append(kind domain.PropertyKind, delta domain.Delta) (int, error) {
	existing, err := s.ReadOrEmpty(kind)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return 0, fmt.Errorf("create store dir: %w", err)
	}

	path := s.Path(kind)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	written := 0
	for _, r := range delta {
		if _, dup := existing[r.ID]; dup {
			continue
		}
		existing[r.ID] = r.Value
		if err := writeRow(w, r); err != nil {
			f.Close()
			return written, fmt.Errorf("append %s: %w", path, err)
		}
		written++
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return written, fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return written, fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", path, err)
	}
	logger.Info(fmt.Sprintf("%s updated", path), "rows", written)
	return written, nil
}

// Rewrite replaces the whole file with records, atomically.
func (s *Store) Rewrite(kind domain.PropertyKind, records domain.Delta) error {
	path := s.Path(kind)
	err := writeAtomic(path, func(w *bufio.Writer) error {
		for _, r := range records {
			if err := writeRow(w, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", path, err)
	}
	logger.Info(fmt.Sprintf("%s updated", path), "rows", len(records))
	return nil
}

func writeRow(w *bufio.Writer, r domain.Record) error {
	_, err := fmt.Fprintf(w, "%s\t%s\n", cellCleaner.Replace(r.ID), cellCleaner.Replace(r.Value))
	return err
}

// writeAtomic writes through a temp file in the target directory and renames
// it over path, so readers see either the old or the new content.
func writeAtomic(path string, fill func(w *bufio.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := fill(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// EncodeList stores a list in one cell. An empty list is the sentinel.
func EncodeList(items []string) string {
	if len(items) == 0 {
		return domain.Sentinel
	}
	return strings.Join(items, ListSep)
}

// DecodeList is the inverse of EncodeList.
func DecodeList(cell string) []string {
	if cell == "" || cell == domain.Sentinel {
		return nil
	}
	return strings.Split(cell, ListSep)
}
