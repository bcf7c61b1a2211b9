package propstore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pbaille/chebi/internal/domain"
)

// VersionFile holds the ontology version the stores were last synced to.
type VersionFile struct {
	path string
}

// NewVersionFile creates a VersionFile at path.
func NewVersionFile(path string) *VersionFile {
	return &VersionFile{path: path}
}

// Path is the file location
func (v *VersionFile) Path() string { return v.path }

// Read returns the recorded version, or an error wrapping domain.ErrNotFound.
func (v *VersionFile) Read() (domain.VersionTag, error) {
	data, err := os.ReadFile(v.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", v.path, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", v.path, err)
	}
	return domain.VersionTag(strings.TrimSpace(string(data))), nil
}

// Write atomically replaces the recorded version.
func (v *VersionFile) Write(tag domain.VersionTag) error {
	err := writeAtomic(v.path, func(w *bufio.Writer) error {
		_, err := w.WriteString(string(tag))
		return err
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", v.path, err)
	}
	return nil
}
