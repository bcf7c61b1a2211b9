package report

import (
	"fmt"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
)

// InputType says whether a table run reads one hit file or a folder of them.
type InputType string

const (
	InputFile   InputType = "file"
	InputFolder InputType = "folder"
)

type inputTypeError struct{}

func (e *inputTypeError) Error() string { return "please give 'file' or 'folder' as input type" }
func (e *inputTypeError) Unwrap() error { return domain.ErrInvalidInput }

// ParseInputType accepts "file" or "folder".
func ParseInputType(s string) (InputType, error) {
	switch t := InputType(s); t {
	case InputFile, InputFolder:
		return t, nil
	}
	return "", &inputTypeError{}
}

// Generator turns raw search hit files into report tables.
type Generator struct {
	Corpus    *Corpus
	Props     Properties
	TablesDir string
}

// Result describes one written table.
type Result struct {
	Term   string
	Path   string
	Rows   int
	Failed int
}

// Generate indexes one hit file, scores it and writes its table.
func (g *Generator) Generate(path string) (*Result, error) {
	ct, err := IndexFile(path)
	if err != nil {
		return nil, err
	}
	scores, err := Normalize(ct, g.Corpus)
	if err != nil {
		return nil, err
	}
	rows, failed := Assemble(ct, scores, g.Props)
	out, err := WriteTable(g.TablesDir, ct.Term, rows)
	if err != nil {
		return nil, err
	}
	logger.Info("Wrote table", "term", ct.Term, "path", out, "rows", len(rows))
	return &Result{Term: ct.Term, Path: out, Rows: len(rows), Failed: failed}, nil
}

// GenerateAll runs Generate over every result file in dir. It stops at the
// first file that fails.
func (g *Generator) GenerateAll(dir string) ([]*Result, error) {
	files, err := ResultFiles(dir)
	if err != nil {
		return nil, err
	}
	var results []*Result
	for _, f := range files {
		res, err := g.Generate(f)
		if err != nil {
			return results, fmt.Errorf("generate %s: %w", f, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Run generates tables for path according to its input type.
func (g *Generator) Run(path string, t InputType) ([]*Result, error) {
	if t == InputFolder {
		return g.GenerateAll(path)
	}
	res, err := g.Generate(path)
	if err != nil {
		return nil, err
	}
	return []*Result{res}, nil
}
