package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/chebi/internal/domain"
)

//go:embed schema.sql
var schema string

// Store records the history of sync runs
type Store struct {
	db *sql.DB
}

// New opens (and initialises) the history database at dbPath
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records the beginning of a sync run and returns it
func (s *Store) StartRun(oldVersion domain.VersionTag) (*domain.SyncRun, error) {
	run := &domain.SyncRun{
		ID:         uuid.New().String(),
		StartedAt:  time.Now().UTC(),
		OldVersion: oldVersion,
		State:      domain.StateStaleNeedsSync,
	}

	_, err := s.db.Exec(
		"INSERT INTO sync_runs (id, started_at, old_version, state) VALUES (?, ?, ?, ?)",
		run.ID, run.StartedAt, string(run.OldVersion), string(run.State),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final state of a run
func (s *Store) FinishRun(run *domain.SyncRun) error {
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	res, err := s.db.Exec(`
		UPDATE sync_runs
		SET finished_at = ?, new_version = ?, state = ?, node_delta = ?, edge_delta = ?,
		    new_names = ?, new_smiles = ?, prediction_errors = ?, error = ?
		WHERE id = ?`,
		finished, string(run.NewVersion), string(run.State), run.NodeDelta, run.EdgeDelta,
		run.NewNames, run.NewSmiles, run.PredictionErrors, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, old_version, new_version, state,
	node_delta, edge_delta, new_names, new_smiles, prediction_errors, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.SyncRun, error) {
	var r domain.SyncRun
	var finished sql.NullTime
	var oldV, newV, state string
	err := row.Scan(&r.ID, &r.StartedAt, &finished, &oldV, &newV, &state,
		&r.NodeDelta, &r.EdgeDelta, &r.NewNames, &r.NewSmiles, &r.PredictionErrors, &r.Error)
	if err != nil {
		return r, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	r.OldVersion = domain.VersionTag(oldV)
	r.NewVersion = domain.VersionTag(newV)
	r.State = domain.SyncState(state)
	return r, nil
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]domain.SyncRun, error) {
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run by id
func (s *Store) GetRun(id string) (*domain.SyncRun, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM sync_runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// LastSynced returns the newest run that advanced the stores
func (s *Store) LastSynced() (*domain.SyncRun, error) {
	r, err := scanRun(s.db.QueryRow(
		"SELECT "+runColumns+" FROM sync_runs WHERE state = ? ORDER BY started_at DESC, rowid DESC LIMIT 1",
		string(domain.StateSynced),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("last synced run: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("last synced run: %w", err)
	}
	return &r, nil
}
