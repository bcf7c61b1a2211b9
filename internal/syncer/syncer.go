package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
	"github.com/pbaille/chebi/internal/ontology"
	"github.com/pbaille/chebi/internal/predict"
)

// Predictor computes logP/logS for a batch of structures
type Predictor interface {
	Predict(ctx context.Context, smiles domain.Delta) (*predict.Result, error)
}

// History records sync runs. It may be nil.
type History interface {
	StartRun(oldVersion domain.VersionTag) (*domain.SyncRun, error)
	FinishRun(run *domain.SyncRun) error
}

// Synchronizer brings the local property stores up to the latest ontology.
type Synchronizer struct {
	provider   ontology.Provider
	props      PropertyStore
	version    VersionStore
	predictor  Predictor
	history    History
	reconciler *Reconciler
}

// New creates a Synchronizer
func New(provider ontology.Provider, props PropertyStore, version VersionStore, predictor Predictor, history History) *Synchronizer {
	return &Synchronizer{
		provider:   provider,
		props:      props,
		version:    version,
		predictor:  predictor,
		history:    history,
		reconciler: NewReconciler(props, version),
	}
}

// Check is the result of comparing the local and remote versions
type Check struct {
	State  domain.SyncState
	Local  domain.VersionTag
	Remote domain.VersionTag
	Latest *ontology.Graph
}

// Check reads the local version and fetches the latest release. A missing
// version file counts as stale. Fetch failures are returned as-is; a release
// without a data-version is rejected as malformed.
func (s *Synchronizer) Check(ctx context.Context) (*Check, error) {
	local, err := s.version.Read()
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	latest, err := s.provider.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest ontology: %w", err)
	}
	if latest.DataVersion == "" {
		return nil, fmt.Errorf("latest ontology has no data-version header: %w", domain.ErrMalformed)
	}

	logger.Info("ChEBI version used to update files", "version", local)
	logger.Info("ChEBI latest version", "version", latest.DataVersion)

	c := &Check{Local: local, Remote: latest.DataVersion, Latest: latest, State: domain.StateStaleNeedsSync}
	if local == latest.DataVersion {
		c.State = domain.StateUpToDate
	}
	return c, nil
}

// Options tunes a Run
type Options struct {
	// DryRun stops after computing the deltas.
	DryRun bool
}

// Outcome summarises a Run
type Outcome struct {
	State            domain.SyncState
	Local            domain.VersionTag
	Remote           domain.VersionTag
	Summary          ontology.Summary
	NewNames         int
	NewSmiles        int
	PredictionErrors int
	RunID            string
}

// Run performs one full sync: version check, delta extraction, prediction
// and reconciliation. When the versions match nothing is written.
func (s *Synchronizer) Run(ctx context.Context, opts Options) (*Outcome, error) {
	check, err := s.Check(ctx)
	if err != nil {
		return nil, err
	}
	out := &Outcome{State: check.State, Local: check.Local, Remote: check.Remote}
	if check.State == domain.StateUpToDate {
		logger.Info("Files are up-to-date")
		return out, nil
	}

	logger.Info("Files need updating")
	out.Summary = s.summarize(ctx, check)

	names, smiles, err := s.deltas(check.Latest)
	if err != nil {
		return nil, err
	}
	out.NewNames, out.NewSmiles = len(names), len(smiles)
	logger.Info("Computed deltas", "names", out.NewNames, "smiles", out.NewSmiles)

	if opts.DryRun {
		return out, nil
	}

	var run *domain.SyncRun
	if s.history != nil {
		if run, err = s.history.StartRun(check.Local); err != nil {
			return nil, err
		}
		out.RunID = run.ID
	}

	err = s.apply(ctx, check.Latest, names, smiles, out)
	if run != nil {
		run.NewVersion = check.Remote
		run.NodeDelta, run.EdgeDelta = out.Summary.NewNodes, out.Summary.NewEdges
		run.NewNames, run.NewSmiles = out.NewNames, out.NewSmiles
		run.PredictionErrors = out.PredictionErrors
		run.State = domain.StateSynced
		if err != nil {
			run.State, run.Error = domain.StateFailed, err.Error()
		}
		if herr := s.history.FinishRun(run); herr != nil {
			logger.Warn("could not record sync run", "run", run.ID, "err", herr)
		}
	}
	if err != nil {
		out.State = domain.StateFailed
		return out, err
	}

	out.State = domain.StateSynced
	logger.Info("Sync complete", "version", check.Remote)
	return out, nil
}

func (s *Synchronizer) apply(ctx context.Context, g *ontology.Graph, names, smiles domain.Delta, out *Outcome) error {
	pred, err := s.predictor.Predict(ctx, smiles)
	if err != nil {
		return fmt.Errorf("predict properties: %w", err)
	}
	out.PredictionErrors = pred.Errors
	return s.reconciler.Apply(g, names, smiles, pred)
}

// summarize compares against the archived release of the local version.
// It is informational only, so a failed archive fetch is logged and skipped.
func (s *Synchronizer) summarize(ctx context.Context, check *Check) ontology.Summary {
	if check.Local == "" {
		summary := ontology.Compare(check.Latest, nil)
		logger.Info("No local version recorded, treating every term as new")
		return summary
	}
	old, err := s.provider.Archived(ctx, check.Local)
	if err != nil {
		logger.Warn("could not fetch archived ontology", "version", check.Local, "err", err)
		return ontology.Compare(check.Latest, nil)
	}
	summary := ontology.Compare(check.Latest, old)
	logger.Info(summary.String())
	return summary
}

func (s *Synchronizer) deltas(g *ontology.Graph) (domain.Delta, domain.Delta, error) {
	existingNames, err := s.props.ReadOrEmpty(domain.Names)
	if err != nil {
		return nil, nil, fmt.Errorf("load names: %w", err)
	}
	existingSmiles, err := s.props.ReadOrEmpty(domain.Smiles)
	if err != nil {
		return nil, nil, fmt.Errorf("load smiles: %w", err)
	}
	return NewNames(g, existingNames), NewSmiles(g, existingSmiles), nil
}
