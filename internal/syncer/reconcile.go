package syncer

import (
	"fmt"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
	"github.com/pbaille/chebi/internal/ontology"
	"github.com/pbaille/chebi/internal/predict"
	"github.com/pbaille/chebi/internal/propstore"
)

// PropertyStore is the persistence the reconciler writes through
type PropertyStore interface {
	ReadOrEmpty(kind domain.PropertyKind) (map[string]string, error)
	Append(kind domain.PropertyKind, delta domain.Delta) (int, error)
	Rewrite(kind domain.PropertyKind, records domain.Delta) error
}

// VersionStore persists the synced ontology version
type VersionStore interface {
	Read() (domain.VersionTag, error)
	Write(tag domain.VersionTag) error
}

// Reconciler writes one sync's worth of derived properties.
type Reconciler struct {
	props   PropertyStore
	version VersionStore
}

// NewReconciler creates a Reconciler
func NewReconciler(props PropertyStore, version VersionStore) *Reconciler {
	return &Reconciler{props: props, version: version}
}

// Apply appends the monotonic properties, regenerates the graph-derived
// ones and only then records g's version. Any failure returns before the
// version is written, so a partial sync never looks complete.
func (r *Reconciler) Apply(g *ontology.Graph, names, smiles domain.Delta, pred *predict.Result) error {
	if pred == nil {
		pred = &predict.Result{}
	}
	appends := []struct {
		kind  domain.PropertyKind
		delta domain.Delta
	}{
		{domain.Names, names},
		{domain.LogP, pred.LogP},
		{domain.LogS, pred.LogS},
		// Smiles last: a structure counts as predicted once its row exists.
		{domain.Smiles, smiles},
	}
	for _, a := range appends {
		if _, err := r.props.Append(a.kind, a.delta); err != nil {
			return fmt.Errorf("append %s: %w", a.kind, err)
		}
	}

	if err := r.props.Rewrite(domain.Mass, MassRecords(g)); err != nil {
		return fmt.Errorf("rewrite %s: %w", domain.Mass, err)
	}
	if err := r.props.Rewrite(domain.Superterms, SupertermRecords(g)); err != nil {
		return fmt.Errorf("rewrite %s: %w", domain.Superterms, err)
	}

	if err := r.version.Write(g.DataVersion); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return nil
}

// MassRecords derives the mass of every term in graph order.
func MassRecords(g *ontology.Graph) domain.Delta {
	records := make(domain.Delta, 0, g.Len())
	for _, n := range g.Nodes() {
		records = append(records, domain.Record{ID: n.ID.LocalID(), Value: ontology.Mass(n)})
	}
	return records
}

// SupertermRecords derives the ancestor closure of every term in graph order.
// Terms caught in an is_a cycle get the sentinel.
func SupertermRecords(g *ontology.Graph) domain.Delta {
	records := make(domain.Delta, 0, g.Len())
	cycles := 0
	for _, n := range g.Nodes() {
		ancestors, err := g.Ancestors(n.ID)
		value := propstore.EncodeList(ancestors)
		if err != nil {
			logger.Debug("ancestor closure failed", "id", n.ID, "err", err)
			cycles++
			value = domain.Sentinel
		}
		records = append(records, domain.Record{ID: n.ID.LocalID(), Value: value})
	}
	if cycles > 0 {
		logger.Warn(fmt.Sprintf("is_a cycles reached from %d of %d terms", cycles, g.Len()))
	}
	return records
}
