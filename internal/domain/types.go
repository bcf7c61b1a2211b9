package domain

import (
	"strings"
	"time"
)

// Sentinel marks an unknown property value in every store.
const Sentinel = "-"

// EntityID identifies a chemical entity. On the wire it is namespaced
// ("CHEBI:15377"); stores persist only the local part ("15377").
type EntityID string

// LocalID strips the namespace prefix, if any.
func (id EntityID) LocalID() string {
	s := string(id)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// VersionTag is the ontology data-version string
type VersionTag string

// Record is one row of a property store
type Record struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Delta is an ordered set of records. The order is significant: it is the
// ontology's node order and the positional contract with the prediction service.
type Delta []Record

// PropertyKind names one property store
type PropertyKind string

const (
	Names      PropertyKind = "Names"
	Smiles     PropertyKind = "Smiles"
	Mass       PropertyKind = "Mass"
	LogP       PropertyKind = "logP"
	LogS       PropertyKind = "logS"
	Superterms PropertyKind = "Superterms"
)

// AllKinds lists every property kind in sync write order.
var AllKinds = []PropertyKind{Names, Smiles, LogP, LogS, Mass, Superterms}

// FileName returns the conventional TSV file name for the kind.
func (k PropertyKind) FileName() string {
	return "ChEBI2" + string(k) + ".tsv"
}

// SyncState is the outcome of a version check
type SyncState string

const (
	StateUpToDate       SyncState = "up_to_date"
	StateStaleNeedsSync SyncState = "stale_needs_sync"
	StateSynced         SyncState = "synced"
	StateFailed         SyncState = "failed"
)

// SyncRun is one recorded invocation of the sync pipeline
type SyncRun struct {
	ID               string     `json:"id"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	OldVersion       VersionTag `json:"old_version"`
	NewVersion       VersionTag `json:"new_version"`
	State            SyncState  `json:"state"`
	NodeDelta        int        `json:"node_delta"`
	EdgeDelta        int        `json:"edge_delta"`
	NewNames         int        `json:"new_names"`
	NewSmiles        int        `json:"new_smiles"`
	PredictionErrors int        `json:"prediction_errors"`
	Error            string     `json:"error,omitempty"`
}
