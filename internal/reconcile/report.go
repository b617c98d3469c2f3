package reconcile

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/dbdesc/internal/orm/catalog"
)

// State is a step of a reconciliation run
type State int

const (
	StateIdle State = iota
	StateConnectionOpen
	StateTransactionOpen
	StateScanning
	StateResolving
	StateDescribing
	StateCommitted
	StateRolledBack
	StateConnectionClosed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnectionOpen:
		return "connection_open"
	case StateTransactionOpen:
		return "transaction_open"
	case StateScanning:
		return "scanning"
	case StateResolving:
		return "resolving"
	case StateDescribing:
		return "describing"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateConnectionClosed:
		return "connection_closed"
	default:
		return "unknown"
	}
}

// Change is one catalog mutation issued by a run
type Change struct {
	Key         catalog.Key
	Op          catalog.Op
	Description string
}

// Report summarizes a run. It is returned on failure too, describing how far
// the run got; changes of a failed or dry run were not retained.
type Report struct {
	RunID   string
	Dialect string
	DryRun  bool
	// States lists every state the run passed through, in order
	States []State
	// Entities is the number of entity types scanned
	Entities int
	// Changes are the mutations issued, in order
	Changes []Change
	// SkippedVirtual counts non-persisted properties
	SkippedVirtual int
	// SkippedUndescribed counts persisted properties without a description
	SkippedUndescribed int
}

func newReport(dialect string, dryRun bool) *Report {
	return &Report{
		RunID:   uuid.NewString(),
		Dialect: dialect,
		DryRun:  dryRun,
		States:  []State{StateIdle},
		Changes: make([]Change, 0),
	}
}

func (r *Report) transition(s State, log *zap.Logger) {
	r.States = append(r.States, s)
	log.Debug("state", zap.Stringer("state", s))
}

// State returns the current (last) state of the run
func (r *Report) State() State {
	return r.States[len(r.States)-1]
}

// Outcome returns StateCommitted or StateRolledBack, or StateIdle when the
// run never finished a transaction
func (r *Report) Outcome() State {
	for i := len(r.States) - 1; i >= 0; i-- {
		if s := r.States[i]; s == StateCommitted || s == StateRolledBack {
			return s
		}
	}
	return StateIdle
}

// Committed reports whether the run's changes were retained
func (r *Report) Committed() bool {
	return r.Outcome() == StateCommitted
}

// Count returns the number of changes with the given op
func (r *Report) Count(op catalog.Op) int {
	n := 0
	for _, c := range r.Changes {
		if c.Op == op {
			n++
		}
	}
	return n
}
