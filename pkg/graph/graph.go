package graph

import (
	"context"
)

// Runner executes a single Cypher statement and returns its fully collected
// result. Explicit transactions satisfy it, as does any wrapper that routes
// statements somewhere else (a recording fake, a breaker decorator).
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (*Result, error)
}

// Transaction is an explicit transaction on one session. Statements run
// through it are only visible to other sessions after Commit.
type Transaction interface {
	Runner
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Session is a serial unit of work against one database. A session owns at
// most one open transaction at a time.
type Session interface {
	BeginTransaction(ctx context.Context) (Transaction, error)
	Close(ctx context.Context) error
}

// Database is the loader's handle to the graph store.
type Database interface {
	Session(ctx context.Context) (Session, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Record is one result row keyed by return alias.
type Record map[string]any

// Entity returns the node value stored under key, if any.
func (r Record) Entity(key string) (Entity, bool) {
	v, ok := r[key]
	if !ok {
		return Entity{}, false
	}
	e, ok := v.(Entity)
	return e, ok
}

// Value returns the raw value stored under key.
func (r Record) Value(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// Entity is a node or relationship returned by a query, detached from the
// driver so fakes can produce them.
type Entity struct {
	ElementID string
	Labels    []string
	Props     map[string]any
}

// Kind returns the entity's first label, or "" for an unlabeled entity.
func (e Entity) Kind() string {
	if len(e.Labels) == 0 {
		return ""
	}
	return e.Labels[0]
}

// Counters are the write counts the database reported for one statement.
type Counters struct {
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
}

// Result is the collected outcome of one statement: every record plus the
// summary counters.
type Result struct {
	Records  []Record
	Counters Counters
}

// Empty reports whether the statement returned no records.
func (r *Result) Empty() bool {
	return r == nil || len(r.Records) == 0
}

// Single returns the only record, or false when the result is empty. Extra
// records beyond the first are ignored, matching the probe queries that use
// it.
func (r *Result) Single() (Record, bool) {
	if r.Empty() {
		return nil, false
	}
	return r.Records[0], true
}
