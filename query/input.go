package query

import "reflect"

// inputEntry holds one externally-mutated fact.
type inputEntry struct {
	value    any
	revision Revision
}

// Input is an externally mutated fact (file contents, settings) of type T,
// identified by a stable key within the database (spec.md §4.B "Inputs").
type Input[T any] struct {
	db  *Database
	key string
}

// NewInput registers a new input cell at the database's current revision.
// Two Inputs constructed with the same key on the same Database refer to
// the same underlying cell; callers are expected to construct each input
// exactly once (typically from a file-watcher callback) and share the
// handle thereafter.
func NewInput[T any](db *Database, key string, initial T) *Input[T] {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.inputs[key]; !exists {
		rev := db.revision
		if rev == 0 {
			rev = db.bumpRevision()
		}
		db.inputs[key] = &inputEntry{value: initial, revision: rev}
	}
	return &Input[T]{db: db, key: key}
}

// Get reads the input's current value, recording it as a dependency of
// whatever tracked query is executing on h (a no-op if h has no frame,
// e.g. a handle used outside of any query).
func (in *Input[T]) Get(h *Handle) T {
	in.db.mu.Lock()
	e := in.db.inputs[in.key]
	in.db.mu.Unlock()
	if h.frame != nil {
		h.frame.deps = append(h.frame.deps, depKey{kind: depInput, id: in.key, rev: e.revision})
	}
	return e.value.(T)
}

// Set overwrites the input's value. Per spec.md §3/§8, setting a value
// that is byte-/structurally-equal to the current one is a no-op: the
// revision does not advance and no downstream query is invalidated or
// cancelled. Returns whether the value actually changed.
func (in *Input[T]) Set(value T) (changed bool) {
	in.db.mu.Lock()
	defer in.db.mu.Unlock()
	e := in.db.inputs[in.key]
	if reflect.DeepEqual(e.value, value) {
		return false
	}
	e.value = value
	e.revision = in.db.bumpRevision()
	log.Debug("input %s set to new revision %d", in.key, e.revision)
	return true
}
