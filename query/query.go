package query

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// queryEntry is the memoized state of one (query, args) invocation.
type queryEntry struct {
	value any
	// computedAt is the (possibly backdated) revision at which value last
	// changed. Downstream consumers compare against this, not against the
	// revision at which recomputation merely ran.
	computedAt Revision
	// verifiedAt is the database revision at which we last confirmed this
	// entry's dependencies are still current. When it equals db.revision
	// we can skip re-walking deps entirely.
	verifiedAt Revision
	deps       []depKey
	accum      map[string][]any
	// recompute re-runs the query body with the exact args it was last
	// called with. Bound once per (query,args) the first time Get sees
	// that key; stored type-erased so the dependency-verification walk
	// (which has no static type for the query it's revisiting) can drive it.
	recompute func(h *Handle) any
}

// Query is a tracked, pure function (Db, args) -> T, memoized by the
// engine (spec.md §4.B "Tracked queries").
type Query[T any] struct {
	db      *Database
	name    string
	compute func(h *Handle, args any) T
}

// NewQuery registers a tracked query under name. name must be unique
// within the database; it is combined with each call's argsKey to form
// the memoization key.
func NewQuery[T any](db *Database, name string, compute func(h *Handle, args any) T) *Query[T] {
	return &Query[T]{db: db, name: name, compute: compute}
}

// Get returns the memoized result for args, recomputing (and backdating)
// as needed. argsKey must be a stable, collision-free string encoding of
// args (callers typically use the interned id or file path).
func (q *Query[T]) Get(h *Handle, argsKey string, args any) T {
	full := q.name + "/" + argsKey
	db := q.db

	db.mu.Lock()
	entry, ok := db.queries[full]
	db.mu.Unlock()

	recompute := func(hh *Handle) any { return q.compute(hh, args) }

	if !ok {
		v := db.runAndStore(full, recompute, nil)
		if h.frame != nil {
			db.mu.Lock()
			rev := db.queries[full].computedAt
			db.mu.Unlock()
			h.frame.deps = append(h.frame.deps, depKey{kind: depQuery, id: full, rev: rev})
		}
		return v.(T)
	}

	rev := db.ensureUpToDate(full, h, entry, recompute)
	db.mu.Lock()
	v := db.queries[full].value
	db.mu.Unlock()
	if h.frame != nil {
		h.frame.deps = append(h.frame.deps, depKey{kind: depQuery, id: full, rev: rev})
	}
	return v.(T)
}

// runAndStore executes recompute in a fresh frame and stores the result,
// backdating against prior if non-nil. Returns the new stored value.
func (db *Database) runAndStore(full string, recompute func(h *Handle) any, prior *queryEntry) any {
	res, _, _ := db.sf.Do(full, func() (any, error) {
		f := newFrame()
		child := &Handle{db: db, generation: db.revAtomic.Load(), frame: f, id: uuid.New()}
		newVal := recompute(child)

		db.mu.Lock()
		defer db.mu.Unlock()
		computedAt := db.revision
		if computedAt == 0 {
			computedAt = db.bumpRevision()
		}
		if prior != nil && reflect.DeepEqual(prior.value, newVal) {
			computedAt = prior.computedAt
			log.Debug("query %s backdated to revision %d (value unchanged, handle %s)", full, computedAt, child.id)
		} else {
			log.Debug("query %s recomputed at revision %d (handle %s)", full, computedAt, child.id)
		}
		db.queries[full] = &queryEntry{
			value:      newVal,
			computedAt: computedAt,
			verifiedAt: db.revision,
			deps:       f.deps,
			accum:      f.accum,
			recompute:  recompute,
		}
		return newVal, nil
	})
	return res
}

// ensureUpToDate walks entry's recorded dependencies; if none have
// advanced past the revision recorded when entry was computed, it marks
// entry verified for the current revision and returns its computedAt
// unchanged. Otherwise it recomputes (possibly backdating) and returns the
// resulting computedAt. This is the recursive "is it still green" check
// that makes unaffected queries skip re-execution (spec.md §8 backdating
// property).
func (db *Database) ensureUpToDate(full string, h *Handle, entry *queryEntry, recompute func(h *Handle) any) Revision {
	db.mu.Lock()
	if entry.verifiedAt == db.revision {
		rev := entry.computedAt
		db.mu.Unlock()
		return rev
	}
	deps := append([]depKey(nil), entry.deps...)
	db.mu.Unlock()

	changed := false
	for _, d := range deps {
		if h.Cancelled() {
			// A concurrent writer is in flight; stop walking and let the
			// caller observe cancellation rather than returning a possibly
			// torn verification result.
			changed = true
			break
		}
		switch d.kind {
		case depInput:
			db.mu.Lock()
			cur := db.inputs[d.id]
			db.mu.Unlock()
			if cur == nil || cur.revision != d.rev {
				changed = true
			}
		case depQuery:
			db.mu.Lock()
			childEntry, ok := db.queries[d.id]
			db.mu.Unlock()
			if !ok {
				changed = true
				break
			}
			childRev := db.ensureUpToDate(d.id, h, childEntry, childEntry.recompute)
			if childRev != d.rev {
				changed = true
			}
		default:
			panic(fmt.Sprintf("query: unknown dependency kind %d", d.kind))
		}
		if changed {
			break
		}
	}

	if !changed {
		db.mu.Lock()
		entry.verifiedAt = db.revision
		rev := entry.computedAt
		db.mu.Unlock()
		return rev
	}

	db.mu.Lock()
	prior := db.queries[full]
	db.mu.Unlock()
	db.runAndStore(full, recompute, prior)
	db.mu.Lock()
	rev := db.queries[full].computedAt
	db.mu.Unlock()
	return rev
}
