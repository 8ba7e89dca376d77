package query

import "reflect"

// Accumulator is a per-query append-only sink (spec.md §4.B), used by the
// validation driver (4.J) to collect diagnostics and by the completion
// planner's dependents without threading return values through every
// layer.
type Accumulator[T any] struct {
	name string
}

// NewAccumulator creates an accumulator identified by name. name must be
// unique within the database.
func NewAccumulator[T any](name string) *Accumulator[T] {
	return &Accumulator[T]{name: name}
}

// Push appends v under this accumulator, attributed to the tracked query
// currently executing on h. Pushing outside of any tracked query (h has no
// frame) is a no-op; accumulators only make sense scoped to a query.
func (a *Accumulator[T]) Push(h *Handle, v T) {
	if h.frame == nil {
		return
	}
	h.frame.accum[a.name] = append(h.frame.accum[a.name], v)
}

// All runs query(args) to make sure it (and its transitive dependencies)
// are up to date, then returns every value appended to this accumulator
// anywhere in that dependency tree, deduplicated by structural equality.
func All[T any, R any](h *Handle, a *Accumulator[T], q *Query[R], argsKey string, args any) []T {
	q.Get(h, argsKey, args) // force computation / verification
	full := q.name + "/" + argsKey
	raw := q.db.collectAccumulated(a.name, full)
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		v := r.(T)
		dup := false
		for _, s := range out {
			if reflect.DeepEqual(s, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func (db *Database) collectAccumulated(name, rootFull string) []any {
	visited := map[string]bool{}
	var result []any
	var walk func(full string)
	walk = func(full string) {
		if visited[full] {
			return
		}
		visited[full] = true
		db.mu.Lock()
		entry := db.queries[full]
		if entry == nil {
			db.mu.Unlock()
			return
		}
		result = append(result, entry.accum[name]...)
		deps := append([]depKey(nil), entry.deps...)
		db.mu.Unlock()
		for _, d := range deps {
			if d.kind == depQuery {
				walk(d.id)
			}
		}
	}
	walk(rootFull)
	return result
}
