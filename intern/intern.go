// Package intern provides a process-wide, sharded, concurrent string
// interner (spec.md §4.A). Identifiers compare and hash in O(1) once
// interned.
//
// Grounded on _examples/thought-machine-please/src/cmap/cmap.go's sharded
// map (a shard per bucket, a mutex per shard, a power-of-two shard count)
// and its hash.go; we use github.com/cespare/xxhash/v2 in place of the
// teacher's hand-rolled FNV, which is the hasher _examples/thought-machine-please/src/cmap
// itself is built to accept as a pluggable func(K) uint32 — xxhash is what
// the rest of the pack (e.g. DataDog-datadog-agent) reaches for when a
// faster non-cryptographic hash is wanted over FNV.
package intern

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	logging "gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("intern")

// Kind distinguishes the identifier namespaces spec.md §3 lists: tag name,
// filter name, library name, Python module path, file path, template
// symbol name. Each Kind gets its own Table so ids never collide across
// namespaces.
type Kind uint8

const (
	KindTag Kind = iota
	KindFilter
	KindLibrary
	KindModule
	KindFile
	KindSymbol

	numKinds
)

// ID is a small integer assigned to an interned string: the low 6 bits
// hold the shard index and the bits above hold the string's slot within
// that shard. Two equal source strings interned into the same Table yield
// equal IDs; IDs are totally ordered as plain integers, an order that
// follows neither global insertion sequence nor string sort order.
type ID uint32

// shardCount must be a power of two, mirroring cmap's requirement.
const shardCount = 1 << 6

// A Table interns strings of one Kind. It is thread-safe for reads and
// concurrent for inserts: two goroutines racing to intern the same text
// are guaranteed to observe the same ID.
type Table struct {
	kind   Kind
	shards [shardCount]shard
}

type shard struct {
	mu     sync.Mutex
	byText map[string]ID
	byID   []string // indexed by slot, starting at 0; the global id carries the shard index
}

// NewTable creates an empty interner for one identifier namespace.
func NewTable(kind Kind) *Table {
	t := &Table{kind: kind}
	for i := range t.shards {
		t.shards[i].byText = map[string]ID{}
	}
	log.Debug("created intern table for kind %d", kind)
	return t
}

func (t *Table) shardIndexFor(text string) uint32 {
	h := xxhash.Sum64String(text)
	return uint32(h) & (shardCount - 1)
}

// Intern assigns (or reuses) a dense ID for text. Amortized O(len(text)).
// Concurrent duplicate inserts are guaranteed to return the same ID.
func (t *Table) Intern(text string) ID {
	idx := t.shardIndexFor(text)
	s := &t.shards[idx]
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byText[text]; ok {
		return id
	}
	s.byID = append(s.byID, text)
	// Encode both shard and per-shard slot into the global ID so Lookup
	// doesn't need to scan every shard.
	slot := uint32(len(s.byID) - 1)
	id := ID((slot << 6) | idx)
	s.byText[text] = id
	return id
}

// Lookup returns the original text for id. Panics if id was never
// produced by this Table (a programmer error — ids are not valid across
// Table instances or across identifier Kinds).
func (t *Table) Lookup(id ID) string {
	shardIdx := uint32(id) & (shardCount - 1)
	slot := uint32(id) >> 6
	s := &t.shards[shardIdx]
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(slot) >= len(s.byID) {
		panic("intern: id not present in table")
	}
	return s.byID[slot]
}

// Len returns the number of distinct strings interned so far. Useful only
// for diagnostics/metrics, never for identity.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mu.Lock()
		n += len(t.shards[i].byID)
		t.shards[i].mu.Unlock()
	}
	return n
}

// Tables bundles one Table per Kind.
type Tables struct {
	tags, filters, libraries, modules, files, symbols *Table
}

// NewTables constructs one interner per identifier namespace.
func NewTables() *Tables {
	return &Tables{
		tags:      NewTable(KindTag),
		filters:   NewTable(KindFilter),
		libraries: NewTable(KindLibrary),
		modules:   NewTable(KindModule),
		files:     NewTable(KindFile),
		symbols:   NewTable(KindSymbol),
	}
}

func (t *Tables) table(kind Kind) *Table {
	switch kind {
	case KindTag:
		return t.tags
	case KindFilter:
		return t.filters
	case KindLibrary:
		return t.libraries
	case KindModule:
		return t.modules
	case KindFile:
		return t.files
	case KindSymbol:
		return t.symbols
	default:
		panic("intern: unknown kind")
	}
}

// Intern interns text under the given namespace.
func (t *Tables) Intern(kind Kind, text string) ID { return t.table(kind).Intern(text) }

// Lookup reverses Intern.
func (t *Tables) Lookup(kind Kind, id ID) string { return t.table(kind).Lookup(id) }
