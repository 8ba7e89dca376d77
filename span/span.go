// Package span implements the source span model used throughout the
// semantic core: a byte offset and length into a specific source file.
//
// Grounded on _examples/thought-machine-please/src/parse/asp/file_position.go,
// which represents positions as a raw byte Position plus a File that knows
// how to expand one into line/column. Spans here stay in byte-offset space
// only; the core never needs line/column, that's an LSP-layer concern.
package span

import "fmt"

// A Span is a (byte offset, byte length) pair into a specific source file.
// File is the source file's path string; Span stays comparable and cheap
// to copy.
type Span struct {
	File   string
	Start  int
	Length int
}

// New builds a Span. It panics on a negative length; callers compute spans
// from parser/lexer output where this can't happen.
func New(file string, start, length int) Span {
	if length < 0 {
		panic(fmt.Sprintf("span: negative length %d", length))
	}
	return Span{File: file, Start: start, Length: length}
}

// End returns the offset one past the last byte covered by s.
func (s Span) End() int { return s.Start + s.Length }

// Expand grows s outward by n bytes on each side. It is O(1); callers are
// responsible for clamping against the source's actual length if needed.
func (s Span) Expand(n int) Span {
	start := s.Start - n
	if start < 0 {
		start = 0
	}
	return Span{File: s.File, Start: start, Length: s.Length + (s.Start - start) + n}
}

// Contains reports whether offset falls within [Start, End).
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End()
}

// Overlaps reports whether s and other share any byte.
func (s Span) Overlaps(other Span) bool {
	if s.File != other.File {
		return false
	}
	return s.Start < other.End() && other.Start < s.End()
}

// Before reports whether s starts no later than other in source order.
// Spans are required to be monotonic within one template (§3 invariant);
// this is the comparison that invariant is stated in.
func (s Span) Before(other Span) bool {
	return s.Start <= other.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d+%d", s.File, s.Start, s.Length)
}
