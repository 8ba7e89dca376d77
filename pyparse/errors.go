// Package pyparse turns pylex token streams into pyast trees for the
// subset of Python the registration scanner (registry) and abstract
// interpreter (pyinterp) need.
//
// Grounded on _examples/thought-machine-please/src/parse/asp/errors.go's
// panic-and-recover error propagation (fail/AddStackFrame): a parse
// function calls Fail to panic with a SyntaxError, and the single entry
// point Parse recovers it into a normal error return. Per spec.md §7,
// such input errors are absorbed by the caller (cmd/djls-check's
// scanLibraries logs and skips the file), not propagated as engine bugs:
// a file that fails to parse simply yields no registrations.
package pyparse

import "fmt"

// SyntaxError reports a parse failure at a byte offset.
type SyntaxError struct {
	Path    string
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Offset, e.Message)
}

// Fail panics with a SyntaxError; recovered by Parse.
func Fail(path string, offset int, format string, args ...any) {
	panic(&SyntaxError{Path: path, Offset: offset, Message: fmt.Sprintf(format, args...)})
}
