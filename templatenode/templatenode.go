// Package templatenode is a minimal scanner for the Django template
// syntax spec.md §6 describes bit-exactly: `{% name bits… %}` tags,
// `{{ var|filter1|filter2:"arg" }}` variables, `{# … #}` comments, and the
// raw HTML between them. It stands in for the external HTML/template
// parser spec.md §4.J's validation driver consumes — this core only needs
// tag/variable/filter boundaries and byte spans, not a full expression
// grammar.
//
// Grounded on _examples/flosch-pongo2/lexer.go's state-function lexer:
// its `{{`/`{%`/`{#` prefix dispatch and quote-tracking string state are
// kept, its full expression tokenizer (numbers, operators, keywords) is
// dropped since spec.md's validator never evaluates expressions, only
// splits tag bits and filter chains.
package templatenode

import (
	"strings"

	"github.com/djls-project/djls/span"
)

// Kind discriminates one Node.
type Kind uint8

const (
	Text Kind = iota
	Tag
	Variable
	Comment
)

// FilterRef is one filter in a variable's chain: `name` or `name:arg`.
type FilterRef struct {
	Name string
	Arg  string // "" when the filter takes no argument
	HasArg bool
	// Span covers just the filter-name substring, not the whole `{{ … }}`
	// variable node — spec.md §7 requires filter diagnostics to point at
	// the name, not the enclosing construct.
	Span span.Span
}

// Node is one scanned template construct (spec.md §6).
type Node struct {
	Kind Kind
	Span span.Span

	Text string // Text: raw content; Comment: content with surrounding whitespace trimmed

	TagName string   // Tag: the name after `{%`
	Bits    []string // Tag: whitespace-split arguments, excluding TagName

	VarExpr string      // Variable: the base expression before the first filter
	Filters []FilterRef // Variable: the filter chain, in source order
}

// Scan tokenizes source into a flat Node list (spec.md §6's template
// syntax). file names the spans it produces.
func Scan(file, source string) []Node {
	s := &scanner{file: file, src: source}
	s.run()
	return s.nodes
}

type scanner struct {
	file  string
	src   string
	pos   int
	start int
	nodes []Node
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		switch {
		case strings.HasPrefix(s.src[s.pos:], "{#"):
			s.emitText()
			s.scanComment()
		case strings.HasPrefix(s.src[s.pos:], "{%"):
			s.emitText()
			s.scanTag()
		case strings.HasPrefix(s.src[s.pos:], "{{"):
			s.emitText()
			s.scanVariable()
		default:
			s.pos++
		}
	}
	s.emitText()
}

func (s *scanner) emitText() {
	if s.pos > s.start {
		s.nodes = append(s.nodes, Node{
			Kind: Text,
			Span: span.New(s.file, s.start, s.pos-s.start),
			Text: s.src[s.start:s.pos],
		})
	}
	s.start = s.pos
}

func (s *scanner) scanComment() {
	contentEnd := findClose(s.src, s.pos+2, "#}")
	var end int
	if contentEnd < 0 {
		contentEnd = len(s.src)
		end = len(s.src)
	} else {
		end = contentEnd + 2
	}
	s.nodes = append(s.nodes, Node{
		Kind: Comment,
		Span: span.New(s.file, s.start, end-s.start),
		Text: strings.TrimSpace(s.src[s.pos+2 : contentEnd]),
	})
	s.pos = end
	s.start = end
}

func (s *scanner) scanTag() {
	inner, end := extractDelimited(s.src, s.pos+2, "%}")
	trimmed := strings.TrimSpace(inner)
	bits := splitBits(trimmed)
	name := ""
	rest := bits
	if len(bits) > 0 {
		name = bits[0]
		rest = bits[1:]
	}
	s.nodes = append(s.nodes, Node{
		Kind:    Tag,
		Span:    span.New(s.file, s.start, end-s.start),
		TagName: name,
		Bits:    rest,
	})
	s.pos = end
	s.start = end
}

func (s *scanner) scanVariable() {
	inner, end := extractDelimited(s.src, s.pos+2, "}}")
	innerStart := s.pos + 2
	leftTrimmed := strings.TrimLeft(inner, " \t\r\n")
	leadTrim := len(inner) - len(leftTrimmed)
	trimmed := strings.TrimRight(leftTrimmed, " \t\r\n")
	parts := splitUnquotedPos(trimmed, '|')
	varExpr := ""
	var filters []FilterRef
	if len(parts) > 0 {
		varExpr = strings.TrimSpace(parts[0].text)
		for _, p := range parts[1:] {
			absStart := innerStart + leadTrim + p.start
			filters = append(filters, parseFilter(s.file, absStart, p.text))
		}
	}
	s.nodes = append(s.nodes, Node{
		Kind:    Variable,
		Span:    span.New(s.file, s.start, end-s.start),
		VarExpr: varExpr,
		Filters: filters,
	})
	s.pos = end
	s.start = end
}

// parseFilter splits one `name` or `name:arg` filter segment, where
// segStart is the absolute byte offset at which segText begins, and
// returns a FilterRef whose Span covers only the (trimmed) name.
func parseFilter(file string, segStart int, segText string) FilterRef {
	segs := splitUnquotedPos(segText, ':')
	nameSeg := segs[0]
	nameLeftTrimmed := strings.TrimLeft(nameSeg.text, " \t\r\n")
	nameLead := len(nameSeg.text) - len(nameLeftTrimmed)
	name := strings.TrimRight(nameLeftTrimmed, " \t\r\n")
	nameAbsStart := segStart + nameSeg.start + nameLead
	ref := FilterRef{Name: name, Span: span.New(file, nameAbsStart, len(name))}
	if len(segs) > 1 {
		ref.Arg = strings.TrimSpace(segText[segs[1].start:])
		ref.HasArg = true
	}
	return ref
}

// extractDelimited returns the text strictly between from and the close
// delimiter (not including either delimiter), plus the absolute end
// offset one past close. If close never appears, it consumes to EOF.
func extractDelimited(src string, from int, close string) (string, int) {
	end := findClose(src, from, close)
	if end < 0 {
		return src[from:], len(src)
	}
	return src[from:end], end + len(close)
}

// findClose finds the first occurrence of close at or after from that is
// not inside a quoted string (spec.md §6's quote-aware scanning, needed
// so a tag argument like `{% trans "a %} b" %}` doesn't close early).
func findClose(src string, from int, close string) int {
	var quote byte
	i := from
	for i < len(src) {
		c := src[i]
		if quote != 0 {
			if c == '\\' {
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			i++
			continue
		}
		if strings.HasPrefix(src[i:], close) {
			return i
		}
		i++
	}
	return -1
}

// SplitBits is splitBits exported for the completion planner (spec.md
// §4.K), which must tokenize an in-progress, possibly unclosed `{% … %}`
// the same way a finished tag's bits are split.
func SplitBits(s string) []string { return splitBits(s) }

// SplitUnquoted is splitUnquoted exported for the completion planner,
// which needs the same "last unquoted pipe" rule §4.K specifies to find
// the filter being completed in an in-progress `{{ … }}`.
func SplitUnquoted(s string, sep byte) []string { return splitUnquoted(s, sep) }

// splitBits splits s on whitespace, keeping quoted segments (including
// their quotes) intact as one bit — the same shape as Django's
// `token.split_contents()` (spec.md §4.C).
func splitBits(s string) []string {
	var out []string
	var cur strings.Builder
	var quote byte
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

// splitUnquoted splits s on sep wherever sep is not inside a quoted
// string (spec.md §4.K: "a pipe is unquoted when ... not enclosed in
// either single or double quotes").
func splitUnquoted(s string, sep byte) []string {
	segs := splitUnquotedPos(s, sep)
	out := make([]string, len(segs))
	for i, seg := range segs {
		out[i] = seg.text
	}
	return out
}

// posSegment is one splitUnquotedPos result: its text plus the byte
// offset (within the string passed to splitUnquotedPos) where it begins.
type posSegment struct {
	text  string
	start int
}

// splitUnquotedPos is splitUnquoted plus each segment's start offset, so
// callers can translate a segment (e.g. a filter name) back to an
// absolute span in the source (spec.md §7: diagnostics must point at the
// filter-name substring, not the whole construct).
func splitUnquotedPos(s string, sep byte) []posSegment {
	var out []posSegment
	var cur strings.Builder
	var quote byte
	segStart := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		case c == sep:
			out = append(out, posSegment{text: cur.String(), start: segStart})
			cur.Reset()
			segStart = i + 1
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, posSegment{text: cur.String(), start: segStart})
	return out
}
