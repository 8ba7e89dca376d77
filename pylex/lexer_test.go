package pylex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tokenTypes(src string) []rune {
	l := New(src)
	var out []rune
	for {
		tok := l.Next()
		out = append(out, tok.Type)
		if tok.Type == EOF {
			break
		}
	}
	return out
}

func TestLexIdentAndOperators(t *testing.T) {
	toks := tokenTypes("bits[0] == 'end'\n")
	assert.Equal(t, []rune{Ident, '[', Int, ']', Op, String, EOL, EOF}, toks)
}

func TestLexIndentUnindent(t *testing.T) {
	l := New("if x:\n    y = 1\nz = 2\n")
	var kinds []rune
	for {
		tok := l.Next()
		kinds = append(kinds, tok.Type)
		if tok.Type == EOF {
			break
		}
	}
	assert.Contains(t, kinds, Unindent)
}

func TestLexFString(t *testing.T) {
	l := New(`f"end{name}"` + "\n")
	tok := l.Next()
	assert.Equal(t, FString, tok.Type)
	assert.Equal(t, "end{name}", tok.Value)
}

func TestLexDecoratorAt(t *testing.T) {
	l := New("@register.tag\n")
	tok := l.Next()
	assert.Equal(t, At, tok.Type)
}

func TestLexComment(t *testing.T) {
	toks := tokenTypes("x = 1 # comment\ny = 2\n")
	assert.NotContains(t, toks, rune('#'))
}
