package templatenode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/templatenode"
)

func TestScanTagSplitsBitsExcludingName(t *testing.T) {
	nodes := templatenode.Scan("t.html", "<p>{% if x == 1 %}hi{% endif %}</p>")
	var tags []templatenode.Node
	for _, n := range nodes {
		if n.Kind == templatenode.Tag {
			tags = append(tags, n)
		}
	}
	require.Len(t, tags, 2)
	assert.Equal(t, "if", tags[0].TagName)
	assert.Equal(t, []string{"x", "==", "1"}, tags[0].Bits)
	assert.Equal(t, "endif", tags[1].TagName)
	assert.Empty(t, tags[1].Bits)
}

func TestScanTagKeepsQuotedBitTogether(t *testing.T) {
	nodes := templatenode.Scan("t.html", `{% trans "hello world" %}`)
	require.Len(t, nodes, 1)
	assert.Equal(t, "trans", nodes[0].TagName)
	assert.Equal(t, []string{`"hello world"`}, nodes[0].Bits)
}

func TestScanVariableSplitsFilterChain(t *testing.T) {
	nodes := templatenode.Scan("t.html", `{{ var|default:"x"|upper }}`)
	require.Len(t, nodes, 1)
	v := nodes[0]
	assert.Equal(t, templatenode.Variable, v.Kind)
	assert.Equal(t, "var", v.VarExpr)
	require.Len(t, v.Filters, 2)
	assert.Equal(t, "default", v.Filters[0].Name)
	assert.True(t, v.Filters[0].HasArg)
	assert.Equal(t, `"x"`, v.Filters[0].Arg)
	assert.Equal(t, "upper", v.Filters[1].Name)
	assert.False(t, v.Filters[1].HasArg)
}

func TestScanVariableFilterSpanCoversOnlyTheName(t *testing.T) {
	src := `{{ var|default:"x"|upper }}`
	nodes := templatenode.Scan("t.html", src)
	require.Len(t, nodes, 1)
	require.Len(t, nodes[0].Filters, 2)

	def := nodes[0].Filters[0]
	assert.Equal(t, "default", src[def.Span.Start:def.Span.End()])

	up := nodes[0].Filters[1]
	assert.Equal(t, "upper", src[up.Span.Start:up.Span.End()])
}

func TestScanVariableDoesNotSplitPipeInsideQuotedArg(t *testing.T) {
	nodes := templatenode.Scan("t.html", `{{ var|default:"a|b" }}`)
	require.Len(t, nodes, 1)
	require.Len(t, nodes[0].Filters, 1)
	assert.Equal(t, "default", nodes[0].Filters[0].Name)
	assert.Equal(t, `"a|b"`, nodes[0].Filters[0].Arg)
}

func TestScanCommentIsSeparatedFromSurroundingText(t *testing.T) {
	nodes := templatenode.Scan("t.html", `a{# note #}b`)
	require.Len(t, nodes, 3)
	assert.Equal(t, templatenode.Text, nodes[0].Kind)
	assert.Equal(t, "a", nodes[0].Text)
	assert.Equal(t, templatenode.Comment, nodes[1].Kind)
	assert.Equal(t, "note", nodes[1].Text)
	assert.Equal(t, templatenode.Text, nodes[2].Kind)
	assert.Equal(t, "b", nodes[2].Text)
}

func TestScanTagNotClosedByPercentBraceInsideQuotedArg(t *testing.T) {
	nodes := templatenode.Scan("t.html", `{% trans "a %} b" %}after`)
	require.Len(t, nodes, 2)
	require.Equal(t, templatenode.Tag, nodes[0].Kind)
	assert.Equal(t, "trans", nodes[0].TagName)
	assert.Equal(t, []string{`"a %} b"`}, nodes[0].Bits)
	assert.Equal(t, "after", nodes[1].Text)
}

func TestSpansCoverFullSourceContiguously(t *testing.T) {
	src := `x{% a %}y`
	nodes := templatenode.Scan("t.html", src)
	require.Len(t, nodes, 3)
	assert.Equal(t, 0, nodes[0].Span.Start)
	for i := 1; i < len(nodes); i++ {
		assert.Equal(t, nodes[i-1].Span.End(), nodes[i].Span.Start, "node %d should start where %d ends", i, i-1)
	}
	assert.Equal(t, len(src), nodes[len(nodes)-1].Span.End())
}
