package markup

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRichTextHeadingAndParagraph(t *testing.T) {
	t.Parallel()

	got, err := RichText([]byte(`<html><body><h1>Title</h1><p>Hello <b>world</b></p></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "<b>Title</b>\n\nHello <b>world</b>\n\n", got)
}

func TestRichTextDropsHeadAndScripts(t *testing.T) {
	t.Parallel()

	doc := `<!DOCTYPE html><html><head><meta charset="UTF-8"><title>T</title><style>p{}</style></head>
<body><script>alert(1)</script><p>Body</p></body></html>`
	got, err := RichText([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Body\n\n", got)
}

func TestRichTextAnchorsAndBreaks(t *testing.T) {
	t.Parallel()

	doc := `<p>See <a href="https://example.org/?a=1&amp;b=2">the   <em>source</em></a><br>next line</p><a>bare</a>`
	got, err := RichText([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "See <a href=\"https://example.org/?a=1&amp;b=2\">the source</a>\nnext line\n\nbare", got)
}

func TestRichTextEscapesText(t *testing.T) {
	t.Parallel()

	got, err := RichText([]byte(`<p>1 &lt; 2 &amp; 3</p>`))
	require.NoError(t, err)
	assert.Equal(t, "1 &lt; 2 &amp; 3\n\n", got)
}

func TestRichTextCollapsesBlocks(t *testing.T) {
	t.Parallel()

	doc := `<div><div><p>one</p></div>


	<section><p>two</p></section></div>`
	got, err := RichText([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo\n\n", got)
	assert.NotContains(t, got, "\n\n\n")
}

func TestPlainTextRoundTripLength(t *testing.T) {
	t.Parallel()

	doc := `<p>Hello <b>bold</b> and <a href="https://x.test">link &amp; more</a></p><p>Второй абзац 😀</p>`
	rich, err := RichText([]byte(doc))
	require.NoError(t, err)

	expected := "Hello bold and link & more Второй абзац 😀"
	assert.Equal(t, expected, PlainText(rich))
	assert.Equal(t, UTF16Len(expected), MeasuredLen(rich))
}

func TestPlainTextSeparatesBlockTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello world !", PlainText(`<b>Hello</b> <a href="https://example.com">world</a><br>!`))
	assert.Equal(t, "ab", PlainText(`<b>a</b><i>b</i>`))
}

func TestUTF16Len(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, UTF16Len("😀"))
	assert.Equal(t, 3, UTF16Len("abc"))
	assert.Equal(t, 1, UTF16Len("я"))
}

func TestShortFormBoundary(t *testing.T) {
	t.Parallel()

	exact := strings.Repeat("a", ShortFormLimit)
	assert.True(t, FitsShortForm(exact, ShortFormLimit))
	assert.False(t, FitsShortForm(exact+"a", ShortFormLimit))

	// tags do not count, surrogate pairs count twice
	tagged := "<b>" + strings.Repeat("😀", ShortFormLimit/2) + "</b>"
	assert.True(t, FitsShortForm(tagged, 0))
	assert.False(t, FitsShortForm(tagged+"x", 0))
}

func TestNodesAllowListAndAttrs(t *testing.T) {
	t.Parallel()

	doc := `<html><body>
<h1>Head</h1>
<p class="lead">Intro <a href="https://a.test" target="_blank">link</a> <span>inner</span></p>
<div>loose <b>text</b></div>
<figure><img src="https://img.test/x.png" alt="x"><figcaption>cap</figcaption></figure>
<h6>Small</h6>
<script>nope()</script>
</body></html>`
	nodes, err := Nodes([]byte(doc))
	require.NoError(t, err)

	encoded, err := EncodeNodes(nodes)
	require.NoError(t, err)

	var decoded []any
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	s := string(encoded)
	assert.Contains(t, s, `{"tag":"h3","children":["Head"]}`)
	assert.Contains(t, s, `{"tag":"a","attrs":{"href":"https://a.test"},"children":["link"]}`)
	assert.Contains(t, s, `{"tag":"p","children":["loose ",{"tag":"b","children":["text"]}]}`)
	assert.Contains(t, s, `{"tag":"img","attrs":{"src":"https://img.test/x.png"}}`)
	assert.Contains(t, s, `{"tag":"h4","children":["Small"]}`)
	assert.NotContains(t, s, "class")
	assert.NotContains(t, s, "target")
	assert.NotContains(t, s, "nope")
	assert.NotContains(t, s, `"tag":"span"`)
}

func TestNodesKeepHTMLUnescapedInJSON(t *testing.T) {
	t.Parallel()

	encoded, err := EncodeNodes([]Node{Elem("p", TextNode("a < b & c"))})
	require.NoError(t, err)
	assert.Equal(t, `[{"tag":"p","children":["a < b & c"]}]`, string(encoded))
}

func TestFitNodesKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	// 3-byte runes so a byte cut at the budget lands mid-character
	text := strings.Repeat("漢", 70000/3+1)
	out, cut, err := FitNodes([]Node{Elem("p", TextNode(text))}, LongFormBudget)
	require.NoError(t, err)
	assert.True(t, cut)
	assert.LessOrEqual(t, len(out), LongFormBudget)
	assert.True(t, utf8.Valid(out))

	assert.Equal(t, "漢漢", jsonPrefix("漢漢漢", 8))
	assert.Equal(t, `a`, jsonPrefix(`a"b`, 2))
}

func TestFitNodesTruncatesLargePayload(t *testing.T) {
	t.Parallel()

	var nodes []Node
	for i := 0; i < 300; i++ {
		nodes = append(nodes, Elem("p", TextNode(strings.Repeat("é漢a", 40))))
	}
	full, err := EncodeNodes(nodes)
	require.NoError(t, err)
	require.Greater(t, len(full), 70000-1)

	out, cut, err := FitNodes(nodes, LongFormBudget)
	require.NoError(t, err)
	assert.True(t, cut)
	assert.LessOrEqual(t, len(out), LongFormBudget)
	assert.True(t, utf8.Valid(out))
	assert.True(t, strings.HasSuffix(string(out), `{"tag":"p","children":["`+TruncationMarker+`"]}]`))

	var decoded []any
	require.NoError(t, json.Unmarshal(out, &decoded))
}

func TestFitNodesCutsInsideSingleHugeNode(t *testing.T) {
	t.Parallel()

	nodes := []Node{Elem("p", TextNode(strings.Repeat("ж\"", 30000)))}
	out, cut, err := FitNodes(nodes, LongFormBudget)
	require.NoError(t, err)
	assert.True(t, cut)
	assert.LessOrEqual(t, len(out), LongFormBudget)
	assert.Greater(t, len(out), LongFormBudget-16)
	assert.True(t, utf8.Valid(out))

	var decoded []any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 2)
}

func TestFitNodesLeavesSmallPayload(t *testing.T) {
	t.Parallel()

	nodes := []Node{Elem("p", TextNode("tiny"))}
	out, cut, err := FitNodes(nodes, LongFormBudget)
	require.NoError(t, err)
	assert.False(t, cut)
	assert.Equal(t, `[{"tag":"p","children":["tiny"]}]`, string(out))
}

func TestTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Main Head", Title([]byte("<html><head><title>Doc</title></head><body><h2>x</h2><h1>Main\n  Head</h1></body></html>")))
	assert.Equal(t, "Doc", Title([]byte("<html><head><title> Doc </title></head><body><p>x</p></body></html>")))
	assert.Equal(t, "", Title([]byte("<p>nothing</p>")))
}
