package mdinline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInlinesMapsNodes(t *testing.T) {
	nodes, err := ParseInlines([]byte("*a* **b** ~~c~~ `d` [e](https://x.test/)"))
	require.NoError(t, err)
	want := []InlineNode{
		Emphasis{Children: []InlineNode{Text{"a"}}},
		Text{" "},
		Strong{Children: []InlineNode{Text{"b"}}},
		Text{" "},
		Strikethrough{Children: []InlineNode{Text{"c"}}},
		Text{" "},
		Code{"d"},
		Text{" "},
		Link{Destination: "https://x.test/", Children: []InlineNode{Text{"e"}}},
	}
	assert.True(t, EqualNodes(want, nodes), "got %#v", nodes)
}

func TestParseInlinesBreaks(t *testing.T) {
	nodes, err := ParseInlines([]byte("one\ntwo  \nthree"))
	require.NoError(t, err)
	want := []InlineNode{Text{"one"}, SoftBreak{}, Text{"two"}, LineBreak{}, Text{"three"}}
	assert.True(t, EqualNodes(want, nodes), "got %#v", nodes)
}

func TestParseInlinesResolvesEscapesAndEntities(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`a \* b`, "a * b"},
		{"AT&amp;T &copy;", "AT&T ©"},
		{"star &#42; hex &#x2A;", "star * hex *"},
		{"`\\* &amp;`", "\\* &amp;"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			nodes, err := ParseInlines([]byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, RenderText(nodes, RenderOptions{}).String())
		})
	}
}

func TestParseInlinesHTMLAndImage(t *testing.T) {
	nodes, err := ParseInlines([]byte("a<br>b ![the *alt*](pic.png)"))
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	assert.Equal(t, HTML{Raw: "<br>"}, nodes[1])
	img, ok := nodes[3].(Image)
	require.True(t, ok, "got %#v", nodes[3])
	assert.Equal(t, "pic.png", img.Source)
	assert.Equal(t, "the alt", img.Alt)

	assert.Equal(t, "a\nb ", RenderText(nodes, RenderOptions{}).String())
}

func TestParseInlinesAutoLink(t *testing.T) {
	nodes, err := ParseInlines([]byte("see <https://example.com/a>"))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	link, ok := nodes[1].(Link)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", link.Destination)
	assert.Equal(t, "https://example.com/a", PlainText(link.Children))
}

func TestParseBlocks(t *testing.T) {
	src := "# Title\n\npara\n\n- one\n- two\n  1. nested\n\n> quoted\n\n```\ncode\n```\n"
	blocks, err := ParseBlocks([]byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 7)

	assert.Equal(t, BlockHeading, blocks[0].Kind)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, "Title", PlainText(blocks[0].Inlines))

	assert.Equal(t, BlockParagraph, blocks[1].Kind)
	assert.Empty(t, blocks[1].Marker)

	assert.Equal(t, "•", blocks[2].Marker)
	assert.Equal(t, 0, blocks[2].Depth)
	assert.Equal(t, "•", blocks[3].Marker)
	assert.Equal(t, "1.", blocks[4].Marker)
	assert.Equal(t, 1, blocks[4].Depth)
	assert.Equal(t, "nested", PlainText(blocks[4].Inlines))

	assert.True(t, blocks[5].Quote)
	assert.Equal(t, "quoted", PlainText(blocks[5].Inlines))
	assert.Equal(t, BlockCode, blocks[6].Kind)
}

func TestParseBlocksCodeAndTable(t *testing.T) {
	src := "```go\nx := 1\ny := 2\n```\n\n| a | *b* |\n|---|---|\n| c | d |\n"
	blocks, err := ParseBlocks([]byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	assert.Equal(t, BlockCode, blocks[0].Kind)
	assert.Equal(t, []InlineNode{Code{Content: "x := 1\ny := 2"}}, blocks[0].Inlines)

	var cells []string
	for _, b := range blocks[1:] {
		assert.Equal(t, BlockTableCell, b.Kind)
		cells = append(cells, PlainText(b.Inlines))
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, cells)
}

func TestParseTaskList(t *testing.T) {
	blocks, err := ParseBlocks([]byte("- [x] done\n- [ ] todo\n"))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Regexp(t, `^\[x\] ?done$`, PlainText(blocks[0].Inlines))
	assert.Regexp(t, `^\[ \] ?todo$`, PlainText(blocks[1].Inlines))
}
