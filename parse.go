package mdinline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extensionAST "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// BlockKind classifies an inline-bearing block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockCode
	BlockTableCell
)

// Block is one block of a parsed document reduced to its inline content.
type Block struct {
	Kind    BlockKind
	Level   int    // heading level
	Depth   int    // list / blockquote nesting
	Marker  string // list marker for the first block of an item
	Quote   bool
	Inlines []InlineNode
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

// ParseBlocks parses Markdown source and returns its inline-bearing blocks in
// document order.
func ParseBlocks(src []byte) ([]Block, error) {
	doc := newMarkdown().Parser().Parse(text.NewReader(src))
	type pendingMarker struct {
		item   ast.Node
		marker string
	}
	var (
		blocks  []Block
		markers []pendingMarker
	)
	take := func() string {
		if len(markers) == 0 {
			return ""
		}
		m := markers[len(markers)-1]
		markers = markers[:len(markers)-1]
		return m.marker
	}
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if len(markers) > 0 && markers[len(markers)-1].item == n {
				markers = markers[:len(markers)-1]
			}
			return ast.WalkContinue, nil
		}
		depth, quote := nesting(n)
		switch nd := n.(type) {
		case *ast.ListItem:
			markers = append(markers, pendingMarker{item: nd, marker: listMarker(nd)})
			return ast.WalkContinue, nil
		case *ast.Heading:
			blocks = append(blocks, Block{Kind: BlockHeading, Level: nd.Level, Depth: depth, Quote: quote, Marker: take(), Inlines: convertInlines(nd, src)})
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			blocks = append(blocks, Block{Kind: BlockParagraph, Depth: depth, Quote: quote, Marker: take(), Inlines: convertInlines(nd, src)})
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			code := strings.TrimRight(string(blockLines(nd, src)), "\n")
			blocks = append(blocks, Block{Kind: BlockCode, Depth: depth, Quote: quote, Marker: take(), Inlines: []InlineNode{Code{Content: code}}})
			return ast.WalkSkipChildren, nil
		case *extensionAST.TableCell:
			blocks = append(blocks, Block{Kind: BlockTableCell, Depth: depth, Quote: quote, Inlines: convertInlines(nd, src)})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("mdinline: walking document: %w", err)
	}
	return blocks, nil
}

// ParseInlines parses Markdown source into one inline sequence, with blocks
// separated by line breaks.
func ParseInlines(src []byte) ([]InlineNode, error) {
	blocks, err := ParseBlocks(src)
	if err != nil {
		return nil, err
	}
	var out []InlineNode
	for i, b := range blocks {
		if i > 0 {
			out = append(out, LineBreak{})
		}
		out = append(out, b.Inlines...)
	}
	return out, nil
}

func nesting(n ast.Node) (depth int, quote bool) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.(type) {
		case *ast.List:
			depth++
		case *ast.Blockquote:
			quote = true
		}
	}
	if depth > 0 {
		depth--
	}
	return depth, quote
}

func listMarker(li *ast.ListItem) string {
	list, ok := li.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "•"
	}
	start := list.Start
	if start == 0 {
		start = 1
	}
	index := 0
	for c := list.FirstChild(); c != nil && c != ast.Node(li); c = c.NextSibling() {
		index++
	}
	return fmt.Sprintf("%d%c", start+index, list.Marker)
}

func blockLines(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.Bytes()
}

// convertInlines maps the inline children of a goldmark block node.
func convertInlines(parent ast.Node, src []byte) []InlineNode {
	var out []InlineNode
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		out = append(out, convertInline(child, src)...)
	}
	return out
}

func convertInline(n ast.Node, src []byte) []InlineNode {
	switch c := n.(type) {
	case *ast.Text:
		var out []InlineNode
		v := c.Segment.Value(src)
		if !c.IsRaw() {
			v = util.UnescapePunctuations(util.ResolveEntityNames(util.ResolveNumericReferences(v)))
		}
		if len(v) > 0 {
			out = append(out, Text{Content: string(v)})
		}
		switch {
		case c.HardLineBreak():
			out = append(out, LineBreak{})
		case c.SoftLineBreak():
			out = append(out, SoftBreak{})
		}
		return out
	case *ast.String:
		return []InlineNode{Text{Content: string(c.Value)}}
	case *ast.CodeSpan:
		var sb strings.Builder
		for t := c.FirstChild(); t != nil; t = t.NextSibling() {
			switch tn := t.(type) {
			case *ast.Text:
				sb.Write(tn.Segment.Value(src))
			case *ast.String:
				sb.Write(tn.Value)
			}
		}
		return []InlineNode{Code{Content: strings.ReplaceAll(sb.String(), "\n", " ")}}
	case *ast.RawHTML:
		var sb strings.Builder
		for i := 0; i < c.Segments.Len(); i++ {
			seg := c.Segments.At(i)
			sb.Write(seg.Value(src))
		}
		return []InlineNode{HTML{Raw: sb.String()}}
	case *ast.Emphasis:
		kids := convertInlines(c, src)
		if c.Level >= 2 {
			return []InlineNode{Strong{Children: kids}}
		}
		return []InlineNode{Emphasis{Children: kids}}
	case *extensionAST.Strikethrough:
		return []InlineNode{Strikethrough{Children: convertInlines(c, src)}}
	case *ast.Link:
		return []InlineNode{Link{Destination: string(c.Destination), Children: convertInlines(c, src)}}
	case *ast.AutoLink:
		label := string(c.Label(src))
		dest := string(c.URL(src))
		if label == "" {
			label = dest
		}
		return []InlineNode{Link{Destination: dest, Children: []InlineNode{Text{Content: label}}}}
	case *ast.Image:
		kids := convertInlines(c, src)
		return []InlineNode{Image{Source: string(c.Destination), Alt: PlainText(kids), Children: kids}}
	case *extensionAST.TaskCheckBox:
		if c.IsChecked {
			return []InlineNode{Text{Content: "[x] "}}
		}
		return []InlineNode{Text{Content: "[ ] "}}
	default:
		if n.HasChildren() {
			return convertInlines(n, src)
		}
	}
	return nil
}
