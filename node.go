package mdinline

import "strings"

// InlineNode is one unit of parsed inline Markdown content. The set of
// implementations is closed; see the concrete types below.
type InlineNode interface {
	inlineNode()
}

// Leaf nodes.
type (
	// Text is a run of literal characters.
	Text struct{ Content string }
	// SoftBreak is a single source newline that does not force a line break.
	SoftBreak struct{}
	// LineBreak is a hard line break.
	LineBreak struct{}
	// Code is an inline code span.
	Code struct{ Content string }
	// HTML is raw inline markup, kept verbatim.
	HTML struct{ Raw string }
)

// Container nodes.
type (
	Emphasis      struct{ Children []InlineNode }
	Strong        struct{ Children []InlineNode }
	Strikethrough struct{ Children []InlineNode }

	Link struct {
		Destination string
		Children    []InlineNode
	}

	// Image references an inline image. Alt is the plain text of Children.
	Image struct {
		Source   string
		Alt      string
		Children []InlineNode
	}
)

func (Text) inlineNode()          {}
func (SoftBreak) inlineNode()     {}
func (LineBreak) inlineNode()     {}
func (Code) inlineNode()          {}
func (HTML) inlineNode()          {}
func (Emphasis) inlineNode()      {}
func (Strong) inlineNode()        {}
func (Strikethrough) inlineNode() {}
func (Link) inlineNode()          {}
func (Image) inlineNode()         {}

// children returns the child sequence of container nodes and nil for leaves.
func children(n InlineNode) []InlineNode {
	switch v := n.(type) {
	case Emphasis:
		return v.Children
	case Strong:
		return v.Children
	case Strikethrough:
		return v.Children
	case Link:
		return v.Children
	case Image:
		return v.Children
	}
	return nil
}

// ImageReference identifies an image by its source. Two references with the
// same Source are the same image.
type ImageReference struct {
	Source string
	Alt    string
}

// CollectImages returns every distinct image reachable from nodes, in the
// order each source is first seen.
func CollectImages(nodes []InlineNode) []ImageReference {
	var refs []ImageReference
	seen := make(map[string]bool)
	var walk func([]InlineNode)
	walk = func(list []InlineNode) {
		for _, n := range list {
			if img, ok := n.(Image); ok && !seen[img.Source] {
				seen[img.Source] = true
				refs = append(refs, ImageReference{Source: img.Source, Alt: img.Alt})
			}
			walk(children(n))
		}
	}
	walk(nodes)
	return refs
}

// EqualNodes reports whether a and b are structurally identical.
func EqualNodes(a, b []InlineNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalNode(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalNode(a, b InlineNode) bool {
	switch x := a.(type) {
	case Text, SoftBreak, LineBreak, Code, HTML:
		return a == b
	case Emphasis:
		y, ok := b.(Emphasis)
		return ok && EqualNodes(x.Children, y.Children)
	case Strong:
		y, ok := b.(Strong)
		return ok && EqualNodes(x.Children, y.Children)
	case Strikethrough:
		y, ok := b.(Strikethrough)
		return ok && EqualNodes(x.Children, y.Children)
	case Link:
		y, ok := b.(Link)
		return ok && x.Destination == y.Destination && EqualNodes(x.Children, y.Children)
	case Image:
		y, ok := b.(Image)
		return ok && x.Source == y.Source && x.Alt == y.Alt && EqualNodes(x.Children, y.Children)
	}
	return a == nil && b == nil
}

// PlainText concatenates the textual content of nodes, turning breaks into
// spaces. Raw HTML and image children are skipped.
func PlainText(nodes []InlineNode) string {
	var sb strings.Builder
	var walk func([]InlineNode)
	walk = func(list []InlineNode) {
		for _, n := range list {
			switch v := n.(type) {
			case Text:
				sb.WriteString(v.Content)
			case Code:
				sb.WriteString(v.Content)
			case SoftBreak, LineBreak:
				sb.WriteByte(' ')
			case HTML, Image:
			default:
				walk(children(n))
			}
		}
	}
	walk(nodes)
	return sb.String()
}
