package mdinline

import (
	"fmt"
	"image"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// SoftBreakMode controls how soft breaks are rendered.
type SoftBreakMode int

const (
	SoftBreakSpace SoftBreakMode = iota
	SoftBreakLine
)

func (m SoftBreakMode) String() string {
	if m == SoftBreakLine {
		return "line"
	}
	return "space"
}

// ParseSoftBreakMode accepts "space" (or "") and "line" / "linebreak".
func ParseSoftBreakMode(s string) (SoftBreakMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "space":
		return SoftBreakSpace, nil
	case "line", "linebreak", "line-break":
		return SoftBreakLine, nil
	default:
		return SoftBreakSpace, fmt.Errorf("mdinline: unknown soft break mode: %s", s)
	}
}

// Attachment records where an image node sat in the rendered text. Offset
// is a byte offset into StyledText.String(). Attachments are only produced
// for images present in RenderOptions.Images.
type Attachment struct {
	Offset int
	Source string
	Alt    string
	Image  image.Image
}

// RenderOptions configure a single Render call.
type RenderOptions struct {
	// BaseURL resolves relative link destinations. May be nil.
	BaseURL *url.URL
	// Styles for styled inlines; nil uses DefaultTextStyles.
	Styles     *TextStyles
	SoftBreak  SoftBreakMode
	Attributes Attributes
	// Images is a resolved snapshot, usually from ResolveImages.
	Images map[string]image.Image
	// MaxDepth drops subtrees nested deeper than this. Zero means no limit.
	MaxDepth int
}

// Rendered is the output of Render.
type Rendered struct {
	Text        StyledText
	Attachments []Attachment
}

// renderState is owned by exactly one Render call.
type renderState struct {
	opts                     RenderOptions
	styles                   TextStyles
	out                      Rendered
	shouldSkipNextWhitespace bool
}

// Render walks nodes and produces styled text. The current attribute set is
// passed down the recursion by value, so styling from a container applies
// to its subtree only. Render never fails: malformed markup is emitted
// literally and unresolvable links lose their link attribute.
func Render(nodes []InlineNode, opts RenderOptions) Rendered {
	st := &renderState{opts: opts}
	if opts.Styles != nil {
		st.styles = *opts.Styles
	} else {
		st.styles = DefaultTextStyles()
	}
	st.renderNodes(nodes, opts.Attributes, 1)
	return st.out
}

// RenderText is Render without attachments.
func RenderText(nodes []InlineNode, opts RenderOptions) StyledText {
	return Render(nodes, opts).Text
}

func (st *renderState) renderNodes(nodes []InlineNode, attrs Attributes, depth int) {
	if st.opts.MaxDepth > 0 && depth > st.opts.MaxDepth {
		return
	}
	for _, n := range nodes {
		st.render(n, attrs, depth)
	}
}

func (st *renderState) render(n InlineNode, attrs Attributes, depth int) {
	switch v := n.(type) {
	case Text:
		st.renderText(v.Content, attrs)
	case SoftBreak:
		st.renderSoftBreak(attrs)
	case LineBreak:
		st.renderLineBreak(attrs)
	case Code:
		st.out.Text.Append(v.Content, st.scoped(st.styles.Code, attrs))
	case HTML:
		st.renderHTML(v.Raw, attrs)
	case Emphasis:
		st.renderNodes(v.Children, st.scoped(st.styles.Emphasis, attrs), depth+1)
	case Strong:
		st.renderNodes(v.Children, st.scoped(st.styles.Strong, attrs), depth+1)
	case Strikethrough:
		st.renderNodes(v.Children, st.scoped(st.styles.Strikethrough, attrs), depth+1)
	case Link:
		linked := st.scoped(st.styles.Link, attrs)
		linked.Link = resolveURL(v.Destination, st.opts.BaseURL)
		st.renderNodes(v.Children, linked, depth+1)
	case Image:
		st.renderImage(v)
	}
}

func (st *renderState) scoped(style TextStyle, attrs Attributes) Attributes {
	return Merge(attrs, Resolve(style, attrs))
}

func (st *renderState) renderText(s string, attrs Attributes) {
	if st.shouldSkipNextWhitespace {
		st.shouldSkipNextWhitespace = false
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
	}
	st.out.Text.Append(s, attrs)
}

func (st *renderState) renderSoftBreak(attrs Attributes) {
	switch {
	case st.opts.SoftBreak == SoftBreakLine:
		st.renderLineBreak(attrs)
	case st.shouldSkipNextWhitespace:
		st.shouldSkipNextWhitespace = false
	default:
		st.out.Text.Append(" ", attrs)
	}
}

func (st *renderState) renderLineBreak(attrs Attributes) {
	st.out.Text.Append("\n", attrs)
}

func (st *renderState) renderHTML(raw string, attrs Attributes) {
	if name, ok := htmlTagName(raw); ok && name == "br" {
		st.renderLineBreak(attrs)
		st.shouldSkipNextWhitespace = true
		return
	}
	st.renderText(raw, attrs)
}

// renderImage emits no text. When the image has been resolved its position
// is recorded so a layout layer can place it.
func (st *renderState) renderImage(img Image) {
	resolved, ok := st.opts.Images[img.Source]
	if !ok || resolved == nil {
		return
	}
	st.out.Attachments = append(st.out.Attachments, Attachment{
		Offset: st.out.Text.Len(),
		Source: img.Source,
		Alt:    img.Alt,
		Image:  resolved,
	})
}

// htmlTagName returns the lower-cased name of raw when raw is exactly one
// start, end or self-closing tag.
func htmlTagName(raw string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(strings.TrimSpace(raw)))
	switch z.Next() {
	case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
	default:
		return "", false
	}
	name, _ := z.TagName()
	tag := string(name)
	if z.Next() != html.ErrorToken {
		return "", false
	}
	return strings.ToLower(tag), true
}

// resolveURL resolves dest against base. Empty destinations and strings
// that do not parse as URLs give nil.
func resolveURL(dest string, base *url.URL) *url.URL {
	if dest == "" || strings.IndexFunc(dest, unicode.IsSpace) >= 0 {
		return nil
	}
	u, err := url.Parse(dest)
	if err != nil {
		return nil
	}
	if base != nil {
		return base.ResolveReference(u)
	}
	return u
}
