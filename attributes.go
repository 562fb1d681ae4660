package mdinline

import (
	"image/color"
	"net/url"
)

// AttributeKind names one key of an Attributes container.
type AttributeKind int

const (
	AttrFont AttributeKind = iota
	AttrForegroundColor
	AttrBackgroundColor
	AttrKern
	AttrTracking
	AttrUnderlineStyle
	AttrStrikethroughStyle
	AttrBaselineOffset
	AttrLink
	AttrParagraphStyle
	AttrFontProperties
)

var attributeKindNames = [...]string{
	AttrFont:               "font",
	AttrForegroundColor:    "foregroundColor",
	AttrBackgroundColor:    "backgroundColor",
	AttrKern:               "kern",
	AttrTracking:           "tracking",
	AttrUnderlineStyle:     "underlineStyle",
	AttrStrikethroughStyle: "strikethroughStyle",
	AttrBaselineOffset:     "baselineOffset",
	AttrLink:               "link",
	AttrParagraphStyle:     "paragraphStyle",
	AttrFontProperties:     "fontProperties",
}

func (k AttributeKind) String() string {
	if k < 0 || int(k) >= len(attributeKindNames) {
		return "unknown"
	}
	return attributeKindNames[k]
}

// LineStyle describes an underline or strikethrough decoration.
type LineStyle int

const (
	LineNone LineStyle = iota
	LineSingle
	LineThick
	LineDouble
)

// Alignment of a paragraph's lines.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// ParagraphStyle holds line layout properties.
type ParagraphStyle struct {
	Alignment       Alignment
	LineSpacing     float64 // multiple of the font size, 0 means default
	FirstLineIndent float64 // pixels
}

// Attributes is a rich text attribute set. Every key is optional; a nil
// field means the key is unset. Attributes are used as values: styles and
// merges return new containers and never write through the pointers of
// their inputs.
type Attributes struct {
	Font               *FontAndFace
	ForegroundColor    color.Color
	BackgroundColor    color.Color
	Kern               *float64
	Tracking           *float64
	UnderlineStyle     *LineStyle
	StrikethroughStyle *LineStyle
	BaselineOffset     *float64
	Link               *url.URL
	ParagraphStyle     *ParagraphStyle
	FontProperties     *FontProperties
}

// Merge returns a container holding, for every key, b's value when b sets
// it and a's value otherwise.
func Merge(a, b Attributes) Attributes {
	if b.Font != nil {
		a.Font = b.Font
	}
	if b.ForegroundColor != nil {
		a.ForegroundColor = b.ForegroundColor
	}
	if b.BackgroundColor != nil {
		a.BackgroundColor = b.BackgroundColor
	}
	if b.Kern != nil {
		a.Kern = b.Kern
	}
	if b.Tracking != nil {
		a.Tracking = b.Tracking
	}
	if b.UnderlineStyle != nil {
		a.UnderlineStyle = b.UnderlineStyle
	}
	if b.StrikethroughStyle != nil {
		a.StrikethroughStyle = b.StrikethroughStyle
	}
	if b.BaselineOffset != nil {
		a.BaselineOffset = b.BaselineOffset
	}
	if b.Link != nil {
		a.Link = b.Link
	}
	if b.ParagraphStyle != nil {
		a.ParagraphStyle = b.ParagraphStyle
	}
	if b.FontProperties != nil {
		a.FontProperties = b.FontProperties
	}
	return a
}

// Merging is Merge(a, b).
func (a Attributes) Merging(b Attributes) Attributes { return Merge(a, b) }

// Has reports whether kind is set.
func (a Attributes) Has(kind AttributeKind) bool {
	switch kind {
	case AttrFont:
		return a.Font != nil
	case AttrForegroundColor:
		return a.ForegroundColor != nil
	case AttrBackgroundColor:
		return a.BackgroundColor != nil
	case AttrKern:
		return a.Kern != nil
	case AttrTracking:
		return a.Tracking != nil
	case AttrUnderlineStyle:
		return a.UnderlineStyle != nil
	case AttrStrikethroughStyle:
		return a.StrikethroughStyle != nil
	case AttrBaselineOffset:
		return a.BaselineOffset != nil
	case AttrLink:
		return a.Link != nil
	case AttrParagraphStyle:
		return a.ParagraphStyle != nil
	case AttrFontProperties:
		return a.FontProperties != nil
	}
	return false
}

// Kinds lists the set keys in declaration order.
func (a Attributes) Kinds() []AttributeKind {
	var kinds []AttributeKind
	for k := AttrFont; k <= AttrFontProperties; k++ {
		if a.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// IsZero reports whether no key is set.
func (a Attributes) IsZero() bool { return len(a.Kinds()) == 0 }

// Equal compares two containers by value.
func (a Attributes) Equal(b Attributes) bool {
	return a.Font == b.Font &&
		equalColor(a.ForegroundColor, b.ForegroundColor) &&
		equalColor(a.BackgroundColor, b.BackgroundColor) &&
		equalPtr(a.Kern, b.Kern) &&
		equalPtr(a.Tracking, b.Tracking) &&
		equalPtr(a.UnderlineStyle, b.UnderlineStyle) &&
		equalPtr(a.StrikethroughStyle, b.StrikethroughStyle) &&
		equalPtr(a.BaselineOffset, b.BaselineOffset) &&
		equalURL(a.Link, b.Link) &&
		equalPtr(a.ParagraphStyle, b.ParagraphStyle) &&
		equalPtr(a.FontProperties, b.FontProperties)
}

// ResolveFonts binds Font to the face in fonts matching FontProperties.
// The properties stay in place since they still carry the point size.
func (a Attributes) ResolveFonts(fonts Fonts) Attributes {
	if a.FontProperties == nil && a.Font != nil {
		return a
	}
	if f := fonts.Face(a.fontProperties()); f != nil {
		a.Font = f
	}
	return a
}

// fontProperties returns the current properties or the zero value.
func (a Attributes) fontProperties() FontProperties {
	if a.FontProperties == nil {
		return FontProperties{}
	}
	return *a.FontProperties
}

func equalColor(a, b color.Color) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}

func equalURL(a, b *url.URL) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func ptr[T any](v T) *T { return &v }
