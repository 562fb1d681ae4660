package mdinline

import "image/color"

// TextStyle contributes attributes on top of an inherited set. Apply must
// not modify anything reachable from its argument; it returns the updated
// container.
type TextStyle interface {
	Apply(Attributes) Attributes
}

// TextStyleFunc adapts a function to TextStyle.
type TextStyleFunc func(Attributes) Attributes

func (f TextStyleFunc) Apply(a Attributes) Attributes { return f(a) }

// Resolve applies style to base. A nil style leaves base unchanged.
func Resolve(style TextStyle, base Attributes) Attributes {
	if style == nil {
		return base
	}
	return style.Apply(base)
}

type styleList []TextStyle

func (l styleList) Apply(a Attributes) Attributes {
	for _, s := range l {
		a = Resolve(s, a)
	}
	return a
}

// Styles composes styles, applying them in order.
func Styles(styles ...TextStyle) TextStyle { return styleList(styles) }

// ForegroundColor sets the text colour. A nil colour leaves it untouched.
func ForegroundColor(c color.Color) TextStyle {
	return TextStyleFunc(func(a Attributes) Attributes {
		if c != nil {
			a.ForegroundColor = c
		}
		return a
	})
}

// BackgroundColor sets the run background. A nil colour leaves it untouched.
func BackgroundColor(c color.Color) TextStyle {
	return TextStyleFunc(func(a Attributes) Attributes {
		if c != nil {
			a.BackgroundColor = c
		}
		return a
	})
}

// UnderlineStyle sets the underline decoration. A nil style leaves it untouched.
func UnderlineStyle(s *LineStyle) TextStyle {
	return TextStyleFunc(func(a Attributes) Attributes {
		if s != nil {
			a.UnderlineStyle = ptr(*s)
		}
		return a
	})
}

// StrikethroughStyle sets the strikethrough decoration. A nil style leaves it untouched.
func StrikethroughStyle(s *LineStyle) TextStyle {
	return TextStyleFunc(func(a Attributes) Attributes {
		if s != nil {
			a.StrikethroughStyle = ptr(*s)
		}
		return a
	})
}

// Kerning sets the kern attribute in pixels.
func Kerning(v float64) TextStyle {
	return TextStyleFunc(func(a Attributes) Attributes {
		a.Kern = ptr(v)
		return a
	})
}

// Tracking sets extra spacing between every glyph in pixels.
func Tracking(v float64) TextStyle {
	return TextStyleFunc(func(a Attributes) Attributes {
		a.Tracking = ptr(v)
		return a
	})
}

// BaselineOffset raises (positive) or lowers the run baseline in pixels.
func BaselineOffset(v float64) TextStyle {
	return TextStyleFunc(func(a Attributes) Attributes {
		a.BaselineOffset = ptr(v)
		return a
	})
}

func withFont(edit func(*FontProperties)) TextStyle {
	return TextStyleFunc(func(a Attributes) Attributes {
		p := a.fontProperties()
		edit(&p)
		a.FontProperties = &p
		return a
	})
}

// FontWeight sets the font weight.
func FontWeight(w Weight) TextStyle {
	return withFont(func(p *FontProperties) { p.Weight = w })
}

// FontStyle sets the font slant.
func FontStyle(s Slant) TextStyle {
	return withFont(func(p *FontProperties) { p.Slant = s })
}

// FontFamilyVariant switches between proportional and monospaced families.
func FontFamilyVariant(v FamilyVariant) TextStyle {
	return withFont(func(p *FontProperties) { p.Variant = v })
}

// FontSize scales the inherited size by em.
func FontSize(em float64) TextStyle {
	return withFont(func(p *FontProperties) {
		if p.Scale <= 0 {
			p.Scale = 1
		}
		p.Scale *= em
	})
}

// FixedFontSize sets an absolute size in points and drops any inherited scale.
func FixedFontSize(pt float64) TextStyle {
	return withFont(func(p *FontProperties) {
		p.Size = pt
		p.Scale = 0
	})
}

// TextStyles bundles the styles applied to each styled inline kind.
type TextStyles struct {
	Code          TextStyle
	Emphasis      TextStyle
	Strong        TextStyle
	Strikethrough TextStyle
	Link          TextStyle
}

var (
	linkColor   = color.RGBA{0x06, 0x4F, 0xBD, 0xFF}
	codeBGColor = color.RGBA{0xF5, 0xF5, 0xF7, 0xFF}
)

// DefaultTextStyles returns the built-in inline styles.
func DefaultTextStyles() TextStyles {
	single := LineSingle
	return TextStyles{
		Code: Styles(
			FontFamilyVariant(FamilyMonospaced),
			FontSize(0.94),
			BackgroundColor(codeBGColor),
		),
		Emphasis:      FontStyle(SlantItalic),
		Strong:        FontWeight(WeightSemibold),
		Strikethrough: StrikethroughStyle(&single),
		Link: Styles(
			ForegroundColor(linkColor),
			UnderlineStyle(&single),
		),
	}
}
