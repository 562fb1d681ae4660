package mdinline

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var blue = color.RGBA{0, 0, 0xFF, 0xFF}

func TestMergeRightBiased(t *testing.T) {
	got := Merge(Attributes{ForegroundColor: red}, Attributes{ForegroundColor: blue})
	assert.True(t, equalColor(blue, got.ForegroundColor))

	got = Merge(Attributes{ForegroundColor: red}, Attributes{})
	assert.True(t, equalColor(red, got.ForegroundColor))

	got = Merge(Attributes{}, Attributes{Kern: ptr(1.5)})
	require.NotNil(t, got.Kern)
	assert.Equal(t, 1.5, *got.Kern)
}

func TestMergeIsPerKey(t *testing.T) {
	single := LineSingle
	a := Attributes{ForegroundColor: red, Kern: ptr(1.0)}
	b := Attributes{UnderlineStyle: &single, Kern: ptr(2.0)}
	got := a.Merging(b)
	assert.Equal(t, []AttributeKind{AttrForegroundColor, AttrKern, AttrUnderlineStyle}, got.Kinds())
	assert.Equal(t, 2.0, *got.Kern)
	assert.Equal(t, 1.0, *a.Kern, "inputs are untouched")
}

func TestMergeAssociative(t *testing.T) {
	a := Attributes{ForegroundColor: red, Kern: ptr(1.0)}
	b := Attributes{ForegroundColor: blue, BaselineOffset: ptr(2.0)}
	c := Attributes{Kern: ptr(3.0), Link: mustURL(t, "https://example.com")}
	assert.True(t, Merge(Merge(a, b), c).Equal(Merge(a, Merge(b, c))))
}

func TestAttributesEqual(t *testing.T) {
	assert.True(t, Attributes{}.Equal(Attributes{}))
	assert.True(t, Attributes{ForegroundColor: red}.Equal(Attributes{ForegroundColor: color.NRGBA{0xFF, 0, 0, 0xFF}}))
	assert.False(t, Attributes{ForegroundColor: red}.Equal(Attributes{}))
	assert.True(t, Attributes{Link: mustURL(t, "a")}.Equal(Attributes{Link: mustURL(t, "a")}))
	assert.False(t, Attributes{Kern: ptr(1.0)}.Equal(Attributes{Kern: ptr(2.0)}))
}

func TestAttributeKindString(t *testing.T) {
	assert.Equal(t, "foregroundColor", AttrForegroundColor.String())
	assert.Equal(t, "unknown", AttributeKind(99).String())
}

func TestResolveFonts(t *testing.T) {
	fonts, err := LoadFonts(FontConfig{SizeBase: 14})
	require.NoError(t, err)

	a := Resolve(FontWeight(WeightBold), Attributes{}).ResolveFonts(fonts)
	assert.Same(t, fonts.Bold, a.Font)
	require.NotNil(t, a.FontProperties)

	mono := Resolve(Styles(FontFamilyVariant(FamilyMonospaced), FontWeight(WeightBold)), Attributes{}).ResolveFonts(fonts)
	assert.Same(t, fonts.MonoBold, mono.Font)

	plain := Attributes{}.ResolveFonts(fonts)
	assert.Same(t, fonts.Regular, plain.Font)

	fixed := Attributes{Font: fonts.Mono}.ResolveFonts(fonts)
	assert.Same(t, fonts.Mono, fixed.Font)
}

func TestStylesResolve(t *testing.T) {
	base := Attributes{ForegroundColor: red}
	assert.True(t, Resolve(nil, base).Equal(base))

	got := Resolve(Styles(FontSize(0.5), FontSize(0.5), FontStyle(SlantItalic)), base)
	require.NotNil(t, got.FontProperties)
	assert.InDelta(t, 0.25, got.FontProperties.Scale, 1e-9)
	assert.InDelta(t, 4.0, got.FontProperties.EffectiveSize(16), 1e-9)
	assert.Nil(t, base.FontProperties, "base is not mutated")

	got = Resolve(FixedFontSize(10), got)
	assert.InDelta(t, 10.0, got.FontProperties.EffectiveSize(16), 1e-9)
}

func TestNilStyleValuesLeaveAttributes(t *testing.T) {
	base := Attributes{ForegroundColor: red, BackgroundColor: blue}
	got := Resolve(Styles(ForegroundColor(nil), BackgroundColor(nil), UnderlineStyle(nil), StrikethroughStyle(nil)), base)
	assert.True(t, got.Equal(base))
}

func TestStyleDoesNotAliasInput(t *testing.T) {
	bold := Resolve(FontWeight(WeightBold), Attributes{})
	italic := Resolve(FontStyle(SlantItalic), bold)
	assert.Equal(t, SlantNormal, bold.FontProperties.Slant)
	assert.Equal(t, SlantItalic, italic.FontProperties.Slant)
	assert.Equal(t, WeightBold, italic.FontProperties.Weight)
}

func TestStyledTextCoalesces(t *testing.T) {
	var st StyledText
	st.Append("a", Attributes{})
	st.Append("", Attributes{ForegroundColor: red})
	st.Append("b", Attributes{})
	st.Append("c", Attributes{ForegroundColor: red})
	require.Len(t, st.Runs(), 2)
	assert.Equal(t, "abc", st.String())
	assert.Equal(t, 3, st.Len())
}
