package mdinline

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Weight is a font weight on the usual 100..900 scale.
type Weight int

const (
	WeightRegular  Weight = 400
	WeightMedium   Weight = 500
	WeightSemibold Weight = 600
	WeightBold     Weight = 700
)

// Slant selects upright or italic glyphs.
type Slant int

const (
	SlantNormal Slant = iota
	SlantItalic
)

// FamilyVariant selects between proportional and monospaced families.
type FamilyVariant int

const (
	FamilyNormal FamilyVariant = iota
	FamilyMonospaced
)

// FontProperties describe a font before it is bound to a concrete face.
// Zero fields mean "inherit": weight 0 is regular, size 0 is the base size
// and scale 0 is 1.
type FontProperties struct {
	Variant FamilyVariant
	Weight  Weight
	Slant   Slant
	Size    float64 // points
	Scale   float64 // multiplier applied on top of Size
}

// EffectiveSize returns the point size for these properties given the
// paragraph base size.
func (p FontProperties) EffectiveSize(base float64) float64 {
	size := p.Size
	if size <= 0 {
		size = base
	}
	if p.Scale > 0 {
		size *= p.Scale
	}
	return size
}

// Bold reports whether the weight is semibold or heavier.
func (p FontProperties) Bold() bool { return p.Weight >= WeightSemibold }

type FontAndFace struct {
	Font     *truetype.Font
	Face     font.Face
	baseSize float64
}

type Fonts struct {
	Regular    *FontAndFace
	Bold       *FontAndFace
	Italic     *FontAndFace
	BoldItalic *FontAndFace
	Mono       *FontAndFace
	MonoBold   *FontAndFace
}

type FontConfig struct {
	RegularPath    string
	BoldPath       string
	ItalicPath     string
	BoldItalicPath string
	MonoPath       string
	MonoBoldPath   string
	SizeBase       float64 // paragraph font size in pt
}

// Face picks the closest loaded face for p, falling back to Regular.
func (f Fonts) Face(p FontProperties) *FontAndFace {
	var pick *FontAndFace
	switch {
	case p.Variant == FamilyMonospaced && p.Bold():
		pick = firstFace(f.MonoBold, f.Mono)
	case p.Variant == FamilyMonospaced:
		pick = f.Mono
	case p.Bold() && p.Slant == SlantItalic:
		pick = firstFace(f.BoldItalic, f.Bold, f.Italic)
	case p.Bold():
		pick = f.Bold
	case p.Slant == SlantItalic:
		pick = f.Italic
	}
	return firstFace(pick, f.Regular)
}

func (f Fonts) complete() bool {
	return f.Regular != nil && f.Bold != nil && f.Italic != nil &&
		f.BoldItalic != nil && f.Mono != nil && f.MonoBold != nil
}

func firstFace(faces ...*FontAndFace) *FontAndFace {
	for _, f := range faces {
		if f != nil {
			return f
		}
	}
	return nil
}

func loadFontAndFace(ttfBytes []byte, size float64) (*FontAndFace, error) {
	ft, err := truetype.Parse(ttfBytes)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(ft, &truetype.Options{Size: size, DPI: 96, Hinting: font.HintingFull})
	return &FontAndFace{
		Font:     ft,
		Face:     face,
		baseSize: size,
	}, nil
}

func loadFontSlot(path string, fallback []byte, size float64) (*FontAndFace, error) {
	b := fallback
	if path != "" {
		var err error
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	ff, err := loadFontAndFace(b, size)
	if err != nil {
		if path != "" {
			return nil, fmt.Errorf("mdinline: parsing font %s: %w", path, err)
		}
		return nil, err
	}
	return ff, nil
}

// LoadFonts returns a Fonts set using the provided FontConfig. Slots without
// a custom path use Go's bundled fonts.
func LoadFonts(cfg FontConfig) (Fonts, error) {
	if cfg.SizeBase <= 0 {
		cfg.SizeBase = 16
	}
	var f Fonts
	slots := []struct {
		dst      **FontAndFace
		path     string
		fallback []byte
	}{
		{&f.Regular, cfg.RegularPath, goregular.TTF},
		{&f.Bold, cfg.BoldPath, gobold.TTF},
		{&f.Italic, cfg.ItalicPath, goitalic.TTF},
		{&f.BoldItalic, cfg.BoldItalicPath, gobolditalic.TTF},
		{&f.Mono, cfg.MonoPath, gomono.TTF},
		{&f.MonoBold, cfg.MonoBoldPath, gomonobold.TTF},
	}
	for _, s := range slots {
		ff, err := loadFontSlot(s.path, s.fallback, cfg.SizeBase)
		if err != nil {
			return Fonts{}, err
		}
		*s.dst = ff
	}
	return f, nil
}
