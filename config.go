package mdinline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// StyleSpec is the file form of a TextStyle. Unset fields leave the
// inherited value alone.
type StyleSpec struct {
	Foreground    string   `toml:"foreground" yaml:"foreground"`
	Background    string   `toml:"background" yaml:"background"`
	Weight        string   `toml:"weight" yaml:"weight"`
	Italic        *bool    `toml:"italic" yaml:"italic"`
	Monospace     *bool    `toml:"monospace" yaml:"monospace"`
	Size          float64  `toml:"size" yaml:"size"` // em
	Underline     string   `toml:"underline" yaml:"underline"`
	Strikethrough string   `toml:"strikethrough" yaml:"strikethrough"`
	Kern          *float64 `toml:"kern" yaml:"kern"`
}

// StyleConfig holds optional overrides for each TextStyles slot.
type StyleConfig struct {
	Code          *StyleSpec `toml:"code" yaml:"code"`
	Emphasis      *StyleSpec `toml:"emphasis" yaml:"emphasis"`
	Strong        *StyleSpec `toml:"strong" yaml:"strong"`
	Strikethrough *StyleSpec `toml:"strikethrough" yaml:"strikethrough"`
	Link          *StyleSpec `toml:"link" yaml:"link"`
}

// LoadStyleConfig reads a .toml, .yaml or .yml style file.
func LoadStyleConfig(path string) (StyleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StyleConfig{}, err
	}
	return ParseStyleConfig(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// ParseStyleConfig decodes data in the given format ("toml", "yaml" or "yml").
func ParseStyleConfig(data []byte, format string) (StyleConfig, error) {
	var cfg StyleConfig
	var err error
	switch format {
	case "toml":
		err = toml.Unmarshal(data, &cfg)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("mdinline: unsupported style config format: %q", format)
	}
	if err != nil {
		return StyleConfig{}, fmt.Errorf("mdinline: decoding %s style config: %w", format, err)
	}
	return cfg, nil
}

// TextStyles layers the configured slots on top of DefaultTextStyles.
func (c StyleConfig) TextStyles() (TextStyles, error) {
	styles := DefaultTextStyles()
	slots := []struct {
		name string
		spec *StyleSpec
		dst  *TextStyle
	}{
		{"code", c.Code, &styles.Code},
		{"emphasis", c.Emphasis, &styles.Emphasis},
		{"strong", c.Strong, &styles.Strong},
		{"strikethrough", c.Strikethrough, &styles.Strikethrough},
		{"link", c.Link, &styles.Link},
	}
	for _, s := range slots {
		if s.spec == nil {
			continue
		}
		st, err := s.spec.TextStyle()
		if err != nil {
			return TextStyles{}, fmt.Errorf("mdinline: style %s: %w", s.name, err)
		}
		*s.dst = Styles(*s.dst, st)
	}
	return styles, nil
}

// TextStyle builds the style s describes.
func (s StyleSpec) TextStyle() (TextStyle, error) {
	var styles []TextStyle
	if s.Foreground != "" {
		c, err := colorful.Hex(s.Foreground)
		if err != nil {
			return nil, fmt.Errorf("foreground: %w", err)
		}
		styles = append(styles, ForegroundColor(c))
	}
	if s.Background != "" {
		c, err := colorful.Hex(s.Background)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		styles = append(styles, BackgroundColor(c))
	}
	if s.Weight != "" {
		w, err := parseWeight(s.Weight)
		if err != nil {
			return nil, err
		}
		styles = append(styles, FontWeight(w))
	}
	if s.Italic != nil {
		slant := SlantNormal
		if *s.Italic {
			slant = SlantItalic
		}
		styles = append(styles, FontStyle(slant))
	}
	if s.Monospace != nil {
		v := FamilyNormal
		if *s.Monospace {
			v = FamilyMonospaced
		}
		styles = append(styles, FontFamilyVariant(v))
	}
	if s.Size > 0 {
		styles = append(styles, FontSize(s.Size))
	}
	if s.Underline != "" {
		ls, err := parseLineStyle(s.Underline)
		if err != nil {
			return nil, fmt.Errorf("underline: %w", err)
		}
		styles = append(styles, UnderlineStyle(&ls))
	}
	if s.Strikethrough != "" {
		ls, err := parseLineStyle(s.Strikethrough)
		if err != nil {
			return nil, fmt.Errorf("strikethrough: %w", err)
		}
		styles = append(styles, StrikethroughStyle(&ls))
	}
	if s.Kern != nil {
		styles = append(styles, Kerning(*s.Kern))
	}
	return Styles(styles...), nil
}

func parseWeight(s string) (Weight, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular", "normal":
		return WeightRegular, nil
	case "medium":
		return WeightMedium, nil
	case "semibold":
		return WeightSemibold, nil
	case "bold":
		return WeightBold, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 100 || n > 900 {
		return 0, fmt.Errorf("invalid weight %q", s)
	}
	return Weight(n), nil
}

func parseLineStyle(s string) (LineStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return LineNone, nil
	case "single":
		return LineSingle, nil
	case "thick":
		return LineThick, nil
	case "double":
		return LineDouble, nil
	}
	return LineNone, fmt.Errorf("invalid line style %q", s)
}
