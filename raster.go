package mdinline

import (
	"bufio"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode"

	"github.com/golang/freetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
)

// ---- Styles & theme ----

type Theme struct {
	BG       color.Color
	FG       color.Color
	CodeBG   color.Color
	QuoteBar color.Color
	HRule    color.Color
}

var (
	// LightTheme is the default.
	LightTheme = Theme{
		BG:       color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		FG:       color.RGBA{0x11, 0x11, 0x11, 0xFF},
		CodeBG:   color.RGBA{0xF5, 0xF5, 0xF7, 0xFF},
		QuoteBar: color.RGBA{0xCC, 0xCC, 0xCC, 0xFF},
		HRule:    color.RGBA{0xDD, 0xDD, 0xDD, 0xFF},
	}
	DarkTheme = Theme{
		BG:       color.RGBA{0x12, 0x12, 0x14, 0xFF},
		FG:       color.RGBA{0xEE, 0xEE, 0xF0, 0xFF},
		CodeBG:   color.RGBA{0x1E, 0x1E, 0x22, 0xFF},
		QuoteBar: color.RGBA{0x44, 0x44, 0x48, 0xFF},
		HRule:    color.RGBA{0x33, 0x33, 0x36, 0xFF},
	}
)

// ThemeByName returns a built-in theme by name ("light" or "dark").
func ThemeByName(name string) (Theme, error) {
	switch strings.ToLower(name) {
	case "light", "":
		return LightTheme, nil
	case "dark":
		return DarkTheme, nil
	default:
		return Theme{}, errors.New("mdinline: unknown theme: " + name)
	}
}

// Paragraph is one laid-out block: rendered inline text plus the images
// positioned inside it.
type Paragraph struct {
	Text        StyledText
	Attachments []Attachment
	Scale       float64 // font scale, 0 means 1
	Depth       int
	Marker      string
	Quote       bool
	Code        bool
}

// RasterOptions configure Rasterize. Zero values enable defaults (1024px
// width, 48px margin, 16pt base font, light theme, bundled fonts).
type RasterOptions struct {
	Width        int
	Margin       int
	BaseFontSize float64
	Theme        Theme
	Fonts        Fonts
}

func (o *RasterOptions) defaults() error {
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Margin <= 0 {
		o.Margin = 48
	}
	if o.BaseFontSize <= 0 {
		o.BaseFontSize = 16
	}
	if (o.Theme == Theme{}) {
		o.Theme = LightTheme
	}
	if !o.Fonts.complete() {
		fallback, err := LoadFonts(FontConfig{SizeBase: o.BaseFontSize})
		if err != nil {
			return err
		}
		o.Fonts = fillFonts(o.Fonts, fallback)
	}
	return nil
}

func fillFonts(f, fallback Fonts) Fonts {
	f.Regular = firstFace(f.Regular, fallback.Regular)
	f.Bold = firstFace(f.Bold, fallback.Bold)
	f.Italic = firstFace(f.Italic, fallback.Italic)
	f.BoldItalic = firstFace(f.BoldItalic, fallback.BoldItalic)
	f.Mono = firstFace(f.Mono, fallback.Mono)
	f.MonoBold = firstFace(f.MonoBold, fallback.MonoBold)
	return f
}

// ---- Layout primitives ----

const (
	listIndentStep  = 32
	listMarkerWidth = 28
	listMarkerGap   = 8
	quoteIndent     = 14
)

type canvas struct {
	img     *image.RGBA
	dc      *freetype.Context
	w       int
	margin  int
	cursorY int
	th      Theme
	fonts   Fonts
	ptSize  float64
}

func newCanvas(width int, margin int, th Theme, fonts Fonts, ptSize float64) *canvas {
	c := &canvas{
		w:       width,
		margin:  margin,
		cursorY: margin,
		th:      th,
		fonts:   fonts,
		ptSize:  ptSize,
	}
	c.dc = freetype.NewContext()
	c.dc.SetDPI(96)
	c.dc.SetFontSize(ptSize)
	c.resize(4096)
	return c
}

// resize reallocates the backing image to height h, keeping what was drawn.
func (c *canvas) resize(h int) {
	img := image.NewRGBA(image.Rect(0, 0, c.w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.th.BG), image.Point{}, draw.Src)
	if c.img != nil {
		draw.Draw(img, c.img.Bounds(), c.img, image.Point{}, draw.Src)
	}
	c.img = img
	c.dc.SetClip(img.Bounds())
	c.dc.SetDst(img)
}

// reserve grows the canvas so that px more pixels below the cursor fit.
func (c *canvas) reserve(px int) {
	need := c.cursorY + px + c.margin
	h := c.img.Bounds().Dy()
	if need <= h {
		return
	}
	for h < need {
		h *= 2
	}
	c.resize(h)
}

func (c *canvas) setFace(fnt *FontAndFace, col color.Color, size float64) {
	c.dc.SetFontSize(size)
	c.dc.SetSrc(image.NewUniform(col))
	c.dc.SetFont(fnt.Font)
}

func (c *canvas) addVSpace(px int) { c.cursorY += px }

func (c *canvas) fill(rect image.Rectangle, col color.Color) {
	draw.Draw(c.img, rect, image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *canvas) drawBlockquoteBar(x0, topY, height int) {
	rect := image.Rect(x0, topY, x0+4, topY+height)
	draw.Draw(c.img, rect, image.NewUniform(c.th.QuoteBar), image.Point{}, draw.Src)
}

func (c *canvas) drawCodeBlock(text string, left, right int, size float64) {
	pad := 10
	mono := c.fonts.Mono
	lines := wrapLines(mono, size, text, float64(right-left-2*pad))
	lineHeight := int(size * 1.4)
	height := len(lines)*lineHeight + 2*pad + 6
	c.reserve(height + 6)
	top := c.cursorY
	c.fill(image.Rect(left, top, right, top+height), c.th.CodeBG)

	c.setFace(mono, c.th.FG, size)
	y := top + pad + int(size)
	for _, ln := range lines {
		_, _ = c.dc.DrawString(ln, freetype.Pt(left+pad, y))
		y += lineHeight
	}
	c.cursorY = top + height + 6
}

func measureWidth(fnt *FontAndFace, size float64, s string) float64 {
	if fnt == nil || s == "" {
		return 0
	}
	// freetype.Context lacks a direct width measurement; approximate using font.Drawer
	d := font.Drawer{Face: fnt.Face}
	width := float64(d.MeasureString(s).Round())
	base := fnt.baseSize
	if base <= 0 {
		base = size
	}
	if base <= 0 {
		base = 1
	}
	if size <= 0 {
		size = base
	}
	if size != base {
		width *= size / base
	}
	return width
}

func scaleImageToWidth(img image.Image, maxWidth int) image.Image {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()
	if maxWidth <= 0 || bounds.Dx() <= maxWidth {
		return img
	}
	scale := float64(maxWidth) / float64(bounds.Dx())
	height := int(float64(bounds.Dy()) * scale)
	if height <= 0 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

func wrapLines(ff *FontAndFace, size float64, text string, maxWidth float64) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Split(bufio.ScanLines)
	for scanner.Scan() {
		ln := scanner.Text()
		if ln == "" {
			lines = append(lines, "")
			continue
		}
		if maxWidth <= 0 || measureWidth(ff, size, ln) <= maxWidth {
			lines = append(lines, ln)
			continue
		}
		lines = append(lines, wrapLinePreservingSpaces(ff, size, ln, maxWidth)...)
	}
	if len(lines) == 0 {
		lines = append(lines, "")
	}
	return lines
}

func wrapLinePreservingSpaces(ff *FontAndFace, size float64, line string, maxWidth float64) []string {
	var result []string
	var current strings.Builder
	var currentWidth float64

	flush := func() {
		result = append(result, current.String())
		current.Reset()
		currentWidth = 0
	}

	for _, token := range splitTextPreserveSpaces(line) {
		tokenWidth := measureWidth(ff, size, token)
		if tokenWidth > maxWidth {
			if current.Len() > 0 {
				flush()
			}
			result = append(result, breakLongToken(ff, size, token, maxWidth)...)
			continue
		}
		if currentWidth+tokenWidth > maxWidth && current.Len() > 0 {
			flush()
		}
		current.WriteString(token)
		currentWidth += tokenWidth
	}
	if current.Len() > 0 {
		flush()
	}
	if len(result) == 0 {
		result = append(result, "")
	}
	return result
}

func breakLongToken(ff *FontAndFace, size float64, token string, maxWidth float64) []string {
	var parts []string
	var current strings.Builder
	var width float64
	for _, r := range token {
		ch := string(r)
		charWidth := measureWidth(ff, size, ch)
		if width+charWidth > maxWidth && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			width = 0
		}
		current.WriteString(ch)
		width += charWidth
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	if len(parts) == 0 {
		parts = append(parts, token)
	}
	return parts
}

// splitTextPreserveSpaces splits s into alternating runs of space and
// non-space characters.
func splitTextPreserveSpaces(s string) []string {
	var parts []string
	var current strings.Builder
	lastSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > 0 && space != lastSpace {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		lastSpace = space
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// ---- Styled text -> tokens ----

type textToken struct {
	text       string
	font       *FontAndFace
	size       float64
	color      color.Color
	background color.Color
	underline  LineStyle
	strike     LineStyle
	baseline   float64
	spacing    float64 // extra pixels after every glyph
	newline    bool
	image      image.Image
}

func (c *canvas) tokenFor(s string, attrs Attributes, scale float64) textToken {
	props := attrs.fontProperties()
	tok := textToken{
		text:       s,
		font:       firstFace(attrs.Font, c.fonts.Regular),
		size:       props.EffectiveSize(c.ptSize) * scale,
		color:      attrs.ForegroundColor,
		background: attrs.BackgroundColor,
	}
	if tok.color == nil {
		tok.color = c.th.FG
	}
	if attrs.UnderlineStyle != nil {
		tok.underline = *attrs.UnderlineStyle
	}
	if attrs.StrikethroughStyle != nil {
		tok.strike = *attrs.StrikethroughStyle
	}
	if attrs.BaselineOffset != nil {
		tok.baseline = *attrs.BaselineOffset
	}
	if attrs.Kern != nil {
		tok.spacing += *attrs.Kern
	}
	if attrs.Tracking != nil {
		tok.spacing += *attrs.Tracking
	}
	return tok
}

// paragraphTokens turns a paragraph's runs and attachments into a token
// stream, splitting runs at attachment offsets and at newlines.
func (c *canvas) paragraphTokens(p Paragraph) []textToken {
	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}
	var out []textToken
	emitText := func(s string, attrs Attributes) {
		parts := strings.Split(s, "\n")
		for i, part := range parts {
			if part != "" {
				out = append(out, c.tokenFor(part, attrs, scale))
			}
			if i < len(parts)-1 {
				out = append(out, textToken{newline: true})
			}
		}
	}
	atts := p.Attachments
	pos := 0
	for _, r := range p.Text.ResolveFonts(c.fonts).Runs() {
		text := r.Text
		for len(atts) > 0 && atts[0].Offset < pos+len(text) {
			cut := atts[0].Offset - pos
			if cut < 0 {
				cut = 0
			}
			emitText(text[:cut], r.Attributes)
			out = append(out, textToken{image: atts[0].Image})
			text = text[cut:]
			pos += cut
			atts = atts[1:]
		}
		emitText(text, r.Attributes)
		pos += len(text)
	}
	for _, a := range atts {
		out = append(out, textToken{image: a.Image})
	}
	return out
}

type styledWord struct {
	textToken
	width float64
}

type lineMetric struct {
	baseline int
	height   int
}

func (c *canvas) drawTokens(tokens []textToken, left, right int, para *ParagraphStyle) []lineMetric {
	if len(tokens) == 0 {
		return nil
	}
	maxWidth := float64(right - left)
	spacing := 1.4
	align := AlignLeft
	if para != nil {
		if para.LineSpacing > 0 {
			spacing = para.LineSpacing
		}
		align = para.Alignment
	}
	var line []styledWord
	var lineWidth float64
	var lineMaxSize float64
	var metrics []lineMetric
	first := true

	flush := func(force bool) {
		if len(line) == 0 {
			if force {
				heightSize := lineMaxSize
				if heightSize == 0 {
					heightSize = c.ptSize
				}
				c.cursorY += int(heightSize * spacing)
			}
			first = false
			return
		}
		baselineSize := lineMaxSize
		if baselineSize == 0 {
			baselineSize = c.ptSize
		}
		lineHeight := int(baselineSize * spacing)
		c.reserve(lineHeight)
		baseline := c.cursorY + int(baselineSize)
		for len(line) > 0 && unicode.IsSpace([]rune(line[len(line)-1].text)[0]) {
			lineWidth -= line[len(line)-1].width
			line = line[:len(line)-1]
		}
		x := left
		if first && para != nil {
			x += int(para.FirstLineIndent)
		}
		switch align {
		case AlignCenter:
			x += int(maxWidth-lineWidth) / 2
		case AlignRight:
			x += int(maxWidth - lineWidth)
		}
		for _, w := range line {
			c.drawWord(w, x, baseline, lineHeight)
			x += int(w.width)
		}
		metrics = append(metrics, lineMetric{baseline: baseline, height: lineHeight})
		c.cursorY += lineHeight
		line = line[:0]
		lineWidth = 0
		lineMaxSize = 0
		first = false
	}

	for _, tok := range tokens {
		if tok.newline {
			flush(true)
			continue
		}
		if tok.image != nil {
			flush(false)
			metrics = append(metrics, c.drawImage(tok.image, left, int(maxWidth)))
			continue
		}
		for _, seg := range splitTextPreserveSpaces(tok.text) {
			word := styledWord{textToken: tok, width: measureWidth(tok.font, tok.size, seg) + tok.spacing*float64(len([]rune(seg)))}
			word.text = seg
			if unicode.IsSpace([]rune(seg)[0]) {
				if len(line) == 0 {
					continue
				}
				line = append(line, word)
				lineWidth += word.width
				continue
			}
			if lineWidth+word.width > maxWidth && len(line) > 0 {
				flush(false)
			}
			line = append(line, word)
			if tok.size > lineMaxSize {
				lineMaxSize = tok.size
			}
			lineWidth += word.width
		}
	}
	flush(false)
	return metrics
}

func (c *canvas) drawWord(w styledWord, x, baseline, lineHeight int) {
	width := int(w.width)
	if w.background != nil && width > 0 {
		c.fill(image.Rect(x, baseline-int(w.size*1.05), x+width, baseline-int(w.size*1.05)+lineHeight), w.background)
	}
	y := baseline - int(w.baseline)
	c.setFace(w.font, w.color, w.size)
	if w.spacing == 0 {
		_, _ = c.dc.DrawString(w.text, freetype.Pt(x, y))
	} else {
		gx := float64(x)
		for _, r := range w.text {
			ch := string(r)
			_, _ = c.dc.DrawString(ch, freetype.Pt(int(gx), y))
			gx += measureWidth(w.font, w.size, ch) + w.spacing
		}
	}
	if width <= 0 {
		return
	}
	if w.underline != LineNone {
		uy := y + int(w.size*0.12)
		if uy <= y {
			uy = y + 1
		}
		c.drawDecoration(x, uy, width, w.underline, w.color)
	}
	if w.strike != LineNone {
		c.drawDecoration(x, y-int(w.size*0.3), width, w.strike, w.color)
	}
}

func (c *canvas) drawDecoration(x, y, width int, style LineStyle, col color.Color) {
	switch style {
	case LineThick:
		c.fill(image.Rect(x, y, x+width, y+2), col)
	case LineDouble:
		c.fill(image.Rect(x, y, x+width, y+1), col)
		c.fill(image.Rect(x, y+2, x+width, y+3), col)
	default:
		c.fill(image.Rect(x, y, x+width, y+1), col)
	}
}

func (c *canvas) drawImage(img image.Image, left, maxWidth int) lineMetric {
	if b := img.Bounds(); maxWidth > 0 && b.Dx() > maxWidth {
		img = scaleImageToWidth(img, maxWidth)
	}
	bounds := img.Bounds()
	drawWidth, drawHeight := bounds.Dx(), bounds.Dy()
	c.reserve(drawHeight + int(c.ptSize))
	startY := c.cursorY
	x := left
	if maxWidth > drawWidth {
		x += (maxWidth - drawWidth) / 2
	}
	rect := image.Rect(x, startY, x+drawWidth, startY+drawHeight)
	draw.Draw(c.img, rect, img, bounds.Min, draw.Over)
	c.cursorY += drawHeight + int(c.ptSize*0.6)
	return lineMetric{baseline: rect.Max.Y, height: drawHeight}
}

func (c *canvas) drawListMarker(marker string, baseline int, markerLeft, markerRight int) {
	fnt := c.fonts.Regular
	c.setFace(fnt, c.th.FG, c.ptSize)
	width := measureWidth(fnt, c.ptSize, marker)
	x := markerRight - int(width)
	if x < markerLeft {
		x = markerLeft
	}
	_, _ = c.dc.DrawString(marker, freetype.Pt(x, baseline))
}

// paragraphStyle returns the first paragraph style set on any run.
func paragraphStyle(t StyledText) *ParagraphStyle {
	for _, r := range t.runs {
		if r.Attributes.ParagraphStyle != nil {
			return r.Attributes.ParagraphStyle
		}
	}
	return nil
}

func (c *canvas) drawParagraph(p Paragraph) {
	left := c.margin + p.Depth*listIndentStep
	if p.Quote {
		left += quoteIndent
	}
	markerLeft, markerRight := left, left
	if p.Marker != "" {
		markerRight = left + listMarkerWidth
		left = markerRight + listMarkerGap
	}
	right := c.w - c.margin
	startY := c.cursorY

	if p.Code {
		c.drawCodeBlock(p.Text.String(), left, right, c.ptSize*0.95)
	} else {
		metrics := c.drawTokens(c.paragraphTokens(p), left, right, paragraphStyle(p.Text))
		if p.Marker != "" {
			baseline := startY + int(c.ptSize)
			if len(metrics) > 0 {
				baseline = metrics[0].baseline
			}
			c.drawListMarker(p.Marker, baseline, markerLeft, markerRight)
		}
	}
	if p.Quote {
		c.drawBlockquoteBar(c.margin+p.Depth*listIndentStep, startY, c.cursorY-startY)
	}
	c.addVSpace(int(c.ptSize * 0.8))
}

// Rasterize lays paragraphs out top to bottom and returns the cropped image.
func Rasterize(paragraphs []Paragraph, opts RasterOptions) (*image.RGBA, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}
	c := newCanvas(opts.Width, opts.Margin, opts.Theme, opts.Fonts, opts.BaseFontSize)
	for _, p := range paragraphs {
		c.drawParagraph(p)
	}

	used := c.cursorY + opts.Margin
	if used < opts.Margin+50 {
		used = opts.Margin + 50
	}
	if used > c.img.Bounds().Dy() {
		used = c.img.Bounds().Dy()
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, used))
	draw.Draw(img, img.Bounds(), c.img, image.Point{}, draw.Src)
	return img, nil
}
