package mdinline

import (
	"context"
	"image"
	"log/slog"
	"net/url"
)

// DocumentOptions configure rendering of a whole Markdown document.
type DocumentOptions struct {
	// BaseURL resolves relative links; ImageBaseURL resolves relative image
	// sources and defaults to BaseURL.
	BaseURL      *url.URL
	ImageBaseURL *url.URL
	Styles       *TextStyles
	SoftBreak    SoftBreakMode
	// Provider fetches images. Nil skips image resolution.
	Provider    ImageProvider
	Concurrency int
	Logger      *slog.Logger
	Raster      RasterOptions
}

func (o DocumentOptions) imageBase() *url.URL {
	if o.ImageBaseURL != nil {
		return o.ImageBaseURL
	}
	return o.BaseURL
}

// ResolveDocumentImages fetches every image referenced by blocks.
func ResolveDocumentImages(ctx context.Context, blocks []Block, opts DocumentOptions) (map[string]image.Image, error) {
	var all []InlineNode
	for _, b := range blocks {
		all = append(all, b.Inlines...)
	}
	return ResolveImages(ctx, all, opts.imageBase(), opts.Provider,
		WithConcurrency(opts.Concurrency), WithLogger(opts.Logger))
}

// BuildParagraphs renders each block with the given image snapshot.
func BuildParagraphs(blocks []Block, images map[string]image.Image, opts DocumentOptions) []Paragraph {
	paragraphs := make([]Paragraph, 0, len(blocks))
	for _, b := range blocks {
		var base Attributes
		if b.Kind == BlockHeading {
			base = Resolve(FontWeight(WeightBold), base)
		}
		r := Render(b.Inlines, RenderOptions{
			BaseURL:    opts.BaseURL,
			Styles:     opts.Styles,
			SoftBreak:  opts.SoftBreak,
			Attributes: base,
			Images:     images,
		})
		p := Paragraph{
			Text:        r.Text,
			Attachments: r.Attachments,
			Depth:       b.Depth,
			Marker:      b.Marker,
			Quote:       b.Quote,
			Code:        b.Kind == BlockCode,
		}
		if b.Kind == BlockHeading {
			p.Scale = headingScale(b.Level)
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs
}

func headingScale(level int) float64 {
	switch level {
	case 1:
		return 1.9
	case 2:
		return 1.6
	case 3:
		return 1.4
	case 4:
		return 1.25
	default:
		return 1.15
	}
}

// RenderMarkdown parses md, resolves its images and rasterizes the result.
func RenderMarkdown(ctx context.Context, md []byte, opts DocumentOptions) (*image.RGBA, error) {
	blocks, err := ParseBlocks(md)
	if err != nil {
		return nil, err
	}
	images, err := ResolveDocumentImages(ctx, blocks, opts)
	if err != nil {
		return nil, err
	}
	return Rasterize(BuildParagraphs(blocks, images, opts), opts.Raster)
}
