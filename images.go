package mdinline

import (
	"context"
	"image"
	"log/slog"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ImageProvider fetches and decodes one image.
type ImageProvider interface {
	Image(ctx context.Context, u *url.URL, alt string) (image.Image, error)
}

// ImageProviderFunc adapts a function to ImageProvider.
type ImageProviderFunc func(ctx context.Context, u *url.URL, alt string) (image.Image, error)

func (f ImageProviderFunc) Image(ctx context.Context, u *url.URL, alt string) (image.Image, error) {
	return f(ctx, u, alt)
}

type resolveConfig struct {
	limit  int
	logger *slog.Logger
}

// ResolveOption tunes ResolveImages.
type ResolveOption func(*resolveConfig)

// WithConcurrency caps the number of fetches in flight. n <= 0 means one
// goroutine per image.
func WithConcurrency(n int) ResolveOption {
	return func(c *resolveConfig) { c.limit = n }
}

// WithLogger sets the logger used for per-image failures.
func WithLogger(l *slog.Logger) ResolveOption {
	return func(c *resolveConfig) { c.logger = l }
}

// ResolveImages fetches every distinct image in nodes and returns the ones
// that decoded, keyed by source. A failing or malformed source is simply
// absent. The returned error is non-nil only when ctx ended first, in which
// case the partial results are discarded.
func ResolveImages(ctx context.Context, nodes []InlineNode, baseURL *url.URL, provider ImageProvider, opts ...ResolveOption) (map[string]image.Image, error) {
	refs := CollectImages(nodes)
	images := make(map[string]image.Image)
	if len(refs) == 0 || provider == nil {
		return images, nil
	}
	cfg := resolveConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if cfg.limit > 0 {
		g.SetLimit(cfg.limit)
	}
	for _, ref := range refs {
		u := resolveURL(ref.Source, baseURL)
		if u == nil {
			logger.Debug("skipping image with malformed source", "source", ref.Source)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			img, err := provider.Image(ctx, u, ref.Alt)
			if err != nil {
				logger.Debug("image fetch failed", "source", ref.Source, "url", u.String(), "err", err)
				return nil
			}
			if img == nil {
				return nil
			}
			mu.Lock()
			images[ref.Source] = img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return images, nil
}
