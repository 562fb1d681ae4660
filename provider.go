package mdinline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyDestination  = errors.New("mdinline: empty image destination")
	ErrUnsupportedScheme = errors.New("mdinline: unsupported image scheme")
	ErrNotImage          = errors.New("mdinline: payload is not an image")
)

// FetchError reports a non-200 response for a remote image.
type FetchError struct {
	URL    string
	Status string
	Code   int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("mdinline: fetching image %s: %s", e.URL, e.Status)
}

// maxImageBytes bounds a single image payload.
const maxImageBytes = 32 << 20

type imageLoader func(ctx context.Context, u *url.URL) (cacheKey string, load func() (image.Image, error), err error)

// DefaultImageProvider loads local files and HTTP(S) images. Decoded images
// are cached per resolved location. The zero value is ready to use.
type DefaultImageProvider struct {
	// BaseDir anchors relative file paths; empty means the working directory.
	BaseDir string
	Client  *http.Client
	Logger  *slog.Logger

	once    sync.Once
	loaders map[string]imageLoader
	mu      sync.Mutex
	cache   map[string]image.Image
}

func (p *DefaultImageProvider) init() {
	p.once.Do(func() {
		if p.Client == nil {
			p.Client = &http.Client{Timeout: 15 * time.Second}
		}
		if p.Logger == nil {
			p.Logger = slog.Default()
		}
		p.loaders = map[string]imageLoader{
			"":      p.localLoader,
			"file":  p.localLoader,
			"http":  p.remoteLoader,
			"https": p.remoteLoader,
		}
		p.cache = make(map[string]image.Image)
	})
}

// Image implements ImageProvider.
func (p *DefaultImageProvider) Image(ctx context.Context, u *url.URL, alt string) (image.Image, error) {
	if u == nil || strings.TrimSpace(u.String()) == "" {
		return nil, ErrEmptyDestination
	}
	p.init()
	scheme := strings.ToLower(u.Scheme)
	loader, ok := p.loaders[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	key, load, err := loader(ctx, u)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	img, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return img, nil
	}
	img, err = load()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.cache[key] = img
	p.mu.Unlock()
	p.Logger.Debug("image loaded", "key", key, "alt", alt, "bounds", img.Bounds().String())
	return img, nil
}

func (p *DefaultImageProvider) localLoader(_ context.Context, u *url.URL) (string, func() (image.Image, error), error) {
	path := u.Path
	if path == "" && u.Opaque != "" {
		path = u.Opaque
	}
	if path == "" {
		return "", nil, ErrEmptyDestination
	}
	path = filepath.FromSlash(path)
	if !filepath.IsAbs(path) {
		base := strings.TrimSpace(p.BaseDir)
		if base != "" {
			path = filepath.Join(base, path)
		}
	}
	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		if abs, err := filepath.Abs(cleaned); err == nil {
			cleaned = abs
		}
	}
	load := func() (image.Image, error) {
		f, err := os.Open(cleaned)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return decodeImage(f)
	}
	return cleaned, load, nil
}

func (p *DefaultImageProvider) remoteLoader(ctx context.Context, u *url.URL) (string, func() (image.Image, error), error) {
	target := u.String()
	load := func() (image.Image, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, &FetchError{URL: target, Status: resp.Status, Code: resp.StatusCode}
		}
		return decodeImage(resp.Body)
	}
	return target, load, nil
}

// decodeImage sniffs the payload before handing it to image.Decode so that
// HTML error pages and the like fail with ErrNotImage.
func decodeImage(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes))
	if err != nil {
		return nil, err
	}
	if !filetype.IsImage(data) {
		return nil, ErrNotImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mdinline: decoding image: %w", err)
	}
	return img, nil
}
