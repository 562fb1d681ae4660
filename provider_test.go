package mdinline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{0x11, 0x22, 0x33, 0xFF})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDefaultImageProviderHTTP(t *testing.T) {
	payload := pngBytes(t, 3, 2)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(payload)
		case "/page":
			_, _ = w.Write([]byte("<html><body>not an image</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := &DefaultImageProvider{Client: srv.Client()}
	ctx := context.Background()

	img, err := p.Image(ctx, mustURL(t, srv.URL+"/ok.png"), "ok")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	again, err := p.Image(ctx, mustURL(t, srv.URL+"/ok.png"), "ok")
	require.NoError(t, err)
	assert.Same(t, img, again)
	assert.Equal(t, int32(1), hits.Load(), "second load served from cache")

	_, err = p.Image(ctx, mustURL(t, srv.URL+"/missing.png"), "")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.Code)

	_, err = p.Image(ctx, mustURL(t, srv.URL+"/page"), "")
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestDefaultImageProviderLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pic.png"), pngBytes(t, 4, 4), 0o644))

	p := &DefaultImageProvider{BaseDir: dir}
	img, err := p.Image(context.Background(), mustURL(t, "pic.png"), "")
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	abs := filepath.ToSlash(filepath.Join(dir, "pic.png"))
	img, err = p.Image(context.Background(), mustURL(t, "file://"+abs), "")
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dy())

	_, err = p.Image(context.Background(), mustURL(t, "absent.png"), "")
	assert.Error(t, err)
}

func TestDefaultImageProviderRejects(t *testing.T) {
	p := &DefaultImageProvider{}
	_, err := p.Image(context.Background(), mustURL(t, "ftp://example.com/a.png"), "")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = p.Image(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrEmptyDestination)
}

func TestDefaultImageProviderWithResolver(t *testing.T) {
	payload := pngBytes(t, 1, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img/a.png" {
			_, _ = w.Write(payload)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	nodes := []InlineNode{Image{Source: "a.png"}, Image{Source: "b.png"}}
	got, err := ResolveImages(context.Background(), nodes, mustURL(t, srv.URL+"/img/"), &DefaultImageProvider{Client: srv.Client()})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, keys(got))
}
