package mdinline

import (
	"context"
	"image"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedProvider blocks fetches for sources listed in gates until the gate
// is closed.
type gatedProvider struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	calls map[string]int
}

func newGatedProvider(gated ...string) *gatedProvider {
	p := &gatedProvider{gates: map[string]chan struct{}{}, calls: map[string]int{}}
	for _, s := range gated {
		p.gates[s] = make(chan struct{})
	}
	return p
}

func (p *gatedProvider) Image(ctx context.Context, u *url.URL, _ string) (image.Image, error) {
	p.mu.Lock()
	p.calls[u.String()]++
	gate := p.gates[u.String()]
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (p *gatedProvider) count(src string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[src]
}

func TestSessionReusesBatchForEqualNodes(t *testing.T) {
	p := newGatedProvider()
	s := &ImageSession{Provider: p}
	defer s.Close()

	first, err := s.Resolve(context.Background(), []InlineNode{Text{"x"}, Image{Source: "a.png"}})
	require.NoError(t, err)
	second, err := s.Resolve(context.Background(), []InlineNode{Text{"x"}, Image{Source: "a.png"}})
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.count("a.png"))
	assert.Equal(t, first, s.Snapshot())
}

func TestSessionSupersededBatchIsDiscarded(t *testing.T) {
	p := newGatedProvider("old.png")
	s := &ImageSession{Provider: p}
	defer s.Close()

	oldDone := make(chan error, 1)
	go func() {
		_, err := s.Resolve(context.Background(), []InlineNode{Image{Source: "old.png"}})
		oldDone <- err
	}()
	require.Eventually(t, func() bool { return p.count("old.png") == 1 }, time.Second, time.Millisecond)

	images, err := s.Resolve(context.Background(), []InlineNode{Image{Source: "new.png"}})
	require.NoError(t, err)
	assert.Contains(t, images, "new.png")

	select {
	case err := <-oldDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("superseded batch was not cancelled")
	}
	snap := s.Snapshot()
	assert.Contains(t, snap, "new.png")
	assert.NotContains(t, snap, "old.png")
}

func TestSessionWithoutImagesIsSynchronous(t *testing.T) {
	p := newGatedProvider()
	s := &ImageSession{Provider: p}
	images, err := s.Resolve(context.Background(), []InlineNode{Text{"plain"}, SoftBreak{}})
	require.NoError(t, err)
	assert.NotNil(t, images)
	assert.Empty(t, images)
	assert.Empty(t, p.calls)
}

func TestSessionRetriesAfterCancelledBatch(t *testing.T) {
	p := newGatedProvider("a.png")
	s := &ImageSession{Provider: p}
	defer s.Close()
	nodes := []InlineNode{Image{Source: "a.png"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Resolve(ctx, nodes)
		done <- err
	}()
	require.Eventually(t, func() bool { return p.count("a.png") == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The cancelled batch must not be handed out again.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.current.failed
	}, time.Second, time.Millisecond)
	close(p.gates["a.png"])
	images, err := s.Resolve(context.Background(), nodes)
	require.NoError(t, err)
	assert.Contains(t, images, "a.png")
	assert.Equal(t, 2, p.count("a.png"))
}

func TestSessionJoinerOutlivesStarter(t *testing.T) {
	p := newGatedProvider("a.png")
	s := &ImageSession{Provider: p}
	defer s.Close()
	nodes := []InlineNode{Image{Source: "a.png"}}

	starterCtx, cancelStarter := context.WithCancel(context.Background())
	starterDone := make(chan error, 1)
	go func() {
		_, err := s.Resolve(starterCtx, nodes)
		starterDone <- err
	}()
	require.Eventually(t, func() bool { return p.count("a.png") == 1 }, time.Second, time.Millisecond)

	type result struct {
		images map[string]image.Image
		err    error
	}
	joinerDone := make(chan result, 1)
	go func() {
		images, err := s.Resolve(context.Background(), nodes)
		joinerDone <- result{images, err}
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.current.waiters == 2
	}, time.Second, time.Millisecond)

	cancelStarter()
	assert.ErrorIs(t, <-starterDone, context.Canceled)

	close(p.gates["a.png"])
	select {
	case r := <-joinerDone:
		require.NoError(t, r.err)
		assert.Contains(t, r.images, "a.png")
	case <-time.After(time.Second):
		t.Fatal("joiner never received the batch result")
	}
	assert.Equal(t, 1, p.count("a.png"))
}

func TestSessionCompletedBatchReleasesContext(t *testing.T) {
	fetchCtx := make(chan context.Context, 1)
	provider := ImageProviderFunc(func(ctx context.Context, _ *url.URL, _ string) (image.Image, error) {
		fetchCtx <- ctx
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	s := &ImageSession{Provider: provider}
	images, err := s.Resolve(context.Background(), []InlineNode{Image{Source: "a.png"}})
	require.NoError(t, err)
	require.Len(t, images, 1)

	ctx := <-fetchCtx
	require.Eventually(t, func() bool { return ctx.Err() != nil }, time.Second, time.Millisecond)

	// a settled batch is still shared
	again, err := s.Resolve(context.Background(), []InlineNode{Image{Source: "a.png"}})
	require.NoError(t, err)
	assert.Equal(t, images, again)
}
