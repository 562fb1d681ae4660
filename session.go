package mdinline

import (
	"context"
	"image"
	"net/url"
	"sync"
)

// ImageSession keeps the images for the inline content currently on
// display. Asking for a different node sequence abandons any batch still
// running for the old one; its results are never published. A running batch
// is also abandoned once every caller waiting on it has given up.
type ImageSession struct {
	BaseURL  *url.URL
	Provider ImageProvider
	Options  []ResolveOption

	mu       sync.Mutex
	current  *imageBatch
	snapshot map[string]image.Image
}

type imageBatch struct {
	key    []InlineNode
	cancel context.CancelFunc
	done   chan struct{}
	images map[string]image.Image
	err    error
	// guarded by ImageSession.mu
	failed  bool
	waiters int
}

func (b *imageBatch) reusable() bool { return !b.failed }

// Resolve returns the images for nodes. A call with the same node sequence
// as the running or last batch shares its result instead of fetching again.
// The batch keeps the values of the ctx that started it but not its
// cancellation: it runs until superseded, closed, or left by all waiters.
func (s *ImageSession) Resolve(ctx context.Context, nodes []InlineNode) (map[string]image.Image, error) {
	s.mu.Lock()
	if b := s.current; b != nil && b.reusable() && EqualNodes(b.key, nodes) {
		b.waiters++
		s.mu.Unlock()
		return s.wait(ctx, b)
	}
	if s.current != nil {
		s.current.cancel()
	}
	if len(CollectImages(nodes)) == 0 {
		b := &imageBatch{key: nodes, cancel: func() {}, done: make(chan struct{}), images: map[string]image.Image{}}
		close(b.done)
		s.current = b
		s.snapshot = b.images
		s.mu.Unlock()
		return b.images, nil
	}
	bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b := &imageBatch{key: nodes, cancel: cancel, done: make(chan struct{}), waiters: 1}
	s.current = b
	s.mu.Unlock()

	go s.run(bctx, b)
	return s.wait(ctx, b)
}

func (s *ImageSession) run(ctx context.Context, b *imageBatch) {
	defer b.cancel()
	images, err := ResolveImages(ctx, b.key, s.BaseURL, s.Provider, s.Options...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != b && err == nil {
		err = context.Canceled
		images = nil
	}
	b.images, b.err = images, err
	b.failed = err != nil
	if err == nil {
		s.snapshot = images
	}
	close(b.done)
}

func (s *ImageSession) wait(ctx context.Context, b *imageBatch) (map[string]image.Image, error) {
	select {
	case <-b.done:
		s.release(b, false)
		return b.images, b.err
	case <-ctx.Done():
		s.release(b, true)
		return nil, ctx.Err()
	}
}

// release drops one waiter. The last waiter to give up cancels the batch.
func (s *ImageSession) release(b *imageBatch, abandon bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.waiters--
	if abandon && b.waiters <= 0 {
		b.cancel()
	}
}

// Snapshot returns the images of the latest completed, non-superseded
// batch. The map must not be modified.
func (s *ImageSession) Snapshot() map[string]image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Close abandons the running batch.
func (s *ImageSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.cancel()
	}
}
