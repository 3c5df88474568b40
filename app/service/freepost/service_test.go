package freepost

import (
	"context"
	"errors"
	"mastogpt/app/config"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeGenerator struct {
	text string
	err  error
}

func (g fakeGenerator) GenerateFreePost(context.Context) (string, error) {
	return g.text, g.err
}

type fakePoster struct {
	mu    sync.Mutex
	posts []string
	vis   []config.Visibility
	err   error
}

func (p *fakePoster) PostStatus(_ context.Context, body string, visibility config.Visibility) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.posts = append(p.posts, body)
	p.vis = append(p.vis, visibility)

	return p.err
}

func (p *fakePoster) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.posts)
}

type countingLimiter struct {
	mu    sync.Mutex
	waits int
	err   error
}

func (l *countingLimiter) WaitForSlot(context.Context, time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.waits++

	return l.err
}

func newTestService(gen Generator, poster *fakePoster, limiter *countingLimiter) *Service {
	return &Service{
		bot: config.Bot{
			FreePostInterval: time.Hour,
			ReplyMinInterval: time.Second,
		},
		visibility: config.VisibilityPublic,
		charLimit:  20,
		generator:  gen,
		poster:     poster,
		limiter:    limiter,
	}
}

func TestPostFitsAndPublishes(t *testing.T) {
	poster := &fakePoster{}
	limiter := &countingLimiter{}
	svc := newTestService(fakeGenerator{text: strings.Repeat("秋", 30)}, poster, limiter)

	require.NoError(t, svc.Post(context.Background()))

	assert.Equal(t, 1, limiter.waits)
	require.Len(t, poster.posts, 1)
	assert.Equal(t, strings.Repeat("秋", 19)+"…", poster.posts[0])
	assert.Equal(t, config.VisibilityPublic, poster.vis[0])
}

func TestPostFailures(t *testing.T) {
	t.Run("generation", func(t *testing.T) {
		poster := &fakePoster{}
		svc := newTestService(fakeGenerator{err: errors.New("status 429")}, poster, &countingLimiter{})

		require.Error(t, svc.Post(context.Background()))
		assert.Empty(t, poster.posts)
	})

	t.Run("empty text", func(t *testing.T) {
		poster := &fakePoster{}
		svc := newTestService(fakeGenerator{text: "  \n "}, poster, &countingLimiter{})

		require.NoError(t, svc.Post(context.Background()))
		assert.Empty(t, poster.posts)
	})

	t.Run("posting", func(t *testing.T) {
		poster := &fakePoster{err: errors.New("422")}
		svc := newTestService(fakeGenerator{text: "hi"}, poster, &countingLimiter{})

		require.Error(t, svc.Post(context.Background()))
	})

	t.Run("cancelled wait", func(t *testing.T) {
		poster := &fakePoster{}
		svc := newTestService(fakeGenerator{text: "hi"}, poster, &countingLimiter{err: context.Canceled})

		require.ErrorIs(t, svc.Post(context.Background()), context.Canceled)
		assert.Empty(t, poster.posts)
	})
}

func TestRunPostsOnStartAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	poster := &fakePoster{}
	svc := newTestService(fakeGenerator{text: "おはよう"}, poster, &countingLimiter{})
	svc.bot.FreePostOnStart = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return poster.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Equal(t, 1, poster.count())
}
