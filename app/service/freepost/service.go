package freepost

import (
	"context"
	"fmt"
	"log/slog"
	"mastogpt/app/client/mastodon_api"
	"mastogpt/app/config"
	"mastogpt/app/service/conversation"
	"mastogpt/app/service/ratelimit"
	"mastogpt/app/util/mylog"
	"mastogpt/app/util/textutil"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
)

const stopTimeout = 30 * time.Second

type Generator interface {
	GenerateFreePost(ctx context.Context) (string, error)
}

type Poster interface {
	PostStatus(ctx context.Context, body string, visibility config.Visibility) error
}

type Limiter interface {
	WaitForSlot(ctx context.Context, minInterval time.Duration) error
}

// Service posts an unprompted status on a fixed interval.
type Service struct {
	bot        config.Bot
	visibility config.Visibility
	charLimit  int

	generator Generator
	poster    Poster
	limiter   Limiter
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		bot:        cfg.Bot,
		visibility: cfg.Mastodon.Visibility,
		charLimit:  cfg.Mastodon.CharLimit,
		generator:  do.MustInvoke[*conversation.Service](di),
		poster:     do.MustInvoke[*mastodon_api.Client](di),
		limiter:    do.MustInvoke[*ratelimit.Limiter](di),
	}, nil
}

// Run schedules the job and blocks until ctx is done. Ticks that fire while
// the previous post is still in progress are skipped.
func (s *Service) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	schedule := "@every " + s.bot.FreePostInterval.String()
	if _, err := c.AddFunc(schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule free posts: %w", err)
	}

	c.Start()
	slog.Info("Free post scheduler started", "interval", s.bot.FreePostInterval)

	if s.bot.FreePostOnStart {
		s.runOnce(ctx)
	}

	<-ctx.Done()

	select {
	case <-c.Stop().Done():
	case <-time.After(stopTimeout):
		slog.Warn("Free post scheduler stop timed out")
	}

	return nil
}

func (s *Service) runOnce(ctx context.Context) {
	if err := s.Post(ctx); err != nil {
		slog.Error("Failed to post free post", "error", err)
	}
}

// Post generates one free post and publishes it.
func (s *Service) Post(ctx context.Context) error {
	if err := s.limiter.WaitForSlot(ctx, s.bot.ReplyMinInterval); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	text, err := s.generator.GenerateFreePost(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate free post: %w", err)
	}

	body := textutil.FitPlain(text, s.charLimit)
	if strings.TrimSpace(body) == "" {
		slog.Warn("Free post is empty, skipping")
		return nil
	}

	if err = s.poster.PostStatus(ctx, body, s.visibility); err != nil {
		return fmt.Errorf("failed to post status: %w", err)
	}

	slog.Info("Posted free post",
		"text", body,
		"visibility", s.visibility,
		mylog.TelegramKey, true)

	return nil
}
