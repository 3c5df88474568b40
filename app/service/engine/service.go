package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mastogpt/app/client/mastodon_stream"
	"mastogpt/app/config"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mattn/go-mastodon"
	"github.com/samber/do"
)

const (
	eventNotification = "notification"
	typeMention       = "mention"
)

type MentionHandler interface {
	HandleMention(ctx context.Context, notification *mastodon.Notification) error
}

// envelope is a streaming API message. The payload is itself JSON encoded.
type envelope struct {
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

// Service keeps the notification stream connected and hands every mention
// from a human account to the handler in its own goroutine.
type Service struct {
	cfg     config.Bot
	stream  *mastodon_stream.Client
	handler MentionHandler

	status   status
	handlers sync.WaitGroup
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		cfg.Bot,
		do.MustInvoke[*mastodon_stream.Client](di),
		do.MustInvoke[*Responder](di),
	), nil
}

func NewService(cfg config.Bot, stream *mastodon_stream.Client, handler MentionHandler) *Service {
	s := &Service{
		cfg:     cfg,
		stream:  stream,
		handler: handler,
	}
	s.status.v.State = StateDisconnected

	return s
}

func (s *Service) Status() Status {
	return s.status.get()
}

// Run reconnects forever with a constant delay. It returns once ctx is done
// and all mention handlers have finished.
func (s *Service) Run(ctx context.Context) {
	defer s.handlers.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.runIteration(ctx)
		s.status.update(func(v *Status) { v.State = StateDisconnected })

		if ctx.Err() != nil {
			return
		}

		slog.Warn("Stream disconnected",
			"error", err,
			"reconnect_in", s.cfg.ReconnectDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}

		s.status.update(func(v *Status) { v.Reconnects++ })
	}
}

func (s *Service) runIteration(ctx context.Context) error {
	s.status.update(func(v *Status) { v.State = StateConnecting })

	conn, err := s.stream.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// unblocks Next on shutdown
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.status.update(func(v *Status) {
		v.State = StateConnected
		v.Connects++
	})
	slog.Info("Stream connected")

	for {
		frame, err := conn.Next()
		if err != nil {
			if errors.Is(err, mastodon_stream.ErrClosed) {
				return err
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		s.status.update(func(v *Status) { v.LastFrameAt = time.Now() })
		s.handleFrame(ctx, frame)
	}
}

func (s *Service) handleFrame(ctx context.Context, frame []byte) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		slog.Warn("Failed to decode stream event", "error", err)
		return
	}

	if env.Event != eventNotification || env.Payload == "" {
		return
	}

	var notification mastodon.Notification
	if err := json.Unmarshal([]byte(env.Payload), &notification); err != nil {
		slog.Warn("Failed to decode notification", "error", err)
		return
	}

	if notification.Type != typeMention || notification.Status == nil {
		slog.Debug("Skipping notification",
			"id", notification.ID,
			"type", notification.Type)
		return
	}

	if notification.Account.Bot {
		slog.Info("Skipping mention from bot account",
			"id", notification.ID,
			"acct", notification.Account.Acct)
		return
	}

	s.status.update(func(v *Status) { v.Mentions++ })

	s.handlers.Add(1)
	go s.dispatch(ctx, &notification)
}

func (s *Service) dispatch(ctx context.Context, notification *mastodon.Notification) {
	defer s.handlers.Done()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Mention handler panicked",
				"id", notification.ID,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
	defer cancel()

	start := time.Now()
	if err := s.handler.HandleMention(ctx, notification); err != nil {
		slog.Error("Failed to handle mention",
			"id", notification.ID,
			"acct", notification.Account.Acct,
			"error", err)
		return
	}

	slog.Debug("Handled mention",
		"id", notification.ID,
		"duration", time.Since(start))
}
