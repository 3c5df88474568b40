package engine

import (
	"context"
	"fmt"
	"log/slog"
	"mastogpt/app/client/mastodon_api"
	"mastogpt/app/config"
	"mastogpt/app/service/conversation"
	"mastogpt/app/service/memory"
	"mastogpt/app/service/ratelimit"
	"mastogpt/app/service/thread"
	"mastogpt/app/util/mylog"
	"mastogpt/app/util/textutil"
	"time"

	"github.com/mattn/go-mastodon"
	"github.com/samber/do"
)

type ThreadResolver interface {
	Resolve(ctx context.Context, status *mastodon.Status) thread.Context
}

type ConversationStore interface {
	LastResponseID(ctx context.Context, threadKey string) (string, error)
	Upsert(ctx context.Context, threadKey, responseID string) error
}

type Limiter interface {
	WaitForSlot(ctx context.Context, minInterval time.Duration) error
}

type ReplyGenerator interface {
	GenerateReply(ctx context.Context, req conversation.ReplyRequest) (*conversation.ReplyResult, error)
}

type ReplyPoster interface {
	PostReply(ctx context.Context, replyTo *mastodon.Status, acct, body string) error
}

// Responder answers a single mention. Only a failed model call or a cancelled
// wait stop it early; store and posting failures are logged and the pipeline
// goes on.
type Responder struct {
	charLimit   int
	minInterval time.Duration

	resolver ThreadResolver
	store    ConversationStore
	limiter  Limiter
	replies  ReplyGenerator
	poster   ReplyPoster
}

func NewResponder(di *do.Injector) (*Responder, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Responder{
		charLimit:   cfg.Mastodon.CharLimit,
		minInterval: cfg.Bot.ReplyMinInterval,
		resolver:    do.MustInvoke[*thread.Resolver](di),
		store:       do.MustInvoke[*memory.Service](di),
		limiter:     do.MustInvoke[*ratelimit.Limiter](di),
		replies:     do.MustInvoke[*conversation.Service](di),
		poster:      do.MustInvoke[*mastodon_api.Client](di),
	}, nil
}

func (r *Responder) HandleMention(ctx context.Context, notification *mastodon.Notification) error {
	status := notification.Status
	acct := notification.Account.Acct
	text := textutil.StripHTML(status.Content)

	slog.Info("Mention received",
		"acct", acct,
		"status_id", status.ID,
		"text", text)

	threadCtx := r.resolver.Resolve(ctx, status)

	previousID, err := r.store.LastResponseID(ctx, threadCtx.Key)
	if err != nil {
		slog.Error("Failed to read conversation state",
			"thread_key", threadCtx.Key,
			"error", err)
	}

	if err = r.limiter.WaitForSlot(ctx, r.minInterval); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := r.replies.GenerateReply(ctx, conversation.ReplyRequest{
		UserText:           text,
		Transcript:         threadCtx.Transcript,
		PreviousResponseID: previousID,
	})
	if err != nil {
		return fmt.Errorf("failed to generate reply: %w", err)
	}

	body := textutil.FitPlain(result.Text, mastodon_api.ReplyBudget(r.charLimit, acct))

	if err = r.poster.PostReply(ctx, status, acct, body); err != nil {
		slog.Error("Failed to post reply",
			"status_id", status.ID,
			"acct", acct,
			"error", err)
	} else {
		slog.Info("Replied to mention",
			"acct", acct,
			"text", body,
			mylog.TelegramKey, true)
	}

	if err = r.store.Upsert(ctx, threadCtx.Key, result.ResponseID); err != nil {
		slog.Error("Failed to save conversation state",
			"thread_key", threadCtx.Key,
			"response_id", result.ResponseID,
			"error", err)
	}

	return nil
}
