package thread

import (
	"context"
	"log/slog"
	"mastogpt/app/client/mastodon_api"
	"mastogpt/app/util/textutil"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/mattn/go-mastodon"
	"github.com/samber/do"
)

// maxAncestors is how far back the transcript reaches.
const maxAncestors = 10

type ContextFetcher interface {
	FetchThreadContext(ctx context.Context, statusID string) (*mastodon.Context, error)
}

// Context identifies the thread of a status and carries its recent history.
type Context struct {
	// Key is the id of the thread root
	Key string
	// Transcript is one "- text" line per post, oldest first; empty when
	// nothing is known about the thread
	Transcript string
}

type Resolver struct {
	fetcher ContextFetcher
}

func New(di *do.Injector) (*Resolver, error) {
	return NewResolver(do.MustInvoke[*mastodon_api.Client](di)), nil
}

func NewResolver(fetcher ContextFetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve never fails: when the thread cannot be fetched the status itself
// becomes the thread root and the transcript stays empty.
func (r *Resolver) Resolve(ctx context.Context, status *mastodon.Status) Context {
	statusID := string(status.ID)

	threadCtx, err := r.fetcher.FetchThreadContext(ctx, statusID)
	if err != nil {
		slog.Warn("Failed to fetch thread context",
			"status_id", statusID,
			"error", err)

		return Context{Key: statusID}
	}

	key := statusID
	if len(threadCtx.Ancestors) > 0 {
		key = string(threadCtx.Ancestors[0].ID)
	}

	return Context{
		Key:        key,
		Transcript: FormatTranscript(threadCtx.Ancestors, status),
	}
}

// FormatTranscript renders the last ancestors and the current status.
func FormatTranscript(ancestors []*mastodon.Status, current *mastodon.Status) string {
	if len(ancestors) > maxAncestors {
		ancestors = ancestors[len(ancestors)-maxAncestors:]
	}

	posts := make([]*mastodon.Status, 0, len(ancestors)+1)
	posts = append(posts, ancestors...)
	posts = append(posts, current)

	lines := pie.Filter(
		pie.Map(posts, func(s *mastodon.Status) string {
			return textutil.StripHTML(s.Content)
		}),
		func(text string) bool {
			return text != ""
		},
	)

	return strings.Join(pie.Map(lines, func(text string) string {
		return "- " + text
	}), "\n")
}
