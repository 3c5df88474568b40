package mastodon_api

import (
	"context"
	"mastogpt/app/config"
	"net/http"

	"github.com/mattn/go-mastodon"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const userAgent = "mastogpt/1.0"

// Client covers the three REST calls the bot needs: thread context lookup,
// replying to a status and posting a standalone status.
type Client struct {
	api *mastodon.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Mastodon, &http.Client{Timeout: cfg.Mastodon.Timeout}), nil
}

func New(cfg config.Mastodon, httpClient *http.Client) *Client {
	api := mastodon.NewClient(&mastodon.Config{
		Server:      cfg.BaseURL,
		AccessToken: cfg.AccessToken,
	})
	api.Client = *httpClient
	api.UserAgent = userAgent

	return &Client{api: api}
}

// FetchThreadContext returns the ancestors (oldest first) and descendants of
// a status.
func (c *Client) FetchThreadContext(ctx context.Context, statusID string) (*mastodon.Context, error) {
	threadCtx, err := c.api.GetStatusContext(ctx, mastodon.ID(statusID))
	if err != nil {
		return nil, oops.
			In("mastodon").
			With("status_id", statusID).
			Wrapf(err, "failed to fetch status context")
	}

	return threadCtx, nil
}

// PostReply answers replyTo as "@acct body" with the visibility of the
// original status.
func (c *Client) PostReply(ctx context.Context, replyTo *mastodon.Status, acct, body string) error {
	_, err := c.api.PostStatus(ctx, &mastodon.Toot{
		Status:      FormatReply(acct, body),
		InReplyToID: replyTo.ID,
		Visibility:  replyTo.Visibility,
	})
	if err != nil {
		return oops.
			In("mastodon").
			With("in_reply_to_id", string(replyTo.ID)).
			With("acct", acct).
			Wrapf(err, "failed to post reply")
	}

	return nil
}

func (c *Client) PostStatus(ctx context.Context, body string, visibility config.Visibility) error {
	_, err := c.api.PostStatus(ctx, &mastodon.Toot{
		Status:     body,
		Visibility: visibility.String(),
	})
	if err != nil {
		return oops.
			In("mastodon").
			With("visibility", visibility.String()).
			Wrapf(err, "failed to post status")
	}

	return nil
}

func FormatReply(acct, body string) string {
	return "@" + acct + " " + body
}

// ReplyBudget is how many characters of body fit next to the leading mention.
// It is at least 1 so the body is always bounded.
func ReplyBudget(charLimit int, acct string) int {
	return max(charLimit-len([]rune(FormatReply(acct, ""))), 1)
}
