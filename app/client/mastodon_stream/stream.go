package mastodon_stream

import (
	"context"
	"errors"
	"mastogpt/app/config"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	handshakeTimeout = 15 * time.Second
	controlTimeout   = 10 * time.Second
)

// ErrClosed is returned by Conn.Next after the server sent a close frame.
var ErrClosed = errors.New("stream closed by server")

type Client struct {
	streamingURL string
	token        string
	stream       string
	idleTimeout  time.Duration
	dialer       *websocket.Dialer
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Mastodon), nil
}

func New(cfg config.Mastodon) *Client {
	return &Client{
		streamingURL: cfg.StreamingURL,
		token:        cfg.AccessToken,
		stream:       cfg.Stream,
		idleTimeout:  cfg.IdleTimeout,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// URL is the streaming endpoint with the access token and subscription in
// the query string.
func (c *Client) URL() (string, error) {
	u, err := url.Parse(c.streamingURL)
	if err != nil {
		return "", oops.In("mastodon_stream").Wrapf(err, "invalid streaming url")
	}

	q := u.Query()
	q.Set("access_token", c.token)
	q.Set("stream", c.stream)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	streamURL, err := c.URL()
	if err != nil {
		return nil, err
	}

	ws, resp, err := c.dialer.DialContext(ctx, streamURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		b := oops.In("mastodon_stream").With("url", c.streamingURL)
		if resp != nil {
			b = b.With("status", resp.StatusCode)
		}
		return nil, b.Wrapf(err, "failed to connect")
	}

	conn := &Conn{
		ws:          ws,
		idleTimeout: c.idleTimeout,
	}
	ws.SetPingHandler(conn.handlePing)
	ws.SetPongHandler(func(string) error {
		conn.touch()
		return nil
	})

	return conn, nil
}

// Conn is one live streaming connection. Next must be called from a single
// goroutine; Close may be called from any.
type Conn struct {
	ws          *websocket.Conn
	idleTimeout time.Duration
}

// touch pushes the read deadline forward; a peer silent for longer than the
// idle timeout fails the pending read.
func (c *Conn) touch() {
	if c.idleTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.idleTimeout))
	}
}

func (c *Conn) handlePing(appData string) error {
	c.touch()

	err := c.ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlTimeout))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}

	return err
}

// Next blocks until the next text frame. Ping frames are answered while
// reading; binary frames are skipped.
func (c *Conn) Next() ([]byte, error) {
	for {
		c.touch()

		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, oops.
					In("mastodon_stream").
					With("code", closeErr.Code).
					With("text", closeErr.Text).
					Wrap(errors.Join(ErrClosed, err))
			}
			return nil, oops.In("mastodon_stream").Wrapf(err, "read failed")
		}

		if messageType == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
