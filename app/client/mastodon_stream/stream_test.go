package mastodon_stream

import (
	"context"
	"mastogpt/app/config"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	client := New(config.Mastodon{
		StreamingURL: "wss://example.social/api/v1/streaming",
		AccessToken:  "tok en",
		Stream:       "user:notification",
	})

	raw, err := client.URL()
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "wss", u.Scheme)
	assert.Equal(t, "/api/v1/streaming", u.Path)
	assert.Equal(t, "tok en", u.Query().Get("access_token"))
	assert.Equal(t, "user:notification", u.Query().Get("stream"))
}

func TestConnectReadsTextFramesOnly(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotQuery := make(chan url.Values, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery <- r.URL.Query()

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		_ = ws.WriteControl(websocket.PingMessage, []byte("hi"), time.Now().Add(time.Second))
		_ = ws.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02})
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"notification"}`))
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_, _, _ = ws.ReadMessage()
	}))
	defer server.Close()

	client := New(config.Mastodon{
		StreamingURL: "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/streaming",
		AccessToken:  "secret",
		Stream:       "user",
	})

	conn, err := client.Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	q := <-gotQuery
	assert.Equal(t, "secret", q.Get("access_token"))
	assert.Equal(t, "user", q.Get("stream"))

	frame, err := conn.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"notification"}`, string(frame))

	_, err = conn.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(config.Mastodon{
		StreamingURL: "ws" + strings.TrimPrefix(server.URL, "http"),
		AccessToken:  "bad",
		Stream:       "user",
	})

	_, err := client.Connect(context.Background())
	require.Error(t, err)
}

func TestNextFailsOnSilentPeer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		<-release
	}))
	defer server.Close()
	defer close(release)

	client := New(config.Mastodon{
		StreamingURL: "ws" + strings.TrimPrefix(server.URL, "http"),
		AccessToken:  "token",
		Stream:       "user",
		IdleTimeout:  100 * time.Millisecond,
	})

	conn, err := client.Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	result := make(chan error, 1)
	go func() {
		_, err := conn.Next()
		result <- err
	}()

	select {
	case err := <-result:
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrClosed)
	case <-time.After(3 * time.Second):
		t.Fatal("read on a silent connection did not time out")
	}
}

func TestPingsKeepConnectionAlive(t *testing.T) {
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		// pongs are only processed while the server reads
		go func() {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for range 8 {
			time.Sleep(40 * time.Millisecond)
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"delete","payload":"1"}`))
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	client := New(config.Mastodon{
		StreamingURL: "ws" + strings.TrimPrefix(server.URL, "http"),
		AccessToken:  "token",
		Stream:       "user",
		IdleTimeout:  150 * time.Millisecond,
	})

	conn, err := client.Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	// 320ms of pings only, more than twice the idle timeout
	frame, err := conn.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"delete","payload":"1"}`, string(frame))
}
