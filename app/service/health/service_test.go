package health

import (
	"context"
	"encoding/json"
	"io"
	"mastogpt/app/service/engine"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStatus engine.Status

func (s staticStatus) Status() engine.Status {
	return engine.Status(s)
}

func TestHealthzConnected(t *testing.T) {
	svc := NewService("", staticStatus{
		State:       engine.StateConnected,
		Connects:    2,
		Reconnects:  1,
		LastFrameAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Mentions:    5,
	})

	resp, err := svc.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "connected", got["state"])
	assert.EqualValues(t, 2, got["connects"])
	assert.EqualValues(t, 5, got["mentions"])
	assert.Equal(t, "2026-01-01T00:00:00Z", got["last_frame_at"])
}

func TestHealthzDisconnected(t *testing.T) {
	svc := NewService("", staticStatus{State: engine.StateConnecting})

	resp, err := svc.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 503, resp.StatusCode)
}

func TestRunWithoutListenAddress(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewService("", staticStatus{}).Run(t.Context())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run blocked without a listen address")
	}
}

func TestRunBindFailureReturns(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewService(taken.Addr().String(), staticStatus{}).Run(t.Context())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after a bind failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	svc := NewService("127.0.0.1:0", staticStatus{State: engine.StateConnected})

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop")
	}
}
