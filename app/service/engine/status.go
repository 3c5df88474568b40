package engine

import (
	"sync"
	"time"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

type Status struct {
	State       State     `json:"state"`
	Connects    int       `json:"connects"`
	Reconnects  int       `json:"reconnects"`
	LastFrameAt time.Time `json:"last_frame_at,omitzero"`
	Mentions    int       `json:"mentions"`
}

type status struct {
	mu sync.RWMutex
	v  Status
}

func (s *status) update(fn func(v *Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.v)
}

func (s *status) get() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.v
}
