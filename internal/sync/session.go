package sync

import (
	stdsync "sync"
	"time"
)

// SessionEvent is broadcast when the stored credential is invalidated.
type SessionEvent struct {
	Reason string
	At     time.Time
}

// Session holds the bearer token and fans out expiry events. However many
// in-flight requests hit a 401 for the same credential, subscribers see
// exactly one event; storing a fresh token re-arms the signal.
type Session struct {
	mu      stdsync.Mutex
	token   string
	expired bool
	subs    []chan SessionEvent
}

func NewSession() *Session {
	return &Session{}
}

// SetToken stores a credential and re-arms expiry signalling.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expired = false
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Clear drops the credential without signalling, for explicit logout.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expired = false
}

// Subscribe returns a channel receiving expiry events. The channel is
// buffered so a slow subscriber cannot block the network layer.
func (s *Session) Subscribe() <-chan SessionEvent {
	ch := make(chan SessionEvent, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// expire clears the credential and broadcasts once. Calls after the first,
// for the same credential, are no-ops.
func (s *Session) expire(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return
	}
	s.expired = true
	s.token = ""

	event := SessionEvent{Reason: reason, At: time.Now()}
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
