package stream

import (
	"context"
	"sync"
	"time"
)

// Session is the mutable state of one websocket connection. It is shared by
// the ingress loop, the detection loop and the register/stop endpoints.
type Session struct {
	id          string
	connectedAt time.Time
	queue       *FrameQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	active      bool
	clientName  string
	lastLogTime time.Time
}

type SessionStatus struct {
	ID          string    `json:"id"`
	Active      bool      `json:"active"`
	ClientName  *string   `json:"client_name"`
	Queued      int       `json:"queued"`
	Dropped     uint64    `json:"dropped"`
	ConnectedAt time.Time `json:"connected_at"`
}

func NewSession(parent context.Context, id string, queue *FrameQueue, now time.Time) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:          id,
		connectedAt: now,
		queue:       queue,
		ctx:         ctx,
		cancel:      cancel,
		active:      true,
	}
}

func (s *Session) ID() string { return s.id }

// Context is cancelled by Stop, Reset or the parent context.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Register overwrites any previously registered client name.
func (s *Session) Register(name string) {
	s.mu.Lock()
	s.clientName = name
	s.mu.Unlock()
}

func (s *Session) ClientName() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientName, s.clientName != ""
}

// Stop turns detection off. The detection loop sees it at its next check, or
// at once if it is waiting for a frame. Ingress keeps running.
func (s *Session) Stop() {
	s.deactivate()
	s.cancel()
}

// Reset returns the session to inactive and anonymous.
func (s *Session) Reset() {
	s.mu.Lock()
	s.active = false
	s.clientName = ""
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// claimLogSlot reports whether a record may be written at now: a client must
// be registered and at least interval must have passed since the last write.
// On success the slot is taken, so concurrent callers cannot both write.
func (s *Session) claimLogSlot(now time.Time, interval time.Duration) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clientName == "" {
		return "", false
	}
	if !s.lastLogTime.IsZero() && now.Sub(s.lastLogTime) < interval {
		return "", false
	}

	s.lastLogTime = now
	return s.clientName, true
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SessionStatus{
		ID:          s.id,
		Active:      s.active,
		ConnectedAt: s.connectedAt,
	}
	if s.clientName != "" {
		name := s.clientName
		status.ClientName = &name
	}
	if s.queue != nil {
		status.Queued = s.queue.Len()
		status.Dropped = s.queue.Dropped()
	}
	return status
}
