package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"EmotionStream/internal/entity"
	contextPkg "EmotionStream/pkg/context"
	"EmotionStream/pkg/log"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLogInterval   = 500 * time.Millisecond
	DefaultShutdownWait  = 5 * time.Second
	DefaultRecordTimeout = 5 * time.Second
)

// Conn is the client side of the stream. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Detector turns one encoded frame into an emotion label, or nil when no
// face is found. An error means the frame could not be processed.
type Detector interface {
	Detect(ctx context.Context, frame []byte) (*string, error)
}

type Recorder interface {
	Record(ctx context.Context, record entity.EmotionRecord) error
}

type IDGenerator interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
}

var errConnReleased = errors.New("connection already released")

// guardedConn keeps the detection loop from writing once cleanup has let go
// of the connection. The framework recycles the conn after Serve returns.
type guardedConn struct {
	Conn

	mu       sync.Mutex
	released bool
}

func (c *guardedConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return errConnReleased
	}
	return c.Conn.WriteJSON(v)
}

// release closes the connection first so a write blocked on it returns and
// frees the lock.
func (c *guardedConn) release() error {
	err := c.Conn.Close()

	c.mu.Lock()
	c.released = true
	c.mu.Unlock()

	return err
}

type PipelineOption func(*Pipeline)

// Pipeline wires the ingress loop, the frame queue and the detection loop of
// every connection it serves.
type Pipeline struct {
	detector Detector
	recorder Recorder
	registry *Registry
	ids      IDGenerator
	log      *logrus.Logger

	queueCapacity int
	logInterval   time.Duration
	shutdownWait  time.Duration
	recordTimeout time.Duration
	now           func() time.Time
}

func NewPipeline(
	detector Detector,
	recorder Recorder,
	registry *Registry,
	ids IDGenerator,
	logger *logrus.Logger,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		detector:      detector,
		recorder:      recorder,
		registry:      registry,
		ids:           ids,
		log:           logger,
		queueCapacity: DefaultQueueCapacity,
		logInterval:   DefaultLogInterval,
		shutdownWait:  DefaultShutdownWait,
		recordTimeout: DefaultRecordTimeout,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func WithQueueCapacity(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.queueCapacity = n
		}
	}
}

func WithLogInterval(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.logInterval = d
	}
}

// WithShutdownWait bounds how long cleanup waits for the detection loop.
func WithShutdownWait(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.shutdownWait = d
		}
	}
}

func WithRecordTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.recordTimeout = d
		}
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Serve supervises one connection. It starts the detection loop, runs the
// ingress loop until the client goes away and then tears everything down.
// The returned error is the one that ended ingress.
func (p *Pipeline) Serve(ctx context.Context, conn Conn) error {
	now := p.now()
	id, err := p.ids.NewULIDFromTimestamp(now)
	if err != nil {
		id = now.Format(time.RFC3339Nano)
	}

	queue := NewFrameQueue(p.queueCapacity)
	session := NewSession(ctx, id, queue, now)

	if prev := p.registry.Attach(session); prev != nil {
		p.log.WithFields(log.Fields{
			"session_id":  id,
			"replaced_id": prev.ID(),
		}).Warn("New connection replaced the current session")
	}

	p.log.WithFields(log.Fields{"session_id": id}).Info("Emotion stream connected")

	guarded := &guardedConn{Conn: conn}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.detect(session, queue, guarded)
	}()

	defer p.cleanup(session, queue, guarded, done)

	return p.ingest(conn, queue)
}

// ingest reads frames until the connection fails. It never cleans up.
func (p *Pipeline) ingest(conn Conn, queue *FrameQueue) error {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if messageType != websocket.BinaryMessage {
			p.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		queue.Push(message)
	}
}

func (p *Pipeline) cleanup(session *Session, queue *FrameQueue, conn *guardedConn, done <-chan struct{}) {
	session.cancel()

	timer := time.NewTimer(p.shutdownWait)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		p.log.WithFields(log.Fields{
			"session_id": session.ID(),
			"wait":       p.shutdownWait,
		}).Warn("Detection loop did not stop in time")
	}

	if err := conn.release(); err != nil {
		p.log.Debugf("Error closing websocket: %v", err)
	}

	session.Reset()
	p.registry.Detach(session)

	p.log.WithFields(log.Fields{
		"session_id": session.ID(),
		"queued":     queue.Len(),
		"dropped":    queue.Dropped(),
	}).Info("Emotion stream disconnected")
}

// detect is the consumer side. A frame whose processing is interrupted by
// cancellation produces no result.
func (p *Pipeline) detect(session *Session, queue *FrameQueue, conn Conn) {
	defer session.deactivate()

	ctx := session.Context()

	for session.Active() {
		frame, err := queue.Pop(ctx)
		if err != nil {
			return
		}

		emotion, err := p.detector.Detect(ctx, frame)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.log.WithFields(log.Fields{
				"session_id": session.ID(),
				"error":      err.Error(),
			}).Warn("Dropping frame that could not be processed")
			continue
		}

		if emotion != nil {
			p.record(ctx, session, *emotion)
			if ctx.Err() != nil {
				return
			}
		}

		if err := conn.WriteJSON(entity.DetectionResult{Emotion: emotion}); err != nil {
			p.log.Debugf("Error writing detection result: %v", err)
			return
		}
	}
}

func (p *Pipeline) record(ctx context.Context, session *Session, emotion string) {
	now := p.now()

	clientName, ok := session.claimLogSlot(now, p.logInterval)
	if !ok {
		return
	}

	id, err := p.ids.NewULIDFromTimestamp(now)
	if err != nil {
		p.log.Errorf("Failed to generate record id: %v", err)
		return
	}

	// the write outlives a cancellation so it never stops half-way
	writeCtx, cancel := contextPkg.Detached(ctx, p.recordTimeout)
	defer cancel()

	err = p.recorder.Record(writeCtx, entity.EmotionRecord{
		ID:         id,
		ClientName: clientName,
		Emotion:    emotion,
		CreatedAt:  now,
	})
	if err != nil {
		p.log.WithFields(log.Fields{
			"session_id": session.ID(),
			"client":     clientName,
			"emotion":    emotion,
			"error":      err.Error(),
		}).Error("Failed to record emotion")
	}
}
