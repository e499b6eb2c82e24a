package stream

import (
	"context"
	"sync/atomic"
)

const DefaultQueueCapacity = 10

// FrameQueue is a bounded FIFO of raw frame payloads for exactly one producer
// and one consumer. When full, new frames are shed instead of blocking the
// producer.
type FrameQueue struct {
	frames  chan []byte
	dropped atomic.Uint64
}

func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &FrameQueue{frames: make(chan []byte, capacity)}
}

// Push never blocks. A frame arriving while the queue is full is discarded
// and counted; the caller sees no difference.
func (q *FrameQueue) Push(frame []byte) {
	select {
	case q.frames <- frame:
	default:
		q.dropped.Add(1)
	}
}

// Pop waits for the oldest frame or for ctx to end.
func (q *FrameQueue) Pop(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case frame := <-q.frames:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *FrameQueue) Len() int { return len(q.frames) }

func (q *FrameQueue) Cap() int { return cap(q.frames) }

func (q *FrameQueue) Dropped() uint64 { return q.dropped.Load() }
