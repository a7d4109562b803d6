package repository

import (
	"context"
	"sync"

	"localpro/internal/events"
)

// MemoryEventQueue buffers events in process. It backs the failover path when
// Redis is unreachable so transitions never fail on notification plumbing.
type MemoryEventQueue struct {
	mu     sync.Mutex
	buffer []events.Event
	limit  int
}

func NewMemoryEventQueue(limit int) *MemoryEventQueue {
	if limit <= 0 {
		limit = 1024
	}
	return &MemoryEventQueue{limit: limit}
}

func (q *MemoryEventQueue) Enqueue(ctx context.Context, event events.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buffer) >= q.limit {
		// Drop the oldest event to stay within the limit.
		q.buffer = q.buffer[1:]
	}
	q.buffer = append(q.buffer, event)
	return nil
}

// Drain returns and clears all buffered events.
func (q *MemoryEventQueue) Drain() []events.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.buffer
	q.buffer = nil
	return out
}

// Len returns the buffered event count.
func (q *MemoryEventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}
