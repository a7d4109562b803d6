package repository

import (
	"context"
	"sync/atomic"
	"time"

	"localpro/internal/domain"
	"localpro/internal/events"

	"github.com/rs/zerolog"
)

// FailoverEventQueue prefers the primary queue and falls back to the
// secondary when the primary errors, retrying the primary after a cooldown.
type FailoverEventQueue struct {
	primary   domain.EventQueue
	fallback  domain.EventQueue
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	cooldown  time.Duration
}

func NewFailoverEventQueue(primary, fallback domain.EventQueue, logger *zerolog.Logger) *FailoverEventQueue {
	return &FailoverEventQueue{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		cooldown: time.Minute,
	}
}

func (q *FailoverEventQueue) Enqueue(ctx context.Context, event events.Event) error {
	if !q.isDown.Load() {
		err := q.primary.Enqueue(ctx, event)
		if err == nil {
			return nil
		}
		q.logger.Error().Err(err).Str("event_type", event.Type).
			Msg("primary event queue failed, falling back to memory")
		q.isDown.Store(true)
		q.lastCheck.Store(time.Now().UnixNano())
		return q.fallback.Enqueue(ctx, event)
	}

	// Probe the primary again after the cooldown.
	last := time.Unix(0, q.lastCheck.Load())
	if time.Since(last) > q.cooldown {
		q.lastCheck.Store(time.Now().UnixNano())
		if err := q.primary.Enqueue(ctx, event); err == nil {
			q.isDown.Store(false)
			return nil
		}
	}

	return q.fallback.Enqueue(ctx, event)
}
