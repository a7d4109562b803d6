package worker

import (
	"context"
	"time"

	"localpro/internal/models"
	"localpro/internal/service"

	"github.com/rs/zerolog"
)

// ReconcileLoop runs the overdue sweep once a day at a configured local
// time, completing confirmed bookings whose date has passed.
type ReconcileLoop struct {
	reconciler *service.Reconciler
	runAtMin   int // minutes from midnight
	logger     *zerolog.Logger
}

// NewReconcileLoop parses runAt as "HH:MM" local time. An unparsable value
// falls back to 03:00.
func NewReconcileLoop(reconciler *service.Reconciler, runAt string, logger *zerolog.Logger) *ReconcileLoop {
	minutes, err := models.ParseClock(runAt)
	if err != nil {
		logger.Warn().Str("run_at", runAt).Msg("invalid reconcile time, defaulting to 03:00")
		minutes = 3 * 60
	}
	return &ReconcileLoop{
		reconciler: reconciler,
		runAtMin:   minutes,
		logger:     logger,
	}
}

// Start blocks until ctx is done, sweeping once per scheduled tick.
func (l *ReconcileLoop) Start(ctx context.Context) {
	l.logger.Info().Str("run_at", models.ClockString(l.runAtMin)).Msg("reconcile loop started")
	defer l.logger.Info().Msg("reconcile loop stopped")

	for {
		wait := time.Until(l.nextRun(time.Now()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		now := time.Now()
		completed, err := l.reconciler.CompleteAllOverdue(ctx, now)
		if err != nil {
			l.logger.Error().Err(err).Msg("scheduled overdue sweep failed")
			continue
		}
		l.logger.Info().Int("completed", completed).Msg("scheduled overdue sweep finished")
	}
}

// nextRun returns the next occurrence of the configured clock time strictly
// after now.
func (l *ReconcileLoop) nextRun(now time.Time) time.Time {
	day := models.DateOnly(now)
	run := day.Add(time.Duration(l.runAtMin) * time.Minute)
	if !run.After(now) {
		run = run.AddDate(0, 0, 1)
	}
	return run
}
