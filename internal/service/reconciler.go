package service

import (
	"context"
	"time"

	"localpro/internal/domain"
	"localpro/internal/metrics"
	"localpro/internal/models"

	"github.com/rs/zerolog"
)

// Reconciler sweeps confirmed bookings whose date has passed and completes
// them through the regular transition path as the system actor.
type Reconciler struct {
	bookings *BookingService
	repo     domain.BookingStore
	logger   *zerolog.Logger
}

func NewReconciler(bookings *BookingService, repo domain.BookingStore, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{bookings: bookings, repo: repo, logger: logger}
}

// ReconcileResult reports one sweep for one provider.
type ReconcileResult struct {
	Count      int     `json:"count"`
	SkippedIDs []int64 `json:"skipped_ids,omitempty"`
}

// CompleteOverdue closes every confirmed booking dated strictly before today.
// A booking that fails to transition, for example because a party cancelled
// it concurrently, is skipped and the sweep continues. Re-running is safe:
// completed bookings no longer match.
func (r *Reconciler) CompleteOverdue(ctx context.Context, providerID int64, now time.Time) (ReconcileResult, error) {
	overdue, err := r.repo.ListOverdueBookings(ctx, providerID, now)
	if err != nil {
		return ReconcileResult{}, err
	}

	var result ReconcileResult
	system := models.Actor{Role: models.RoleSystem}
	for _, b := range overdue {
		if _, err := r.bookings.Transition(ctx, b.ID, system, models.StatusCompleted, "", now); err != nil {
			result.SkippedIDs = append(result.SkippedIDs, b.ID)
			r.logger.Debug().Err(err).Int64("booking_id", b.ID).
				Msg("skipping overdue booking that failed to complete")
			continue
		}
		result.Count++
	}

	if result.Count > 0 {
		metrics.AddOverdueCompleted(result.Count)
		r.logger.Info().
			Int64("provider_id", providerID).
			Int("completed", result.Count).
			Int("skipped", len(result.SkippedIDs)).
			Msg("overdue bookings reconciled")
	}
	return result, nil
}

// CompleteAllOverdue runs the sweep for every provider holding overdue
// bookings, used by the periodic trigger.
func (r *Reconciler) CompleteAllOverdue(ctx context.Context, now time.Time) (int, error) {
	providers, err := r.repo.ListProvidersWithOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, providerID := range providers {
		res, err := r.CompleteOverdue(ctx, providerID, now)
		if err != nil {
			r.logger.Error().Err(err).Int64("provider_id", providerID).
				Msg("overdue sweep failed for provider")
			continue
		}
		total += res.Count
	}
	return total, nil
}
