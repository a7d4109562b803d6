package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"localpro/internal/config"
	"localpro/internal/database"
	"localpro/internal/export"
	"localpro/internal/metrics"
	"localpro/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking engine over HTTP.
type HTTPServer struct {
	cfg          config.APIConfig
	availability *service.AvailabilityService
	bookings     *service.BookingService
	requests     *service.RequestService
	reconciler   *service.Reconciler
	exporter     *export.Exporter
	server       *http.Server
	auth         *HTTPAuth
	logger       *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	requests *service.RequestService,
	reconciler *service.Reconciler,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		availability: availability,
		bookings:     bookings,
		requests:     requests,
		reconciler:   reconciler,
		exporter:     exporter,
		auth:         NewHTTPAuth(cfg),
		logger:       logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/providers/{providerID}/availability", srv.handleAvailability)

	mux.HandleFunc("GET /api/v1/providers/{providerID}/slots", srv.handleListSlots)
	mux.HandleFunc("POST /api/v1/providers/{providerID}/slots", srv.handleCreateSlot)
	mux.HandleFunc("PUT /api/v1/slots/{id}", srv.handleUpdateSlot)
	mux.HandleFunc("DELETE /api/v1/slots/{id}", srv.handleDeactivateSlot)

	mux.HandleFunc("GET /api/v1/providers/{providerID}/exceptions", srv.handleListExceptions)
	mux.HandleFunc("POST /api/v1/providers/{providerID}/exceptions", srv.handleCreateException)
	mux.HandleFunc("DELETE /api/v1/exceptions/{id}", srv.handleDeleteException)

	mux.HandleFunc("GET /api/v1/providers/{providerID}/areas", srv.handleListAreas)
	mux.HandleFunc("POST /api/v1/providers/{providerID}/areas", srv.handleCreateArea)
	mux.HandleFunc("DELETE /api/v1/areas/{id}", srv.handleDeleteArea)

	mux.HandleFunc("POST /api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("GET /api/v1/providers/{providerID}/bookings", srv.handleListBookings)
	mux.HandleFunc("POST /api/v1/bookings/{id}/transition", srv.handleTransition)
	mux.HandleFunc("POST /api/v1/bookings/{id}/hide", srv.handleHide)
	mux.HandleFunc("POST /api/v1/bookings/{id}/restore", srv.handleRestore)

	mux.HandleFunc("POST /api/v1/providers/{providerID}/reconcile", srv.handleReconcile)
	mux.HandleFunc("GET /api/v1/providers/{providerID}/export", srv.handleExport)

	mux.HandleFunc("POST /api/v1/requests", srv.handleCreateRequest)
	mux.HandleFunc("GET /api/v1/providers/{providerID}/requests", srv.handleListRequests)
	mux.HandleFunc("POST /api/v1/requests/{id}/quote", srv.handleQuote)
	mux.HandleFunc("POST /api/v1/requests/{id}/accept", srv.handleAccept)
	mux.HandleFunc("POST /api/v1/requests/{id}/decline", srv.handleDecline)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = r.URL.Path
		}
		metrics.IncHTTP(endpoint)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps domain and service errors onto HTTP statuses, with
// structured bodies for the conflict family so clients can distinguish "no
// capacity" from "these bookings are in the way".
func writeServiceError(w http.ResponseWriter, err error) {
	var conflict *service.TimeConflictError
	var invalid *service.InvalidTransitionError
	var forbidden *service.ForbiddenError

	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":           "time conflict",
			"code":            "time_conflict",
			"conflicting_ids": conflict.ConflictingIDs,
		})
	case errors.Is(err, service.ErrSlotUnavailable):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(),
			"code":  "slot_unavailable",
		})
	case errors.Is(err, service.ErrOverlappingSlots),
		errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": invalid.Error(),
			"code":  "invalid_transition",
			"from":  invalid.From,
			"to":    invalid.To,
		})
	case errors.As(err, &forbidden):
		writeError(w, http.StatusForbidden, forbidden.Error())
	case errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrPastDate),
		errors.Is(err, service.ErrDateTooFar):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
