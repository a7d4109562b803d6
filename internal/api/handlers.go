package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"localpro/internal/models"
	"localpro/internal/service"
)

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(raw))
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	tr, err := models.ParseTimeRange(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.availability.Capacity(r.Context(), providerID, date, tr)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type slotRequest struct {
	DayOfWeek   int    `json:"day_of_week"`
	Start       string `json:"start"`
	End         string `json:"end"`
	MaxBookings int    `json:"max_bookings"`
	BreakStart  string `json:"break_start,omitempty"`
	BreakEnd    string `json:"break_end,omitempty"`
}

func (req slotRequest) toModel(providerID int64) (*models.AvailabilitySlot, error) {
	window, err := models.ParseTimeRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	slot := &models.AvailabilitySlot{
		ProviderID:  providerID,
		DayOfWeek:   req.DayOfWeek,
		Start:       window.Start,
		End:         window.End,
		MaxBookings: req.MaxBookings,
	}
	if req.BreakStart != "" || req.BreakEnd != "" {
		br, err := models.ParseTimeRange(req.BreakStart, req.BreakEnd)
		if err != nil {
			return nil, err
		}
		slot.BreakStart = &br.Start
		slot.BreakEnd = &br.End
	}
	return slot, nil
}

func (s *HTTPServer) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req slotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	slot, err := req.toModel(providerID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.availability.CreateSlot(r.Context(), slot); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (s *HTTPServer) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slot, err := s.availability.GetSlot(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req slotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := req.toModel(slot.ProviderID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	updated.ID = slot.ID
	updated.Active = slot.Active
	if err := s.availability.UpdateSlot(r.Context(), updated); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleDeactivateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.availability.DeactivateSlot(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deactivated": true})
}

func (s *HTTPServer) handleListSlots(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slots, err := s.availability.ListSlots(r.Context(), providerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

type exceptionRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

func (s *HTTPServer) handleCreateException(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req exceptionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return
	}
	exc := &models.AvailabilityException{
		ProviderID: providerID,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
	}
	if err := s.availability.CreateException(r.Context(), exc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, exc)
}

func (s *HTTPServer) handleDeleteException(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.availability.DeleteException(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *HTTPServer) handleListExceptions(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	exceptions, err := s.availability.ListExceptions(r.Context(), providerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exceptions": exceptions})
}

func (s *HTTPServer) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var area models.ServiceArea
	if err := decodeBody(r, &area); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	area.ProviderID = providerID
	if err := s.availability.CreateServiceArea(r.Context(), &area); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

func (s *HTTPServer) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.availability.DeleteServiceArea(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *HTTPServer) handleListAreas(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	areas, err := s.availability.ListServiceAreas(r.Context(), providerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

type createBookingRequest struct {
	ProviderID int64  `json:"provider_id"`
	CustomerID int64  `json:"customer_id"`
	ServiceID  int64  `json:"service_id"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	tr, err := models.ParseTimeRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), service.CreateBookingInput{
		ProviderID: req.ProviderID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		Date:       date,
		Range:      tr,
	}, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := s.bookings.ListBookings(r.Context(), providerID, service.ListOptions{
		Status:   strings.TrimSpace(q.Get("status")),
		Hidden:   models.HiddenFilter(strings.TrimSpace(q.Get("hidden"))),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type transitionRequest struct {
	ActorRole string `json:"actor_role"`
	ActorID   int64  `json:"actor_id"`
	Target    string `json:"target"`
	Reason    string `json:"reason,omitempty"`
}

func (s *HTTPServer) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req transitionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	actor := models.Actor{Role: req.ActorRole, ID: req.ActorID}
	booking, err := s.bookings.Transition(r.Context(), id, actor, req.Target, req.Reason, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type visibilityRequest struct {
	ProviderID int64 `json:"provider_id"`
}

func (s *HTTPServer) handleHide(w http.ResponseWriter, r *http.Request) {
	s.handleVisibility(w, r, true)
}

func (s *HTTPServer) handleRestore(w http.ResponseWriter, r *http.Request) {
	s.handleVisibility(w, r, false)
}

func (s *HTTPServer) handleVisibility(w http.ResponseWriter, r *http.Request, hidden bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req visibilityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var booking *models.Booking
	if hidden {
		booking, err = s.bookings.Hide(r.Context(), id, req.ProviderID)
	} else {
		booking, err = s.bookings.Restore(r.Context(), id, req.ProviderID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleReconcile(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.reconciler.CompleteOverdue(r.Context(), providerID, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	start, err := parseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected YYYY-MM-DD")
		return
	}
	path, err := s.exporter.ScheduleToExcel(r.Context(), providerID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

type createRequestRequest struct {
	ProviderID int64  `json:"provider_id"`
	CustomerID int64  `json:"customer_id"`
	ServiceID  int64  `json:"service_id"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Note       string `json:"note,omitempty"`
}

func (s *HTTPServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	tr, err := models.ParseTimeRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	request := &models.BookingRequest{
		ProviderID: req.ProviderID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		Date:       date,
		Start:      tr.Start,
		End:        tr.End,
		Note:       req.Note,
	}
	if err := s.requests.CreateRequest(r.Context(), request); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (s *HTTPServer) handleListRequests(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requests, err := s.requests.ListRequests(r.Context(), providerID, strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

type quoteRequest struct {
	ProviderID int64   `json:"provider_id"`
	Amount     float64 `json:"amount"`
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req quoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	request, err := s.requests.Quote(r.Context(), id, req.ProviderID, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

type acceptRequest struct {
	CustomerID int64 `json:"customer_id"`
}

func (s *HTTPServer) handleAccept(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req acceptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	booking, err := s.requests.Accept(r.Context(), id, req.CustomerID, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

type declineRequest struct {
	ActorRole string `json:"actor_role"`
	ActorID   int64  `json:"actor_id"`
}

func (s *HTTPServer) handleDecline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req declineRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	request, err := s.requests.Decline(r.Context(), id, models.Actor{Role: req.ActorRole, ID: req.ActorID})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
