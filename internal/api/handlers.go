package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/appointment"
	"github.com/hackgods/booking-engine/internal/clock"
)

type handlers struct {
	svc    BookingService
	logger *zap.Logger
}

func (h *handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	accountID, ok := uuidParam(w, r, "accountID", "account_id")
	if !ok {
		return
	}
	date, ok := dateQuery(w, r)
	if !ok {
		return
	}

	duration := 0
	if v := r.URL.Query().Get("duration"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be a non-negative number of minutes")
			return
		}
		duration = n
	}

	res, err := h.svc.CheckAvailability(r.Context(), accountID, date, duration)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	accountID, ok := uuidParam(w, r, "accountID", "account_id")
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	booking := appointment.BookingRequest{
		AccountID:       accountID,
		CustomerPhone:   req.CustomerPhone,
		CustomerName:    req.CustomerName,
		LocalDatetime:   req.LocalDatetime,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		Flagged:         req.Flagged,
	}
	if req.ServiceID != "" {
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}
		booking.OfferingID = &serviceID
	}

	appt, err := h.svc.BookAppointment(r.Context(), booking)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	accountID, ok := uuidParam(w, r, "accountID", "account_id")
	if !ok {
		return
	}
	date, ok := dateQuery(w, r)
	if !ok {
		return
	}

	statuses, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	appts, err := h.svc.ListAppointments(r.Context(), accountID, date, statuses)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := ListAppointmentsResponse{Appointments: make([]AppointmentResponse, len(appts))}
	for i := range appts {
		resp.Appointments[i] = toAppointmentResponse(&appts[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseStatusFilter accepts a comma separated status list or "all". Empty
// means the service default, active only.
func parseStatusFilter(raw string) ([]appointment.Status, error) {
	if raw == "" {
		return nil, nil
	}
	if raw == "all" {
		return appointment.AllStatuses, nil
	}
	var out []appointment.Status
	for _, part := range strings.Split(raw, ",") {
		s, err := appointment.ParseStatus(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "appointment_id")
	if !ok {
		return
	}

	appt, err := h.svc.GetAppointment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "appointment_id")
	if !ok {
		return
	}
	var req ReasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	appt, err := h.svc.CancelAppointment(r.Context(), id, req.Reason)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) approveAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "appointment_id")
	if !ok {
		return
	}

	appt, err := h.svc.ApproveAppointment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) rejectAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "appointment_id")
	if !ok {
		return
	}
	var req ReasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	appt, err := h.svc.RejectAppointment(r.Context(), id, req.Reason)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "appointment_id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	status, err := appointment.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	appt, err := h.svc.UpdateAppointmentStatus(r.Context(), id, status, req.Reason)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) createSystemBlock(w http.ResponseWriter, r *http.Request) {
	var req SystemBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := h.svc.BlockSystemTime(r.Context(), appointment.SystemBlockRequest{
		LocalDatetime:   req.LocalDatetime,
		Timezone:        req.Timezone,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, clock.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, "invalid_time_format", err.Error())
	case errors.Is(err, appointment.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.Is(err, appointment.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, appointment.ErrOfferingNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "day is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "storage failure, retry later")
	}
}

func uuidParam(w http.ResponseWriter, r *http.Request, param, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func dateQuery(w http.ResponseWriter, r *http.Request) (clock.Date, bool) {
	date, err := clock.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return clock.Date{}, false
	}
	return date, true
}

// decodeOptional decodes a JSON body into v, accepting an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}
