package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-engine/internal/appointment"
)

type CreateAppointmentRequest struct {
	CustomerPhone   string `json:"customer_phone"`
	CustomerName    string `json:"customer_name"`
	LocalDatetime   string `json:"local_datetime"`
	DurationMinutes int    `json:"duration_minutes"`
	ServiceID       string `json:"service_id,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Flagged         bool   `json:"flagged,omitempty"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type SystemBlockRequest struct {
	LocalDatetime   string `json:"local_datetime"`
	Timezone        string `json:"timezone"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	AccountID       *uuid.UUID `json:"account_id"`
	ServiceID       *uuid.UUID `json:"service_id,omitempty"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	CustomerPhone   string     `json:"customer_phone,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	AppointmentType string     `json:"appointment_type,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CancelReason    *string    `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		AccountID:       a.AccountID,
		ServiceID:       a.OfferingID,
		StartsAt:        a.StartsAt,
		EndsAt:          a.EndsAt(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		CustomerPhone:   a.CustomerPhone,
		CustomerName:    a.CustomerName,
		AppointmentType: a.AppointmentType,
		Notes:           a.Notes,
		CancelReason:    a.CancelReason,
		CreatedAt:       a.CreatedAt,
	}
}

type ListAppointmentsResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
