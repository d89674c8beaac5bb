package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/appointment"
	"github.com/hackgods/booking-engine/internal/availability"
	"github.com/hackgods/booking-engine/internal/clock"
)

// BookingService is the caller API served over HTTP. *appointment.Service
// implements it.
type BookingService interface {
	CheckAvailability(ctx context.Context, accountID uuid.UUID, date clock.Date, durationMinutes int) (availability.Result, error)
	BookAppointment(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListAppointments(ctx context.Context, accountID uuid.UUID, date clock.Date, statuses []appointment.Status) ([]appointment.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	ApproveAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	RejectAppointment(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to appointment.Status, reason string) (*appointment.Appointment, error)
	BlockSystemTime(ctx context.Context, req appointment.SystemBlockRequest) (*appointment.Appointment, error)
}

type RouterConfig struct {
	Service      BookingService
	Dependencies []Dependency
	Logger       *zap.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Dependencies, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := &handlers{svc: cfg.Service, logger: cfg.Logger}

	r.Route("/accounts/{accountID}", func(r chi.Router) {
		r.Get("/availability", h.checkAvailability)
		r.Get("/appointments", h.listAppointments)
		r.Post("/appointments", h.createAppointment)
	})

	r.Route("/appointments/{id}", func(r chi.Router) {
		r.Get("/", h.getAppointment)
		r.Post("/cancel", h.cancelAppointment)
		r.Post("/approve", h.approveAppointment)
		r.Post("/reject", h.rejectAppointment)
		r.Patch("/status", h.updateStatus)
	})

	r.Post("/system-blocks", h.createSystemBlock)

	return r
}
