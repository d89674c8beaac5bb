package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/booking-engine/internal/availability"
	"github.com/hackgods/booking-engine/internal/clock"
)

// SQLSTATE exclusion_violation, raised by appointments_no_overlap.
const pgExclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `id, account_id, offering_id, starts_at, duration_minutes, status,
	customer_phone, customer_name, appointment_type, notes, cancel_reason, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var mode string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Timezone,
		&mode,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	// unrecognised modes are kept as stored; DecideStatus gates them
	a.ReviewMode = ReviewMode(mode)
	return &a, nil
}

func scanOffering(row pgx.Row) (*Offering, error) {
	var o Offering

	err := row.Scan(
		&o.ID,
		&o.AccountID,
		&o.Name,
		&o.DurationMinutes,
		&o.IsActive,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferingNotFound
		}
		return nil, err
	}
	return &o, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.AccountID,
		&a.OfferingID,
		&a.StartsAt,
		&a.DurationMinutes,
		&a.Status,
		&a.CustomerPhone,
		&a.CustomerName,
		&a.AppointmentType,
		&a.Notes,
		&a.CancelReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.StartsAt = a.StartsAt.UTC()
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation
}

// Accounts and offerings

func (r *PgRepository) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, timezone, review_mode, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (r *PgRepository) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.ReviewMode == "" {
		a.ReviewMode = ReviewNever
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, name, timezone, review_mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.Name, a.Timezone, string(a.ReviewMode)).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *PgRepository) GetOffering(ctx context.Context, accountID, id uuid.UUID) (*Offering, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, account_id, name, duration_minutes, is_active, created_at
		FROM offerings
		WHERE id = $1 AND account_id = $2
	`, id, accountID)
	return scanOffering(row)
}

func (r *PgRepository) CreateOffering(ctx context.Context, o *Offering) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO offerings (id, account_id, name, duration_minutes, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`, o.ID, o.AccountID, o.Name, o.DurationMinutes, o.IsActive).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

// Configuration

func (r *PgRepository) GetReviewMode(ctx context.Context, accountID uuid.UUID) (ReviewMode, error) {
	var mode string
	err := r.pool.QueryRow(ctx, `SELECT review_mode FROM accounts WHERE id = $1`, accountID).Scan(&mode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	return ReviewMode(mode), nil
}

// GetWeeklySchedule returns the stored schedule, creating the default one
// when the account has none yet.
func (r *PgRepository) GetWeeklySchedule(ctx context.Context, accountID uuid.UUID) (availability.WeeklySchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_available, time_slots
		FROM weekly_schedules
		WHERE account_id = $1
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weekly := make(availability.WeeklySchedule, 7)
	for rows.Next() {
		var (
			weekday int16
			day     availability.DaySchedule
			slots   []byte
		)
		if err := rows.Scan(&weekday, &day.IsAvailable, &slots); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(slots, &day.TimeSlots); err != nil {
			return nil, fmt.Errorf("decode time slots for weekday %d: %w", weekday, err)
		}
		weekly[time.Weekday(weekday)] = day
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(weekly) > 0 {
		return weekly, nil
	}

	def := availability.DefaultWeeklySchedule()
	if err := r.writeWeeklySchedule(ctx, accountID, def, false); err != nil {
		return nil, fmt.Errorf("create default schedule: %w", err)
	}
	return def, nil
}

// SaveWeeklySchedule replaces the stored hours of every weekday in w.
func (r *PgRepository) SaveWeeklySchedule(ctx context.Context, accountID uuid.UUID, w availability.WeeklySchedule) error {
	if err := w.Validate(); err != nil {
		return err
	}
	return r.writeWeeklySchedule(ctx, accountID, w, true)
}

func (r *PgRepository) writeWeeklySchedule(ctx context.Context, accountID uuid.UUID, w availability.WeeklySchedule, overwrite bool) error {
	conflict := `ON CONFLICT (account_id, weekday) DO NOTHING`
	if overwrite {
		conflict = `ON CONFLICT (account_id, weekday) DO UPDATE
			SET is_available = EXCLUDED.is_available,
			    time_slots = EXCLUDED.time_slots,
			    updated_at = now()`
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for wd, day := range w {
		slots := day.TimeSlots
		if slots == nil {
			slots = []availability.LocalTimeRange{}
		}
		payload, err := json.Marshal(slots)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO weekly_schedules (account_id, weekday, is_available, time_slots, updated_at)
			VALUES ($1, $2, $3, $4, now())
		`+conflict, accountID, int16(wd), day.IsAvailable, payload)
		if err != nil {
			return fmt.Errorf("write weekday %d: %w", wd, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetBlackoutDates(ctx context.Context, accountID uuid.UUID) (availability.BlackoutSet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, reason
		FROM blackout_dates
		WHERE account_id = $1
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(availability.BlackoutSet)
	for rows.Next() {
		var (
			day    time.Time
			reason string
		)
		if err := rows.Scan(&day, &reason); err != nil {
			return nil, err
		}
		set[clock.DateOf(day)] = reason
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

func (r *PgRepository) AddBlackoutDate(ctx context.Context, b availability.BlackoutDate) error {
	day := time.Date(b.Date.Year, b.Date.Month, b.Date.Day, 0, 0, 0, 0, time.UTC)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO blackout_dates (account_id, date, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, date) DO UPDATE SET reason = EXCLUDED.reason
	`, b.AccountID, day, b.Reason)
	if err != nil {
		return fmt.Errorf("add blackout date: %w", err)
	}
	return nil
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveAppointments(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return r.ListAppointments(ctx, accountID, from, to, ActiveStatuses)
}

func (r *PgRepository) ListAppointments(ctx context.Context, accountID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE (account_id = $1 OR account_id IS NULL)
		  AND status = ANY($2)
		  AND starts_at < $4
		  AND ends_at > $3
		ORDER BY starts_at
	`, accountID, statusStrings(statuses), from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a NewAppointment) (*Appointment, error) {
	id := uuid.New()
	endsAt := a.StartsAt.Add(time.Duration(a.DurationMinutes) * time.Minute)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, account_id, offering_id, starts_at, ends_at, duration_minutes, status,
			customer_phone, customer_name, appointment_type, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+appointmentColumns,
		id, a.AccountID, a.OfferingID, a.StartsAt, endsAt, a.DurationMinutes, string(a.Status),
		a.CustomerPhone, a.CustomerName, a.AppointmentType, a.Notes)

	appt, err := scanAppointment(row)
	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, reason string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    cancel_reason = COALESCE(NULLIF($4::text, ''), cancel_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns,
		id, string(to), statusStrings(from), reason)

	return scanAppointment(row)
}

func (r *PgRepository) FindElapsed(ctx context.Context, before time.Time, statuses []Status) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = ANY($2)
		  AND ends_at < $1
		ORDER BY ends_at
	`, before, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
