package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/app"
	"github.com/hackgods/booking-engine/internal/appointment"
	"github.com/hackgods/booking-engine/internal/availability"
	"github.com/hackgods/booking-engine/internal/clock"
	"github.com/hackgods/booking-engine/internal/config"
	"github.com/hackgods/booking-engine/internal/db"
	"github.com/hackgods/booking-engine/internal/logging"
)

var timezones = []string{
	"UTC",
	"America/New_York",
	"America/Sao_Paulo",
	"Europe/Berlin",
	"Europe/London",
	"Asia/Kolkata",
	"Asia/Tokyo",
	"Australia/Sydney",
}

var offeringNames = []string{
	"Consultation",
	"Haircut",
	"Massage",
	"Follow-up",
	"Dental cleaning",
	"Coaching session",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	cfg.LockBackend = config.LockBackendLocal

	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	accounts := getInt("SEED_ACCOUNTS", 20)
	bookingsPerAccount := getInt("SEED_BOOKINGS", 15)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if err := db.Migrate(ctx, a.Pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	s := &seeder{app: a, logger: logger, faker: gofakeit.New(0)}
	for i := 0; i < accounts; i++ {
		if err := s.seedAccount(ctx, bookingsPerAccount); err != nil {
			logger.Fatal("seed account", zap.Error(err))
		}
	}

	logger.Info("seed complete",
		zap.Int("accounts", accounts),
		zap.Int("booked", s.booked),
		zap.Int("rejected", s.rejected),
	)
}

type seeder struct {
	app    *app.App
	logger *zap.Logger
	faker  *gofakeit.Faker

	booked   int
	rejected int
}

func (s *seeder) seedAccount(ctx context.Context, bookings int) error {
	modes := []appointment.ReviewMode{appointment.ReviewNever, appointment.ReviewOnRedflag, appointment.ReviewAlways}

	acct := &appointment.Account{
		Name:       s.faker.Company(),
		Timezone:   timezones[s.faker.Number(0, len(timezones)-1)],
		ReviewMode: modes[s.faker.Number(0, len(modes)-1)],
	}
	if err := s.app.Repo.CreateAccount(ctx, acct); err != nil {
		return err
	}

	weekly := availability.DefaultWeeklySchedule()
	if s.faker.Bool() {
		// split day with a lunch break and Saturday mornings
		for wd := time.Monday; wd <= time.Friday; wd++ {
			weekly[wd] = availability.DaySchedule{IsAvailable: true, TimeSlots: []availability.LocalTimeRange{
				{Start: 8 * 60, End: 12 * 60},
				{Start: 13 * 60, End: 18 * 60},
			}}
		}
		weekly[time.Saturday] = availability.DaySchedule{IsAvailable: true, TimeSlots: []availability.LocalTimeRange{
			{Start: 9 * 60, End: 13 * 60},
		}}
	}
	if err := s.app.Repo.SaveWeeklySchedule(ctx, acct.ID, weekly); err != nil {
		return err
	}

	var offerings []*appointment.Offering
	for n := s.faker.Number(1, 3); len(offerings) < n; {
		o := &appointment.Offering{
			AccountID:       acct.ID,
			Name:            offeringNames[s.faker.Number(0, len(offeringNames)-1)],
			DurationMinutes: []int{15, 30, 45, 60, 90}[s.faker.Number(0, 4)],
			IsActive:        true,
		}
		if err := s.app.Repo.CreateOffering(ctx, o); err != nil {
			return err
		}
		offerings = append(offerings, o)
	}

	loc := s.app.Service.Zones().Resolve(acct.Timezone)
	today := clock.At(time.Now(), loc).Date()

	blackout := today.AddDays(s.faker.Number(3, 30))
	err := s.app.Repo.AddBlackoutDate(ctx, availability.BlackoutDate{
		AccountID: acct.ID,
		Date:      blackout,
		Reason:    s.faker.Phrase(),
	})
	if err != nil {
		return err
	}

	for i := 0; i < bookings; i++ {
		o := offerings[s.faker.Number(0, len(offerings)-1)]
		date := today.AddDays(s.faker.Number(1, 14))
		start := clock.TimeOfDay(s.faker.Number(8*4, 17*4) * 15)

		_, err := s.app.Service.BookAppointment(ctx, appointment.BookingRequest{
			AccountID:     acct.ID,
			OfferingID:    &o.ID,
			CustomerPhone: s.faker.Phone(),
			CustomerName:  s.faker.Name(),
			LocalDatetime: date.String() + "T" + start.String(),
			Notes:         s.faker.Phrase(),
			Flagged:       s.faker.Number(1, 10) == 1,
		})
		switch {
		case err == nil:
			s.booked++
		case errors.Is(err, appointment.ErrSlotUnavailable):
			s.rejected++
		default:
			return err
		}
	}

	s.logger.Info("account seeded",
		zap.String("account_id", acct.ID.String()),
		zap.String("timezone", acct.Timezone),
		zap.String("review_mode", string(acct.ReviewMode)),
	)
	return nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
