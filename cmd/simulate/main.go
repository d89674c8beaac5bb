package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/clock"
	"github.com/hackgods/booking-engine/internal/config"
	"github.com/hackgods/booking-engine/internal/db"
	"github.com/hackgods/booking-engine/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	AccountLimit int
	RaceAccounts int // accounts that get a same-slot race before the mixed load
	Racers       int // concurrent bookings per race
	PostgresDSN  string
}

type simAccount struct {
	ID  uuid.UUID
	Loc *time.Location
}

type DataPool struct {
	Accounts     []simAccount
	mu           sync.RWMutex
	appointments []uuid.UUID // created appointment IDs
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	lo = latencies[0]
	hi = latencies[len(latencies)-1]
	p50 = latencies[min(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, lo, hi, p50, p95
}

type Metrics struct {
	Race         OperationMetrics
	Booking      OperationMetrics
	Cancel       OperationMetrics
	Availability OperationMetrics
	ReadByID     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  *zap.Logger

	raceWinners []int
}

type freeBlock struct {
	Start clock.TimeOfDay `json:"start"`
	End   clock.TimeOfDay `json:"end"`
}

type availabilityResponse struct {
	Blocks []freeBlock `json:"free_blocks"`
	Reason string      `json:"reason"`
}

func main() {
	cfg := loadConfig()

	logger, err := logging.New(getEnv("APP_ENV", "dev"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	logger.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("cancel", cfg.CancelRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}
	logger.Info("data pool loaded", zap.Int("accounts", len(dataPool.Accounts)))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	sim.RunRaces()
	sim.Run()

	overlaps, err := countOverlaps(context.Background(), pgPool)
	if err != nil {
		logger.Error("overlap check failed", zap.Error(err))
	}

	sim.PrintReport(overlaps)
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.4),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.5),
		AccountLimit: getInt("SIM_ACCOUNT_LIMIT", 50),
		RaceAccounts: getInt("SIM_RACE_ACCOUNTS", 5),
		Racers:       getInt("SIM_RACERS", 20),
	}

	if baseCfg, err := config.Load(); err == nil {
		cfg.PostgresDSN = baseCfg.PostgresDSN
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	rows, err := pool.Query(ctx, `SELECT id, timezone FROM accounts ORDER BY created_at LIMIT $1`, cfg.AccountLimit)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	dataPool := &DataPool{}
	for rows.Next() {
		var (
			id uuid.UUID
			tz string
		)
		if err := rows.Scan(&id, &tz); err != nil {
			return nil, err
		}
		loc, err := clock.LoadLocation(tz)
		if err != nil {
			loc = time.UTC
		}
		dataPool.Accounts = append(dataPool.Accounts, simAccount{ID: id, Loc: loc})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts loaded, run cmd/seed first")
	}
	return dataPool, nil
}

// countOverlaps counts pairs of active appointments of one account whose
// periods intersect. Anything above zero is a double booking.
func countOverlaps(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var n int64
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.account_id = b.account_id
		 AND a.id < b.id
		 AND a.starts_at < b.ends_at
		 AND a.ends_at > b.starts_at
		WHERE a.status IN ('pending', 'booked', 'confirmed')
		  AND b.status IN ('pending', 'booked', 'confirmed')
	`).Scan(&n)
	return n, err
}

// RunRaces fires Racers concurrent bookings at one free start per account.
// The engine must accept exactly one of them.
func (s *Simulator) RunRaces() {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx := context.Background()

	for i := 0; i < s.config.RaceAccounts && i < len(s.pool.Accounts); i++ {
		acct := s.pool.Accounts[i]
		local, ok := s.pickStart(ctx, rng, acct, 30)
		if !ok {
			continue
		}

		var (
			wg      sync.WaitGroup
			winners atomic.Int32
		)
		for r := 0; r < s.config.Racers; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.book(ctx, acct, local, 30, &s.metrics.Race) {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		s.raceWinners = append(s.raceWinners, int(winners.Load()))
		s.logger.Info("race finished",
			zap.String("account_id", acct.ID.String()),
			zap.String("local_datetime", local),
			zap.Int32("winners", winners.Load()),
		)
	}
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting mixed load", zap.Duration("duration", s.config.Duration), zap.Int("workers", s.config.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		acct := s.pool.Accounts[rng.Intn(len(s.pool.Accounts))]
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			duration := []int{15, 30, 45, 60}[rng.Intn(4)]
			if local, ok := s.pickStart(ctx, rng, acct, duration); ok {
				s.book(ctx, acct, local, duration, &s.metrics.Booking)
			}
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, rng)
		case rng.Intn(2) == 0:
			s.doReadByID(ctx, rng)
		default:
			date := clock.At(time.Now(), acct.Loc).Date().AddDays(1 + rng.Intn(7))
			s.availability(ctx, acct, date, 30)
		}
	}
}

// pickStart asks the API for a free start of duration minutes within the
// next week, in the account's local time.
func (s *Simulator) pickStart(ctx context.Context, rng *rand.Rand, acct simAccount, duration int) (string, bool) {
	date := clock.At(time.Now(), acct.Loc).Date().AddDays(1 + rng.Intn(7))
	res, ok := s.availability(ctx, acct, date, duration)
	if !ok || len(res.Blocks) == 0 {
		return "", false
	}

	b := res.Blocks[rng.Intn(len(res.Blocks))]
	slots := (int(b.End) - int(b.Start) - duration) / 15
	start := clock.TimeOfDay(int(b.Start) + 15*rng.Intn(slots+1))
	return date.String() + "T" + start.String(), true
}

func (s *Simulator) availability(ctx context.Context, acct simAccount, date clock.Date, duration int) (availabilityResponse, bool) {
	url := fmt.Sprintf("%s/accounts/%s/availability?date=%s&duration=%d", s.config.APIBaseURL, acct.ID, date, duration)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	var out availabilityResponse
	success := false
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			success = json.NewDecoder(resp.Body).Decode(&out) == nil
		}
	}

	s.metrics.Availability.Record(latency, success, false)
	return out, success
}

func (s *Simulator) book(ctx context.Context, acct simAccount, local string, duration int, om *OperationMetrics) bool {
	body, _ := json.Marshal(map[string]any{
		"customer_phone":   "+1555" + strconv.Itoa(100000+rand.Intn(899999)),
		"customer_name":    "Load Test",
		"local_datetime":   local,
		"duration_minutes": duration,
	})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/accounts/%s/appointments", s.config.APIBaseURL, acct.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(bodyBytes, &apptResp) == nil && apptResp.ID != uuid.Nil {
				s.pool.AddAppointment(apptResp.ID)
			}
		case http.StatusConflict:
			conflict = true
		}
	}

	om.Record(latency, success, conflict)
	return success
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/appointments/%s/cancel", s.config.APIBaseURL, apptID), strings.NewReader(`{"reason":"load test"}`))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.metrics.Cancel.Record(latency, success, conflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, apptID), nil)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ReadByID.Record(latency, success, false)
}

func (s *Simulator) PrintReport(overlaps int64) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	if len(s.raceWinners) > 0 {
		fmt.Printf("Same-slot races: %d x %d racers, winners per race: %v\n", len(s.raceWinners), s.config.Racers, s.raceWinners)
		for _, w := range s.raceWinners {
			if w != 1 {
				fmt.Println("  WARNING: a race did not have exactly one winner")
				break
			}
		}
		fmt.Println()
	}

	printOperationReport("Race booking", &s.metrics.Race)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Read by ID", &s.metrics.ReadByID)

	fmt.Printf("Overlapping active appointments: %d\n", overlaps)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
