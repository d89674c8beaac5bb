package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/clock"
)

var (
	ErrLockNotAcquired = errors.New("day lock not acquired")
)

// DayKey names the lock guarding one scope's bookings on a local date.
func DayKey(scope string, date clock.Date) string {
	return fmt.Sprintf("lock:day:%s:%s", scope, date)
}

// Locker is used by the appointment service to serialize the conflict check
// and insert of bookings that share a day key.
type Locker interface {
	WithDayLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type redisDayLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisDayLocker creates a locker backed by one Redis key per day key.
// Acquisition fails fast with ErrLockNotAcquired when the key is held.
func NewRedisDayLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) Locker {
	return &redisDayLocker{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (l *redisDayLocker) WithDayLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire day lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// released on a fresh context so a cancelled request still unlocks
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := l.release(releaseCtx, key, token); err != nil {
			l.logger.Warn("day lock release failed", zap.String("key", key), zap.Error(err))
		}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDayLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release day lock: %w", err)
	}
	return nil
}
