package clock

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Resolver maps account zone names to locations, falling back to a fixed
// zone when the name is empty or unknown. The fallback is logged and never
// surfaced as an error.
type Resolver struct {
	fallback *time.Location
	logger   *zap.Logger
}

func NewResolver(fallback string, logger *zap.Logger) (*Resolver, error) {
	loc, err := LoadLocation(fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback timezone: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fallback: loc, logger: logger}, nil
}

func (r *Resolver) Resolve(name string) *time.Location {
	loc, err := LoadLocation(name)
	if err != nil {
		r.logger.Warn("unknown timezone, using fallback",
			zap.String("timezone", name),
			zap.String("fallback", r.fallback.String()),
		)
		return r.fallback
	}
	return loc
}

func (r *Resolver) Fallback() *time.Location { return r.fallback }
