// Package review is the I/O side of the scheduling engine: it loads progress
// records, runs the pure rules in plugin/srs and persists session outcomes.
//
// Reads are never retried. Writes use the optimistic version on each progress
// record and retry only on a version conflict.
package review

import (
	"context"
	"time"

	"github.com/hrygo/wordloop/server/internal/observability"
	"github.com/hrygo/wordloop/server/timezone"
	"github.com/hrygo/wordloop/store"
)

const (
	// DefaultConflictRetries is the number of extra read-modify-write attempts per item.
	DefaultConflictRetries = 3
	// DefaultMaxConcurrency bounds concurrent item updates within one session.
	DefaultMaxConcurrency = 4
	// DefaultMaxPlanDays bounds the plan horizon.
	DefaultMaxPlanDays = 90
	// DefaultTimeSpentSeconds is assumed for outcomes without a time.
	DefaultTimeSpentSeconds = 60
)

type service struct {
	store   Store
	config  Config
	clock   func() time.Time
	metrics *observability.Metrics
}

// Option configures the service.
type Option func(*service)

// WithClock overrides the wall clock, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *service) {
		s.clock = clock
	}
}

// WithMetrics records operations on m instead of the global collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

// NewService creates a new review service.
func NewService(store Store, config Config, opts ...Option) Service {
	defaults := DefaultConfig()
	if config.Policy == nil {
		config.Policy = defaults.Policy
	}
	if config.Location == nil {
		config.Location = timezone.UTC
	}
	if config.ConflictRetries < 0 {
		config.ConflictRetries = 0
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.MaxPlanDays <= 0 {
		config.MaxPlanDays = defaults.MaxPlanDays
	}

	s := &service{
		store:   store,
		config:  config,
		clock:   time.Now,
		metrics: observability.GlobalMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Location() *time.Location {
	return s.config.Location
}

// observe reports one finished operation. Use as: defer s.observe(op, time.Now(), &err).
func (s *service) observe(operation string, start time.Time, err *error) {
	s.metrics.Observe(operation, time.Since(start), *err)
}

// loadRecords is the single read behind every read path.
func (s *service) loadRecords(ctx context.Context, userID int32) ([]*store.ProgressRecord, error) {
	return s.store.ListProgressRecords(ctx, &store.FindProgressRecord{UserID: &userID})
}

func (s *service) logger(ctx context.Context, operation string, userID int32) *observability.RequestContext {
	return observability.FromContextOrNew(ctx, operation, userID)
}
