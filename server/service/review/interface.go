package review

import (
	"context"
	"time"

	"github.com/hrygo/wordloop/internal/profile"
	"github.com/hrygo/wordloop/plugin/srs"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/timezone"
	"github.com/hrygo/wordloop/store"
)

// Service defines the scheduling engine operations for one learner at a time.
type Service interface {
	// SelectForReview returns at most limit due items, most urgent first.
	SelectForReview(ctx context.Context, userID int32, limit int) ([]srs.Candidate, error)

	// SearchDue is SelectForReview narrowed by a CEL expression over candidate fields.
	// An empty expression behaves like SelectForReview.
	SearchDue(ctx context.Context, userID int32, limit int, expr string) ([]srs.Candidate, error)

	// GeneratePlan projects the due set for each of the next days days.
	// It never writes.
	GeneratePlan(ctx context.Context, userID int32, days int) ([]srs.DayPlan, error)

	// RecordSession applies a batch of outcomes from one completed session.
	// Per-item failures are reported in the result, not as an error.
	RecordSession(ctx context.Context, userID int32, outcomes []Outcome, sessionType string) (*SessionResult, error)

	// GetStats summarizes the learner's progress as of now.
	GetStats(ctx context.Context, userID int32) (*Stats, error)

	// SetDifficult overrides the difficult flag on an item the learner has studied.
	SetDifficult(ctx context.Context, userID int32, itemID string, difficult bool) (*store.ProgressRecord, error)

	// ListSessions returns session history, newest first.
	ListSessions(ctx context.Context, userID int32, limit int) ([]*store.StudySession, error)

	// Location is the timezone plan dates are rendered in.
	Location() *time.Location
}

// Store is the interface for store operations needed by the review service.
type Store interface {
	ListProgressRecords(ctx context.Context, find *store.FindProgressRecord) ([]*store.ProgressRecord, error)
	// GetProgressRecord returns nil, nil when the (user, item) pair has no record.
	GetProgressRecord(ctx context.Context, find *store.FindProgressRecord) (*store.ProgressRecord, error)
	UpsertProgressRecord(ctx context.Context, upsert *store.ProgressRecord) (*store.ProgressRecord, error)
	CreateStudySession(ctx context.Context, create *store.StudySession) (*store.StudySession, error)
	ListStudySessions(ctx context.Context, find *store.FindStudySession) ([]*store.StudySession, error)
}

// Outcome is one answer recorded during a session.
type Outcome struct {
	ItemID    string `validate:"required,max=128"`
	IsCorrect bool
	// TimeSpentSeconds is optional; a missing value counts as DefaultTimeSpentSeconds.
	TimeSpentSeconds *int `validate:"omitempty,gte=0"`
}

// ItemStatus is the per-item result of a session batch.
type ItemStatus string

const (
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
)

// ItemResult reports what happened to one distinct item in a batch.
type ItemResult struct {
	ItemID string
	Status ItemStatus
	// Reason is empty on success.
	Reason engineerrors.ErrorCode
	// Record is the persisted state on success.
	Record *store.ProgressRecord
}

// SessionResult is the outcome of RecordSession.
type SessionResult struct {
	SessionID                string
	TotalItems               int
	CorrectItems             int
	EstimatedDurationSeconds int
	// Items holds one entry per distinct item id, in first-seen input order.
	Items []ItemResult
	// Canceled is set when the context ended before every item was applied.
	Canceled bool
}

// FailedItemIDs returns the ids the caller should retry.
func (r *SessionResult) FailedItemIDs() []string {
	failed := make([]string, 0)
	for _, item := range r.Items {
		if item.Status == ItemFailed {
			failed = append(failed, item.ItemID)
		}
	}
	return failed
}

// SucceededCount returns the number of items persisted.
func (r *SessionResult) SucceededCount() int {
	return len(r.Items) - len(r.FailedItemIDs())
}

// Stats is a point-in-time summary of one learner's progress.
type Stats struct {
	TotalItems     int
	MasteredCount  int
	DueCount       int
	OverdueCount   int
	LevelHistogram [srs.LevelCount]int
}

// Config holds the tunables of the engine.
type Config struct {
	Policy          *srs.Policy
	Location        *time.Location
	ConflictRetries int
	MaxConcurrency  int
	MaxPlanDays     int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Policy:          srs.DefaultPolicy(),
		Location:        timezone.UTC,
		ConflictRetries: DefaultConflictRetries,
		MaxConcurrency:  DefaultMaxConcurrency,
		MaxPlanDays:     DefaultMaxPlanDays,
	}
}

// ConfigFromProfile builds the engine config from server settings.
func ConfigFromProfile(p *profile.Profile) (Config, error) {
	intervals, err := p.ParseIntervals()
	if err != nil {
		return Config{}, err
	}
	policy, err := srs.NewPolicy(intervals)
	if err != nil {
		return Config{}, err
	}
	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Policy:          policy,
		Location:        loc,
		ConflictRetries: p.ConflictRetries,
		MaxConcurrency:  p.MaxConcurrency,
		MaxPlanDays:     p.MaxPlanDays,
	}, nil
}
