package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/hrygo/wordloop/plugin/notify"
	"github.com/hrygo/wordloop/server/service/review"
)

// LearnerLister lists every user with progress.
type LearnerLister interface {
	ListLearners(ctx context.Context) ([]int32, error)
}

// StatsProvider is the read-only slice of review.Service the runner calls.
type StatsProvider interface {
	GetStats(ctx context.Context, userID int32) (*review.Stats, error)
}

// Broadcaster delivers one message on every configured channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, userID int32, msg notify.Message) []error
}

// Summary describes one reminder pass.
type Summary struct {
	Learners int
	Notified int
	Failed   int
}

// Runner sends a reminder to each learner with due items on a cron schedule.
type Runner struct {
	learners    LearnerLister
	stats       StatsProvider
	broadcaster Broadcaster
	cron        string
	location    *time.Location
}

// NewRunner creates a reminder runner. cron is a standard five-field expression
// evaluated in loc.
func NewRunner(learners LearnerLister, stats StatsProvider, broadcaster Broadcaster, cron string, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{
		learners:    learners,
		stats:       stats,
		broadcaster: broadcaster,
		cron:        cron,
		location:    loc,
	}
}

// Run schedules the reminder job and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	scheduler := gocron.NewScheduler(r.location)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Cron(r.cron).Do(func() {
		r.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule reminders with %q: %w", r.cron, err)
	}

	scheduler.StartAsync()
	slog.Info("reminder runner started", "cron", r.cron, "timezone", r.location.String())
	<-ctx.Done()
	scheduler.Stop()
	slog.Info("reminder runner stopped")
	return nil
}

// RunOnce checks every learner once (for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) Summary {
	var summary Summary
	learners, err := r.learners.ListLearners(ctx)
	if err != nil {
		slog.Error("failed to list learners for reminders", "error", err)
		return summary
	}
	summary.Learners = len(learners)

	for _, userID := range learners {
		if ctx.Err() != nil {
			slog.Info("reminder pass cancelled", "processed", summary.Notified+summary.Failed, "total", len(learners))
			return summary
		}

		stats, err := r.stats.GetStats(ctx, userID)
		if err != nil {
			slog.Error("failed to get stats for reminder", "user_id", userID, "error", err)
			summary.Failed++
			continue
		}
		if stats.DueCount == 0 {
			continue
		}

		errs := r.broadcaster.Broadcast(ctx, userID, Compose(stats))
		if len(errs) > 0 {
			for _, err := range errs {
				slog.Warn("failed to deliver reminder", "user_id", userID, "error", err)
			}
			summary.Failed++
			continue
		}
		summary.Notified++
	}

	slog.Info("reminder pass finished",
		"learners", summary.Learners,
		"notified", summary.Notified,
		"failed", summary.Failed,
	)
	return summary
}

// Compose builds the reminder text for a learner's stats.
func Compose(stats *review.Stats) notify.Message {
	body := fmt.Sprintf("%d items due for review", stats.DueCount)
	if stats.OverdueCount > 0 {
		body = fmt.Sprintf("%s (%d overdue)", body, stats.OverdueCount)
	}
	return notify.Message{
		Subject: "Time to review",
		Body:    body + ".",
		Metadata: map[string]any{
			"dueCount":      stats.DueCount,
			"overdueCount":  stats.OverdueCount,
			"masteredCount": stats.MasteredCount,
		},
	}
}
