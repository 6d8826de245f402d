package review

import (
	"context"
	"time"

	"github.com/hrygo/wordloop/plugin/srs"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/internal/observability"
	"github.com/hrygo/wordloop/store"
)

// GetStats summarizes the learner's progress as of now.
func (s *service) GetStats(ctx context.Context, userID int32) (stats *Stats, err error) {
	defer s.observe(observability.OperationGetStats, time.Now(), &err)

	records, err := s.loadRecords(ctx, userID)
	if err != nil {
		s.logger(ctx, observability.OperationGetStats, userID).Error("failed to list progress records", err)
		return nil, engineerrors.StoreUnavailable(readFailureMessage, err)
	}
	return computeStats(s.config.Policy, records, s.clock()), nil
}

func computeStats(policy *srs.Policy, records []*store.ProgressRecord, now time.Time) *Stats {
	stats := &Stats{TotalItems: len(records)}
	for _, record := range records {
		candidate := policy.Evaluate(*record, now)
		stats.LevelHistogram[record.MasteryLevel]++
		if record.MasteryLevel == srs.MaxLevel {
			stats.MasteredCount++
		}
		if candidate.IsDue() {
			stats.DueCount++
		}
		if candidate.IsOverdue() {
			stats.OverdueCount++
		}
	}
	return stats
}
