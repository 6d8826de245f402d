package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/wordloop/plugin/srs"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/internal/observability"
)

// GeneratePlan projects the next days days. Day i assumes no reviews happen
// before it, so the same item may be listed on several days.
func (s *service) GeneratePlan(ctx context.Context, userID int32, days int) (plans []srs.DayPlan, err error) {
	defer s.observe(observability.OperationGeneratePlan, time.Now(), &err)

	if days < 0 {
		return nil, engineerrors.InvalidArgumentf("days must not be negative, got %d", days)
	}
	if days > s.config.MaxPlanDays {
		return nil, engineerrors.InvalidArgumentf("days %d exceeds the maximum of %d", days, s.config.MaxPlanDays)
	}
	if days == 0 {
		return []srs.DayPlan{}, nil
	}

	records, err := s.loadRecords(ctx, userID)
	if err != nil {
		s.logger(ctx, observability.OperationGeneratePlan, userID).Error("failed to list progress records", err)
		return nil, engineerrors.StoreUnavailable(readFailureMessage, err)
	}

	plans = s.config.Policy.Project(records, s.clock(), days, s.config.Location)

	total := 0
	for _, plan := range plans {
		total += len(plan.Items)
	}
	s.logger(ctx, observability.OperationGeneratePlan, userID).Info("generated study plan",
		slog.Int("days", days),
		slog.Int("records", len(records)),
		slog.Int("planned_items", total),
	)
	return plans, nil
}
