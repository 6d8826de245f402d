package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/wordloop/plugin/filter"
	"github.com/hrygo/wordloop/plugin/srs"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/internal/observability"
)

const readFailureMessage = "could not load review data, try again"

// SelectForReview returns at most limit due items, most urgent first.
func (s *service) SelectForReview(ctx context.Context, userID int32, limit int) (result []srs.Candidate, err error) {
	defer s.observe(observability.OperationSelectForReview, time.Now(), &err)
	return s.selectDue(ctx, userID, limit, nil, observability.OperationSelectForReview)
}

// SearchDue is SelectForReview with a CEL filter applied before truncation.
func (s *service) SearchDue(ctx context.Context, userID int32, limit int, expr string) (result []srs.Candidate, err error) {
	defer s.observe(observability.OperationSelectForReview, time.Now(), &err)
	if limit <= 0 {
		return nil, engineerrors.InvalidArgumentf("limit must be positive, got %d", limit)
	}

	var f *filter.Filter
	if expr != "" {
		f, err = filter.Compile(expr)
		if err != nil {
			return nil, engineerrors.Wrap(err, engineerrors.ErrCodeInvalidArgument, "invalid filter expression")
		}
	}
	return s.selectDue(ctx, userID, limit, f, observability.OperationSelectForReview)
}

func (s *service) selectDue(ctx context.Context, userID int32, limit int, f *filter.Filter, operation string) ([]srs.Candidate, error) {
	if limit <= 0 {
		return nil, engineerrors.InvalidArgumentf("limit must be positive, got %d", limit)
	}

	records, err := s.loadRecords(ctx, userID)
	if err != nil {
		s.logger(ctx, operation, userID).Error("failed to list progress records", err)
		return nil, engineerrors.StoreUnavailable(readFailureMessage, err)
	}

	due := s.config.Policy.Due(records, s.clock())
	if f != nil {
		due, err = f.Apply(due)
		if err != nil {
			return nil, engineerrors.Wrap(err, engineerrors.ErrCodeInvalidArgument, "filter evaluation failed")
		}
	}
	if len(due) > limit {
		due = due[:limit]
	}

	s.logger(ctx, operation, userID).Info("selected items for review",
		slog.Int("records", len(records)),
		slog.Int("selected", len(due)),
		slog.Int("limit", limit),
	)
	return due, nil
}
