package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/wordloop/plugin/srs"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/internal/observability"
	"github.com/hrygo/wordloop/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RecordSession writes the session summary, then applies the outcomes.
// Outcomes for the same item are applied in input order by one worker;
// distinct items run concurrently, bounded by MaxConcurrency.
func (s *service) RecordSession(ctx context.Context, userID int32, outcomes []Outcome, sessionType string) (result *SessionResult, err error) {
	defer s.observe(observability.OperationRecordSession, time.Now(), &err)
	log := s.logger(ctx, observability.OperationRecordSession, userID)

	if err := validateBatch(outcomes, sessionType); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, engineerrors.ContextCanceled(err)
	}

	now := s.clock()
	result = &SessionResult{
		SessionID:  shortuuid.New(),
		TotalItems: len(outcomes),
	}
	for _, o := range outcomes {
		if o.IsCorrect {
			result.CorrectItems++
		}
		if o.TimeSpentSeconds != nil {
			result.EstimatedDurationSeconds += *o.TimeSpentSeconds
		} else {
			result.EstimatedDurationSeconds += DefaultTimeSpentSeconds
		}
	}

	if _, err := s.store.CreateStudySession(ctx, &store.StudySession{
		UID:                      result.SessionID,
		UserID:                   userID,
		SessionType:              sessionType,
		TotalItems:               result.TotalItems,
		CorrectItems:             result.CorrectItems,
		EstimatedDurationSeconds: result.EstimatedDurationSeconds,
		CompletedTs:              now.Unix(),
	}); err != nil {
		log.Error("failed to create study session", err, slog.String("session_id", result.SessionID))
		return nil, engineerrors.StoreUnavailable("could not save the session, try again", err)
	}

	itemIDs, grouped := groupByItem(outcomes)
	result.Items = make([]ItemResult, len(itemIDs))
	for i, itemID := range itemIDs {
		// Anything not reached before cancellation keeps this result.
		result.Items[i] = failedItem(itemID, engineerrors.ErrCodeContextCanceled)
	}

	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrency)
	for i, itemID := range itemIDs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			result.Items[i] = s.applyItem(ctx, userID, itemID, grouped[itemID], now)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, item := range result.Items {
		if item.Status != ItemFailed {
			continue
		}
		failed++
		if item.Reason == engineerrors.ErrCodeContextCanceled {
			result.Canceled = true
		}
		log.Warn("failed to record item outcome",
			slog.String(observability.LogFieldItemID, item.ItemID),
			slog.String(observability.LogFieldErrorCode, string(item.Reason)),
		)
	}
	s.metrics.RecordItemFailures(failed)

	log.Info("recorded study session",
		slog.String("session_id", result.SessionID),
		slog.Int("outcomes", result.TotalItems),
		slog.Int("items", len(result.Items)),
		slog.Int("failed_items", failed),
		slog.Bool("canceled", result.Canceled),
	)
	return result, nil
}

// applyItem runs load, apply and conditional upsert for one item, repeating the
// whole cycle on a version conflict up to ConflictRetries extra times.
func (s *service) applyItem(ctx context.Context, userID int32, itemID string, outcomes []Outcome, now time.Time) ItemResult {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return failedItem(itemID, engineerrors.ErrCodeContextCanceled)
		}

		existing, err := s.store.GetProgressRecord(ctx, &store.FindProgressRecord{UserID: &userID, ItemID: &itemID})
		if err != nil {
			s.logger(ctx, observability.OperationRecordSession, userID).Error("failed to get progress record", err,
				slog.String(observability.LogFieldItemID, itemID))
			return failedItem(itemID, writeFailureCode(ctx))
		}
		record := srs.NewProgressRecord(userID, itemID)
		if existing != nil {
			record = *existing
		}
		for _, o := range outcomes {
			record = srs.ApplyOutcome(record, o.IsCorrect, now)
		}

		saved, err := s.store.UpsertProgressRecord(ctx, &record)
		if err == nil {
			return ItemResult{ItemID: itemID, Status: ItemSucceeded, Record: saved}
		}
		if !errors.Is(err, store.ErrRecordConflict) {
			s.logger(ctx, observability.OperationRecordSession, userID).Error("failed to upsert progress record", err,
				slog.String(observability.LogFieldItemID, itemID))
			return failedItem(itemID, writeFailureCode(ctx))
		}
		if attempt >= s.config.ConflictRetries {
			return failedItem(itemID, engineerrors.ErrCodeRecordConflict)
		}
	}
}

// writeFailureCode distinguishes a store failure from one caused by cancellation.
func writeFailureCode(ctx context.Context) engineerrors.ErrorCode {
	if ctx.Err() != nil {
		return engineerrors.ErrCodeContextCanceled
	}
	return engineerrors.ErrCodeStoreUnavailable
}

func failedItem(itemID string, reason engineerrors.ErrorCode) ItemResult {
	return ItemResult{ItemID: itemID, Status: ItemFailed, Reason: reason}
}

// groupByItem returns distinct item ids in first-seen order and each item's outcomes in input order.
func groupByItem(outcomes []Outcome) ([]string, map[string][]Outcome) {
	order := make([]string, 0, len(outcomes))
	grouped := make(map[string][]Outcome, len(outcomes))
	for _, o := range outcomes {
		if _, ok := grouped[o.ItemID]; !ok {
			order = append(order, o.ItemID)
		}
		grouped[o.ItemID] = append(grouped[o.ItemID], o)
	}
	return order, grouped
}

func validateBatch(outcomes []Outcome, sessionType string) error {
	if len(outcomes) == 0 {
		return engineerrors.InvalidArgument("a session needs at least one outcome")
	}
	if err := validate.Var(sessionType, "required,max=32"); err != nil {
		return engineerrors.Wrap(err, engineerrors.ErrCodeInvalidArgument, "invalid session type")
	}
	for i := range outcomes {
		if err := validate.Struct(outcomes[i]); err != nil {
			return engineerrors.Wrap(err, engineerrors.ErrCodeInvalidArgument, fmt.Sprintf("invalid outcome at index %d", i))
		}
	}
	return nil
}
