package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/internal/observability"
	"github.com/hrygo/wordloop/store"
)

// SetDifficult flips the difficult flag through the same conditional upsert
// the recorder uses. It only touches items the learner has already studied.
func (s *service) SetDifficult(ctx context.Context, userID int32, itemID string, difficult bool) (record *store.ProgressRecord, err error) {
	defer s.observe(observability.OperationSetDifficult, time.Now(), &err)
	if err := validate.Var(itemID, "required,max=128"); err != nil {
		return nil, engineerrors.Wrap(err, engineerrors.ErrCodeInvalidArgument, "invalid item id")
	}

	for attempt := 0; ; attempt++ {
		existing, err := s.store.GetProgressRecord(ctx, &store.FindProgressRecord{UserID: &userID, ItemID: &itemID})
		if err != nil {
			return nil, engineerrors.StoreUnavailable(readFailureMessage, err)
		}
		if existing == nil {
			return nil, engineerrors.NotFound(fmt.Sprintf("item %q has not been studied", itemID))
		}

		update := *existing
		if update.IsDifficult == difficult {
			return existing, nil
		}
		update.IsDifficult = difficult

		saved, err := s.store.UpsertProgressRecord(ctx, &update)
		if err == nil {
			s.logger(ctx, observability.OperationSetDifficult, userID).Info("updated difficult flag",
				slog.String(observability.LogFieldItemID, itemID),
				slog.Bool("is_difficult", difficult),
			)
			return saved, nil
		}
		if !errors.Is(err, store.ErrRecordConflict) {
			return nil, engineerrors.StoreUnavailable("could not update the item, try again", err)
		}
		if attempt >= s.config.ConflictRetries {
			return nil, engineerrors.RecordConflict(fmt.Sprintf("item %q kept changing", itemID), err)
		}
	}
}
