package review

import (
	"context"
	"time"

	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/internal/observability"
	"github.com/hrygo/wordloop/store"
)

// MaxSessionPage bounds ListSessions.
const MaxSessionPage = 200

// ListSessions returns the learner's latest sessions, newest first.
func (s *service) ListSessions(ctx context.Context, userID int32, limit int) (sessions []*store.StudySession, err error) {
	defer s.observe(observability.OperationListSessions, time.Now(), &err)
	if limit <= 0 || limit > MaxSessionPage {
		return nil, engineerrors.InvalidArgumentf("limit must be in [1, %d], got %d", MaxSessionPage, limit)
	}

	sessions, err = s.store.ListStudySessions(ctx, &store.FindStudySession{UserID: &userID, Limit: &limit})
	if err != nil {
		s.logger(ctx, observability.OperationListSessions, userID).Error("failed to list study sessions", err)
		return nil, engineerrors.StoreUnavailable("could not load session history, try again", err)
	}
	return sessions, nil
}
