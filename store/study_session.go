package store

import (
	"context"
)

// StudySession is the summary of one completed study session.
type StudySession struct {
	ID                       int32
	UID                      string
	UserID                   int32
	SessionType              string
	TotalItems               int
	CorrectItems             int
	EstimatedDurationSeconds int
	CompletedTs              int64
	CreatedTs                int64
}

// FindStudySession is the find condition for study sessions.
type FindStudySession struct {
	UID    *string
	UserID *int32

	// Pagination
	Limit *int
}

// CreateStudySession creates a new study session summary.
func (s *Store) CreateStudySession(ctx context.Context, create *StudySession) (*StudySession, error) {
	return s.driver.CreateStudySession(ctx, create)
}

// ListStudySessions lists study sessions, newest first.
func (s *Store) ListStudySessions(ctx context.Context, find *FindStudySession) ([]*StudySession, error) {
	return s.driver.ListStudySessions(ctx, find)
}
