package store

import (
	"context"
	"errors"
)

// ErrRecordConflict is returned by UpsertProgressRecord when the persisted
// version of the record no longer matches the version the caller read.
var ErrRecordConflict = errors.New("progress record version conflict")

// ProgressRecord is the object representing a learner's progress on one item.
type ProgressRecord struct {
	UserID         int32
	ItemID         string
	MasteryLevel   int
	CorrectCount   int
	IncorrectCount int
	LastReviewedTs int64
	StudyStreak    int
	IsDifficult    bool

	// Version is 0 for a record that has never been persisted.
	Version   int64
	CreatedTs int64
	UpdatedTs int64
}

// TotalOutcomes returns the number of outcomes recorded against the record.
func (r *ProgressRecord) TotalOutcomes() int {
	return r.CorrectCount + r.IncorrectCount
}

// FindProgressRecord is the find condition for progress records.
type FindProgressRecord struct {
	UserID *int32
	ItemID *string
}

// ListProgressRecords lists progress records with filter.
func (s *Store) ListProgressRecords(ctx context.Context, find *FindProgressRecord) ([]*ProgressRecord, error) {
	return s.driver.ListProgressRecords(ctx, find)
}

// GetProgressRecord gets a single progress record, or nil when none exists.
func (s *Store) GetProgressRecord(ctx context.Context, find *FindProgressRecord) (*ProgressRecord, error) {
	list, err := s.ListProgressRecords(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpsertProgressRecord inserts or conditionally updates a progress record.
// The write succeeds only if the stored version equals upsert.Version;
// otherwise ErrRecordConflict is returned and nothing is written.
func (s *Store) UpsertProgressRecord(ctx context.Context, upsert *ProgressRecord) (*ProgressRecord, error) {
	return s.driver.UpsertProgressRecord(ctx, upsert)
}

// ListLearners returns the ids of every user with at least one progress record.
func (s *Store) ListLearners(ctx context.Context) ([]int32, error) {
	return s.driver.ListLearners(ctx)
}
