package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// ProgressRecord model related methods.
	ListProgressRecords(ctx context.Context, find *FindProgressRecord) ([]*ProgressRecord, error)
	UpsertProgressRecord(ctx context.Context, upsert *ProgressRecord) (*ProgressRecord, error)
	ListLearners(ctx context.Context) ([]int32, error)

	// StudySession model related methods.
	CreateStudySession(ctx context.Context, create *StudySession) (*StudySession, error)
	ListStudySessions(ctx context.Context, find *FindStudySession) ([]*StudySession, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)
}
