package test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wordloop/plugin/srs"
	"github.com/hrygo/wordloop/server/internal/observability"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/service/review"
	"github.com/hrygo/wordloop/store"
)

func TestProgressRecordStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	record := srs.ApplyOutcome(srs.NewProgressRecord(1, "apple"), true, time.Unix(1_700_000_000, 0))
	created, err := ts.UpsertProgressRecord(ctx, &record)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	assert.NotZero(t, created.CreatedTs)

	userID, itemID := int32(1), "apple"
	got, err := ts.GetProgressRecord(ctx, &store.FindProgressRecord{UserID: &userID, ItemID: &itemID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.CorrectCount)
	assert.Equal(t, int64(1_700_000_000), got.LastReviewedTs)
	assert.False(t, got.IsDifficult)

	update := *got
	update.IsDifficult = true
	updated, err := ts.UpsertProgressRecord(ctx, &update)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	missing := "banana"
	none, err := ts.GetProgressRecord(ctx, &store.FindProgressRecord{UserID: &userID, ItemID: &missing})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestProgressRecordVersionConflict(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	first := srs.NewProgressRecord(1, "apple")
	_, err := ts.UpsertProgressRecord(ctx, &first)
	require.NoError(t, err)

	// A second writer that also saw no row loses the insert race.
	second := srs.NewProgressRecord(1, "apple")
	_, err = ts.UpsertProgressRecord(ctx, &second)
	assert.ErrorIs(t, err, store.ErrRecordConflict)

	userID, itemID := int32(1), "apple"
	current, err := ts.GetProgressRecord(ctx, &store.FindProgressRecord{UserID: &userID, ItemID: &itemID})
	require.NoError(t, err)

	stale := *current
	fresh := *current
	fresh.CorrectCount++
	_, err = ts.UpsertProgressRecord(ctx, &fresh)
	require.NoError(t, err)

	stale.IncorrectCount++
	_, err = ts.UpsertProgressRecord(ctx, &stale)
	assert.ErrorIs(t, err, store.ErrRecordConflict, "a write based on an old version is rejected")

	after, err := ts.GetProgressRecord(ctx, &store.FindProgressRecord{UserID: &userID, ItemID: &itemID})
	require.NoError(t, err)
	assert.Equal(t, 1, after.CorrectCount)
	assert.Equal(t, 0, after.IncorrectCount)
}

func TestListLearners(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for _, r := range []store.ProgressRecord{
		srs.NewProgressRecord(3, "apple"),
		srs.NewProgressRecord(1, "apple"),
		srs.NewProgressRecord(3, "banana"),
	} {
		_, err := ts.UpsertProgressRecord(ctx, &r)
		require.NoError(t, err)
	}

	learners, err := ts.ListLearners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 3}, learners)
}

// failingStore fails every write for one item and delegates everything else.
type failingStore struct {
	*store.Store
	failItem string
}

func (f *failingStore) UpsertProgressRecord(ctx context.Context, upsert *store.ProgressRecord) (*store.ProgressRecord, error) {
	if upsert.ItemID == f.failItem {
		return nil, errors.New("injected write failure")
	}
	return f.Store.UpsertProgressRecord(ctx, upsert)
}

func TestRecordSessionPartialFailure(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	now := time.Now()

	svc := review.NewService(&failingStore{Store: ts, failItem: "banana"}, review.DefaultConfig(),
		review.WithClock(func() time.Time { return now }),
		review.WithMetrics(observability.NewMetrics(10)),
	)
	result, err := svc.RecordSession(ctx, 1, []review.Outcome{
		{ItemID: "apple", IsCorrect: true},
		{ItemID: "banana", IsCorrect: true},
		{ItemID: "cherry", IsCorrect: false},
	}, "daily")
	require.NoError(t, err)
	assert.Equal(t, []string{"banana"}, result.FailedItemIDs())
	assert.Equal(t, engineerrors.ErrCodeStoreUnavailable, result.Items[1].Reason)

	records, err := ts.ListProgressRecords(ctx, &store.FindProgressRecord{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "apple", records[0].ItemID)
	assert.Equal(t, "cherry", records[1].ItemID)

	sessions, err := ts.ListStudySessions(ctx, &store.FindStudySession{UID: &result.SessionID})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].TotalItems)
	assert.Equal(t, 2, sessions[0].CorrectItems)
	assert.Equal(t, 180, sessions[0].EstimatedDurationSeconds)

	// Apple and cherry become due the next day; banana was never written.
	tomorrow := review.NewService(ts, review.DefaultConfig(),
		review.WithClock(func() time.Time { return now.Add(24 * time.Hour) }),
		review.WithMetrics(observability.NewMetrics(10)),
	)
	due, err := tomorrow.SelectForReview(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestRecordSessionConcurrentSameItem(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	now := time.Now()

	const writers = 8
	config := review.DefaultConfig()
	config.ConflictRetries = 0

	results := make([]review.ItemResult, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc := review.NewService(ts, config,
				review.WithClock(func() time.Time { return now }),
				review.WithMetrics(observability.NewMetrics(10)),
			)
			result, err := svc.RecordSession(ctx, 1, []review.Outcome{{ItemID: "apple", IsCorrect: true}}, "daily")
			if assert.NoError(t, err) && assert.Len(t, result.Items, 1) {
				results[i] = result.Items[0]
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, item := range results {
		if item.Status == review.ItemSucceeded {
			succeeded++
			continue
		}
		assert.Equal(t, engineerrors.ErrCodeRecordConflict, item.Reason, "a lost race is reported as a conflict")
	}
	assert.GreaterOrEqual(t, succeeded, 1)

	userID, itemID := int32(1), "apple"
	stored, err := ts.GetProgressRecord(ctx, &store.FindProgressRecord{UserID: &userID, ItemID: &itemID})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, succeeded, stored.CorrectCount+stored.IncorrectCount, "no increment is lost")
	assert.Equal(t, int64(succeeded), stored.Version)
}
