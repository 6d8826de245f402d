package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wordloop/store"
)

func TestDifficultyOf(t *testing.T) {
	expected := map[int]Difficulty{
		0: DifficultyHard,
		1: DifficultyHard,
		2: DifficultyMedium,
		3: DifficultyMedium,
		4: DifficultyEasy,
		5: DifficultyEasy,
	}
	for level, want := range expected {
		assert.Equal(t, want, DifficultyOf(level), "level %d", level)
	}
}

func TestProject_ItemBecomesDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	// Level 1 needs 3 days; reviewed 1 day ago, so due in 2 days.
	records := []*store.ProgressRecord{
		{UserID: 1, ItemID: "apple", MasteryLevel: 1, LastReviewedTs: now.Add(-day).Unix()},
	}

	plans := DefaultPolicy().Project(records, now, 3, time.UTC)
	require.Len(t, plans, 3)
	assert.Empty(t, plans[0].Items)
	assert.Empty(t, plans[1].Items)
	require.Len(t, plans[2].Items, 1)
	assert.Equal(t, "apple", plans[2].Items[0].Record.ItemID)

	for i, plan := range plans {
		assert.Equal(t, i, plan.Offset)
		assert.Equal(t, time.Date(2026, 3, 10+i, 0, 0, 0, 0, time.UTC), plan.Date)
	}
}

func TestProject_NoDeduplicationAcrossDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	records := []*store.ProgressRecord{
		{ItemID: "apple", MasteryLevel: 0, LastReviewedTs: now.Add(-2 * day).Unix()},
	}

	plans := DefaultPolicy().Project(records, now, 4, time.UTC)
	for _, plan := range plans {
		require.Len(t, plan.Items, 1)
	}
	assert.InDelta(t, 2.0, plans[0].Items[0].Priority, 1e-9)
	assert.InDelta(t, 5.0, plans[3].Items[0].Priority, 1e-9)
}

func TestProject_LoadEstimate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	long := now.Add(-100 * day).Unix()
	records := []*store.ProgressRecord{
		{ItemID: "a", MasteryLevel: 0, LastReviewedTs: long},
		{ItemID: "b", MasteryLevel: 2, LastReviewedTs: long},
		{ItemID: "c", MasteryLevel: 3, LastReviewedTs: long},
		{ItemID: "d", MasteryLevel: 4, LastReviewedTs: long},
		{ItemID: "e", MasteryLevel: 5, LastReviewedTs: long},
	}

	plans := DefaultPolicy().Project(records, now, 1, time.UTC)
	require.Len(t, plans, 1)
	plan := plans[0]
	// 60 + 60 + 30 + 30 + 30 = 210s, rounded up to 4 minutes.
	assert.Equal(t, 4, plan.EstimatedTimeMinutes)
	assert.Equal(t, Histogram{Easy: 2, Medium: 2, Hard: 1}, plan.Histogram)
}

func TestProject_ZeroDays(t *testing.T) {
	plans := DefaultPolicy().Project([]*store.ProgressRecord{{ItemID: "a"}}, time.Now(), 0, nil)
	assert.NotNil(t, plans)
	assert.Empty(t, plans)
}

func TestProject_LocalDates(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	// 20:00 UTC is already the next calendar day at UTC+8.
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

	plans := DefaultPolicy().Project(nil, now, 2, loc)
	require.Len(t, plans, 2)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, loc), plans[0].Date)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, loc), plans[1].Date)
}
