package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wordloop/store"
)

func TestStudySessionStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for i, uid := range []string{"s-1", "s-2", "s-3"} {
		created, err := ts.CreateStudySession(ctx, &store.StudySession{
			UID:         uid,
			UserID:      1,
			SessionType: "daily",
			TotalItems:  i + 1,
			CompletedTs: int64(1_700_000_000 + i),
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
	}
	_, err := ts.CreateStudySession(ctx, &store.StudySession{UID: "other", UserID: 2, SessionType: "daily", CompletedTs: 1_800_000_000})
	require.NoError(t, err)

	userID, limit := int32(1), 2
	sessions, err := ts.ListStudySessions(ctx, &store.FindStudySession{UserID: &userID, Limit: &limit})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s-3", sessions[0].UID)
	assert.Equal(t, "s-2", sessions[1].UID)

	_, err = ts.CreateStudySession(ctx, &store.StudySession{UID: "s-1", UserID: 1, SessionType: "daily"})
	assert.Error(t, err, "session uid is unique")
}

func TestSchemaVersionIsStamped(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	schemaVersion, err := ts.GetSchemaVersion(ctx)
	require.NoError(t, err)
	current, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, current, schemaVersion)

	// Migrating an up-to-date database is a no-op.
	require.NoError(t, ts.Migrate(ctx))
}
