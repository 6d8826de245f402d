package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wordloop/plugin/notify"
	"github.com/hrygo/wordloop/server/service/review"
)

type fakeLearners struct {
	ids []int32
	err error
}

func (f *fakeLearners) ListLearners(context.Context) ([]int32, error) {
	return f.ids, f.err
}

type fakeStats map[int32]*review.Stats

func (f fakeStats) GetStats(_ context.Context, userID int32) (*review.Stats, error) {
	if s, ok := f[userID]; ok {
		return s, nil
	}
	return nil, errors.New("store unavailable")
}

type fakeBroadcaster struct {
	sent map[int32]notify.Message
	fail map[int32]bool
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, userID int32, msg notify.Message) []error {
	if f.fail[userID] {
		return []error{errors.New("webhook down")}
	}
	f.sent[userID] = msg
	return nil
}

func TestRunOnce(t *testing.T) {
	learners := &fakeLearners{ids: []int32{1, 2, 3, 4}}
	stats := fakeStats{
		1: {DueCount: 3, OverdueCount: 1},
		2: {DueCount: 0},
		4: {DueCount: 2},
	}
	broadcaster := &fakeBroadcaster{sent: map[int32]notify.Message{}, fail: map[int32]bool{4: true}}

	summary := NewRunner(learners, stats, broadcaster, "0 9 * * *", nil).RunOnce(context.Background())
	assert.Equal(t, Summary{Learners: 4, Notified: 1, Failed: 2}, summary)

	require.Contains(t, broadcaster.sent, int32(1))
	assert.Equal(t, "3 items due for review (1 overdue).", broadcaster.sent[1].Body)
	assert.NotContains(t, broadcaster.sent, int32(2), "learners with nothing due are not disturbed")
}

func TestRunOnceListFailure(t *testing.T) {
	runner := NewRunner(&fakeLearners{err: errors.New("db down")}, fakeStats{}, &fakeBroadcaster{}, "0 9 * * *", nil)
	assert.Equal(t, Summary{}, runner.RunOnce(context.Background()))
}

func TestCompose(t *testing.T) {
	msg := Compose(&review.Stats{DueCount: 5, MasteredCount: 2})
	assert.Equal(t, "5 items due for review.", msg.Body)
	assert.Equal(t, 2, msg.Metadata["masteredCount"])
}

func TestRunRejectsBadCron(t *testing.T) {
	runner := NewRunner(&fakeLearners{}, fakeStats{}, &fakeBroadcaster{}, "not a cron", time.UTC)
	assert.Error(t, runner.Run(context.Background()))
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(&fakeLearners{}, fakeStats{}, &fakeBroadcaster{}, "0 9 * * *", time.UTC)

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
