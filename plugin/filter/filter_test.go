package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wordloop/plugin/srs"
	"github.com/hrygo/wordloop/store"
)

func candidate(itemID string, level, daysSince int, difficult bool) srs.Candidate {
	interval := srs.DefaultPolicy().RequiredInterval(level)
	return srs.Candidate{
		Record: store.ProgressRecord{
			ItemID:         itemID,
			MasteryLevel:   level,
			IsDifficult:    difficult,
			CorrectCount:   3,
			IncorrectCount: 1,
		},
		DaysSinceReview:  daysSince,
		RequiredInterval: interval,
		OverdueDays:      daysSince - interval,
		Priority:         float64(daysSince) / float64(interval),
	}
}

func TestCompileRejectsBadExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"syntax error", "level <"},
		{"unknown variable", "mastery == 1"},
		{"non-bool result", "level + 1"},
		{"string arithmetic", `item_id - 1 > 0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		expr string
		c    srs.Candidate
		want bool
	}{
		{"level < 2", candidate("a", 1, 5, false), true},
		{"level < 2", candidate("a", 3, 20, false), false},
		{"is_difficult && overdue_days > 0", candidate("a", 0, 2, true), true},
		{"is_difficult && overdue_days > 0", candidate("a", 0, 1, true), false},
		{"priority >= 2.0", candidate("a", 1, 6, false), true},
		{`item_id.startsWith("ap")`, candidate("apple", 0, 1, false), true},
		{"accuracy == 0.75 && correct == 3 && incorrect == 1", candidate("a", 0, 1, false), true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := f.Match(tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	f, err := Compile("level == 0")
	require.NoError(t, err)
	assert.Equal(t, "level == 0", f.String())

	in := []srs.Candidate{
		candidate("c", 0, 3, false),
		candidate("b", 2, 9, false),
		candidate("a", 0, 1, false),
	}
	out, err := f.Apply(in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].Record.ItemID)
	assert.Equal(t, "a", out[1].Record.ItemID)

	none, err := f.Apply(nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
}
