package srs

import (
	"fmt"
	"math"
	"time"
)

// Policy maps mastery levels to required review intervals in whole days.
type Policy struct {
	intervals [LevelCount]int
}

var defaultIntervals = [LevelCount]int{1, 3, 7, 15, 30, 60}

// DefaultPolicy returns the 1/3/7/15/30/60 day policy.
func DefaultPolicy() *Policy {
	return &Policy{intervals: defaultIntervals}
}

// NewPolicy builds a policy from one interval per level.
// Intervals must be positive and strictly increasing.
func NewPolicy(intervals []int) (*Policy, error) {
	if len(intervals) != LevelCount {
		return nil, fmt.Errorf("interval table needs %d entries, got %d", LevelCount, len(intervals))
	}
	p := &Policy{}
	for i, days := range intervals {
		if days <= 0 {
			return nil, fmt.Errorf("interval for level %d must be positive, got %d", i, days)
		}
		if i > 0 && days <= intervals[i-1] {
			return nil, fmt.Errorf("interval for level %d (%d) must exceed level %d (%d)", i, days, i-1, intervals[i-1])
		}
		p.intervals[i] = days
	}
	return p, nil
}

// Intervals returns a copy of the table.
func (p *Policy) Intervals() []int {
	out := make([]int, LevelCount)
	copy(out, p.intervals[:])
	return out
}

// RequiredInterval returns the minimum days between reviews at level.
// It panics on an out-of-range level.
func (p *Policy) RequiredInterval(level int) int {
	mustLevel(level)
	return p.intervals[level]
}

// Urgency is the elapsed-to-required ratio. Below 1 is not yet due,
// exactly 1 is due today, above 1 is overdue.
func Urgency(daysSince, requiredInterval int) float64 {
	return float64(daysSince) / float64(requiredInterval)
}

// OverdueDays is negative while the item is not yet due.
func OverdueDays(daysSince, requiredInterval int) int {
	return daysSince - requiredInterval
}

// DaysSince returns whole days elapsed from lastReviewedTs to asOf, floored.
func DaysSince(lastReviewedTs int64, asOf time.Time) int {
	elapsed := asOf.Sub(time.Unix(lastReviewedTs, 0))
	return int(math.Floor(elapsed.Hours() / 24))
}
