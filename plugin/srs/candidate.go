package srs

import (
	"sort"
	"time"

	"github.com/hrygo/wordloop/store"
)

// Candidate is a progress record evaluated against the policy at a point in time.
type Candidate struct {
	Record           store.ProgressRecord
	DaysSinceReview  int
	RequiredInterval int
	OverdueDays      int
	Priority         float64
}

// IsDue reports whether the required interval has fully elapsed.
func (c Candidate) IsDue() bool {
	return c.DaysSinceReview >= c.RequiredInterval
}

// IsOverdue reports whether elapsed time strictly exceeds the required interval.
func (c Candidate) IsOverdue() bool {
	return c.DaysSinceReview > c.RequiredInterval
}

// Evaluate computes the candidate view of record as of asOf.
func (p *Policy) Evaluate(record store.ProgressRecord, asOf time.Time) Candidate {
	days := DaysSince(record.LastReviewedTs, asOf)
	interval := p.RequiredInterval(record.MasteryLevel)
	return Candidate{
		Record:           record,
		DaysSinceReview:  days,
		RequiredInterval: interval,
		OverdueDays:      OverdueDays(days, interval),
		Priority:         Urgency(days, interval),
	}
}

// Due evaluates every record as of asOf and returns the due ones in study order.
// The result is never nil.
func (p *Policy) Due(records []*store.ProgressRecord, asOf time.Time) []Candidate {
	due := make([]Candidate, 0)
	for _, record := range records {
		candidate := p.Evaluate(*record, asOf)
		if candidate.IsDue() {
			due = append(due, candidate)
		}
	}
	SortCandidates(due)
	return due
}

// Less orders by priority descending, then difficult items first, then item id ascending.
func Less(a, b Candidate) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Record.IsDifficult != b.Record.IsDifficult {
		return a.Record.IsDifficult
	}
	return a.Record.ItemID < b.Record.ItemID
}

// SortCandidates sorts in place into study order.
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return Less(candidates[i], candidates[j])
	})
}
