package srs

import (
	"time"

	"github.com/hrygo/wordloop/server/timezone"
	"github.com/hrygo/wordloop/store"
)

const (
	// FamiliarCostSeconds is the per-item study cost at level 3 and above.
	FamiliarCostSeconds = 30
	// UnfamiliarCostSeconds is the per-item study cost below level 3.
	UnfamiliarCostSeconds = 60

	familiarLevel = 3
	day           = 24 * time.Hour
)

// Difficulty is a coarse bucket over mastery levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyOf buckets a level: easy >= 4, medium 2-3, hard < 2.
func DifficultyOf(level int) Difficulty {
	switch {
	case level >= 4:
		return DifficultyEasy
	case level >= 2:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// Histogram counts due items per difficulty bucket.
type Histogram struct {
	Easy   int
	Medium int
	Hard   int
}

func (h *Histogram) add(level int) {
	switch DifficultyOf(level) {
	case DifficultyEasy:
		h.Easy++
	case DifficultyMedium:
		h.Medium++
	default:
		h.Hard++
	}
}

// ItemCostSeconds is the estimated study time for one item at level.
func ItemCostSeconds(level int) int {
	if level >= familiarLevel {
		return FamiliarCostSeconds
	}
	return UnfamiliarCostSeconds
}

// DayPlan projects the due set for one future day.
type DayPlan struct {
	Offset               int
	Date                 time.Time
	Items                []Candidate
	EstimatedTimeMinutes int
	Histogram            Histogram
}

// Project builds one DayPlan per offset in [0, days). Day i evaluates every
// record as of now + i*24h, assuming no reviews happen in between, so an item
// can appear on several days. Dates are local midnights in loc.
// A non-positive days yields an empty plan.
func (p *Policy) Project(records []*store.ProgressRecord, now time.Time, days int, loc *time.Location) []DayPlan {
	plans := make([]DayPlan, 0, max(days, 0))
	if days <= 0 {
		return plans
	}

	today := timezone.StartOfDay(now, loc)
	for i := 0; i < days; i++ {
		items := p.Due(records, now.Add(time.Duration(i)*day))
		plan := DayPlan{
			Offset: i,
			Date:   today.AddDate(0, 0, i),
			Items:  items,
		}
		seconds := 0
		for _, item := range items {
			seconds += ItemCostSeconds(item.Record.MasteryLevel)
			plan.Histogram.add(item.Record.MasteryLevel)
		}
		plan.EstimatedTimeMinutes = (seconds + 59) / 60
		plans = append(plans, plan)
	}
	return plans
}
