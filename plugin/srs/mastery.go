package srs

import (
	"time"

	"github.com/hrygo/wordloop/store"
)

const (
	// PromotionAccuracy must be strictly exceeded for a correct answer to promote.
	PromotionAccuracy = 0.8
	// PromotionMinOutcomes is the evidence needed before any promotion.
	PromotionMinOutcomes = 3
)

// NewProgressRecord returns the initial state for a (user, item) pair.
func NewProgressRecord(userID int32, itemID string) store.ProgressRecord {
	return store.ProgressRecord{
		UserID:       userID,
		ItemID:       itemID,
		MasteryLevel: MinLevel,
	}
}

// ApplyOutcome applies one review outcome and returns the updated record.
//
// A correct answer bumps the streak and promotes one level only once the
// record has at least PromotionMinOutcomes outcomes with accuracy above
// PromotionAccuracy. An incorrect answer resets the streak and drops one
// level. Levels clamp to [MinLevel, MaxLevel]. LastReviewedTs never moves
// backwards.
//
// ApplyOutcome panics if record.MasteryLevel is out of range.
func ApplyOutcome(record store.ProgressRecord, isCorrect bool, now time.Time) store.ProgressRecord {
	mustLevel(record.MasteryLevel)

	if ts := now.Unix(); ts > record.LastReviewedTs {
		record.LastReviewedTs = ts
	}

	if !isCorrect {
		record.IncorrectCount++
		record.StudyStreak = 0
		record.MasteryLevel = clampLevel(record.MasteryLevel - 1)
		return record
	}

	record.CorrectCount++
	record.StudyStreak++
	total := record.TotalOutcomes()
	accuracy := float64(record.CorrectCount) / float64(total)
	if accuracy > PromotionAccuracy && total >= PromotionMinOutcomes {
		record.MasteryLevel = clampLevel(record.MasteryLevel + 1)
	}
	return record
}

// Accuracy returns the running accuracy, or 0 for a record with no outcomes.
func Accuracy(record store.ProgressRecord) float64 {
	total := record.TotalOutcomes()
	if total == 0 {
		return 0
	}
	return float64(record.CorrectCount) / float64(total)
}
