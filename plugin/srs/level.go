// Package srs implements the pure spaced-repetition rules: mastery
// transitions, the interval policy, due-candidate ordering and day plans.
// Nothing in this package performs I/O.
package srs

import (
	"fmt"
)

const (
	// MinLevel is a record that has never been recalled correctly.
	MinLevel = 0
	// MaxLevel is a fully internalized item.
	MaxLevel = 5
	// LevelCount is the size of the level domain.
	LevelCount = MaxLevel - MinLevel + 1
)

// IsValidLevel reports whether level is inside [MinLevel, MaxLevel].
func IsValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// mustLevel panics when a level is out of range. An out-of-range level
// means a caller bug or a corrupted record, never user input.
func mustLevel(level int) {
	if !IsValidLevel(level) {
		panic(fmt.Sprintf("srs: mastery level %d outside [%d,%d]", level, MinLevel, MaxLevel))
	}
}

func clampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
