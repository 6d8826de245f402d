// Package timezone resolves learner timezones and the calendar-day
// boundaries used when plans and feeds are rendered.
package timezone

import (
	"fmt"
	"time"
)

// UTC is the fallback location for learners without a configured timezone.
var UTC = time.UTC

// DateLayout is the calendar date format used in plans, feeds and exports.
const DateLayout = "2006-01-02"

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Shanghai").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// StartOfDay returns local midnight of t's calendar day in tz.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}
