// Package analysis holds the pure functions that order, classify and
// characterize snapshot records once they have been fetched.
package analysis

import (
	"fmt"
	"time"

	"github.com/thesavant42/snapshot-scout/internal/models"
)

// TimestampLayout is the CDX capture timestamp format (YYYYMMDDhhmmss)
const TimestampLayout = "20060102150405"

const daysPerMonth = 30

// ParseTimestamp parses a 14-digit CDX timestamp as UTC.
// Anything that is not exactly 14 digits forming a real calendar time is rejected.
func ParseTimestamp(ts string) (time.Time, error) {
	if len(ts) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q: want %d digits", ts, len(TimestampLayout))
	}
	for i := 0; i < len(ts); i++ {
		if ts[i] < '0' || ts[i] > '9' {
			return time.Time{}, fmt.Errorf("timestamp %q: non-digit at %d", ts, i)
		}
	}
	t, err := time.ParseInLocation(TimestampLayout, ts, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", ts, err)
	}
	return t, nil
}

// DaysBetween returns the whole number of calendar days from a to b,
// comparing only the year/month/day components in UTC. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	da := dateOnly(a)
	db := dateOnly(b)
	return int(db.Sub(da).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthsAgo is floor(days elapsed / 30). Captures dated after now count as zero.
func MonthsAgo(capture, now time.Time) int {
	days := DaysBetween(capture, now)
	if days < 0 {
		return 0
	}
	return days / daysPerMonth
}

// ClassifyAge maps a months-ago count to its change type. Thresholds are inclusive.
func ClassifyAge(monthsAgo int) models.ChangeType {
	switch {
	case monthsAgo <= 2:
		return models.ChangeRecent
	case monthsAgo <= 6:
		return models.ChangeModerate
	case monthsAgo <= 12:
		return models.ChangeSignificant
	case monthsAgo <= 24:
		return models.ChangeMajor
	default:
		return models.ChangeHistorical
	}
}

// ClassifyChange labels a capture timestamp relative to now.
// An unparseable timestamp is reported as an error; callers discard such records.
func ClassifyChange(timestamp string, now time.Time) (models.ChangeType, error) {
	t, err := ParseTimestamp(timestamp)
	if err != nil {
		return "", err
	}
	return ClassifyAge(MonthsAgo(t, now)), nil
}
