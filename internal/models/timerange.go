package models

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeRange is a half-open interval [Start, End) within a single day,
// expressed in minutes from midnight (e.g. 540 for 09:00).
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

const minutesPerDay = 24 * 60

func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.End <= minutesPerDay && r.Start < r.End
}

func (r TimeRange) Duration() int {
	return r.End - r.Start
}

// Overlaps reports whether two half-open ranges share at least one minute.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// Contains reports whether o lies fully within r.
func (r TimeRange) Contains(o TimeRange) bool {
	return r.Start <= o.Start && o.End <= r.End
}

func (r TimeRange) String() string {
	return ClockString(r.Start) + "-" + ClockString(r.End)
}

// ClockString formats minutes from midnight as HH:MM.
func ClockString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock parses an HH:MM string into minutes from midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hours < 0 || hours > 24 || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	total := hours*60 + mins
	if total > minutesPerDay {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return total, nil
}

// ParseTimeRange parses a pair of HH:MM strings into a validated TimeRange.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	r := TimeRange{Start: s, End: e}
	if !r.Valid() {
		return TimeRange{}, fmt.Errorf("invalid time range %s: start must precede end", r)
	}
	return r, nil
}
