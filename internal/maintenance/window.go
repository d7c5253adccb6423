// Package maintenance decides whether a timestamp falls inside the daily
// maintenance window.
//
// Both bounds are wall-clock times on the calendar day of the timestamp, in
// the timestamp's own location. A window whose start is after its end (one
// that would cross midnight) never matches; that case is reported by
// Overnight so callers can warn about it.
package maintenance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h). Single-digit hours are accepted.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	if len(mm) != 2 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) on(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// Window is a daily recurring [Start, End] interval.
type Window struct {
	Start Clock
	End   Clock
}

// ParseWindow builds a Window from two "HH:MM" bounds.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("maintenance start: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("maintenance end: %w", err)
	}
	return Window{Start: s, End: e}, nil
}

// Contains reports whether now lies in [Start, End] on now's calendar day.
func (w Window) Contains(now time.Time) bool {
	start := w.Start.on(now)
	end := w.End.on(now)
	return !now.Before(start) && !now.After(end)
}

// Overnight is true when Start is after End. Such a window is empty.
func (w Window) Overnight() bool {
	return w.Start.Hour*60+w.Start.Minute > w.End.Hour*60+w.End.Minute
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// IsWithinWindow is the string form of Window.Contains.
func IsWithinWindow(startHHMM, endHHMM string, now time.Time) (bool, error) {
	w, err := ParseWindow(startHHMM, endHHMM)
	if err != nil {
		return false, err
	}
	return w.Contains(now), nil
}
