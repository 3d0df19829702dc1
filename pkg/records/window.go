package records

import (
	"fmt"
	"strings"
	"time"
)

// TimeWindow selects how far back video records reach.
type TimeWindow string

const (
	Window7d  TimeWindow = "7d"
	Window30d TimeWindow = "30d"
	Window90d TimeWindow = "90d"
	WindowAll TimeWindow = "all"
)

// Windows lists every supported window.
var Windows = []TimeWindow{Window7d, Window30d, Window90d, WindowAll}

// ParseWindow validates a window name.
func ParseWindow(s string) (TimeWindow, error) {
	switch w := TimeWindow(strings.ToLower(strings.TrimSpace(s))); w {
	case Window7d, Window30d, Window90d, WindowAll:
		return w, nil
	}
	return "", fmt.Errorf("unknown time window %q", s)
}

// Duration returns the window length; ok is false for WindowAll.
func (w TimeWindow) Duration() (d time.Duration, ok bool) {
	switch w {
	case Window7d:
		return 7 * 24 * time.Hour, true
	case Window30d:
		return 30 * 24 * time.Hour, true
	case Window90d:
		return 90 * 24 * time.Hour, true
	}
	return 0, false
}

// Contains reports whether t falls inside the window ending at asOf.
// A zero t is only inside WindowAll.
func (w TimeWindow) Contains(asOf, t time.Time) bool {
	d, bounded := w.Duration()
	if !bounded {
		return true
	}
	if t.IsZero() {
		return false
	}
	return !t.Before(asOf.Add(-d)) && !t.After(asOf)
}
