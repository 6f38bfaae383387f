// Package gameweek maps fixture dates onto numbered gameweek windows.
package gameweek

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the layout of window boundaries in configuration and the API.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidWindow is returned for a window with a non-positive gameweek or start after end.
	ErrInvalidWindow = errors.New("invalid gameweek window")
	// ErrOverlap is returned when two windows share at least one date.
	ErrOverlap = errors.New("overlapping gameweek windows")
)

// Window is an inclusive date range belonging to a single gameweek.
type Window struct {
	Gameweek int       `json:"gameweek"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Contains reports whether the calendar date of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Calendar is an ordered set of non-overlapping gameweek windows.
// The zero value is an empty calendar for which every lookup misses.
type Calendar struct {
	windows []Window
}

// New validates windows and builds a calendar. Window order is preserved for
// lookups; gaps between windows are allowed.
func New(windows []Window) (Calendar, error) {
	normalized := make([]Window, len(windows))
	for i, w := range windows {
		w.Start = dateOf(w.Start)
		w.End = dateOf(w.End)
		if w.Gameweek <= 0 {
			return Calendar{}, fmt.Errorf("%w: gameweek %d must be positive", ErrInvalidWindow, w.Gameweek)
		}
		if w.End.Before(w.Start) {
			return Calendar{}, fmt.Errorf("%w: gameweek %d ends %s before it starts %s",
				ErrInvalidWindow, w.Gameweek, w.End.Format(DateLayout), w.Start.Format(DateLayout))
		}
		normalized[i] = w
	}

	// Overlap check on a start-ordered copy.
	sorted := make([]Window, len(normalized))
	copy(sorted, normalized)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if !cur.Start.After(prev.End) {
			return Calendar{}, fmt.Errorf("%w: gameweek %d (%s..%s) and gameweek %d (%s..%s)", ErrOverlap,
				prev.Gameweek, prev.Start.Format(DateLayout), prev.End.Format(DateLayout),
				cur.Gameweek, cur.Start.Format(DateLayout), cur.End.Format(DateLayout))
		}
	}

	return Calendar{windows: normalized}, nil
}

// MustNew is like New but panics on invalid windows. Intended for compiled-in tables.
func MustNew(windows []Window) Calendar {
	c, err := New(windows)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the gameweek whose window contains the date of t.
func (c Calendar) Lookup(t time.Time) (int, bool) {
	for _, w := range c.windows {
		if w.Contains(t) {
			return w.Gameweek, true
		}
	}
	return 0, false
}

// Windows returns a copy of the calendar's windows in lookup order.
func (c Calendar) Windows() []Window {
	out := make([]Window, len(c.windows))
	copy(out, c.windows)
	return out
}

// Len returns the number of windows.
func (c Calendar) Len() int {
	return len(c.windows)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
