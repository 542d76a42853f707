package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DefaultMaxTripDays bounds how many whiteboards a date range may produce.
const DefaultMaxTripDays = 366

var (
	ErrInvalidDateRange = errors.New("end date is before start date")
	ErrDateRangeTooLong = errors.New("date range exceeds maximum trip length")
)

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayCount returns the inclusive number of days between start and end.
// A range that starts and ends on the same day has one day.
func DayCount(start, end time.Time, maxDays int) (int, error) {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0, ErrInvalidDateRange
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxTripDays
	}
	n := int(e.Sub(s)/(24*time.Hour)) + 1
	if n > maxDays {
		return 0, fmt.Errorf("%w: %d days (max %d)", ErrDateRangeTooLong, n, maxDays)
	}
	return n, nil
}

// WhiteboardPlan is the set of changes that brings a trip's whiteboards in line with its
// day count.
type WhiteboardPlan struct {
	Create []int
	Remove []WhiteboardID
}

func (p WhiteboardPlan) IsEmpty() bool {
	return len(p.Create) == 0 && len(p.Remove) == 0
}

// ReconcileWhiteboards computes which days need a whiteboard and which whiteboards must go
// so that exactly one whiteboard exists for each day in 1..dayCount.
//
// For a day with several whiteboards the earliest created one is kept.
func ReconcileWhiteboards(existing []Whiteboard, dayCount int) WhiteboardPlan {
	ws := append([]Whiteboard(nil), existing...)
	SortWhiteboards(ws)

	plan := WhiteboardPlan{Create: []int{}, Remove: []WhiteboardID{}}
	kept := make(map[int]bool, len(ws))
	for _, w := range ws {
		if w.Day < 1 || w.Day > dayCount || kept[w.Day] {
			plan.Remove = append(plan.Remove, w.ID)
			continue
		}
		kept[w.Day] = true
	}
	for day := 1; day <= dayCount; day++ {
		if !kept[day] {
			plan.Create = append(plan.Create, day)
		}
	}
	return plan
}

// SortWhiteboards orders whiteboards by day, then creation time, then ID.
func SortWhiteboards(ws []Whiteboard) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].Day != ws[j].Day {
			return ws[i].Day < ws[j].Day
		}
		if !ws[i].CreatedAt.Equal(ws[j].CreatedAt) {
			return ws[i].CreatedAt.Before(ws[j].CreatedAt)
		}
		return ws[i].ID < ws[j].ID
	})
}

// DayRangeLabel renders the span of whiteboard days, e.g. "Day 1 - Day 5" or "Day 2".
// Non-positive days are ignored; an empty string means no days.
func DayRangeLabel(days []int) string {
	lo, hi := 0, 0
	for _, d := range days {
		if d <= 0 {
			continue
		}
		if lo == 0 || d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	switch {
	case lo == 0:
		return ""
	case lo == hi:
		return fmt.Sprintf("Day %d", lo)
	default:
		return fmt.Sprintf("Day %d - Day %d", lo, hi)
	}
}
