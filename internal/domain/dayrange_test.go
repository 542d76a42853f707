package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestDayCount(t *testing.T) {
	t.Parallel()

	n, err := DayCount(day(2026, 3, 1), day(2026, 3, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = DayCount(day(2026, 2, 27), day(2026, 3, 2), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Times of day are ignored.
	n, err = DayCount(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDayCount_Errors(t *testing.T) {
	t.Parallel()

	_, err := DayCount(day(2026, 3, 2), day(2026, 3, 1), 0)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = DayCount(day(2026, 1, 1), day(2026, 1, 10), 5)
	assert.ErrorIs(t, err, ErrDateRangeTooLong)
}

func TestReconcileWhiteboards_CreatesMissingAndRemovesExtra(t *testing.T) {
	t.Parallel()

	existing := []Whiteboard{
		{ID: "w2", Day: 2, CreatedAt: time.Unix(2, 0)},
		{ID: "w5", Day: 5, CreatedAt: time.Unix(5, 0)},
		{ID: "w0", Day: 0, CreatedAt: time.Unix(0, 0)},
	}
	plan := ReconcileWhiteboards(existing, 3)
	assert.Equal(t, []int{1, 3}, plan.Create)
	assert.ElementsMatch(t, []WhiteboardID{"w0", "w5"}, plan.Remove)
}

func TestReconcileWhiteboards_KeepsEarliestDuplicate(t *testing.T) {
	t.Parallel()

	existing := []Whiteboard{
		{ID: "late", Day: 1, CreatedAt: time.Unix(20, 0)},
		{ID: "early", Day: 1, CreatedAt: time.Unix(10, 0)},
	}
	plan := ReconcileWhiteboards(existing, 1)
	assert.Empty(t, plan.Create)
	assert.Equal(t, []WhiteboardID{"late"}, plan.Remove)
}

func TestReconcileWhiteboards_Idempotent(t *testing.T) {
	t.Parallel()

	existing := []Whiteboard{{ID: "w3", Day: 3}}
	plan := ReconcileWhiteboards(existing, 2)

	after := make([]Whiteboard, 0)
	for _, d := range plan.Create {
		after = append(after, Whiteboard{ID: WhiteboardID("new"), Day: d})
	}
	// Give each created board a unique ID.
	for i := range after {
		after[i].ID = WhiteboardID(string(rune('a' + i)))
	}
	assert.True(t, ReconcileWhiteboards(after, 2).IsEmpty())
}

func TestDayRangeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", DayRangeLabel(nil))
	assert.Equal(t, "", DayRangeLabel([]int{0, -1}))
	assert.Equal(t, "Day 2", DayRangeLabel([]int{2, 2}))
	assert.Equal(t, "Day 1 - Day 5", DayRangeLabel([]int{3, 5, 1, 0}))
}
