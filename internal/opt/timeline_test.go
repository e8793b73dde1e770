package opt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProject_ReferenceDay(t *testing.T) {
	pool := twoPickerPool()
	res := mustSchedule(t, referenceOrders(), pool)

	var lines []string
	for _, s := range Project(res.Assignment, pool) {
		lines = append(lines, s.String())
	}

	require.Equal(t, []string{
		"P1 order-1 09:00",
		"P1 order-5 09:15",
		"P1 order-6 10:15",
		"P2 order-2 09:00",
		"P2 order-3 09:20",
		"P2 order-4 09:35",
		"P2 order-7 10:00",
	}, lines)
}

func TestProject_SkipsEmptyAndMissingQueues(t *testing.T) {
	pool := WorkerPool{
		Workers: []string{"P1", "P2", "P3"},
		Window:  twoPickerPool().Window,
	}
	// P3 has no entry at all, P2 an empty one.
	a := assignmentOf(
		Queue{WorkerID: "P1", Orders: []Order{order("a", 30, "10:00")}},
		Queue{WorkerID: "P2"},
	)

	slots := Project(a, pool)

	require.Len(t, slots, 1)
	require.Equal(t, "P1 a 09:00", slots[0].String())
	require.Equal(t, MustParseClock("09:30"), slots[0].End())
}

func TestSortByUrgency(t *testing.T) {
	in := []Order{
		order("late-start", 10, "10:30"), // 10:20
		order("tie-later", 30, "10:00"),  // 09:30
		order("tie-sooner", 20, "09:50"), // 09:30
		order("first", 60, "10:00"),      // 09:00
		order("twin-a", 15, "10:15"),     // 10:00
		order("twin-b", 15, "10:15"),     // 10:00
	}

	got := SortByUrgency(in)

	require.Equal(t, []string{"first", "tie-sooner", "tie-later", "twin-a", "twin-b", "late-start"}, ids(got))
	require.Equal(t, "late-start", in[0].ID, "input must not be reordered")
	require.Equal(t, ids(got), ids(SortByUrgency(got)))
}
