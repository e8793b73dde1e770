package opt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func assignmentOf(queues ...Queue) *Assignment {
	return &Assignment{Queues: queues}
}

func TestFindDeputy(t *testing.T) {
	w := twoPickerPool().Window

	t.Run("idle picker wins without eviction", func(t *testing.T) {
		a := assignmentOf(
			Queue{WorkerID: "P1", Orders: []Order{order("x", 90, "10:30")}},
			Queue{WorkerID: "P2", Orders: []Order{}},
		)
		worker, evicted, ok := FindDeputy(a, order("c", 10, "10:00"), w)
		require.True(t, ok)
		require.Equal(t, "P2", worker)
		require.Nil(t, evicted)
		require.Equal(t, []string{"x"}, a.OrderIDs("P1"))
	})

	t.Run("evicts the longer order due soonest", func(t *testing.T) {
		a := assignmentOf(
			Queue{WorkerID: "P1", Orders: []Order{order("p1-a", 40, "10:30"), order("p1-b", 45, "09:50")}},
			Queue{WorkerID: "P2", Orders: []Order{order("p2-a", 50, "09:45"), order("p2-b", 10, "09:15")}},
		)
		worker, evicted, ok := FindDeputy(a, order("c", 30, "10:00"), w)
		require.True(t, ok)
		require.Equal(t, "P2", worker)
		require.Equal(t, "p2-a", evicted.ID)
		require.Equal(t, []string{"p2-b"}, a.OrderIDs("P2"))
		require.Equal(t, []string{"p1-a", "p1-b"}, a.OrderIDs("P1"))
	})

	t.Run("ties go to the first encountered", func(t *testing.T) {
		a := assignmentOf(
			Queue{WorkerID: "P1", Orders: []Order{order("first", 40, "10:00")}},
			Queue{WorkerID: "P2", Orders: []Order{order("second", 40, "10:00")}},
		)
		worker, evicted, ok := FindDeputy(a, order("c", 30, "10:30"), w)
		require.True(t, ok)
		require.Equal(t, "P1", worker)
		require.Equal(t, "first", evicted.ID)
		require.Empty(t, a.Queue("P1"))
		require.Equal(t, []string{"second"}, a.OrderIDs("P2"))
	})

	t.Run("equal picking time is not evictable", func(t *testing.T) {
		a := assignmentOf(Queue{WorkerID: "P1", Orders: []Order{order("same", 30, "09:30")}})
		_, evicted, ok := FindDeputy(a, order("c", 30, "10:00"), w)
		require.False(t, ok)
		require.Nil(t, evicted)
		require.Equal(t, []string{"same"}, a.OrderIDs("P1"))
	})

	t.Run("orders due after the window are never evicted", func(t *testing.T) {
		a := assignmentOf(Queue{WorkerID: "P1", Orders: []Order{order("late", 60, "11:30")}})
		_, _, ok := FindDeputy(a, order("c", 10, "10:00"), w)
		require.False(t, ok)
		require.Equal(t, []string{"late"}, a.OrderIDs("P1"))
	})

	t.Run("order due exactly at window end is evictable", func(t *testing.T) {
		a := assignmentOf(Queue{WorkerID: "P1", Orders: []Order{order("edge", 60, "11:00")}})
		worker, evicted, ok := FindDeputy(a, order("c", 10, "10:00"), w)
		require.True(t, ok)
		require.Equal(t, "P1", worker)
		require.Equal(t, "edge", evicted.ID)
	})

	t.Run("eviction does not disturb a copied queue", func(t *testing.T) {
		orders := []Order{order("keep-1", 10, "09:30"), order("go", 60, "10:00"), order("keep-2", 10, "10:30")}
		a := assignmentOf(Queue{WorkerID: "P1", Orders: orders})
		_, evicted, ok := FindDeputy(a, order("c", 20, "10:00"), w)
		require.True(t, ok)
		require.Equal(t, "go", evicted.ID)
		require.Equal(t, []string{"keep-1", "keep-2"}, a.OrderIDs("P1"))
		require.Equal(t, []string{"keep-1", "go", "keep-2"}, ids(orders))
	})
}
