package opt

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedule_ReferenceDay(t *testing.T) {
	res := mustSchedule(t, referenceOrders(), twoPickerPool())

	require.Equal(t, []string{"order-1", "order-5", "order-6"}, res.Assignment.OrderIDs("P1"))
	require.Equal(t, []string{"order-2", "order-3", "order-4", "order-7"}, res.Assignment.OrderIDs("P2"))
	require.Empty(t, res.Unscheduled)
	require.Empty(t, res.Evicted)
	require.Len(t, res.Decisions, 7)
	for _, d := range res.Decisions {
		require.Equal(t, Placed, d.Outcome, d.OrderID)
	}
}

func TestSchedule_DeputyEvictsShorterDeadlineOrder(t *testing.T) {
	orders := append(referenceOrders(), order("order-8", 50, "12:00"))

	res := mustSchedule(t, orders, twoPickerPool())

	require.Equal(t, []string{"order-1", "order-6", "order-8"}, res.Assignment.OrderIDs("P1"))
	require.Equal(t, []string{"order-2", "order-3", "order-4", "order-7"}, res.Assignment.OrderIDs("P2"))
	require.Equal(t, []string{"order-5"}, res.Unscheduled)
	require.Equal(t, []string{"order-5"}, res.Evicted)

	last := res.Decisions[len(res.Decisions)-1]
	require.Equal(t, Decision{OrderID: "order-8", Outcome: Displaced, WorkerID: "P1", Evicted: "order-5"}, last)
}

func TestFindWorker_AgainstReferenceDay(t *testing.T) {
	pool := twoPickerPool()

	t.Run("fitting order finds a picker", func(t *testing.T) {
		res := mustSchedule(t, referenceOrders(), pool)
		worker, evicted, ok := FindWorker(res.Assignment, order("test", 15, "11:00"), pool.Window)
		require.True(t, ok)
		require.Equal(t, "P1", worker)
		require.Nil(t, evicted)
	})

	t.Run("oversized order finds nobody and changes nothing", func(t *testing.T) {
		res := mustSchedule(t, referenceOrders(), pool)
		before := snapshot(res.Assignment)

		_, evicted, ok := FindWorker(res.Assignment, order("test", 60, "12:00"), pool.Window)

		require.False(t, ok)
		require.Nil(t, evicted)
		require.Equal(t, before, snapshot(res.Assignment))
	})
}

func TestSchedule_SaturatedPoolLeavesQueuesAlone(t *testing.T) {
	pool := WorkerPool{
		Workers: []string{"P1"},
		Window:  Window{Start: MustParseClock("09:00"), End: MustParseClock("10:00")},
	}
	orders := []Order{
		order("a", 20, "09:20"),
		order("b", 20, "09:40"),
		order("c", 20, "10:00"),
		// as long as anything committed, so nothing is evictable for it
		order("late", 20, "10:00"),
	}

	res := mustSchedule(t, orders, pool)

	require.Equal(t, []string{"a", "b", "c"}, res.Assignment.OrderIDs("P1"))
	require.Equal(t, []string{"late"}, res.Unscheduled)
	require.Empty(t, res.Evicted)
	require.Equal(t, Unplaceable, res.Decisions[3].Outcome)
}

func TestSchedule_InclusiveWindowBounds(t *testing.T) {
	pool := WorkerPool{
		Workers: []string{"P1"},
		Window:  Window{Start: MustParseClock("09:00"), End: MustParseClock("11:00")},
	}

	res := mustSchedule(t, []Order{order("full-day", 120, "11:00")}, pool)

	require.Equal(t, []string{"full-day"}, res.Assignment.OrderIDs("P1"))
	slots := Project(res.Assignment, pool)
	require.Len(t, slots, 1)
	require.Equal(t, pool.Window.Start, slots[0].Start)
	require.Equal(t, pool.Window.End, slots[0].End())
}

func TestSchedule_IdlePickersKeepEmptyQueues(t *testing.T) {
	pool := WorkerPool{
		Workers: []string{"P1", "P2", "P3"},
		Window:  Window{Start: MustParseClock("09:00"), End: MustParseClock("11:00")},
	}

	res := mustSchedule(t, []Order{order("only", 15, "10:00")}, pool)

	require.Len(t, res.Assignment.Queues, 3)
	require.Equal(t, []string{"only"}, res.Assignment.OrderIDs("P1"))
	require.NotNil(t, res.Assignment.Queue("P2"))
	require.Empty(t, res.Assignment.Queue("P2"))
	require.Empty(t, res.Assignment.Queue("P3"))
	require.Nil(t, res.Assignment.Queue("nobody"))
}

func TestSchedule_UrgentOrderIsTriedFirst(t *testing.T) {
	pool := WorkerPool{
		Workers: []string{"P1"},
		Window:  Window{Start: MustParseClock("09:00"), End: MustParseClock("10:00")},
	}
	// Both need the one picker for most of the hour; input order is the
	// reverse of urgency.
	relaxed := order("relaxed", 40, "10:00")
	urgent := order("urgent", 40, "09:50")

	res := mustSchedule(t, []Order{relaxed, urgent}, pool)

	require.Equal(t, "urgent", res.Decisions[0].OrderID)
	require.Equal(t, []string{"urgent"}, res.Assignment.OrderIDs("P1"))
	require.Equal(t, []string{"relaxed"}, res.Unscheduled)
}

func TestSchedule_RejectsBadBatch(t *testing.T) {
	tests := []struct {
		name   string
		orders []Order
		pool   WorkerPool
		want   []error
	}{
		{
			name:   "empty pool",
			orders: referenceOrders(),
			pool:   WorkerPool{Window: twoPickerPool().Window},
			want:   []error{ErrEmptyPool},
		},
		{
			name:   "inverted window",
			orders: referenceOrders(),
			pool:   WorkerPool{Workers: []string{"P1"}, Window: Window{Start: MustParseClock("11:00"), End: MustParseClock("09:00")}},
			want:   []error{ErrInvalidWindow},
		},
		{
			name:   "zero length window",
			orders: referenceOrders(),
			pool:   WorkerPool{Workers: []string{"P1"}, Window: Window{Start: MustParseClock("09:00"), End: MustParseClock("09:00")}},
			want:   []error{ErrInvalidWindow},
		},
		{
			name:   "duplicate worker",
			orders: referenceOrders(),
			pool:   WorkerPool{Workers: []string{"P1", "P1"}, Window: twoPickerPool().Window},
			want:   []error{ErrDuplicateWorker},
		},
		{
			name:   "duplicate order and zero duration together",
			orders: []Order{order("a", 10, "10:00"), order("a", 10, "10:00"), order("b", 0, "10:00")},
			pool:   twoPickerPool(),
			want:   []error{ErrDuplicateOrder, ErrInvalidPickingTime},
		},
		{
			name:   "negative duration",
			orders: []Order{order("neg", -5, "10:00")},
			pool:   twoPickerPool(),
			want:   []error{ErrInvalidPickingTime},
		},
		{
			name:   "missing id",
			orders: []Order{order("", 5, "10:00")},
			pool:   twoPickerPool(),
			want:   []error{ErrEmptyOrderID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Schedule(tt.orders, tt.pool)

			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidInput)
			for _, want := range tt.want {
				require.ErrorIs(t, err, want)
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Problems, len(tt.want))
			require.Nil(t, res.Assignment)
		})
	}
}

func TestSchedule_RandomDaysHoldInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pool := WorkerPool{
		Workers: []string{"P1", "P2", "P3"},
		Window:  Window{Start: MustParseClock("09:00"), End: MustParseClock("11:00")},
	}
	for run := 0; run < 300; run++ {
		n := 1 + rng.Intn(15)
		orders := make([]Order, n)
		byID := map[string]Order{}
		for i := range orders {
			// durations never exceed the window, deadlines spread around it
			minutes := 5 * (1 + rng.Intn(24))
			due := MustParseClock("08:00").Add(time.Duration(5*rng.Intn(60)) * time.Minute)
			orders[i] = order(fmt.Sprintf("r%d-%d", run, i), minutes, due.String())
			byID[orders[i].ID] = orders[i]
		}

		res := mustSchedule(t, orders, pool)

		seen := map[string]int{}
		for _, q := range res.Assignment.Queues {
			for _, o := range q.Orders {
				seen[o.ID]++
			}
		}
		for _, id := range res.Unscheduled {
			require.Zero(t, seen[id], "order %s both scheduled and unscheduled", id)
			seen[id]++
		}
		require.Len(t, seen, n)
		for id, c := range seen {
			require.Equal(t, 1, c, "order %s appears %d times", id, c)
		}

		for _, s := range Project(res.Assignment, pool) {
			require.False(t, s.Start.Before(pool.Window.Start), s.String())
			require.False(t, s.End().After(pool.Window.End), s.String())
		}

		for _, d := range res.Decisions {
			if d.Outcome != Displaced {
				continue
			}
			cand, gone := byID[d.OrderID], byID[d.Evicted]
			require.Greater(t, gone.PickingTime, cand.PickingTime)
			require.False(t, gone.CompleteBy.After(pool.Window.End))
		}
	}
}

func snapshot(a *Assignment) map[string][]string {
	out := map[string][]string{}
	for _, q := range a.Queues {
		out[q.WorkerID] = ids(q.Orders)
	}
	return out
}
