package opt

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func order(id string, minutes int, completeBy string) Order {
	return NewOrder(id, decimal.RequireFromString("10.00"), time.Duration(minutes)*time.Minute, MustParseClock(completeBy))
}

func twoPickerPool() WorkerPool {
	return WorkerPool{
		Workers: []string{"P1", "P2"},
		Window:  Window{Start: MustParseClock("09:00"), End: MustParseClock("11:00")},
	}
}

// referenceOrders is the seven-order day used throughout: P1 ends up with
// order-1, order-5, order-6 and P2 with order-2, order-3, order-4, order-7.
func referenceOrders() []Order {
	return []Order{
		order("order-1", 15, "09:15"),
		order("order-2", 20, "09:30"),
		order("order-3", 15, "10:15"),
		order("order-4", 25, "10:30"),
		order("order-5", 60, "10:15"),
		order("order-6", 30, "10:45"),
		order("order-7", 25, "11:00"),
	}
}

func mustSchedule(t *testing.T, orders []Order, pool WorkerPool) Result {
	t.Helper()
	res, err := Schedule(orders, pool)
	require.NoError(t, err)
	return res
}

func ids(orders []Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
