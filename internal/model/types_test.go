package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pickplan/internal/opt"
)

func TestStoreConfigPool(t *testing.T) {
	cfg := StoreConfig{Pickers: []string{"P1", "P2"}, PickingStartTime: "09:00", PickingEndTime: "11:00"}

	pool, err := cfg.Pool()
	require.NoError(t, err)
	require.Equal(t, []string{"P1", "P2"}, pool.Workers)
	require.Equal(t, opt.MustParseClock("09:00"), pool.Window.Start)
	require.Equal(t, 2*time.Hour, pool.Window.Length())

	cfg.PickingEndTime = "8:00"
	_, err = cfg.Pool()
	require.ErrorIs(t, err, opt.ErrInvalidInput)

	cfg.PickingEndTime = "08:00"
	_, err = cfg.Pool()
	require.ErrorIs(t, err, opt.ErrInvalidWindow)

	_, err = StoreConfig{PickingStartTime: "09:00", PickingEndTime: "11:00"}.Pool()
	require.ErrorIs(t, err, opt.ErrEmptyPool)
}

func TestOrderInFromJSON(t *testing.T) {
	raw := `[{"orderId":"order-1","orderValue":"0.00","pickingTime":"PT15M","completeBy":"09:15"},
	         {"orderId":"order-2","orderValue":22.50,"pickingTime":"PT1H5M","completeBy":"11:00"}]`
	var in []OrderIn
	require.NoError(t, json.Unmarshal([]byte(raw), &in))

	orders, err := ToOrders(in)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, 15*time.Minute, orders[0].PickingTime)
	require.Equal(t, opt.MustParseClock("09:00"), orders[0].LatestStartTime())
	require.Equal(t, 65*time.Minute, orders[1].PickingTime)
	require.Equal(t, "22.5", orders[1].Value.String())
}

func TestOrderInRejectsMalformedFields(t *testing.T) {
	_, err := OrderIn{OrderID: "x", PickingTime: "15 minutes", CompleteBy: "09:00"}.Order()
	require.ErrorIs(t, err, opt.ErrInvalidInput)
	require.Contains(t, err.Error(), "pickingTime")

	_, err = OrderIn{OrderID: "x", PickingTime: "PT15M", CompleteBy: "9am"}.Order()
	require.ErrorIs(t, err, opt.ErrInvalidInput)
	require.Contains(t, err.Error(), "completeBy")
}

func TestPickingTimeRoundTrip(t *testing.T) {
	d, err := ParsePickingTime(FormatPickingTime(50 * time.Minute))
	require.NoError(t, err)
	require.Equal(t, 50*time.Minute, d)
}

func TestPlanLines(t *testing.T) {
	p := Plan{Pickers: []PickerPlan{
		{PickerID: "P1", Slots: []Slot{{OrderID: "order-1", Start: "09:00"}, {OrderID: "order-5", Start: "09:15"}}},
		{PickerID: "P2"},
	}}
	require.Equal(t, []string{"P1 order-1 09:00", "P1 order-5 09:15"}, p.Lines())
}
