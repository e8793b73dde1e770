// Package csvfile reads orders from a CSV export with the columns
// order_id, order_value, picking_time, complete_by.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"pickplan/internal/integrations"
	"pickplan/internal/model"
)

var columns = []string{"order_id", "order_value", "picking_time", "complete_by"}

type Source struct {
	StorePath  string
	OrdersPath string
}

var _ integrations.OrderSource = Source{}

func New(storePath, ordersPath string) Source {
	return Source{StorePath: storePath, OrdersPath: ordersPath}
}

func (s Source) Name() string { return "csv-file" }

func (s Source) LoadStore(ctx context.Context) (model.StoreConfig, error) {
	return integrations.LoadStoreFile(s.StorePath)
}

func (s Source) FetchOrders(ctx context.Context) ([]model.OrderIn, error) {
	f, err := os.Open(s.OrdersPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads orders from r. The header row is required; column order is free.
func Parse(r io.Reader) ([]model.OrderIn, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	out := []model.OrderIn{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		value := decimal.Zero
		if v := strings.TrimSpace(rec[idx["order_value"]]); v != "" {
			value, err = decimal.NewFromString(v)
			if err != nil {
				line, _ := cr.FieldPos(idx["order_value"])
				return nil, fmt.Errorf("line %d order_value: %w", line, err)
			}
		}
		out = append(out, model.OrderIn{
			OrderID:     strings.TrimSpace(rec[idx["order_id"]]),
			OrderValue:  value,
			PickingTime: strings.TrimSpace(rec[idx["picking_time"]]),
			CompleteBy:  strings.TrimSpace(rec[idx["complete_by"]]),
		})
	}
}
