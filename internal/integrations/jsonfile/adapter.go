// Package jsonfile reads a store day from a store file and a JSON orders file.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"pickplan/internal/integrations"
	"pickplan/internal/model"
)

type Source struct {
	StorePath  string
	OrdersPath string
}

var _ integrations.OrderSource = Source{}

func New(storePath, ordersPath string) Source {
	return Source{StorePath: storePath, OrdersPath: ordersPath}
}

func (s Source) Name() string { return "json-file" }

func (s Source) LoadStore(ctx context.Context) (model.StoreConfig, error) {
	return integrations.LoadStoreFile(s.StorePath)
}

// FetchOrders reads a JSON array of orders.
func (s Source) FetchOrders(ctx context.Context) ([]model.OrderIn, error) {
	b, err := os.ReadFile(s.OrdersPath)
	if err != nil {
		return nil, err
	}
	var orders []model.OrderIn
	if err := json.Unmarshal(b, &orders); err != nil {
		return nil, fmt.Errorf("parse orders file %s: %w", s.OrdersPath, err)
	}
	return orders, nil
}
