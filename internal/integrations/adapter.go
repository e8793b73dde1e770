// Package integrations defines where a scheduling day comes from: a store
// configuration and the orders to place.
package integrations

import (
	"context"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"pickplan/internal/model"
)

// OrderSource supplies one store day.
type OrderSource interface {
	Name() string
	LoadStore(ctx context.Context) (model.StoreConfig, error)
	FetchOrders(ctx context.Context) ([]model.OrderIn, error)
}

// LoadStoreFile reads a store configuration file. JSON is read as YAML, so
// either format is accepted.
func LoadStoreFile(path string) (model.StoreConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.StoreConfig{}, err
	}
	var cfg model.StoreConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return model.StoreConfig{}, fmt.Errorf("parse store file %s: %w", path, err)
	}
	return cfg, nil
}
