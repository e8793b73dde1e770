package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pickplan/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir, in name order. Files are
// recorded in schema_migrations and never applied twice.
func (p *Postgres) MigrateDir(dir string) error {
	ctx := context.Background()
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (name text PRIMARY KEY, applied_at timestamptz NOT NULL DEFAULT now())`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		name := filepath.Base(f)
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name=$1)`, name).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}
		body, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) PutStoreConfig(ctx context.Context, storeID string, cfg model.StoreConfig) error {
	pickers, _ := json.Marshal(cfg.Pickers)
	_, err := p.db.ExecContext(ctx, `INSERT INTO store_configs (store_id, pickers, picking_start, picking_end, updated_at) VALUES ($1,$2,$3,$4,now())
        ON CONFLICT (store_id) DO UPDATE SET pickers=EXCLUDED.pickers, picking_start=EXCLUDED.picking_start, picking_end=EXCLUDED.picking_end, updated_at=now()`,
		storeID, pickers, cfg.PickingStartTime, cfg.PickingEndTime)
	return err
}

func (p *Postgres) GetStoreConfig(ctx context.Context, storeID string) (model.StoreConfig, error) {
	var cfg model.StoreConfig
	var pickers []byte
	err := p.db.QueryRowContext(ctx, `SELECT pickers, picking_start, picking_end FROM store_configs WHERE store_id=$1`, storeID).
		Scan(&pickers, &cfg.PickingStartTime, &cfg.PickingEndTime)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoreConfig{}, ErrNotFound
	}
	if err != nil {
		return model.StoreConfig{}, err
	}
	if err := json.Unmarshal(pickers, &cfg.Pickers); err != nil {
		return model.StoreConfig{}, fmt.Errorf("decode pickers: %w", err)
	}
	return cfg, nil
}

// CreateOrders inserts orders for a store day. Dedup by (store_id, plan_date, order_id).
func (p *Postgres) CreateOrders(ctx context.Context, storeID, planDate string, orders []model.OrderIn) (int, int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	created, skipped := 0, 0
	for _, o := range orders {
		res, err := tx.ExecContext(ctx, `INSERT INTO orders (store_id, plan_date, order_id, order_value, picking_time, complete_by)
            VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (store_id, plan_date, order_id) DO NOTHING`,
			storeID, planDate, o.OrderID, o.OrderValue.String(), o.PickingTime, o.CompleteBy)
		if err != nil {
			return 0, 0, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			skipped++
			continue
		}
		created++
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return created, skipped, nil
}

func (p *Postgres) ListOrders(ctx context.Context, storeID, planDate string) ([]model.OrderIn, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT order_id, order_value, picking_time, complete_by FROM orders WHERE store_id=$1 AND plan_date=$2 ORDER BY seq`, storeID, planDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OrderIn{}
	for rows.Next() {
		var o model.OrderIn
		var value string
		if err := rows.Scan(&o.OrderID, &value, &o.PickingTime, &o.CompleteBy); err != nil {
			return nil, err
		}
		if err := o.OrderValue.Scan(value); err != nil {
			return nil, fmt.Errorf("order %s value: %w", o.OrderID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteOrders(ctx context.Context, storeID, planDate string) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM orders WHERE store_id=$1 AND plan_date=$2`, storeID, planDate)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SavePlan stores the whole plan document; the scalar columns are kept for listing.
func (p *Postgres) SavePlan(ctx context.Context, plan model.Plan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO plans (id, store_id, plan_date, created_at, doc) VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE SET doc=EXCLUDED.doc`, plan.ID, plan.StoreID, nullIfEmpty(plan.PlanDate), plan.CreatedAt, doc)
	return err
}

func (p *Postgres) GetPlan(ctx context.Context, storeID, planID string) (model.Plan, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM plans WHERE store_id=$1 AND id=$2`, storeID, planID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plan{}, ErrNotFound
	}
	if err != nil {
		return model.Plan{}, err
	}
	var plan model.Plan
	if err := json.Unmarshal(doc, &plan); err != nil {
		return model.Plan{}, fmt.Errorf("decode plan %s: %w", planID, err)
	}
	return plan, nil
}

// ListPlans returns plans newest first; the cursor is "<created_at RFC3339Nano>|<id>".
func (p *Postgres) ListPlans(ctx context.Context, storeID, cursor string, limit int) ([]model.Plan, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		at, id, ok := splitCursor(cursor)
		if !ok {
			return nil, "", ErrInvalidCursor
		}
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM plans WHERE store_id=$1 AND (created_at, id) < ($2, $3) ORDER BY created_at DESC, id DESC LIMIT $4`, storeID, at, id, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM plans WHERE store_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`, storeID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Plan{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, "", err
		}
		var plan model.Plan
		if err := json.Unmarshal(doc, &plan); err != nil {
			return nil, "", err
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next = last.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + last.ID
	}
	return out, next, nil
}

func splitCursor(c string) (time.Time, string, bool) {
	at, id, found := strings.Cut(c, "|")
	if !found {
		return time.Time{}, "", false
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return time.Time{}, "", false
	}
	return t, id, true
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := uuid.New().String()
	events, _ := json.Marshal(req.Events)
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, store_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.StoreID, req.URL, events, nullIfEmpty(req.Secret))
	if err != nil {
		return model.Subscription{}, err
	}
	return model.Subscription{ID: id, StoreID: req.StoreID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, storeID string) ([]model.Subscription, error) {
	return p.querySubscriptions(ctx, `SELECT id::text, store_id, url, events, '' FROM subscriptions WHERE store_id=$1 ORDER BY created_at`, storeID)
}

func (p *Postgres) DeleteSubscription(ctx context.Context, storeID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE store_id=$1 AND id::text=$2`, storeID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, storeID, eventType string) ([]model.Subscription, error) {
	return p.querySubscriptions(ctx, `SELECT id::text, store_id, url, events, COALESCE(secret,'') FROM subscriptions
        WHERE store_id=$1 AND (events ? $2 OR events ? '*')`, storeID, eventType)
}

func (p *Postgres) querySubscriptions(ctx context.Context, q string, args ...any) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.StoreID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(events, &s.Events)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Webhook deliveries
func (p *Postgres) EnqueueWebhook(ctx context.Context, storeID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, store_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now(),$8)
        ON CONFLICT (store_id, event_type, url, dedup_key) DO NOTHING`, id, storeID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, store_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.StoreID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(1 * time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$1, next_attempt_at=$2, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$3`,
			nullIfEmpty(lastError), *nextAttemptAt, id, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	_, err = tx.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
	if err != nil {
		return err
	}
	// move to DLQ
	_, err = tx.ExecContext(ctx, `INSERT INTO webhook_dlq (id, store_id, delivery_id, event_type, url, secret, payload, attempts, last_error)
        SELECT gen_random_uuid(), store_id, id, event_type, url, secret, payload, attempts, $2 FROM webhook_deliveries WHERE id=$1`, id, nullIfEmpty(lastError))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func computeDedupKey(payload []byte) string {
	// try to parse JSON and use id
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
