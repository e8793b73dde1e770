package store

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"
)

func TestComputeDedupKeyFromID(t *testing.T) {
	body := []byte(`{"id":"evt_123","type":"plan.completed"}`)
	got := computeDedupKey(body)
	if got != "evt_123" {
		t.Fatalf("want evt_123, got %s", got)
	}
}

func TestComputeDedupKeyFromHash(t *testing.T) {
	body := []byte(`{"notId":"x"}`)
	got := computeDedupKey(body)
	// hex-encoded first 8 bytes -> 16 hex chars
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	if again := computeDedupKey(body); again != got {
		t.Fatalf("hash not stable: %s vs %s", got, again)
	}
}

func TestSplitCursor(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	ts, id, ok := splitCursor(at.Format(time.RFC3339Nano) + "|plan-7")
	if !ok || id != "plan-7" || !ts.Equal(at) {
		t.Fatalf("got %v %q %v", ts, id, ok)
	}
	for _, bad := range []string{"", "plan-7", "yesterday|plan-7"} {
		if _, _, ok := splitCursor(bad); ok {
			t.Fatalf("cursor %q should not parse", bad)
		}
	}
}

func TestPostgresListPlansRejectsMalformedCursor(t *testing.T) {
	var p Postgres
	if _, _, err := p.ListPlans(context.Background(), "s1", "plan-7", 10); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty -> nil expected")
	}
	if v := nullIfEmpty("s"); v != "s" {
		t.Fatalf("non-empty passes through, got %v", v)
	}
}
