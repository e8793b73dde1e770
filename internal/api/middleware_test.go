package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 1)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	require.True(t, l.allow("10.0.0.1"))
	require.False(t, l.allow("10.0.0.1"))
	require.True(t, l.allow("10.0.0.2"))
	require.Equal(t, 2, l.size())

	// 10.0.0.2 stays active while 10.0.0.1 goes quiet.
	now = now.Add(l.ttl / 2)
	require.True(t, l.allow("10.0.0.2"))
	now = now.Add(l.ttl / 2)
	require.True(t, l.allow("10.0.0.2"))
	require.Equal(t, 1, l.size())

	// A returning client starts with a full bucket.
	require.True(t, l.allow("10.0.0.1"))
	require.Equal(t, 2, l.size())
}

func TestClientLimiterDisabled(t *testing.T) {
	require.Nil(t, newClientLimiter(0, 10))
}
