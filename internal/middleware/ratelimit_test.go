package middleware

import (
	"testing"
	"time"

	"github.com/castusphanik/lucky-backend-sub000/internal/config"
	"github.com/stretchr/testify/assert"
)

// Entries idle past the timeout must be evicted so the map does not grow
// with every client IP ever seen.
func TestLimiterPool_EvictsIdleEntries(t *testing.T) {
	pool := newLimiterPool(config.FeedConfig{RatePerSecond: 1, Burst: 1})
	start := time.Now()

	pool.get("10.0.0.1", start)
	pool.get("10.0.0.2", start)
	assert.Equal(t, 2, pool.size())

	// one client stays active, the other goes quiet
	later := start.Add(limiterIdleTimeout / 2)
	pool.get("10.0.0.1", later)

	sweep := start.Add(limiterIdleTimeout + time.Second)
	pool.get("10.0.0.3", sweep)

	assert.Equal(t, 2, pool.size(), "idle entry dropped, active one kept")
	pool.mu.Lock()
	_, gone := pool.limiters["10.0.0.2"]
	_, kept := pool.limiters["10.0.0.1"]
	pool.mu.Unlock()
	assert.False(t, gone)
	assert.True(t, kept)
}

// An evicted client gets a fresh bucket on its next request instead of
// inheriting someone else's state.
func TestLimiterPool_SameKeyReusesBucket(t *testing.T) {
	pool := newLimiterPool(config.FeedConfig{RatePerSecond: 1, Burst: 1})
	now := time.Now()

	assert.Same(t, pool.get("10.0.0.1", now), pool.get("10.0.0.1", now))
	assert.NotSame(t, pool.get("10.0.0.1", now), pool.get("10.0.0.2", now))
}
