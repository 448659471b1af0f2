package sessioncache

import (
	"context"
	"testing"
	"time"

	"tsu-tactics/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newTestCache(ttl time.Duration) (*Cache, *metrics.AuthMetrics, *fakeClock) {
	m := metrics.NewAuthMetricsWithRegistry("test", prometheus.NewRegistry())
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(ttl, m, nil)
	c.clock = clk.Now
	return c, m, clk
}

func TestCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c, m, _ := newTestCache(time.Minute)
	s := Session{SessionToken: "token-1", UserID: "u1", Username: "ranger"}
	c.Set(ctx, "combat", s)

	got, ok := c.Get(ctx, "combat", s.SessionToken)
	require.True(t, ok)
	require.Equal(t, s, got)
	require.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits.WithLabelValues("combat")))

	_, ok = c.Get(ctx, "combat", "")
	require.False(t, ok)
	require.Equal(t, float64(1), testutil.ToFloat64(m.CacheMisses.WithLabelValues("combat")))
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, m, clk := newTestCache(10 * time.Second)
	s := Session{SessionToken: "token-2", UserID: "u2"}
	c.Set(ctx, "combat", s)

	clk.now = clk.now.Add(11 * time.Second)
	_, ok := c.Get(ctx, "combat", s.SessionToken)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
	require.Equal(t, float64(1), testutil.ToFloat64(m.CacheEvictions.WithLabelValues("combat", "expired")))
}

func TestCacheRespectsSessionExpiry(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCache(time.Hour)
	s := Session{SessionToken: "token-4", UserID: "u4", ExpiresAt: clk.now.Add(time.Second)}
	c.Set(ctx, "combat", s)

	clk.now = clk.now.Add(2 * time.Second)
	_, ok := c.Get(ctx, "combat", s.SessionToken)
	require.False(t, ok, "会话过期时间早于缓存 TTL 时应以会话为准")
}

func TestCacheDelete(t *testing.T) {
	ctx := context.Background()
	c, m, _ := newTestCache(time.Second)
	s := Session{SessionToken: "token-3", UserID: "u3"}
	c.Set(ctx, "combat", s)
	c.Delete(ctx, "combat", s.SessionToken, "unauthorized")
	_, ok := c.Get(ctx, "combat", s.SessionToken)
	require.False(t, ok)
	require.Equal(t, float64(1), testutil.ToFloat64(m.CacheEvictions.WithLabelValues("combat", "unauthorized")))
}
