package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withServiceName(t *testing.T, name string) {
	t.Helper()
	prev := GetServiceName()
	SetServiceName(name)
	t.Cleanup(func() { SetServiceName(prev) })
}

func withHTTPMetrics(t *testing.T) *HTTPMetrics {
	t.Helper()
	m := NewHTTPMetricsWithRegistry("test", prometheus.NewRegistry())
	prev := DefaultHTTPMetrics
	DefaultHTTPMetrics = m
	t.Cleanup(func() { DefaultHTTPMetrics = prev })
	return m
}

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	withServiceName(t, "combat")
	m := withHTTPMetrics(t)

	e := echo.New()
	e.Use(Middleware())
	e.POST("/sessions/:session_id/tick", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "1"})
	})
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "第一个会话", method: http.MethodPost, path: "/sessions/s-1/tick"},
		{name: "第二个会话", method: http.MethodPost, path: "/sessions/s-2/tick"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("combat", "/sessions/:session_id/tick", http.MethodPost, "200"))
	assert.Equal(t, float64(2), got, "不同会话 ID 应聚合到同一个路由模板")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal), "健康检查不应计入指标")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.RequestsInProgress.WithLabelValues("combat")))
}

func TestMiddleware_RecordsErrorStatus(t *testing.T) {
	withServiceName(t, "combat")
	m := withHTTPMetrics(t)

	e := echo.New()
	e.Use(Middleware())
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "nope")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("combat", "/boom", http.MethodGet, "418")))
}

func TestCombatMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCombatMetricsWithRegistry("test", reg)

	m.IncTurn("combat", "npc", false)
	m.IncTurn("combat", "npc", true)
	m.IncSkillCast("combat", true)
	m.IncSkillCast("combat", false)
	m.ObserveDamage("combat", 12, true)
	m.IncEnded("combat", "victory")
	m.IncIdempotency("combat", "replayed")
	m.IncRateLimited("combat", "")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "NPC 行动回合", got: testutil.ToFloat64(m.TurnsResolved.WithLabelValues("combat", "npc", "action")), want: 1},
		{name: "NPC 跳过回合", got: testutil.ToFloat64(m.TurnsResolved.WithLabelValues("combat", "npc", "skipped")), want: 1},
		{name: "施放被拒绝", got: testutil.ToFloat64(m.SkillCasts.WithLabelValues("combat", "rejected")), want: 1},
		{name: "胜利结算", got: testutil.ToFloat64(m.CombatsEnded.WithLabelValues("combat", "victory")), want: 1},
		{name: "幂等重放", got: testutil.ToFloat64(m.IdempotentReplay.WithLabelValues("combat", "replayed")), want: 1},
		{name: "空路由记为 unknown", got: testutil.ToFloat64(m.RateLimited.WithLabelValues("combat", "unknown")), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	require.Equal(t, 1, testutil.CollectAndCount(m.DamageDealt))
}

func TestServiceNameFallback(t *testing.T) {
	withServiceName(t, "")
	assert.Equal(t, "unknown", GetServiceName())
	assert.Equal(t, "explicit", normalizeServiceName("explicit"))
}
