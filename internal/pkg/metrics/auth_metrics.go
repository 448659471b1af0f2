package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthMetrics Bearer token 解析与缓存指标
type AuthMetrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec
	Resolutions    *prometheus.CounterVec
}

// DefaultAuthMetrics 默认的认证指标实例
var DefaultAuthMetrics *AuthMetrics

func init() {
	DefaultAuthMetrics = NewAuthMetricsWithRegistry("tsu", GetRegisterer())
}

// NewAuthMetricsWithRegistry 创建认证指标收集器（使用自定义注册表）
func NewAuthMetricsWithRegistry(namespace string, registerer prometheus.Registerer) *AuthMetrics {
	factory := promauto.With(registerer)

	return &AuthMetrics{
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "token_cache_hits_total",
				Help:      "Total number of bearer token cache hits",
			},
			[]string{"service"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "token_cache_misses_total",
				Help:      "Total number of bearer token cache misses",
			},
			[]string{"service"},
		),
		CacheEvictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "token_cache_evictions_total",
				Help:      "Total number of bearer token cache evictions by reason",
			},
			[]string{"service", "reason"},
		),
		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "token_resolutions_total",
				Help:      "Total number of upstream token resolutions by result (success/invalid/error)",
			},
			[]string{"service", "result"},
		),
	}
}

// IncCacheHit 缓存命中
func (m *AuthMetrics) IncCacheHit(service string) {
	m.CacheHits.WithLabelValues(normalizeServiceName(service)).Inc()
}

// IncCacheMiss 缓存未命中
func (m *AuthMetrics) IncCacheMiss(service string) {
	m.CacheMisses.WithLabelValues(normalizeServiceName(service)).Inc()
}

// IncCacheEvicted 缓存剔除
func (m *AuthMetrics) IncCacheEvicted(service, reason string) {
	m.CacheEvictions.WithLabelValues(normalizeServiceName(service), reason).Inc()
}

// IncResolution 记录一次上游解析结果
func (m *AuthMetrics) IncResolution(service, result string) {
	m.Resolutions.WithLabelValues(normalizeServiceName(service), result).Inc()
}
