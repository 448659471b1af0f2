package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CombatMetrics 战斗引擎业务指标
type CombatMetrics struct {
	TurnsResolved    *prometheus.CounterVec
	SkillCasts       *prometheus.CounterVec
	DamageDealt      *prometheus.HistogramVec
	CombatsStarted   *prometheus.CounterVec
	CombatsEnded     *prometheus.CounterVec
	ActiveCombats    *prometheus.GaugeVec
	IdempotentReplay *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
}

// DefaultCombatMetrics 默认的战斗指标实例
var DefaultCombatMetrics *CombatMetrics

// DamageBuckets 单次伤害数值分布
var DamageBuckets = []float64{1, 5, 10, 20, 40, 80, 160, 320}

func init() {
	DefaultCombatMetrics = NewCombatMetricsWithRegistry("tsu", GetRegisterer())
}

// NewCombatMetricsWithRegistry 创建战斗指标收集器（使用自定义注册表）
func NewCombatMetricsWithRegistry(namespace string, registerer prometheus.Registerer) *CombatMetrics {
	factory := promauto.With(registerer)

	return &CombatMetrics{
		TurnsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "turns_resolved_total",
				Help:      "Total number of resolved turns by actor kind (player/npc/summon) and mode (action/skipped)",
			},
			[]string{"service", "actor_kind", "mode"},
		),
		SkillCasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "skill_casts_total",
				Help:      "Total number of skill casts by result (success/rejected)",
			},
			[]string{"service", "result"},
		),
		DamageDealt: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "damage_dealt",
				Help:      "Distribution of final damage per hit",
				Buckets:   DamageBuckets,
			},
			[]string{"service", "crit"},
		),
		CombatsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "sessions_started_total",
				Help:      "Total number of combat sessions started",
			},
			[]string{"service"},
		),
		CombatsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "sessions_ended_total",
				Help:      "Total number of combat sessions ended by outcome (victory/defeat/abandoned)",
			},
			[]string{"service", "outcome"},
		),
		ActiveCombats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "sessions_active",
				Help:      "Current number of active combat sessions observed by the archive job",
			},
			[]string{"service"},
		),
		IdempotentReplay: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "idempotency",
				Name:      "requests_total",
				Help:      "Idempotency key handling by result (stored/replayed/in_progress/released)",
			},
			[]string{"service", "result"},
		),
		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ratelimit",
				Name:      "rejected_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
			[]string{"service", "route"},
		),
	}
}

// IncTurn 记录一次回合结算
func (m *CombatMetrics) IncTurn(service, actorKind string, skipped bool) {
	mode := "action"
	if skipped {
		mode = "skipped"
	}
	m.TurnsResolved.WithLabelValues(normalizeServiceName(service), actorKind, mode).Inc()
}

// IncSkillCast 记录一次技能施放结果
func (m *CombatMetrics) IncSkillCast(service string, success bool) {
	result := "success"
	if !success {
		result = "rejected"
	}
	m.SkillCasts.WithLabelValues(normalizeServiceName(service), result).Inc()
}

// ObserveDamage 记录单次伤害
func (m *CombatMetrics) ObserveDamage(service string, amount int, crit bool) {
	label := "false"
	if crit {
		label = "true"
	}
	m.DamageDealt.WithLabelValues(normalizeServiceName(service), label).Observe(float64(amount))
}

// IncStarted 记录一场战斗开始
func (m *CombatMetrics) IncStarted(service string) {
	m.CombatsStarted.WithLabelValues(normalizeServiceName(service)).Inc()
}

// IncEnded 记录一场战斗结束
func (m *CombatMetrics) IncEnded(service, outcome string) {
	m.CombatsEnded.WithLabelValues(normalizeServiceName(service), outcome).Inc()
}

// SetActive 设置当前活跃战斗数
func (m *CombatMetrics) SetActive(service string, count int) {
	m.ActiveCombats.WithLabelValues(normalizeServiceName(service)).Set(float64(count))
}

// IncIdempotency 记录幂等处理结果
func (m *CombatMetrics) IncIdempotency(service, result string) {
	m.IdempotentReplay.WithLabelValues(normalizeServiceName(service), result).Inc()
}

// IncRateLimited 记录一次限流拒绝
func (m *CombatMetrics) IncRateLimited(service, route string) {
	m.RateLimited.WithLabelValues(normalizeServiceName(service), NormalizeRoute(route)).Inc()
}
