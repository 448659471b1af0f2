package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// CombatConfig 战斗服务配置，全部来自环境变量
type CombatConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    string `env:"COMBAT_HTTP_PORT" envDefault:"8074"`

	DatabaseURL    string        `env:"TSU_COMBAT_DATABASE_URL"`
	DBMaxOpenConns int           `env:"COMBAT_DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns int           `env:"COMBAT_DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnLifetime time.Duration `env:"COMBAT_DB_CONN_LIFETIME" envDefault:"5m"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// KratosPublicURL 为空时拒绝所有带 Bearer 的请求
	KratosPublicURL string        `env:"KRATOS_PUBLIC_URL" envDefault:"http://localhost:4433"`
	AuthCacheTTL    time.Duration `env:"COMBAT_AUTH_CACHE_TTL" envDefault:"1m"`

	// KetoReadURL 为空时战役成员校验走数据库
	KetoReadURL string `env:"KETO_READ_URL"`

	CORSAllowOrigins []string `env:"COMBAT_CORS_ORIGINS" envSeparator:","`

	RateLimitRequests int           `env:"COMBAT_RATE_LIMIT_REQUESTS" envDefault:"30"`
	RateLimitWindow   time.Duration `env:"COMBAT_RATE_LIMIT_WINDOW" envDefault:"10s"`
	IdempotencyTTL    time.Duration `env:"COMBAT_IDEMPOTENCY_TTL" envDefault:"24h"`
	IdempotencyLock   time.Duration `env:"COMBAT_IDEMPOTENCY_LOCK_TTL" envDefault:"30s"`

	ArchiveRetention time.Duration `env:"COMBAT_ARCHIVE_RETENTION" envDefault:"168h"`
	IdleTimeout      time.Duration `env:"COMBAT_IDLE_TIMEOUT" envDefault:"72h"`
	CronEnabled      bool          `env:"COMBAT_CRON_ENABLED" envDefault:"true"`
	NotifyEnabled    bool          `env:"COMBAT_NOTIFY_ENABLED" envDefault:"true"`
}

// LoadCombatConfig 解析环境变量并校验必填项
func LoadCombatConfig() (*CombatConfig, error) {
	var cfg CombatConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置的取值范围
func (c *CombatConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("TSU_COMBAT_DATABASE_URL not set")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit budget must be positive (requests=%d window=%s)", c.RateLimitRequests, c.RateLimitWindow)
	}
	if c.IdempotencyTTL < c.IdempotencyLock {
		return fmt.Errorf("COMBAT_IDEMPOTENCY_TTL must not be shorter than COMBAT_IDEMPOTENCY_LOCK_TTL")
	}
	return nil
}

// IsProduction 是否为生产环境
func (c *CombatConfig) IsProduction() bool {
	return c.Environment == "production"
}

// LogFields 返回可安全打印的配置摘要
func (c *CombatConfig) LogFields() map[string]any {
	return SanitizeConfigForLog(map[string]any{
		"environment":         c.Environment,
		"http_port":           c.HTTPPort,
		"database_url":        c.DatabaseURL,
		"redis_addr":          fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort),
		"redis_password":      c.RedisPassword,
		"kratos_public_url":   c.KratosPublicURL,
		"keto_read_url":       c.KetoReadURL,
		"rate_limit_requests": c.RateLimitRequests,
		"rate_limit_window":   c.RateLimitWindow.String(),
		"idempotency_ttl":     c.IdempotencyTTL.String(),
	})
}
