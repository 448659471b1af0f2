package sessioncache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/metrics"
)

// Session 描述一个已通过 Kratos 校验的 Bearer token。
type Session struct {
	SessionToken string
	UserID       string
	Username     string
	// ExpiresAt 为 Kratos 会话本身的过期时间，零值表示未知
	ExpiresAt time.Time
}

type entry struct {
	value     Session
	expiresAt time.Time
}

// Cache 线程安全的 token 缓存，避免每个战斗请求都回源 Kratos。
type Cache struct {
	ttl     time.Duration
	metrics *metrics.AuthMetrics
	logger  log.Logger
	clock   func() time.Time
	mu      sync.RWMutex
	store   map[string]*entry
}

// New 返回默认 Cache 实例。
func New(ttl time.Duration, m *metrics.AuthMetrics, logger log.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if m == nil {
		m = metrics.DefaultAuthMetrics
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Cache{
		ttl:     ttl,
		metrics: m,
		logger:  logger.With("component", "token_cache"),
		clock:   time.Now,
		store:   make(map[string]*entry),
	}
}

// Get 返回缓存的 Session。命中时不刷新 TTL，token 在上游被吊销后最多延迟一个 TTL 生效。
func (c *Cache) Get(ctx context.Context, service, token string) (Session, bool) {
	service = NormalizeService(service)
	if token == "" {
		c.metrics.IncCacheMiss(service)
		return Session{}, false
	}

	c.mu.RLock()
	value, ok := c.store[token]
	c.mu.RUnlock()

	if !ok {
		c.metrics.IncCacheMiss(service)
		c.logger.DebugContext(ctx, "token cache miss",
			log.String("service", service),
			log.String("token_hash", hashToken(token)))
		return Session{}, false
	}

	if c.clock().After(value.expiresAt) {
		c.metrics.IncCacheEvicted(service, "expired")
		c.logger.DebugContext(ctx, "token cache expired",
			log.String("service", service),
			log.String("token_hash", hashToken(token)))
		c.mu.Lock()
		delete(c.store, token)
		c.mu.Unlock()
		c.metrics.IncCacheMiss(service)
		return Session{}, false
	}

	c.metrics.IncCacheHit(service)
	return value.value, true
}

// Set 写入 Session，过期时间取缓存 TTL 与会话过期时间中较早者。
func (c *Cache) Set(ctx context.Context, service string, session Session) {
	service = NormalizeService(service)
	if session.SessionToken == "" {
		return
	}
	expiresAt := c.clock().Add(c.ttl)
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(expiresAt) {
		expiresAt = session.ExpiresAt
	}
	c.mu.Lock()
	c.store[session.SessionToken] = &entry{value: session, expiresAt: expiresAt}
	c.mu.Unlock()
	c.logger.DebugContext(ctx, "token cache updated",
		log.String("service", service),
		log.String("token_hash", hashToken(session.SessionToken)))
}

// Delete 主动剔除缓存（例如上游返回 401）。
func (c *Cache) Delete(ctx context.Context, service, token, reason string) {
	service = NormalizeService(service)
	if token == "" {
		return
	}
	c.mu.Lock()
	_, ok := c.store[token]
	delete(c.store, token)
	c.mu.Unlock()
	if ok {
		c.metrics.IncCacheEvicted(service, reason)
		c.logger.InfoContext(ctx, "token cache evicted",
			log.String("service", service),
			log.String("reason", reason),
			log.String("token_hash", hashToken(token)))
	}
}

// Len 当前缓存条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// NormalizeService 确保 service label 不为空。
func NormalizeService(service string) string {
	service = strings.TrimSpace(service)
	if service == "" {
		return "unknown"
	}
	return service
}

func hashToken(token string) string {
	if token == "" {
		return ""
	}
	h := sha1.Sum([]byte(token))
	return hex.EncodeToString(h[:])[:12]
}
