package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/metrics"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/xerrors"
)

// WindowCounter 固定窗口计数，由 internal/pkg/redis.Client 实现
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	RemainingTTL(ctx context.Context, key string) (time.Duration, error)
}

// RedisRateLimiterStore 实现 echo 的 RateLimiterStore，多实例共享计数
// identifier 即完整的计数键 ratelimit:<route>:<client>
type RedisRateLimiterStore struct {
	counter WindowCounter
	limit   int64
	window  time.Duration
	timeout time.Duration
	logger  log.Logger
}

// NewRedisRateLimiterStore 创建限流存储：每个 window 内最多 limit 次
func NewRedisRateLimiterStore(counter WindowCounter, limit int, window time.Duration, logger log.Logger) *RedisRateLimiterStore {
	return &RedisRateLimiterStore{
		counter: counter,
		limit:   int64(limit),
		window:  window,
		timeout: 200 * time.Millisecond,
		logger:  logger,
	}
}

// Allow Redis 不可用时放行
func (s *RedisRateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	count, _, err := s.counter.IncrWindow(ctx, identifier, s.window)
	if err != nil {
		s.logger.Warn("限流计数失败，放行请求", log.String("key", identifier), log.Any("error", err))
		return true, nil
	}
	return count <= s.limit, nil
}

// RetryAfter 当前窗口剩余时间，向上取整到秒，至少 1 秒
func (s *RedisRateLimiterStore) RetryAfter(ctx context.Context, identifier string) int {
	ttl, err := s.counter.RemainingTTL(ctx, identifier)
	if err != nil || ttl <= 0 {
		ttl = s.window
	}
	return int(math.Max(1, math.Ceil(ttl.Seconds())))
}

// RateLimitKey 计数键：路由模板 + 用户（未认证时为 IP）
func RateLimitKey(c echo.Context) string {
	client := c.RealIP()
	if userID, err := GetCurrentUserID(c); err == nil && userID != "" {
		client = "user:" + userID
	}
	return fmt.Sprintf("ratelimit:%s:%s", c.Path(), client)
}

// RateLimitMiddleware 限流中间件，超限返回 429 和 Retry-After
func RateLimitMiddleware(store *RedisRateLimiterStore, respWriter response.Writer) echo.MiddlewareFunc {
	service := metrics.GetServiceName()

	config := middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return RateLimitKey(c), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return response.EchoError(c, respWriter,
				xerrors.NewWithError(xerrors.CodeInternalError, "限流标识提取失败", err))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			retryAfter := store.RetryAfter(c.Request().Context(), identifier)
			metrics.DefaultCombatMetrics.IncRateLimited(service, metrics.NormalizeRoute(c.Path()))

			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			appErr := xerrors.FromCode(xerrors.CodeRateLimitExceeded).
				WithService("echo-middleware", "rate_limiter").
				WithMetadata("retry_after_seconds", retryAfter).
				WithMetadata("client_ip", c.RealIP())
			return respWriter.WriteError(c.Request().Context(), c.Response(), appErr)
		},
	}

	return middleware.RateLimiterWithConfig(config)
}

var _ middleware.RateLimiterStore = (*RedisRateLimiterStore)(nil)
