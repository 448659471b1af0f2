package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tsu-tactics/internal/pkg/idempotency"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/metrics"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/xerrors"
)

const (
	// HeaderIdempotencyKey 客户端提供的幂等键
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplayed 响应来自幂等缓存时为 "true"
	HeaderIdempotentReplayed = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

// IdempotencyConfig 幂等中间件配置
type IdempotencyConfig struct {
	Store   idempotency.Store
	TTL     time.Duration // 已完成响应的保留时间
	LockTTL time.Duration // pending 标记的过期时间
}

// IdempotencyMiddleware 带 Idempotency-Key 的写请求只执行一次
// 必须挂在认证之后，存储键按用户隔离
func IdempotencyMiddleware(cfg IdempotencyConfig, respWriter response.Writer, logger log.Logger) echo.MiddlewareFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	service := metrics.GetServiceName()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idemKey := c.Request().Header.Get(HeaderIdempotencyKey)
			if idemKey == "" || c.Request().Method == http.MethodGet {
				return next(c)
			}
			if len(idemKey) > maxIdempotencyKeyLength {
				return response.EchoError(c, respWriter,
					xerrors.NewValidationError(HeaderIdempotencyKey, "幂等键过长"))
			}

			ctx := c.Request().Context()
			userID, err := GetCurrentUserID(c)
			if err != nil {
				return response.EchoError(c, respWriter, err)
			}
			key := idempotency.Key(userID, c.Request().Method, c.Path(), idemKey)

			stored, err := cfg.Store.Reserve(ctx, key, cfg.LockTTL)
			switch {
			case errors.Is(err, idempotency.ErrInProgress):
				metrics.DefaultCombatMetrics.IncIdempotency(service, "in_progress")
				return response.EchoError(c, respWriter, xerrors.FromCode(xerrors.CodeRequestInProgress))
			case err != nil:
				// 无法保证只执行一次时拒绝请求
				metrics.DefaultCombatMetrics.IncIdempotency(service, "store_error")
				return response.EchoError(c, respWriter, xerrors.NewWithError(xerrors.CodeCacheError, "幂等存储不可用", err))
			case stored != nil:
				metrics.DefaultCombatMetrics.IncIdempotency(service, "replayed")
				logger.InfoContext(ctx, "重放幂等响应", log.Int("status", stored.Status))
				c.Response().Header().Set(HeaderIdempotentReplayed, "true")
				contentType := stored.ContentType
				if contentType == "" {
					contentType = echo.MIMEApplicationJSON
				}
				return c.Blob(stored.Status, contentType, stored.Body)
			}

			capture := newResponseWriter(c.Response().Writer)
			c.Response().Writer = capture

			handlerErr := next(c)
			if handlerErr != nil {
				// 错误响应由外层中间件写出，不缓存
				if releaseErr := cfg.Store.Release(ctx, key); releaseErr != nil {
					logger.WarnContext(ctx, "释放幂等键失败", log.Any("error", releaseErr))
				}
				return handlerErr
			}

			if capture.statusCode >= http.StatusInternalServerError {
				if releaseErr := cfg.Store.Release(ctx, key); releaseErr != nil {
					logger.WarnContext(ctx, "释放幂等键失败", log.Any("error", releaseErr))
				}
				metrics.DefaultCombatMetrics.IncIdempotency(service, "released")
				return nil
			}

			rec := idempotency.Record{
				Status:      capture.statusCode,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        capture.body.Bytes(),
			}
			if err := cfg.Store.Complete(ctx, key, rec, cfg.TTL); err != nil {
				logger.WarnContext(ctx, "写入幂等响应失败", log.Any("error", err))
			}
			metrics.DefaultCombatMetrics.IncIdempotency(service, "stored")
			return nil
		}
	}
}
