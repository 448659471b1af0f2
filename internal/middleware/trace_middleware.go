package middleware

import (
	"github.com/labstack/echo/v4"

	"tsu-tactics/internal/pkg/ctxkey"
)

// RequestContextMiddleware 把请求方法和战斗会话 ID 写入 request context，
// 日志 handler 和错误上下文从这里读取
func RequestContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := ctxkey.WithValue(c.Request().Context(), ctxkey.HTTPMethod, c.Request().Method)
			if sessionID := c.Param("session_id"); sessionID != "" {
				ctx = ctxkey.WithValue(ctx, ctxkey.CombatSessionID, sessionID)
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
