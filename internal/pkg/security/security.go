// Package security 跨域和安全响应头
package security

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Options 安全中间件选项
type Options struct {
	// AllowOrigins 为空或包含 "*" 时不允许携带凭证
	AllowOrigins []string
	// HSTSMaxAge 为 0 时不下发 Strict-Transport-Security（开发环境走 http）
	HSTSMaxAge int
}

// 战斗接口只返回 JSON，/swagger 页面需要内联脚本和样式
const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'"

// Middlewares 返回 CORS 和安全头两个中间件，按顺序注册
func Middlewares(opts Options) []echo.MiddlewareFunc {
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	cors := middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-Trace-Id",
			"X-Request-Id",
			"Idempotency-Key",
		},
		ExposeHeaders: []string{
			"X-Trace-Id",
			"Retry-After",
			"Idempotent-Replayed",
		},
		AllowCredentials: !allowsAny(origins),
	})

	secure := middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            opts.HSTSMaxAge,
		ContentSecurityPolicy: contentSecurityPolicy,
	})

	return []echo.MiddlewareFunc{cors, secure}
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
