package middleware

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"tsu-tactics/internal/pkg/i18n"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/metrics"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/security"
	"tsu-tactics/internal/pkg/trace"
)

// Config 中间件配置
type Config struct {
	Logger     log.Logger
	RespWriter response.Writer
	// BodyLimit 请求体上限，例如 "1M"
	BodyLimit string
	// Development 打开详细访问日志，同时不下发 HSTS
	Development bool
	// CORSOrigins 为空时允许任意来源（不带凭证）
	CORSOrigins []string
}

// SetupGlobal 注册所有路由共用的中间件，顺序即执行顺序
func SetupGlobal(e *echo.Echo, cfg Config) {
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "1M"
	}
	logCfg, hsts := DefaultLoggingConfig(), 31536000
	if cfg.Development {
		logCfg, hsts = DevelopmentLoggingConfig(), 0
	}

	e.HTTPErrorHandler = HTTPErrorHandler(cfg.RespWriter)

	e.Use(trace.Middleware())
	e.Use(i18n.Middleware())
	e.Use(RecoveryMiddleware(cfg.RespWriter, cfg.Logger))
	e.Use(LoggingMiddlewareWithConfig(cfg.Logger, logCfg))
	e.Use(metrics.Middleware())
	e.Use(security.Middlewares(security.Options{AllowOrigins: cfg.CORSOrigins, HSTSMaxAge: hsts})...)
	e.Use(echomiddleware.BodyLimit(cfg.BodyLimit))
	e.Use(ErrorMiddleware(cfg.RespWriter, cfg.Logger))
}
