package metrics

import (
	"net/http"
	"time"

	"tsu-tactics/internal/pkg/ctxkey"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Middleware Echo 中间件 - 记录 HTTP 方法到 context，并按路由模板记录请求指标
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := ctxkey.WithValue(c.Request().Context(), ctxkey.HTTPMethod, c.Request().Method)
			c.SetRequest(c.Request().WithContext(ctx))

			if IsHealthCheckEndpoint(c.Request().URL.Path) {
				return next(c)
			}

			m := DefaultHTTPMetrics
			service := GetServiceName()
			m.IncInProgress(service)
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			m.DecInProgress(service)
			m.RecordRequest(service, c.Path(), c.Request().Method, status, time.Since(start))
			return err
		}
	}
}

// Handler 返回 Prometheus metrics HTTP 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoHandler Echo 框架的 Prometheus metrics 处理器
func EchoHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
