package trace

import (
	"context"
	"net/http"
	"strings"

	"tsu-tactics/internal/pkg/ctxkey"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderTraceID 响应头中回写的追踪 ID
const HeaderTraceID = "X-Trace-Id"

// WithTraceID 在 context 中设置 trace ID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return ctxkey.WithValue(ctx, ctxkey.TraceID, traceID)
}

// GetTraceID 从 context 中获取 trace ID
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return ctxkey.GetString(ctx, ctxkey.TraceID)
}

// GenerateTraceID 生成新的 trace ID（32 位十六进制，与 W3C trace-id 长度一致）
func GenerateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ExtractFromHeader 从 HTTP 头部提取 trace ID
// 优先级: X-Trace-Id > X-Request-Id > Traceparent (W3C)，都没有时生成新的
func ExtractFromHeader(headers http.Header) string {
	if traceID := strings.TrimSpace(headers.Get(HeaderTraceID)); traceID != "" {
		return traceID
	}
	if requestID := strings.TrimSpace(headers.Get("X-Request-Id")); requestID != "" {
		return requestID
	}
	if traceID := parseTraceparent(headers.Get("Traceparent")); traceID != "" {
		return traceID
	}
	return GenerateTraceID()
}

// parseTraceparent 解析 "00-<trace-id>-<parent-id>-<flags>"
func parseTraceparent(traceparent string) string {
	parts := strings.Split(strings.TrimSpace(traceparent), "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return ""
	}
	return parts[1]
}

// Middleware 提取或生成 trace ID，写入 request context 并回写到响应头
// 必须是第一个中间件，后续日志和错误响应都依赖它
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			traceID := ExtractFromHeader(req.Header)
			c.SetRequest(req.WithContext(WithTraceID(req.Context(), traceID)))
			c.Response().Header().Set(HeaderTraceID, traceID)
			return next(c)
		}
	}
}
