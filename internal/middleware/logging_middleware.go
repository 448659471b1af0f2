package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"tsu-tactics/internal/pkg/ctxkey"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/trace"

	"github.com/labstack/echo/v4"
)

const redacted = "***REDACTED***"

// LoggingConfig 访问日志配置
type LoggingConfig struct {
	// SkipPrefixes 不记录的路径前缀（健康检查、指标、文档）
	SkipPrefixes []string

	// Verbose 额外记录 query、UA 和脱敏后的请求头
	Verbose bool

	// CaptureBody 记录写请求的请求体，最多 MaxBodyBytes 字节
	CaptureBody  bool
	MaxBodyBytes int64

	RedactHeaders []string
}

// DefaultLoggingConfig 默认访问日志配置
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		SkipPrefixes:  []string{"/health", "/metrics", "/swagger", "/favicon.ico"},
		MaxBodyBytes:  8 * 1024,
		RedactHeaders: []string{
			"Authorization",
			"Cookie",
			"X-Session-Token",
		},
	}
}

// DevelopmentLoggingConfig 开发环境打开详细日志和请求体
func DevelopmentLoggingConfig() *LoggingConfig {
	cfg := DefaultLoggingConfig()
	cfg.Verbose = true
	cfg.CaptureBody = true
	return cfg
}

// LoggingMiddleware 访问日志中间件
func LoggingMiddleware(logger log.Logger) echo.MiddlewareFunc {
	return LoggingMiddlewareWithConfig(logger, DefaultLoggingConfig())
}

// LoggingMiddlewareWithConfig 每个请求记录一条开始日志和一条完成日志
// 完成日志带上认证后才知道的 user_id / campaign_id
func LoggingMiddlewareWithConfig(logger log.Logger, cfg *LoggingConfig) echo.MiddlewareFunc {
	if cfg == nil {
		cfg = DefaultLoggingConfig()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if hasAnyPrefix(req.URL.Path, cfg.SkipPrefixes) {
				return next(c)
			}

			start := time.Now()
			ctx := req.Context()
			traceID := trace.GetTraceID(ctx)

			logger.InfoContext(ctx, "请求开始", requestFields(c, cfg, traceID)...)

			err := next(c)

			fields := completionFields(c, traceID, time.Since(start))
			if err != nil {
				fields = append(fields, log.Any("error", err))
			}
			status := c.Response().Status
			switch {
			case err != nil || status >= 500:
				logger.ErrorContext(ctx, "请求完成（服务器错误）", fields...)
			case status >= 400:
				logger.WarnContext(ctx, "请求完成（客户端错误）", fields...)
			default:
				logger.InfoContext(ctx, "请求完成", fields...)
			}

			return err
		}
	}
}

func requestFields(c echo.Context, cfg *LoggingConfig, traceID string) []any {
	req := c.Request()
	fields := []any{
		log.String("method", req.Method),
		log.String("path", req.URL.Path),
		log.String("client_ip", c.RealIP()),
		log.String("trace_id", traceID),
	}
	if key := req.Header.Get(HeaderIdempotencyKey); key != "" {
		fields = append(fields, log.String("idempotency_key", key))
	}
	if !cfg.Verbose {
		return fields
	}

	if req.URL.RawQuery != "" {
		fields = append(fields, log.String("query", req.URL.RawQuery))
	}
	fields = append(fields,
		log.String("user_agent", req.UserAgent()),
		log.Any("headers", redactHeaders(req.Header, cfg.RedactHeaders)),
	)
	if cfg.CaptureBody && req.Method != echo.GET {
		if body := peekBody(c, cfg.MaxBodyBytes); body != "" {
			fields = append(fields, log.String("request_body", body))
		}
	}
	return fields
}

func completionFields(c echo.Context, traceID string, elapsed time.Duration) []any {
	fields := []any{
		log.String("method", c.Request().Method),
		log.String("route", c.Path()),
		log.Int("status_code", c.Response().Status),
		log.Duration("duration_ms", elapsed.Milliseconds()),
		log.Int64("response_size", c.Response().Size),
		log.String("trace_id", traceID),
	}
	if sessionID := c.Param("session_id"); sessionID != "" {
		fields = append(fields, log.String("combat_session_id", sessionID))
	}

	// 认证和战役权限中间件更新过 request context，这里重新读取
	reqCtx := c.Request().Context()
	if userID := ctxkey.GetString(reqCtx, ctxkey.UserID); userID != "" {
		fields = append(fields, log.String("user_id", userID))
	}
	if campaignID := ctxkey.GetString(reqCtx, ctxkey.CampaignID); campaignID != "" {
		fields = append(fields, log.String("campaign_id", campaignID))
	}
	if c.Response().Header().Get(HeaderIdempotentReplayed) != "" {
		fields = append(fields, log.Bool("idempotent_replayed", true))
	}
	return fields
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func redactHeaders(headers map[string][]string, sensitive []string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) == 0 {
			continue
		}
		out[k] = v[0]
		for _, s := range sensitive {
			if strings.EqualFold(k, s) {
				out[k] = redacted
				break
			}
		}
	}
	return out
}

// peekBody 读取至多 max 字节用于日志，原始请求体完整保留给后续处理器
func peekBody(c echo.Context, max int64) string {
	req := c.Request()
	if req.Body == nil || max <= 0 {
		return ""
	}

	head, err := io.ReadAll(io.LimitReader(req.Body, max))
	if err != nil {
		return ""
	}
	req.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), req.Body), req.Body}

	if int64(len(head)) >= max {
		return string(head) + "... (truncated)"
	}
	return string(head)
}
