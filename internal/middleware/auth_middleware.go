package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"tsu-tactics/internal/pkg/ctxkey"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/metrics"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/sessioncache"
	"tsu-tactics/internal/pkg/xerrors"
)

const currentUserKey = "current_user"

// CurrentUser 当前请求的用户信息（由 Bearer token 解析）
type CurrentUser struct {
	UserID       string
	Username     string
	SessionToken string
}

// SessionResolver 把 token 解析为用户，由 Kratos 客户端实现
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionToken string) (sessioncache.Session, error)
}

// AuthMiddleware 认证中间件 - 校验 Authorization: Bearer <token>
// 解析结果按 token 缓存，缓存未命中时回源 Kratos
func AuthMiddleware(resolver SessionResolver, cache *sessioncache.Cache, respWriter response.Writer, logger log.Logger) echo.MiddlewareFunc {
	const service = "combat"

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				logger.WarnContext(ctx, "认证失败: 缺少 Bearer token")
				metrics.DefaultAuthMetrics.IncResolution(service, "missing")
				return response.EchoError(c, respWriter,
					xerrors.New(xerrors.CodeAuthenticationFailed, "未授权访问: 缺少用户身份信息").
						WithService("middleware", "auth"))
			}

			var (
				session sessioncache.Session
				ok      bool
			)
			if cache != nil {
				session, ok = cache.Get(ctx, service, token)
			}
			if !ok {
				resolved, err := resolver.ResolveSession(ctx, token)
				if err != nil {
					metrics.DefaultAuthMetrics.IncResolution(service, "rejected")
					return response.EchoError(c, respWriter, err)
				}
				session = resolved
				session.SessionToken = token
				if cache != nil {
					cache.Set(ctx, service, session)
				}
				metrics.DefaultAuthMetrics.IncResolution(service, "resolved")
			}

			currentUser := &CurrentUser{
				UserID:       session.UserID,
				Username:     session.Username,
				SessionToken: token,
			}

			ctx = ctxkey.WithValue(ctx, ctxkey.UserID, session.UserID)
			c.SetRequest(c.Request().WithContext(ctx))
			SetCurrentUser(c, currentUser)

			logger.DebugContext(ctx, "用户认证成功", log.String("user_id", session.UserID), log.Bool("cache_hit", ok))

			return next(c)
		}
	}
}

// bearerToken 提取 "Bearer <token>"，大小写不敏感
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// SetCurrentUser 写入当前用户
func SetCurrentUser(c echo.Context, user *CurrentUser) {
	c.Set(currentUserKey, user)
	c.Set(string(ctxkey.UserID), user.UserID)
}

// GetCurrentUser 从 Echo Context 中获取当前用户
func GetCurrentUser(c echo.Context) (*CurrentUser, error) {
	user := c.Get(currentUserKey)
	if user == nil {
		return nil, xerrors.New(
			xerrors.CodeAuthenticationFailed,
			"未找到用户信息",
		)
	}

	currentUser, ok := user.(*CurrentUser)
	if !ok {
		return nil, xerrors.New(
			xerrors.CodeInternalError,
			"用户信息类型错误",
		)
	}

	return currentUser, nil
}

// GetCurrentUserID 从 Echo Context 中获取当前用户 ID（快捷方法）
func GetCurrentUserID(c echo.Context) (string, error) {
	user, err := GetCurrentUser(c)
	if err != nil {
		return "", err
	}
	return user.UserID, nil
}
