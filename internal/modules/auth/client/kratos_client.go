package client

import (
	"context"
	"net/http"
	"time"

	ory "github.com/ory/kratos-client-go"

	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/sessioncache"
	"tsu-tactics/internal/pkg/xerrors"
)

// KratosClient 只使用 Kratos Public API 校验会话 token
type KratosClient struct {
	publicURL    string
	publicClient *ory.APIClient
}

// NewKratosClient 创建 Kratos 客户端
func NewKratosClient(publicURL string) *KratosClient {
	publicConfig := ory.NewConfiguration()
	publicConfig.Servers = []ory.ServerConfiguration{
		{
			URL: publicURL,
		},
	}
	publicConfig.HTTPClient = &http.Client{Timeout: 5 * time.Second}

	return &KratosClient{
		publicURL:    publicURL,
		publicClient: ory.NewAPIClient(publicConfig),
	}
}

// ResolveSession 把 Bearer token 解析为用户
// token 无效或过期返回 CodeInvalidToken，Kratos 不可用返回 CodeKratosError
func (c *KratosClient) ResolveSession(ctx context.Context, sessionToken string) (sessioncache.Session, error) {
	if c.publicURL == "" {
		return sessioncache.Session{}, xerrors.NewKratosError("ToSession", nil).
			WithMetadata("reason", "public url not configured")
	}

	session, resp, err := c.publicClient.FrontendAPI.ToSession(ctx).
		XSessionToken(sessionToken).
		Execute()
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return sessioncache.Session{}, xerrors.FromCode(xerrors.CodeInvalidToken).
			WithService("kratos_client", "ResolveSession")
	}
	if err != nil {
		log.ErrorContext(ctx, "验证 Session 失败", log.Any("error", err))
		return sessioncache.Session{}, xerrors.NewKratosError("ToSession", err)
	}
	if resp != nil && resp.StatusCode >= 400 {
		return sessioncache.Session{}, xerrors.NewKratosError("ToSession", nil).
			WithMetadata("status_code", resp.StatusCode)
	}
	if session == nil || session.Identity == nil || (session.Active != nil && !*session.Active) {
		return sessioncache.Session{}, xerrors.FromCode(xerrors.CodeSessionExpired).
			WithService("kratos_client", "ResolveSession")
	}

	resolved := sessioncache.Session{
		SessionToken: sessionToken,
		UserID:       session.Identity.Id,
	}
	if session.ExpiresAt != nil {
		resolved.ExpiresAt = *session.ExpiresAt
	}
	if traits, ok := session.Identity.Traits.(map[string]interface{}); ok {
		if username, ok := traits["username"].(string); ok {
			resolved.Username = username
		}
	}
	return resolved, nil
}
