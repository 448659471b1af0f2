package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/singleflight"

	"tsu-tactics/internal/pkg/ctxkey"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/xerrors"
)

// CampaignAccessChecker 判断用户是否为战役所有者或成员
type CampaignAccessChecker interface {
	CheckCampaignAccess(ctx context.Context, campaignID, userID string) (bool, error)
}

// CampaignMembership 数据库兜底查询
type CampaignMembership interface {
	Exists(ctx context.Context, campaignID string) (bool, error)
	IsOwnerOrMember(ctx context.Context, campaignID, userID string) (bool, error)
}

// CampaignAccessMiddleware 战役权限中间件
type CampaignAccessMiddleware struct {
	keto       CampaignAccessChecker // 可为 nil
	membership CampaignMembership
	respWriter response.Writer
	logger     log.Logger
	group      singleflight.Group
}

// NewCampaignAccessMiddleware 创建战役权限中间件
func NewCampaignAccessMiddleware(keto CampaignAccessChecker, membership CampaignMembership, respWriter response.Writer, logger log.Logger) *CampaignAccessMiddleware {
	return &CampaignAccessMiddleware{
		keto:       keto,
		membership: membership,
		respWriter: respWriter,
		logger:     logger,
	}
}

type accessResult struct {
	exists  bool
	allowed bool
}

// RequireCampaignMember 要求当前用户是 :campaign_id 的所有者或成员
func (m *CampaignAccessMiddleware) RequireCampaignMember(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.membership == nil {
			return response.EchoError(c, m.respWriter, xerrors.New(xerrors.CodeInternalError, "战役权限服务未初始化"))
		}

		campaignID := c.Param("campaign_id")
		if campaignID == "" {
			return response.EchoError(c, m.respWriter, xerrors.NewValidationError("campaign_id", "战役ID不能为空"))
		}

		userID, err := GetCurrentUserID(c)
		if err != nil {
			return response.EchoError(c, m.respWriter, err)
		}

		ctx := c.Request().Context()
		// 同一用户对同一战役的并发请求只查一次
		v, err, _ := m.group.Do(campaignID+":"+userID, func() (interface{}, error) {
			checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
			defer cancel()
			return m.check(checkCtx, campaignID, userID)
		})
		if err != nil {
			return response.EchoError(c, m.respWriter,
				xerrors.Wrap(err, xerrors.CodeInternalError, "权限检查失败"))
		}

		result := v.(accessResult)
		if !result.exists {
			return response.EchoError(c, m.respWriter,
				xerrors.FromCode(xerrors.CodeCampaignNotFound).WithMetadata("campaign_id", campaignID))
		}
		if !result.allowed {
			return response.EchoError(c, m.respWriter,
				xerrors.FromCode(xerrors.CodeNotCampaignMember).
					WithUser(userID).
					WithMetadata("campaign_id", campaignID))
		}

		ctx = ctxkey.WithValue(ctx, ctxkey.CampaignID, campaignID)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Set(string(ctxkey.CampaignID), campaignID)
		return next(c)
	}
}

// check 先问 Keto，Keto 未配置、出错或拒绝时再查数据库
func (m *CampaignAccessMiddleware) check(ctx context.Context, campaignID, userID string) (accessResult, error) {
	exists, err := m.membership.Exists(ctx, campaignID)
	if err != nil {
		return accessResult{}, err
	}
	if !exists {
		return accessResult{}, nil
	}

	if m.keto != nil {
		allowed, err := m.keto.CheckCampaignAccess(ctx, campaignID, userID)
		if err == nil && allowed {
			return accessResult{exists: true, allowed: true}, nil
		}
		if err != nil {
			m.logger.WarnContext(ctx, "Keto 检查失败，改用数据库校验",
				log.String("campaign_id", campaignID),
				log.Any("error", err))
		}
	}

	allowed, err := m.membership.IsOwnerOrMember(ctx, campaignID, userID)
	if err != nil {
		return accessResult{}, err
	}
	return accessResult{exists: true, allowed: allowed}, nil
}
