package interfaces

import "context"

// CampaignRepository 战役仓储接口（只读，成员关系的兜底校验）
type CampaignRepository interface {
	// Exists 战役是否存在
	Exists(ctx context.Context, campaignID string) (bool, error)

	// IsOwnerOrMember 用户是否为战役所有者或成员
	IsOwnerOrMember(ctx context.Context, campaignID, userID string) (bool, error)
}
