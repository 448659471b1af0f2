package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
)

// BoardRepository 地图仓储接口
type BoardRepository interface {
	// Get 查询地图及其障碍格子，必须属于该战役
	Get(ctx context.Context, execer boil.ContextExecutor, campaignID, boardID string) (*combat.Board, error)

	// ActiveBoardID 战役当前激活的地图，没有时返回空字符串
	ActiveBoardID(ctx context.Context, execer boil.ContextExecutor, campaignID string) (string, error)

	// Activate 切换战役当前激活的地图
	Activate(ctx context.Context, execer boil.ContextExecutor, campaignID, boardID string) error
}
