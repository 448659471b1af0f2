package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
)

// ActionEventRepository 战斗事件仓储接口，只追加
type ActionEventRepository interface {
	// Append 批量追加，sequence 冲突说明有并发写入
	Append(ctx context.Context, execer boil.ContextExecutor, events []combat.Event) error

	// LastSequence 会话内最大的 sequence，没有事件时为 0
	LastSequence(ctx context.Context, execer boil.ContextExecutor, sessionID string) (int64, error)

	// ListAfter 按 sequence 升序分页
	ListAfter(ctx context.Context, sessionID string, afterSequence int64, limit int) ([]combat.Event, error)
}
