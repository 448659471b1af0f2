package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"
)

// NarrativeMemory 战役叙事记忆中的一条记录
type NarrativeMemory struct {
	CampaignID string
	SessionID  string
	Kind       string
	Summary    string
	Payload    map[string]any
}

// NarrativeMemoryRepository 叙事记忆仓储接口
type NarrativeMemoryRepository interface {
	Append(ctx context.Context, execer boil.ContextExecutor, memory *NarrativeMemory) error
}
