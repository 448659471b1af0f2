package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/ericlagergren/decimal"
)

// ReputationRepository 阵营声望
type ReputationRepository interface {
	// AddDelta 累加声望并返回新的分数
	AddDelta(ctx context.Context, execer boil.ContextExecutor, campaignID, factionID string, delta *decimal.Big) (*decimal.Big, error)
}
