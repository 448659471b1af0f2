package impl

import (
	"context"
	"database/sql"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/ericlagergren/decimal"
	"github.com/friendsofgo/errors"

	"tsu-tactics/internal/repository/interfaces"
)

type reputationRepositoryImpl struct {
	db *sql.DB
}

// NewReputationRepository 创建阵营声望仓储
func NewReputationRepository(db *sql.DB) interfaces.ReputationRepository {
	return &reputationRepositoryImpl{db: db}
}

func (r *reputationRepositoryImpl) AddDelta(ctx context.Context, execer boil.ContextExecutor, campaignID, factionID string, delta *decimal.Big) (*decimal.Big, error) {
	if execer == nil {
		execer = r.db
	}

	var row struct {
		Score types.Decimal `boil:"score"`
	}
	err := queries.Raw(`
		INSERT INTO combat.faction_reputation (campaign_id, faction_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (campaign_id, faction_id)
		DO UPDATE SET score = combat.faction_reputation.score + EXCLUDED.score, updated_at = NOW()
		RETURNING score`,
		campaignID, factionID, types.NewDecimal(delta),
	).Bind(ctx, execer, &row)
	if err != nil {
		return nil, errors.Wrap(err, "更新阵营声望失败")
	}
	return row.Score.Big, nil
}
