package impl

import (
	"context"
	"database/sql"

	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"

	"tsu-tactics/internal/repository/interfaces"
)

type campaignRepositoryImpl struct {
	db *sql.DB
}

// NewCampaignRepository 创建战役仓储
func NewCampaignRepository(db *sql.DB) interfaces.CampaignRepository {
	return &campaignRepositoryImpl{db: db}
}

func (r *campaignRepositoryImpl) Exists(ctx context.Context, campaignID string) (bool, error) {
	var row struct {
		Found bool `boil:"found"`
	}
	err := queries.Raw(`SELECT EXISTS (SELECT 1 FROM combat.campaigns WHERE id = $1) AS found`, campaignID).
		Bind(ctx, r.db, &row)
	if err != nil {
		return false, errors.Wrap(err, "查询战役失败")
	}
	return row.Found, nil
}

func (r *campaignRepositoryImpl) IsOwnerOrMember(ctx context.Context, campaignID, userID string) (bool, error) {
	var row struct {
		Allowed bool `boil:"allowed"`
	}
	err := queries.Raw(`
		SELECT EXISTS (
			SELECT 1 FROM combat.campaigns WHERE id = $1 AND owner_user_id = $2
			UNION ALL
			SELECT 1 FROM combat.campaign_members WHERE campaign_id = $1 AND user_id = $2
		) AS allowed`, campaignID, userID,
	).Bind(ctx, r.db, &row)
	if err != nil {
		return false, errors.Wrap(err, "查询战役成员失败")
	}
	return row.Allowed, nil
}
