package impl

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/friendsofgo/errors"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

type boardRow struct {
	ID           string     `boil:"id"`
	Width        int        `boil:"width"`
	Height       int        `boil:"height"`
	BlockedTiles types.JSON `boil:"blocked_tiles"`
}

type boardRepositoryImpl struct {
	db *sql.DB
}

// NewBoardRepository 创建地图仓储
func NewBoardRepository(db *sql.DB) interfaces.BoardRepository {
	return &boardRepositoryImpl{db: db}
}

func (r *boardRepositoryImpl) execer(execer boil.ContextExecutor) boil.ContextExecutor {
	if execer == nil {
		return r.db
	}
	return execer
}

func (r *boardRepositoryImpl) Get(ctx context.Context, execer boil.ContextExecutor, campaignID, boardID string) (*combat.Board, error) {
	var row boardRow
	err := queries.Raw(`
		SELECT id, width, height, blocked_tiles
		FROM combat.boards
		WHERE id = $1 AND campaign_id = $2`, boardID, campaignID,
	).Bind(ctx, r.execer(execer), &row)
	if isNoRows(err) {
		return nil, interfaces.ErrBoardNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "查询地图失败")
	}

	var blocked []combat.Position
	if len(row.BlockedTiles) > 0 {
		if err := json.Unmarshal(row.BlockedTiles, &blocked); err != nil {
			return nil, errors.Wrapf(err, "解析地图 %s 的障碍格子失败", row.ID)
		}
	}
	return combat.NewBoard(row.ID, row.Width, row.Height, blocked), nil
}

func (r *boardRepositoryImpl) ActiveBoardID(ctx context.Context, execer boil.ContextExecutor, campaignID string) (string, error) {
	var row struct {
		ActiveBoardID null.String `boil:"active_board_id"`
	}
	err := queries.Raw(`SELECT active_board_id FROM combat.campaigns WHERE id = $1`, campaignID).
		Bind(ctx, r.execer(execer), &row)
	if isNoRows(err) {
		return "", interfaces.ErrCampaignNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "查询激活地图失败")
	}
	return row.ActiveBoardID.String, nil
}

func (r *boardRepositoryImpl) Activate(ctx context.Context, execer boil.ContextExecutor, campaignID, boardID string) error {
	res, err := r.execer(execer).ExecContext(ctx, `
		UPDATE combat.campaigns
		SET active_board_id = $2, updated_at = NOW()
		WHERE id = $1`, campaignID, nullString(boardID))
	if err != nil {
		return errors.Wrap(err, "切换激活地图失败")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return interfaces.ErrCampaignNotFound
	}
	return nil
}
