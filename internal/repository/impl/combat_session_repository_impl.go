package impl

import (
	"context"
	"database/sql"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"
	"github.com/lib/pq"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

type combatSessionRow struct {
	ID               string      `boil:"id"`
	CampaignID       string      `boil:"campaign_id"`
	Seed             int64       `boil:"seed"`
	Status           string      `boil:"status"`
	CurrentTurnIndex int         `boil:"current_turn_index"`
	BoardID          string      `boil:"board_id"`
	PreviousBoardID  null.String `boil:"previous_board_id"`
	FactionID        null.String `boil:"faction_id"`
	Outcome          null.String `boil:"outcome"`
	StartedAt        time.Time   `boil:"started_at"`
	EndedAt          null.Time   `boil:"ended_at"`
}

func (row *combatSessionRow) toDomain() *combat.Session {
	s := &combat.Session{
		ID:               row.ID,
		CampaignID:       row.CampaignID,
		Seed:             row.Seed,
		Status:           combat.SessionStatus(row.Status),
		CurrentTurnIndex: row.CurrentTurnIndex,
		BoardID:          row.BoardID,
		PreviousBoardID:  row.PreviousBoardID.String,
		FactionID:        row.FactionID.String,
		Outcome:          combat.Outcome(row.Outcome.String),
		StartedAt:        row.StartedAt,
	}
	if row.EndedAt.Valid {
		ended := row.EndedAt.Time
		s.EndedAt = &ended
	}
	return s
}

const combatSessionColumns = `id, campaign_id, seed, status, current_turn_index, board_id,
	previous_board_id, faction_id, outcome, started_at, ended_at`

type combatSessionRepositoryImpl struct {
	db *sql.DB
}

// NewCombatSessionRepository 创建战斗会话仓储实例
func NewCombatSessionRepository(db *sql.DB) interfaces.CombatSessionRepository {
	return &combatSessionRepositoryImpl{db: db}
}

func (r *combatSessionRepositoryImpl) execer(execer boil.ContextExecutor) boil.ContextExecutor {
	if execer == nil {
		return r.db
	}
	return execer
}

func (r *combatSessionRepositoryImpl) Create(ctx context.Context, execer boil.ContextExecutor, session *combat.Session, turnOrder []string) error {
	exec := r.execer(execer)
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	_, err := exec.ExecContext(ctx, `
		INSERT INTO combat.combat_sessions (
			id, campaign_id, seed, status, current_turn_index, board_id,
			previous_board_id, faction_id, started_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		session.ID,
		session.CampaignID,
		session.Seed,
		string(session.Status),
		session.CurrentTurnIndex,
		session.BoardID,
		nullString(session.PreviousBoardID),
		nullString(session.FactionID),
		session.StartedAt,
	)
	if err != nil {
		return errors.Wrap(err, "创建战斗会话失败")
	}

	if _, err := exec.ExecContext(ctx,
		`INSERT INTO combat.turn_orders (combat_session_id, combatant_ids) VALUES ($1, $2)`,
		session.ID, pq.Array(turnOrder),
	); err != nil {
		return errors.Wrap(err, "写入回合顺序失败")
	}
	return nil
}

func (r *combatSessionRepositoryImpl) get(ctx context.Context, execer boil.ContextExecutor, campaignID, sessionID string, forUpdate bool) (*combat.Session, error) {
	query := `SELECT ` + combatSessionColumns + `
		FROM combat.combat_sessions
		WHERE id = $1 AND campaign_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var row combatSessionRow
	err := queries.Raw(query, sessionID, campaignID).Bind(ctx, r.execer(execer), &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrCombatSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "查询战斗会话失败")
	}
	return row.toDomain(), nil
}

func (r *combatSessionRepositoryImpl) GetForUpdate(ctx context.Context, execer boil.ContextExecutor, campaignID, sessionID string) (*combat.Session, error) {
	return r.get(ctx, execer, campaignID, sessionID, true)
}

func (r *combatSessionRepositoryImpl) Get(ctx context.Context, campaignID, sessionID string) (*combat.Session, error) {
	return r.get(ctx, nil, campaignID, sessionID, false)
}

func (r *combatSessionRepositoryImpl) Update(ctx context.Context, execer boil.ContextExecutor, session *combat.Session) error {
	var endedAt null.Time
	if session.EndedAt != nil {
		endedAt = null.TimeFrom(*session.EndedAt)
	}
	res, err := r.execer(execer).ExecContext(ctx, `
		UPDATE combat.combat_sessions
		SET status = $3,
		    current_turn_index = $4,
		    outcome = $5,
		    ended_at = $6,
		    updated_at = NOW()
		WHERE id = $1 AND campaign_id = $2`,
		session.ID,
		session.CampaignID,
		string(session.Status),
		session.CurrentTurnIndex,
		nullString(string(session.Outcome)),
		endedAt,
	)
	if err != nil {
		return errors.Wrap(err, "更新战斗会话失败")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return interfaces.ErrCombatSessionNotFound
	}
	return nil
}

func (r *combatSessionRepositoryImpl) GetTurnOrder(ctx context.Context, execer boil.ContextExecutor, sessionID string) ([]string, error) {
	var row struct {
		CombatantIDs pq.StringArray `boil:"combatant_ids"`
	}
	err := queries.Raw(
		`SELECT combatant_ids FROM combat.turn_orders WHERE combat_session_id = $1`, sessionID,
	).Bind(ctx, r.execer(execer), &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrTurnOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "查询回合顺序失败")
	}
	return []string(row.CombatantIDs), nil
}

func (r *combatSessionRepositoryImpl) ListIdleActive(ctx context.Context, before time.Time, limit int) ([]*combat.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*combatSessionRow
	err := queries.Raw(`SELECT `+combatSessionColumns+`
		FROM combat.combat_sessions
		WHERE status = 'active' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`, before, limit,
	).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询闲置战斗会话失败")
	}
	sessions := make([]*combat.Session, len(rows))
	for i, row := range rows {
		sessions[i] = row.toDomain()
	}
	return sessions, nil
}

func (r *combatSessionRepositoryImpl) ArchiveEnded(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE combat.combat_sessions
		SET archived_at = NOW()
		WHERE status = 'ended' AND archived_at IS NULL AND ended_at < $1`, before)
	if err != nil {
		return 0, errors.Wrap(err, "归档战斗会话失败")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "读取归档行数失败")
	}
	return n, nil
}

func (r *combatSessionRepositoryImpl) CountActive(ctx context.Context) (int, error) {
	var row struct {
		Total int `boil:"total"`
	}
	err := queries.Raw(`SELECT COUNT(*) AS total FROM combat.combat_sessions WHERE status = 'active'`).Bind(ctx, r.db, &row)
	if err != nil {
		return 0, errors.Wrap(err, "统计进行中的战斗会话失败")
	}
	return row.Total, nil
}
