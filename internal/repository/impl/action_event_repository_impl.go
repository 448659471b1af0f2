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
	"github.com/lib/pq"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

type actionEventRow struct {
	CombatSessionID string      `boil:"combat_session_id"`
	TurnIndex       int         `boil:"turn_index"`
	Sequence        int64       `boil:"sequence"`
	EventType       string      `boil:"event_type"`
	ActorID         null.String `boil:"actor_id"`
	Payload         types.JSON  `boil:"payload"`
}

type actionEventRepositoryImpl struct {
	db *sql.DB
}

// NewActionEventRepository 创建战斗事件仓储
func NewActionEventRepository(db *sql.DB) interfaces.ActionEventRepository {
	return &actionEventRepositoryImpl{db: db}
}

func (r *actionEventRepositoryImpl) execer(execer boil.ContextExecutor) boil.ContextExecutor {
	if execer == nil {
		return r.db
	}
	return execer
}

func (r *actionEventRepositoryImpl) Append(ctx context.Context, execer boil.ContextExecutor, events []combat.Event) error {
	exec := r.execer(execer)
	for _, e := range events {
		payload, err := marshalJSON(e.Payload, "{}")
		if err != nil {
			return err
		}
		if e.Payload == nil {
			payload = types.JSON("{}")
		}
		_, err = exec.ExecContext(ctx, `
			INSERT INTO combat.action_events (combat_session_id, turn_index, sequence, event_type, actor_id, payload)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.SessionID, e.TurnIndex, e.Sequence, string(e.Type), nullString(e.ActorID), payload,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return errors.Wrapf(interfaces.ErrEventSequenceConflict, "session=%s sequence=%d", e.SessionID, e.Sequence)
			}
			return errors.Wrap(err, "写入战斗事件失败")
		}
	}
	return nil
}

func (r *actionEventRepositoryImpl) LastSequence(ctx context.Context, execer boil.ContextExecutor, sessionID string) (int64, error) {
	var row struct {
		Sequence int64 `boil:"sequence"`
	}
	err := queries.Raw(
		`SELECT COALESCE(MAX(sequence), 0) AS sequence FROM combat.action_events WHERE combat_session_id = $1`,
		sessionID,
	).Bind(ctx, r.execer(execer), &row)
	if err != nil {
		return 0, errors.Wrap(err, "查询战斗事件序号失败")
	}
	return row.Sequence, nil
}

func (r *actionEventRepositoryImpl) ListAfter(ctx context.Context, sessionID string, afterSequence int64, limit int) ([]combat.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var rows []*actionEventRow
	err := queries.Raw(`
		SELECT combat_session_id, turn_index, sequence, event_type, actor_id, payload
		FROM combat.action_events
		WHERE combat_session_id = $1 AND sequence > $2
		ORDER BY sequence
		LIMIT $3`, sessionID, afterSequence, limit,
	).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询战斗事件失败")
	}

	events := make([]combat.Event, 0, len(rows))
	for _, row := range rows {
		e := combat.Event{
			SessionID: row.CombatSessionID,
			TurnIndex: row.TurnIndex,
			Sequence:  row.Sequence,
			Type:      combat.EventType(row.EventType),
			ActorID:   row.ActorID.String,
		}
		if len(row.Payload) > 0 {
			if err := json.Unmarshal(row.Payload, &e.Payload); err != nil {
				return nil, errors.Wrapf(err, "解析事件 %d 的 payload 失败", row.Sequence)
			}
		}
		events = append(events, e)
	}
	return events, nil
}
