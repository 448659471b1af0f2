package impl

import (
	"context"
	"database/sql"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/friendsofgo/errors"
	"github.com/google/uuid"

	"tsu-tactics/internal/repository/interfaces"
)

type narrativeMemoryRepositoryImpl struct {
	db *sql.DB
}

// NewNarrativeMemoryRepository 创建叙事记忆仓储
func NewNarrativeMemoryRepository(db *sql.DB) interfaces.NarrativeMemoryRepository {
	return &narrativeMemoryRepositoryImpl{db: db}
}

func (r *narrativeMemoryRepositoryImpl) Append(ctx context.Context, execer boil.ContextExecutor, memory *interfaces.NarrativeMemory) error {
	if execer == nil {
		execer = r.db
	}
	payload, err := marshalJSON(memory.Payload, "{}")
	if err != nil {
		return err
	}
	if memory.Payload == nil {
		payload = []byte("{}")
	}

	_, err = execer.ExecContext(ctx, `
		INSERT INTO combat.narrative_memories (id, campaign_id, combat_session_id, kind, summary, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), memory.CampaignID, nullString(memory.SessionID), memory.Kind, memory.Summary, payload,
	)
	if err != nil {
		return errors.Wrap(err, "写入叙事记忆失败")
	}
	return nil
}
