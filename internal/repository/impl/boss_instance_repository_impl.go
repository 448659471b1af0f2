package impl

import (
	"context"
	"database/sql"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/friendsofgo/errors"
	"github.com/lib/pq"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

type bossPhaseRow struct {
	BossTemplateID string         `boil:"boss_template_id"`
	Phase          int            `boil:"phase"`
	HPBelowPct     types.Decimal  `boil:"hp_below_pct"`
	SkillPool      pq.StringArray `boil:"skill_pool"`
}

func (row *bossPhaseRow) toDomain() combat.BossPhase {
	pct := 0.0
	if row.HPBelowPct.Big != nil {
		pct, _ = row.HPBelowPct.Big.Float64()
	}
	return combat.BossPhase{
		Phase:      row.Phase,
		HPBelowPct: pct,
		SkillPool:  []string(row.SkillPool),
	}
}

type bossInstanceRow struct {
	CombatSessionID string `boil:"combat_session_id"`
	CombatantID     string `boil:"combatant_id"`
	BossTemplateID  string `boil:"boss_template_id"`
	CurrentPhase    int    `boil:"current_phase"`
}

type bossInstanceRepositoryImpl struct {
	db *sql.DB
}

// NewBossInstanceRepository 创建 boss 实例仓储
func NewBossInstanceRepository(db *sql.DB) interfaces.BossInstanceRepository {
	return &bossInstanceRepositoryImpl{db: db}
}

func (r *bossInstanceRepositoryImpl) execer(execer boil.ContextExecutor) boil.ContextExecutor {
	if execer == nil {
		return r.db
	}
	return execer
}

func (r *bossInstanceRepositoryImpl) Create(ctx context.Context, execer boil.ContextExecutor, boss *combat.BossInstance, templateID string) error {
	_, err := r.execer(execer).ExecContext(ctx, `
		INSERT INTO combat.boss_instances (combat_session_id, combatant_id, boss_template_id, current_phase)
		VALUES ($1, $2, $3, $4)`,
		boss.SessionID, boss.CombatantID, templateID, boss.CurrentPhase,
	)
	if err != nil {
		return errors.Wrap(err, "创建 boss 实例失败")
	}
	return nil
}

func (r *bossInstanceRepositoryImpl) ListBySession(ctx context.Context, execer boil.ContextExecutor, sessionID string) ([]*combat.BossInstance, error) {
	exec := r.execer(execer)

	var rows []*bossInstanceRow
	err := queries.Raw(`
		SELECT combat_session_id, combatant_id, boss_template_id, current_phase
		FROM combat.boss_instances
		WHERE combat_session_id = $1
		ORDER BY combatant_id`, sessionID,
	).Bind(ctx, exec, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询 boss 实例失败")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// 同一模板的多个 boss 共享阶段表
	phasesByTemplate := make(map[string][]combat.BossPhase)
	bosses := make([]*combat.BossInstance, 0, len(rows))
	for _, row := range rows {
		phases, ok := phasesByTemplate[row.BossTemplateID]
		if !ok {
			phases, err = r.ListTemplatePhases(ctx, exec, row.BossTemplateID)
			if err != nil {
				return nil, err
			}
			phasesByTemplate[row.BossTemplateID] = phases
		}
		bosses = append(bosses, combat.NewBossInstance(row.CombatSessionID, row.CombatantID, row.CurrentPhase, phases))
	}
	return bosses, nil
}

func (r *bossInstanceRepositoryImpl) UpdatePhase(ctx context.Context, execer boil.ContextExecutor, boss *combat.BossInstance) error {
	_, err := r.execer(execer).ExecContext(ctx, `
		UPDATE combat.boss_instances
		SET current_phase = $3
		WHERE combat_session_id = $1 AND combatant_id = $2 AND current_phase < $3`,
		boss.SessionID, boss.CombatantID, boss.CurrentPhase,
	)
	if err != nil {
		return errors.Wrap(err, "更新 boss 阶段失败")
	}
	return nil
}

func (r *bossInstanceRepositoryImpl) ListTemplatePhases(ctx context.Context, execer boil.ContextExecutor, templateID string) ([]combat.BossPhase, error) {
	var rows []*bossPhaseRow
	err := queries.Raw(`
		SELECT boss_template_id, phase, hp_below_pct, skill_pool
		FROM combat.boss_phases
		WHERE boss_template_id = $1
		ORDER BY phase`, templateID,
	).Bind(ctx, r.execer(execer), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询 boss 阶段模板失败")
	}

	phases := make([]combat.BossPhase, len(rows))
	for i, row := range rows {
		phases[i] = row.toDomain()
	}
	return phases, nil
}
