package service

import (
	"context"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/xerrors"
)

// idleBatchSize 每次最多结束的闲置会话数
const idleBatchSize = 50

// AbandonIdleSessions 结束超过 idleFor 没有任何写入的进行中会话，结果为 abandoned
// 单个会话失败只记录日志，不影响其余会话
func (s *CombatService) AbandonIdleSessions(ctx context.Context, idleFor time.Duration) (int, error) {
	sessions, err := s.repos.Sessions.ListIdleActive(ctx, s.now().Add(-idleFor), idleBatchSize)
	if err != nil {
		return 0, dbError(err, "select", "combat_sessions")
	}

	abandoned := 0
	for _, idle := range sessions {
		var (
			battle *combat.Battle
			report *SettlementReport
		)
		err := s.tx.InTx(ctx, func(exec boil.ContextExecutor) error {
			b, err := s.loadBattle(ctx, exec, idle.CampaignID, idle.ID)
			if err != nil {
				return err
			}
			// 加锁之后可能已被正常结束
			if !b.Session.Active() {
				return nil
			}
			if err := b.End(ctx, combat.OutcomeAbandoned); err != nil {
				return err
			}
			report, err = s.persist(ctx, exec, b, true)
			if err != nil {
				return err
			}
			battle = b
			return nil
		})
		if err != nil {
			s.logger.WarnContext(ctx, "结束闲置战斗失败",
				log.String("combat_session_id", idle.ID),
				log.Any("error", err))
			continue
		}
		if battle == nil {
			continue
		}
		abandoned++
		s.afterCommit(ctx, battle, report)
	}
	return abandoned, nil
}

// ArchiveEndedSessions 归档结束超过 retention 的会话
func (s *CombatService) ArchiveEndedSessions(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, xerrors.NewValidationError("retention", "归档保留时间必须大于 0")
	}
	n, err := s.repos.Sessions.ArchiveEnded(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, dbError(err, "update", "combat_sessions")
	}
	return n, nil
}

// RefreshActiveGauge 刷新进行中战斗数量指标
func (s *CombatService) RefreshActiveGauge(ctx context.Context) (int, error) {
	n, err := s.repos.Sessions.CountActive(ctx)
	if err != nil {
		return 0, dbError(err, "select", "combat_sessions")
	}
	s.metrics.SetActive(s.service, n)
	return n, nil
}
