package service

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/ericlagergren/decimal"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/repository/interfaces"
)

// RewardGranter 发放经验和掉落
type RewardGranter interface {
	GrantXP(ctx context.Context, exec boil.ContextExecutor, grant combat.XPGrant) error
	GrantLoot(ctx context.Context, exec boil.ContextExecutor, sessionID string, grant combat.LootGrant) (string, error)
}

// ReputationWriter 调整阵营声望
type ReputationWriter interface {
	AdjustReputation(ctx context.Context, exec boil.ContextExecutor, campaignID, factionID string, delta int) error
}

// MemoryWriter 追加战役叙事记忆
type MemoryWriter interface {
	RecordMemory(ctx context.Context, exec boil.ContextExecutor, memory *interfaces.NarrativeMemory) error
}

// BoardActivator 切换战役当前地图
type BoardActivator interface {
	ActivateBoard(ctx context.Context, exec boil.ContextExecutor, campaignID, boardID string) error
}

// SettlementReport 结算写入结果
type SettlementReport struct {
	Outcome         string             `json:"outcome"`
	XP              []combat.XPGrant   `json:"xp,omitempty"`
	Loot            []combat.LootGrant `json:"loot,omitempty"`
	ItemIDs         []string           `json:"item_ids,omitempty"`
	ReputationDelta int                `json:"reputation_delta,omitempty"`
	RestoredBoardID string             `json:"restored_board_id,omitempty"`
}

// Settler 把引擎算出的结算交给各个协作方，所有写入都在调用方的事务里
type Settler struct {
	rewards    RewardGranter
	reputation ReputationWriter
	memory     MemoryWriter
	boards     BoardActivator
	logger     log.Logger
}

// NewSettler 创建结算器
func NewSettler(rewards RewardGranter, reputation ReputationWriter, memory MemoryWriter, boards BoardActivator, logger log.Logger) *Settler {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Settler{rewards: rewards, reputation: reputation, memory: memory, boards: boards, logger: logger}
}

// Apply 写入经验、掉落、声望、叙事记忆，并恢复开战前的地图
func (s *Settler) Apply(ctx context.Context, exec boil.ContextExecutor, st combat.Settlement) (*SettlementReport, error) {
	report := &SettlementReport{
		Outcome: string(st.Outcome),
		XP:      st.XP,
		Loot:    st.Loot,
	}

	for _, grant := range st.XP {
		if err := s.rewards.GrantXP(ctx, exec, grant); err != nil {
			return nil, dbError(err, "update", "characters")
		}
	}
	for _, grant := range st.Loot {
		itemID, err := s.rewards.GrantLoot(ctx, exec, st.SessionID, grant)
		if err != nil {
			return nil, dbError(err, "insert", "loot_drops")
		}
		report.ItemIDs = append(report.ItemIDs, itemID)
	}

	if st.FactionID != "" && st.ReputationDelta != 0 {
		if err := s.reputation.AdjustReputation(ctx, exec, st.CampaignID, st.FactionID, st.ReputationDelta); err != nil {
			return nil, dbError(err, "upsert", "faction_reputation")
		}
		report.ReputationDelta = st.ReputationDelta
	}

	memory := &interfaces.NarrativeMemory{
		CampaignID: st.CampaignID,
		SessionID:  st.SessionID,
		Kind:       "combat_outcome",
		Summary:    st.Summary,
		Payload: map[string]any{
			"outcome":          string(st.Outcome),
			"faction_id":       st.FactionID,
			"reputation_delta": st.ReputationDelta,
			"xp_grants":        len(st.XP),
			"loot_grants":      len(st.Loot),
		},
	}
	if err := s.memory.RecordMemory(ctx, exec, memory); err != nil {
		return nil, dbError(err, "insert", "narrative_memories")
	}

	if st.PreviousBoardID != "" {
		if err := s.boards.ActivateBoard(ctx, exec, st.CampaignID, st.PreviousBoardID); err != nil {
			return nil, dbError(err, "update", "campaigns")
		}
		report.RestoredBoardID = st.PreviousBoardID
	}

	s.logger.InfoContext(ctx, "战斗结算完成",
		log.String("combat_session_id", st.SessionID),
		log.String("outcome", string(st.Outcome)),
		log.Int("xp_grants", len(st.XP)),
		log.Int("loot_grants", len(st.Loot)),
		log.Int("reputation_delta", st.ReputationDelta))
	return report, nil
}

// ==================== 仓储适配 ====================

type repoRewardGranter struct {
	repo interfaces.RewardRepository
}

// NewRewardGranter 基于 RewardRepository 的奖励发放
func NewRewardGranter(repo interfaces.RewardRepository) RewardGranter {
	return &repoRewardGranter{repo: repo}
}

func (g *repoRewardGranter) GrantXP(ctx context.Context, exec boil.ContextExecutor, grant combat.XPGrant) error {
	return g.repo.AddCharacterXP(ctx, exec, grant)
}

func (g *repoRewardGranter) GrantLoot(ctx context.Context, exec boil.ContextExecutor, sessionID string, grant combat.LootGrant) (string, error) {
	return g.repo.CreateLoot(ctx, exec, sessionID, grant)
}

type repoReputationWriter struct {
	repo   interfaces.ReputationRepository
	logger log.Logger
}

// NewReputationWriter 基于 ReputationRepository 的声望写入
func NewReputationWriter(repo interfaces.ReputationRepository, logger log.Logger) ReputationWriter {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &repoReputationWriter{repo: repo, logger: logger}
}

func (w *repoReputationWriter) AdjustReputation(ctx context.Context, exec boil.ContextExecutor, campaignID, factionID string, delta int) error {
	score, err := w.repo.AddDelta(ctx, exec, campaignID, factionID, decimal.New(int64(delta), 0))
	if err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "阵营声望已更新",
		log.String("faction_id", factionID),
		log.Int("delta", delta),
		log.String("score", score.String()))
	return nil
}

type repoMemoryWriter struct {
	repo interfaces.NarrativeMemoryRepository
}

// NewMemoryWriter 基于 NarrativeMemoryRepository 的叙事记忆写入
func NewMemoryWriter(repo interfaces.NarrativeMemoryRepository) MemoryWriter {
	return &repoMemoryWriter{repo: repo}
}

func (w *repoMemoryWriter) RecordMemory(ctx context.Context, exec boil.ContextExecutor, memory *interfaces.NarrativeMemory) error {
	return w.repo.Append(ctx, exec, memory)
}

type repoBoardActivator struct {
	repo interfaces.BoardRepository
}

// NewBoardActivator 基于 BoardRepository 的地图切换
func NewBoardActivator(repo interfaces.BoardRepository) BoardActivator {
	return &repoBoardActivator{repo: repo}
}

func (a *repoBoardActivator) ActivateBoard(ctx context.Context, exec boil.ContextExecutor, campaignID, boardID string) error {
	return a.repo.Activate(ctx, exec, campaignID, boardID)
}
