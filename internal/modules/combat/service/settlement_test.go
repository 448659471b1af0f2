package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/xerrors"
	"tsu-tactics/internal/repository/interfaces"
)

type mockRewards struct{ mock.Mock }

func (m *mockRewards) GrantXP(ctx context.Context, exec boil.ContextExecutor, grant combat.XPGrant) error {
	return m.Called(ctx, exec, grant).Error(0)
}

func (m *mockRewards) GrantLoot(ctx context.Context, exec boil.ContextExecutor, sessionID string, grant combat.LootGrant) (string, error) {
	args := m.Called(ctx, exec, sessionID, grant)
	return args.String(0), args.Error(1)
}

type mockReputation struct{ mock.Mock }

func (m *mockReputation) AdjustReputation(ctx context.Context, exec boil.ContextExecutor, campaignID, factionID string, delta int) error {
	return m.Called(ctx, exec, campaignID, factionID, delta).Error(0)
}

type mockMemory struct{ mock.Mock }

func (m *mockMemory) RecordMemory(ctx context.Context, exec boil.ContextExecutor, memory *interfaces.NarrativeMemory) error {
	return m.Called(ctx, exec, memory).Error(0)
}

type mockBoards struct{ mock.Mock }

func (m *mockBoards) ActivateBoard(ctx context.Context, exec boil.ContextExecutor, campaignID, boardID string) error {
	return m.Called(ctx, exec, campaignID, boardID).Error(0)
}

type settlerMocks struct {
	rewards    *mockRewards
	reputation *mockReputation
	memory     *mockMemory
	boards     *mockBoards
}

func newMockSettler() (*Settler, *settlerMocks) {
	m := &settlerMocks{
		rewards:    &mockRewards{},
		reputation: &mockReputation{},
		memory:     &mockMemory{},
		boards:     &mockBoards{},
	}
	return NewSettler(m.rewards, m.reputation, m.memory, m.boards, log.Discard()), m
}

func (m *settlerMocks) assertExpectations(t *testing.T) {
	m.rewards.AssertExpectations(t)
	m.reputation.AssertExpectations(t)
	m.memory.AssertExpectations(t)
	m.boards.AssertExpectations(t)
}

func victorySettlement() combat.Settlement {
	return combat.Settlement{
		SessionID:  "s1",
		CampaignID: "c1",
		Outcome:    combat.OutcomeVictory,
		XP: []combat.XPGrant{
			{PlayerID: "u1", CombatantID: "p1", CharacterID: "char-1", XP: 75},
			{PlayerID: "u2", CombatantID: "p2", CharacterID: "char-2", XP: 75},
		},
		Loot: []combat.LootGrant{
			{PlayerID: "u1", CombatantID: "p1", Tier: combat.TierCommon, Name: "Worn Blade"},
			{PlayerID: "u2", CombatantID: "p2", Tier: combat.TierCommon, Name: "Old Shield"},
		},
		FactionID:       "guild",
		ReputationDelta: combat.ReputationOnVictory,
		PreviousBoardID: "world-1",
		CombatBoardID:   "arena-1",
		Summary:         "combat s1 ended in victory",
	}
}

func TestSettlerApply(t *testing.T) {
	ctx := context.Background()

	t.Run("胜利时依次写入全部结算", func(t *testing.T) {
		settler, m := newMockSettler()
		st := victorySettlement()

		for _, grant := range st.XP {
			m.rewards.On("GrantXP", ctx, nil, grant).Return(nil).Once()
		}
		m.rewards.On("GrantLoot", ctx, nil, "s1", st.Loot[0]).Return("item-a", nil).Once()
		m.rewards.On("GrantLoot", ctx, nil, "s1", st.Loot[1]).Return("item-b", nil).Once()
		m.reputation.On("AdjustReputation", ctx, nil, "c1", "guild", 5).Return(nil).Once()
		m.memory.On("RecordMemory", ctx, nil, mock.MatchedBy(func(mem *interfaces.NarrativeMemory) bool {
			return mem.Kind == "combat_outcome" &&
				mem.SessionID == "s1" &&
				mem.Payload["outcome"] == "victory" &&
				mem.Payload["xp_grants"] == 2
		})).Return(nil).Once()
		m.boards.On("ActivateBoard", ctx, nil, "c1", "world-1").Return(nil).Once()

		report, err := settler.Apply(ctx, nil, st)
		require.NoError(t, err)
		assert.Equal(t, "victory", report.Outcome)
		assert.Equal(t, []string{"item-a", "item-b"}, report.ItemIDs)
		assert.Equal(t, 5, report.ReputationDelta)
		assert.Equal(t, "world-1", report.RestoredBoardID)
		m.assertExpectations(t)
	})

	t.Run("没有阵营和原地图时只写记忆", func(t *testing.T) {
		settler, m := newMockSettler()
		st := combat.Settlement{SessionID: "s1", CampaignID: "c1", Outcome: combat.OutcomeDefeat}

		m.memory.On("RecordMemory", ctx, nil, mock.Anything).Return(nil).Once()

		report, err := settler.Apply(ctx, nil, st)
		require.NoError(t, err)
		assert.Empty(t, report.ItemIDs)
		assert.Zero(t, report.ReputationDelta)
		assert.Empty(t, report.RestoredBoardID)
		m.assertExpectations(t)
		m.reputation.AssertNotCalled(t, "AdjustReputation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.boards.AssertNotCalled(t, "ActivateBoard", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("写入失败时中断并返回数据库错误", func(t *testing.T) {
		settler, m := newMockSettler()
		st := victorySettlement()

		m.rewards.On("GrantXP", ctx, nil, mock.Anything).Return(nil)
		m.rewards.On("GrantLoot", ctx, nil, "s1", st.Loot[0]).Return("", errors.New("pq: deadlock detected")).Once()

		report, err := settler.Apply(ctx, nil, st)
		assert.Nil(t, report)
		requireCode(t, err, xerrors.CodeDatabaseError)
		m.memory.AssertNotCalled(t, "RecordMemory", mock.Anything, mock.Anything, mock.Anything)
		m.boards.AssertNotCalled(t, "ActivateBoard", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("已有业务错误原样返回", func(t *testing.T) {
		settler, m := newMockSettler()
		st := combat.Settlement{SessionID: "s1", CampaignID: "c1", Outcome: combat.OutcomeAbandoned, PreviousBoardID: "world-1"}

		m.memory.On("RecordMemory", ctx, nil, mock.Anything).Return(nil).Once()
		m.boards.On("ActivateBoard", ctx, nil, "c1", "world-1").
			Return(xerrors.FromCode(xerrors.CodeCampaignNotFound)).Once()

		_, err := settler.Apply(ctx, nil, st)
		requireCode(t, err, xerrors.CodeCampaignNotFound)
		m.assertExpectations(t)
	})
}
