package impl

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/ericlagergren/decimal"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

// setupTestDB 连接测试数据库，要求已执行 migrations
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=tsu_user password=tsu_test dbname=tsu_tactics sslmode=disable"
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Skipf("无法连接测试数据库: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("跳过依赖数据库的测试，原因: %v", err)
	}
	return db
}

// seedCampaign 在事务内写入战役和一张战斗地图
func seedCampaign(t *testing.T, ctx context.Context, tx *sql.Tx) (campaignID, boardID string) {
	t.Helper()

	campaignID = uuid.NewString()
	boardID = uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO combat.campaigns (id, owner_user_id, name) VALUES ($1, 'gm-user', '测试战役')`, campaignID)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO combat.boards (id, campaign_id, name, kind, width, height, blocked_tiles)
		VALUES ($1, $2, '竞技场', 'combat', 8, 8, '[{"x":3,"y":3}]')`, boardID, campaignID)
	require.NoError(t, err)
	return campaignID, boardID
}

func TestCombatRepositories_会话单位事件往返(t *testing.T) {
	if testing.Short() {
		t.Skip("跳过集成测试")
	}
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	campaignID, boardID := seedCampaign(t, ctx, tx)

	board, err := NewBoardRepository(db).Get(ctx, tx, campaignID, boardID)
	require.NoError(t, err)
	assert.True(t, board.IsBlocked(combat.Position{X: 3, Y: 3}))

	sessions := NewCombatSessionRepository(db)
	session := &combat.Session{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		Seed:       42,
		Status:     combat.SessionActive,
		BoardID:    boardID,
	}
	heroID, orcID := uuid.NewString(), uuid.NewString()
	require.NoError(t, sessions.Create(ctx, tx, session, []string{heroID, orcID}))

	combatants := NewCombatantRepository(db)
	require.NoError(t, combatants.CreateBatch(ctx, tx, []*combat.Combatant{
		{ID: heroID, SessionID: session.ID, Name: "hero", EntityType: combat.EntityPlayer, OwnerPlayerID: "player-1",
			Level: 3, HP: 30, HPMax: 30, PowerMax: 10, IsAlive: true},
		{ID: orcID, SessionID: session.ID, Name: "orc", EntityType: combat.EntityNPC,
			Level: 2, HP: 20, HPMax: 20, Pos: combat.Position{X: 1}, IsAlive: true},
	}))

	loaded, err := sessions.GetForUpdate(ctx, tx, campaignID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded.Seed)
	assert.Equal(t, combat.SessionActive, loaded.Status)

	order, err := sessions.GetTurnOrder(ctx, tx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{heroID, orcID}, order)

	list, err := combatants.ListBySession(ctx, tx, session.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var orc *combat.Combatant
	for _, c := range list {
		if c.ID == orcID {
			orc = c
		}
	}
	require.NotNil(t, orc)
	orc.HP = 5
	orc.ApplyStatus(combat.StatusEntry{ID: "poisoned", ExpiresTurn: combat.ExpiresAt(1, 2), Stacks: 1,
		Data: map[string]any{combat.DataDot: 3}})
	require.NoError(t, combatants.Update(ctx, tx, orc))

	list, err = combatants.ListBySession(ctx, tx, session.ID)
	require.NoError(t, err)
	for _, c := range list {
		if c.ID == orcID {
			assert.Equal(t, 5, c.HP)
			status, ok := c.FindStatus("poisoned")
			require.True(t, ok)
			assert.Equal(t, 3, status.Int(combat.DataDot))
		}
	}

	events := NewActionEventRepository(db)
	log := combat.NewEventLog(session.ID, 0)
	log.Append(0, combat.EventTurnStart, heroID, map[string]any{"turn_index": 0})
	log.Append(0, combat.EventDamage, heroID, map[string]any{"target_id": orcID, "amount": 15})
	require.NoError(t, events.Append(ctx, tx, log.Events()))

	last, err := events.LastSequence(ctx, tx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)

	// 重复的序号被唯一约束拒绝
	err = events.Append(ctx, tx, log.Events()[:1])
	assert.ErrorIs(t, err, interfaces.ErrEventSequenceConflict)
}

func TestCombatSessionRepository_不属于战役的会话(t *testing.T) {
	if testing.Short() {
		t.Skip("跳过集成测试")
	}
	db := setupTestDB(t)
	defer db.Close()

	_, err := NewCombatSessionRepository(db).Get(context.Background(), uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, interfaces.ErrCombatSessionNotFound)
}

func TestReputationRepository_累加声望(t *testing.T) {
	if testing.Short() {
		t.Skip("跳过集成测试")
	}
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	campaignID, _ := seedCampaign(t, ctx, tx)
	repo := NewReputationRepository(db)

	score, err := repo.AddDelta(ctx, tx, campaignID, "iron-guild", decimal.New(5, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, score.Cmp(decimal.New(5, 0)))

	score, err = repo.AddDelta(ctx, tx, campaignID, "iron-guild", decimal.New(-2, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, score.Cmp(decimal.New(3, 0)))
}
