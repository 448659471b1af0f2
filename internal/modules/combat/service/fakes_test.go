package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/ericlagergren/decimal"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/repository/interfaces"
)

// fakeStore 内存版的战斗数据，仓储 fake 共享同一份数据
type fakeStore struct {
	mu sync.Mutex

	sessions      map[string]*combat.Session
	orders        map[string][]string
	combatants    map[string][]*combat.Combatant
	bosses        map[string][]*combat.BossInstance
	events        map[string][]combat.Event
	boards        map[string]*combat.Board
	boardCampaign map[string]string
	activeBoard   map[string]string
	characters    map[string]*interfaces.CharacterSheet
	npcs          map[string]*interfaces.NPCTemplate
	skills        map[string]*combat.Skill
	phases        map[string][]combat.BossPhase
	reputation    map[string]int64
	memories      []*interfaces.NarrativeMemory
	xpGrants      []combat.XPGrant
	lootGrants    []combat.LootGrant
	npcSkillKeys  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:      make(map[string]*combat.Session),
		orders:        make(map[string][]string),
		combatants:    make(map[string][]*combat.Combatant),
		bosses:        make(map[string][]*combat.BossInstance),
		events:        make(map[string][]combat.Event),
		boards:        make(map[string]*combat.Board),
		boardCampaign: make(map[string]string),
		activeBoard:   make(map[string]string),
		characters:    make(map[string]*interfaces.CharacterSheet),
		npcs:          make(map[string]*interfaces.NPCTemplate),
		skills:        make(map[string]*combat.Skill),
		phases:        make(map[string][]combat.BossPhase),
		reputation:    make(map[string]int64),
	}
}

func (s *fakeStore) addBoard(campaignID string, board *combat.Board) {
	s.boards[board.ID] = board
	s.boardCampaign[board.ID] = campaignID
}

func (s *fakeStore) repositories() Repositories {
	return Repositories{
		Sessions:     &fakeSessions{s},
		Combatants:   &fakeCombatants{s},
		Skills:       &fakeSkills{s},
		Bosses:       &fakeBosses{s},
		Events:       &fakeEvents{s},
		Boards:       &fakeBoards{s},
		Participants: &fakeParticipants{s},
	}
}

// ==================== 会话 ====================

type fakeSessions struct{ *fakeStore }

func copySession(s *combat.Session) *combat.Session {
	cp := *s
	return &cp
}

func (f *fakeSessions) Create(_ context.Context, _ boil.ContextExecutor, session *combat.Session, turnOrder []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = copySession(session)
	f.orders[session.ID] = append([]string(nil), turnOrder...)
	return nil
}

func (f *fakeSessions) get(campaignID, sessionID string) (*combat.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.CampaignID != campaignID {
		return nil, interfaces.ErrCombatSessionNotFound
	}
	return copySession(s), nil
}

func (f *fakeSessions) GetForUpdate(_ context.Context, _ boil.ContextExecutor, campaignID, sessionID string) (*combat.Session, error) {
	return f.get(campaignID, sessionID)
}

func (f *fakeSessions) Get(_ context.Context, campaignID, sessionID string) (*combat.Session, error) {
	return f.get(campaignID, sessionID)
}

func (f *fakeSessions) Update(_ context.Context, _ boil.ContextExecutor, session *combat.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.ID]; !ok {
		return interfaces.ErrCombatSessionNotFound
	}
	f.sessions[session.ID] = copySession(session)
	return nil
}

func (f *fakeSessions) GetTurnOrder(_ context.Context, _ boil.ContextExecutor, sessionID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[sessionID]
	if !ok {
		return nil, interfaces.ErrTurnOrderNotFound
	}
	return append([]string(nil), order...), nil
}

func (f *fakeSessions) ListIdleActive(_ context.Context, _ time.Time, limit int) ([]*combat.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*combat.Session
	for _, s := range f.sessions {
		if s.Active() && len(out) < limit {
			out = append(out, copySession(s))
		}
	}
	return out, nil
}

func (f *fakeSessions) ArchiveEnded(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.sessions {
		if !s.Active() && s.EndedAt != nil && s.EndedAt.Before(before) {
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) CountActive(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.Active() {
			n++
		}
	}
	return n, nil
}

// ==================== 参战单位 ====================

type fakeCombatants struct{ *fakeStore }

func (f *fakeCombatants) CreateBatch(_ context.Context, _ boil.ContextExecutor, combatants []*combat.Combatant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range combatants {
		f.combatants[c.SessionID] = append(f.combatants[c.SessionID], c.Clone())
	}
	return nil
}

func (f *fakeCombatants) ListBySession(_ context.Context, _ boil.ContextExecutor, sessionID string) ([]*combat.Combatant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*combat.Combatant
	for _, c := range f.combatants[sessionID] {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCombatants) Update(_ context.Context, _ boil.ContextExecutor, combatant *combat.Combatant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.combatants[combatant.SessionID] {
		if c.ID == combatant.ID {
			f.combatants[combatant.SessionID][i] = combatant.Clone()
			return nil
		}
	}
	return fmt.Errorf("combatant %s not found", combatant.ID)
}

func (f *fakeStore) combatant(sessionID, id string) *combat.Combatant {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.combatants[sessionID] {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ==================== 技能 / boss ====================

type fakeSkills struct{ *fakeStore }

func (f *fakeSkills) GetByID(_ context.Context, _ boil.ContextExecutor, skillID string) (*combat.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	skill, ok := f.skills[skillID]
	if !ok {
		return nil, interfaces.ErrCombatSkillNotFound
	}
	return skill, nil
}

func (f *fakeSkills) ListNPCSkillsByKeys(_ context.Context, _ boil.ContextExecutor, keys []string) ([]*combat.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.npcSkillKeys = append([]string(nil), keys...)
	var out []*combat.Skill
	for _, skill := range f.skills {
		for _, key := range keys {
			if skill.CharacterID == "" && skill.Key == key {
				out = append(out, skill)
			}
		}
	}
	return out, nil
}

type fakeBosses struct{ *fakeStore }

func (f *fakeBosses) Create(_ context.Context, _ boil.ContextExecutor, boss *combat.BossInstance, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *boss
	f.bosses[boss.SessionID] = append(f.bosses[boss.SessionID], &cp)
	return nil
}

func (f *fakeBosses) ListBySession(_ context.Context, _ boil.ContextExecutor, sessionID string) ([]*combat.BossInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*combat.BossInstance
	for _, b := range f.bosses[sessionID] {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBosses) UpdatePhase(_ context.Context, _ boil.ContextExecutor, boss *combat.BossInstance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bosses[boss.SessionID] {
		if b.CombatantID == boss.CombatantID && boss.CurrentPhase > b.CurrentPhase {
			b.CurrentPhase = boss.CurrentPhase
		}
	}
	return nil
}

func (f *fakeBosses) ListTemplatePhases(_ context.Context, _ boil.ContextExecutor, templateID string) ([]combat.BossPhase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phases[templateID], nil
}

// ==================== 事件 ====================

type fakeEvents struct{ *fakeStore }

func (f *fakeEvents) Append(_ context.Context, _ boil.ContextExecutor, events []combat.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range events {
		for _, existing := range f.events[e.SessionID] {
			if existing.Sequence == e.Sequence {
				return interfaces.ErrEventSequenceConflict
			}
		}
		f.events[e.SessionID] = append(f.events[e.SessionID], e)
	}
	return nil
}

func (f *fakeEvents) LastSequence(_ context.Context, _ boil.ContextExecutor, sessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last int64
	for _, e := range f.events[sessionID] {
		last = max(last, e.Sequence)
	}
	return last, nil
}

func (f *fakeEvents) ListAfter(_ context.Context, sessionID string, afterSequence int64, limit int) ([]combat.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []combat.Event
	for _, e := range f.events[sessionID] {
		if e.Sequence > afterSequence && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) eventTypes(sessionID string) []combat.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []combat.EventType
	for _, e := range f.events[sessionID] {
		out = append(out, e.Type)
	}
	return out
}

// ==================== 地图 / 参战者 ====================

type fakeBoards struct{ *fakeStore }

func (f *fakeBoards) Get(_ context.Context, _ boil.ContextExecutor, campaignID, boardID string) (*combat.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	board, ok := f.boards[boardID]
	if !ok || f.boardCampaign[boardID] != campaignID {
		return nil, interfaces.ErrBoardNotFound
	}
	return board, nil
}

func (f *fakeBoards) ActiveBoardID(_ context.Context, _ boil.ContextExecutor, campaignID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.activeBoard[campaignID]
	if !ok {
		return "", interfaces.ErrCampaignNotFound
	}
	return id, nil
}

func (f *fakeBoards) Activate(_ context.Context, _ boil.ContextExecutor, campaignID, boardID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.activeBoard[campaignID]; !ok {
		return interfaces.ErrCampaignNotFound
	}
	f.activeBoard[campaignID] = boardID
	return nil
}

type fakeParticipants struct{ *fakeStore }

func (f *fakeParticipants) GetCharacter(_ context.Context, _ boil.ContextExecutor, campaignID, characterID string) (*interfaces.CharacterSheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sheet, ok := f.characters[characterID]
	if !ok || sheet.CampaignID != campaignID {
		return nil, interfaces.ErrCharacterNotFound
	}
	return sheet, nil
}

func (f *fakeParticipants) GetNPCTemplate(_ context.Context, _ boil.ContextExecutor, campaignID, templateID string) (*interfaces.NPCTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.npcs[templateID]
	if !ok || tpl.CampaignID != campaignID {
		return nil, interfaces.ErrNPCTemplateNotFound
	}
	return tpl, nil
}

// ==================== 结算仓储 ====================

type fakeRewards struct{ *fakeStore }

func (f *fakeRewards) AddCharacterXP(_ context.Context, _ boil.ContextExecutor, grant combat.XPGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.xpGrants = append(f.xpGrants, grant)
	return nil
}

func (f *fakeRewards) CreateLoot(_ context.Context, _ boil.ContextExecutor, _ string, grant combat.LootGrant) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lootGrants = append(f.lootGrants, grant)
	return fmt.Sprintf("item-%d", len(f.lootGrants)), nil
}

type fakeReputation struct{ *fakeStore }

func (f *fakeReputation) AddDelta(_ context.Context, _ boil.ContextExecutor, campaignID, factionID string, delta *decimal.Big) (*decimal.Big, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, _ := delta.Int64()
	key := campaignID + ":" + factionID
	f.reputation[key] += v
	return decimal.New(f.reputation[key], 0), nil
}

type fakeMemories struct{ *fakeStore }

func (f *fakeMemories) Append(_ context.Context, _ boil.ContextExecutor, memory *interfaces.NarrativeMemory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memories = append(f.memories, memory)
	return nil
}

// ==================== 事务 / 广播 ====================

type fakeTx struct {
	commits   int
	rollbacks int
}

func (f *fakeTx) InTx(_ context.Context, fn func(exec boil.ContextExecutor) error) error {
	if err := fn(nil); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	batches map[string]int
	ended   []any
}

func (p *fakePublisher) PublishCombatEvents(_ context.Context, sessionID string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.batches == nil {
		p.batches = make(map[string]int)
	}
	p.batches[sessionID]++
	return nil
}

func (p *fakePublisher) PublishCombatEnded(_ context.Context, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, payload)
	return nil
}

// ==================== 组装 ====================

const (
	testCampaign = "camp-1"
	testOwner    = "user-1"
	worldBoard   = "world-1"
	arenaBoard   = "arena-1"
)

type testEnv struct {
	store     *fakeStore
	tx        *fakeTx
	publisher *fakePublisher
	svc       *CombatService
}

// newTestEnv 一名玩家角色（char-1）和两种 NPC 模板，战役当前地图为 world-1
func newTestEnv() *testEnv {
	store := newFakeStore()
	store.addBoard(testCampaign, combat.NewBoard(worldBoard, 20, 20, nil))
	store.addBoard(testCampaign, combat.NewBoard(arenaBoard, 8, 8, []combat.Position{{X: 3, Y: 3}}))
	store.activeBoard[testCampaign] = worldBoard

	store.characters["char-1"] = &interfaces.CharacterSheet{
		ID: "char-1", CampaignID: testCampaign, PlayerUserID: testOwner, Name: "Aria",
		Level: 3, Stats: combat.Stats{Offense: 5, Mobility: 5, Utility: 2},
		WeaponPower: 4, HPMax: 500, PowerMax: 10,
	}
	store.npcs["goblin"] = &interfaces.NPCTemplate{
		ID: "goblin", CampaignID: testCampaign, Name: "Goblin",
		Level: 2, Stats: combat.Stats{Offense: 1, Mobility: 1}, HPMax: 1,
	}
	store.npcs["scout"] = &interfaces.NPCTemplate{
		ID: "scout", CampaignID: testCampaign, Name: "Scout",
		Level: 1, Stats: combat.Stats{Offense: 1, Mobility: 9}, HPMax: 40,
	}

	tx := &fakeTx{}
	publisher := &fakePublisher{}
	settler := NewSettler(
		NewRewardGranter(&fakeRewards{store}),
		NewReputationWriter(&fakeReputation{store}, log.Discard()),
		NewMemoryWriter(&fakeMemories{store}),
		NewBoardActivator(&fakeBoards{store}),
		log.Discard(),
	)
	svc := NewCombatService(store.repositories(), tx, settler, publisher, log.Discard())

	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
	svc.newSeed = func() int64 { return 7 }
	return &testEnv{store: store, tx: tx, publisher: publisher, svc: svc}
}

func (e *testEnv) start(npc string) (*CombatState, error) {
	seed := int64(42)
	return e.svc.StartCombat(context.Background(), &StartCombatRequest{
		CampaignID: testCampaign,
		UserID:     testOwner,
		BoardID:    arenaBoard,
		FactionID:  "guild",
		Seed:       &seed,
		Participants: []ParticipantInput{
			{Kind: ParticipantCharacter, RefID: "char-1", X: 0, Y: 0},
			{Kind: ParticipantNPC, RefID: npc, X: 1, Y: 0},
		},
	})
}

// ids 返回玩家单位和 NPC 单位的 ID
func ids(state *CombatState) (player, npc string) {
	for _, c := range state.Combatants {
		if c.EntityType == string(combat.EntityPlayer) {
			player = c.ID
		} else {
			npc = c.ID
		}
	}
	return player, npc
}
