// Package service 战斗服务：在一个事务内加载会话、驱动引擎、写回结果并完成结算。
package service

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/strmangle"
	"github.com/google/uuid"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/metrics"
	"tsu-tactics/internal/pkg/notify"
	"tsu-tactics/internal/pkg/xerrors"
	"tsu-tactics/internal/repository/interfaces"
)

// MaxTickSteps 单次 tick 最多推进的回合数
const MaxTickSteps = 10

// Repositories 战斗服务用到的仓储
type Repositories struct {
	Sessions     interfaces.CombatSessionRepository
	Combatants   interfaces.CombatantRepository
	Skills       interfaces.CombatSkillRepository
	Bosses       interfaces.BossInstanceRepository
	Events       interfaces.ActionEventRepository
	Boards       interfaces.BoardRepository
	Participants interfaces.ParticipantRepository
}

// CombatService 战斗会话的开始、推进、施法和查询
type CombatService struct {
	repos     Repositories
	tx        TxRunner
	settler   *Settler
	publisher notify.Publisher
	metrics   *metrics.CombatMetrics
	logger    log.Logger
	service   string

	now     func() time.Time
	newID   func() string
	newSeed func() int64
}

// NewCombatService 创建战斗服务
func NewCombatService(repos Repositories, tx TxRunner, settler *Settler, publisher notify.Publisher, logger log.Logger) *CombatService {
	if logger == nil {
		logger = log.GetLogger()
	}
	if publisher == nil {
		publisher = notify.NatsPublisher{}
	}
	return &CombatService{
		repos:     repos,
		tx:        tx,
		settler:   settler,
		publisher: publisher,
		metrics:   metrics.DefaultCombatMetrics,
		logger:    logger,
		service:   metrics.GetServiceName(),
		now:       time.Now,
		newID:     uuid.NewString,
		newSeed:   randomSeed,
	}
}

// randomSeed 未指定种子时由随机 UUID 派生
func randomSeed() int64 {
	id := uuid.New()
	return int64(binary.BigEndian.Uint64(id[:8]) >> 1)
}

// ==================== 开始战斗 ====================

type bossLink struct {
	combatantID string
	templateID  string
}

// StartCombat 创建会话和参战单位，按先攻排序并进入第一个回合
func (s *CombatService) StartCombat(ctx context.Context, req *StartCombatRequest) (*CombatState, error) {
	if req.BoardID == "" {
		return nil, xerrors.NewValidationError("board_id", "地图ID不能为空")
	}
	if len(req.Participants) < 2 {
		return nil, xerrors.NewValidationError("participants", "至少需要两个参战者")
	}

	seed := s.newSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	var (
		battle *combat.Battle
		report *SettlementReport
	)
	err := s.tx.InTx(ctx, func(exec boil.ContextExecutor) error {
		board, err := s.repos.Boards.Get(ctx, exec, req.CampaignID, req.BoardID)
		if err != nil {
			if errors.Is(err, interfaces.ErrBoardNotFound) {
				return xerrors.FromCode(xerrors.CodeBoardNotFound).WithMetadata("board_id", req.BoardID)
			}
			return dbError(err, "select", "boards")
		}
		previous, err := s.repos.Boards.ActiveBoardID(ctx, exec, req.CampaignID)
		if err != nil {
			if errors.Is(err, interfaces.ErrCampaignNotFound) {
				return xerrors.FromCode(xerrors.CodeCampaignNotFound).WithMetadata("campaign_id", req.CampaignID)
			}
			return dbError(err, "select", "campaigns")
		}
		if previous == board.ID {
			previous = ""
		}

		session := &combat.Session{
			ID:              s.newID(),
			CampaignID:      req.CampaignID,
			Seed:            seed,
			Status:          combat.SessionActive,
			BoardID:         board.ID,
			PreviousBoardID: previous,
			FactionID:       req.FactionID,
			StartedAt:       s.now(),
		}

		combatants, links, err := s.buildCombatants(ctx, exec, req, session.ID, board)
		if err != nil {
			return err
		}
		roster := combat.NewRoster(combatants)
		if roster.LivingCount(combat.SideParty) == 0 || roster.LivingCount(combat.SideHostile) == 0 {
			return xerrors.NewValidationError("participants", "双方都至少需要一个参战单位")
		}

		order := combat.InitiativeOrder(combatants)
		if err := s.repos.Sessions.Create(ctx, exec, session, order); err != nil {
			return dbError(err, "insert", "combat_sessions")
		}
		if err := s.repos.Combatants.CreateBatch(ctx, exec, combatants); err != nil {
			return dbError(err, "insert", "combatants")
		}

		b := combat.NewBattle(session, board, roster, order, combat.NewEventLog(session.ID, 0))
		for _, link := range links {
			phases, err := s.repos.Bosses.ListTemplatePhases(ctx, exec, link.templateID)
			if err != nil {
				return dbError(err, "select", "boss_phases")
			}
			boss := combat.NewBossInstance(session.ID, link.combatantID, 1, phases)
			if err := s.repos.Bosses.Create(ctx, exec, boss, link.templateID); err != nil {
				return dbError(err, "insert", "boss_instances")
			}
			b.AddBoss(boss)
		}
		if err := s.loadNPCSkills(ctx, exec, b); err != nil {
			return err
		}

		if err := s.repos.Boards.Activate(ctx, exec, req.CampaignID, board.ID); err != nil {
			return dbError(err, "update", "campaigns")
		}

		if err := b.Begin(ctx); err != nil {
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
		return nil, err
	}

	s.metrics.IncStarted(s.service)
	s.logger.InfoContext(ctx, "战斗开始",
		log.String("combat_session_id", battle.Session.ID),
		log.Int64("seed", seed),
		log.Int("combatants", len(battle.Roster.All())),
		log.Int("bosses", len(battle.Bosses)))
	s.afterCommit(ctx, battle, report)
	return newCombatState(battle), nil
}

// buildCombatants 校验位置并从角色卡/NPC 模板生成参战单位
func (s *CombatService) buildCombatants(ctx context.Context, exec boil.ContextExecutor, req *StartCombatRequest, sessionID string, board *combat.Board) ([]*combat.Combatant, []bossLink, error) {
	var (
		combatants []*combat.Combatant
		links      []bossLink
	)
	occupied := make(map[combat.Position]bool, len(req.Participants))
	characters := make(map[string]bool)

	for _, p := range req.Participants {
		pos := combat.Position{X: p.X, Y: p.Y}
		if !board.InBounds(pos) || board.IsBlocked(pos) || occupied[pos] {
			return nil, nil, xerrors.FromCode(xerrors.CodeTileBlocked).
				WithMetadata("x", p.X).
				WithMetadata("y", p.Y)
		}
		occupied[pos] = true

		c := &combat.Combatant{
			ID:        s.newID(),
			SessionID: sessionID,
			Pos:       pos,
			IsAlive:   true,
		}

		switch p.Kind {
		case ParticipantCharacter:
			if characters[p.RefID] {
				return nil, nil, xerrors.NewConflictError("combatant", "character already participating").
					WithMetadata("character_id", p.RefID)
			}
			characters[p.RefID] = true

			sheet, err := s.repos.Participants.GetCharacter(ctx, exec, req.CampaignID, p.RefID)
			if err != nil {
				if errors.Is(err, interfaces.ErrCharacterNotFound) {
					return nil, nil, xerrors.FromCode(xerrors.CodeCharacterNotFound).WithMetadata("character_id", p.RefID)
				}
				return nil, nil, dbError(err, "select", "characters")
			}
			c.Name = firstNonEmpty(p.Name, sheet.Name)
			c.EntityType = combat.EntityPlayer
			c.OwnerPlayerID = sheet.PlayerUserID
			c.CharacterID = sheet.ID
			c.Level = sheet.Level
			c.Stats = sheet.Stats
			c.WeaponPower = sheet.WeaponPower
			c.Armor = sheet.Armor
			c.Resist = sheet.Resist
			c.HP, c.HPMax = sheet.HPMax, sheet.HPMax
			c.Power, c.PowerMax = sheet.PowerMax, sheet.PowerMax

		case ParticipantNPC:
			tpl, err := s.repos.Participants.GetNPCTemplate(ctx, exec, req.CampaignID, p.RefID)
			if err != nil {
				if errors.Is(err, interfaces.ErrNPCTemplateNotFound) {
					return nil, nil, xerrors.NewNotFoundError("npc_template", p.RefID)
				}
				return nil, nil, dbError(err, "select", "npc_templates")
			}
			c.Name = firstNonEmpty(p.Name, tpl.Name)
			c.EntityType = combat.EntityNPC
			c.Level = tpl.Level
			c.Stats = tpl.Stats
			c.WeaponPower = tpl.WeaponPower
			c.Armor = tpl.Armor
			c.Resist = tpl.Resist
			c.HP, c.HPMax = tpl.HPMax, tpl.HPMax
			c.Power, c.PowerMax = tpl.PowerMax, tpl.PowerMax
			if tpl.BossTemplateID != "" {
				links = append(links, bossLink{combatantID: c.ID, templateID: tpl.BossTemplateID})
			}

		default:
			return nil, nil, xerrors.NewValidationError("participants.kind", "参战者类型只能是 character 或 npc")
		}
		combatants = append(combatants, c)
	}
	return combatants, links, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ==================== tick / use-skill ====================

// Tick 自动推进 NPC 和召唤物的回合，轮到玩家时停下
func (s *CombatService) Tick(ctx context.Context, req *TickRequest) (*TickResponse, error) {
	steps := req.MaxSteps
	if steps == 0 {
		steps = 1
	}
	if steps < 1 || steps > MaxTickSteps {
		return nil, xerrors.NewValidationError("max_steps", "max_steps 必须在 1 到 10 之间")
	}

	var (
		battle *combat.Battle
		result *combat.TickResult
		report *SettlementReport
	)
	err := s.tx.InTx(ctx, func(exec boil.ContextExecutor) error {
		b, err := s.loadBattle(ctx, exec, req.CampaignID, req.SessionID)
		if err != nil {
			return err
		}
		if !b.Session.Active() {
			return xerrors.FromCode(xerrors.CodeCombatNotActive).WithMetadata("combat_session_id", req.SessionID)
		}

		res, err := b.Tick(ctx, steps)
		if err != nil {
			return err
		}
		report, err = s.persist(ctx, exec, b, true)
		if err != nil {
			return err
		}
		battle, result = b, res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, battle, report)
	return &TickResponse{
		OK:                   true,
		Ticks:                result.Ticks,
		Ended:                result.Ended,
		Outcome:              string(result.Outcome),
		RequiresPlayerAction: result.RequiresPlayerAction,
		CurrentTurnIndex:     result.CurrentTurnIndex,
		NextActorCombatantID: result.NextActorID,
	}, nil
}

// UseSkill 玩家在自己单位的回合施放技能，然后推进一个回合
func (s *CombatService) UseSkill(ctx context.Context, req *UseSkillRequest) (*UseSkillResponse, error) {
	if req.ActorID == "" {
		return nil, xerrors.NewValidationError("actor_combatant_id", "行动单位ID不能为空")
	}
	if req.SkillID == "" {
		return nil, xerrors.NewValidationError("skill_id", "技能ID不能为空")
	}

	var (
		battle *combat.Battle
		result *combat.TurnResult
		report *SettlementReport
	)
	err := s.tx.InTx(ctx, func(exec boil.ContextExecutor) error {
		b, err := s.loadBattle(ctx, exec, req.CampaignID, req.SessionID)
		if err != nil {
			return err
		}
		if !b.Session.Active() {
			return xerrors.FromCode(xerrors.CodeCombatNotActive).WithMetadata("combat_session_id", req.SessionID)
		}

		actor, ok := b.Roster.Get(req.ActorID)
		if !ok {
			return xerrors.NewCombatantNotFoundError(req.ActorID)
		}
		if actor.OwnerPlayerID != req.UserID {
			return xerrors.NewPermissionError("combatant", "use_skill").
				WithUser(req.UserID).
				WithMetadata("combatant_id", actor.ID)
		}

		skill, err := s.resolveSkill(ctx, exec, actor, req.SkillID)
		if err != nil {
			return err
		}

		res, err := b.UseSkill(ctx, actor.ID, skill, req.Target)
		if err != nil {
			s.metrics.IncSkillCast(s.service, false)
			return err
		}
		report, err = s.persist(ctx, exec, b, true)
		if err != nil {
			return err
		}
		battle, result = b, res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSkillCast(s.service, true)
	s.afterCommit(ctx, battle, report)

	resp := &UseSkillResponse{OK: true}
	if result.Ended {
		resp.Ended = true
		resp.Outcome = string(result.Outcome)
		return resp, nil
	}
	next := result.NextTurnIndex
	resp.NextTurnIndex = &next
	resp.NextActorCombatantID = result.NextActorID
	return resp, nil
}

// resolveSkill 保留 key 使用内置定义，其余必须是该角色拥有的技能
func (s *CombatService) resolveSkill(ctx context.Context, exec boil.ContextExecutor, actor *combat.Combatant, skillID string) (*combat.Skill, error) {
	if skill, ok := combat.BuiltinSkill(skillID); ok {
		return skill, nil
	}
	if _, err := uuid.Parse(skillID); err != nil {
		return nil, xerrors.NewSkillNotFoundError(skillID)
	}

	skill, err := s.repos.Skills.GetByID(ctx, exec, skillID)
	if err != nil {
		if errors.Is(err, interfaces.ErrCombatSkillNotFound) {
			return nil, xerrors.NewSkillNotFoundError(skillID)
		}
		return nil, dbError(err, "select", "skills")
	}
	if skill.CharacterID == "" || skill.CharacterID != actor.CharacterID {
		return nil, xerrors.FromCode(xerrors.CodeSkillNotLearned).
			WithMetadata("skill_id", skillID).
			WithMetadata("combatant_id", actor.ID)
	}
	return skill, nil
}

// ==================== 查询 ====================

// GetState 会话状态快照（不加锁）
func (s *CombatService) GetState(ctx context.Context, campaignID, sessionID string) (*CombatState, error) {
	session, err := s.repos.Sessions.Get(ctx, campaignID, sessionID)
	if err != nil {
		return nil, sessionError(err, sessionID)
	}
	battle, err := s.assemble(ctx, nil, session)
	if err != nil {
		return nil, err
	}
	return newCombatState(battle), nil
}

// ListEvents 按 sequence 分页读取事件
func (s *CombatService) ListEvents(ctx context.Context, campaignID, sessionID string, after int64, limit int) (*EventPage, error) {
	if after < 0 {
		return nil, xerrors.NewValidationError("after", "after 不能为负数")
	}
	if _, err := s.repos.Sessions.Get(ctx, campaignID, sessionID); err != nil {
		return nil, sessionError(err, sessionID)
	}
	events, err := s.repos.Events.ListAfter(ctx, sessionID, after, limit)
	if err != nil {
		return nil, dbError(err, "select", "action_events")
	}
	page := &EventPage{Events: events, NextAfter: after}
	if page.Events == nil {
		page.Events = []combat.Event{}
	}
	if n := len(events); n > 0 {
		page.NextAfter = events[n-1].Sequence
	}
	return page, nil
}

// ==================== 加载与写回 ====================

// loadBattle 锁定会话行并加载完整战斗状态
func (s *CombatService) loadBattle(ctx context.Context, exec boil.ContextExecutor, campaignID, sessionID string) (*combat.Battle, error) {
	session, err := s.repos.Sessions.GetForUpdate(ctx, exec, campaignID, sessionID)
	if err != nil {
		return nil, sessionError(err, sessionID)
	}
	return s.assemble(ctx, exec, session)
}

func (s *CombatService) assemble(ctx context.Context, exec boil.ContextExecutor, session *combat.Session) (*combat.Battle, error) {
	order, err := s.repos.Sessions.GetTurnOrder(ctx, exec, session.ID)
	if err != nil {
		if errors.Is(err, interfaces.ErrTurnOrderNotFound) {
			return nil, xerrors.New(xerrors.CodeDataIntegrityError, "回合顺序缺失").
				WithMetadata("combat_session_id", session.ID)
		}
		return nil, dbError(err, "select", "turn_orders")
	}
	combatants, err := s.repos.Combatants.ListBySession(ctx, exec, session.ID)
	if err != nil {
		return nil, dbError(err, "select", "combatants")
	}
	board, err := s.repos.Boards.Get(ctx, exec, session.CampaignID, session.BoardID)
	if err != nil {
		if errors.Is(err, interfaces.ErrBoardNotFound) {
			return nil, xerrors.FromCode(xerrors.CodeBoardNotFound).WithMetadata("board_id", session.BoardID)
		}
		return nil, dbError(err, "select", "boards")
	}
	lastSeq, err := s.repos.Events.LastSequence(ctx, exec, session.ID)
	if err != nil {
		return nil, dbError(err, "select", "action_events")
	}

	battle := combat.NewBattle(session, board, combat.NewRoster(combatants), order, combat.NewEventLog(session.ID, lastSeq))

	bosses, err := s.repos.Bosses.ListBySession(ctx, exec, session.ID)
	if err != nil {
		return nil, dbError(err, "select", "boss_instances")
	}
	for _, boss := range bosses {
		battle.AddBoss(boss)
	}
	if err := s.loadNPCSkills(ctx, exec, battle); err != nil {
		return nil, err
	}
	return battle, nil
}

// loadNPCSkills 加载 boss 所有阶段技能池引用的技能
func (s *CombatService) loadNPCSkills(ctx context.Context, exec boil.ContextExecutor, battle *combat.Battle) error {
	var keys []string
	for _, boss := range battle.Bosses {
		for _, phase := range boss.Phases {
			keys = strmangle.SetMerge(keys, phase.SkillPool)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	skills, err := s.repos.Skills.ListNPCSkillsByKeys(ctx, exec, keys)
	if err != nil {
		return dbError(err, "select", "skills")
	}
	for _, skill := range skills {
		battle.NPCSkills[skill.Key] = skill
	}
	return nil
}

// persist 写回本次请求的全部变化。会话在本次请求中结束时先结算，结算事件随其他事件一起追加
func (s *CombatService) persist(ctx context.Context, exec boil.ContextExecutor, battle *combat.Battle, wasActive bool) (*SettlementReport, error) {
	var report *SettlementReport
	if wasActive && !battle.Session.Active() {
		r, err := s.settler.Apply(ctx, exec, battle.Settle())
		if err != nil {
			return nil, err
		}
		report = r
	}

	for _, c := range battle.Roster.Changed() {
		if err := s.repos.Combatants.Update(ctx, exec, c); err != nil {
			return nil, dbError(err, "update", "combatants")
		}
	}
	for _, boss := range battle.ChangedBosses() {
		if err := s.repos.Bosses.UpdatePhase(ctx, exec, boss); err != nil {
			return nil, dbError(err, "update", "boss_instances")
		}
	}
	if err := s.repos.Sessions.Update(ctx, exec, battle.Session); err != nil {
		return nil, sessionError(err, battle.Session.ID)
	}
	if events := battle.Events.Events(); len(events) > 0 {
		if err := s.repos.Events.Append(ctx, exec, events); err != nil {
			return nil, dbError(err, "insert", "action_events")
		}
	}
	return report, nil
}

// afterCommit 提交后记录指标、日志并广播事件。广播失败不影响请求结果
func (s *CombatService) afterCommit(ctx context.Context, battle *combat.Battle, report *SettlementReport) {
	events := battle.Events.Events()
	s.recordMetrics(battle, events)
	for _, e := range events {
		log.LogCombatEvent(ctx, s.logger, e.SessionID, e.TurnIndex, string(e.Type), e.ActorID)
	}

	pubCtx := context.WithoutCancel(ctx)
	if len(events) > 0 {
		if err := s.publisher.PublishCombatEvents(pubCtx, battle.Session.ID, events); err != nil {
			s.logger.WarnContext(ctx, "广播战斗事件失败",
				log.String("combat_session_id", battle.Session.ID),
				log.Any("error", err))
		}
	}
	if report != nil {
		payload := map[string]any{
			"combat_session_id": battle.Session.ID,
			"campaign_id":       battle.Session.CampaignID,
			"settlement":        report,
		}
		if err := s.publisher.PublishCombatEnded(pubCtx, payload); err != nil {
			s.logger.WarnContext(ctx, "广播战斗结束失败",
				log.String("combat_session_id", battle.Session.ID),
				log.Any("error", err))
		}
	}
}

func (s *CombatService) recordMetrics(battle *combat.Battle, events []combat.Event) {
	actorKind := func(id string) string {
		if c, ok := battle.Roster.Get(id); ok {
			return string(c.EntityType)
		}
		return "unknown"
	}
	for _, e := range events {
		switch e.Type {
		case combat.EventSkillUsed:
			s.metrics.IncTurn(s.service, actorKind(e.ActorID), false)
		case combat.EventTurnSkipped:
			s.metrics.IncTurn(s.service, actorKind(e.ActorID), true)
		case combat.EventDamage:
			amount, _ := e.Payload["amount"].(int)
			crit, _ := e.Payload["crit"].(bool)
			s.metrics.ObserveDamage(s.service, amount, crit)
		case combat.EventCombatEnd:
			outcome, _ := e.Payload["outcome"].(string)
			s.metrics.IncEnded(s.service, outcome)
		}
	}
}
