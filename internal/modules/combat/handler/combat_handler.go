// Package handler 战斗模块的 HTTP 与 RPC 入口
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tsu-tactics/internal/domain/combat"
	custommiddleware "tsu-tactics/internal/middleware"
	"tsu-tactics/internal/modules/combat/service"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/xerrors"
)

const (
	defaultEventPageSize = 100
	maxEventPageSize     = 500
)

// CombatOperations 处理器依赖的战斗服务操作
type CombatOperations interface {
	StartCombat(ctx context.Context, req *service.StartCombatRequest) (*service.CombatState, error)
	Tick(ctx context.Context, req *service.TickRequest) (*service.TickResponse, error)
	UseSkill(ctx context.Context, req *service.UseSkillRequest) (*service.UseSkillResponse, error)
	GetState(ctx context.Context, campaignID, sessionID string) (*service.CombatState, error)
	ListEvents(ctx context.Context, campaignID, sessionID string, after int64, limit int) (*service.EventPage, error)
}

// CombatHandler 战斗会话 HTTP 处理器
type CombatHandler struct {
	combatService CombatOperations
	respWriter    response.Writer
}

// NewCombatHandler 创建战斗处理器
func NewCombatHandler(combatService CombatOperations, respWriter response.Writer) *CombatHandler {
	return &CombatHandler{
		combatService: combatService,
		respWriter:    respWriter,
	}
}

// ==================== HTTP Request Models ====================

// ParticipantRequest 参战者
type ParticipantRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=character npc"`
	RefID string `json:"ref_id" validate:"required,uuid"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=64"`
	X     int    `json:"x" validate:"min=0"`
	Y     int    `json:"y" validate:"min=0"`
}

// StartCombatRequest 开始战斗请求
type StartCombatRequest struct {
	BoardID      string               `json:"board_id" validate:"required,uuid"`
	FactionID    string               `json:"faction_id,omitempty" validate:"omitempty,max=64"`
	Seed         *int64               `json:"seed,omitempty"`
	Participants []ParticipantRequest `json:"participants" validate:"required,min=2,max=32,dive"`
}

// TickRequest 推进请求，max_steps 缺省为 1
type TickRequest struct {
	MaxSteps int `json:"max_steps" validate:"omitempty,min=1,max=10"`
}

// TargetRequest 技能目标
type TargetRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=self combatant tile"`
	CombatantID string `json:"combatant_id,omitempty" validate:"omitempty,uuid"`
	X           int    `json:"x,omitempty" validate:"min=0"`
	Y           int    `json:"y,omitempty" validate:"min=0"`
}

// UseSkillRequest 施放技能请求
type UseSkillRequest struct {
	ActorCombatantID string        `json:"actor_combatant_id" validate:"required,uuid"`
	SkillID          string        `json:"skill_id" validate:"required,max=64"`
	Target           TargetRequest `json:"target"`
}

// bindAndValidate 请求体绑定失败统一返回 400
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return xerrors.NewValidationError("request", "请求格式错误")
	}
	return c.Validate(req)
}

// ==================== HTTP Handlers ====================

// StartCombat 开始战斗
// @Summary 开始战斗
// @Description 在指定地图上创建战斗会话，按先攻排序并进入第一个回合
// @Tags 战斗
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param campaign_id path string true "战役ID"
// @Param Idempotency-Key header string false "幂等键"
// @Param request body StartCombatRequest true "开始战斗请求"
// @Success 201 {object} service.CombatState "会话状态"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "请求参数错误"
// @Failure 404 {object} response.ResponseResult[response.EmptyData] "地图或参战者不存在"
// @Failure 409 {object} response.ResponseResult[response.EmptyData] "格子被占用"
// @Router /combat/campaigns/{campaign_id}/sessions [post]
func (h *CombatHandler) StartCombat(c echo.Context) error {
	userID, err := custommiddleware.GetCurrentUserID(c)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	var req StartCombatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	participants := make([]service.ParticipantInput, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = service.ParticipantInput{
			Kind:  service.ParticipantKind(p.Kind),
			RefID: p.RefID,
			Name:  p.Name,
			X:     p.X,
			Y:     p.Y,
		}
	}

	state, err := h.combatService.StartCombat(c.Request().Context(), &service.StartCombatRequest{
		CampaignID:   c.Param("campaign_id"),
		UserID:       userID,
		BoardID:      req.BoardID,
		FactionID:    req.FactionID,
		Seed:         req.Seed,
		Participants: participants,
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoJSON(c, h.respWriter, state, http.StatusCreated)
}

// Tick 推进 NPC 回合
// @Summary 推进 NPC 回合
// @Description 自动执行 NPC 和召唤物的回合，轮到玩家或战斗结束时停下
// @Tags 战斗
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param campaign_id path string true "战役ID"
// @Param session_id path string true "战斗会话ID"
// @Param Idempotency-Key header string false "幂等键"
// @Param request body TickRequest false "推进请求"
// @Success 200 {object} service.TickResponse "推进结果"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "请求参数错误"
// @Failure 404 {object} response.ResponseResult[response.EmptyData] "会话不存在"
// @Failure 409 {object} response.ResponseResult[response.EmptyData] "战斗已结束"
// @Failure 429 {object} response.ResponseResult[response.EmptyData] "请求过于频繁"
// @Router /combat/campaigns/{campaign_id}/sessions/{session_id}/tick [post]
func (h *CombatHandler) Tick(c echo.Context) error {
	userID, err := custommiddleware.GetCurrentUserID(c)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	// 空请求体按 max_steps=1 处理
	var req TickRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	resp, err := h.combatService.Tick(c.Request().Context(), &service.TickRequest{
		CampaignID: c.Param("campaign_id"),
		SessionID:  c.Param("session_id"),
		UserID:     userID,
		MaxSteps:   req.MaxSteps,
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoJSON(c, h.respWriter, resp, http.StatusOK)
}

// UseSkill 施放技能
// @Summary 施放技能
// @Description 当前回合的玩家单位施放技能，然后推进一个回合
// @Tags 战斗
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param campaign_id path string true "战役ID"
// @Param session_id path string true "战斗会话ID"
// @Param Idempotency-Key header string false "幂等键"
// @Param request body UseSkillRequest true "施放请求"
// @Success 200 {object} service.UseSkillResponse "施放结果"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "请求参数错误"
// @Failure 403 {object} response.ResponseResult[response.EmptyData] "不能操作该单位"
// @Failure 404 {object} response.ResponseResult[response.EmptyData] "会话、单位或技能不存在"
// @Failure 409 {object} response.ResponseResult[response.EmptyData] "不是该单位的回合、冷却中或目标无效"
// @Failure 429 {object} response.ResponseResult[response.EmptyData] "请求过于频繁"
// @Router /combat/campaigns/{campaign_id}/sessions/{session_id}/use-skill [post]
func (h *CombatHandler) UseSkill(c echo.Context) error {
	userID, err := custommiddleware.GetCurrentUserID(c)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	var req UseSkillRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	if req.Target.Kind == string(combat.TargetKindCombatant) && req.Target.CombatantID == "" {
		return response.EchoError(c, h.respWriter, xerrors.NewValidationError("target.combatant_id", "目标单位ID不能为空"))
	}

	resp, err := h.combatService.UseSkill(c.Request().Context(), &service.UseSkillRequest{
		CampaignID: c.Param("campaign_id"),
		SessionID:  c.Param("session_id"),
		UserID:     userID,
		ActorID:    req.ActorCombatantID,
		SkillID:    req.SkillID,
		Target: combat.TargetRequest{
			Kind:        combat.TargetKind(req.Target.Kind),
			CombatantID: req.Target.CombatantID,
			X:           req.Target.X,
			Y:           req.Target.Y,
		},
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoJSON(c, h.respWriter, resp, http.StatusOK)
}

// GetState 查询会话状态
// @Summary 查询战斗状态
// @Tags 战斗
// @Produce json
// @Security BearerAuth
// @Param campaign_id path string true "战役ID"
// @Param session_id path string true "战斗会话ID"
// @Success 200 {object} service.CombatState "会话状态"
// @Failure 404 {object} response.ResponseResult[response.EmptyData] "会话不存在"
// @Router /combat/campaigns/{campaign_id}/sessions/{session_id} [get]
func (h *CombatHandler) GetState(c echo.Context) error {
	state, err := h.combatService.GetState(c.Request().Context(), c.Param("campaign_id"), c.Param("session_id"))
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoJSON(c, h.respWriter, state, http.StatusOK)
}

// ListEvents 分页查询事件
// @Summary 查询战斗事件
// @Description 按 sequence 升序返回 after 之后的事件
// @Tags 战斗
// @Produce json
// @Security BearerAuth
// @Param campaign_id path string true "战役ID"
// @Param session_id path string true "战斗会话ID"
// @Param after query int false "上一页最后一条的 sequence"
// @Param limit query int false "每页数量，默认 100，最大 500"
// @Success 200 {object} service.EventPage "事件分页"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "请求参数错误"
// @Failure 404 {object} response.ResponseResult[response.EmptyData] "会话不存在"
// @Router /combat/campaigns/{campaign_id}/sessions/{session_id}/events [get]
func (h *CombatHandler) ListEvents(c echo.Context) error {
	var after int64
	if raw := c.QueryParam("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return response.EchoError(c, h.respWriter, xerrors.NewValidationError("after", "after 必须是非负整数"))
		}
		after = v
	}

	limit := defaultEventPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxEventPageSize {
			return response.EchoError(c, h.respWriter, xerrors.NewValidationError("limit", "limit 必须在 1 到 500 之间"))
		}
		limit = v
	}

	page, err := h.combatService.ListEvents(c.Request().Context(), c.Param("campaign_id"), c.Param("session_id"), after, limit)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoJSON(c, h.respWriter, page, http.StatusOK)
}
