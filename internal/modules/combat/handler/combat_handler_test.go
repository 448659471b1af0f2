package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"tsu-tactics/internal/domain/combat"
	custommiddleware "tsu-tactics/internal/middleware"
	"tsu-tactics/internal/modules/combat/service"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/validator"
	"tsu-tactics/internal/pkg/xerrors"
)

const (
	campaignID = "6f1c2a4e-1d8b-4c52-9a61-2b7e0f3d5a10"
	sessionID  = "a3b9e1c7-52f4-4e0d-8c3a-7d19f6b2e840"
	actorID    = "0c4e8f2a-9b17-4d6e-a5c3-1f8b2d7e9a01"
	targetID   = "d7a2c5e9-3f81-4b6c-9e04-8a1b6c3f2d55"
	boardID    = "5e8a1c3f-7b24-4d9e-b6a0-3c2f9e1d7b48"
	userID     = "user-1"
)

// fakeCombat 记录收到的请求并返回预设结果
type fakeCombat struct {
	startReq *service.StartCombatRequest
	tickReq  *service.TickRequest
	skillReq *service.UseSkillRequest
	after    int64
	limit    int

	state    *service.CombatState
	tickResp *service.TickResponse
	useResp  *service.UseSkillResponse
	page     *service.EventPage
	err      error
}

func (f *fakeCombat) StartCombat(_ context.Context, req *service.StartCombatRequest) (*service.CombatState, error) {
	f.startReq = req
	return f.state, f.err
}

func (f *fakeCombat) Tick(_ context.Context, req *service.TickRequest) (*service.TickResponse, error) {
	f.tickReq = req
	return f.tickResp, f.err
}

func (f *fakeCombat) UseSkill(_ context.Context, req *service.UseSkillRequest) (*service.UseSkillResponse, error) {
	f.skillReq = req
	return f.useResp, f.err
}

func (f *fakeCombat) GetState(_ context.Context, _, _ string) (*service.CombatState, error) {
	return f.state, f.err
}

func (f *fakeCombat) ListEvents(_ context.Context, _, _ string, after int64, limit int) (*service.EventPage, error) {
	f.after, f.limit = after, limit
	return f.page, f.err
}

type errorBody struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// newTestServer 注册与模块相同的路由，认证用固定用户代替
func newTestServer(svc *fakeCombat, authenticated bool) *echo.Echo {
	e := echo.New()
	e.Validator = validator.New()
	h := NewCombatHandler(svc, response.NewResponseHandler(log.Discard(), "test"))

	g := e.Group("/api/v1/combat/campaigns/:campaign_id/sessions")
	if authenticated {
		g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				custommiddleware.SetCurrentUser(c, &custommiddleware.CurrentUser{UserID: userID})
				return next(c)
			}
		})
	}
	g.POST("", h.StartCombat)
	g.POST("/:session_id/tick", h.Tick)
	g.POST("/:session_id/use-skill", h.UseSkill)
	g.GET("/:session_id", h.GetState)
	g.GET("/:session_id/events", h.ListEvents)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

var sessionsPath = "/api/v1/combat/campaigns/" + campaignID + "/sessions"

func TestCombatHandler_StartCombat(t *testing.T) {
	validBody := `{
		"board_id": "` + boardID + `",
		"faction_id": "guild",
		"seed": 42,
		"participants": [
			{"kind": "character", "ref_id": "` + actorID + `", "x": 0, "y": 0},
			{"kind": "npc", "ref_id": "` + targetID + `", "name": "Goblin", "x": 1, "y": 0}
		]
	}`

	t.Run("成功开始战斗", func(t *testing.T) {
		svc := &fakeCombat{state: &service.CombatState{SessionID: sessionID, Status: "active"}}
		rec := do(newTestServer(svc, true), http.MethodPost, sessionsPath, validBody)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"combat_session_id":"`+sessionID+`","campaign_id":"","status":"active","seed":0,"board_id":"","current_turn_index":0,"turn_order":null,"combatants":null}`, rec.Body.String())

		require.NotNil(t, svc.startReq)
		assert.Equal(t, campaignID, svc.startReq.CampaignID)
		assert.Equal(t, userID, svc.startReq.UserID)
		assert.Equal(t, boardID, svc.startReq.BoardID)
		require.NotNil(t, svc.startReq.Seed)
		assert.Equal(t, int64(42), *svc.startReq.Seed)
		require.Len(t, svc.startReq.Participants, 2)
		assert.Equal(t, service.ParticipantNPC, svc.startReq.Participants[1].Kind)
		assert.Equal(t, "Goblin", svc.startReq.Participants[1].Name)
		assert.Equal(t, 1, svc.startReq.Participants[1].X)
	})

	tests := []struct {
		name string
		body string
	}{
		{"缺少地图", `{"participants":[{"kind":"character","ref_id":"` + actorID + `"},{"kind":"npc","ref_id":"` + targetID + `"}]}`},
		{"参战者不足", `{"board_id":"` + boardID + `","participants":[{"kind":"character","ref_id":"` + actorID + `"}]}`},
		{"参战者类型错误", `{"board_id":"` + boardID + `","participants":[{"kind":"dragon","ref_id":"` + actorID + `"},{"kind":"npc","ref_id":"` + targetID + `"}]}`},
		{"坐标为负", `{"board_id":"` + boardID + `","participants":[{"kind":"character","ref_id":"` + actorID + `","x":-1},{"kind":"npc","ref_id":"` + targetID + `"}]}`},
		{"请求体不是 JSON", `{"board_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCombat{}
			rec := do(newTestServer(svc, true), http.MethodPost, sessionsPath, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, xerrors.CodeInvalidParams.ToInt(), decodeError(t, rec).Code)
			assert.Nil(t, svc.startReq)
		})
	}

	t.Run("未认证", func(t *testing.T) {
		svc := &fakeCombat{}
		rec := do(newTestServer(svc, false), http.MethodPost, sessionsPath, validBody)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, svc.startReq)
	})
}

func TestCombatHandler_Tick(t *testing.T) {
	path := sessionsPath + "/" + sessionID + "/tick"

	t.Run("空请求体按默认步数推进", func(t *testing.T) {
		svc := &fakeCombat{tickResp: &service.TickResponse{
			OK: true, Ticks: 1, RequiresPlayerAction: true, CurrentTurnIndex: 3, NextActorCombatantID: actorID,
		}}
		rec := do(newTestServer(svc, true), http.MethodPost, path, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"ticks":1,"ended":false,"requires_player_action":true,"current_turn_index":3,"next_actor_combatant_id":"`+actorID+`"}`, rec.Body.String())
		require.NotNil(t, svc.tickReq)
		assert.Equal(t, 0, svc.tickReq.MaxSteps)
		assert.Equal(t, sessionID, svc.tickReq.SessionID)
		assert.Equal(t, userID, svc.tickReq.UserID)
	})

	t.Run("max_steps 越界", func(t *testing.T) {
		svc := &fakeCombat{}
		rec := do(newTestServer(svc, true), http.MethodPost, path, `{"max_steps":11}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, svc.tickReq)
	})

	t.Run("业务错误按错误码返回", func(t *testing.T) {
		svc := &fakeCombat{err: xerrors.FromCode(xerrors.CodeCombatNotActive)}
		rec := do(newTestServer(svc, true), http.MethodPost, path, `{"max_steps":5}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, xerrors.CodeCombatNotActive.ToInt(), decodeError(t, rec).Code)
		assert.Equal(t, 5, svc.tickReq.MaxSteps)
	})
}

func TestCombatHandler_UseSkill(t *testing.T) {
	path := sessionsPath + "/" + sessionID + "/use-skill"

	t.Run("战斗结束时只返回结果", func(t *testing.T) {
		svc := &fakeCombat{useResp: &service.UseSkillResponse{OK: true, Ended: true, Outcome: "victory"}}
		body := `{"actor_combatant_id":"` + actorID + `","skill_id":"basic_attack","target":{"kind":"combatant","combatant_id":"` + targetID + `"}}`
		rec := do(newTestServer(svc, true), http.MethodPost, path, body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"ended":true,"outcome":"victory"}`, rec.Body.String())
		require.NotNil(t, svc.skillReq)
		assert.Equal(t, actorID, svc.skillReq.ActorID)
		assert.Equal(t, "basic_attack", svc.skillReq.SkillID)
		assert.Equal(t, combat.TargetRequest{Kind: combat.TargetKindCombatant, CombatantID: targetID}, svc.skillReq.Target)
	})

	t.Run("未结束时返回下一个行动者", func(t *testing.T) {
		next := 4
		svc := &fakeCombat{useResp: &service.UseSkillResponse{OK: true, NextTurnIndex: &next, NextActorCombatantID: targetID}}
		body := `{"actor_combatant_id":"` + actorID + `","skill_id":"basic_attack","target":{"kind":"tile","x":2,"y":3}}`
		rec := do(newTestServer(svc, true), http.MethodPost, path, body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"next_turn_index":4,"next_actor_combatant_id":"`+targetID+`"}`, rec.Body.String())
		assert.Equal(t, combat.TargetRequest{Kind: combat.TargetKindTile, X: 2, Y: 3}, svc.skillReq.Target)
	})

	tests := []struct {
		name string
		body string
	}{
		{"目标类型错误", `{"actor_combatant_id":"` + actorID + `","skill_id":"basic_attack","target":{"kind":"everyone"}}`},
		{"缺少目标", `{"actor_combatant_id":"` + actorID + `","skill_id":"basic_attack"}`},
		{"单位目标缺少ID", `{"actor_combatant_id":"` + actorID + `","skill_id":"basic_attack","target":{"kind":"combatant"}}`},
		{"行动单位不是 UUID", `{"actor_combatant_id":"hero","skill_id":"basic_attack","target":{"kind":"self"}}`},
		{"缺少技能", `{"actor_combatant_id":"` + actorID + `","target":{"kind":"self"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCombat{}
			rec := do(newTestServer(svc, true), http.MethodPost, path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.skillReq)
		})
	}

	t.Run("不是自己的回合", func(t *testing.T) {
		svc := &fakeCombat{err: xerrors.NewNotYourTurnError(actorID, targetID)}
		body := `{"actor_combatant_id":"` + actorID + `","skill_id":"basic_attack","target":{"kind":"self"}}`
		rec := do(newTestServer(svc, true), http.MethodPost, path, body)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, xerrors.CodeNotYourTurn.ToInt(), decodeError(t, rec).Code)
	})
}

func TestCombatHandler_ListEvents(t *testing.T) {
	path := sessionsPath + "/" + sessionID + "/events"

	t.Run("默认分页", func(t *testing.T) {
		svc := &fakeCombat{page: &service.EventPage{Events: []combat.Event{}, NextAfter: 0}}
		rec := do(newTestServer(svc, true), http.MethodGet, path, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"events":[],"next_after":0}`, rec.Body.String())
		assert.Equal(t, int64(0), svc.after)
		assert.Equal(t, defaultEventPageSize, svc.limit)
	})

	t.Run("指定 after 和 limit", func(t *testing.T) {
		svc := &fakeCombat{page: &service.EventPage{Events: []combat.Event{}, NextAfter: 12}}
		rec := do(newTestServer(svc, true), http.MethodGet, path+"?after=12&limit=20", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(12), svc.after)
		assert.Equal(t, 20, svc.limit)
	})

	for _, query := range []string{"?after=abc", "?after=-1", "?limit=0", "?limit=501"} {
		t.Run("非法参数"+query, func(t *testing.T) {
			svc := &fakeCombat{}
			rec := do(newTestServer(svc, true), http.MethodGet, path+query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCombatRPCHandler_GetCombatState(t *testing.T) {
	encode := func(t *testing.T, fields map[string]any) []byte {
		t.Helper()
		req, err := structpb.NewStruct(fields)
		require.NoError(t, err)
		data, err := proto.Marshal(req)
		require.NoError(t, err)
		return data
	}

	t.Run("返回状态快照", func(t *testing.T) {
		svc := &fakeCombat{state: &service.CombatState{
			SessionID:  sessionID,
			CampaignID: campaignID,
			Status:     "active",
			Seed:       9007199254740993,
			TurnOrder:  []string{actorID, targetID},
		}}
		h := NewCombatRPCHandler(svc)

		data, err := h.GetCombatState(encode(t, map[string]any{
			"campaign_id":       campaignID,
			"combat_session_id": sessionID,
		}))
		require.NoError(t, err)

		resp := &structpb.Struct{}
		require.NoError(t, proto.Unmarshal(data, resp))
		fields := resp.GetFields()
		assert.Equal(t, sessionID, fields["combat_session_id"].GetStringValue())
		assert.Equal(t, "active", fields["status"].GetStringValue())
		assert.Equal(t, "9007199254740993", fields["seed"].GetStringValue())
		assert.Len(t, fields["turn_order"].GetListValue().GetValues(), 2)
	})

	t.Run("参数错误", func(t *testing.T) {
		h := NewCombatRPCHandler(&fakeCombat{})

		_, err := h.GetCombatState([]byte("not protobuf"))
		assert.Error(t, err)

		_, err = h.GetCombatState(encode(t, map[string]any{"campaign_id": "x", "combat_session_id": sessionID}))
		assert.True(t, xerrors.HasCode(err, xerrors.CodeInvalidParams))

		_, err = h.GetCombatState(encode(t, map[string]any{"campaign_id": campaignID, "combat_session_id": "x"}))
		assert.True(t, xerrors.HasCode(err, xerrors.CodeCombatSessionNotFound))
	})

	t.Run("服务错误原样返回", func(t *testing.T) {
		h := NewCombatRPCHandler(&fakeCombat{err: xerrors.NewCombatSessionNotFoundError(sessionID)})

		_, err := h.GetCombatState(encode(t, map[string]any{
			"campaign_id":       campaignID,
			"combat_session_id": sessionID,
		}))
		assert.True(t, xerrors.HasCode(err, xerrors.CodeCombatSessionNotFound))
	})
}
