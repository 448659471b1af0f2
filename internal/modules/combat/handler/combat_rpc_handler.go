package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"tsu-tactics/internal/modules/combat/service"
	"tsu-tactics/internal/pkg/xerrors"
)

const rpcTimeout = 5 * time.Second

// CombatStateReader RPC 只需要只读查询
type CombatStateReader interface {
	GetState(ctx context.Context, campaignID, sessionID string) (*service.CombatState, error)
}

// CombatRPCHandler 战斗 RPC 处理器
// 供其他模块（叙事、战役管理）读取战斗状态，请求和响应都是 structpb.Struct
type CombatRPCHandler struct {
	reader CombatStateReader
}

// NewCombatRPCHandler 创建战斗 RPC Handler
func NewCombatRPCHandler(reader CombatStateReader) *CombatRPCHandler {
	return &CombatRPCHandler{reader: reader}
}

// GetCombatState 查询会话状态
// 请求字段：campaign_id, combat_session_id
func (h *CombatRPCHandler) GetCombatState(data []byte) ([]byte, error) {
	req := &structpb.Struct{}
	if err := proto.Unmarshal(data, req); err != nil {
		return nil, xerrors.NewValidationError("request", "invalid protobuf data")
	}

	fields := req.GetFields()
	campaignID := fields["campaign_id"].GetStringValue()
	sessionID := fields["combat_session_id"].GetStringValue()
	if _, err := uuid.Parse(campaignID); err != nil {
		return nil, xerrors.NewValidationError("campaign_id", "campaign_id 必须是 UUID")
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, xerrors.NewCombatSessionNotFoundError(sessionID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	state, err := h.reader.GetState(ctx, campaignID, sessionID)
	if err != nil {
		return nil, err
	}

	resp, err := toStruct(state)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeInternalError, "failed to encode combat state")
	}
	// seed 超出 float64 精度，按字符串传递
	resp.Fields["seed"] = structpb.NewStringValue(strconv.FormatInt(state.Seed, 10))

	return proto.Marshal(resp)
}

// toStruct 按 JSON 字段名转换
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
