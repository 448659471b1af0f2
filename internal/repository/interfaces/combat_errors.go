package interfaces

import "errors"

var (
	// ErrCombatSessionNotFound 会话不存在或不属于该战役
	ErrCombatSessionNotFound = errors.New("combat session not found")
	// ErrCombatSkillNotFound 技能不存在
	ErrCombatSkillNotFound = errors.New("combat skill not found")
	// ErrBoardNotFound 地图不存在
	ErrBoardNotFound = errors.New("board not found")
	// ErrCampaignNotFound 战役不存在
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrCharacterNotFound 角色不存在
	ErrCharacterNotFound = errors.New("character not found")
	// ErrNPCTemplateNotFound NPC 模板不存在
	ErrNPCTemplateNotFound = errors.New("npc template not found")
	// ErrTurnOrderNotFound 回合顺序缺失
	ErrTurnOrderNotFound = errors.New("turn order not found")
	// ErrEventSequenceConflict 事件序号重复，有并发写入绕过了行锁
	ErrEventSequenceConflict = errors.New("action event sequence conflict")
)
