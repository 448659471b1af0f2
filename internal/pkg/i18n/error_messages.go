package i18n

import (
	"tsu-tactics/internal/pkg/xerrors"

	"golang.org/x/text/language"
)

// ErrorMessages 错误消息的多语言映射
var ErrorMessages = map[xerrors.ErrorCode]map[language.Tag]string{
	// 1xxxxx: 通用错误码
	xerrors.CodeSuccess:           {language.Chinese: "操作成功", language.English: "Operation successful"},
	xerrors.CodeInternalError:     {language.Chinese: "内部服务错误", language.English: "Internal server error"},
	xerrors.CodeInvalidParams:     {language.Chinese: "参数错误", language.English: "Invalid parameters"},
	xerrors.CodeInvalidRequest:    {language.Chinese: "请求格式错误", language.English: "Invalid request format"},
	xerrors.CodeResourceNotFound:  {language.Chinese: "资源不存在", language.English: "Resource not found"},
	xerrors.CodeDuplicateResource: {language.Chinese: "资源已存在", language.English: "Resource already exists"},
	xerrors.CodeRateLimitExceeded: {language.Chinese: "请求频率限制", language.English: "Rate limit exceeded"},

	// 2xxxxx: 认证相关错误码
	xerrors.CodeAuthenticationFailed: {language.Chinese: "认证失败", language.English: "Authentication failed"},
	xerrors.CodeInvalidToken:         {language.Chinese: "无效令牌", language.English: "Invalid token"},
	xerrors.CodeTokenExpired:         {language.Chinese: "令牌过期", language.English: "Token expired"},
	xerrors.CodeSessionExpired:       {language.Chinese: "会话过期", language.English: "Session expired"},

	// 3xxxxx: 权限相关错误码
	xerrors.CodePermissionDenied:  {language.Chinese: "权限不足", language.English: "Permission denied"},
	xerrors.CodeNotCampaignMember: {language.Chinese: "不是该战役的成员", language.English: "Not a member of this campaign"},

	// 6xxxxx: 业务逻辑错误码
	xerrors.CodeBusinessLogicError:  {language.Chinese: "业务逻辑错误", language.English: "Business logic error"},
	xerrors.CodeDataIntegrityError:  {language.Chinese: "数据完整性错误", language.English: "Data integrity error"},
	xerrors.CodeOperationNotAllowed: {language.Chinese: "操作不被允许", language.English: "Operation not allowed"},
	xerrors.CodeRequestInProgress:   {language.Chinese: "相同请求正在处理中", language.English: "A request with this idempotency key is in progress"},

	// 7xxxxx: 外部服务错误码
	xerrors.CodeExternalServiceError: {language.Chinese: "外部服务错误", language.English: "External service error"},
	xerrors.CodeKratosError:          {language.Chinese: "Kratos服务错误", language.English: "Kratos service error"},
	xerrors.CodeDatabaseError:        {language.Chinese: "数据库错误", language.English: "Database error"},
	xerrors.CodeCacheError:           {language.Chinese: "缓存服务错误", language.English: "Cache service error"},
	xerrors.CodeMessageQueueError:    {language.Chinese: "消息队列错误", language.English: "Message queue error"},

	// 技能相关 (81xxxx)
	xerrors.CodeSkillNotFound:   {language.Chinese: "技能不存在", language.English: "Skill not found"},
	xerrors.CodeSkillNotLearned: {language.Chinese: "技能不属于该角色", language.English: "Skill does not belong to this character"},
	xerrors.CodeSkillCooldown:   {language.Chinese: "技能冷却中", language.English: "Skill on cooldown"},
	xerrors.CodeSkillManaCost:   {language.Chinese: "能量不足", language.English: "Insufficient power"},
	xerrors.CodeSkillInvalidUse: {language.Chinese: "技能使用条件不满足", language.English: "Skill requirements not met"},

	// 战斗相关 (83xxxx)
	xerrors.CodeCombatSessionNotFound: {language.Chinese: "战斗会话不存在", language.English: "Combat session not found"},
	xerrors.CodeCombatantNotFound:     {language.Chinese: "战斗单位不存在", language.English: "Combatant not found"},
	xerrors.CodeCampaignNotFound:      {language.Chinese: "战役不存在", language.English: "Campaign not found"},
	xerrors.CodeBoardNotFound:         {language.Chinese: "地图不存在", language.English: "Board not found"},
	xerrors.CodeCharacterNotFound:     {language.Chinese: "角色不存在", language.English: "Character not found"},
	xerrors.CodeCombatNotActive:       {language.Chinese: "战斗已结束", language.English: "Combat is not active"},
	xerrors.CodeNotYourTurn:           {language.Chinese: "当前不是该单位的回合", language.English: "Not this combatant's turn"},
	xerrors.CodeTargetOutOfRange:      {language.Chinese: "目标超出射程", language.English: "Target out of range"},
	xerrors.CodeLineOfSightBlocked:    {language.Chinese: "视线被阻挡", language.English: "Line of sight blocked"},
	xerrors.CodeNoValidTargets:        {language.Chinese: "范围内没有有效目标", language.English: "No valid targets in area"},
	xerrors.CodeTargetNotAlive:        {language.Chinese: "目标已倒下", language.English: "Target is not alive"},
	xerrors.CodeInvalidTarget:         {language.Chinese: "目标不符合技能的目标类型", language.English: "Target does not match the skill's targeting"},
	xerrors.CodeTileBlocked:           {language.Chinese: "目标格子不可到达", language.English: "Tile is blocked or occupied"},
}

// GetErrorMessage 获取错误码对应语言的消息
// 缺少翻译时回退到中文，再回退到错误码自带的消息
func GetErrorMessage(code xerrors.ErrorCode, lang language.Tag) string {
	base, _ := lang.Base()
	if messages, ok := ErrorMessages[code]; ok {
		for tag, msg := range messages {
			if tagBase, _ := tag.Base(); tagBase == base {
				return msg
			}
		}
		if msg, ok := messages[language.Chinese]; ok {
			return msg
		}
	}
	if code.IsValid() {
		return code.Message()
	}
	if base.String() == "en" {
		return "Unknown error"
	}
	return "未知错误"
}
