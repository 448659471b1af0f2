package xerrors

import "fmt"

// ErrorCode 错误码类型（类型安全）
type ErrorCode int

// IsValid 检查错误码是否在预定义列表中
func (c ErrorCode) IsValid() bool {
	_, exists := codeMessages[c]
	return exists
}

// String 返回错误码的字符串表示
func (c ErrorCode) String() string {
	if msg, ok := codeMessages[c]; ok {
		return fmt.Sprintf("%d (%s)", c, msg)
	}
	return fmt.Sprintf("%d (未定义的错误码)", c)
}

// Message 返回错误码对应的消息
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "未知错误"
}

// ToInt 转换为 int（用于 JSON 序列化等场景）
func (c ErrorCode) ToInt() int {
	return int(c)
}

// -----------------------------------------------------------------------------
// 业务错误码统一定义
// 按模块或领域对错误码进行分段，便于管理。
// -----------------------------------------------------------------------------

const (
	// 1xxxxx: 通用错误码
	CodeSuccess           ErrorCode = 100000 // 操作成功
	CodeInternalError     ErrorCode = 100001 // 内部服务错误
	CodeInvalidParams     ErrorCode = 100002 // 参数错误
	CodeInvalidRequest    ErrorCode = 100003 // 请求格式错误
	CodeResourceNotFound  ErrorCode = 100404 // 资源不存在
	CodeDuplicateResource ErrorCode = 100409 // 资源已存在
	CodeRateLimitExceeded ErrorCode = 100429 // 请求频率限制

	// 2xxxxx: 认证相关错误码
	CodeAuthenticationFailed ErrorCode = 200001 // 认证失败
	CodeInvalidToken         ErrorCode = 200002 // 无效令牌
	CodeTokenExpired         ErrorCode = 200003 // 令牌过期
	CodeSessionExpired       ErrorCode = 200007 // 会话过期

	// 3xxxxx: 权限相关错误码
	CodePermissionDenied  ErrorCode = 300001 // 权限不足
	CodeNotCampaignMember ErrorCode = 300101 // 不是战役成员

	// 6xxxxx: 业务逻辑错误码
	CodeBusinessLogicError  ErrorCode = 600001 // 业务逻辑错误
	CodeDataIntegrityError  ErrorCode = 600002 // 数据完整性错误
	CodeOperationNotAllowed ErrorCode = 600003 // 操作不被允许
	CodeRequestInProgress   ErrorCode = 600006 // 相同幂等键的请求正在处理

	// 7xxxxx: 外部服务错误码
	CodeExternalServiceError ErrorCode = 700001 // 外部服务错误
	CodeKratosError          ErrorCode = 700002 // Kratos服务错误
	CodeDatabaseError        ErrorCode = 700003 // 数据库错误
	CodeCacheError           ErrorCode = 700004 // 缓存服务错误
	CodeMessageQueueError    ErrorCode = 700005 // 消息队列错误

	// 8xxxxx: 游戏业务错误码
	// 技能相关 (81xxxx)
	CodeSkillNotFound   ErrorCode = 810001 // 技能不存在
	CodeSkillNotLearned ErrorCode = 810002 // 技能不属于该角色
	CodeSkillCooldown   ErrorCode = 810003 // 技能冷却中
	CodeSkillManaCost   ErrorCode = 810004 // 能量不足
	CodeSkillInvalidUse ErrorCode = 810005 // 技能使用条件不满足

	// 战斗相关 (83xxxx)
	// 830001-830099: 实体不存在
	CodeCombatSessionNotFound ErrorCode = 830001 // 战斗会话不存在
	CodeCombatantNotFound     ErrorCode = 830002 // 战斗单位不存在
	CodeCampaignNotFound      ErrorCode = 830003 // 战役不存在
	CodeBoardNotFound         ErrorCode = 830004 // 地图不存在
	CodeCharacterNotFound     ErrorCode = 830005 // 角色不存在

	// 830100-830199: 状态冲突
	CodeCombatNotActive    ErrorCode = 830101 // 战斗已结束
	CodeNotYourTurn        ErrorCode = 830102 // 当前不是该单位的回合
	CodeTargetOutOfRange   ErrorCode = 830103 // 目标超出射程
	CodeLineOfSightBlocked ErrorCode = 830104 // 视线被阻挡
	CodeNoValidTargets     ErrorCode = 830105 // 范围内没有有效目标
	CodeTargetNotAlive     ErrorCode = 830106 // 目标已倒下
	CodeInvalidTarget      ErrorCode = 830107 // 目标不符合技能的目标类型
	CodeTileBlocked        ErrorCode = 830108 // 目标格子不可到达
)

// -----------------------------------------------------------------------------
// HTTP 状态码常量定义
// -----------------------------------------------------------------------------

const (
	HTTPStatusOK                  = 200 // 请求成功
	HTTPStatusCreated             = 201 // 资源已创建
	HTTPStatusBadRequest          = 400 // 错误请求
	HTTPStatusUnauthorized        = 401 // 未经授权
	HTTPStatusForbidden           = 403 // 禁止访问
	HTTPStatusNotFound            = 404 // 资源未找到
	HTTPStatusConflict            = 409 // 资源冲突
	HTTPStatusTooManyRequests     = 429 // 请求过多
	HTTPStatusInternalServerError = 500 // 内部服务器错误
	HTTPStatusServiceUnavailable  = 503 // 服务不可用
)

// -----------------------------------------------------------------------------
// 错误消息映射
// -----------------------------------------------------------------------------

var codeMessages = map[ErrorCode]string{
	CodeSuccess:           "操作成功",
	CodeInternalError:     "内部服务错误",
	CodeInvalidParams:     "参数错误",
	CodeInvalidRequest:    "请求格式错误",
	CodeResourceNotFound:  "资源不存在",
	CodeDuplicateResource: "资源已存在",
	CodeRateLimitExceeded: "请求频率限制",

	CodeAuthenticationFailed: "认证失败",
	CodeInvalidToken:         "无效令牌",
	CodeTokenExpired:         "令牌过期",
	CodeSessionExpired:       "会话过期",

	CodePermissionDenied:  "权限不足",
	CodeNotCampaignMember: "不是该战役的成员",

	CodeBusinessLogicError:  "业务逻辑错误",
	CodeDataIntegrityError:  "数据完整性错误",
	CodeOperationNotAllowed: "操作不被允许",
	CodeRequestInProgress:   "相同请求正在处理中",

	CodeExternalServiceError: "外部服务错误",
	CodeKratosError:          "Kratos服务错误",
	CodeDatabaseError:        "数据库错误",
	CodeCacheError:           "缓存服务错误",
	CodeMessageQueueError:    "消息队列错误",

	CodeSkillNotFound:   "技能不存在",
	CodeSkillNotLearned: "技能不属于该角色",
	CodeSkillCooldown:   "技能冷却中",
	CodeSkillManaCost:   "能量不足",
	CodeSkillInvalidUse: "技能使用条件不满足",

	CodeCombatSessionNotFound: "战斗会话不存在",
	CodeCombatantNotFound:     "战斗单位不存在",
	CodeCampaignNotFound:      "战役不存在",
	CodeBoardNotFound:         "地图不存在",
	CodeCharacterNotFound:     "角色不存在",

	CodeCombatNotActive:    "战斗已结束",
	CodeNotYourTurn:        "当前不是该单位的回合",
	CodeTargetOutOfRange:   "目标超出射程",
	CodeLineOfSightBlocked: "视线被阻挡",
	CodeNoValidTargets:     "范围内没有有效目标",
	CodeTargetNotAlive:     "目标已倒下",
	CodeInvalidTarget:      "目标不符合技能的目标类型",
	CodeTileBlocked:        "目标格子不可到达",
}

// GetHTTPStatus 根据业务错误码获取HTTP状态码
func GetHTTPStatus(code ErrorCode) int {
	switch {
	case code == CodeSuccess:
		return HTTPStatusOK
	case code >= 200000 && code < 300000:
		if code == CodeAuthenticationFailed || code == CodeInvalidToken || code == CodeTokenExpired || code == CodeSessionExpired {
			return HTTPStatusUnauthorized
		}
		return HTTPStatusForbidden
	case code >= 300000 && code < 400000:
		return HTTPStatusForbidden
	case code == CodeResourceNotFound, code == CodeSkillNotFound, code == CodeSkillNotLearned:
		return HTTPStatusNotFound
	case code == CodeDuplicateResource, code == CodeRequestInProgress, code == CodeOperationNotAllowed:
		return HTTPStatusConflict
	case code == CodeInvalidParams || code == CodeInvalidRequest:
		return HTTPStatusBadRequest
	case code == CodeRateLimitExceeded:
		return HTTPStatusTooManyRequests
	case code == CodeSkillCooldown, code == CodeSkillManaCost, code == CodeSkillInvalidUse:
		return HTTPStatusConflict
	case code >= 830001 && code < 830100:
		return HTTPStatusNotFound
	case code >= 830100 && code < 830200:
		return HTTPStatusConflict
	case code >= 600000 && code < 700000:
		return HTTPStatusBadRequest
	case code >= 700000 && code < 800000:
		return HTTPStatusInternalServerError
	default:
		return HTTPStatusInternalServerError
	}
}

// getCategoryByCode 根据错误码获取分类
func getCategoryByCode(code ErrorCode) string {
	switch {
	case code >= 100000 && code < 200000:
		return "system"
	case code >= 200000 && code < 300000:
		return "authentication"
	case code >= 300000 && code < 400000:
		return "authorization"
	case code >= 600000 && code < 700000:
		return "business"
	case code >= 700000 && code < 800000:
		return "external"
	case code >= 800000 && code < 900000:
		return "game"
	default:
		return "unknown"
	}
}

// getLevelByCode 根据错误码获取级别
func getLevelByCode(code ErrorCode) ErrorLevel {
	switch {
	case code == CodeSuccess:
		return LevelInfo
	case code == CodeInternalError:
		return LevelError
	case code >= 700001 && code < 800000:
		return LevelCritical
	case code >= 100002 && code < 700000, code >= 800000:
		// 客户端可以修正后重试的错误
		return LevelWarn
	default:
		return LevelError
	}
}

// isRetryableByCode 根据错误码判断是否可重试
func isRetryableByCode(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		CodeInternalError:        true,
		CodeExternalServiceError: true,
		CodeKratosError:          true,
		CodeDatabaseError:        true,
		CodeCacheError:           true,
		CodeMessageQueueError:    true,
		CodeRateLimitExceeded:    true,
		CodeRequestInProgress:    true,
	}
	return retryableCodes[code]
}
