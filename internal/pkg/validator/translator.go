package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError 验证错误详情
type ValidationError struct {
	Field   string `json:"field"`   // 字段名
	Message string `json:"message"` // 错误消息
	Tag     string `json:"tag"`     // 验证标签（如：required, oneof）
}

// TranslateValidationErrors 翻译所有验证错误（至少返回一条）
func TranslateValidationErrors(err error) []ValidationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return []ValidationError{{Field: "request", Message: "请求参数无效", Tag: "unknown"}}
	}

	result := make([]ValidationError, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		result = append(result, ValidationError{
			Field:   fieldErr.Field(),
			Message: translateFieldError(fieldErr),
			Tag:     fieldErr.Tag(),
		})
	}
	return result
}

// translateFieldError 翻译单个字段验证错误
func translateFieldError(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s不能为空", field)
	case "required_if":
		return fmt.Sprintf("%s在当前目标类型下不能为空", field)
	case "min", "gte":
		return fmt.Sprintf("%s不能小于%s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s不能大于%s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s格式不正确,请输入有效的UUID", field)
	case "oneof":
		return fmt.Sprintf("%s的值必须是以下之一: %s", field, fe.Param())
	case "dive":
		return fmt.Sprintf("%s包含无效的值", field)
	default:
		return fmt.Sprintf("%s验证失败: %s", field, fe.Tag())
	}
}

// getFieldName 将请求字段名转换为中文友好名称
func getFieldName(field string) string {
	fieldNames := map[string]string{
		"max_steps":          "最大推进步数",
		"actor_combatant_id": "行动单位ID",
		"skill_id":           "技能ID",
		"target":             "目标",
		"kind":               "目标类型",
		"combatant_id":       "目标单位ID",
		"x":                  "横坐标",
		"y":                  "纵坐标",
		"board_id":           "地图ID",
		"participants":       "参战单位",
		"entity_type":        "单位类型",
		"faction_id":         "阵营ID",
	}
	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
