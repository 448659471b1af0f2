package validator

import (
	"reflect"
	"strings"

	"tsu-tactics/internal/pkg/xerrors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator wraps go-playground validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface
// 返回的错误已经是带中文提示的 AppError，handler 可以直接透传
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		details := TranslateValidationErrors(err)
		appErr := xerrors.NewValidationError(details[0].Field, details[0].Message)
		if len(details) > 1 {
			appErr.WithMetadata("errors", details)
		}
		return appErr
	}
	return nil
}

// New creates a new custom validator instance
func New() echo.Validator {
	v := validator.New()
	// 错误信息里使用 json 字段名，与请求体保持一致
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}
