package i18n

import (
	"github.com/labstack/echo/v4"
)

// Middleware Echo 中间件 - 语言优先级: ?lang= > Accept-Language > 默认中文
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := DefaultLanguage
			if code := c.QueryParam("lang"); code != "" {
				lang = ParseLanguageCode(code)
			} else {
				lang = ParseAcceptLanguage(c.Request().Header.Get("Accept-Language"))
			}

			ctx := WithLanguage(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
