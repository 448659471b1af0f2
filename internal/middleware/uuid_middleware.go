package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"tsu-tactics/internal/pkg/response"
)

// uuidParams 必须是 UUID 的路径参数
var uuidParams = map[string]string{
	"campaign_id": "战役",
	"session_id":  "战斗会话",
}

// UUIDValidationMiddleware 路径参数不是合法 UUID 时直接返回 404，不访问数据库
func UUIDValidationMiddleware(respWriter response.Writer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, paramName := range c.ParamNames() {
				resource, ok := uuidParams[paramName]
				if !ok {
					continue
				}
				if value := c.Param(paramName); value != "" {
					if _, err := uuid.Parse(value); err != nil {
						return response.EchoNotFound(c, respWriter, resource, value)
					}
				}
			}
			return next(c)
		}
	}
}
