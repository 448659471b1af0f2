package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/xerrors"
)

// ErrorMiddleware 统一错误处理中间件
// handler 返回的 error 都在这里转换成 {code, message, error} 响应
func ErrorMiddleware(respWriter response.Writer, logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			if c.Response().Committed {
				return nil
			}

			ctx := c.Request().Context()

			if appErr, ok := xerrors.As(err); ok {
				return respWriter.WriteError(ctx, c.Response(), appErr)
			}

			if echoErr, ok := err.(*echo.HTTPError); ok {
				return respWriter.WriteError(ctx, c.Response(), convertEchoError(echoErr))
			}

			logger.ErrorContext(ctx, "未处理的错误",
				log.Any("original_error", err),
				log.String("error_type", fmt.Sprintf("%T", err)),
			)
			appErr := xerrors.NewWithError(
				xerrors.CodeInternalError,
				"系统内部错误",
				err,
			).WithService("echo-middleware", "error_handler")
			return respWriter.WriteError(ctx, c.Response(), appErr)
		}
	}
}

// HTTPErrorHandler echo 全局错误处理器，兜住路由未匹配等中间件链之外的错误
func HTTPErrorHandler(respWriter response.Writer) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()
		if echoErr, ok := err.(*echo.HTTPError); ok {
			_ = respWriter.WriteError(ctx, c.Response(), convertEchoError(echoErr))
			return
		}
		_ = respWriter.WriteError(ctx, c.Response(), err)
	}
}

// convertEchoError 将 Echo 错误转换为业务错误
func convertEchoError(echoErr *echo.HTTPError) *xerrors.AppError {
	message := fmt.Sprintf("%v", echoErr.Message)
	switch echoErr.Code {
	case http.StatusBadRequest:
		return xerrors.FromCode(xerrors.CodeInvalidRequest).WithMetadata("echo_message", message)
	case http.StatusUnauthorized:
		return xerrors.FromCode(xerrors.CodeAuthenticationFailed).WithMetadata("echo_message", message)
	case http.StatusForbidden:
		return xerrors.FromCode(xerrors.CodePermissionDenied).WithMetadata("echo_message", message)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return xerrors.FromCode(xerrors.CodeResourceNotFound).WithMetadata("echo_message", message)
	case http.StatusConflict:
		return xerrors.FromCode(xerrors.CodeDuplicateResource).WithMetadata("echo_message", message)
	case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return xerrors.FromCode(xerrors.CodeInvalidRequest).WithMetadata("echo_message", message)
	case http.StatusTooManyRequests:
		return xerrors.FromCode(xerrors.CodeRateLimitExceeded).WithMetadata("echo_message", message)
	default:
		return xerrors.FromCode(xerrors.CodeInternalError).
			WithMetadata("echo_code", fmt.Sprintf("%d", echoErr.Code)).
			WithMetadata("echo_message", message)
	}
}
