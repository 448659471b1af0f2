package response

import (
	"context"
	"net/http"

	"tsu-tactics/internal/pkg/i18n"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/trace"
	"tsu-tactics/internal/pkg/xerrors"
)

// Writer 响应输出接口
type Writer interface {
	WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error
	WriteError(ctx context.Context, w http.ResponseWriter, err error) error
	WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error
}

// ResponseHandler 默认的 Writer 实现
type ResponseHandler struct {
	logger      log.Logger
	environment string
}

// NewResponseHandler 创建响应处理器
func NewResponseHandler(logger log.Logger, environment string) *ResponseHandler {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &ResponseHandler{logger: logger, environment: environment}
}

// DefaultResponseHandler 使用全局 logger 的开发环境响应处理器
func DefaultResponseHandler() *ResponseHandler {
	return NewResponseHandler(log.GetLogger(), "development")
}

// WriteSuccess 输出带统一包装的成功响应
func (h *ResponseHandler) WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error {
	resp := Success(&data)
	resp.TraceId = trace.GetTraceID(ctx)
	return writeJSON(w, http.StatusOK, resp)
}

// WriteError 输出错误响应
// 非 AppError 一律按内部错误处理，调用方只会看到错误码对应的本地化消息
func (h *ResponseHandler) WriteError(ctx context.Context, w http.ResponseWriter, err error) error {
	appErr, ok := xerrors.As(err)
	if !ok {
		appErr = xerrors.NewWithError(xerrors.CodeInternalError, xerrors.CodeInternalError.Message(), err)
	}

	status := xerrors.GetHTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		log.LogAppError(ctx, h.logger, "请求处理失败", appErr)
	} else {
		h.logger.DebugContext(ctx, "请求被拒绝", log.Any("app_error", appErr))
	}

	message := i18n.GetErrorMessage(appErr.Code, i18n.GetLanguage(ctx))
	resp := Error[EmptyData](appErr.Code.ToInt(), message, h.publicDetail(appErr, message))
	resp.TraceId = trace.GetTraceID(ctx)
	return writeJSON(w, status, resp)
}

// WriteJSON 直接输出 JSON（不做统一包装）
func (h *ResponseHandler) WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	return writeJSON(w, statusCode, data)
}

// publicDetail 返回可暴露给调用方的错误详情
// 5xx 只返回本地化消息；业务错误返回业务消息（不含底层错误）
func (h *ResponseHandler) publicDetail(appErr *xerrors.AppError, localized string) string {
	if xerrors.GetHTTPStatus(appErr.Code) >= http.StatusInternalServerError {
		return localized
	}
	if appErr.Context != nil {
		if msg, ok := appErr.Context.Metadata["validation_message"].(string); ok && msg != "" {
			return msg
		}
	}
	if appErr.Message != "" {
		return appErr.Message
	}
	return localized
}
