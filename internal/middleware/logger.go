package middleware

import (
	"bytes"
	"net/http"
)

// responseWriter 包装器，捕获下游写入的状态码和响应体（幂等缓存使用）
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	// 默认状态码为 200 OK，如果下游没有显式写入状态码，这就是最终的状态。
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader 捕获状态码并调用原始的 WriteHeader 方法。
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write 写出的同时保留一份副本
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Flush 透传 http.Flusher
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
