package trace

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFromHeader(t *testing.T) {
	t.Run("优先使用 X-Trace-Id", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-Trace-Id", "trace-1")
		h.Set("X-Request-Id", "req-1")
		assert.Equal(t, "trace-1", ExtractFromHeader(h))
	})

	t.Run("解析 W3C traceparent", func(t *testing.T) {
		h := http.Header{}
		h.Set("Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", ExtractFromHeader(h))
	})

	t.Run("没有头部时生成新 ID", func(t *testing.T) {
		id := ExtractFromHeader(http.Header{})
		assert.Len(t, id, 32)
	})
}
