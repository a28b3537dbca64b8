package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"paydesk_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	prev := logger.GetLogger()
	buf := &bytes.Buffer{}
	logger.SetLogger(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { logger.SetLogger(prev) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware())
	r.GET("/payments/:reference", func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithStructureID(c.Request.Context(), "struct-1"))
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	req := httptest.NewRequest(http.MethodGet, "/payments/FAC-1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "HTTP Client Error", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/payments/:reference", entry["path"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "struct-1", entry["structure_id"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
}
