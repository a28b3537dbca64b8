package handlers

import (
	"context"
	"net/http"
	"time"

	"paydesk_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]PingFunc
	pollers func() int
}

func NewHealthHandler(checks map[string]PingFunc, pollers func() int) *HealthHandler {
	return &HealthHandler{checks: checks, pollers: pollers}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/-/live", h.Live)
	r.GET("/-/ready", h.Ready)
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.CtxWarn(ctx, "Readiness check failed", "check", name, "error", err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := gin.H{"checks": results}
	if h.pollers != nil {
		body["active_pollers"] = h.pollers()
	}
	c.JSON(status, body)
}
