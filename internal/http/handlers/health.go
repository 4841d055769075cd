package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fred-backend/internal/platform/logger"
)

// Pinger is a named readiness probe.
type Pinger struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	log     *logger.Logger
	probes  []Pinger
	timeout time.Duration
}

func NewHealthHandler(log *logger.Logger, probes ...Pinger) *HealthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HealthHandler{log: log.With("handler", "HealthHandler"), probes: probes, timeout: 2 * time.Second}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	status := gin.H{}
	ready := true
	for _, p := range h.probes {
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("readiness probe failed", "probe", p.Name, "error", err)
			status[p.Name] = "unavailable"
			ready = false
			continue
		}
		status[p.Name] = "ok"
	}
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": status})
}
