package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything that can verify its own connectivity. The store gateway
// implements it; the readiness probe reports degraded while the lazy store has
// not initialized yet.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store   Pinger
	version string
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(store Pinger, version string) *HealthHandler {
	return &HealthHandler{store: store, version: version}
}

// Live reports process liveness.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports whether the backing store is reachable. The store initializes
// lazily on first assessment, so a not-yet-initialized store is reported as
// degraded rather than failing the probe.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	storeStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		status = "degraded"
		storeStatus = err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"checks": gin.H{
			"store": storeStatus,
		},
	})
}
