package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/pacman-arcade/internal/services"
)

// HealthHandler reports whether the backing services are reachable
type HealthHandler struct {
	healthService services.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(healthService services.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// GetHealth answers 200 when the store is reachable and 503 otherwise
func (h *HealthHandler) GetHealth(c *gin.Context) {
	checks, err := h.healthService.Check(c.Request.Context())

	status := "ok"
	code := http.StatusOK
	if err != nil {
		_ = c.Error(err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
