package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	apitypes "github.com/regrada-ai/regrada-identity/internal/api/types"
)

// Pinger is satisfied by *redis.Client.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type HealthHandler struct {
	redisClient Pinger
	provider    string
}

// NewHealthHandler reports on redis when redisClient is non-nil. provider
// names the identity backend, "cognito" or "mock".
func NewHealthHandler(redisClient Pinger, provider string) *HealthHandler {
	return &HealthHandler{
		redisClient: redisClient,
		provider:    provider,
	}
}

// Health reports the gateway's dependencies
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} apitypes.HealthResponse
// @Failure 503 {object} apitypes.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := apitypes.HealthResponse{
		Status: "ok",
		Checks: map[string]string{"provider": h.provider},
	}

	if h.redisClient == nil {
		status.Checks["redis"] = "disabled"
	} else if err := h.redisClient.Ping(ctx).Err(); err != nil {
		status.Status = "error"
		status.Checks["redis"] = "down"
	} else {
		status.Checks["redis"] = "up"
	}

	if status.Status == "error" {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	c.JSON(http.StatusOK, status)
}
