package services

import (
	"context"

	apperrors "github.com/ajharbinger/pacman-arcade/internal/errors"
	"github.com/ajharbinger/pacman-arcade/internal/repository"
)

type healthServiceImpl struct {
	repos *repository.Repositories
	cache LeaderboardCache
}

func newHealthService(repos *repository.Repositories, cache LeaderboardCache) HealthService {
	return &healthServiceImpl{repos: repos, cache: cache}
}

// Check reports the status of the store and, when configured, the cache.
// Only a store failure makes the service unhealthy.
func (h *healthServiceImpl) Check(ctx context.Context) (map[string]string, error) {
	status := map[string]string{"store": "ok"}

	var storeErr error
	if h.repos.Health != nil {
		if err := h.repos.Health.HealthCheckContext(ctx); err != nil {
			status["store"] = "unavailable"
			storeErr = apperrors.StoreUnavailable("store health check failed", err)
		}
	}

	if h.cache != nil {
		status["cache"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			status["cache"] = "degraded"
		}
	}

	return status, storeErr
}
