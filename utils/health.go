package utils

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Redis     bool      `json:"redis"`
	Backend   bool      `json:"backend"`
	CheckedAt time.Time `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// CheckHealth probes Redis (when configured) and the backend once.
func CheckHealth(ctx context.Context, redisClient *redis.Client, backendURL string, httpClient *http.Client) HealthStatus {
	status := HealthStatus{Redis: true, CheckedAt: time.Now()}
	if redisClient != nil {
		status.Redis = redisClient.Ping(ctx).Err() == nil
	}
	if backendURL != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, backendURL, nil)
		if err == nil {
			resp, err := httpClient.Do(req)
			if err == nil {
				resp.Body.Close()
				status.Backend = resp.StatusCode < http.StatusInternalServerError
			}
		}
	}
	return status
}

// StartHealthMonitor performs periodic health checks and updates in-memory state
// until ctx is cancelled.
func StartHealthMonitor(ctx context.Context, redisClient *redis.Client, backendURL string) {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	update := func() {
		status := CheckHealth(ctx, redisClient, backendURL, httpClient)
		if !status.Redis || !status.Backend {
			GetLogger().Warn("health check degraded", zap.Bool("redis", status.Redis), zap.Bool("backend", status.Backend))
		}
		mu.Lock()
		currentHealth = status
		mu.Unlock()
	}

	go func() {
		update()
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				update()
			}
		}
	}()
}
