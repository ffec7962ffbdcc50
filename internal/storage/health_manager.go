package storage

import (
	"context"
	"sync"
	"time"
)

// HealthData is the last health check result of a storage backend
type HealthData struct {
	LastCheck time.Time `json:"last_check" msgpack:"last_check"`
	Status    string    `json:"status" msgpack:"status"`
	Message   string    `json:"message,omitempty" msgpack:"message,omitempty"`
	Error     string    `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Healthy reports whether the check passed
func (h HealthData) Healthy() bool {
	return h.Status == "healthy"
}

// HealthManager manages storage health status in memory
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]HealthData
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]HealthData),
	}
}

// UpdateHealth updates the health status for a storage backend
func (hm *HealthManager) UpdateHealth(name string, health HealthData) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.health[name] = health
}

// GetHealth retrieves the health status for a specific storage backend
func (hm *HealthManager) GetHealth(name string) (HealthData, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	h, ok := hm.health[name]
	return h, ok
}

// GetAllHealth returns a copy of every recorded health status
func (hm *HealthManager) GetAllHealth() map[string]HealthData {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	out := make(map[string]HealthData, len(hm.health))
	for k, v := range hm.health {
		out[k] = v
	}
	return out
}

// CheckStore pings a store and records the result under name
func (hm *HealthManager) CheckStore(ctx context.Context, name string, store ModelStore) HealthData {
	h := HealthData{
		LastCheck: time.Now(),
		Status:    "healthy",
		Message:   name + " reachable",
	}
	if err := store.Ping(ctx); err != nil {
		h.Status = "unhealthy"
		h.Message = "ping failed"
		h.Error = err.Error()
	}
	hm.UpdateHealth(name, h)
	return h
}
