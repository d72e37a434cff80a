package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/berrylive/live-service/internal/domain"
)

type memoryEntry struct {
	snapshot  *domain.RoomSnapshot
	expiresAt time.Time
}

// MemorySnapshotCache implements SnapshotCache in process memory. Used when
// no redis address is configured and in tests.
type MemorySnapshotCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemorySnapshotCache creates an empty in-memory snapshot cache.
func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{entries: make(map[string]memoryEntry)}
}

func (c *MemorySnapshotCache) BuildKey(roomID string) string {
	return fmt.Sprintf("memory:snapshot:%s", roomID)
}

func (c *MemorySnapshotCache) Get(_ context.Context, key string) (*domain.RoomSnapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrCacheMiss
	}
	copied := *entry.snapshot
	return &copied, nil
}

func (c *MemorySnapshotCache) Set(_ context.Context, key string, snapshot *domain.RoomSnapshot, ttl time.Duration) error {
	copied := *snapshot
	c.mu.Lock()
	c.entries[key] = memoryEntry{snapshot: &copied, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemorySnapshotCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}

func (c *MemorySnapshotCache) Close() error { return nil }
