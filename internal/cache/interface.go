// Package cache provides snapshot caching in front of the room snapshot
// assembly path.
package cache

import (
	"context"
	"time"

	"github.com/berrylive/live-service/internal/domain"
)

// SnapshotCache stores assembled room snapshots keyed by room id.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*domain.RoomSnapshot, error)
	Set(ctx context.Context, key string, snapshot *domain.RoomSnapshot, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKey(roomID string) string
	Close() error
}
