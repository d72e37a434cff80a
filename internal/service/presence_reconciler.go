package service

import (
	"context"
	"time"

	"github.com/berrylive/live-service/pkg/log"
)

// ConnectionLister reports which authenticated users currently hold bus
// connections in each room. The hub implements it.
type ConnectionLister interface {
	RoomUsers() map[string][]string
}

// PresenceReconciler periodically replaces every room's viewer set with
// the authoritative connection list. Individual join and leave frames can
// be lost on abrupt disconnects; the reconciler repairs that drift.
type PresenceReconciler struct {
	conns    ConnectionLister
	presence PresenceService
	interval time.Duration
}

// NewPresenceReconciler creates a reconciler syncing presence against the
// given connection state every interval.
func NewPresenceReconciler(conns ConnectionLister, presence PresenceService, interval time.Duration) *PresenceReconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PresenceReconciler{
		conns:    conns,
		presence: presence,
		interval: interval,
	}
}

// Run reconciles on every tick until the context is cancelled.
func (r *PresenceReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce runs a single pass over every room with connections.
func (r *PresenceReconciler) ReconcileOnce(ctx context.Context) {
	for roomID, viewers := range r.conns.RoomUsers() {
		entered, left, err := r.presence.Sync(ctx, roomID, viewers)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("presence reconcile failed")
			continue
		}
		if len(entered) > 0 || len(left) > 0 {
			log.Ctx(ctx).Info().
				Str(log.FieldRoomID, roomID).
				Int("entered", len(entered)).
				Int("left", len(left)).
				Msg("presence drift repaired")
		}
	}
}
