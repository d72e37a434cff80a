package service

import (
	"context"
	"sort"
	"sync"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/pkg/log"
)

// presenceServiceImpl keeps the authoritative viewer set of every room in
// memory. Presence is ephemeral by design; a restart empties every room
// and clients rejoin through the bus.
type presenceServiceImpl struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]struct{}
	sessions *SessionRegistry
	pub      Publisher
}

// NewPresenceService creates a new presence service.
func NewPresenceService(sessions *SessionRegistry, pub Publisher) PresenceService {
	return &presenceServiceImpl{
		rooms:    make(map[string]map[string]struct{}),
		sessions: sessions,
		pub:      pub,
	}
}

// Join adds a viewer to a room. Joining twice is a no-op and does not
// re-announce the entry. The entry announcement skips the joiner's own
// connection; the joiner learns the room state from the presence update
// that follows.
func (s *presenceServiceImpl) Join(ctx context.Context, roomID, userID, exclude string) error {
	s.mu.Lock()
	viewers, ok := s.rooms[roomID]
	if !ok {
		viewers = make(map[string]struct{})
		s.rooms[roomID] = viewers
	}
	_, already := viewers[userID]
	viewers[userID] = struct{}{}
	list := s.listLocked(roomID)
	s.mu.Unlock()

	if already {
		return nil
	}

	s.updateViewerCount(roomID, len(list))
	log.Ctx(ctx).Debug().Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).Msg("viewer joined")

	s.pub.BroadcastToRoom(roomID, domain.NewMessage(domain.MsgUserEntered, domain.UserEnteredPayload{
		StreamID: roomID,
		UserID:   userID,
	}), exclude)
	s.publishPresence(roomID, list)
	return nil
}

// Leave removes a viewer from a room. Leaving a room the viewer is not in
// is a no-op.
func (s *presenceServiceImpl) Leave(ctx context.Context, roomID, userID string) error {
	s.mu.Lock()
	viewers, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if _, in := viewers[userID]; !in {
		s.mu.Unlock()
		return nil
	}
	delete(viewers, userID)
	if len(viewers) == 0 {
		delete(s.rooms, roomID)
	}
	list := s.listLocked(roomID)
	s.mu.Unlock()

	s.updateViewerCount(roomID, len(list))
	log.Ctx(ctx).Debug().Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).Msg("viewer left")

	s.publishPresence(roomID, list)
	return nil
}

// Sync replaces the room's viewer set with the given authoritative list
// and returns the delta. The new list wins even when it conflicts with
// individually tracked joins and leaves.
func (s *presenceServiceImpl) Sync(ctx context.Context, roomID string, viewers []string) (entered, left []string, err error) {
	next := make(map[string]struct{}, len(viewers))
	for _, id := range viewers {
		next[id] = struct{}{}
	}

	s.mu.Lock()
	prev := s.rooms[roomID]
	for id := range next {
		if _, ok := prev[id]; !ok {
			entered = append(entered, id)
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			left = append(left, id)
		}
	}
	if len(next) == 0 {
		delete(s.rooms, roomID)
	} else {
		s.rooms[roomID] = next
	}
	list := s.listLocked(roomID)
	s.mu.Unlock()

	sort.Strings(entered)
	sort.Strings(left)

	if len(entered) == 0 && len(left) == 0 {
		return nil, nil, nil
	}

	s.updateViewerCount(roomID, len(list))
	log.Ctx(ctx).Debug().
		Str(log.FieldRoomID, roomID).
		Int("entered", len(entered)).
		Int("left", len(left)).
		Msg("presence synced")

	for _, id := range entered {
		s.pub.BroadcastToRoom(roomID, domain.NewMessage(domain.MsgUserEntered, domain.UserEnteredPayload{
			StreamID: roomID,
			UserID:   id,
		}), "")
	}
	s.publishPresence(roomID, list)
	return entered, left, nil
}

// List returns the room's viewers in sorted order.
func (s *presenceServiceImpl) List(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(roomID)
}

// Count returns the room's viewer count.
func (s *presenceServiceImpl) Count(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomID])
}

// Clear drops the room's whole viewer set. Called when the room closes.
func (s *presenceServiceImpl) Clear(roomID string) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
	s.updateViewerCount(roomID, 0)
}

func (s *presenceServiceImpl) listLocked(roomID string) []string {
	viewers := s.rooms[roomID]
	out := make([]string, 0, len(viewers))
	for id := range viewers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *presenceServiceImpl) updateViewerCount(roomID string, n int) {
	if session, ok := s.sessions.Get(roomID); ok {
		session.SetViewerCount(n)
	}
}

func (s *presenceServiceImpl) publishPresence(roomID string, viewers []string) {
	s.pub.BroadcastToRoom(roomID, domain.NewMessage(domain.MsgPresenceUpdated, domain.PresencePayload{
		StreamID:    roomID,
		Viewers:     viewers,
		ViewerCount: len(viewers),
	}), "")
}
