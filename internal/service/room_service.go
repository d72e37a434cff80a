package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/berrylive/live-service/internal/audit"
	"github.com/berrylive/live-service/internal/cache"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/repository"
	"github.com/berrylive/live-service/pkg/log"
)

// roomToggles are the host's runtime switches. They live with the
// broadcast and reset when the room closes.
type roomToggles struct {
	mic        bool
	sound      bool
	autoInvite bool
}

// roomServiceImpl implements RoomService.
type roomServiceImpl struct {
	rooms       repository.RoomRepository
	users       repository.UserRepository
	invitations repository.InvitationRepository
	follows     FollowService
	sessions    *SessionRegistry
	presence    PresenceService
	pk          PKService
	snapshots   cache.SnapshotCache
	snapshotTTL time.Duration
	pub         Publisher

	mu      sync.RWMutex
	toggles map[string]*roomToggles
}

// NewRoomService creates a new room service.
func NewRoomService(
	rooms repository.RoomRepository,
	users repository.UserRepository,
	invitations repository.InvitationRepository,
	follows FollowService,
	sessions *SessionRegistry,
	presence PresenceService,
	pk PKService,
	snapshots cache.SnapshotCache,
	ttl time.Duration,
	pub Publisher,
) RoomService {
	return &roomServiceImpl{
		rooms:       rooms,
		users:       users,
		invitations: invitations,
		follows:     follows,
		sessions:    sessions,
		presence:    presence,
		pk:          pk,
		snapshots:   snapshots,
		snapshotTTL: ttl,
		pub:         pub,
		toggles:     make(map[string]*roomToggles),
	}
}

// CreateRoom opens a broadcast. A host can only run one active room at a
// time; the live session starts with the room.
func (s *roomServiceImpl) CreateRoom(ctx context.Context, hostID string, req *domain.CreateRoomRequest) (*domain.Room, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	if _, err := s.users.GetByID(ctx, hostID); err != nil {
		return nil, err
	}

	if existing, err := s.rooms.GetActiveByHost(ctx, hostID); err == nil {
		return nil, fmt.Errorf("%w: host already live in room %s", domain.ErrValidation, existing.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	room := &domain.Room{
		HostID:    hostID,
		Title:     strings.TrimSpace(req.Title),
		IsPrivate: req.IsPrivate,
		Tags:      req.Tags,
		Quality:   req.Quality,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	s.sessions.Open(room.ID)
	s.mu.Lock()
	s.toggles[room.ID] = &roomToggles{mic: true, sound: true}
	s.mu.Unlock()

	audit.Log(ctx, audit.ActionCreateRoom, hostID, "room created")
	log.Ctx(ctx).Info().Str(log.FieldRoomID, room.ID).Str(log.FieldUserID, hostID).Msg("room opened")

	s.pub.BroadcastToRoom(room.ID, domain.NewMessage(domain.MsgRoomUpdated, room), "")
	return room, nil
}

// GetRoom retrieves a room by ID.
func (s *roomServiceImpl) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.rooms.GetByID(ctx, roomID)
}

// ListRooms lists all active rooms.
func (s *roomServiceImpl) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return s.rooms.ListActive(ctx)
}

// CloseRoom ends the broadcast and tears down everything scoped to it:
// the live session, the viewer set, any running PK battle, invitations
// and the host's toggles.
func (s *roomServiceImpl) CloseRoom(ctx context.Context, roomID, hostID string) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != hostID {
		return fmt.Errorf("%w: only the host can close the room", domain.ErrValidation)
	}
	if room.Status == domain.RoomStatusClosed {
		return nil
	}

	room.Status = domain.RoomStatusClosed
	if err := s.rooms.Update(ctx, room); err != nil {
		return err
	}

	if err := s.pk.End(ctx, roomID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to end pk battle on close")
	}
	s.sessions.Close(roomID)
	s.presence.Clear(roomID)
	if err := s.invitations.DeleteByRoom(ctx, roomID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to drop invitations on close")
	}
	s.mu.Lock()
	delete(s.toggles, roomID)
	s.mu.Unlock()
	s.snapshots.Delete(ctx, s.snapshots.BuildKey(roomID))

	audit.Log(ctx, audit.ActionCloseRoom, hostID, "room closed")
	log.Ctx(ctx).Info().Str(log.FieldRoomID, roomID).Msg("room closed")

	s.pub.BroadcastToRoom(roomID, domain.NewMessage(domain.MsgRoomUpdated, room), "")
	return nil
}

// Snapshot assembles the room's full current state. Clients call it on
// connect and after any gap instead of replaying missed events. Snapshots
// are cached briefly to absorb reconnect storms.
func (s *roomServiceImpl) Snapshot(ctx context.Context, roomID string) (*domain.RoomSnapshot, error) {
	key := s.snapshots.BuildKey(roomID)
	if cached, err := s.snapshots.Get(ctx, key); err == nil {
		return cached, nil
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.RoomSnapshot{
		Room:     *room,
		Presence: s.presence.List(roomID),
	}
	snapshot.ViewerCount = len(snapshot.Presence)

	if session, ok := s.sessions.Get(roomID); ok {
		snapshot.CoinsAccumulated = session.CoinsAccumulated()
		snapshot.Ranking = session.Ranking()
		snapshot.TopContributors = session.TopContributors(3)
	}
	if battle, ok := s.pk.Get(roomID); ok {
		snapshot.PK = battle
	}

	if err := s.snapshots.Set(ctx, key, snapshot, s.snapshotTTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to cache snapshot")
	}
	return snapshot, nil
}

// Invite grants a user access to the room. Only the host can invite.
func (s *roomServiceImpl) Invite(ctx context.Context, roomID, hostID string, req *domain.InviteRequest) (*domain.Invitation, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostID != hostID {
		return nil, fmt.Errorf("%w: only the host can invite", domain.ErrValidation)
	}
	if room.Status != domain.RoomStatusActive {
		return nil, fmt.Errorf("%w: room is closed", domain.ErrValidation)
	}
	if _, err := s.users.GetByID(ctx, req.InviteeID); err != nil {
		return nil, err
	}

	if existing, err := s.invitations.GetByRoomAndInvitee(ctx, roomID, req.InviteeID); err == nil {
		return existing, nil
	}

	inv := &domain.Invitation{
		RoomID:    roomID,
		InviteeID: req.InviteeID,
		Status:    domain.InvitationPending,
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.pub.BroadcastToUser(req.InviteeID, domain.NewMessage(domain.MsgRoomUpdated, room))
	return inv, nil
}

// AcceptInvite marks the invitee's invitation accepted.
func (s *roomServiceImpl) AcceptInvite(ctx context.Context, roomID, inviteeID string) error {
	inv, err := s.invitations.GetByRoomAndInvitee(ctx, roomID, inviteeID)
	if err != nil {
		return err
	}
	if inv.Status == domain.InvitationAccepted {
		return nil
	}
	inv.Status = domain.InvitationAccepted
	return s.invitations.Update(ctx, inv)
}

// CanJoin reports whether a user may enter the room. Public rooms admit
// everyone; private rooms admit the host and invited users.
func (s *roomServiceImpl) CanJoin(ctx context.Context, roomID, userID string) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status != domain.RoomStatusActive {
		return fmt.Errorf("%w: room is closed", domain.ErrValidation)
	}
	if !room.IsPrivate || room.HostID == userID {
		return nil
	}
	if _, err := s.invitations.GetByRoomAndInvitee(ctx, roomID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: room is private", domain.ErrValidation)
		}
		return err
	}
	return nil
}

// ToggleMic flips the host's microphone flag.
func (s *roomServiceImpl) ToggleMic(ctx context.Context, roomID, userID string, enabled bool) error {
	return s.toggle(ctx, roomID, userID, enabled, domain.MsgMicToggled, func(t *roomToggles) { t.mic = enabled })
}

// ToggleSound flips the host's sound flag.
func (s *roomServiceImpl) ToggleSound(ctx context.Context, roomID, userID string, enabled bool) error {
	return s.toggle(ctx, roomID, userID, enabled, domain.MsgSoundToggled, func(t *roomToggles) { t.sound = enabled })
}

// ToggleAutoInvite flips the auto-invite flag. Turning it on immediately
// invites all of the host's current followers.
func (s *roomServiceImpl) ToggleAutoInvite(ctx context.Context, roomID, userID string, enabled bool) error {
	if err := s.toggle(ctx, roomID, userID, enabled, domain.MsgAutoInviteToggled, func(t *roomToggles) { t.autoInvite = enabled }); err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	followers, err := s.follows.Followers(ctx, userID)
	if err != nil {
		return err
	}
	for _, followerID := range followers {
		if _, err := s.Invite(ctx, roomID, userID, &domain.InviteRequest{InviteeID: followerID}); err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str(log.FieldRoomID, roomID).
				Str(log.FieldUserID, followerID).
				Msg("auto-invite failed for follower")
		}
	}
	return nil
}

func (s *roomServiceImpl) toggle(ctx context.Context, roomID, userID string, enabled bool, msgType domain.MessageType, apply func(*roomToggles)) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != userID {
		return fmt.Errorf("%w: only the host can toggle", domain.ErrValidation)
	}
	if room.Status != domain.RoomStatusActive {
		return fmt.Errorf("%w: room is closed", domain.ErrValidation)
	}

	s.mu.Lock()
	t, ok := s.toggles[roomID]
	if !ok {
		t = &roomToggles{}
		s.toggles[roomID] = t
	}
	apply(t)
	s.mu.Unlock()

	s.pub.BroadcastToRoom(roomID, domain.NewMessage(msgType, domain.TogglePayload{
		StreamID: roomID,
		UserID:   userID,
		Enabled:  enabled,
	}), "")
	return nil
}
