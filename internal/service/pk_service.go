package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/berrylive/live-service/internal/audit"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/repository"
	"github.com/berrylive/live-service/pkg/log"
)

// pkServiceImpl implements PKService. Battles are ephemeral room state:
// they start against a live opponent, accumulate hearts from viewers, and
// vanish when ended, when the round time runs out or when the hosting
// room closes.
type pkServiceImpl struct {
	rooms    repository.RoomRepository
	users    repository.UserRepository
	duration time.Duration
	pub      Publisher

	mu      sync.RWMutex
	battles map[string]*domain.PKBattle
}

// NewPKService creates a new PK battle service. duration bounds each
// round; zero disables the timer and battles run until ended.
func NewPKService(rooms repository.RoomRepository, users repository.UserRepository, duration time.Duration, pub Publisher) PKService {
	return &pkServiceImpl{
		rooms:    rooms,
		users:    users,
		duration: duration,
		pub:      pub,
		battles:  make(map[string]*domain.PKBattle),
	}
}

// Start opens a battle between the room's host and an opponent who must
// also be live. One battle per room at a time.
func (s *pkServiceImpl) Start(ctx context.Context, roomID, hostID string, req *domain.StartPKRequest) (*domain.PKBattle, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostID != hostID {
		return nil, fmt.Errorf("%w: only the host can start a battle", domain.ErrValidation)
	}
	if room.Status != domain.RoomStatusActive {
		return nil, fmt.Errorf("%w: room is closed", domain.ErrValidation)
	}
	if req.OpponentID == hostID {
		return nil, fmt.Errorf("%w: cannot battle yourself", domain.ErrValidation)
	}
	if _, err := s.users.GetByID(ctx, req.OpponentID); err != nil {
		return nil, err
	}
	if _, err := s.rooms.GetActiveByHost(ctx, req.OpponentID); err != nil {
		return nil, fmt.Errorf("%w: opponent is not live", domain.ErrValidation)
	}

	s.mu.Lock()
	if _, running := s.battles[roomID]; running {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: battle already running", domain.ErrValidation)
	}
	battle := &domain.PKBattle{RoomID: roomID, OpponentID: req.OpponentID}
	s.battles[roomID] = battle
	copied := *battle
	s.mu.Unlock()

	if s.duration > 0 {
		time.AfterFunc(s.duration, func() { s.expire(roomID, battle) })
	}

	audit.LogWithDetail(ctx, audit.ActionStartPK, hostID, req.OpponentID, "pk battle started")
	log.Ctx(ctx).Info().Str(log.FieldRoomID, roomID).Str("opponent_id", req.OpponentID).Msg("pk battle started")

	s.broadcast(roomID, &copied)
	return &copied, nil
}

// AddHeart credits one heart to a team and recomputes the score.
func (s *pkServiceImpl) AddHeart(ctx context.Context, roomID, userID string, req *domain.PKHeartRequest) (*domain.PKBattle, error) {
	if req.Team != "a" && req.Team != "b" {
		return nil, fmt.Errorf("%w: team must be a or b", domain.ErrValidation)
	}

	s.mu.Lock()
	battle, ok := s.battles[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no battle running", domain.ErrNotFound)
	}
	if req.Team == "a" {
		battle.HeartsA++
		battle.ScoreA++
	} else {
		battle.HeartsB++
		battle.ScoreB++
	}
	copied := *battle
	s.mu.Unlock()

	log.Ctx(ctx).Debug().
		Str(log.FieldRoomID, roomID).
		Str(log.FieldUserID, userID).
		Str("team", req.Team).
		Msg("pk heart added")

	s.broadcast(roomID, &copied)
	return &copied, nil
}

// Get returns the room's running battle, if any.
func (s *pkServiceImpl) Get(roomID string) (*domain.PKBattle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	battle, ok := s.battles[roomID]
	if !ok {
		return nil, false
	}
	copied := *battle
	return &copied, true
}

// End drops the room's battle. Ending an absent battle is a no-op so room
// close can always call it.
func (s *pkServiceImpl) End(ctx context.Context, roomID string) error {
	s.mu.Lock()
	battle, ok := s.battles[roomID]
	if ok {
		delete(s.battles, roomID)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	log.Ctx(ctx).Info().Str(log.FieldRoomID, roomID).Msg("pk battle ended")
	s.broadcast(roomID, battle)
	return nil
}

// expire ends the battle when its round time runs out. A battle ended or
// replaced before the timer fires is left alone.
func (s *pkServiceImpl) expire(roomID string, battle *domain.PKBattle) {
	s.mu.Lock()
	current, ok := s.battles[roomID]
	if !ok || current != battle {
		s.mu.Unlock()
		return
	}
	delete(s.battles, roomID)
	final := *current
	s.mu.Unlock()

	log.L().Info().Str(log.FieldRoomID, roomID).Msg("pk battle expired")
	s.broadcast(roomID, &final)
}

func (s *pkServiceImpl) broadcast(roomID string, battle *domain.PKBattle) {
	s.pub.BroadcastToRoom(roomID, domain.NewMessage(domain.MsgPKHeartUpdated, battle), "")
	if battle.OpponentID != "" {
		s.pub.BroadcastToUser(battle.OpponentID, domain.NewMessage(domain.MsgPKHeartUpdated, battle))
	}
}
