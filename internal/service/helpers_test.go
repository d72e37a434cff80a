package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/berrylive/live-service/internal/cache"
	"github.com/berrylive/live-service/internal/catalog"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/repository"
	"github.com/berrylive/live-service/internal/wallet"
)

// roomBroadcast is one captured room fan-out with its exclusion.
type roomBroadcast struct {
	msg     domain.Message
	exclude string
}

// capturePublisher records every broadcast for assertions.
type capturePublisher struct {
	mu       sync.Mutex
	roomMsgs []roomBroadcast
	userMsgs map[string][]domain.Message
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{userMsgs: make(map[string][]domain.Message)}
}

func (p *capturePublisher) BroadcastToRoom(_ string, msg domain.Message, exclude string) error {
	p.mu.Lock()
	p.roomMsgs = append(p.roomMsgs, roomBroadcast{msg: msg, exclude: exclude})
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) BroadcastToUser(userID string, msg domain.Message) error {
	p.mu.Lock()
	p.userMsgs[userID] = append(p.userMsgs[userID], msg)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) roomMessageTypes() []domain.MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MessageType, len(p.roomMsgs))
	for i, m := range p.roomMsgs {
		out[i] = m.msg.Type
	}
	return out
}

// roomExclude returns the exclusion of the first captured broadcast of
// the given type.
func (p *capturePublisher) roomExclude(t domain.MessageType) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.roomMsgs {
		if m.msg.Type == t {
			return m.exclude, true
		}
	}
	return "", false
}

func (p *capturePublisher) hasRoomMessage(t domain.MessageType) bool {
	for _, mt := range p.roomMessageTypes() {
		if mt == t {
			return true
		}
	}
	return false
}

func (p *capturePublisher) userMessageTypes(userID string) []domain.MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MessageType, len(p.userMsgs[userID]))
	for i, m := range p.userMsgs[userID] {
		out[i] = m.Type
	}
	return out
}

// testEnv wires the full service stack over in-memory repositories.
type testEnv struct {
	users    *repository.MemoryUserRepository
	rooms    *repository.MemoryRoomRepository
	ledger   *repository.MemoryLedgerRepository
	invs     *repository.MemoryInvitationRepository
	followRp *repository.MemoryFollowRepository
	sessions *SessionRegistry
	pub      *capturePublisher

	userSvc     UserService
	giftSvc     GiftService
	walletSvc   WalletService
	presenceSvc PresenceService
	roomSvc     RoomService
	pkSvc       PKService
	followSvc   FollowService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    repository.NewMemoryUserRepository(),
		rooms:    repository.NewMemoryRoomRepository(),
		ledger:   repository.NewMemoryLedgerRepository(),
		invs:     repository.NewMemoryInvitationRepository(),
		followRp: repository.NewMemoryFollowRepository(),
		sessions: NewSessionRegistry(),
		pub:      newCapturePublisher(),
	}

	locks := NewUserLocks()
	cat := catalog.NewMemory(catalog.DefaultEntries())
	calc := wallet.NewCalculator(nil)
	levels := domain.DefaultLevelTable()

	env.followSvc = NewFollowService(env.followRp, env.pub)
	env.userSvc = NewUserService(env.users, locks, env.pub)
	env.walletSvc = NewWalletService(env.users, env.ledger, calc, locks, env.pub)
	env.giftSvc = NewGiftService(env.users, env.rooms, env.ledger, cat, env.sessions, levels, locks, env.followSvc, env.pub)
	env.presenceSvc = NewPresenceService(env.sessions, env.pub)
	env.pkSvc = NewPKService(env.rooms, env.users, time.Minute, env.pub)
	env.roomSvc = NewRoomService(env.rooms, env.users, env.invs, env.followSvc, env.sessions, env.presenceSvc, env.pkSvc, cache.NewMemorySnapshotCache(), time.Second, env.pub)

	return env
}

func (env *testEnv) addUser(t *testing.T, id string, diamonds, earnings int64) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:       id,
		Username: id,
		Diamonds: diamonds,
		Earnings: earnings,
		Level:    1,
	}
	require.NoError(t, env.users.Create(context.Background(), user))
	return user
}

func (env *testEnv) openRoom(t *testing.T, hostID string) *domain.Room {
	t.Helper()

	room, err := env.roomSvc.CreateRoom(context.Background(), hostID, &domain.CreateRoomRequest{Title: hostID + " live"})
	require.NoError(t, err)
	return room
}

func (env *testEnv) getUser(t *testing.T, id string) *domain.User {
	t.Helper()

	user, err := env.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}
