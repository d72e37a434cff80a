package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/berrylive/live-service/internal/domain"
)

// MemoryUserRepository is an in-memory UserRepository for development and
// tests. It hands out clones and serializes UpdateAtomic calls under one
// lock, giving the same all-or-nothing semantics as the database version.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMemoryUserRepository creates an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*domain.User)}
}

// Create creates a new user.
func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user.Clone()
	return nil
}

// GetByID retrieves a user by ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user.Clone(), nil
}

// GetByUsername retrieves a user by username.
func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			return user.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

// UpdateAtomic applies fn to clones of the listed users and commits them
// back only if fn succeeds.
func (r *MemoryUserRepository) UpdateAtomic(_ context.Context, ids []string, fn func(users map[string]*domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clones := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		user, ok := r.users[id]
		if !ok {
			return domain.ErrNotFound
		}
		clones[id] = user.Clone()
	}

	if err := fn(clones); err != nil {
		return err
	}

	now := time.Now()
	for id, user := range clones {
		user.UpdatedAt = now
		r.users[id] = user
	}
	return nil
}

// MemoryRoomRepository is an in-memory RoomRepository.
type MemoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

// NewMemoryRoomRepository creates an empty in-memory room repository.
func NewMemoryRoomRepository() *MemoryRoomRepository {
	return &MemoryRoomRepository{rooms: make(map[string]*domain.Room)}
}

// Create creates a new room.
func (r *MemoryRoomRepository) Create(_ context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	room.Status = domain.RoomStatusActive
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	copied := *room
	r.rooms[room.ID] = &copied
	return nil
}

// GetByID retrieves a room by ID.
func (r *MemoryRoomRepository) GetByID(_ context.Context, id string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *room
	return &copied, nil
}

// Update persists the full room state.
func (r *MemoryRoomRepository) Update(_ context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; !ok {
		return domain.ErrNotFound
	}
	if room.Status == domain.RoomStatusClosed && room.ClosedAt == nil {
		now := time.Now()
		room.ClosedAt = &now
	}
	copied := *room
	r.rooms[room.ID] = &copied
	return nil
}

// ListActive retrieves all currently active rooms.
func (r *MemoryRoomRepository) ListActive(_ context.Context) ([]*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Room
	for _, room := range r.rooms {
		if room.Status == domain.RoomStatusActive {
			copied := *room
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetActiveByHost retrieves the host's active room, if any.
func (r *MemoryRoomRepository) GetActiveByHost(_ context.Context, hostID string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, room := range r.rooms {
		if room.HostID == hostID && room.Status == domain.RoomStatusActive {
			copied := *room
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MemoryLedgerRepository is an in-memory append-only LedgerRepository.
type MemoryLedgerRepository struct {
	mu      sync.RWMutex
	records []*domain.LedgerRecord
}

// NewMemoryLedgerRepository creates an empty in-memory ledger repository.
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{}
}

// Append writes records as one unit.
func (r *MemoryLedgerRepository) Append(_ context.Context, records ...*domain.LedgerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		copied := *rec
		r.records = append(r.records, &copied)
	}
	return nil
}

// ListByUser retrieves a user's records, newest first.
func (r *MemoryLedgerRepository) ListByUser(_ context.Context, userID string, limit int) ([]*domain.LedgerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	var out []*domain.LedgerRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].UserID == userID {
			copied := *r.records[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

// SumByUserAndType totals the BRL amounts of a user's records of one type.
func (r *MemoryLedgerRepository) SumByUserAndType(_ context.Context, userID string, t domain.LedgerType) (domain.Centavos, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total domain.Centavos
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Type == t {
			total += rec.AmountBRL
		}
	}
	return total, nil
}

// MemoryInvitationRepository is an in-memory InvitationRepository.
type MemoryInvitationRepository struct {
	mu          sync.RWMutex
	invitations map[string]*domain.Invitation
}

// NewMemoryInvitationRepository creates an empty in-memory invitation repository.
func NewMemoryInvitationRepository() *MemoryInvitationRepository {
	return &MemoryInvitationRepository{invitations: make(map[string]*domain.Invitation)}
}

// Create creates a new invitation.
func (r *MemoryInvitationRepository) Create(_ context.Context, inv *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	copied := *inv
	r.invitations[inv.ID] = &copied
	return nil
}

// GetByRoomAndInvitee retrieves an invitation for a room and invitee pair.
func (r *MemoryInvitationRepository) GetByRoomAndInvitee(_ context.Context, roomID, inviteeID string) (*domain.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inv := range r.invitations {
		if inv.RoomID == roomID && inv.InviteeID == inviteeID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Update persists the invitation state.
func (r *MemoryInvitationRepository) Update(_ context.Context, inv *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invitations[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *inv
	r.invitations[inv.ID] = &copied
	return nil
}

// DeleteByRoom removes all invitations of a room.
func (r *MemoryInvitationRepository) DeleteByRoom(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, inv := range r.invitations {
		if inv.RoomID == roomID {
			delete(r.invitations, id)
		}
	}
	return nil
}

// MemoryFollowRepository is an in-memory FollowRepository.
type MemoryFollowRepository struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{} // follower -> followees
}

// NewMemoryFollowRepository creates an empty in-memory follow repository.
func NewMemoryFollowRepository() *MemoryFollowRepository {
	return &MemoryFollowRepository{edges: make(map[string]map[string]struct{})}
}

// Follow records a follow edge.
func (r *MemoryFollowRepository) Follow(_ context.Context, followerID, followeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.edges[followerID] == nil {
		r.edges[followerID] = make(map[string]struct{})
	}
	r.edges[followerID][followeeID] = struct{}{}
	return nil
}

// Unfollow removes a follow edge.
func (r *MemoryFollowRepository) Unfollow(_ context.Context, followerID, followeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.edges[followerID], followeeID)
	return nil
}

// IsFollowing reports whether the follow edge exists.
func (r *MemoryFollowRepository) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.edges[followerID][followeeID]
	return ok, nil
}

// Followers returns the ids of everyone following the given user.
func (r *MemoryFollowRepository) Followers(_ context.Context, followeeID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for follower, followees := range r.edges {
		if _, ok := followees[followeeID]; ok {
			out = append(out, follower)
		}
	}
	sort.Strings(out)
	return out, nil
}
