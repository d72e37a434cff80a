package domain

import (
	"time"
)

// WithdrawalMethod is the payout destination a broadcaster configured.
type WithdrawalMethod struct {
	Kind string `json:"kind"` // e.g. "pix", "bank_transfer"
	Key  string `json:"key"`
}

// OwnedFrame is an avatar frame a user owns, with its expiry.
type OwnedFrame struct {
	FrameID   string    `json:"frame_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// User represents a user account with its wallet and progression state.
// Diamonds are the spendable balance; Earnings accrue from received gifts
// and are the only balance a withdrawal can draw from.
type User struct {
	ID                string            `json:"id"`
	Username          string            `json:"username"`
	Diamonds          int64             `json:"diamonds"`
	Earnings          int64             `json:"earnings"`
	EarningsWithdrawn int64             `json:"earnings_withdrawn"`
	XP                int64             `json:"xp"`
	Level             int               `json:"level"`
	LifetimeSent      int64             `json:"lifetime_sent"`
	LifetimeReceived  int64             `json:"lifetime_received"`
	ReceivedGifts     map[string]int64  `json:"received_gifts,omitempty"`
	OwnedFrames       []OwnedFrame      `json:"owned_frames,omitempty"`
	WithdrawalMethod  *WithdrawalMethod `json:"withdrawal_method,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Clone returns a deep copy. Repositories hand out clones so callers can
// only mutate state through the atomic update path.
func (u *User) Clone() *User {
	c := *u
	if u.ReceivedGifts != nil {
		c.ReceivedGifts = make(map[string]int64, len(u.ReceivedGifts))
		for k, v := range u.ReceivedGifts {
			c.ReceivedGifts[k] = v
		}
	}
	if u.OwnedFrames != nil {
		c.OwnedFrames = append([]OwnedFrame(nil), u.OwnedFrames...)
	}
	if u.WithdrawalMethod != nil {
		m := *u.WithdrawalMethod
		c.WithdrawalMethod = &m
	}
	return &c
}

// LevelTable holds the cumulative XP required for each level. Index i is the
// XP needed to hold level i+1; a user starts at level 1.
type LevelTable []int64

// DefaultLevelTable is the production progression curve.
func DefaultLevelTable() LevelTable {
	return LevelTable{100, 500, 1500, 5000, 15000, 50000, 150000, 500000, 1500000}
}

// LevelFor walks the table upward and returns the level the given XP grants.
// A single XP increment can cross several thresholds at once.
func (t LevelTable) LevelFor(xp int64) int {
	level := 1
	for _, threshold := range t {
		if xp < threshold {
			break
		}
		level++
	}
	return level
}

// UserResponse is the user shape exposed over the API and the realtime bus.
type UserResponse struct {
	ID                string            `json:"id"`
	Username          string            `json:"username"`
	Diamonds          int64             `json:"diamonds"`
	Earnings          int64             `json:"earnings"`
	EarningsWithdrawn int64             `json:"earnings_withdrawn"`
	XP                int64             `json:"xp"`
	Level             int               `json:"level"`
	LifetimeSent      int64             `json:"lifetime_sent"`
	LifetimeReceived  int64             `json:"lifetime_received"`
	ReceivedGifts     map[string]int64  `json:"received_gifts,omitempty"`
	OwnedFrames       []OwnedFrame      `json:"owned_frames,omitempty"`
	WithdrawalMethod  *WithdrawalMethod `json:"withdrawal_method,omitempty"`
}

// ToResponse converts User to UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:                u.ID,
		Username:          u.Username,
		Diamonds:          u.Diamonds,
		Earnings:          u.Earnings,
		EarningsWithdrawn: u.EarningsWithdrawn,
		XP:                u.XP,
		Level:             u.Level,
		LifetimeSent:      u.LifetimeSent,
		LifetimeReceived:  u.LifetimeReceived,
		ReceivedGifts:     u.ReceivedGifts,
		OwnedFrames:       u.OwnedFrames,
		WithdrawalMethod:  u.WithdrawalMethod,
	}
}
