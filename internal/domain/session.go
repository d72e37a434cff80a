package domain

import (
	"sort"
	"sync"
)

// GiftLine is one gift entry inside a sender's session history.
type GiftLine struct {
	GiftName string `json:"gift_name"`
	Quantity int64  `json:"quantity"`
}

// ContributorEntry is one row of the in-room gifter ranking.
type ContributorEntry struct {
	UserID              string     `json:"user_id"`
	GiftsSent           []GiftLine `json:"gifts_sent"`
	SessionContribution int64      `json:"session_contribution"`

	order int
}

// LiveSession is the ephemeral per-room state that lives exactly as long as
// the broadcast. SessionContribution is monotonically non-decreasing for the
// session's lifetime; it is the sort key of the in-room ranking.
type LiveSession struct {
	RoomID string

	mu               sync.RWMutex
	viewerCount      int
	coinsAccumulated int64
	senders          map[string]*ContributorEntry
	nextOrder        int
}

// NewLiveSession creates the session for a freshly opened room.
func NewLiveSession(roomID string) *LiveSession {
	return &LiveSession{
		RoomID:  roomID,
		senders: make(map[string]*ContributorEntry),
	}
}

// AddGift upserts the sender's entry with one gift line and adds the total
// cost to their session contribution.
func (s *LiveSession) AddGift(senderID, giftName string, quantity, totalCost int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.senders[senderID]
	if !ok {
		entry = &ContributorEntry{UserID: senderID, order: s.nextOrder}
		s.nextOrder++
		s.senders[senderID] = entry
	}

	merged := false
	for i := range entry.GiftsSent {
		if entry.GiftsSent[i].GiftName == giftName {
			entry.GiftsSent[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		entry.GiftsSent = append(entry.GiftsSent, GiftLine{GiftName: giftName, Quantity: quantity})
	}

	entry.SessionContribution += totalCost
	s.coinsAccumulated += totalCost
}

// Ranking returns contributors by descending session contribution,
// ties broken by insertion order.
func (s *LiveSession) Ranking() []ContributorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ContributorEntry, 0, len(s.senders))
	for _, e := range s.senders {
		copied := *e
		copied.GiftsSent = append([]GiftLine(nil), e.GiftsSent...)
		out = append(out, copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SessionContribution != out[j].SessionContribution {
			return out[i].SessionContribution > out[j].SessionContribution
		}
		return out[i].order < out[j].order
	})
	return out
}

// TopContributors returns the user ids of the top n ranked gifters.
func (s *LiveSession) TopContributors(n int) []string {
	ranking := s.Ranking()
	if len(ranking) < n {
		n = len(ranking)
	}
	out := make([]string, 0, n)
	for _, e := range ranking[:n] {
		out = append(out, e.UserID)
	}
	return out
}

// SetViewerCount records the current presence size.
func (s *LiveSession) SetViewerCount(n int) {
	s.mu.Lock()
	s.viewerCount = n
	s.mu.Unlock()
}

// ViewerCount returns the current presence size.
func (s *LiveSession) ViewerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewerCount
}

// CoinsAccumulated returns the diamonds spent in this session so far.
func (s *LiveSession) CoinsAccumulated() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coinsAccumulated
}

// PKBattle holds the two-team counters for a head-to-head contest.
// It exists only while the battle (and its room) is running.
type PKBattle struct {
	RoomID     string `json:"room_id"`
	OpponentID string `json:"opponent_id"`
	HeartsA    int64  `json:"hearts_a"`
	HeartsB    int64  `json:"hearts_b"`
	ScoreA     int64  `json:"score_a"`
	ScoreB     int64  `json:"score_b"`
}
