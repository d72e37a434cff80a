package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylive/live-service/internal/domain"
)

func TestSendGiftCommitsBothSides(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 1000, 0)
	room := env.openRoom(t, "host")

	result, err := env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
		FromUserID: "viewer",
		GiftName:   "teddy",
		Quantity:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(198), result.Total)
	assert.Equal(t, int64(802), result.Sender.Diamonds)
	assert.Equal(t, int64(198), result.Receiver.Earnings)

	sender := env.getUser(t, "viewer")
	receiver := env.getUser(t, "host")
	assert.Equal(t, int64(802), sender.Diamonds)
	assert.Equal(t, int64(198), sender.XP)
	assert.Equal(t, 2, sender.Level)
	assert.Equal(t, int64(198), sender.LifetimeSent)
	assert.Equal(t, int64(198), receiver.Earnings)
	assert.Equal(t, int64(198), receiver.XP)
	assert.Equal(t, 2, receiver.Level)
	assert.Equal(t, int64(198), receiver.LifetimeReceived)
	assert.Equal(t, int64(2), receiver.ReceivedGifts["teddy"])

	// Diamonds leaving the sender equal earnings arriving at the receiver.
	assert.Equal(t, int64(1000)-sender.Diamonds, receiver.Earnings)

	require.Len(t, result.Ranking, 1)
	assert.Equal(t, "viewer", result.Ranking[0].UserID)

	assert.True(t, env.pub.hasRoomMessage(domain.MsgNewGift))
	assert.Contains(t, env.pub.userMessageTypes("viewer"), domain.MsgUserUpdated)
	assert.Contains(t, env.pub.userMessageTypes("host"), domain.MsgGiftReceived)
}

func TestSendGiftInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 50, 0)
	room := env.openRoom(t, "host")

	_, err := env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
		FromUserID: "viewer",
		GiftName:   "teddy",
		Quantity:   1,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	assert.Equal(t, int64(50), env.getUser(t, "viewer").Diamonds)
	assert.Equal(t, int64(0), env.getUser(t, "host").Earnings)
	assert.False(t, env.pub.hasRoomMessage(domain.MsgNewGift))

	session, ok := env.sessions.Get(room.ID)
	require.True(t, ok)
	assert.Equal(t, int64(0), session.CoinsAccumulated())
}

func TestSendGiftValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 1000, 0)
	room := env.openRoom(t, "host")

	tests := []struct {
		name string
		req  domain.GiftRequest
		want error
	}{
		{"zero quantity", domain.GiftRequest{FromUserID: "viewer", GiftName: "rose", Quantity: 0}, domain.ErrValidation},
		{"negative quantity", domain.GiftRequest{FromUserID: "viewer", GiftName: "rose", Quantity: -5}, domain.ErrValidation},
		{"unknown gift", domain.GiftRequest{FromUserID: "viewer", GiftName: "dragon", Quantity: 1}, domain.ErrNotFound},
		{"unknown sender", domain.GiftRequest{FromUserID: "ghost", GiftName: "rose", Quantity: 1}, domain.ErrNotFound},
		{"self gift", domain.GiftRequest{FromUserID: "host", GiftName: "rose", Quantity: 1}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.giftSvc.SendGift(context.Background(), room.ID, &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSendGiftToClosedRoomRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 1000, 0)
	room := env.openRoom(t, "host")
	require.NoError(t, env.roomSvc.CloseRoom(context.Background(), room.ID, "host"))

	_, err := env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
		FromUserID: "viewer",
		GiftName:   "rose",
		Quantity:   1,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSendGiftLevelsUpSender(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 30000, 0)
	room := env.openRoom(t, "host")

	// 20000 XP in one step crosses several thresholds at once.
	result, err := env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
		FromUserID: "viewer",
		GiftName:   "castle",
		Quantity:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, result.Sender.Level)
}

func TestSendGiftPremiumTriggersAutoFollow(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 5000, 0)
	room := env.openRoom(t, "host")

	_, err := env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
		FromUserID: "viewer",
		GiftName:   "sports-car",
		Quantity:   1,
	})
	require.NoError(t, err)

	following, err := env.followSvc.IsFollowing(context.Background(), "viewer", "host")
	require.NoError(t, err)
	assert.True(t, following)
	assert.Contains(t, env.pub.userMessageTypes("viewer"), domain.MsgFollowUpdated)
}

func TestSendGiftOrdinaryGiftDoesNotFollow(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 1000, 0)
	room := env.openRoom(t, "host")

	_, err := env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
		FromUserID: "viewer",
		GiftName:   "rose",
		Quantity:   1,
	})
	require.NoError(t, err)

	following, err := env.followSvc.IsFollowing(context.Background(), "viewer", "host")
	require.NoError(t, err)
	assert.False(t, following)
}

func TestSendGiftConcurrentSpendNeverOverdraws(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 500, 0)
	room := env.openRoom(t, "host")

	// 500 diamonds fund at most 5 teddy gifts; fire 20 attempts at once.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
				FromUserID: "viewer",
				GiftName:   "teddy",
				Quantity:   1,
			})
		}()
	}
	wg.Wait()

	sender := env.getUser(t, "viewer")
	receiver := env.getUser(t, "host")
	assert.GreaterOrEqual(t, sender.Diamonds, int64(0))
	assert.Equal(t, int64(500)-sender.Diamonds, receiver.Earnings)
	assert.Equal(t, int64(0), receiver.Earnings%99)
}

func TestSendGiftAppendsLedgerPair(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 1000, 0)
	room := env.openRoom(t, "host")

	_, err := env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
		FromUserID: "viewer",
		GiftName:   "heart",
		Quantity:   3,
	})
	require.NoError(t, err)

	sent, err := env.ledger.ListByUser(context.Background(), "viewer", 10)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, domain.LedgerGiftSent, sent[0].Type)
	assert.Equal(t, int64(15), sent[0].AmountCoins)

	received, err := env.ledger.ListByUser(context.Background(), "host", 10)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, domain.LedgerGiftReceived, received[0].Type)
}
