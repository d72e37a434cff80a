package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylive/live-service/internal/domain"
)

func TestCreateRoomValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)

	_, err := env.roomSvc.CreateRoom(context.Background(), "host", &domain.CreateRoomRequest{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.roomSvc.CreateRoom(context.Background(), "nobody", &domain.CreateRoomRequest{Title: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRoomRejectsSecondActiveRoom(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.openRoom(t, "host")

	_, err := env.roomSvc.CreateRoom(context.Background(), "host", &domain.CreateRoomRequest{Title: "again"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateRoomAfterCloseAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	first := env.openRoom(t, "host")
	require.NoError(t, env.roomSvc.CloseRoom(context.Background(), first.ID, "host"))

	second, err := env.roomSvc.CreateRoom(context.Background(), "host", &domain.CreateRoomRequest{Title: "back again"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateRoomOpensSession(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	room := env.openRoom(t, "host")

	_, ok := env.sessions.Get(room.ID)
	assert.True(t, ok)
	assert.True(t, env.pub.hasRoomMessage(domain.MsgRoomUpdated))
}

func TestCloseRoomCascade(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "guest", 0, 0)
	room := env.openRoom(t, "host")

	require.NoError(t, env.presenceSvc.Join(context.Background(), room.ID, "guest", ""))
	_, err := env.roomSvc.Invite(context.Background(), room.ID, "host", &domain.InviteRequest{InviteeID: "guest"})
	require.NoError(t, err)

	require.NoError(t, env.roomSvc.CloseRoom(context.Background(), room.ID, "host"))

	closed, err := env.roomSvc.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusClosed, closed.Status)

	_, ok := env.sessions.Get(room.ID)
	assert.False(t, ok)
	assert.Empty(t, env.presenceSvc.List(room.ID))

	_, err = env.invs.GetByRoomAndInvitee(context.Background(), room.ID, "guest")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCloseRoomOnlyHost(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "other", 0, 0)
	room := env.openRoom(t, "host")

	err := env.roomSvc.CloseRoom(context.Background(), room.ID, "other")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCloseRoomIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	room := env.openRoom(t, "host")

	require.NoError(t, env.roomSvc.CloseRoom(context.Background(), room.ID, "host"))
	require.NoError(t, env.roomSvc.CloseRoom(context.Background(), room.ID, "host"))
}

func TestCanJoinPublicRoom(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	room := env.openRoom(t, "host")

	assert.NoError(t, env.roomSvc.CanJoin(context.Background(), room.ID, "anyone"))
}

func TestCanJoinPrivateRoomNeedsInvite(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "friend", 0, 0)

	room, err := env.roomSvc.CreateRoom(context.Background(), "host", &domain.CreateRoomRequest{
		Title:     "private show",
		IsPrivate: true,
	})
	require.NoError(t, err)

	// Host always gets in, strangers do not.
	assert.NoError(t, env.roomSvc.CanJoin(context.Background(), room.ID, "host"))
	assert.ErrorIs(t, env.roomSvc.CanJoin(context.Background(), room.ID, "friend"), domain.ErrValidation)

	_, err = env.roomSvc.Invite(context.Background(), room.ID, "host", &domain.InviteRequest{InviteeID: "friend"})
	require.NoError(t, err)
	assert.NoError(t, env.roomSvc.CanJoin(context.Background(), room.ID, "friend"))
}

func TestCanJoinClosedRoom(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	room := env.openRoom(t, "host")
	require.NoError(t, env.roomSvc.CloseRoom(context.Background(), room.ID, "host"))

	assert.ErrorIs(t, env.roomSvc.CanJoin(context.Background(), room.ID, "anyone"), domain.ErrValidation)
}

func TestInviteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "friend", 0, 0)
	room := env.openRoom(t, "host")

	first, err := env.roomSvc.Invite(context.Background(), room.ID, "host", &domain.InviteRequest{InviteeID: "friend"})
	require.NoError(t, err)
	second, err := env.roomSvc.Invite(context.Background(), room.ID, "host", &domain.InviteRequest{InviteeID: "friend"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Contains(t, env.pub.userMessageTypes("friend"), domain.MsgRoomUpdated)
}

func TestInviteOnlyHost(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "friend", 0, 0)
	room := env.openRoom(t, "host")

	_, err := env.roomSvc.Invite(context.Background(), room.ID, "friend", &domain.InviteRequest{InviteeID: "friend"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAcceptInvite(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "friend", 0, 0)
	room := env.openRoom(t, "host")

	_, err := env.roomSvc.Invite(context.Background(), room.ID, "host", &domain.InviteRequest{InviteeID: "friend"})
	require.NoError(t, err)

	require.NoError(t, env.roomSvc.AcceptInvite(context.Background(), room.ID, "friend"))
	require.NoError(t, env.roomSvc.AcceptInvite(context.Background(), room.ID, "friend"))

	inv, err := env.invs.GetByRoomAndInvitee(context.Background(), room.ID, "friend")
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationAccepted, inv.Status)

	assert.ErrorIs(t, env.roomSvc.AcceptInvite(context.Background(), room.ID, "stranger"), domain.ErrNotFound)
}

func TestTogglesHostOnlyAndBroadcast(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 0, 0)
	room := env.openRoom(t, "host")

	require.NoError(t, env.roomSvc.ToggleMic(context.Background(), room.ID, "host", false))
	require.NoError(t, env.roomSvc.ToggleSound(context.Background(), room.ID, "host", false))

	assert.True(t, env.pub.hasRoomMessage(domain.MsgMicToggled))
	assert.True(t, env.pub.hasRoomMessage(domain.MsgSoundToggled))

	assert.ErrorIs(t, env.roomSvc.ToggleMic(context.Background(), room.ID, "viewer", true), domain.ErrValidation)
}

func TestAutoInviteOnInvitesFollowers(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "fan1", 0, 0)
	env.addUser(t, "fan2", 0, 0)
	require.NoError(t, env.followSvc.Follow(context.Background(), "fan1", "host"))
	require.NoError(t, env.followSvc.Follow(context.Background(), "fan2", "host"))

	room := env.openRoom(t, "host")
	require.NoError(t, env.roomSvc.ToggleAutoInvite(context.Background(), room.ID, "host", true))

	for _, fan := range []string{"fan1", "fan2"} {
		inv, err := env.invs.GetByRoomAndInvitee(context.Background(), room.ID, fan)
		require.NoError(t, err, "fan=%s", fan)
		assert.Equal(t, domain.InvitationPending, inv.Status)
	}
	assert.True(t, env.pub.hasRoomMessage(domain.MsgAutoInviteToggled))
}

func TestAutoInviteOffInvitesNobody(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "fan", 0, 0)
	require.NoError(t, env.followSvc.Follow(context.Background(), "fan", "host"))

	room := env.openRoom(t, "host")
	require.NoError(t, env.roomSvc.ToggleAutoInvite(context.Background(), room.ID, "host", false))

	_, err := env.invs.GetByRoomAndInvitee(context.Background(), room.ID, "fan")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotAssemblesRoomState(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 1000, 0)
	room := env.openRoom(t, "host")

	require.NoError(t, env.presenceSvc.Join(context.Background(), room.ID, "viewer", ""))
	_, err := env.giftSvc.SendGift(context.Background(), room.ID, &domain.GiftRequest{
		FromUserID: "viewer",
		GiftName:   "teddy",
		Quantity:   1,
	})
	require.NoError(t, err)

	snap, err := env.roomSvc.Snapshot(context.Background(), room.ID)
	require.NoError(t, err)

	assert.Equal(t, room.ID, snap.Room.ID)
	assert.Equal(t, []string{"viewer"}, snap.Presence)
	assert.Equal(t, 1, snap.ViewerCount)
	assert.Equal(t, int64(99), snap.CoinsAccumulated)
	require.Len(t, snap.Ranking, 1)
	assert.Equal(t, "viewer", snap.Ranking[0].UserID)
	assert.Equal(t, []string{"viewer"}, snap.TopContributors)
	assert.Nil(t, snap.PK)
}

func TestSnapshotIncludesRunningBattle(t *testing.T) {
	env := newTestEnv(t)
	roomID := openBattle(t, env)

	snap, err := env.roomSvc.Snapshot(context.Background(), roomID)
	require.NoError(t, err)
	require.NotNil(t, snap.PK)
	assert.Equal(t, "rival", snap.PK.OpponentID)
}

func TestSnapshotServedFromCacheInsideTTL(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)
	env.addUser(t, "viewer", 0, 0)
	room := env.openRoom(t, "host")

	first, err := env.roomSvc.Snapshot(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.ViewerCount)

	require.NoError(t, env.presenceSvc.Join(context.Background(), room.ID, "viewer", ""))

	// Within the TTL the stale cached copy is served.
	cached, err := env.roomSvc.Snapshot(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cached.ViewerCount)
}

func TestSnapshotUnknownRoom(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.roomSvc.Snapshot(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
