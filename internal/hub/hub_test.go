package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylive/live-service/internal/config"
	"github.com/berrylive/live-service/internal/domain"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	h := NewHub(config.WebSocketConfig{SendBuffer: 8})
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func newTestClient(t *testing.T, h *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id, h, nil, config.WebSocketConfig{SendBuffer: 8})
	h.Register(c)
	return c
}

func recvMsg(t *testing.T, c *Client) domain.Message {
	t.Helper()

	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg domain.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return domain.Message{}
	}
}

func TestBroadcastToRoomExcludesSender(t *testing.T) {
	h := newTestHub(t)
	sender := newTestClient(t, h, "c-sender")
	viewer := newTestClient(t, h, "c-viewer")
	outsider := newTestClient(t, h, "c-outsider")

	h.JoinRoom(sender, "room1")
	h.JoinRoom(viewer, "room1")

	require.NoError(t, h.BroadcastToRoom("room1", domain.NewMessage(domain.MsgChatMessage, nil), sender.ID))
	// The second fan-out proves the first one is fully processed: the hub
	// drains its broadcast channel in order.
	require.NoError(t, h.BroadcastToRoom("room1", domain.NewMessage(domain.MsgRoomUpdated, nil), ""))

	assert.Equal(t, domain.MsgChatMessage, recvMsg(t, viewer).Type)
	assert.Equal(t, domain.MsgRoomUpdated, recvMsg(t, viewer).Type)

	// The excluded sender only sees the second message.
	assert.Equal(t, domain.MsgRoomUpdated, recvMsg(t, sender).Type)
	assert.Empty(t, sender.Send)
	assert.Empty(t, outsider.Send)
}

func TestBroadcastToUserReachesAllConnections(t *testing.T) {
	h := newTestHub(t)
	phone := newTestClient(t, h, "c-phone")
	laptop := newTestClient(t, h, "c-laptop")
	stranger := newTestClient(t, h, "c-stranger")

	h.Authenticate(phone, "alice")
	h.Authenticate(laptop, "alice")
	h.Authenticate(stranger, "bob")

	require.NoError(t, h.BroadcastToUser("alice", domain.NewMessage(domain.MsgUserUpdated, nil)))
	require.NoError(t, h.BroadcastToUser("bob", domain.NewMessage(domain.MsgFollowUpdated, nil)))

	assert.Equal(t, domain.MsgUserUpdated, recvMsg(t, phone).Type)
	assert.Equal(t, domain.MsgUserUpdated, recvMsg(t, laptop).Type)
	assert.Equal(t, domain.MsgFollowUpdated, recvMsg(t, stranger).Type)
	assert.Empty(t, stranger.Send)
}

func TestBroadcastToUserIgnoresUnauthenticated(t *testing.T) {
	h := newTestHub(t)
	anon := newTestClient(t, h, "c-anon")
	auth := newTestClient(t, h, "c-auth")
	h.Authenticate(auth, "alice")

	require.NoError(t, h.BroadcastToUser("alice", domain.NewMessage(domain.MsgUserUpdated, nil)))

	assert.Equal(t, domain.MsgUserUpdated, recvMsg(t, auth).Type)
	assert.Empty(t, anon.Send)
}

func TestRoomClientCount(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(t, h, "c-a")
	b := newTestClient(t, h, "c-b")

	assert.Equal(t, 0, h.RoomClientCount("room1"))

	h.JoinRoom(a, "room1")
	h.JoinRoom(b, "room1")
	assert.Equal(t, 2, h.RoomClientCount("room1"))

	h.LeaveRoom(a, "room1")
	assert.Equal(t, 1, h.RoomClientCount("room1"))
}

func TestRoomUsersDeduplicatesConnections(t *testing.T) {
	h := newTestHub(t)
	phone := newTestClient(t, h, "c-phone")
	laptop := newTestClient(t, h, "c-laptop")
	guest := newTestClient(t, h, "c-guest")
	anon := newTestClient(t, h, "c-anon")

	h.Authenticate(phone, "alice")
	h.Authenticate(laptop, "alice")
	h.Authenticate(guest, "bob")

	h.JoinRoom(phone, "room1")
	h.JoinRoom(laptop, "room1")
	h.JoinRoom(guest, "room1")
	h.JoinRoom(anon, "room1")
	h.JoinRoom(guest, "room2")

	users := h.RoomUsers()
	// alice's two connections collapse into one entry; the client that
	// never authenticated does not count as a viewer.
	assert.Equal(t, []string{"alice", "bob"}, users["room1"])
	assert.Equal(t, []string{"bob"}, users["room2"])
}

func TestUnregisterCleansUpEverywhere(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(t, h, "c-1")

	h.Authenticate(c, "alice")
	h.JoinRoom(c, "room1")

	h.Unregister(c)

	// The send channel closes once the hub has let go of the client.
	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}

	assert.Equal(t, 0, h.RoomClientCount("room1"))

	// Messages to the departed user go nowhere and do not block.
	require.NoError(t, h.BroadcastToUser("alice", domain.NewMessage(domain.MsgUserUpdated, nil)))
}

func TestSendMessageDropsWhenBufferFull(t *testing.T) {
	h := NewHub(config.WebSocketConfig{SendBuffer: 1})
	c := NewClient("c-1", h, nil, config.WebSocketConfig{SendBuffer: 1})

	require.NoError(t, c.SendMessage(domain.NewMessage(domain.MsgChatMessage, nil)))
	require.NoError(t, c.SendMessage(domain.NewMessage(domain.MsgChatMessage, nil)))

	assert.Len(t, c.Send, 1)
}
