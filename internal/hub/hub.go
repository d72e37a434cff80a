// Package hub implements the realtime fan-out bus on top of WebSocket
// connections. Delivery is best-effort at-most-once: a client that cannot
// keep up is disconnected, never queued unboundedly, and resynchronizes
// through the room snapshot endpoint.
package hub

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/berrylive/live-service/internal/config"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/pkg/log"
)

type Hub struct {
	clients    map[string]*Client            // clientID -> client
	rooms      map[string]map[string]*Client // roomID -> clientID -> client
	users      map[string]map[string]*Client // userID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *envelope
	done       chan struct{}
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type envelope struct {
	roomID string // fan out to a room when set
	userID string // fan out to one user's connections when set
	data   []byte
	exclude string // client ID to skip
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		users:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *envelope, 256),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				if client.UserID != "" {
					if conns, ok := h.users[client.UserID]; ok {
						delete(conns, client.ID)
						if len(conns) == 0 {
							delete(h.users, client.UserID)
						}
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			var targets map[string]*Client
			if msg.roomID != "" {
				targets = h.rooms[msg.roomID]
			} else {
				targets = h.users[msg.userID]
			}
			for clientID, client := range targets {
				if clientID == msg.exclude {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					go h.removeClient(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop terminates the run loop. Pending broadcasts are dropped.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Authenticate binds a client to a user id after a successful AUTH frame,
// enabling per-user delivery across all of that user's connections.
func (h *Hub) Authenticate(client *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.UserID = userID
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[string]*Client)
	}
	h.users[userID][client.ID] = client
}

func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	log.L().Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client joined room")
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	log.L().Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client left room")
}

// BroadcastToRoom fans a message out to every client in a room, optionally
// excluding one client id.
func (h *Hub) BroadcastToRoom(roomID string, msg domain.Message, exclude string) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.broadcast <- &envelope{roomID: roomID, data: data, exclude: exclude}
	return nil
}

// BroadcastToUser delivers a message to every connection of one user.
func (h *Hub) BroadcastToUser(userID string, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.broadcast <- &envelope{userID: userID, data: data}
	return nil
}

// RoomUsers reports the authenticated users holding connections in each
// room, deduplicated across connections and sorted. This is the ground
// truth the presence reconciler syncs against.
func (h *Hub) RoomUsers() map[string][]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string][]string, len(h.rooms))
	for roomID, members := range h.rooms {
		seen := make(map[string]struct{}, len(members))
		for _, client := range members {
			if client.UserID == "" {
				continue
			}
			seen[client.UserID] = struct{}{}
		}
		users := make([]string, 0, len(seen))
		for id := range seen {
			users = append(users, id)
		}
		sort.Strings(users)
		out[roomID] = users
	}
	return out
}

// RoomClientCount returns the number of connections in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
