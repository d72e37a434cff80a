package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/berrylive/live-service/internal/config"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/hub"
	"github.com/berrylive/live-service/internal/service"
	"github.com/berrylive/live-service/pkg/jwt"
	"github.com/berrylive/live-service/pkg/log"
)

// WSHandler upgrades realtime bus connections and decodes the inbound
// frame set. The first accepted frame must be AUTH; everything else is
// rejected until then.
type WSHandler struct {
	hub      *hub.Hub
	presence service.PresenceService
	rooms    service.RoomService
	tokens   *jwt.Manager
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader

	mu          sync.Mutex
	clientRooms map[string]map[string]struct{} // clientID -> joined rooms
	usernames   map[string]string              // clientID -> username
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(
	h *hub.Hub,
	presence service.PresenceService,
	rooms service.RoomService,
	tokens *jwt.Manager,
	cfg config.WebSocketConfig,
) *WSHandler {
	return &WSHandler{
		hub:      h,
		presence: presence,
		rooms:    rooms,
		tokens:   tokens,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clientRooms: make(map[string]map[string]struct{}),
		usernames:   make(map[string]string),
	}
}

// RegisterRoutes registers the bus endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", func(c *gin.Context) {
		h.HandleWebSocket(c.Writer, c.Request)
	})
}

// HandleWebSocket upgrades the connection and starts the pumps.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.cfg)
	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump(func(c *hub.Client, message []byte) {
			h.handleMessage(c, message)
		})
		h.onDisconnect(client)
	}()
}

func (h *WSHandler) handleMessage(c *hub.Client, message []byte) {
	ctx := context.Background()

	var msg domain.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.SendMessage(domain.NewErrorMessage("INVALID_MESSAGE", "invalid message format"))
		return
	}

	if msg.Type != domain.MsgAuth && c.UserID == "" {
		c.SendMessage(domain.NewErrorMessage("UNAUTHENTICATED", "authenticate first"))
		return
	}

	switch msg.Type {
	case domain.MsgAuth:
		h.handleAuth(c, msg.Payload)

	case domain.MsgJoinStream:
		var payload domain.StreamPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.StreamID == "" {
			c.SendMessage(domain.NewErrorMessage("INVALID_MESSAGE", "stream_id is required"))
			return
		}
		h.handleJoin(ctx, c, payload.StreamID)

	case domain.MsgLeaveStream:
		var payload domain.StreamPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.StreamID == "" {
			c.SendMessage(domain.NewErrorMessage("INVALID_MESSAGE", "stream_id is required"))
			return
		}
		h.handleLeave(ctx, c, payload.StreamID)

	case domain.MsgChatMessage:
		var payload domain.ChatPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.StreamID == "" || payload.Text == "" {
			c.SendMessage(domain.NewErrorMessage("INVALID_MESSAGE", "stream_id and text are required"))
			return
		}
		h.handleChat(c, payload)

	default:
		c.SendMessage(domain.NewErrorMessage("UNKNOWN_TYPE", "unknown message type: "+string(msg.Type)))
	}
}

func (h *WSHandler) handleAuth(c *hub.Client, payload json.RawMessage) {
	var auth domain.AuthPayload
	if err := json.Unmarshal(payload, &auth); err != nil || auth.Token == "" {
		c.SendMessage(domain.NewMessage(domain.MsgAuthResult, domain.AuthResultPayload{
			Success: false,
			Reason:  "token is required",
		}))
		return
	}

	claims, err := h.tokens.Validate(auth.Token)
	if err != nil {
		c.SendMessage(domain.NewMessage(domain.MsgAuthResult, domain.AuthResultPayload{
			Success: false,
			Reason:  "invalid token",
		}))
		return
	}

	h.hub.Authenticate(c, claims.UserID)
	h.mu.Lock()
	h.usernames[c.ID] = claims.Username
	h.mu.Unlock()

	c.SendMessage(domain.NewMessage(domain.MsgAuthResult, domain.AuthResultPayload{
		Success: true,
		UserID:  claims.UserID,
	}))
	log.L().Info().Str(log.FieldClientID, c.ID).Str(log.FieldUserID, claims.UserID).Msg("client authenticated")
}

func (h *WSHandler) handleJoin(ctx context.Context, c *hub.Client, roomID string) {
	if err := h.rooms.CanJoin(ctx, roomID, c.UserID); err != nil {
		c.SendMessage(domain.NewErrorMessage("JOIN_REJECTED", err.Error()))
		return
	}

	h.hub.JoinRoom(c, roomID)
	h.mu.Lock()
	if h.clientRooms[c.ID] == nil {
		h.clientRooms[c.ID] = make(map[string]struct{})
	}
	h.clientRooms[c.ID][roomID] = struct{}{}
	h.mu.Unlock()

	if err := h.presence.Join(ctx, roomID, c.UserID, c.ID); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("presence join failed")
	}
}

func (h *WSHandler) handleLeave(ctx context.Context, c *hub.Client, roomID string) {
	h.hub.LeaveRoom(c, roomID)
	h.mu.Lock()
	delete(h.clientRooms[c.ID], roomID)
	h.mu.Unlock()

	if err := h.presence.Leave(ctx, roomID, c.UserID); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("presence leave failed")
	}
	h.closeIfHost(ctx, roomID, c.UserID)
}

// closeIfHost ends the broadcast when the departing viewer is its host.
// The show does not go on without the host; the close cascade tears down
// the session, presence and any running battle.
func (h *WSHandler) closeIfHost(ctx context.Context, roomID, userID string) {
	room, err := h.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return
	}
	if room.HostID != userID || room.Status != domain.RoomStatusActive {
		return
	}
	if err := h.rooms.CloseRoom(ctx, roomID, userID); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("host-leave close failed")
	}
}

func (h *WSHandler) handleChat(c *hub.Client, payload domain.ChatPayload) {
	h.mu.Lock()
	joined := false
	if rooms, ok := h.clientRooms[c.ID]; ok {
		_, joined = rooms[payload.StreamID]
	}
	payload.Username = h.usernames[c.ID]
	h.mu.Unlock()

	if !joined {
		c.SendMessage(domain.NewErrorMessage("NOT_IN_ROOM", "join the stream first"))
		return
	}

	payload.UserID = c.UserID
	h.hub.BroadcastToRoom(payload.StreamID, domain.NewMessage(domain.MsgChatMessage, payload), "")
}

// onDisconnect leaves every room the client was in. The viewer drops out
// of presence even on an abrupt connection loss.
func (h *WSHandler) onDisconnect(c *hub.Client) {
	ctx := context.Background()

	h.mu.Lock()
	rooms := h.clientRooms[c.ID]
	delete(h.clientRooms, c.ID)
	delete(h.usernames, c.ID)
	h.mu.Unlock()

	for roomID := range rooms {
		if c.UserID != "" {
			if err := h.presence.Leave(ctx, roomID, c.UserID); err != nil {
				log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("presence cleanup failed")
			}
			h.closeIfHost(ctx, roomID, c.UserID)
		}
	}
}
