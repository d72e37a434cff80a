// Package handler wires HTTP and WebSocket endpoints to the services.
package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/service"
	"github.com/berrylive/live-service/internal/signaling"
	"github.com/berrylive/live-service/pkg/log"
	"github.com/berrylive/live-service/pkg/middleware"
	"github.com/berrylive/live-service/pkg/response"
)

// Handler handles HTTP requests.
type Handler struct {
	users          service.UserService
	gifts          service.GiftService
	wallets        service.WalletService
	rooms          service.RoomService
	pk             service.PKService
	follows        service.FollowService
	streams        *signaling.Manager
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	users service.UserService,
	gifts service.GiftService,
	wallets service.WalletService,
	rooms service.RoomService,
	pk service.PKService,
	follows service.FollowService,
	streams *signaling.Manager,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		users:          users,
		gifts:          gifts,
		wallets:        wallets,
		rooms:          rooms,
		pk:             pk,
		follows:        follows,
		streams:        streams,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	auth := h.authMiddleware.RequireAuth()
	{
		users := api.Group("/users")
		{
			users.POST("", h.Register)
			users.GET("/:id", h.GetUser)
			users.PUT("/me/withdrawal-method", auth, h.SetWithdrawalMethod)
			users.POST("/:id/follow", auth, h.Follow)
			users.DELETE("/:id/follow", auth, h.Unfollow)
		}

		earnings := api.Group("/earnings")
		{
			earnings.POST("/calculate", h.Calculate)
			earnings.POST("/:id/withdraw", auth, h.Withdraw)
		}

		wallet := api.Group("/wallet")
		{
			wallet.POST("/purchase", auth, h.Purchase)
			wallet.GET("/history", auth, h.History)
			wallet.GET("/platform", auth, h.PlatformEarnings)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", h.ListRooms)
			rooms.GET("/:id", h.GetRoom)
			rooms.GET("/:id/snapshot", h.Snapshot)
			rooms.POST("", auth, h.CreateRoom)
			rooms.DELETE("/:id", auth, h.CloseRoom)
			rooms.POST("/:id/gift", auth, h.SendGift)
			rooms.POST("/:id/invitations", auth, h.Invite)
			rooms.POST("/:id/invitations/accept", auth, h.AcceptInvite)
			rooms.POST("/:id/mic", auth, h.ToggleMic)
			rooms.POST("/:id/sound", auth, h.ToggleSound)
			rooms.POST("/:id/auto-invite", auth, h.ToggleAutoInvite)
			rooms.POST("/:id/pk", auth, h.StartPK)
			rooms.POST("/:id/pk/hearts", auth, h.AddPKHeart)
			rooms.POST("/:id/stream", auth, h.StartStream)
			rooms.DELETE("/:id/stream", auth, h.StopStream)
		}
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// handleError maps domain sentinels to HTTP responses.
func handleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		response.Unprocessable(c, "INSUFFICIENT_BALANCE", err.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		response.Unprocessable(c, "NOT_CONFIGURED", err.Error())
	case errors.Is(err, domain.ErrSignalingFailure):
		response.BadGateway(c, "SIGNALING_FAILED", err.Error())
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Msg(fallback)
		response.InternalError(c, fallback)
	}
}

// Register creates a new account.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username)
	if err != nil {
		handleError(c, err, "failed to register user")
		return
	}
	response.Created(c, user)
}

// GetUser retrieves a user by ID.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err, "failed to get user")
		return
	}
	response.Success(c, user)
}

// SetWithdrawalMethod configures the caller's payout destination.
func (h *Handler) SetWithdrawalMethod(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.WithdrawalMethod
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.SetWithdrawalMethod(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err, "failed to set withdrawal method")
		return
	}
	response.Success(c, user)
}

// Follow makes the caller follow the target user.
func (h *Handler) Follow(c *gin.Context) {
	if err := h.follows.Follow(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		handleError(c, err, "failed to follow")
		return
	}
	response.Success(c, gin.H{"following": true})
}

// Unfollow makes the caller unfollow the target user.
func (h *Handler) Unfollow(c *gin.Context) {
	if err := h.follows.Unfollow(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		handleError(c, err, "failed to unfollow")
		return
	}
	response.Success(c, gin.H{"following": false})
}

// Calculate quotes a withdrawal without executing it.
func (h *Handler) Calculate(c *gin.Context) {
	var req domain.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	quote, err := h.wallets.Preview(c.Request.Context(), req.Amount)
	if err != nil {
		handleError(c, err, "failed to calculate withdrawal")
		return
	}
	response.Success(c, quote)
}

// Withdraw converts the caller's earnings to BRL.
func (h *Handler) Withdraw(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if c.Param("id") != userID {
		response.Forbidden(c, "cannot withdraw for another user")
		return
	}

	var req domain.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.wallets.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		handleError(c, err, "failed to withdraw")
		return
	}
	response.Success(c, result)
}

// Purchase credits bought diamonds to the caller.
func (h *Handler) Purchase(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.wallets.Purchase(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err, "failed to purchase diamonds")
		return
	}
	response.Success(c, user)
}

// History lists the caller's ledger records.
func (h *Handler) History(c *gin.Context) {
	records, err := h.wallets.History(c.Request.Context(), middleware.GetUserID(c), 50)
	if err != nil {
		handleError(c, err, "failed to list history")
		return
	}
	response.Success(c, records)
}

// PlatformEarnings reports accumulated platform fee income.
func (h *Handler) PlatformEarnings(c *gin.Context) {
	total, err := h.wallets.PlatformEarnings(c.Request.Context())
	if err != nil {
		handleError(c, err, "failed to sum platform earnings")
		return
	}
	response.Success(c, gin.H{"total_brl": total})
}

// CreateRoom opens a broadcast for the caller.
func (h *Handler) CreateRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err, "failed to create room")
		return
	}
	response.Created(c, room)
}

// GetRoom retrieves a room by ID.
func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err, "failed to get room")
		return
	}
	response.Success(c, room)
}

// ListRooms lists all active rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		handleError(c, err, "failed to list rooms")
		return
	}
	response.Success(c, rooms)
}

// CloseRoom ends the caller's broadcast.
func (h *Handler) CloseRoom(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("id")

	if err := h.rooms.CloseRoom(ctx, roomID, middleware.GetUserID(c)); err != nil {
		handleError(c, err, "failed to close room")
		return
	}
	if err := h.streams.Stop(ctx, roomID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to stop stream on close")
	}
	response.Success(c, gin.H{"closed": true})
}

// Snapshot returns the room's full current state.
func (h *Handler) Snapshot(c *gin.Context) {
	snapshot, err := h.rooms.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err, "failed to build snapshot")
		return
	}
	response.Success(c, snapshot)
}

// SendGift executes a gift from the caller to the room's host.
func (h *Handler) SendGift(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.GiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.FromUserID = userID

	result, err := h.gifts.SendGift(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err, "failed to send gift")
		return
	}
	response.Success(c, result)
}

// Invite grants a user access to the caller's room.
func (h *Handler) Invite(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	inv, err := h.rooms.Invite(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		handleError(c, err, "failed to invite")
		return
	}
	response.Created(c, inv)
}

// AcceptInvite accepts the caller's invitation to the room.
func (h *Handler) AcceptInvite(c *gin.Context) {
	if err := h.rooms.AcceptInvite(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		handleError(c, err, "failed to accept invite")
		return
	}
	response.Success(c, gin.H{"accepted": true})
}

// ToggleMic flips the caller's microphone flag.
func (h *Handler) ToggleMic(c *gin.Context) {
	h.runToggle(c, h.rooms.ToggleMic)
}

// ToggleSound flips the caller's sound flag.
func (h *Handler) ToggleSound(c *gin.Context) {
	h.runToggle(c, h.rooms.ToggleSound)
}

// ToggleAutoInvite flips the caller's auto-invite flag.
func (h *Handler) ToggleAutoInvite(c *gin.Context) {
	h.runToggle(c, h.rooms.ToggleAutoInvite)
}

func (h *Handler) runToggle(c *gin.Context, fn func(ctx context.Context, roomID, userID string, enabled bool) error) {
	var req domain.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := fn(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Enabled); err != nil {
		handleError(c, err, "failed to toggle")
		return
	}
	response.Success(c, gin.H{"enabled": req.Enabled})
}

// StartPK opens a battle between the caller and an opponent host.
func (h *Handler) StartPK(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.StartPKRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	battle, err := h.pk.Start(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		handleError(c, err, "failed to start pk battle")
		return
	}
	response.Created(c, battle)
}

// AddPKHeart credits a heart to one battle team.
func (h *Handler) AddPKHeart(c *gin.Context) {
	var req domain.PKHeartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	battle, err := h.pk.AddHeart(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		handleError(c, err, "failed to add pk heart")
		return
	}
	response.Success(c, battle)
}

// StartStream negotiates a media session for the caller's room.
func (h *Handler) StartStream(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("id")
	userID := middleware.GetUserID(c)

	room, err := h.rooms.GetRoom(ctx, roomID)
	if err != nil {
		handleError(c, err, "failed to get room")
		return
	}
	if room.HostID != userID {
		response.Forbidden(c, "only the host can stream")
		return
	}

	var req struct {
		StreamURL string `json:"stream_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	broker, err := h.streams.Start(ctx, roomID, req.StreamURL, signaling.DirectionPublish)
	if err != nil {
		handleError(c, err, "failed to start stream")
		return
	}
	response.Created(c, gin.H{"session_id": broker.SessionID(), "state": broker.State()})
}

// StopStream tears the room's media session down.
func (h *Handler) StopStream(c *gin.Context) {
	if err := h.streams.Stop(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err, "failed to stop stream")
		return
	}
	response.Success(c, gin.H{"stopped": true})
}
