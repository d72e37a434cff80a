package service

import (
	"context"
	"fmt"

	"github.com/berrylive/live-service/internal/audit"
	"github.com/berrylive/live-service/internal/catalog"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/repository"
	"github.com/berrylive/live-service/pkg/log"
)

// giftServiceImpl implements GiftService.
type giftServiceImpl struct {
	users    repository.UserRepository
	rooms    repository.RoomRepository
	ledger   repository.LedgerRepository
	catalog  catalog.Catalog
	sessions *SessionRegistry
	levels   domain.LevelTable
	locks    *UserLocks
	follows  FollowService
	pub      Publisher
}

// NewGiftService creates a new gift service.
func NewGiftService(
	users repository.UserRepository,
	rooms repository.RoomRepository,
	ledger repository.LedgerRepository,
	cat catalog.Catalog,
	sessions *SessionRegistry,
	levels domain.LevelTable,
	locks *UserLocks,
	follows FollowService,
	pub Publisher,
) GiftService {
	return &giftServiceImpl{
		users:    users,
		rooms:    rooms,
		ledger:   ledger,
		catalog:  cat,
		sessions: sessions,
		levels:   levels,
		locks:    locks,
		follows:  follows,
		pub:      pub,
	}
}

// SendGift runs the whole gift transaction as one unit: debit, credit,
// progression, session update. Either everything commits or the balances
// are untouched. Broadcasts go out only after the commit.
func (s *giftServiceImpl) SendGift(ctx context.Context, roomID string, req *domain.GiftRequest) (*domain.GiftResult, error) {
	l := log.Ctx(ctx)

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	gift, ok := s.catalog.Lookup(req.GiftName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown gift %q", domain.ErrNotFound, req.GiftName)
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomStatusActive {
		return nil, fmt.Errorf("%w: room is closed", domain.ErrValidation)
	}

	senderID := req.FromUserID
	receiverID := room.HostID
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot gift yourself", domain.ErrValidation)
	}

	total := gift.Price * req.Quantity

	unlock := s.locks.lock(senderID, receiverID)
	defer unlock()

	var sender, receiver *domain.User
	err = s.users.UpdateAtomic(ctx, []string{senderID, receiverID}, func(users map[string]*domain.User) error {
		snd := users[senderID]
		rcv := users[receiverID]

		if snd.Diamonds < total {
			return domain.ErrInsufficientBalance
		}

		snd.Diamonds -= total
		snd.XP += total
		snd.Level = s.levels.LevelFor(snd.XP)
		snd.LifetimeSent += total

		rcv.Earnings += total
		rcv.XP += total
		rcv.Level = s.levels.LevelFor(rcv.XP)
		rcv.LifetimeReceived += total
		if rcv.ReceivedGifts == nil {
			rcv.ReceivedGifts = make(map[string]int64)
		}
		rcv.ReceivedGifts[gift.Name] += req.Quantity

		sender = snd
		receiver = rcv
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Append(ctx,
		&domain.LedgerRecord{
			UserID:      senderID,
			Type:        domain.LedgerGiftSent,
			AmountCoins: total,
			Status:      domain.LedgerCompleted,
		},
		&domain.LedgerRecord{
			UserID:      receiverID,
			Type:        domain.LedgerGiftReceived,
			AmountCoins: total,
			Status:      domain.LedgerCompleted,
		},
	); err != nil {
		l.Error().Err(err).Msg("failed to record gift in ledger")
	}

	var ranking []domain.ContributorEntry
	if session, ok := s.sessions.Get(roomID); ok {
		session.AddGift(senderID, gift.Name, req.Quantity, total)
		ranking = session.Ranking()
	}

	audit.LogAmount(ctx, audit.ActionGift, senderID, total, "gift sent")

	result := &domain.GiftResult{
		Sender:   sender.ToResponse(),
		Receiver: receiver.ToResponse(),
		Gift:     gift,
		Quantity: req.Quantity,
		Total:    total,
		Ranking:  ranking,
	}

	s.pub.BroadcastToRoom(roomID, domain.NewMessage(domain.MsgNewGift, domain.GiftEventPayload{
		StreamID:   roomID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		GiftName:   gift.Name,
		Quantity:   req.Quantity,
		TotalCost:  total,
		Ranking:    ranking,
	}), "")
	s.pub.BroadcastToUser(senderID, domain.NewMessage(domain.MsgUserUpdated, result.Sender))
	s.pub.BroadcastToUser(receiverID, domain.NewMessage(domain.MsgGiftReceived, result))
	s.pub.BroadcastToUser(receiverID, domain.NewMessage(domain.MsgUserUpdated, result.Receiver))

	if gift.TriggersAutoFollow {
		if following, err := s.follows.IsFollowing(ctx, senderID, receiverID); err == nil && !following {
			if err := s.follows.Follow(ctx, senderID, receiverID); err != nil {
				l.Warn().Err(err).Msg("auto-follow after premium gift failed")
			}
		}
	}

	l.Info().
		Str(log.FieldRoomID, roomID).
		Str(log.FieldUserID, senderID).
		Str(log.FieldGiftName, gift.Name).
		Int64(log.FieldAmount, total).
		Msg("gift committed")

	return result, nil
}
