package service

import (
	"context"
	"fmt"

	"github.com/berrylive/live-service/internal/audit"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/repository"
	"github.com/berrylive/live-service/internal/wallet"
	"github.com/berrylive/live-service/pkg/log"
)

// walletServiceImpl implements WalletService.
type walletServiceImpl struct {
	users  repository.UserRepository
	ledger repository.LedgerRepository
	calc   *wallet.Calculator
	locks  *UserLocks
	pub    Publisher
}

// NewWalletService creates a new wallet service.
func NewWalletService(
	users repository.UserRepository,
	ledger repository.LedgerRepository,
	calc *wallet.Calculator,
	locks *UserLocks,
	pub Publisher,
) WalletService {
	return &walletServiceImpl{
		users:  users,
		ledger: ledger,
		calc:   calc,
		locks:  locks,
		pub:    pub,
	}
}

// Preview quotes a withdrawal without touching any balance.
func (s *walletServiceImpl) Preview(_ context.Context, diamonds int64) (*wallet.Quote, error) {
	quote, err := s.calc.Calculate(diamonds)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// Withdraw converts earned diamonds to BRL. The user's earnings are
// debited and a withdrawal plus platform-fee ledger pair is appended; the
// two records are written together or not at all, and a ledger failure
// restores the debit before the error surfaces. The per-user lock is held
// across debit, append and restore, so no other writer sees the interim
// state.
func (s *walletServiceImpl) Withdraw(ctx context.Context, userID string, diamonds int64) (*domain.WithdrawalResult, error) {
	l := log.Ctx(ctx)

	quote, err := s.calc.Calculate(diamonds)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	var updated *domain.User
	err = s.users.UpdateAtomic(ctx, []string{userID}, func(users map[string]*domain.User) error {
		u := users[userID]

		if u.WithdrawalMethod == nil {
			return fmt.Errorf("%w: no withdrawal method configured", domain.ErrNotConfigured)
		}
		if u.Earnings < diamonds {
			return domain.ErrInsufficientBalance
		}

		u.Earnings -= diamonds
		u.EarningsWithdrawn += diamonds
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := []*domain.LedgerRecord{
		{
			UserID:      userID,
			Type:        domain.LedgerWithdrawal,
			AmountBRL:   quote.Net,
			AmountCoins: diamonds,
			Status:      domain.LedgerCompleted,
		},
		{
			UserID:    domain.PlatformAccount,
			Type:      domain.LedgerPlatformFee,
			AmountBRL: quote.Fee,
			Status:    domain.LedgerCompleted,
		},
	}
	if err := s.ledger.Append(ctx, records...); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to record withdrawal in ledger")
		restoreErr := s.users.UpdateAtomic(ctx, []string{userID}, func(users map[string]*domain.User) error {
			u := users[userID]
			u.Earnings += diamonds
			u.EarningsWithdrawn -= diamonds
			return nil
		})
		if restoreErr != nil {
			l.Error().Err(restoreErr).Str(log.FieldUserID, userID).Msg("failed to restore earnings after ledger failure")
		}
		return nil, err
	}

	audit.LogAmount(ctx, audit.ActionWithdraw, userID, int64(quote.Net), "withdrawal committed")

	result := &domain.WithdrawalResult{
		Diamonds: diamonds,
		Gross:    quote.Gross,
		Fee:      quote.Fee,
		Net:      quote.Net,
		User:     updated.ToResponse(),
		Records:  records,
	}

	s.pub.BroadcastToUser(userID, domain.NewMessage(domain.MsgUserUpdated, result.User))

	l.Info().
		Str(log.FieldUserID, userID).
		Int64("diamonds", diamonds).
		Int64(log.FieldAmount, int64(quote.Net)).
		Msg("withdrawal committed")

	return result, nil
}

// Purchase credits bought diamonds to the spendable balance. Purchase
// revenue is booked to the buyer's own ledger history, never to the
// platform account.
func (s *walletServiceImpl) Purchase(ctx context.Context, userID string, req *domain.PurchaseRequest) (*domain.UserResponse, error) {
	l := log.Ctx(ctx)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	var updated *domain.User
	err := s.users.UpdateAtomic(ctx, []string{userID}, func(users map[string]*domain.User) error {
		u := users[userID]
		u.Diamonds += req.Amount
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Append(ctx, &domain.LedgerRecord{
		UserID:      userID,
		Type:        domain.LedgerPurchase,
		AmountBRL:   req.PaidBRL,
		AmountCoins: req.Amount,
		Status:      domain.LedgerCompleted,
	}); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to record purchase in ledger")
	}

	audit.LogAmount(ctx, audit.ActionPurchase, userID, req.Amount, "diamonds purchased")

	resp := updated.ToResponse()
	s.pub.BroadcastToUser(userID, domain.NewMessage(domain.MsgUserUpdated, resp))
	return &resp, nil
}

// PlatformEarnings totals the platform's fee income over all withdrawals.
func (s *walletServiceImpl) PlatformEarnings(ctx context.Context) (domain.Centavos, error) {
	return s.ledger.SumByUserAndType(ctx, domain.PlatformAccount, domain.LedgerPlatformFee)
}

// History lists a user's ledger records, newest first.
func (s *walletServiceImpl) History(ctx context.Context, userID string, limit int) ([]*domain.LedgerRecord, error) {
	return s.ledger.ListByUser(ctx, userID, limit)
}
