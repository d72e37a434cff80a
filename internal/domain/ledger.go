package domain

import "time"

// LedgerType classifies an append-only ledger record.
type LedgerType string

const (
	LedgerPurchase        LedgerType = "purchase"
	LedgerGiftSent        LedgerType = "gift-sent"
	LedgerGiftReceived    LedgerType = "gift-received"
	LedgerWithdrawal      LedgerType = "withdrawal"
	LedgerPlatformFee     LedgerType = "platform-fee-income"
)

// LedgerStatus is the settlement state of a record.
type LedgerStatus string

const (
	LedgerCompleted LedgerStatus = "completed"
)

// PlatformAccount is the owner id of platform-facing ledger records.
// Only withdrawal fees are booked against it; purchase revenue is not.
const PlatformAccount = "platform"

// LedgerRecord is an immutable append-only transaction record. A withdrawal
// always produces two records together: the user-facing net amount and the
// platform-facing fee. They are never collapsed into one.
// WithdrawalResult reports a committed withdrawal: the exact money split,
// the updated user and the ledger pair that recorded it.
type WithdrawalResult struct {
	Diamonds int64           `json:"diamonds"`
	Gross    Centavos        `json:"gross_brl"`
	Fee      Centavos        `json:"fee_brl"`
	Net      Centavos        `json:"net_brl"`
	User     UserResponse    `json:"user"`
	Records  []*LedgerRecord `json:"records"`
}

type LedgerRecord struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	Type       LedgerType   `json:"type"`
	AmountBRL  Centavos     `json:"amount_brl"`
	AmountCoins int64       `json:"amount_coins"`
	Status     LedgerStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}
