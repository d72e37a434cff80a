package audit

import (
	"context"

	"github.com/berrylive/live-service/pkg/log"
)

// Audit actions for money movements and room lifecycle.
const (
	ActionGift       = "wallet.gift"
	ActionWithdraw   = "wallet.withdraw"
	ActionPurchase   = "wallet.purchase"
	ActionCreateRoom = "room.create"
	ActionCloseRoom  = "room.close"
	ActionStartPK    = "pk.start"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogAmount emits an audit log carrying a money or diamond amount.
func LogAmount(ctx context.Context, action string, userID string, amount int64, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Int64(log.FieldAmount, amount).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
