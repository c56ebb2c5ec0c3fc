package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceEffect is one signed balance adjustment the engine must apply to
// an account inside the same database transaction as the row mutation that
// caused it.
type BalanceEffect struct {
	AccountID uuid.UUID
	Delta     decimal.Decimal
}

// SettleEffects returns the balance adjustments caused by a transaction
// becoming settled:
//
//	income    +amount to the source account
//	expense   -amount from the source account
//	transfer  -amount from the source, +amount to the destination
//
// The inputs must be the values persisted at settlement time; when a
// settled transaction is edited, the caller first applies
// UnsettleEffects over the previous values, then SettleEffects over the
// new ones, composing both inside one atomic unit.
func SettleEffects(kind TransactionKind, amount decimal.Decimal, source uuid.UUID, destination *uuid.UUID) []BalanceEffect {
	switch kind {
	case Income:
		return []BalanceEffect{{AccountID: source, Delta: amount}}
	case Expense:
		return []BalanceEffect{{AccountID: source, Delta: amount.Neg()}}
	case Transfer:
		if destination == nil {
			return nil
		}
		return []BalanceEffect{
			{AccountID: source, Delta: amount.Neg()},
			{AccountID: *destination, Delta: amount},
		}
	}
	return nil
}

// UnsettleEffects returns the exact inverse of SettleEffects, computed
// from the previously persisted values of a transaction that stops being
// settled (reversal, un-pay, cascade delete).
func UnsettleEffects(kind TransactionKind, amount decimal.Decimal, source uuid.UUID, destination *uuid.UUID) []BalanceEffect {
	effects := SettleEffects(kind, amount, source, destination)
	for i := range effects {
		effects[i].Delta = effects[i].Delta.Neg()
	}
	return effects
}

// TransactionEffects is a convenience over SettleEffects for a loaded row.
func TransactionEffects(t *Transaction) []BalanceEffect {
	return SettleEffects(t.Kind, t.Amount, t.SourceID, t.DestinationID)
}

// InverseTransactionEffects is a convenience over UnsettleEffects for a
// loaded row.
func InverseTransactionEffects(t *Transaction) []BalanceEffect {
	return UnsettleEffects(t.Kind, t.Amount, t.SourceID, t.DestinationID)
}
