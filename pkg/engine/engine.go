// Package engine implements the transaction engine: the single write path
// of the ledger. Every mutating operation validates references, computes
// the balance deltas implied by the settlement transition, and applies row
// mutations and balance updates inside one serializable database
// transaction, so a balance change is never visible without the row change
// that caused it.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/store"
)

// Engine coordinates transaction mutations against the stores.
type Engine struct {
	conn *db.Connection
	now  func() time.Time
}

// New creates an Engine on top of an open database connection.
func New(conn *db.Connection) *Engine {
	return &Engine{conn: conn, now: time.Now}
}

// today returns the current calendar date (midnight UTC).
func (e *Engine) today() time.Time {
	n := e.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// atomic runs fn in a serializable transaction and maps SQLite's
// busy/locked responses to ErrConcurrencyConflict so callers can retry
// the whole logical operation.
func (e *Engine) atomic(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := e.conn.Transaction(ctx, fn)
	if err != nil && db.IsBusy(err) {
		return fmt.Errorf("%w: %v", ledger.ErrConcurrencyConflict, err)
	}
	return err
}

// CreateInput holds the fields of a new root transaction. Status defaults
// to pending and Recurrence to none. Installments only matters when a
// recurrence is set; zero means ledger.DefaultInstallments.
type CreateInput struct {
	Kind          ledger.TransactionKind
	Description   string
	Amount        decimal.Decimal
	IssueDate     time.Time
	DueDate       time.Time
	PaymentDate   *time.Time
	Status        ledger.TransactionStatus
	Recurrence    ledger.Recurrence
	SourceID      uuid.UUID
	DestinationID *uuid.UUID
	CategoryID    *uuid.UUID
	CostCenterID  *uuid.UUID
	Reconciled    bool
	Notes         string
	Installments  int
	Actor         string
}

// Create inserts a root transaction and, for a recurring one, its child
// installments, all in one atomic unit. A root created already settled
// has its balance effect applied in the same unit. Returns the root (with
// its series-suffixed description) and the created children in due-date
// order.
func (e *Engine) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*ledger.Transaction, []ledger.Transaction, error) {
	if in.Status == "" {
		in.Status = ledger.StatusPending
	}
	if in.Recurrence == "" {
		in.Recurrence = ledger.RecurNone
	}

	root := &ledger.Transaction{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Kind:          in.Kind,
		Description:   in.Description,
		Amount:        in.Amount,
		IssueDate:     in.IssueDate,
		DueDate:       in.DueDate,
		PaymentDate:   in.PaymentDate,
		Status:        in.Status,
		Recurrence:    in.Recurrence,
		SourceID:      in.SourceID,
		DestinationID: in.DestinationID,
		CategoryID:    in.CategoryID,
		CostCenterID:  in.CostCenterID,
		Reconciled:    in.Reconciled,
		Notes:         in.Notes,
		CreatedBy:     in.Actor,
		UpdatedBy:     in.Actor,
	}

	if err := validateTransaction(root); err != nil {
		return nil, nil, err
	}
	if root.Status != ledger.StatusPending && root.Status != ledger.StatusPaid {
		return nil, nil, fmt.Errorf("%w: a transaction is created as pending or paid, not %q", ledger.ErrValidation, root.Status)
	}

	var children []ledger.Transaction
	err := e.atomic(ctx, func(tx *sql.Tx) error {
		if err := validateReferences(ctx, tx, tenantID, root); err != nil {
			return err
		}

		if root.Recurrence != ledger.RecurNone {
			count := in.Installments
			if count <= 0 {
				count = ledger.DefaultInstallments
			}
			dates := ledger.Expand(root.DueDate, root.Recurrence, count)
			total := count + 1

			base := root.Description
			root.Description = fmt.Sprintf("%s (1/%d)", base, total)
			if err := store.InsertTransaction(ctx, tx, root); err != nil {
				return err
			}

			for i, due := range dates {
				child := *root
				child.ID = uuid.New()
				child.Description = fmt.Sprintf("%s (%d/%d)", base, i+2, total)
				child.DueDate = due
				child.Status = ledger.StatusPending
				child.PaymentDate = nil
				child.Recurrence = ledger.RecurNone
				child.ParentID = &root.ID
				child.Reconciled = false
				if err := store.InsertTransaction(ctx, tx, &child); err != nil {
					return err
				}
				children = append(children, child)
			}
		} else {
			if err := store.InsertTransaction(ctx, tx, root); err != nil {
				return err
			}
		}

		if root.Settled() {
			if err := applyEffects(ctx, tx, tenantID, ledger.TransactionEffects(root)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return root, children, nil
}

// UpdateInput holds a partial transaction update. Nil pointer fields keep
// their current value. The Set* flags distinguish "clear this optional
// reference" from "leave it alone".
type UpdateInput struct {
	Kind           *ledger.TransactionKind
	Description    *string
	Amount         *decimal.Decimal
	IssueDate      *time.Time
	DueDate        *time.Time
	SetPaymentDate bool
	PaymentDate    *time.Time
	Status         *ledger.TransactionStatus
	SourceID       *uuid.UUID
	SetDestination bool
	DestinationID  *uuid.UUID
	SetCategory    bool
	CategoryID     *uuid.UUID
	SetCostCenter  bool
	CostCenterID   *uuid.UUID
	Reconciled     *bool
	Notes          *string
	Actor          string
}

// Update merges the given fields into an existing transaction. When the
// settlement state or a settled value (amount, kind, account) changes, the
// previous effect is reversed and the new one applied, both inside the
// same atomic unit as the row update. An update restating the current
// values produces no balance delta.
func (e *Engine) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateInput) (*ledger.Transaction, error) {
	var merged *ledger.Transaction
	err := e.atomic(ctx, func(tx *sql.Tx) error {
		old, err := store.GetTransaction(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}

		next := *old
		applyUpdate(&next, in)

		if !old.Status.CanTransitionTo(next.Status) {
			return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidStatusTransition, old.Status, next.Status)
		}
		if err := validateTransaction(&next); err != nil {
			return err
		}
		if err := validateReferences(ctx, tx, tenantID, &next); err != nil {
			return err
		}

		oldSettled := old.Settled()
		newSettled := next.Settled()
		changed := settledValuesChanged(old, &next)

		if oldSettled && (!newSettled || changed) {
			if err := applyEffects(ctx, tx, tenantID, ledger.InverseTransactionEffects(old)); err != nil {
				return err
			}
		}
		if newSettled && (!oldSettled || changed) {
			if err := applyEffects(ctx, tx, tenantID, ledger.TransactionEffects(&next)); err != nil {
				return err
			}
		}

		next.UpdatedBy = in.Actor
		if err := store.UpdateTransaction(ctx, tx, &next); err != nil {
			return err
		}
		merged = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes a transaction and, when it is the root of an installment
// series, every child. Each settled member has its balance effect reversed
// before its row is removed, all in one atomic unit. Returns the number of
// deleted children.
func (e *Engine) Delete(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	deleted := 0
	err := e.atomic(ctx, func(tx *sql.Tx) error {
		t, err := store.GetTransaction(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}

		children, err := store.ListChildren(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}

		for i := range children {
			child := &children[i]
			if child.Settled() {
				if err := applyEffects(ctx, tx, tenantID, ledger.InverseTransactionEffects(child)); err != nil {
					return err
				}
			}
			if err := store.DeleteTransaction(ctx, tx, tenantID, child.ID); err != nil {
				return err
			}
		}

		if t.Settled() {
			if err := applyEffects(ctx, tx, tenantID, ledger.InverseTransactionEffects(t)); err != nil {
				return err
			}
		}
		if err := store.DeleteTransaction(ctx, tx, tenantID, id); err != nil {
			return err
		}

		deleted = len(children)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// PaymentInput drives SetPaymentStatus. Pay moves a pending (or late)
// transaction to paid; not-Pay reverses a paid one. PaymentDate defaults
// to today when paying; Amount optionally restates the amount at payment
// time.
type PaymentInput struct {
	Pay         bool
	PaymentDate *time.Time
	Amount      *decimal.Decimal
	Actor       string
}

// SetPaymentStatus is the dedicated pay/reverse transition. Paying an
// already settled transaction is a no-op; any other disallowed transition
// is rejected.
func (e *Engine) SetPaymentStatus(ctx context.Context, tenantID, id uuid.UUID, in PaymentInput) (*ledger.Transaction, error) {
	var result *ledger.Transaction
	err := e.atomic(ctx, func(tx *sql.Tx) error {
		t, err := store.GetTransaction(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}

		if in.Pay {
			if t.Settled() {
				result = t
				return nil
			}
			if !t.Status.CanTransitionTo(ledger.StatusPaid) {
				return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidStatusTransition, t.Status, ledger.StatusPaid)
			}
			if in.Amount != nil {
				if !in.Amount.IsPositive() {
					return fmt.Errorf("%w: amount must be positive", ledger.ErrValidation)
				}
				t.Amount = *in.Amount
			}
			when := e.today()
			if in.PaymentDate != nil {
				when = *in.PaymentDate
			}
			t.Status = ledger.StatusPaid
			t.PaymentDate = &when

			if err := applyEffects(ctx, tx, tenantID, ledger.TransactionEffects(t)); err != nil {
				return err
			}
		} else {
			if !t.Status.CanTransitionTo(ledger.StatusReversed) || !t.Settled() {
				return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidStatusTransition, t.Status, ledger.StatusReversed)
			}
			if err := applyEffects(ctx, tx, tenantID, ledger.InverseTransactionEffects(t)); err != nil {
				return err
			}
			// The payment date stays: reversed records when the money had
			// moved, even though the balance effect is undone.
			t.Status = ledger.StatusReversed
		}

		t.UpdatedBy = in.Actor
		if err := store.UpdateTransaction(ctx, tx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyEffects applies every balance delta of one reconciliation.
func applyEffects(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, effects []ledger.BalanceEffect) error {
	for _, effect := range effects {
		if err := store.ApplyAccountDelta(ctx, tx, tenantID, effect.AccountID, effect.Delta); err != nil {
			return err
		}
	}
	return nil
}

// applyUpdate merges the non-nil fields of in into t.
func applyUpdate(t *ledger.Transaction, in UpdateInput) {
	if in.Kind != nil {
		t.Kind = *in.Kind
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Amount != nil {
		t.Amount = *in.Amount
	}
	if in.IssueDate != nil {
		t.IssueDate = *in.IssueDate
	}
	if in.DueDate != nil {
		t.DueDate = *in.DueDate
	}
	if in.SetPaymentDate {
		t.PaymentDate = in.PaymentDate
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.SourceID != nil {
		t.SourceID = *in.SourceID
	}
	if in.SetDestination {
		t.DestinationID = in.DestinationID
	}
	if in.SetCategory {
		t.CategoryID = in.CategoryID
	}
	if in.SetCostCenter {
		t.CostCenterID = in.CostCenterID
	}
	if in.Reconciled != nil {
		t.Reconciled = *in.Reconciled
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
}

// settledValuesChanged reports whether the fields that determine a
// settled transaction's balance effect differ between old and next.
func settledValuesChanged(old, next *ledger.Transaction) bool {
	if !old.Amount.Equal(next.Amount) || old.Kind != next.Kind || old.SourceID != next.SourceID {
		return true
	}
	switch {
	case old.DestinationID == nil && next.DestinationID == nil:
		return false
	case old.DestinationID == nil || next.DestinationID == nil:
		return true
	default:
		return *old.DestinationID != *next.DestinationID
	}
}

// validateTransaction checks the internal invariants of a (merged)
// transaction before it is persisted.
func validateTransaction(t *ledger.Transaction) error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: unknown transaction kind %q", ledger.ErrValidation, t.Kind)
	}
	if t.Description == "" {
		return fmt.Errorf("%w: description is required", ledger.ErrValidation)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ledger.ErrValidation)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ledger.ErrValidation, t.Status)
	}
	if !t.Recurrence.Valid() {
		return fmt.Errorf("%w: unknown recurrence %q", ledger.ErrValidation, t.Recurrence)
	}
	if t.Recurrence != ledger.RecurNone && t.ParentID != nil {
		return fmt.Errorf("%w: an installment cannot itself recur", ledger.ErrValidation)
	}
	if t.Kind == ledger.Transfer {
		if t.DestinationID == nil {
			return fmt.Errorf("%w: a transfer requires a destination account", ledger.ErrValidation)
		}
		if *t.DestinationID == t.SourceID {
			return fmt.Errorf("%w: a transfer's destination must differ from its source", ledger.ErrValidation)
		}
		if t.CategoryID != nil {
			return fmt.Errorf("%w: a transfer cannot carry a category", ledger.ErrValidation)
		}
	} else if t.DestinationID != nil {
		return fmt.Errorf("%w: only a transfer carries a destination account", ledger.ErrValidation)
	}
	if t.Status == ledger.StatusPaid && t.PaymentDate == nil {
		return fmt.Errorf("%w: a paid transaction requires a payment date", ledger.ErrValidation)
	}
	if t.PaymentDate != nil && t.Status != ledger.StatusPaid && t.Status != ledger.StatusReversed {
		return fmt.Errorf("%w: a payment date requires status paid or reversed", ledger.ErrValidation)
	}
	return nil
}

// validateReferences checks that every referenced entity exists and
// belongs to the tenant, and that a category's kind matches the
// transaction's.
func validateReferences(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, t *ledger.Transaction) error {
	if _, err := store.GetAccount(ctx, tx, tenantID, t.SourceID); err != nil {
		return fmt.Errorf("source account: %w", err)
	}
	if t.DestinationID != nil {
		if _, err := store.GetAccount(ctx, tx, tenantID, *t.DestinationID); err != nil {
			return fmt.Errorf("destination account: %w", err)
		}
	}
	if t.CategoryID != nil {
		category, err := store.GetCategory(ctx, tx, tenantID, *t.CategoryID)
		if err != nil {
			return err
		}
		if !category.Kind.Compatible(t.Kind) {
			return fmt.Errorf("%w: category %q (%s) cannot tag a %s transaction",
				ledger.ErrValidation, category.Name, category.Kind, t.Kind)
		}
	}
	if t.CostCenterID != nil {
		if _, err := store.GetCostCenter(ctx, tx, tenantID, *t.CostCenterID); err != nil {
			return err
		}
	}
	return nil
}
