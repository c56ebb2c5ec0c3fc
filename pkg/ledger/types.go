// Package ledger defines the domain model of the financial ledger engine:
// accounts, categories, cost centers, transactions, and the pure functions
// (recurrence expansion, balance reconciliation) the transaction engine is
// built on.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateFormat is the canonical calendar-date format used everywhere the
// engine exchanges or persists a date. No time of day is ever carried.
const DateFormat = "2006-01-02"

// ParseDate parses a canonical YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

// FormatDate renders a date in the canonical format.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// AccountKind classifies financial accounts.
type AccountKind string

const (
	AccountChecking   AccountKind = "checking"
	AccountSavings    AccountKind = "savings"
	AccountInvestment AccountKind = "investment"
	AccountCreditCard AccountKind = "credit-card"
	AccountDebitCard  AccountKind = "debit-card"
	AccountCash       AccountKind = "cash"
	AccountOther      AccountKind = "other"
)

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountChecking, AccountSavings, AccountInvestment,
		AccountCreditCard, AccountDebitCard, AccountCash, AccountOther:
		return true
	}
	return false
}

// Account is a balance-bearing financial account owned by a tenant.
// CurrentBalance is mutated only through the transaction engine's
// reconciliation path; it always equals InitialBalance plus the signed
// effect of every currently settled transaction targeting the account.
type Account struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Name           string
	Kind           AccountKind
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Color          string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CategoryKind restricts which transaction kinds a category may tag.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
	CategoryEither  CategoryKind = "either"
)

// Valid reports whether k is a known category kind.
func (k CategoryKind) Valid() bool {
	switch k {
	case CategoryIncome, CategoryExpense, CategoryEither:
		return true
	}
	return false
}

// Compatible reports whether a category of this kind may tag a transaction
// of kind t. Transfers never carry a category, of any kind.
func (k CategoryKind) Compatible(t TransactionKind) bool {
	switch t {
	case Income:
		return k == CategoryIncome || k == CategoryEither
	case Expense:
		return k == CategoryExpense || k == CategoryEither
	}
	return false
}

// Category is a node in a tenant's hierarchical classification tree.
// The parent chain is kept acyclic by the category store.
type Category struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Kind      CategoryKind
	Color     string
	Icon      string
	ParentID  *uuid.UUID
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CostCenter is a free-form allocation tag for transactions.
type CostCenter struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description string
	Color       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransactionKind is the direction of a transaction's balance effect.
type TransactionKind string

const (
	Income   TransactionKind = "income"
	Expense  TransactionKind = "expense"
	Transfer TransactionKind = "transfer"
)

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense || k == Transfer
}

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusPaid      TransactionStatus = "paid"
	StatusLate      TransactionStatus = "late"
	StatusCancelled TransactionStatus = "cancelled"
	StatusReversed  TransactionStatus = "reversed"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusLate, StatusCancelled, StatusReversed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine allows moving from s
// to next. Identity transitions are always allowed so that partial updates
// which restate the current status are not rejected.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusPaid || next == StatusLate || next == StatusCancelled
	case StatusLate:
		return next == StatusPaid || next == StatusCancelled
	case StatusPaid:
		return next == StatusReversed
	}
	return false
}

// Recurrence is the repetition rule of a root transaction.
type Recurrence string

const (
	RecurNone       Recurrence = "none"
	RecurDaily      Recurrence = "daily"
	RecurWeekly     Recurrence = "weekly"
	RecurBiweekly   Recurrence = "biweekly"
	RecurMonthly    Recurrence = "monthly"
	RecurBimonthly  Recurrence = "bimonthly"
	RecurQuarterly  Recurrence = "quarterly"
	RecurSemiannual Recurrence = "semiannual"
	RecurAnnual     Recurrence = "annual"
)

// Valid reports whether r is a known recurrence.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurBiweekly, RecurMonthly,
		RecurBimonthly, RecurQuarterly, RecurSemiannual, RecurAnnual:
		return true
	}
	return false
}

// Transaction is a single ledger entry: an income, an expense, or a
// transfer between two accounts. A root transaction with a recurrence
// spawns child installments pointing back at it via ParentID.
type Transaction struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Kind          TransactionKind
	Description   string
	Amount        decimal.Decimal // always positive; Kind carries the sign
	IssueDate     time.Time
	DueDate       time.Time
	PaymentDate   *time.Time
	Status        TransactionStatus
	Recurrence    Recurrence
	SourceID      uuid.UUID
	DestinationID *uuid.UUID // set iff Kind == Transfer
	CategoryID    *uuid.UUID
	CostCenterID  *uuid.UUID
	ParentID      *uuid.UUID // set on generated installments
	Reconciled    bool
	Notes         string
	CreatedBy     string
	UpdatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Settled reports whether the transaction currently counts against account
// balances. Reversed transactions keep their payment date but are treated
// as not settled.
func (t *Transaction) Settled() bool {
	return t.Status == StatusPaid && t.PaymentDate != nil
}

// EffectiveStatus classifies a pending transaction past its due date as
// late. The stored status stays pending; lateness is derived at read time.
// today must be a canonical calendar date (midnight UTC).
func (t *Transaction) EffectiveStatus(today time.Time) TransactionStatus {
	if t.Status == StatusPending && t.DueDate.Before(today) {
		return StatusLate
	}
	return t.Status
}
