// Package core holds the domain types and the pure balance arithmetic of
// fintrack. Nothing in this package touches storage or the network.
package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

const (
	AccountCurrent AccountType = "CURRENT"
	AccountSavings AccountType = "SAVINGS"
)

type (
	TransactionType   string
	TransactionStatus string
	RecurringInterval string
	AccountType       string

	// Account is a user-owned financial account. Balance is a cached value
	// kept equal to the sum of signed amounts of the account's transactions;
	// it is only ever moved through atomic increments, never set directly.
	Account struct {
		ID        uuid.UUID
		UserID    uuid.UUID
		Name      string
		Type      AccountType
		Balance   decimal.Decimal
		IsDefault bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction is a single income or expense entry. Amount is the
	// magnitude and is always non-negative at rest; the sign is derived
	// from Type at the moment the balance is adjusted.
	Transaction struct {
		ID                uuid.UUID
		UserID            uuid.UUID
		AccountID         uuid.UUID
		Type              TransactionType
		Amount            decimal.Decimal
		Description       string
		Category          string
		Date              time.Time
		ReceiptURL        string
		IsRecurring       bool
		RecurringInterval RecurringInterval
		NextRecurringDate *time.Time
		LastProcessed     *time.Time
		Status            TransactionStatus
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	// Budget is the single monthly spending limit a user can set.
	Budget struct {
		ID            uuid.UUID
		UserID        uuid.UUID
		Amount        decimal.Decimal
		LastAlertSent *time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyAccount       = errors.New("empty account id")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidStatus      = errors.New("invalid transaction status")
	ErrInvalidInterval    = errors.New("invalid recurring interval")
	ErrMissingInterval    = errors.New("recurring interval required for recurring transactions")
	ErrInvalidAccType     = errors.New("invalid account type")
	ErrNoIDs              = errors.New("no transaction ids")
	ErrTooManyIDs         = errors.New("too many transaction ids")
)

// MaxBulkDeleteIDs caps a single bulk-delete request.
const MaxBulkDeleteIDs = 500

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

func (i RecurringInterval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (a AccountType) Valid() bool {
	return a == AccountCurrent || a == AccountSavings
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.AccountID == uuid.Nil {
		return ErrEmptyAccount
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > 500 {
		return ErrDescriptionTooLong
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.IsRecurring {
		if t.RecurringInterval == "" {
			return ErrMissingInterval
		}
		if !t.RecurringInterval.Valid() {
			return ErrInvalidInterval
		}
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !a.Type.Valid() {
		return ErrInvalidAccType
	}
	if a.UserID == uuid.Nil {
		return errors.New("empty user id")
	}
	return nil
}

func (b Budget) Validate() error {
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
