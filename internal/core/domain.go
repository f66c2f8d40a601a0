package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account kinds. Stored and exported by symbolic name.
const (
	AccountCash       AccountKind = "Cash"
	AccountBank       AccountKind = "Bank"
	AccountSavings    AccountKind = "Savings"
	AccountCreditCard AccountKind = "CreditCard"
	AccountOther      AccountKind = "Other"
)

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

// Legacy classification kept for backward-compatible reads.
const (
	LegacyCash LegacyKind = "CASH"
	LegacyBank LegacyKind = "BANK"
)

const (
	IncomingFunds   PlannedKind = "INCOME"
	OutgoingPayment PlannedKind = "PAYMENT"
)

const (
	Pending   PlannedStatus = "PENDING"
	Completed PlannedStatus = "COMPLETED"
	// Delayed is reserved; no operation sets it.
	Delayed PlannedStatus = "DELAYED"
)

// Entity kinds, used by the live view registry to route invalidations.
const (
	EntityAccount     EntityKind = "account"
	EntityTransaction EntityKind = "transaction"
	EntityPlannedItem EntityKind = "planned_item"
)

type (
	AccountKind   string
	Direction     string
	LegacyKind    string
	PlannedKind   string
	PlannedStatus string
	EntityKind    string

	Account struct {
		ID   int64
		Name string
		Kind AccountKind
	}

	// AccountStats is an account with its derived totals.
	AccountStats struct {
		Account
		TotalCredit decimal.Decimal
		TotalDebit  decimal.Decimal
	}

	// Totals is a credit/debit pair for a set of transactions.
	Totals struct {
		Credit decimal.Decimal
		Debit  decimal.Decimal
	}

	Transaction struct {
		ID          int64
		AccountID   int64
		Direction   Direction
		Amount      decimal.Decimal
		OccurredAt  time.Time
		Description string
		LegacyKind  LegacyKind
	}

	PlannedItem struct {
		ID               int64
		Kind             PlannedKind
		Amount           decimal.Decimal
		DueAt            time.Time
		Description      string
		SourceAccountTag LegacyKind
		Status           PlannedStatus
	}

	// Snapshot is the full entity set of the store.
	Snapshot struct {
		Accounts     []Account
		Transactions []Transaction
		PlannedItems []PlannedItem
	}

	// Notification is what the external notifier receives for a reminder.
	Notification struct {
		ID     int64
		ItemID int64
		Title  string
		Body   string
	}
)

// Balance is credit minus debit.
func (s AccountStats) Balance() decimal.Decimal {
	return s.TotalCredit.Sub(s.TotalDebit)
}

// Balance is credit minus debit.
func (t Totals) Balance() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}

// Signed returns the amount with the sign implied by the direction.
func (t Transaction) Signed() decimal.Decimal {
	if t.Direction == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (k AccountKind) Valid() bool {
	switch k {
	case AccountCash, AccountBank, AccountSavings, AccountCreditCard, AccountOther:
		return true
	}
	return false
}

func (d Direction) Valid() bool {
	return d == Credit || d == Debit
}

func (k LegacyKind) Valid() bool {
	return k == LegacyCash || k == LegacyBank
}

func (k PlannedKind) Valid() bool {
	return k == IncomingFunds || k == OutgoingPayment
}

func (s PlannedStatus) Valid() bool {
	switch s {
	case Pending, Completed, Delayed:
		return true
	}
	return false
}

// ParseAccountKind accepts the symbolic name, case-insensitively.
func ParseAccountKind(s string) (AccountKind, error) {
	for _, k := range []AccountKind{AccountCash, AccountBank, AccountSavings, AccountCreditCard, AccountOther} {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("account kind %q: %w", s, ErrInvalidEnum)
}

func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("direction %q: %w", s, ErrInvalidEnum)
	}
	return d, nil
}

func ParseLegacyKind(s string) (LegacyKind, error) {
	k := LegacyKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("legacy kind %q: %w", s, ErrInvalidEnum)
	}
	return k, nil
}

func ParsePlannedKind(s string) (PlannedKind, error) {
	k := PlannedKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("planned kind %q: %w", s, ErrInvalidEnum)
	}
	return k, nil
}

func ParsePlannedStatus(s string) (PlannedStatus, error) {
	st := PlannedStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("planned status %q: %w", s, ErrInvalidEnum)
	}
	return st, nil
}

func (a Account) Validate() error {
	if a.ID < 0 {
		return &ValidationError{Field: "id", Err: ErrInvalidID}
	}
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if !a.Kind.Valid() {
		return &ValidationError{Field: "kind", Err: ErrInvalidEnum}
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.ID < 0 {
		return &ValidationError{Field: "id", Err: ErrInvalidID}
	}
	if !t.Direction.Valid() {
		return &ValidationError{Field: "direction", Err: ErrInvalidEnum}
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if t.OccurredAt.IsZero() {
		return &ValidationError{Field: "occurredAt", Err: ErrZeroTime}
	}
	if !t.LegacyKind.Valid() {
		return &ValidationError{Field: "legacyKind", Err: ErrInvalidEnum}
	}
	return nil
}

func (p PlannedItem) Validate() error {
	if p.ID < 0 {
		return &ValidationError{Field: "id", Err: ErrInvalidID}
	}
	if !p.Kind.Valid() {
		return &ValidationError{Field: "kind", Err: ErrInvalidEnum}
	}
	if err := ValidateAmount(p.Amount); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if p.DueAt.IsZero() {
		return &ValidationError{Field: "dueAt", Err: ErrZeroTime}
	}
	if !p.SourceAccountTag.Valid() {
		return &ValidationError{Field: "sourceAccountTag", Err: ErrInvalidEnum}
	}
	if !p.Status.Valid() {
		return &ValidationError{Field: "status", Err: ErrInvalidEnum}
	}
	return nil
}

// Validate checks every entity of the snapshot.
func (s Snapshot) Validate() error {
	for i, a := range s.Accounts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %d: %w", i, err)
		}
	}
	for i, t := range s.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	for i, p := range s.PlannedItems {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("planned item %d: %w", i, err)
		}
	}
	return nil
}

// FromMillis converts an epoch-millis value to a time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last millisecond of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// LegacyKindFor picks the legacy classification for a new transaction on
// an account of kind k.
func LegacyKindFor(k AccountKind) LegacyKind {
	if k == AccountBank || k == AccountSavings {
		return LegacyBank
	}
	return LegacyCash
}
