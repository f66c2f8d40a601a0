// Package ledger is the read and write surface of the cashbook: the
// mutation API, the live views derived from the store, and whole-store
// snapshot and restore for backups.
//
// Every mutation holds the write lock until the store has applied it and
// every intersecting live view has been recomputed, so a view observed
// after a mutation returns never reflects an older state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/live"
	"cashbook/internal/log"

	"github.com/shopspring/decimal"
)

// Store is the entity store the ledger runs on. *storage.SQLiteRepository
// implements it.
type Store interface {
	InsertAccount(ctx context.Context, a core.Account) (int64, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id int64) error
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	CountAccounts(ctx context.Context) (int64, error)

	InsertTransaction(ctx context.Context, t core.Transaction) (int64, error)
	InsertTransactions(ctx context.Context, txs []core.Transaction) ([]int64, error)
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error)
	ListRecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	ListTransactionsBetween(ctx context.Context, from, to time.Time) ([]core.Transaction, error)
	ListTransactionsByLegacyKind(ctx context.Context, kind core.LegacyKind) ([]core.Transaction, error)
	ListOrphanedTransactions(ctx context.Context) ([]core.Transaction, error)

	InsertPlannedItem(ctx context.Context, p core.PlannedItem) (int64, error)
	SetPlannedStatus(ctx context.Context, id int64, status core.PlannedStatus) error
	DeletePlannedItem(ctx context.Context, id int64) error
	GetPlannedItem(ctx context.Context, id int64) (core.PlannedItem, error)
	ListPlannedItems(ctx context.Context) ([]core.PlannedItem, error)
	ListPendingPlanned(ctx context.Context) ([]core.PlannedItem, error)
	ListPendingPlannedByKind(ctx context.Context, kind core.PlannedKind) ([]core.PlannedItem, error)
	ListDuePendingPlanned(ctx context.Context, threshold time.Time) ([]core.PlannedItem, error)

	AccountTotals(ctx context.Context, accountID int64) (core.Totals, error)
	AccountsWithStats(ctx context.Context) ([]core.AccountStats, error)
	TotalBalance(ctx context.Context) (core.Totals, error)
	LegacyTotals(ctx context.Context, kind core.LegacyKind) (core.Totals, error)

	Snapshot(ctx context.Context) (core.Snapshot, error)
	ReplaceAll(ctx context.Context, snap core.Snapshot) error
}

// SetupFlag records whether first-run setup has completed.
type SetupFlag interface {
	SetupDone(ctx context.Context) (bool, error)
	MarkSetupDone(ctx context.Context) error
}

// Default account ids and names seeded into an empty store.
const (
	DefaultCashAccountID int64 = 1
	DefaultBankAccountID int64 = 2

	DefaultCashAccountName = "Cash"
	DefaultBankAccountName = "Bank"

	OpeningBalanceDescription = "Opening Balance"
)

var errInvertedRange = errors.New("range ends before it starts")

type Ledger struct {
	mu     sync.RWMutex
	store  Store
	views  *live.Registry
	logger *log.Logger
	events *log.StructuredLogger
}

func New(store Store, views *live.Registry, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Default(log.ComponentLedger)
	}
	logger = logger.WithComponent(log.ComponentLedger)
	if views == nil {
		views = live.NewRegistry(logger)
	}
	return &Ledger{
		store:  store,
		views:  views,
		logger: logger,
		events: log.NewStructuredLogger(logger),
	}
}

// Snapshot returns every entity as one consistent read.
func (l *Ledger) Snapshot(ctx context.Context) (core.Snapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Snapshot(ctx)
}

// Restore replaces the whole store with snap. It is all or nothing: on any
// error the previous contents are untouched and no view changes.
func (l *Ledger) Restore(ctx context.Context, snap core.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.ReplaceAll(ctx, snap); err != nil {
		l.events.LogError(ctx, "Restore failed", err, log.OpImport, nil)
		return fmt.Errorf("restore ledger: %w", err)
	}
	l.views.NotifyAll(ctx)

	l.logger.InfoContext(ctx, "Ledger restored",
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions),
		"planned_items", len(snap.PlannedItems))
	return nil
}

// Account returns one account.
func (l *Ledger) Account(ctx context.Context, id int64) (core.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetAccount(ctx, id)
}

// AccountList returns every account ordered by id.
func (l *Ledger) AccountList(ctx context.Context) ([]core.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.ListAccounts(ctx)
}

// Transaction returns one transaction.
func (l *Ledger) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetTransaction(ctx, id)
}

// PlannedItem returns one planned item.
func (l *Ledger) PlannedItem(ctx context.Context, id int64) (core.PlannedItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetPlannedItem(ctx, id)
}

// PendingPlanned returns every pending planned item, soonest first.
func (l *Ledger) PendingPlanned(ctx context.Context) ([]core.PlannedItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.ListPendingPlanned(ctx)
}

// TransactionsBetween returns the transactions with from <= occurredAt <= to,
// newest first. It is a point-in-time read for exporters.
func (l *Ledger) TransactionsBetween(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	if to.Before(from) {
		return nil, &core.ValidationError{Field: "to", Err: errInvertedRange}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.ListTransactionsBetween(ctx, from, to)
}

func (l *Ledger) hasOpeningBalance(ctx context.Context, accountID int64) (bool, error) {
	txs, err := l.store.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("read opening balance: %w", err)
	}
	for _, t := range txs {
		if t.Description == OpeningBalanceDescription && t.Direction == core.Credit {
			return true, nil
		}
	}
	return false, nil
}

// CompleteSetup seeds the default accounts and records positive opening
// balances on them. Once setup is done, later calls change nothing.
func (l *Ledger) CompleteSetup(ctx context.Context, flag SetupFlag, cash, bank decimal.Decimal, now time.Time) error {
	for field, amount := range map[string]decimal.Decimal{"cash": cash, "bank": bank} {
		if err := core.ValidateAmount(amount); err != nil {
			return &core.ValidationError{Field: field, Err: err}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	done, err := flag.SetupDone(ctx)
	if err != nil {
		return fmt.Errorf("read setup flag: %w", err)
	}
	if done {
		l.logger.DebugContext(ctx, "Setup already completed")
		return nil
	}

	changes, err := l.ensureDefaultAccounts(ctx)
	if err != nil {
		return err
	}

	openings := []struct {
		accountID int64
		legacy    core.LegacyKind
		amount    decimal.Decimal
	}{
		{DefaultCashAccountID, core.LegacyCash, cash},
		{DefaultBankAccountID, core.LegacyBank, bank},
	}
	var pending []core.Transaction
	for _, o := range openings {
		if !o.amount.IsPositive() {
			continue
		}
		// A run that stored its openings but failed to set the flag has
		// already recorded them.
		recorded, err := l.hasOpeningBalance(ctx, o.accountID)
		if err != nil {
			l.views.Notify(ctx, changes...)
			return err
		}
		if recorded {
			continue
		}
		pending = append(pending, core.Transaction{
			AccountID:   o.accountID,
			Direction:   core.Credit,
			Amount:      o.amount,
			OccurredAt:  now,
			Description: OpeningBalanceDescription,
			LegacyKind:  o.legacy,
		})
	}

	ids, err := l.store.InsertTransactions(ctx, pending)
	if err != nil {
		l.views.Notify(ctx, changes...)
		return fmt.Errorf("record opening balances: %w", err)
	}
	for i, t := range pending {
		changes = append(changes, live.OnAccount(core.EntityTransaction, t.AccountID))
		l.events.LogMutation(ctx, log.OpCreate, string(core.EntityTransaction), ids[i],
			log.LogFields{log.FieldAccountID: t.AccountID, log.FieldAmount: t.Amount.String()})
	}
	l.views.Notify(ctx, changes...)

	if err := flag.MarkSetupDone(ctx); err != nil {
		return fmt.Errorf("mark setup done: %w", err)
	}
	l.logger.InfoContext(ctx, "Setup completed", "cash", cash.String(), "bank", bank.String())
	return nil
}
