package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/live"

	"github.com/shopspring/decimal"
)

// Live views. Each returns a subscription whose first value is the current
// state; the caller must Close it. Views with equal parameters share one
// computation.

func observe[T any](ctx context.Context, l *Ledger, key string, deps []live.Dependency, compute live.Compute[T]) (*live.Subscription[T], error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return live.Observe(ctx, l.views, key, deps, compute)
}

func accountDeps(accountID int64) []live.Dependency {
	return []live.Dependency{
		live.OnAccount(core.EntityAccount, accountID),
		live.OnAccount(core.EntityTransaction, accountID),
	}
}

func (l *Ledger) Accounts(ctx context.Context) (*live.Subscription[[]core.Account], error) {
	return observe(ctx, l, "accounts",
		[]live.Dependency{live.On(core.EntityAccount)},
		l.store.ListAccounts)
}

// AccountsWithStats lists every account with its credit and debit totals.
func (l *Ledger) AccountsWithStats(ctx context.Context) (*live.Subscription[[]core.AccountStats], error) {
	return observe(ctx, l, "accounts-with-stats",
		[]live.Dependency{live.On(core.EntityAccount), live.On(core.EntityTransaction)},
		l.store.AccountsWithStats)
}

// Transactions lists every transaction, newest first.
func (l *Ledger) Transactions(ctx context.Context) (*live.Subscription[[]core.Transaction], error) {
	return observe(ctx, l, "transactions",
		[]live.Dependency{live.On(core.EntityTransaction)},
		l.store.ListTransactions)
}

// TransactionsByAccount lists the transactions of an existing account. It
// is empty once the account is deleted.
func (l *Ledger) TransactionsByAccount(ctx context.Context, accountID int64) (*live.Subscription[[]core.Transaction], error) {
	return observe(ctx, l, "transactions/account/"+strconv.FormatInt(accountID, 10),
		accountDeps(accountID),
		func(ctx context.Context) ([]core.Transaction, error) {
			return l.store.ListTransactionsByAccount(ctx, accountID)
		})
}

// RecentTransactions lists the n newest transactions.
func (l *Ledger) RecentTransactions(ctx context.Context, n int) (*live.Subscription[[]core.Transaction], error) {
	if n <= 0 {
		return nil, &core.ValidationError{Field: "limit", Err: fmt.Errorf("must be positive, got %d", n)}
	}
	return observe(ctx, l, "transactions/recent/"+strconv.Itoa(n),
		[]live.Dependency{live.On(core.EntityTransaction)},
		func(ctx context.Context) ([]core.Transaction, error) {
			return l.store.ListRecentTransactions(ctx, n)
		})
}

func (l *Ledger) TransactionsByLegacyKind(ctx context.Context, kind core.LegacyKind) (*live.Subscription[[]core.Transaction], error) {
	if !kind.Valid() {
		return nil, &core.ValidationError{Field: "legacyKind", Err: core.ErrInvalidEnum}
	}
	return observe(ctx, l, "transactions/legacy/"+string(kind),
		[]live.Dependency{live.On(core.EntityTransaction)},
		func(ctx context.Context) ([]core.Transaction, error) {
			return l.store.ListTransactionsByLegacyKind(ctx, kind)
		})
}

// OrphanedTransactions lists transactions whose account no longer exists.
func (l *Ledger) OrphanedTransactions(ctx context.Context) (*live.Subscription[[]core.Transaction], error) {
	return observe(ctx, l, "transactions/orphaned",
		[]live.Dependency{live.On(core.EntityAccount), live.On(core.EntityTransaction)},
		l.store.ListOrphanedTransactions)
}

// AccountTotals is the credit and debit sum of one account.
func (l *Ledger) AccountTotals(ctx context.Context, accountID int64) (*live.Subscription[core.Totals], error) {
	return observe(ctx, l, "totals/account/"+strconv.FormatInt(accountID, 10),
		accountDeps(accountID),
		func(ctx context.Context) (core.Totals, error) {
			return l.store.AccountTotals(ctx, accountID)
		})
}

func (l *Ledger) accountScalar(ctx context.Context, name string, accountID int64, pick func(core.Totals) decimal.Decimal) (*live.Subscription[decimal.Decimal], error) {
	return observe(ctx, l, name+"/account/"+strconv.FormatInt(accountID, 10),
		accountDeps(accountID),
		func(ctx context.Context) (decimal.Decimal, error) {
			t, err := l.store.AccountTotals(ctx, accountID)
			if err != nil {
				return decimal.Zero, err
			}
			return pick(t), nil
		})
}

// AccountBalance is credit minus debit for one account, zero for a
// deleted one.
func (l *Ledger) AccountBalance(ctx context.Context, accountID int64) (*live.Subscription[decimal.Decimal], error) {
	return l.accountScalar(ctx, "balance", accountID, core.Totals.Balance)
}

func (l *Ledger) AccountCredit(ctx context.Context, accountID int64) (*live.Subscription[decimal.Decimal], error) {
	return l.accountScalar(ctx, "credit", accountID, func(t core.Totals) decimal.Decimal { return t.Credit })
}

func (l *Ledger) AccountDebit(ctx context.Context, accountID int64) (*live.Subscription[decimal.Decimal], error) {
	return l.accountScalar(ctx, "debit", accountID, func(t core.Totals) decimal.Decimal { return t.Debit })
}

// TotalBalance sums every transaction, orphans included.
func (l *Ledger) TotalBalance(ctx context.Context) (*live.Subscription[decimal.Decimal], error) {
	return observe(ctx, l, "balance/total",
		[]live.Dependency{live.On(core.EntityTransaction)},
		func(ctx context.Context) (decimal.Decimal, error) {
			t, err := l.store.TotalBalance(ctx)
			if err != nil {
				return decimal.Zero, err
			}
			return t.Balance(), nil
		})
}

// LegacyBalance sums transactions by their legacy cash/bank tag.
//
// Deprecated: per-account balances supersede it; it remains for readers
// of the old two-bucket layout.
func (l *Ledger) LegacyBalance(ctx context.Context, kind core.LegacyKind) (*live.Subscription[decimal.Decimal], error) {
	if !kind.Valid() {
		return nil, &core.ValidationError{Field: "legacyKind", Err: core.ErrInvalidEnum}
	}
	return observe(ctx, l, "balance/legacy/"+string(kind),
		[]live.Dependency{live.On(core.EntityTransaction)},
		func(ctx context.Context) (decimal.Decimal, error) {
			t, err := l.store.LegacyTotals(ctx, kind)
			if err != nil {
				return decimal.Zero, err
			}
			return t.Balance(), nil
		})
}

// PlannedItems lists every planned item, soonest due first.
func (l *Ledger) PlannedItems(ctx context.Context) (*live.Subscription[[]core.PlannedItem], error) {
	return observe(ctx, l, "planned",
		[]live.Dependency{live.On(core.EntityPlannedItem)},
		l.store.ListPlannedItems)
}

// PlannedByKind lists pending items of one kind.
func (l *Ledger) PlannedByKind(ctx context.Context, kind core.PlannedKind) (*live.Subscription[[]core.PlannedItem], error) {
	if !kind.Valid() {
		return nil, &core.ValidationError{Field: "kind", Err: core.ErrInvalidEnum}
	}
	return observe(ctx, l, "planned/kind/"+string(kind),
		[]live.Dependency{live.On(core.EntityPlannedItem)},
		func(ctx context.Context) ([]core.PlannedItem, error) {
			return l.store.ListPendingPlannedByKind(ctx, kind)
		})
}

// PlannedDueBefore lists pending items due at or before threshold.
func (l *Ledger) PlannedDueBefore(ctx context.Context, threshold time.Time) (*live.Subscription[[]core.PlannedItem], error) {
	return observe(ctx, l, "planned/due/"+strconv.FormatInt(threshold.UnixMilli(), 10),
		[]live.Dependency{live.On(core.EntityPlannedItem)},
		func(ctx context.Context) ([]core.PlannedItem, error) {
			return l.store.ListDuePendingPlanned(ctx, threshold)
		})
}
