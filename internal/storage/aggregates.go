package storage

import (
	"context"
	"fmt"

	"cashbook/internal/core"

	"github.com/shopspring/decimal"
)

// totalsFold accumulates exact credit and debit sums over an amount pass.
type totalsFold struct {
	byAccount map[int64]*core.Totals
	all       core.Totals
}

func newTotalsFold() *totalsFold {
	return &totalsFold{byAccount: make(map[int64]*core.Totals)}
}

func (f *totalsFold) add(row AmountRow) error {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return fmt.Errorf("transaction amount %q: %w", row.Amount, err)
	}
	acc, ok := f.byAccount[row.AccountID]
	if !ok {
		acc = &core.Totals{}
		f.byAccount[row.AccountID] = acc
	}
	switch core.Direction(row.Direction) {
	case core.Credit:
		acc.Credit = acc.Credit.Add(amount)
		f.all.Credit = f.all.Credit.Add(amount)
	case core.Debit:
		acc.Debit = acc.Debit.Add(amount)
		f.all.Debit = f.all.Debit.Add(amount)
	default:
		return fmt.Errorf("transaction direction %q: %w", row.Direction, core.ErrInvalidEnum)
	}
	return nil
}

// AccountTotals sums the transactions of an existing account. A deleted
// account has zero totals.
func (r *SQLiteRepository) AccountTotals(ctx context.Context, accountID int64) (core.Totals, error) {
	f := newTotalsFold()
	if err := r.queries.AccountAmounts(ctx, accountID, f.add); err != nil {
		return core.Totals{}, core.Storage("sum account", err)
	}
	return f.all, nil
}

// AccountsWithStats returns every account with its totals, ordered by id.
func (r *SQLiteRepository) AccountsWithStats(ctx context.Context) ([]core.AccountStats, error) {
	accounts, err := r.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	f := newTotalsFold()
	if err := r.queries.LinkedAmounts(ctx, f.add); err != nil {
		return nil, core.Storage("sum accounts", err)
	}

	stats := make([]core.AccountStats, 0, len(accounts))
	for _, a := range accounts {
		s := core.AccountStats{Account: a}
		if t, ok := f.byAccount[a.ID]; ok {
			s.TotalCredit = t.Credit
			s.TotalDebit = t.Debit
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// TotalBalance sums every transaction, including those whose account no
// longer exists.
func (r *SQLiteRepository) TotalBalance(ctx context.Context) (core.Totals, error) {
	f := newTotalsFold()
	if err := r.queries.AllAmounts(ctx, f.add); err != nil {
		return core.Totals{}, core.Storage("sum all", err)
	}
	return f.all, nil
}

// LegacyTotals sums transactions by their legacy classification.
func (r *SQLiteRepository) LegacyTotals(ctx context.Context, kind core.LegacyKind) (core.Totals, error) {
	f := newTotalsFold()
	if err := r.queries.LegacyAmounts(ctx, string(kind), f.add); err != nil {
		return core.Totals{}, core.Storage("sum legacy", err)
	}
	return f.all, nil
}
