package storage

import (
	"context"
	"time"

	"cashbook/internal/core"
)

// Inserts with a zero id get a fresh one; a non-zero id replaces any row
// already holding it.

func insertAccount(ctx context.Context, q *Queries, a core.Account) (int64, error) {
	row := fromCoreAccount(a)
	if a.ID == 0 {
		id, err := q.CreateAccount(ctx, CreateAccountParams{Name: row.Name, Kind: row.Kind})
		if err != nil {
			return 0, core.Storage("insert account", err)
		}
		return id, nil
	}
	if err := q.UpsertAccount(ctx, row); err != nil {
		return 0, core.Storage("upsert account", err)
	}
	return a.ID, nil
}

func insertTransaction(ctx context.Context, q *Queries, t core.Transaction) (int64, error) {
	row := fromCoreTransaction(t)
	if t.ID == 0 {
		id, err := q.CreateTransaction(ctx, row)
		if err != nil {
			return 0, core.Storage("insert transaction", err)
		}
		return id, nil
	}
	if err := q.UpsertTransaction(ctx, row); err != nil {
		return 0, core.Storage("upsert transaction", err)
	}
	return t.ID, nil
}

func insertPlannedItem(ctx context.Context, q *Queries, p core.PlannedItem) (int64, error) {
	row := fromCorePlannedItem(p)
	if p.ID == 0 {
		id, err := q.CreatePlannedItem(ctx, row)
		if err != nil {
			return 0, core.Storage("insert planned item", err)
		}
		return id, nil
	}
	if err := q.UpsertPlannedItem(ctx, row); err != nil {
		return 0, core.Storage("upsert planned item", err)
	}
	return p.ID, nil
}

// Accounts

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) (int64, error) {
	return insertAccount(ctx, r.queries, a)
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	n, err := r.queries.UpdateAccount(ctx, fromCoreAccount(a))
	return affected(core.EntityAccount, a.ID, "update account", n, err)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteAccount(ctx, id)
	return affected(core.EntityAccount, id, "delete account", n, err)
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, lookup(core.EntityAccount, id, "get account", err)
	}
	return toCoreAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, core.Storage("list accounts", err)
	}
	return toCoreAccounts(rows)
}

func (r *SQLiteRepository) CountAccounts(ctx context.Context) (int64, error) {
	n, err := r.queries.CountAccounts(ctx)
	if err != nil {
		return 0, core.Storage("count accounts", err)
	}
	return n, nil
}

// Transactions

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	return insertTransaction(ctx, r.queries, t)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	return affected(core.EntityTransaction, id, "delete transaction", n, err)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, lookup(core.EntityTransaction, id, "get transaction", err)
	}
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, core.Storage("list transactions", err)
	}
	return toCoreTransactions(rows)
}

// ListTransactionsByAccount omits transactions whose account was deleted.
func (r *SQLiteRepository) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, core.Storage("list account transactions", err)
	}
	return toCoreTransactions(rows)
}

func (r *SQLiteRepository) ListRecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.ListRecentTransactions(ctx, int64(limit))
	if err != nil {
		return nil, core.Storage("list recent transactions", err)
	}
	return toCoreTransactions(rows)
}

// ListTransactionsBetween returns transactions with from <= occurredAt <= to.
func (r *SQLiteRepository) ListTransactionsBetween(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsBetween(ctx, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, core.Storage("list transactions between", err)
	}
	return toCoreTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsByLegacyKind(ctx context.Context, kind core.LegacyKind) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByLegacyKind(ctx, string(kind))
	if err != nil {
		return nil, core.Storage("list legacy transactions", err)
	}
	return toCoreTransactions(rows)
}

// ListOrphanedTransactions returns transactions referencing a missing account.
func (r *SQLiteRepository) ListOrphanedTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListOrphanedTransactions(ctx)
	if err != nil {
		return nil, core.Storage("list orphaned transactions", err)
	}
	return toCoreTransactions(rows)
}

// InsertTransactions inserts all of txs in one SQL transaction: either every
// row is stored or none is.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction) ([]int64, error) {
	ids := make([]int64, 0, len(txs))
	err := r.InTx(ctx, func(q *Queries) error {
		for _, t := range txs {
			id, err := insertTransaction(ctx, q, t)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context) (int64, error) {
	n, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return 0, core.Storage("count transactions", err)
	}
	return n, nil
}

// Planned items

func (r *SQLiteRepository) InsertPlannedItem(ctx context.Context, p core.PlannedItem) (int64, error) {
	return insertPlannedItem(ctx, r.queries, p)
}

func (r *SQLiteRepository) UpdatePlannedItem(ctx context.Context, p core.PlannedItem) error {
	n, err := r.queries.UpdatePlannedItem(ctx, fromCorePlannedItem(p))
	return affected(core.EntityPlannedItem, p.ID, "update planned item", n, err)
}

func (r *SQLiteRepository) SetPlannedStatus(ctx context.Context, id int64, status core.PlannedStatus) error {
	n, err := r.queries.UpdatePlannedStatus(ctx, id, string(status))
	return affected(core.EntityPlannedItem, id, "update planned status", n, err)
}

func (r *SQLiteRepository) DeletePlannedItem(ctx context.Context, id int64) error {
	n, err := r.queries.DeletePlannedItem(ctx, id)
	return affected(core.EntityPlannedItem, id, "delete planned item", n, err)
}

func (r *SQLiteRepository) GetPlannedItem(ctx context.Context, id int64) (core.PlannedItem, error) {
	row, err := r.queries.GetPlannedItem(ctx, id)
	if err != nil {
		return core.PlannedItem{}, lookup(core.EntityPlannedItem, id, "get planned item", err)
	}
	return toCorePlannedItem(row)
}

func (r *SQLiteRepository) ListPlannedItems(ctx context.Context) ([]core.PlannedItem, error) {
	rows, err := r.queries.ListPlannedItems(ctx)
	if err != nil {
		return nil, core.Storage("list planned items", err)
	}
	return toCorePlannedItems(rows)
}

func (r *SQLiteRepository) ListPendingPlannedByKind(ctx context.Context, kind core.PlannedKind) ([]core.PlannedItem, error) {
	rows, err := r.queries.ListPendingPlannedByKind(ctx, string(kind))
	if err != nil {
		return nil, core.Storage("list pending planned items", err)
	}
	return toCorePlannedItems(rows)
}

func (r *SQLiteRepository) ListPendingPlanned(ctx context.Context) ([]core.PlannedItem, error) {
	rows, err := r.queries.ListPendingPlanned(ctx)
	if err != nil {
		return nil, core.Storage("list pending planned items", err)
	}
	return toCorePlannedItems(rows)
}

// ListDuePendingPlanned returns pending items due at or before threshold.
func (r *SQLiteRepository) ListDuePendingPlanned(ctx context.Context, threshold time.Time) ([]core.PlannedItem, error) {
	rows, err := r.queries.ListDuePendingPlanned(ctx, threshold.UnixMilli())
	if err != nil {
		return nil, core.Storage("list due planned items", err)
	}
	return toCorePlannedItems(rows)
}

func (r *SQLiteRepository) CountPlannedItems(ctx context.Context) (int64, error) {
	n, err := r.queries.CountPlannedItems(ctx)
	if err != nil {
		return 0, core.Storage("count planned items", err)
	}
	return n, nil
}
