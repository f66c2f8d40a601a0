package storage

import (
	"context"
)

const accountColumns = `id, name, kind`

const transactionColumns = `t.id, t.account_id, t.direction, t.amount, t.occurred_at, t.description, t.legacy_kind`

const plannedColumns = `id, kind, amount, due_at, description, source_account_tag, status`

// Listing order: newest first, ties by ascending id so equal timestamps
// keep insertion order.
const transactionOrder = ` ORDER BY t.occurred_at DESC, t.id ASC`

const plannedOrder = ` ORDER BY due_at ASC, id ASC`

// Accounts

const createAccount = `INSERT INTO accounts (name, kind) VALUES (?, ?) RETURNING id`

type CreateAccountParams struct {
	Name string
	Kind string
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createAccount, arg.Name, arg.Kind).Scan(&id)
	return id, err
}

const upsertAccount = `INSERT OR REPLACE INTO accounts (id, name, kind) VALUES (?, ?, ?)`

func (q *Queries) UpsertAccount(ctx context.Context, arg Account) error {
	_, err := q.db.ExecContext(ctx, upsertAccount, arg.ID, arg.Name, arg.Kind)
	return err
}

const updateAccount = `UPDATE accounts SET name = ?, kind = ? WHERE id = ?`

func (q *Queries) UpdateAccount(ctx context.Context, arg Account) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateAccount, arg.Name, arg.Kind, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := q.db.QueryRowContext(ctx, getAccount, id).Scan(&a.ID, &a.Name, &a.Kind)
	return a, err
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id ASC`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Kind); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const countAccounts = `SELECT COUNT(*) FROM accounts`

func (q *Queries) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAccounts).Scan(&n)
	return n, err
}

const deleteAllAccounts = `DELETE FROM accounts`

func (q *Queries) DeleteAllAccounts(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllAccounts)
	return err
}

// Transactions

const createTransaction = `INSERT INTO transactions (account_id, direction, amount, occurred_at, description, legacy_kind)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction,
		arg.AccountID, arg.Direction, arg.Amount, arg.OccurredAt, arg.Description, arg.LegacyKind,
	).Scan(&id)
	return id, err
}

const upsertTransaction = `INSERT OR REPLACE INTO transactions (id, account_id, direction, amount, occurred_at, description, legacy_kind)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) UpsertTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, upsertTransaction,
		arg.ID, arg.AccountID, arg.Direction, arg.Amount, arg.OccurredAt, arg.Description, arg.LegacyKind)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRowContext(ctx, getTransaction, id).Scan(
		&t.ID, &t.AccountID, &t.Direction, &t.Amount, &t.OccurredAt, &t.Description, &t.LegacyKind)
	return t, err
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions t` + transactionOrder

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactions)
}

// Only transactions whose account still exists.
const listTransactionsByAccount = `SELECT ` + transactionColumns + ` FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE t.account_id = ?` + transactionOrder

func (q *Queries) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByAccount, accountID)
}

const listRecentTransactions = `SELECT ` + transactionColumns + ` FROM transactions t` + transactionOrder + ` LIMIT ?`

func (q *Queries) ListRecentTransactions(ctx context.Context, limit int64) ([]Transaction, error) {
	return q.queryTransactions(ctx, listRecentTransactions, limit)
}

const listTransactionsBetween = `SELECT ` + transactionColumns + ` FROM transactions t
WHERE t.occurred_at BETWEEN ? AND ?` + transactionOrder

func (q *Queries) ListTransactionsBetween(ctx context.Context, from, to int64) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsBetween, from, to)
}

const listTransactionsByLegacyKind = `SELECT ` + transactionColumns + ` FROM transactions t
WHERE t.legacy_kind = ?` + transactionOrder

func (q *Queries) ListTransactionsByLegacyKind(ctx context.Context, kind string) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByLegacyKind, kind)
}

const listOrphanedTransactions = `SELECT ` + transactionColumns + ` FROM transactions t
WHERE NOT EXISTS (SELECT 1 FROM accounts a WHERE a.id = t.account_id)` + transactionOrder

func (q *Queries) ListOrphanedTransactions(ctx context.Context) ([]Transaction, error) {
	return q.queryTransactions(ctx, listOrphanedTransactions)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Direction, &t.Amount, &t.OccurredAt, &t.Description, &t.LegacyKind); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}

const deleteAllTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteAllTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllTransactions)
	return err
}

// Aggregate passes. Amounts are exact decimal text, so they are folded by
// the caller instead of SUM()med as floats.

const accountAmounts = `SELECT t.account_id, t.direction, t.amount FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE t.account_id = ?`

func (q *Queries) AccountAmounts(ctx context.Context, accountID int64, fn func(AmountRow) error) error {
	return q.foldAmounts(ctx, fn, accountAmounts, accountID)
}

const linkedAmounts = `SELECT t.account_id, t.direction, t.amount FROM transactions t
JOIN accounts a ON a.id = t.account_id`

func (q *Queries) LinkedAmounts(ctx context.Context, fn func(AmountRow) error) error {
	return q.foldAmounts(ctx, fn, linkedAmounts)
}

const allAmounts = `SELECT t.account_id, t.direction, t.amount FROM transactions t`

func (q *Queries) AllAmounts(ctx context.Context, fn func(AmountRow) error) error {
	return q.foldAmounts(ctx, fn, allAmounts)
}

const legacyAmounts = `SELECT t.account_id, t.direction, t.amount FROM transactions t WHERE t.legacy_kind = ?`

func (q *Queries) LegacyAmounts(ctx context.Context, kind string, fn func(AmountRow) error) error {
	return q.foldAmounts(ctx, fn, legacyAmounts, kind)
}

func (q *Queries) foldAmounts(ctx context.Context, fn func(AmountRow) error, query string, args ...interface{}) error {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r AmountRow
		if err := rows.Scan(&r.AccountID, &r.Direction, &r.Amount); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	return rows.Err()
}

// Planned items

const createPlannedItem = `INSERT INTO planned_items (kind, amount, due_at, description, source_account_tag, status)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

func (q *Queries) CreatePlannedItem(ctx context.Context, arg PlannedItem) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createPlannedItem,
		arg.Kind, arg.Amount, arg.DueAt, arg.Description, arg.SourceAccountTag, arg.Status,
	).Scan(&id)
	return id, err
}

const upsertPlannedItem = `INSERT OR REPLACE INTO planned_items (id, kind, amount, due_at, description, source_account_tag, status)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) UpsertPlannedItem(ctx context.Context, arg PlannedItem) error {
	_, err := q.db.ExecContext(ctx, upsertPlannedItem,
		arg.ID, arg.Kind, arg.Amount, arg.DueAt, arg.Description, arg.SourceAccountTag, arg.Status)
	return err
}

const updatePlannedItem = `UPDATE planned_items
SET kind = ?, amount = ?, due_at = ?, description = ?, source_account_tag = ?, status = ?
WHERE id = ?`

func (q *Queries) UpdatePlannedItem(ctx context.Context, arg PlannedItem) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePlannedItem,
		arg.Kind, arg.Amount, arg.DueAt, arg.Description, arg.SourceAccountTag, arg.Status, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updatePlannedStatus = `UPDATE planned_items SET status = ? WHERE id = ?`

func (q *Queries) UpdatePlannedStatus(ctx context.Context, id int64, status string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePlannedStatus, status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deletePlannedItem = `DELETE FROM planned_items WHERE id = ?`

func (q *Queries) DeletePlannedItem(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deletePlannedItem, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getPlannedItem = `SELECT ` + plannedColumns + ` FROM planned_items WHERE id = ?`

func (q *Queries) GetPlannedItem(ctx context.Context, id int64) (PlannedItem, error) {
	var p PlannedItem
	err := q.db.QueryRowContext(ctx, getPlannedItem, id).Scan(
		&p.ID, &p.Kind, &p.Amount, &p.DueAt, &p.Description, &p.SourceAccountTag, &p.Status)
	return p, err
}

const listPlannedItems = `SELECT ` + plannedColumns + ` FROM planned_items` + plannedOrder

func (q *Queries) ListPlannedItems(ctx context.Context) ([]PlannedItem, error) {
	return q.queryPlanned(ctx, listPlannedItems)
}

const listPendingPlannedByKind = `SELECT ` + plannedColumns + ` FROM planned_items
WHERE kind = ? AND status = 'PENDING'` + plannedOrder

func (q *Queries) ListPendingPlannedByKind(ctx context.Context, kind string) ([]PlannedItem, error) {
	return q.queryPlanned(ctx, listPendingPlannedByKind, kind)
}

const listDuePendingPlanned = `SELECT ` + plannedColumns + ` FROM planned_items
WHERE status = 'PENDING' AND due_at <= ?` + plannedOrder

func (q *Queries) ListDuePendingPlanned(ctx context.Context, threshold int64) ([]PlannedItem, error) {
	return q.queryPlanned(ctx, listDuePendingPlanned, threshold)
}

const listPendingPlanned = `SELECT ` + plannedColumns + ` FROM planned_items
WHERE status = 'PENDING'` + plannedOrder

func (q *Queries) ListPendingPlanned(ctx context.Context) ([]PlannedItem, error) {
	return q.queryPlanned(ctx, listPendingPlanned)
}

func (q *Queries) queryPlanned(ctx context.Context, query string, args ...interface{}) ([]PlannedItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlannedItem
	for rows.Next() {
		var p PlannedItem
		if err := rows.Scan(&p.ID, &p.Kind, &p.Amount, &p.DueAt, &p.Description, &p.SourceAccountTag, &p.Status); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const countPlannedItems = `SELECT COUNT(*) FROM planned_items`

func (q *Queries) CountPlannedItems(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPlannedItems).Scan(&n)
	return n, err
}

const deleteAllPlannedItems = `DELETE FROM planned_items`

func (q *Queries) DeleteAllPlannedItems(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllPlannedItems)
	return err
}

// Settings

const getSetting = `SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&v)
	return v, err
}

const setSetting = `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) SetSetting(ctx context.Context, key, value string, updatedAt int64) error {
	_, err := q.db.ExecContext(ctx, setSetting, key, value, updatedAt)
	return err
}
