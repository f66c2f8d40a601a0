package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cashbook/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable entity store for accounts, transactions
// and planned items. Every failure it returns is either a *core.StorageError
// or a *core.NotFoundError.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, core.Storage("create db directory", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, core.Storage("migrate", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, core.Storage("open sqlite database", err)
	}
	// One connection gives SQLite a single writer and keeps every
	// transaction on the connection that began it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.Storage("ping database", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InTx runs fn inside one SQL transaction, rolling back if fn fails.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Storage("begin transaction", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.Storage("commit transaction", err)
	}
	return nil
}

// Snapshot reads every entity inside one read transaction.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	err := r.InTx(ctx, func(q *Queries) error {
		accounts, err := q.ListAccounts(ctx)
		if err != nil {
			return core.Storage("snapshot accounts", err)
		}
		transactions, err := q.ListTransactions(ctx)
		if err != nil {
			return core.Storage("snapshot transactions", err)
		}
		planned, err := q.ListPlannedItems(ctx)
		if err != nil {
			return core.Storage("snapshot planned items", err)
		}
		if snap.Accounts, err = toCoreAccounts(accounts); err != nil {
			return err
		}
		if snap.Transactions, err = toCoreTransactions(transactions); err != nil {
			return err
		}
		if snap.PlannedItems, err = toCorePlannedItems(planned); err != nil {
			return err
		}
		return nil
	})
	return snap, err
}

// ReplaceAll deletes every entity and inserts the snapshot in its place as
// one SQL transaction. Entities keep their ids; id 0 gets a fresh one. On
// any failure nothing is changed.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, snap core.Snapshot) error {
	err := r.InTx(ctx, func(q *Queries) error {
		if err := q.DeleteAllTransactions(ctx); err != nil {
			return core.Storage("clear transactions", err)
		}
		if err := q.DeleteAllPlannedItems(ctx); err != nil {
			return core.Storage("clear planned items", err)
		}
		if err := q.DeleteAllAccounts(ctx); err != nil {
			return core.Storage("clear accounts", err)
		}
		for i, a := range snap.Accounts {
			if _, err := insertAccount(ctx, q, a); err != nil {
				return fmt.Errorf("restore account %d: %w", i, err)
			}
		}
		for i, t := range snap.Transactions {
			if _, err := insertTransaction(ctx, q, t); err != nil {
				return fmt.Errorf("restore transaction %d: %w", i, err)
			}
		}
		for i, p := range snap.PlannedItems {
			if _, err := insertPlannedItem(ctx, q, p); err != nil {
				return fmt.Errorf("restore planned item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Ledger replaced",
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions),
		"planned_items", len(snap.PlannedItems))
	return nil
}

// Setting returns the stored value for key, or ok=false when unset.
func (r *SQLiteRepository) Setting(ctx context.Context, key string) (string, bool, error) {
	v, err := r.queries.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.Storage("get setting", err)
	}
	return v, true, nil
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string, updatedAtMillis int64) error {
	if err := r.queries.SetSetting(ctx, key, value, updatedAtMillis); err != nil {
		return core.Storage("set setting", err)
	}
	return nil
}

// lookup maps sql.ErrNoRows to a NotFoundError and anything else to a
// StorageError.
func lookup(kind core.EntityKind, id int64, op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: kind, ID: id}
	}
	return core.Storage(op, err)
}

// affected maps a zero row count to a NotFoundError.
func affected(kind core.EntityKind, id int64, op string, n int64, err error) error {
	if err != nil {
		return core.Storage(op, err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: kind, ID: id}
	}
	return nil
}
