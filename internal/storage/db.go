package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns. Enums and amounts stay as text here;
// the repository converts them to core types.
type (
	Account struct {
		ID   int64
		Name string
		Kind string
	}

	Transaction struct {
		ID          int64
		AccountID   int64
		Direction   string
		Amount      string
		OccurredAt  int64
		Description string
		LegacyKind  string
	}

	PlannedItem struct {
		ID               int64
		Kind             string
		Amount           string
		DueAt            int64
		Description      string
		SourceAccountTag string
		Status           string
	}

	// AmountRow is one (account, direction, amount) tuple of an aggregate pass.
	AmountRow struct {
		AccountID int64
		Direction string
		Amount    string
	}
)
