package sheets

import (
	"context"
	"time"

	"cashbook/internal/core"
)

// Ports for outbound adapters.
type (
	// RowWriter replaces the contents of a sheet with rows. The first row is
	// the header.
	RowWriter interface {
		WriteRows(ctx context.Context, rows [][]any) (rangeRef string, err error)
	}

	// Source is the read side of the ledger an export needs.
	Source interface {
		TransactionsBetween(ctx context.Context, from, to time.Time) ([]core.Transaction, error)
		AccountList(ctx context.Context) ([]core.Account, error)
	}
)
