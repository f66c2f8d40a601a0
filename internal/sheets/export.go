package sheets

import (
	"context"
	"fmt"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/log"
)

// Header is the first row of every exported sheet.
var Header = []any{"ID", "Date", "Account", "Direction", "Amount", "Description", "Legacy Type"}

const dateLayout = "2006-01-02 15:04"

// Rows renders transactions in listing order under Header. Amounts are
// written as plain decimal strings so the sheet keeps every digit.
// Transactions whose account no longer exists show an empty account name.
func Rows(txs []core.Transaction, accounts []core.Account, loc *time.Location) [][]any {
	if loc == nil {
		loc = time.UTC
	}
	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, Header)
	for _, t := range txs {
		rows = append(rows, []any{
			t.ID,
			t.OccurredAt.In(loc).Format(dateLayout),
			names[t.AccountID],
			string(t.Direction),
			t.Amount.String(),
			t.Description,
			string(t.LegacyKind),
		})
	}
	return rows
}

// Summary describes one finished export.
type Summary struct {
	Range        string
	Transactions int
}

type Exporter struct {
	source Source
	writer RowWriter
	loc    *time.Location
	logger *log.Logger
}

func NewExporter(source Source, writer RowWriter, loc *time.Location, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}
	return &Exporter{
		source: source,
		writer: writer,
		loc:    loc,
		logger: logger.WithComponent(log.ComponentSheets),
	}
}

// Export writes every transaction with from <= occurredAt <= to.
func (e *Exporter) Export(ctx context.Context, from, to time.Time) (Summary, error) {
	txs, err := e.source.TransactionsBetween(ctx, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("read transactions: %w", err)
	}
	accounts, err := e.source.AccountList(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read accounts: %w", err)
	}

	ref, err := e.writer.WriteRows(ctx, Rows(txs, accounts, e.loc))
	if err != nil {
		e.logger.ErrorContext(ctx, "Sheet export failed", log.FieldError, err)
		return Summary{}, fmt.Errorf("write rows: %w", err)
	}

	e.logger.InfoContext(ctx, "Exported transactions to sheet",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(txs),
		"range", ref,
		"from", from.Format(time.RFC3339),
		"to", to.Format(time.RFC3339))
	return Summary{Range: ref, Transactions: len(txs)}, nil
}
