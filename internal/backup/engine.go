package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/log"
)

// Ledger is the part of the ledger a backup reads from and restores into.
type Ledger interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
	Restore(ctx context.Context, snap core.Snapshot) error
}

// Summary counts what an export wrote or an import restored.
type Summary struct {
	Accounts     int
	Transactions int
	PlannedItems int
}

func summarize(snap core.Snapshot) Summary {
	return Summary{
		Accounts:     len(snap.Accounts),
		Transactions: len(snap.Transactions),
		PlannedItems: len(snap.PlannedItems),
	}
}

type Engine struct {
	ledger Ledger
	logger *log.Logger
	now    func() time.Time
}

func NewEngine(ledger Ledger, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default(log.ComponentBackup)
	}
	return &Engine{
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentBackup),
		now:    time.Now,
	}
}

// DefaultFileName names a backup taken at now.
func DefaultFileName(now time.Time) string {
	return "cashbook-backup-" + now.Format("20060102-150405") + ".json"
}

// Export writes a backup of the current ledger to w.
func (e *Engine) Export(ctx context.Context, w io.Writer) (Summary, error) {
	snap, err := e.ledger.Snapshot(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read ledger snapshot: %w", err)
	}
	if err := Encode(w, snap, e.now()); err != nil {
		return Summary{}, err
	}
	sum := summarize(snap)
	e.logger.InfoContext(ctx, "Backup exported",
		log.FieldOperation, log.OpExport,
		"accounts", sum.Accounts,
		"transactions", sum.Transactions,
		"planned_items", sum.PlannedItems)
	return sum, nil
}

// ExportToFile writes a backup to path. Readers of path see either the
// previous file or the complete new one.
func (e *Engine) ExportToFile(ctx context.Context, path string) (Summary, error) {
	var buf bytes.Buffer
	sum, err := e.Export(ctx, &buf)
	if err != nil {
		return Summary{}, err
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0600); err != nil {
		return Summary{}, fmt.Errorf("write backup %s: %w", path, err)
	}
	e.logger.InfoContext(ctx, "Backup written", "file", path, "bytes", buf.Len())
	return sum, nil
}

// Import replaces the ledger with the backup read from r. A document that
// fails to parse leaves the ledger untouched.
func (e *Engine) Import(ctx context.Context, r io.Reader) (Summary, error) {
	snap, err := Decode(r)
	if err != nil {
		e.logger.WarnContext(ctx, "Backup rejected", log.FieldOperation, log.OpImport, log.FieldError, err)
		return Summary{}, err
	}
	if err := e.ledger.Restore(ctx, snap); err != nil {
		return Summary{}, err
	}
	sum := summarize(snap)
	e.logger.InfoContext(ctx, "Backup imported",
		log.FieldOperation, log.OpImport,
		"accounts", sum.Accounts,
		"transactions", sum.Transactions,
		"planned_items", sum.PlannedItems)
	return sum, nil
}

func (e *Engine) ImportFromFile(ctx context.Context, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open backup %s: %w", path, err)
	}
	defer f.Close()
	return e.Import(ctx, f)
}

// writeFileAtomic writes data to a temp file beside path, syncs it and
// renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	// Persist the rename itself. Not every platform can fsync a directory.
	if d, derr := os.Open(dir); derr == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
