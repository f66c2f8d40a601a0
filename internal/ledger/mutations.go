package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cashbook/internal/core"
	"cashbook/internal/live"
	"cashbook/internal/log"
)

// AddAccount stores a new account and returns its id. A non-zero id
// replaces the account holding it.
func (l *Ledger) AddAccount(ctx context.Context, a core.Account) (int64, error) {
	a.Name = trimName(a.Name)
	if err := a.Validate(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.store.InsertAccount(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("add account: %w", err)
	}
	l.views.Notify(ctx, live.OnAccount(core.EntityAccount, id))
	l.events.LogMutation(ctx, log.OpCreate, string(core.EntityAccount), id, nil)
	return id, nil
}

func (l *Ledger) UpdateAccount(ctx context.Context, a core.Account) error {
	a.Name = trimName(a.Name)
	if a.ID <= 0 {
		return &core.ValidationError{Field: "id", Err: core.ErrInvalidID}
	}
	if err := a.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.UpdateAccount(ctx, a); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	l.views.Notify(ctx, live.OnAccount(core.EntityAccount, a.ID))
	l.events.LogMutation(ctx, log.OpUpdate, string(core.EntityAccount), a.ID, nil)
	return nil
}

// DeleteAccount removes the account only. Its transactions stay behind as
// orphans: they leave every per-account view but still count in the
// total balance.
func (l *Ledger) DeleteAccount(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	l.views.Notify(ctx, live.OnAccount(core.EntityAccount, id))
	l.events.LogMutation(ctx, log.OpDelete, string(core.EntityAccount), id, nil)
	return nil
}

// AddTransaction records a transaction and returns its id. Transactions
// are immutable once stored; correct one by deleting it and adding
// another.
func (l *Ledger) AddTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	changes := []live.Change{live.OnAccount(core.EntityTransaction, t.AccountID)}
	if t.ID != 0 {
		prev, err := l.store.GetTransaction(ctx, t.ID)
		switch {
		case err == nil:
			changes = append(changes, live.OnAccount(core.EntityTransaction, prev.AccountID))
		case !errors.Is(err, core.ErrNotFound):
			return 0, fmt.Errorf("add transaction: %w", err)
		}
	}

	id, err := l.store.InsertTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("add transaction: %w", err)
	}
	l.views.Notify(ctx, changes...)
	l.events.LogMutation(ctx, log.OpCreate, string(core.EntityTransaction), id, log.LogFields{
		log.FieldAccountID: t.AccountID,
		log.FieldDirection: string(t.Direction),
		log.FieldAmount:    t.Amount.String(),
	})
	return id, nil
}

func (l *Ledger) DeleteTransaction(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := l.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	l.views.Notify(ctx, live.OnAccount(core.EntityTransaction, t.AccountID))
	l.events.LogMutation(ctx, log.OpDelete, string(core.EntityTransaction), id,
		log.LogFields{log.FieldAccountID: t.AccountID})
	return nil
}

// AddPlannedItem stores a planned item. An empty status means Pending.
func (l *Ledger) AddPlannedItem(ctx context.Context, p core.PlannedItem) (int64, error) {
	if p.Status == "" {
		p.Status = core.Pending
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.store.InsertPlannedItem(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("add planned item: %w", err)
	}
	l.views.Notify(ctx, live.On(core.EntityPlannedItem))
	l.events.LogMutation(ctx, log.OpCreate, string(core.EntityPlannedItem), id,
		log.LogFields{log.FieldAmount: p.Amount.String()})
	return id, nil
}

func (l *Ledger) DeletePlannedItem(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.DeletePlannedItem(ctx, id); err != nil {
		return fmt.Errorf("delete planned item: %w", err)
	}
	l.views.Notify(ctx, live.On(core.EntityPlannedItem))
	l.events.LogMutation(ctx, log.OpDelete, string(core.EntityPlannedItem), id, nil)
	return nil
}

// MarkPlannedItemCompleted flips the item to Completed. No transaction is
// recorded; the caller adds one if money actually moved.
func (l *Ledger) MarkPlannedItemCompleted(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.SetPlannedStatus(ctx, id, core.Completed); err != nil {
		return fmt.Errorf("complete planned item: %w", err)
	}
	l.views.Notify(ctx, live.On(core.EntityPlannedItem))
	l.events.LogMutation(ctx, log.OpComplete, string(core.EntityPlannedItem), id, nil)
	return nil
}

// EnsureDefaultAccounts seeds "Cash" (id 1) and "Bank" (id 2) into a store
// with no accounts. It reports whether it seeded anything.
func (l *Ledger) EnsureDefaultAccounts(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changes, err := l.ensureDefaultAccounts(ctx)
	if err != nil {
		return false, err
	}
	l.views.Notify(ctx, changes...)
	return len(changes) > 0, nil
}

// ensureDefaultAccounts requires the write lock. It returns the changes
// the caller must publish.
func (l *Ledger) ensureDefaultAccounts(ctx context.Context) ([]live.Change, error) {
	n, err := l.store.CountAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	if n > 0 {
		return nil, nil
	}

	defaults := []core.Account{
		{ID: DefaultCashAccountID, Name: DefaultCashAccountName, Kind: core.AccountCash},
		{ID: DefaultBankAccountID, Name: DefaultBankAccountName, Kind: core.AccountBank},
	}
	var changes []live.Change
	for _, a := range defaults {
		if _, err := l.store.InsertAccount(ctx, a); err != nil {
			l.views.Notify(ctx, changes...)
			return nil, fmt.Errorf("seed default account %q: %w", a.Name, err)
		}
		changes = append(changes, live.OnAccount(core.EntityAccount, a.ID))
		l.events.LogMutation(ctx, log.OpSeed, string(core.EntityAccount), a.ID, nil)
	}
	return changes, nil
}

func trimName(s string) string {
	return strings.TrimSpace(s)
}
