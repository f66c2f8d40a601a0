package storage

import (
	"fmt"

	"cashbook/internal/core"

	"github.com/shopspring/decimal"
)

func fromCoreAccount(a core.Account) Account {
	return Account{ID: a.ID, Name: a.Name, Kind: string(a.Kind)}
}

func fromCoreTransaction(t core.Transaction) Transaction {
	return Transaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Direction:   string(t.Direction),
		Amount:      t.Amount.String(),
		OccurredAt:  t.OccurredAt.UnixMilli(),
		Description: t.Description,
		LegacyKind:  string(t.LegacyKind),
	}
}

func fromCorePlannedItem(p core.PlannedItem) PlannedItem {
	return PlannedItem{
		ID:               p.ID,
		Kind:             string(p.Kind),
		Amount:           p.Amount.String(),
		DueAt:            p.DueAt.UnixMilli(),
		Description:      p.Description,
		SourceAccountTag: string(p.SourceAccountTag),
		Status:           string(p.Status),
	}
}

// Rows carrying values the domain cannot represent are reported as
// storage corruption rather than silently coerced.
func corrupt(entity core.EntityKind, id int64, field, value string) error {
	return core.Storage("read "+string(entity),
		fmt.Errorf("%s %d has invalid %s %q", entity, id, field, value))
}

func toCoreAccount(a Account) (core.Account, error) {
	kind := core.AccountKind(a.Kind)
	if !kind.Valid() {
		return core.Account{}, corrupt(core.EntityAccount, a.ID, "kind", a.Kind)
	}
	return core.Account{ID: a.ID, Name: a.Name, Kind: kind}, nil
}

func toCoreTransaction(t Transaction) (core.Transaction, error) {
	dir := core.Direction(t.Direction)
	if !dir.Valid() {
		return core.Transaction{}, corrupt(core.EntityTransaction, t.ID, "direction", t.Direction)
	}
	legacy := core.LegacyKind(t.LegacyKind)
	if !legacy.Valid() {
		return core.Transaction{}, corrupt(core.EntityTransaction, t.ID, "legacy kind", t.LegacyKind)
	}
	amount, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return core.Transaction{}, corrupt(core.EntityTransaction, t.ID, "amount", t.Amount)
	}
	return core.Transaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Direction:   dir,
		Amount:      amount,
		OccurredAt:  core.FromMillis(t.OccurredAt),
		Description: t.Description,
		LegacyKind:  legacy,
	}, nil
}

func toCorePlannedItem(p PlannedItem) (core.PlannedItem, error) {
	kind := core.PlannedKind(p.Kind)
	if !kind.Valid() {
		return core.PlannedItem{}, corrupt(core.EntityPlannedItem, p.ID, "kind", p.Kind)
	}
	tag := core.LegacyKind(p.SourceAccountTag)
	if !tag.Valid() {
		return core.PlannedItem{}, corrupt(core.EntityPlannedItem, p.ID, "source account tag", p.SourceAccountTag)
	}
	status := core.PlannedStatus(p.Status)
	if !status.Valid() {
		return core.PlannedItem{}, corrupt(core.EntityPlannedItem, p.ID, "status", p.Status)
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return core.PlannedItem{}, corrupt(core.EntityPlannedItem, p.ID, "amount", p.Amount)
	}
	return core.PlannedItem{
		ID:               p.ID,
		Kind:             kind,
		Amount:           amount,
		DueAt:            core.FromMillis(p.DueAt),
		Description:      p.Description,
		SourceAccountTag: tag,
		Status:           status,
	}, nil
}

func toCoreAccounts(rows []Account) ([]core.Account, error) {
	out := make([]core.Account, 0, len(rows))
	for _, r := range rows {
		a, err := toCoreAccount(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func toCoreTransactions(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := toCoreTransaction(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func toCorePlannedItems(rows []PlannedItem) ([]core.PlannedItem, error) {
	out := make([]core.PlannedItem, 0, len(rows))
	for _, r := range rows {
		p, err := toCorePlannedItem(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
