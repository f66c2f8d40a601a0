// Package backup serializes the whole ledger to a versioned JSON document
// and restores it.
//
// The document layout is fixed at version 1:
//
//	{
//	  "version": 1,
//	  "timestamp": 1717171717000,
//	  "accounts": [{"id", "name", "balance", "type"}],
//	  "transactions": [{"id", "amount", "category", "description", "date", "type", "accountId"}],
//	  "upcomingItems": [{"id", "type", "amount", "dueDate", "description", "sourceOrDest", "status"}]
//	}
//
// Enums are written by symbolic name. Account balances are informational
// and ignored on import; they are always derived from transactions.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"cashbook/internal/core"

	"github.com/shopspring/decimal"
)

// Version is the only document version this package reads or writes.
const Version = 1

// Document is the wire form of a backup. Pointer fields distinguish a
// missing value from a zero one.
type Document struct {
	Version       *int             `json:"version"`
	Timestamp     int64            `json:"timestamp"`
	Accounts      []AccountDoc     `json:"accounts"`
	Transactions  []TransactionDoc `json:"transactions"`
	UpcomingItems []PlannedItemDoc `json:"upcomingItems"`
	PlannedItems  []PlannedItemDoc `json:"plannedItems,omitempty"`
}

type AccountDoc struct {
	ID      int64   `json:"id"`
	Name    *string `json:"name"`
	Balance *Amount `json:"balance,omitempty"`
	Type    *string `json:"type"`
}

type TransactionDoc struct {
	ID          int64   `json:"id"`
	Amount      *Amount `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *int64  `json:"date"`
	Type        *string `json:"type"`
	AccountID   *int64  `json:"accountId"`
}

type PlannedItemDoc struct {
	ID           int64   `json:"id"`
	Type         *string `json:"type"`
	Amount       *Amount `json:"amount"`
	DueDate      *int64  `json:"dueDate"`
	Description  *string `json:"description"`
	SourceOrDest *string `json:"sourceOrDest"`
	Status       *string `json:"status"`
}

// Amount is a decimal written as a bare JSON number. It reads both
// numbers and numeric strings.
type Amount struct {
	decimal.Decimal
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

func amountPtr(d decimal.Decimal) *Amount {
	return &Amount{Decimal: d}
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

// Encode writes snap as a pretty-printed version 1 document stamped with now.
func Encode(w io.Writer, snap core.Snapshot, now time.Time) error {
	balances := make(map[int64]decimal.Decimal, len(snap.Accounts))
	for _, t := range snap.Transactions {
		balances[t.AccountID] = balances[t.AccountID].Add(t.Signed())
	}

	v := Version
	doc := Document{
		Version:       &v,
		Timestamp:     now.UnixMilli(),
		Accounts:      make([]AccountDoc, 0, len(snap.Accounts)),
		Transactions:  make([]TransactionDoc, 0, len(snap.Transactions)),
		UpcomingItems: make([]PlannedItemDoc, 0, len(snap.PlannedItems)),
	}
	for _, a := range snap.Accounts {
		doc.Accounts = append(doc.Accounts, AccountDoc{
			ID:      a.ID,
			Name:    strPtr(a.Name),
			Balance: amountPtr(balances[a.ID]),
			Type:    strPtr(string(a.Kind)),
		})
	}
	for _, t := range snap.Transactions {
		doc.Transactions = append(doc.Transactions, TransactionDoc{
			ID:          t.ID,
			Amount:      amountPtr(t.Amount),
			Category:    strPtr(string(t.Direction)),
			Description: strPtr(t.Description),
			Date:        int64Ptr(t.OccurredAt.UnixMilli()),
			Type:        strPtr(string(t.LegacyKind)),
			AccountID:   int64Ptr(t.AccountID),
		})
	}
	for _, p := range snap.PlannedItems {
		doc.UpcomingItems = append(doc.UpcomingItems, PlannedItemDoc{
			ID:           p.ID,
			Type:         strPtr(string(p.Kind)),
			Amount:       amountPtr(p.Amount),
			DueDate:      int64Ptr(p.DueAt.UnixMilli()),
			Description:  strPtr(p.Description),
			SourceOrDest: strPtr(string(p.SourceAccountTag)),
			Status:       strPtr(string(p.Status)),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Decode parses a document into a snapshot. Missing arrays are empty;
// a missing required field, an unknown enum name, a repeated id or data
// after the document fails the whole document with a
// *core.MalformedBackupError.
func Decode(r io.Reader) (core.Snapshot, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return core.Snapshot{}, &core.MalformedBackupError{Reason: "invalid JSON", Err: err}
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return core.Snapshot{}, &core.MalformedBackupError{Reason: "unexpected data after document", Err: err}
	}
	if doc.Version == nil {
		return core.Snapshot{}, malformed("version", "missing")
	}
	if *doc.Version != Version {
		return core.Snapshot{}, &core.MalformedBackupError{
			Path:   "version",
			Reason: fmt.Sprintf("version %d", *doc.Version),
			Err:    core.ErrUnsupportedVersion,
		}
	}

	var snap core.Snapshot
	accountIDs := idSet{}
	for i, a := range doc.Accounts {
		path := fmt.Sprintf("accounts[%d]", i)
		acc, err := decodeAccount(path, a)
		if err != nil {
			return core.Snapshot{}, err
		}
		if err := accountIDs.add(path, acc.ID); err != nil {
			return core.Snapshot{}, err
		}
		snap.Accounts = append(snap.Accounts, acc)
	}
	txIDs := idSet{}
	for i, t := range doc.Transactions {
		path := fmt.Sprintf("transactions[%d]", i)
		tx, err := decodeTransaction(path, t)
		if err != nil {
			return core.Snapshot{}, err
		}
		if err := txIDs.add(path, tx.ID); err != nil {
			return core.Snapshot{}, err
		}
		snap.Transactions = append(snap.Transactions, tx)
	}

	planned, field := doc.UpcomingItems, "upcomingItems"
	if len(planned) == 0 && len(doc.PlannedItems) > 0 {
		planned, field = doc.PlannedItems, "plannedItems"
	}
	plannedIDs := idSet{}
	for i, p := range planned {
		path := fmt.Sprintf("%s[%d]", field, i)
		item, err := decodePlannedItem(path, p)
		if err != nil {
			return core.Snapshot{}, err
		}
		if err := plannedIDs.add(path, item.ID); err != nil {
			return core.Snapshot{}, err
		}
		snap.PlannedItems = append(snap.PlannedItems, item)
	}
	return snap, nil
}

// idSet tracks the explicit ids of one entity array. Id 0 asks for a new
// id and may repeat.
type idSet map[int64]string

func (s idSet) add(path string, id int64) error {
	if id == 0 {
		return nil
	}
	if first, ok := s[id]; ok {
		return malformed(path+".id", fmt.Sprintf("duplicate id %d, first used at %s", id, first))
	}
	s[id] = path
	return nil
}

func malformed(path, reason string) error {
	return &core.MalformedBackupError{Path: path, Reason: reason}
}

func invalid(path string, err error) error {
	return &core.MalformedBackupError{Path: path, Reason: "invalid value", Err: err}
}

func checkID(path string, id int64) error {
	if id < 0 {
		return invalid(path+".id", core.ErrInvalidID)
	}
	return nil
}

func checkAmount(path string, a *Amount) (decimal.Decimal, error) {
	if a == nil {
		return decimal.Zero, malformed(path+".amount", "missing")
	}
	if err := core.ValidateAmount(a.Decimal); err != nil {
		return decimal.Zero, invalid(path+".amount", err)
	}
	return a.Decimal, nil
}

func decodeAccount(path string, a AccountDoc) (core.Account, error) {
	if err := checkID(path, a.ID); err != nil {
		return core.Account{}, err
	}
	if a.Name == nil {
		return core.Account{}, malformed(path+".name", "missing")
	}
	if strings.TrimSpace(*a.Name) == "" {
		return core.Account{}, invalid(path+".name", core.ErrEmptyName)
	}
	if a.Type == nil {
		return core.Account{}, malformed(path+".type", "missing")
	}
	// Older exports spell multi-word kinds with a space ("Credit Card").
	kind, err := core.ParseAccountKind(strings.ReplaceAll(*a.Type, " ", ""))
	if err != nil {
		return core.Account{}, invalid(path+".type", err)
	}
	return core.Account{ID: a.ID, Name: *a.Name, Kind: kind}, nil
}

func decodeTransaction(path string, t TransactionDoc) (core.Transaction, error) {
	if err := checkID(path, t.ID); err != nil {
		return core.Transaction{}, err
	}
	amount, err := checkAmount(path, t.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Category == nil {
		return core.Transaction{}, malformed(path+".category", "missing")
	}
	dir, err := core.ParseDirection(*t.Category)
	if err != nil {
		return core.Transaction{}, invalid(path+".category", err)
	}
	if t.Type == nil {
		return core.Transaction{}, malformed(path+".type", "missing")
	}
	legacy, err := core.ParseLegacyKind(*t.Type)
	if err != nil {
		return core.Transaction{}, invalid(path+".type", err)
	}
	if t.Description == nil {
		return core.Transaction{}, malformed(path+".description", "missing")
	}
	if t.Date == nil {
		return core.Transaction{}, malformed(path+".date", "missing")
	}
	if t.AccountID == nil {
		return core.Transaction{}, malformed(path+".accountId", "missing")
	}
	return core.Transaction{
		ID:          t.ID,
		AccountID:   *t.AccountID,
		Direction:   dir,
		Amount:      amount,
		OccurredAt:  core.FromMillis(*t.Date),
		Description: *t.Description,
		LegacyKind:  legacy,
	}, nil
}

func decodePlannedItem(path string, p PlannedItemDoc) (core.PlannedItem, error) {
	if err := checkID(path, p.ID); err != nil {
		return core.PlannedItem{}, err
	}
	if p.Type == nil {
		return core.PlannedItem{}, malformed(path+".type", "missing")
	}
	kind, err := core.ParsePlannedKind(*p.Type)
	if err != nil {
		return core.PlannedItem{}, invalid(path+".type", err)
	}
	amount, err := checkAmount(path, p.Amount)
	if err != nil {
		return core.PlannedItem{}, err
	}
	if p.DueDate == nil {
		return core.PlannedItem{}, malformed(path+".dueDate", "missing")
	}
	if p.Description == nil {
		return core.PlannedItem{}, malformed(path+".description", "missing")
	}
	if p.SourceOrDest == nil {
		return core.PlannedItem{}, malformed(path+".sourceOrDest", "missing")
	}
	tag, err := core.ParseLegacyKind(*p.SourceOrDest)
	if err != nil {
		return core.PlannedItem{}, invalid(path+".sourceOrDest", err)
	}
	if p.Status == nil {
		return core.PlannedItem{}, malformed(path+".status", "missing")
	}
	status, err := core.ParsePlannedStatus(*p.Status)
	if err != nil {
		return core.PlannedItem{}, invalid(path+".status", err)
	}
	return core.PlannedItem{
		ID:               p.ID,
		Kind:             kind,
		Amount:           amount,
		DueAt:            core.FromMillis(*p.DueDate),
		Description:      *p.Description,
		SourceAccountTag: tag,
		Status:           status,
	}, nil
}
