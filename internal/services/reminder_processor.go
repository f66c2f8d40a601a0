package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/reminder"
)

// tomorrowIDOffset keeps "tomorrow" notification ids apart from "today" ones
// for the same item.
const tomorrowIDOffset = 100000

// PendingSource lists the planned items a reminder pass looks at.
type PendingSource interface {
	PendingPlanned(ctx context.Context) ([]core.PlannedItem, error)
}

// CurrencySource provides the currency amounts are rendered in.
type CurrencySource interface {
	CurrencyCode(ctx context.Context) (string, error)
}

// ReminderProcessor turns pending planned items into delivered notifications.
type ReminderProcessor struct {
	items    PendingSource
	currency CurrencySource
	notifier Notifier
}

func NewReminderProcessor(items PendingSource, currency CurrencySource, notifier Notifier) *ReminderProcessor {
	return &ReminderProcessor{
		items:    items,
		currency: currency,
		notifier: notifier,
	}
}

// RunReminderPass evaluates every pending item against now and delivers one
// notification per event. A failed delivery does not stop the pass; the
// notifications that were delivered are returned with the joined errors.
func (p *ReminderProcessor) RunReminderPass(ctx context.Context, now time.Time) ([]core.Notification, error) {
	if p.items == nil || p.notifier == nil {
		return nil, fmt.Errorf("processor not properly initialized")
	}

	items, err := p.items.PendingPlanned(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending planned items: %w", err)
	}

	code := ""
	if p.currency != nil {
		if code, err = p.currency.CurrencyCode(ctx); err != nil {
			return nil, fmt.Errorf("read currency: %w", err)
		}
	}

	events := reminder.Evaluate(items, now)
	slog.InfoContext(ctx, "Running reminder pass",
		"pending", len(items),
		"events", len(events),
		"date", now.Format("2006-01-02"))

	var (
		sent []core.Notification
		errs []error
	)
	for _, ev := range events {
		n := RenderNotification(ev, code)
		if err := p.notifier.Notify(ctx, n); err != nil {
			slog.ErrorContext(ctx, "Failed to deliver reminder",
				"item_id", ev.Item.ID,
				"notification_id", n.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("notify item %d: %w", ev.Item.ID, err))
			continue
		}
		sent = append(sent, n)
	}

	slog.InfoContext(ctx, "Reminder pass complete",
		"delivered", len(sent),
		"failed", len(errs))

	return sent, errors.Join(errs...)
}

// RenderNotification builds the user-facing text for one reminder event.
func RenderNotification(ev reminder.Event, currencyCode string) core.Notification {
	kind := "Payment"
	if ev.Item.Kind == core.IncomingFunds {
		kind = "Income"
	}

	id := ev.Item.ID
	when := "Today"
	if ev.Horizon == reminder.DueTomorrow {
		id += tomorrowIDOffset
		when = "Tomorrow"
	}

	amount := ev.Item.Amount.StringFixed(2)
	if currencyCode != "" {
		amount = core.FormatAmount(ev.Item.Amount, currencyCode)
	}

	return core.Notification{
		ID:     id,
		ItemID: ev.Item.ID,
		Title:  fmt.Sprintf("Reminder: Upcoming %s %s", kind, when),
		Body:   fmt.Sprintf("%s: %s is due %s.", ev.Item.Description, amount, ev.Horizon),
	}
}
