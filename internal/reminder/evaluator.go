// Package reminder decides which planned items deserve a reminder.
//
// Each reminder horizon has its own checker strategy. Evaluate runs every
// registered horizon over the pending items; it reads no clock and touches
// no store, so callers pass "now" explicitly.
package reminder

import (
	"fmt"
	"sort"
	"time"

	"cashbook/internal/core"
)

// Horizon says how far ahead of its due day an item is reminded.
type Horizon string

const (
	DueToday    Horizon = "today"
	DueTomorrow Horizon = "tomorrow"
)

// Event is one reminder to raise for one item.
type Event struct {
	Item    core.PlannedItem
	Horizon Horizon
}

// HorizonChecker is the strategy interface for one reminder horizon.
type HorizonChecker interface {
	// Matches reports whether an item due on dueDay is reminded on today.
	// Both arguments are already truncated to the start of their day.
	Matches(dueDay, today time.Time) bool
}

// TodayChecker fires on the due day itself.
type TodayChecker struct{}

func (TodayChecker) Matches(dueDay, today time.Time) bool {
	return dueDay.Equal(today)
}

// TomorrowChecker fires the day before the due day.
type TomorrowChecker struct{}

func (TomorrowChecker) Matches(dueDay, today time.Time) bool {
	return dueDay.Equal(today.AddDate(0, 0, 1))
}

// horizons lists the checkers in the order their events are emitted.
var horizons = []struct {
	horizon Horizon
	checker HorizonChecker
}{
	{DueToday, TodayChecker{}},
	{DueTomorrow, TomorrowChecker{}},
}

// Checker returns the checker for a horizon.
func Checker(h Horizon) (HorizonChecker, error) {
	for _, entry := range horizons {
		if entry.horizon == h {
			return entry.checker, nil
		}
	}
	return nil, fmt.Errorf("unknown reminder horizon: %s", h)
}

// Evaluate returns the reminders due at now. Only pending items qualify.
// Days are compared in now's location, and an item matches at most one
// horizon. Events are ordered by horizon, then by item id.
func Evaluate(items []core.PlannedItem, now time.Time) []Event {
	today := core.StartOfDay(now)

	var events []Event
	for _, entry := range horizons {
		var matched []Event
		for _, item := range items {
			if item.Status != core.Pending {
				continue
			}
			dueDay := core.StartOfDay(item.DueAt.In(now.Location()))
			if entry.checker.Matches(dueDay, today) {
				matched = append(matched, Event{Item: item, Horizon: entry.horizon})
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Item.ID < matched[j].Item.ID
		})
		events = append(events, matched...)
	}
	return events
}
