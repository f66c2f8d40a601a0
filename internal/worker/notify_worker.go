package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cashbook/internal/amqp"
	"cashbook/internal/services"
)

// maxRemembered bounds the set of message ids kept for redelivery checks.
const maxRemembered = 1024

// NotifyWorker delivers reminder messages from the queue to a local sink.
type NotifyWorker struct {
	sink services.Notifier

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

func NewNotifyWorker(sink services.Notifier) *NotifyWorker {
	return &NotifyWorker{
		sink: sink,
		seen: make(map[string]struct{}),
	}
}

// HandleReminderMessage processes a single reminder message from AMQP.
// A redelivered message that was already shown is acknowledged silently.
func (w *NotifyWorker) HandleReminderMessage(ctx context.Context, msg *amqp.ReminderMessage) error {
	if w.delivered(msg.MessageID) {
		slog.DebugContext(ctx, "Skipping redelivered reminder", "message_id", msg.MessageID)
		return nil
	}

	slog.InfoContext(ctx, "Processing reminder message",
		"message_id", msg.MessageID,
		"notification_id", msg.NotificationID,
		"item_id", msg.ItemID)

	if err := w.sink.Notify(ctx, msg.Notification()); err != nil {
		return fmt.Errorf("deliver notification %d: %w", msg.NotificationID, err)
	}

	w.remember(msg.MessageID)
	return nil
}

func (w *NotifyWorker) delivered(id string) bool {
	if id == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[id]
	return ok
}

func (w *NotifyWorker) remember(id string) {
	if id == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen[id] = struct{}{}
	w.order = append(w.order, id)
	if len(w.order) > maxRemembered {
		delete(w.seen, w.order[0])
		w.order = w.order[1:]
	}
}
