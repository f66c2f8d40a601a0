package services

import (
	"context"
	"sync"

	"cashbook/internal/core"
	"cashbook/internal/log"
)

// Notifier delivers a rendered reminder somewhere a user will see it.
type Notifier interface {
	Notify(ctx context.Context, n core.Notification) error
}

// Publisher is the AMQP side of a notifier.
type Publisher interface {
	PublishReminder(ctx context.Context, n core.Notification) error
}

// QueueNotifier hands reminders to a message broker.
type QueueNotifier struct {
	publisher Publisher
}

func NewQueueNotifier(publisher Publisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

func (q *QueueNotifier) Notify(ctx context.Context, n core.Notification) error {
	return q.publisher.PublishReminder(ctx, n)
}

// LogNotifier writes reminders to the log. It is the sink when no broker is
// configured and the final hop of the notify worker.
type LogNotifier struct {
	logger *log.Logger

	mu   sync.Mutex
	last map[int64]core.Notification
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default(log.ComponentReminder)
	}
	return &LogNotifier{
		logger: logger.WithComponent(log.ComponentReminder),
		last:   make(map[int64]core.Notification),
	}
}

// Notify logs n. A notification with an id already shown replaces it.
func (l *LogNotifier) Notify(ctx context.Context, n core.Notification) error {
	l.mu.Lock()
	_, replaced := l.last[n.ID]
	l.last[n.ID] = n
	l.mu.Unlock()

	l.logger.InfoContext(ctx, n.Title,
		"notification_id", n.ID,
		"item_id", n.ItemID,
		"body", n.Body,
		"replaced", replaced)
	return nil
}

// Shown returns the latest notification per id.
func (l *LogNotifier) Shown() map[int64]core.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int64]core.Notification, len(l.last))
	for k, v := range l.last {
		out[k] = v
	}
	return out
}
