package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
)

type sink struct {
	got  []core.Notification
	fail bool
}

func (s *sink) Notify(_ context.Context, n core.Notification) error {
	if s.fail {
		return errors.New("sink down")
	}
	s.got = append(s.got, n)
	return nil
}

func message(id string, n int64) *amqp.ReminderMessage {
	return &amqp.ReminderMessage{MessageID: id, NotificationID: n, ItemID: n, Title: "Reminder", Body: "due"}
}

func TestHandleReminderMessage(t *testing.T) {
	s := &sink{}
	w := NewNotifyWorker(s)
	ctx := context.Background()

	if err := w.HandleReminderMessage(ctx, message("m-1", 3)); err != nil {
		t.Fatalf("HandleReminderMessage() error = %v", err)
	}
	if err := w.HandleReminderMessage(ctx, message("m-1", 3)); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	if err := w.HandleReminderMessage(ctx, message("m-2", 100003)); err != nil {
		t.Fatalf("HandleReminderMessage() error = %v", err)
	}

	if len(s.got) != 2 {
		t.Fatalf("delivered %d notifications, want 2", len(s.got))
	}
	if s.got[1].ID != 100003 {
		t.Errorf("second notification id = %d", s.got[1].ID)
	}
}

func TestHandleReminderMessageSinkFailure(t *testing.T) {
	s := &sink{fail: true}
	w := NewNotifyWorker(s)
	ctx := context.Background()

	if err := w.HandleReminderMessage(ctx, message("m-1", 1)); err == nil {
		t.Fatal("expected error from failing sink")
	}

	// A failed delivery is not remembered, so the requeued copy is retried.
	s.fail = false
	if err := w.HandleReminderMessage(ctx, message("m-1", 1)); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if len(s.got) != 1 {
		t.Errorf("delivered %d notifications, want 1", len(s.got))
	}
}

func TestRememberIsBounded(t *testing.T) {
	w := NewNotifyWorker(&sink{})
	for i := 0; i < maxRemembered+10; i++ {
		w.remember(fmt.Sprintf("m-%d", i))
	}
	if len(w.seen) != maxRemembered || len(w.order) != maxRemembered {
		t.Errorf("seen=%d order=%d, want %d", len(w.seen), len(w.order), maxRemembered)
	}
	if w.delivered("m-0") {
		t.Error("oldest id should have been forgotten")
	}
}
