package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"cashbook/internal/core"

	"github.com/google/uuid"
)

// ReminderMessage carries one rendered reminder to the notify worker.
// NotificationID is stable per item and horizon, so a consumer can
// replace an earlier notification instead of stacking duplicates.
type ReminderMessage struct {
	MessageID      string    `json:"message_id"`
	NotificationID int64     `json:"notification_id"`
	ItemID         int64     `json:"item_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewReminderMessage(n core.Notification) *ReminderMessage {
	return &ReminderMessage{
		MessageID:      uuid.NewString(),
		NotificationID: n.ID,
		ItemID:         n.ItemID,
		Title:          n.Title,
		Body:           n.Body,
		Timestamp:      time.Now(),
	}
}

// Notification converts the message back to the domain value.
func (m *ReminderMessage) Notification() core.Notification {
	return core.Notification{
		ID:     m.NotificationID,
		ItemID: m.ItemID,
		Title:  m.Title,
		Body:   m.Body,
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON parses a message, rejecting ones without a title
// or notification id.
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.NotificationID == 0 || msg.Title == "" {
		return nil, fmt.Errorf("reminder message missing notification id or title")
	}
	return &msg, nil
}
