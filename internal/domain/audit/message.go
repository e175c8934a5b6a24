package audit

import (
	"encoding/json"
	"time"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// Message holds a serialized audit event until it reaches the external sink
type Message struct {
	ID            int64        `json:"id"`
	Event         *Event       `json:"event"`
	Status        OutboxStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	CreatedAt     time.Time    `json:"created_at"`
	LastAttemptAt *time.Time   `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *Event) *Message {
	return &Message{
		Event:     event,
		Status:    OutboxStatusPending,
		CreatedAt: time.Now(),
	}
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Envelope is the wire form published to the audit topic
func (m *Message) Envelope() ([]byte, error) {
	return json.Marshal(m.Event)
}
