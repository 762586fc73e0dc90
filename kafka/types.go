package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for domain events written to Kafka.
type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	Subject     string         `json:"subject,omitempty"`
	ContentType string         `json:"content_type"`
	Version     string         `json:"version"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with a fresh id and the current UTC time.
func NewEvent(eventType, source, subject string, data map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Source:      source,
		Subject:     subject,
		ContentType: "application/json",
		Version:     "1",
		Timestamp:   time.Now().UTC(),
		Data:        data,
	}
}

// ToJSON marshals the event.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
