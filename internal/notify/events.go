package notify

import (
	"encoding/json"
	"time"
)

// Kind is a closed set of notification variants. Consumers dispatch on the
// constant, never on free-form strings.
type Kind string

const (
	KindYourTurn        Kind = "your_turn"
	KindRoundAdvanced   Kind = "round_advanced"
	KindDeadlineMissed  Kind = "deadline_missed"
	KindRoundTied       Kind = "round_tied"
	KindDebateCancelled Kind = "debate_cancelled"
	KindVerdictReady    Kind = "verdict_ready"
	KindAppealResolved  Kind = "appeal_resolved"
	KindAppealDenied    Kind = "appeal_denied"
)

// Event represents a notification event published to the Redis Stream
type Event struct {
	Kind      Kind              `json:"kind"`
	UserID    string            `json:"userId"`
	Payload   map[string]string `json:"payload,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// NewEvent creates a new event with timestamp
func NewEvent(kind Kind, userID string, payload map[string]string) *Event {
	return &Event{
		Kind:      kind,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
}

// MarshalEvent marshals an event to a JSON string for the Redis Stream
func MarshalEvent(event *Event) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEvent unmarshals a JSON string back into an Event
func UnmarshalEvent(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	return &event, nil
}
