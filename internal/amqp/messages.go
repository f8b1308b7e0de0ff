package amqp

import (
	"encoding/json"
	"time"
)

// RefreshMessage asks the worker to rebuild the report. It carries only
// the window size; the worker derives the concrete dates when it runs.
type RefreshMessage struct {
	WindowDays  int       `json:"window_days"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshMessage creates a refresh request for a window of days back
// from now.
func NewRefreshMessage(windowDays int, reason string) *RefreshMessage {
	return &RefreshMessage{
		WindowDays:  windowDays,
		Reason:      reason,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
