package entities

import "time"

// ContextWire is the JSON wire format for context propagation from guest to host
// in debug messages.
type ContextWire struct {
	Deadline *time.Time `json:"deadline,omitempty"`
	CallID   string     `json:"call_id,omitempty"`
	Contract string     `json:"contract,omitempty"`
}
