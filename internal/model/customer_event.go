// internal/model/customer_event.go
package model

import "time"

type CustomerEventType string

const (
	CustomerCreated CustomerEventType = "created"
	CustomerUpdated CustomerEventType = "updated"
	CustomerDeleted CustomerEventType = "deleted"
)

// CustomerEvent is published after a successful write.
type CustomerEvent struct {
	Type       CustomerEventType `json:"type"`
	CustomerID string            `json:"customer_id"`
	Customer   *Customer         `json:"customer,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
