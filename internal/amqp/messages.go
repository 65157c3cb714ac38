package amqp

import (
	"encoding/json"
	"time"

	"tracker/internal/core"
)

// Routing keys of the events published on the exchange.
const (
	RoutingTransactionCreated = "transaction.created"
	RoutingTransactionDeleted = "transaction.deleted"
)

// TransactionEvent describes a change to the transactions table.
// Deleted events carry only the ID.
type TransactionEvent struct {
	Event       string    `json:"event"`
	ID          int64     `json:"id"`
	Date        string    `json:"date,omitempty"`
	Type        string    `json:"type,omitempty"`
	Category    string    `json:"category,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewCreatedEvent builds the event for a freshly inserted row.
func NewCreatedEvent(id int64, tx core.NewTransaction) *TransactionEvent {
	return &TransactionEvent{
		Event:       RoutingTransactionCreated,
		ID:          id,
		Date:        tx.Date.Format(core.DateLayout),
		Type:        tx.Type.String(),
		Category:    tx.Category,
		Amount:      tx.Amount.StringFixed(2),
		Description: tx.Description,
		Timestamp:   time.Now().UTC(),
	}
}

// NewDeletedEvent builds the event for a delete request.
func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{
		Event:     RoutingTransactionDeleted,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
