package repairs

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the repair ticket lifecycle state.
type Status string

const (
	StatusReceived   Status = "RECEIVED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusDelivered  Status = "DELIVERED"
)

// transitions maps each state to the states it may move to. The lifecycle
// only moves forward; a delivered ticket is terminal.
var transitions = map[Status][]Status{
	StatusReceived:   {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {StatusDelivered},
	StatusDelivered:  {},
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a lifecycle state string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("repairs: unknown status %q", raw)
	}
	return s, nil
}

// Ticket is a repair job for a customer's device.
type Ticket struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	CustomerID   int64           `json:"customer_id"`
	Device       string          `json:"device"`
	Issue        string          `json:"issue"`
	Fee          decimal.Decimal `json:"fee"`
	Status       Status          `json:"status"`
	TechnicianID *int64          `json:"technician_id,omitempty"`
	CreatedBy    int64           `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

var (
	// ErrBadTransition is returned for a lifecycle move the state machine
	// does not allow.
	ErrBadTransition = errors.New("repairs: illegal status transition")
	// ErrTicketNotFound is returned when the ticket does not exist or was
	// soft-deleted.
	ErrTicketNotFound = errors.New("repairs: ticket not found")
)
