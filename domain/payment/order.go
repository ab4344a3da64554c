// Package payment provides payment order value types and the pure order
// state machine. All I/O (gateway calls, persistence) happens in adapters.
package payment

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a payment order.
type Status string

const (
	StatusReady     Status = "READY"
	StatusDone      Status = "DONE"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an operation is attempted against
// an order that is not in the required state.
var ErrInvalidTransition = errors.New("invalid order state transition")

// ErrInvalidAmount is returned when an order is prepared with a
// non-positive amount.
var ErrInvalidAmount = errors.New("order amount must be positive")

// allowed transitions:
//
//	READY  -> DONE      confirm succeeds end-to-end
//	READY  -> FAILED    gateway captured but local crediting exhausted retries
//	FAILED -> DONE      manual recovery
//	DONE   -> CANCELLED cancellation succeeds
//
// CANCELLED has no outgoing transition, so a double-cancel is
// structurally unreachable.
var transitions = map[Status][]Status{
	StatusReady:  {StatusDone, StatusFailed},
	StatusFailed: {StatusDone},
	StatusDone:   {StatusCancelled},
}

// CanTransition reports whether moving an order from one status to
// another is allowed.
// This is a PURE function.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error when a transition is not
// allowed.
// This is a PURE function.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Order represents a payment order (value type). Amount, owner, and order
// name are immutable after creation; only Status, PaymentKey, and
// ApprovedAt change, and only through the state machine.
type Order struct {
	ID         string     `json:"id"`
	OrderID    string     `json:"order_id"` // external order id, unique
	UserID     string     `json:"user_id"`
	Amount     int64      `json:"amount"`
	OrderName  string     `json:"order_name"`
	Status     Status     `json:"status"`
	PaymentKey string     `json:"payment_key,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// NewOrder creates a READY order with a freshly generated external order
// id.
func NewOrder(id, userID string, amount int64, orderName string, now time.Time) (Order, error) {
	if amount <= 0 {
		return Order{}, ErrInvalidAmount
	}
	return Order{
		ID:        id,
		OrderID:   GenerateOrderID(),
		UserID:    userID,
		Amount:    amount,
		OrderName: orderName,
		Status:    StatusReady,
		CreatedAt: now,
	}, nil
}

// GenerateOrderID produces an external order id in the gateway-visible
// "order_<12 hex>" format.
func GenerateOrderID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return "order_" + hex.EncodeToString(b)
}
