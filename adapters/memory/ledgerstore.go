// Package memory provides in-memory implementations of storage ports.
// Useful for development and tests; the sqlite adapter is the durable
// collaborator for production.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Em-Cyborg/WAF-Service/domain/payment"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// LedgerStore is an in-memory implementation of ports.LedgerStore.
// A single mutex covers both orders and balances so the composite
// mutations commit both sides or neither.
type LedgerStore struct {
	mu       sync.Mutex
	orders   map[string]payment.Order // by external order id
	balances map[string]int64         // by user id
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		orders:   make(map[string]payment.Order),
		balances: make(map[string]int64),
	}
}

// CreateOrder stores a new order.
func (s *LedgerStore) CreateOrder(ctx context.Context, o payment.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.OrderID]; exists {
		return ports.ErrDuplicate
	}
	s.orders[o.OrderID] = o
	return nil
}

// GetOrder retrieves an order by its external order id.
func (s *LedgerStore) GetOrder(ctx context.Context, orderID string) (payment.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return payment.Order{}, ports.ErrNotFound
	}
	return o, nil
}

// ListOrdersByUser returns a user's orders, newest first.
func (s *LedgerStore) ListOrdersByUser(ctx context.Context, userID string) ([]payment.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []payment.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ListOrdersByStatus returns all orders in a given status.
func (s *LedgerStore) ListOrdersByStatus(ctx context.Context, status payment.Status) ([]payment.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []payment.Order
	for _, o := range s.orders {
		if o.Status == status {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// CreditAndMarkDone credits the order's amount to its owner and moves the
// order to DONE under one lock.
func (s *LedgerStore) CreditAndMarkDone(ctx context.Context, orderID, paymentKey string, expect payment.Status, approvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return ports.ErrNotFound
	}
	if o.Status != expect {
		return fmt.Errorf("%w: have %s, want %s", ports.ErrWrongStatus, o.Status, expect)
	}

	s.balances[o.UserID] += o.Amount
	o.Status = payment.StatusDone
	if paymentKey != "" {
		o.PaymentKey = paymentKey
	}
	o.ApprovedAt = &approvedAt
	s.orders[orderID] = o
	return nil
}

// MarkFailed records the payment key and moves a READY order to FAILED.
func (s *LedgerStore) MarkFailed(ctx context.Context, orderID, paymentKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return ports.ErrNotFound
	}
	if o.Status != payment.StatusReady {
		return fmt.Errorf("%w: have %s, want %s", ports.ErrWrongStatus, o.Status, payment.StatusReady)
	}

	o.Status = payment.StatusFailed
	o.PaymentKey = paymentKey
	s.orders[orderID] = o
	return nil
}

// DebitAndMarkCancelled deducts the order's amount (floor-exempt) and
// moves a DONE order to CANCELLED under one lock.
func (s *LedgerStore) DebitAndMarkCancelled(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return ports.ErrNotFound
	}
	if o.Status != payment.StatusDone {
		return fmt.Errorf("%w: have %s, want %s", ports.ErrWrongStatus, o.Status, payment.StatusDone)
	}

	s.balances[o.UserID] -= o.Amount
	o.Status = payment.StatusCancelled
	s.orders[orderID] = o
	return nil
}

// Balance returns a user's point balance.
func (s *LedgerStore) Balance(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

// AddPoints unconditionally credits points.
func (s *LedgerStore) AddPoints(ctx context.Context, userID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] += amount
	return nil
}

// DeductPoints debits points, enforcing the balance floor.
func (s *LedgerStore) DeductPoints(ctx context.Context, userID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[userID] < amount {
		return ports.ErrInsufficientBalance
	}
	s.balances[userID] -= amount
	return nil
}

// Ensure interface compliance.
var _ ports.LedgerStore = (*LedgerStore)(nil)
