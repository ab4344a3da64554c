package gateway

import (
	"context"
	"sync"

	"github.com/Em-Cyborg/WAF-Service/ports"
)

// DummyGateway is a test/demo gateway that approves every payment.
// Use this for development when real gateway credentials aren't available.
type DummyGateway struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
	// FailConfirm, when set, makes Confirm return this error.
	FailConfirm error
	// FailCancel, when set, makes Cancel return this error.
	FailCancel error
}

// NewDummyGateway creates a new dummy payment gateway.
func NewDummyGateway() *DummyGateway {
	return &DummyGateway{}
}

// ClientKey returns a placeholder client key.
func (g *DummyGateway) ClientKey() string {
	return "test_ck_dummy"
}

// Confirm records the order and approves it.
func (g *DummyGateway) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailConfirm != nil {
		return g.FailConfirm
	}
	g.confirmed = append(g.confirmed, orderID)
	return nil
}

// Cancel records the payment key and approves the refund.
func (g *DummyGateway) Cancel(ctx context.Context, paymentKey, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCancel != nil {
		return g.FailCancel
	}
	g.cancelled = append(g.cancelled, paymentKey)
	return nil
}

// Confirmed returns the order ids approved so far.
func (g *DummyGateway) Confirmed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.confirmed))
	copy(out, g.confirmed)
	return out
}

// Cancelled returns the payment keys refunded so far.
func (g *DummyGateway) Cancelled() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.cancelled))
	copy(out, g.cancelled)
	return out
}

// Ensure interface compliance.
var (
	_ ports.PaymentGateway = (*TossGateway)(nil)
	_ ports.PaymentGateway = (*DummyGateway)(nil)
)
