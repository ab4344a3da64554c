// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Em-Cyborg/WAF-Service/domain/event"
	"github.com/Em-Cyborg/WAF-Service/domain/payment"
	"github.com/Em-Cyborg/WAF-Service/domain/session"
	"github.com/Em-Cyborg/WAF-Service/domain/traffic"
)

// Shared store errors.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("already exists")

	// ErrInsufficientBalance is returned when a deduction exceeds the
	// user's balance. It is a declined operation, not a failure of the
	// store.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrWrongStatus is returned when a composite ledger operation finds
	// the order in a status it does not accept.
	ErrWrongStatus = errors.New("order not in required status")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Ledger Ports
// -----------------------------------------------------------------------------

// LedgerStore persists payment orders and point balances. The composite
// mutations (CreditAndMarkDone, MarkFailed, DebitAndMarkCancelled) are
// atomic: a call either commits the balance change and the status change
// together or leaves both untouched.
type LedgerStore interface {
	// CreateOrder stores a new order. The external order id must be unique.
	CreateOrder(ctx context.Context, o payment.Order) error

	// GetOrder retrieves an order by its external order id.
	GetOrder(ctx context.Context, orderID string) (payment.Order, error)

	// ListOrdersByUser returns a user's orders, newest first.
	ListOrdersByUser(ctx context.Context, userID string) ([]payment.Order, error)

	// ListOrdersByStatus returns all orders in a given status.
	ListOrdersByStatus(ctx context.Context, status payment.Status) ([]payment.Order, error)

	// CreditAndMarkDone credits the order's amount to its owner and moves
	// the order to DONE as one unit. The order must currently be in the
	// expected status (READY for confirm, FAILED for recovery).
	CreditAndMarkDone(ctx context.Context, orderID, paymentKey string, expect payment.Status, approvedAt time.Time) error

	// MarkFailed records the gateway payment key and moves a READY order
	// to FAILED without touching the balance.
	MarkFailed(ctx context.Context, orderID, paymentKey string) error

	// DebitAndMarkCancelled deducts the order's amount from its owner and
	// moves a DONE order to CANCELLED as one unit. This refund-path
	// deduction is exempt from the insufficient-balance floor.
	DebitAndMarkCancelled(ctx context.Context, orderID string) error

	// Balance returns a user's point balance.
	Balance(ctx context.Context, userID string) (int64, error)

	// AddPoints unconditionally credits points to a user.
	AddPoints(ctx context.Context, userID string, amount int64) error

	// DeductPoints debits points, failing with ErrInsufficientBalance and
	// no mutation when the balance is too low.
	DeductPoints(ctx context.Context, userID string, amount int64) error
}

// -----------------------------------------------------------------------------
// Session Ports
// -----------------------------------------------------------------------------

// SessionStore keeps login sessions keyed by opaque token. Implementations
// must support concurrent create/validate/delete without corruption.
type SessionStore interface {
	// Create stores a session under a token.
	Create(ctx context.Context, token string, s session.Session) error

	// Get retrieves the session for a token, or ErrNotFound.
	Get(ctx context.Context, token string) (session.Session, error)

	// Replace atomically deletes the old token and stores the session
	// under the new token. Fails with ErrNotFound if the old token is gone.
	Replace(ctx context.Context, oldToken, newToken string, s session.Session) error

	// Delete removes a session, reporting whether anything existed.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes sessions expired strictly before now and
	// returns the count removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// -----------------------------------------------------------------------------
// Monitoring Upstream Ports
// -----------------------------------------------------------------------------

// Domain describes one domain registered with the upstream monitor.
type Domain struct {
	Domain     string
	Target     string
	WAF        string
	LogCount   int64
	CreatedAt  *time.Time
	BillingDue *time.Time
}

// MonitorAPI is the upstream traffic/log query API.
type MonitorAPI interface {
	// Domains lists all domains the upstream reports on.
	Domains(ctx context.Context) ([]Domain, error)

	// RecentLogs returns the latest log entries across all domains.
	RecentLogs(ctx context.Context, count int) ([]event.LogEntry, error)

	// DomainLogs returns the latest log entries for one domain.
	DomainLogs(ctx context.Context, domain string, count int) ([]event.LogEntry, error)

	// DomainStats returns the upstream's raw stats document for a domain.
	DomainStats(ctx context.Context, domain string) (map[string]interface{}, error)

	// TrafficSummary returns per-domain "today" and "last hour" windows.
	TrafficSummary(ctx context.Context) ([]traffic.DomainSummary, error)

	// DomainTraffic returns one domain's totals over interval×period.
	DomainTraffic(ctx context.Context, domain string, interval traffic.Interval, period int) (traffic.Window, error)

	// Health probes the upstream monitor.
	Health(ctx context.Context) (map[string]interface{}, error)
}

// EventSource opens live event feed connections.
type EventSource interface {
	// Connect opens the upstream events stream, optionally filtered to
	// one domain (empty string means all domains). The caller owns the
	// returned body and must close it.
	Connect(ctx context.Context, domain string) (io.ReadCloser, error)
}

// -----------------------------------------------------------------------------
// Payment Gateway Ports
// -----------------------------------------------------------------------------

// PaymentGateway drives the external payment processor.
type PaymentGateway interface {
	// ClientKey returns the client-facing key embedded in checkout pages.
	ClientKey() string

	// Confirm captures a prepared payment.
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) error

	// Cancel initiates a refund for a captured payment.
	Cancel(ctx context.Context, paymentKey, reason string) error
}
