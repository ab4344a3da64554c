// Package app contains the application services wiring domain logic to ports.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Em-Cyborg/WAF-Service/domain/payment"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// Ledger errors surfaced to the HTTP layer.
var (
	ErrAmountMismatch = errors.New("payment amount does not match order")
	ErrNotFailed      = errors.New("order is not in a recoverable state")
	ErrNotDone        = errors.New("order is not refundable")
	ErrNoPaymentKey   = errors.New("order has no payment key")
)

// LedgerService owns the payment order lifecycle and the point balance.
type LedgerService struct {
	store   ports.LedgerStore
	gateway ports.PaymentGateway
	idGen   ports.IDGenerator
	clock   ports.Clock
	retry   payment.RetryPolicy
	logger  zerolog.Logger
}

// NewLedgerService creates a ledger service with the default credit retry policy.
func NewLedgerService(
	store ports.LedgerStore,
	gateway ports.PaymentGateway,
	idGen ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		store:   store,
		gateway: gateway,
		idGen:   idGen,
		clock:   clock,
		retry:   payment.CreditPolicy(),
		logger:  logger,
	}
}

// ClientKey exposes the gateway's client-side key for checkout pages.
func (s *LedgerService) ClientKey() string {
	return s.gateway.ClientKey()
}

// Prepare creates a READY order for the given amount of points.
// Amount is in points; 1 point charges 1 KRW.
func (s *LedgerService) Prepare(ctx context.Context, userID string, amount int64, orderName string) (payment.Order, error) {
	order, err := payment.NewOrder(s.idGen.New(), userID, amount, orderName, s.clock.Now())
	if err != nil {
		return payment.Order{}, err
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return payment.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.OrderID).
		Str("user_id", userID).
		Int64("amount", amount).
		Msg("payment order prepared")
	return order, nil
}

// Confirm captures the payment at the gateway and credits the points.
// The capture and the credit are separate systems, so the credit is retried;
// if every attempt fails the order is marked FAILED for manual recovery.
// The money has been taken and the order must not silently vanish.
func (s *LedgerService) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (payment.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return payment.Order{}, fmt.Errorf("load order: %w", err)
	}
	if order.Amount != amount {
		s.logger.Warn().
			Str("order_id", orderID).
			Int64("expected", order.Amount).
			Int64("got", amount).
			Msg("confirm amount mismatch")
		return payment.Order{}, ErrAmountMismatch
	}
	if err := payment.ValidateTransition(order.Status, payment.StatusDone); err != nil {
		return payment.Order{}, err
	}

	if err := s.gateway.Confirm(ctx, paymentKey, orderID, amount); err != nil {
		// Nothing was captured; the order stays READY and the client may retry.
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("gateway confirm failed")
		return payment.Order{}, fmt.Errorf("gateway confirm: %w", err)
	}

	// The money is captured. The bookkeeping below must finish even if the
	// client has already disconnected, so it runs detached from the request.
	ctx = context.WithoutCancel(ctx)

	approvedAt := s.clock.Now()
	creditErr := s.retry.Do(ctx, func() error {
		return s.store.CreditAndMarkDone(ctx, orderID, paymentKey, payment.StatusReady, approvedAt)
	})
	if creditErr != nil {
		s.logger.Error().Err(creditErr).
			Str("order_id", orderID).
			Str("payment_key", paymentKey).
			Msg("credit failed after retries, marking order failed")
		if failErr := s.store.MarkFailed(ctx, orderID, paymentKey); failErr != nil {
			s.logger.Error().Err(failErr).Str("order_id", orderID).Msg("mark failed errored")
		}
		return payment.Order{}, fmt.Errorf("credit points: %w", creditErr)
	}

	s.logger.Info().
		Str("order_id", orderID).
		Int64("amount", amount).
		Msg("payment confirmed and points credited")

	return s.store.GetOrder(ctx, orderID)
}

// Recover credits the points for a FAILED order whose payment was captured.
// This is the manual operator path after Confirm exhausted its retries.
func (s *LedgerService) Recover(ctx context.Context, orderID string) (payment.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return payment.Order{}, fmt.Errorf("load order: %w", err)
	}
	if order.Status != payment.StatusFailed {
		return payment.Order{}, ErrNotFailed
	}

	// Empty payment key keeps the key recorded at failure time.
	if err := s.store.CreditAndMarkDone(ctx, orderID, "", payment.StatusFailed, s.clock.Now()); err != nil {
		return payment.Order{}, fmt.Errorf("recover credit: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("user_id", order.UserID).
		Msg("failed order recovered")

	return s.store.GetOrder(ctx, orderID)
}

// Cancel refunds a DONE order at the gateway and claws back the points.
// The clawback ignores the balance floor: a refund may leave the balance
// negative when the points were already spent.
func (s *LedgerService) Cancel(ctx context.Context, orderID, reason string) (payment.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return payment.Order{}, fmt.Errorf("load order: %w", err)
	}
	if order.Status != payment.StatusDone {
		return payment.Order{}, ErrNotDone
	}
	if order.PaymentKey == "" {
		return payment.Order{}, ErrNoPaymentKey
	}

	if err := s.gateway.Cancel(ctx, order.PaymentKey, reason); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("gateway cancel failed")
		return payment.Order{}, fmt.Errorf("gateway cancel: %w", err)
	}

	if err := s.store.DebitAndMarkCancelled(ctx, orderID); err != nil {
		return payment.Order{}, fmt.Errorf("cancel debit: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("user_id", order.UserID).
		Int64("amount", order.Amount).
		Msg("payment cancelled and points debited")

	return s.store.GetOrder(ctx, orderID)
}

// Balance returns the user's current point balance.
func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.store.Balance(ctx, userID)
}

// AddPoints credits points outside the payment flow (promotions, manual grants).
func (s *LedgerService) AddPoints(ctx context.Context, userID string, points int64) (int64, error) {
	if points <= 0 {
		return 0, payment.ErrInvalidAmount
	}
	if err := s.store.AddPoints(ctx, userID, points); err != nil {
		return 0, err
	}
	return s.store.Balance(ctx, userID)
}

// DeductPoints spends points, respecting the insufficient-balance floor.
func (s *LedgerService) DeductPoints(ctx context.Context, userID string, points int64) (int64, error) {
	if points <= 0 {
		return 0, payment.ErrInvalidAmount
	}
	if err := s.store.DeductPoints(ctx, userID, points); err != nil {
		return 0, err
	}
	return s.store.Balance(ctx, userID)
}

// Order looks up a single order by its external order id.
func (s *LedgerService) Order(ctx context.Context, orderID string) (payment.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// History lists a user's orders, newest first.
func (s *LedgerService) History(ctx context.Context, userID string) ([]payment.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// ListFailed lists FAILED orders awaiting manual recovery.
func (s *LedgerService) ListFailed(ctx context.Context) ([]payment.Order, error) {
	return s.store.ListOrdersByStatus(ctx, payment.StatusFailed)
}
