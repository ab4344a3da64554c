package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Em-Cyborg/WAF-Service/adapters/clock"
	"github.com/Em-Cyborg/WAF-Service/adapters/gateway"
	"github.com/Em-Cyborg/WAF-Service/adapters/idgen"
	"github.com/Em-Cyborg/WAF-Service/adapters/memory"
	"github.com/Em-Cyborg/WAF-Service/adapters/sqlite"
	"github.com/Em-Cyborg/WAF-Service/domain/payment"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

func newLedgerFixture(t *testing.T) (*LedgerService, *memory.LedgerStore, *gateway.DummyGateway) {
	t.Helper()
	store := memory.NewLedgerStore()
	gw := gateway.NewDummyGateway()
	svc := NewLedgerService(store, gw, idgen.NewSequential("ord_"), clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)), zerolog.Nop())
	svc.retry = payment.RetryPolicy{MaxAttempts: 3, Backoff: payment.ConstantBackoff(0)}
	return svc, store, gw
}

func TestConfirmCreditsPoints(t *testing.T) {
	svc, store, gw := newLedgerFixture(t)
	ctx := context.Background()

	order, err := svc.Prepare(ctx, "user1", 4500, "4500 points")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if order.Status != payment.StatusReady {
		t.Fatalf("prepared status = %s, want READY", order.Status)
	}

	done, err := svc.Confirm(ctx, "pay_key_1", order.OrderID, 4500)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if done.Status != payment.StatusDone {
		t.Errorf("status = %s, want DONE", done.Status)
	}
	if done.PaymentKey != "pay_key_1" {
		t.Errorf("payment key = %q, want pay_key_1", done.PaymentKey)
	}
	if done.ApprovedAt == nil {
		t.Error("approved timestamp not set")
	}

	balance, _ := store.Balance(ctx, "user1")
	if balance != 4500 {
		t.Errorf("balance = %d, want 4500", balance)
	}
	if got := gw.Confirmed(); len(got) != 1 {
		t.Errorf("gateway confirms = %v, want one", got)
	}
}

func TestConfirmAmountMismatch(t *testing.T) {
	svc, store, _ := newLedgerFixture(t)
	ctx := context.Background()

	order, _ := svc.Prepare(ctx, "user1", 4500, "points")
	if _, err := svc.Confirm(ctx, "pay_key", order.OrderID, 9999); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("err = %v, want ErrAmountMismatch", err)
	}

	// Order untouched.
	got, _ := store.GetOrder(ctx, order.OrderID)
	if got.Status != payment.StatusReady {
		t.Errorf("status = %s, want READY", got.Status)
	}
}

func TestConfirmGatewayFailureKeepsReady(t *testing.T) {
	svc, store, gw := newLedgerFixture(t)
	ctx := context.Background()
	gw.FailConfirm = errors.New("card declined")

	order, _ := svc.Prepare(ctx, "user1", 4500, "points")
	if _, err := svc.Confirm(ctx, "pay_key", order.OrderID, 4500); err == nil {
		t.Fatal("expected gateway error")
	}

	got, _ := store.GetOrder(ctx, order.OrderID)
	if got.Status != payment.StatusReady {
		t.Errorf("status = %s, want READY after gateway failure", got.Status)
	}
	if balance, _ := store.Balance(ctx, "user1"); balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

// flakyStore fails CreditAndMarkDone a set number of times.
type flakyStore struct {
	ports.LedgerStore
	failures int
	calls    int
}

func (f *flakyStore) CreditAndMarkDone(ctx context.Context, orderID, paymentKey string, expect payment.Status, approvedAt time.Time) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient store error")
	}
	return f.LedgerStore.CreditAndMarkDone(ctx, orderID, paymentKey, expect, approvedAt)
}

func TestConfirmRetriesCredit(t *testing.T) {
	svc, inner, _ := newLedgerFixture(t)
	flaky := &flakyStore{LedgerStore: inner, failures: 2}
	svc.store = flaky
	ctx := context.Background()

	order, _ := svc.Prepare(ctx, "user1", 1000, "points")
	done, err := svc.Confirm(ctx, "pay_key", order.OrderID, 1000)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("credit attempts = %d, want 3", flaky.calls)
	}
	if done.Status != payment.StatusDone {
		t.Errorf("status = %s, want DONE", done.Status)
	}
}

func TestConfirmExhaustedMarksFailedAndRecovers(t *testing.T) {
	svc, inner, _ := newLedgerFixture(t)
	flaky := &flakyStore{LedgerStore: inner, failures: 3}
	svc.store = flaky
	ctx := context.Background()

	order, _ := svc.Prepare(ctx, "user1", 1000, "points")
	if _, err := svc.Confirm(ctx, "pay_key", order.OrderID, 1000); err == nil {
		t.Fatal("expected credit exhaustion error")
	}

	failed, _ := inner.GetOrder(ctx, order.OrderID)
	if failed.Status != payment.StatusFailed {
		t.Fatalf("status = %s, want FAILED", failed.Status)
	}
	if failed.PaymentKey != "pay_key" {
		t.Errorf("payment key = %q, want pay_key recorded at failure", failed.PaymentKey)
	}
	if balance, _ := inner.Balance(ctx, "user1"); balance != 0 {
		t.Errorf("balance = %d, want 0 before recovery", balance)
	}

	// Manual recovery credits the points and keeps the recorded key.
	svc.store = inner
	recovered, err := svc.Recover(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if recovered.Status != payment.StatusDone {
		t.Errorf("recovered status = %s, want DONE", recovered.Status)
	}
	if recovered.PaymentKey != "pay_key" {
		t.Errorf("recovered payment key = %q, want pay_key", recovered.PaymentKey)
	}
	if balance, _ := inner.Balance(ctx, "user1"); balance != 1000 {
		t.Errorf("balance = %d, want 1000 after recovery", balance)
	}
}

// disconnectingGateway drops the client's context right after a successful
// capture, like a browser navigating away mid-checkout.
type disconnectingGateway struct {
	*gateway.DummyGateway
	cancel context.CancelFunc
}

func (g *disconnectingGateway) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) error {
	if err := g.DummyGateway.Confirm(ctx, paymentKey, orderID, amount); err != nil {
		return err
	}
	g.cancel()
	return nil
}

func TestConfirmClientDisconnectStillCredits(t *testing.T) {
	svc, inner, gw := newLedgerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.gateway = &disconnectingGateway{DummyGateway: gw, cancel: cancel}

	// Two transient credit failures force retries after the disconnect.
	flaky := &flakyStore{LedgerStore: inner, failures: 2}
	svc.store = flaky

	order, _ := svc.Prepare(ctx, "user1", 4500, "points")
	done, err := svc.Confirm(ctx, "pay_key", order.OrderID, 4500)
	if err != nil {
		t.Fatalf("Confirm after client disconnect: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("credit attempts = %d, want 3 despite cancelled request", flaky.calls)
	}
	if done.Status != payment.StatusDone {
		t.Errorf("status = %s, want DONE", done.Status)
	}
	if balance, _ := inner.Balance(context.Background(), "user1"); balance != 4500 {
		t.Errorf("balance = %d, want 4500", balance)
	}
}

func TestConfirmClientDisconnectExhaustionMarksFailed(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	store := sqlite.NewLedgerStore(db)

	gw := gateway.NewDummyGateway()
	svc := NewLedgerService(store, gw, idgen.NewSequential("ord_"), clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)), zerolog.Nop())
	svc.retry = payment.RetryPolicy{MaxAttempts: 3, Backoff: payment.ConstantBackoff(0)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.gateway = &disconnectingGateway{DummyGateway: gw, cancel: cancel}
	svc.store = &flakyStore{LedgerStore: store, failures: 3}

	order, _ := svc.Prepare(ctx, "user1", 1000, "points")
	if _, err := svc.Confirm(ctx, "pay_key", order.OrderID, 1000); err == nil {
		t.Fatal("expected credit exhaustion error")
	}

	// The capture happened; the order must surface as FAILED even though
	// the request context died, so the failed listing shows it.
	failed, err := store.GetOrder(context.Background(), order.OrderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if failed.Status != payment.StatusFailed {
		t.Fatalf("status = %s, want FAILED after disconnect", failed.Status)
	}
	if failed.PaymentKey != "pay_key" {
		t.Errorf("payment key = %q, want pay_key recorded", failed.PaymentKey)
	}
	listing, err := store.ListOrdersByStatus(context.Background(), payment.StatusFailed)
	if err != nil {
		t.Fatalf("ListOrdersByStatus: %v", err)
	}
	if len(listing) != 1 {
		t.Errorf("failed listing = %d entries, want 1", len(listing))
	}
}

func TestRecoverRequiresFailed(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	ctx := context.Background()

	order, _ := svc.Prepare(ctx, "user1", 1000, "points")
	if _, err := svc.Recover(ctx, order.OrderID); !errors.Is(err, ErrNotFailed) {
		t.Errorf("recover READY err = %v, want ErrNotFailed", err)
	}
}

func TestCancelDebitsBelowZero(t *testing.T) {
	svc, store, gw := newLedgerFixture(t)
	ctx := context.Background()

	order, _ := svc.Prepare(ctx, "user1", 4500, "points")
	if _, err := svc.Confirm(ctx, "pay_key", order.OrderID, 4500); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// Spend most of the balance, then refund the whole order.
	if _, err := svc.DeductPoints(ctx, "user1", 4000); err != nil {
		t.Fatalf("DeductPoints: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, order.OrderID, "user requested")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != payment.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if balance, _ := store.Balance(ctx, "user1"); balance != -4000 {
		t.Errorf("balance = %d, want -4000 (refund ignores the floor)", balance)
	}
	if got := gw.Cancelled(); len(got) != 1 || got[0] != "pay_key" {
		t.Errorf("gateway cancels = %v, want [pay_key]", got)
	}

	// A cancelled order cannot be cancelled again.
	if _, err := svc.Cancel(ctx, order.OrderID, "again"); !errors.Is(err, ErrNotDone) {
		t.Errorf("double cancel err = %v, want ErrNotDone", err)
	}
}

func TestCancelRequiresDone(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	ctx := context.Background()

	order, _ := svc.Prepare(ctx, "user1", 1000, "points")
	if _, err := svc.Cancel(ctx, order.OrderID, "early"); !errors.Is(err, ErrNotDone) {
		t.Errorf("cancel READY err = %v, want ErrNotDone", err)
	}
}

func TestPointOperations(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	ctx := context.Background()

	if _, err := svc.AddPoints(ctx, "user1", 0); !errors.Is(err, payment.ErrInvalidAmount) {
		t.Errorf("add zero err = %v, want ErrInvalidAmount", err)
	}

	balance, err := svc.AddPoints(ctx, "user1", 500)
	if err != nil || balance != 500 {
		t.Fatalf("AddPoints = %d, %v; want 500, nil", balance, err)
	}

	if _, err := svc.DeductPoints(ctx, "user1", 600); !errors.Is(err, ports.ErrInsufficientBalance) {
		t.Errorf("overdraw err = %v, want ErrInsufficientBalance", err)
	}

	balance, err = svc.DeductPoints(ctx, "user1", 200)
	if err != nil || balance != 300 {
		t.Errorf("DeductPoints = %d, %v; want 300, nil", balance, err)
	}
}

func TestHistoryAndFailedListing(t *testing.T) {
	svc, inner, _ := newLedgerFixture(t)
	ctx := context.Background()

	first, _ := svc.Prepare(ctx, "user1", 100, "a")
	second, _ := svc.Prepare(ctx, "user1", 200, "b")
	svc.Prepare(ctx, "other", 300, "c")

	orders, err := svc.History(ctx, "user1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("history length = %d, want 2", len(orders))
	}

	if err := inner.MarkFailed(ctx, first.OrderID, "pk"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	failed, err := svc.ListFailed(ctx)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(failed) != 1 || failed[0].OrderID != first.OrderID {
		t.Errorf("failed listing = %+v, want only %s", failed, first.OrderID)
	}
	_ = second
}
