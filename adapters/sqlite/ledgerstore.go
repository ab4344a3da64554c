package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Em-Cyborg/WAF-Service/domain/payment"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// LedgerStore implements ports.LedgerStore using SQLite. The composite
// mutations run inside a transaction so the order status and the owner's
// balance commit together or not at all.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new SQLite ledger store.
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// CreateOrder stores a new order.
func (s *LedgerStore) CreateOrder(ctx context.Context, o payment.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_orders (id, order_id, user_id, amount, order_name, status, payment_key, created_at, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.OrderID, o.UserID, o.Amount, o.OrderName, string(o.Status), nullString(o.PaymentKey), o.CreatedAt, nullTime(o.ApprovedAt))

	if err != nil && isUniqueConstraintError(err) {
		return ports.ErrDuplicate
	}
	return err
}

const orderColumns = `id, order_id, user_id, amount, order_name, status, payment_key, created_at, approved_at`

// GetOrder retrieves an order by its external order id.
func (s *LedgerStore) GetOrder(ctx context.Context, orderID string) (payment.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM payment_orders WHERE order_id = ?
	`, orderID)
	return scanOrder(row)
}

// ListOrdersByUser returns a user's orders, newest first.
func (s *LedgerStore) ListOrdersByUser(ctx context.Context, userID string) ([]payment.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM payment_orders WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListOrdersByStatus returns all orders in a given status.
func (s *LedgerStore) ListOrdersByStatus(ctx context.Context, status payment.Status) ([]payment.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM payment_orders WHERE status = ? ORDER BY created_at DESC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// CreditAndMarkDone credits the order's amount to its owner and moves the
// order to DONE in one transaction.
func (s *LedgerStore) CreditAndMarkDone(ctx context.Context, orderID, paymentKey string, expect payment.Status, approvedAt time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != expect {
			return fmt.Errorf("%w: have %s, want %s", ports.ErrWrongStatus, o.Status, expect)
		}

		if err := creditTx(ctx, tx, o.UserID, o.Amount); err != nil {
			return err
		}

		key := o.PaymentKey
		if paymentKey != "" {
			key = paymentKey
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE payment_orders SET status = ?, payment_key = ?, approved_at = ? WHERE order_id = ?
		`, string(payment.StatusDone), nullString(key), approvedAt, orderID)
		return err
	})
}

// MarkFailed records the payment key and moves a READY order to FAILED.
func (s *LedgerStore) MarkFailed(ctx context.Context, orderID, paymentKey string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != payment.StatusReady {
			return fmt.Errorf("%w: have %s, want %s", ports.ErrWrongStatus, o.Status, payment.StatusReady)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE payment_orders SET status = ?, payment_key = ? WHERE order_id = ?
		`, string(payment.StatusFailed), nullString(paymentKey), orderID)
		return err
	})
}

// DebitAndMarkCancelled deducts the order's amount (floor-exempt) and
// moves a DONE order to CANCELLED in one transaction.
func (s *LedgerStore) DebitAndMarkCancelled(ctx context.Context, orderID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != payment.StatusDone {
			return fmt.Errorf("%w: have %s, want %s", ports.ErrWrongStatus, o.Status, payment.StatusDone)
		}

		if err := creditTx(ctx, tx, o.UserID, -o.Amount); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE payment_orders SET status = ? WHERE order_id = ?
		`, string(payment.StatusCancelled), orderID)
		return err
	})
}

// Balance returns a user's point balance. Unknown users hold zero.
func (s *LedgerStore) Balance(ctx context.Context, userID string) (int64, error) {
	var points int64
	err := s.db.QueryRowContext(ctx, `
		SELECT points FROM balances WHERE user_id = ?
	`, userID).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return points, err
}

// AddPoints unconditionally credits points.
func (s *LedgerStore) AddPoints(ctx context.Context, userID string, amount int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return creditTx(ctx, tx, userID, amount)
	})
}

// DeductPoints debits points, enforcing the balance floor.
func (s *LedgerStore) DeductPoints(ctx context.Context, userID string, amount int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var points int64
		err := tx.QueryRowContext(ctx, `SELECT points FROM balances WHERE user_id = ?`, userID).Scan(&points)
		if errors.Is(err, sql.ErrNoRows) {
			points = 0
		} else if err != nil {
			return err
		}
		if points < amount {
			return ports.ErrInsufficientBalance
		}
		return creditTx(ctx, tx, userID, -amount)
	})
}

func (s *LedgerStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func lockOrder(ctx context.Context, tx *sql.Tx, orderID string) (payment.Order, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM payment_orders WHERE order_id = ?
	`, orderID)
	return scanOrder(row)
}

func creditTx(ctx context.Context, tx *sql.Tx, userID string, delta int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, points, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET points = points + excluded.points, updated_at = CURRENT_TIMESTAMP
	`, userID, delta)
	return err
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scannable) (payment.Order, error) {
	var (
		o          payment.Order
		status     string
		paymentKey sql.NullString
		approvedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OrderID, &o.UserID, &o.Amount, &o.OrderName, &status, &paymentKey, &o.CreatedAt, &approvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Order{}, ports.ErrNotFound
	}
	if err != nil {
		return payment.Order{}, err
	}
	o.Status = payment.Status(status)
	o.PaymentKey = paymentKey.String
	if approvedAt.Valid {
		t := approvedAt.Time
		o.ApprovedAt = &t
	}
	return o, nil
}

func collectOrders(rows *sql.Rows) ([]payment.Order, error) {
	var orders []payment.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Ensure interface compliance.
var _ ports.LedgerStore = (*LedgerStore)(nil)
