package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Em-Cyborg/WAF-Service/app"
	"github.com/Em-Cyborg/WAF-Service/domain/payment"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// PaymentClientKey returns the gateway key used by checkout pages.
func (h *Handler) PaymentClientKey(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"client_key": h.ledger.ClientKey()})
}

// PaymentPrepare creates a READY order for the session's user.
func (h *Handler) PaymentPrepare(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	var req struct {
		Amount    int64  `json:"amount"`
		OrderName string `json:"order_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.ledger.Prepare(r.Context(), sess.UserID, req.Amount, req.OrderName)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "failed to prepare order")
		return
	}

	// Checkout pages bootstrap from this response alone, so it carries the
	// gateway's client-side key alongside the order identifiers.
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":   order.OrderID,
		"order_name": order.OrderName,
		"amount":     order.Amount,
		"client_key": h.ledger.ClientKey(),
	})
}

// PaymentConfirm captures a prepared payment and credits points.
func (h *Handler) PaymentConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentKey string `json:"paymentKey"`
		OrderID    string `json:"orderId"`
		Amount     int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentKey == "" || req.OrderID == "" {
		h.writeError(w, http.StatusBadRequest, "paymentKey and orderId are required")
		return
	}

	order, err := h.ledger.Confirm(r.Context(), req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		h.countPayment("confirm", "error")
		switch {
		case errors.Is(err, ports.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "unknown order")
		case errors.Is(err, app.ErrAmountMismatch), errors.Is(err, payment.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	h.countPayment("confirm", "done")
	h.writeJSON(w, http.StatusOK, order)
}

// PaymentRecover re-credits a FAILED order after manual review.
func (h *Handler) PaymentRecover(w http.ResponseWriter, r *http.Request) {
	order, err := h.ledger.Recover(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.countPayment("confirm", "recover_error")
		switch {
		case errors.Is(err, ports.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "unknown order")
		case errors.Is(err, app.ErrNotFailed):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.countPayment("confirm", "recovered")
	h.writeJSON(w, http.StatusOK, order)
}

// PaymentCancel refunds a DONE order and claws back its points.
func (h *Handler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		req.Reason = "user requested"
	}

	order, err := h.ledger.Cancel(r.Context(), chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		h.countPayment("cancel", "error")
		switch {
		case errors.Is(err, ports.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "unknown order")
		case errors.Is(err, app.ErrNotDone), errors.Is(err, app.ErrNoPaymentKey):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	h.countPayment("cancel", "done")
	h.writeJSON(w, http.StatusOK, order)
}

// PaymentOrder returns the status of a single order.
func (h *Handler) PaymentOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.ledger.Order(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "unknown order")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "failed to read order")
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// PaymentHistory lists the session user's orders, newest first.
func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	orders, err := h.ledger.History(r.Context(), sess.UserID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// PaymentFailed lists FAILED orders awaiting manual recovery.
func (h *Handler) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.ListFailed(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// PointsBalance returns the session user's point balance.
func (h *Handler) PointsBalance(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	balance, err := h.ledger.Balance(r.Context(), sess.UserID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to read balance")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// PointsAdd credits points outside the payment flow.
func (h *Handler) PointsAdd(w http.ResponseWriter, r *http.Request) {
	h.pointsMutation(w, r, h.ledger.AddPoints)
}

// PointsDeduct spends points, respecting the balance floor.
func (h *Handler) PointsDeduct(w http.ResponseWriter, r *http.Request) {
	h.pointsMutation(w, r, h.ledger.DeductPoints)
}

func (h *Handler) pointsMutation(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID string, points int64) (int64, error)) {
	sess, _ := SessionFrom(r.Context())

	var req struct {
		Points int64 `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := op(r.Context(), sess.UserID, req.Points)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ports.ErrInsufficientBalance):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "point operation failed")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) countPayment(kind, outcome string) {
	if h.metrics == nil {
		return
	}
	switch kind {
	case "confirm":
		h.metrics.PaymentConfirms.WithLabelValues(outcome).Inc()
	case "cancel":
		h.metrics.PaymentCancels.WithLabelValues(outcome).Inc()
	}
}
