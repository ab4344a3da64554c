// Package web provides the JSON API and the live event stream endpoint.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Em-Cyborg/WAF-Service/adapters/metrics"
	"github.com/Em-Cyborg/WAF-Service/app"
)

// Handler provides the HTTP endpoints.
type Handler struct {
	usage    *app.UsageService
	relay    *app.RelayService
	ledger   *app.LedgerService
	sessions *app.SessionService
	metrics  *metrics.Collector
	logger   zerolog.Logger
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Usage    *app.UsageService
	Relay    *app.RelayService
	Ledger   *app.LedgerService
	Sessions *app.SessionService
	Metrics  *metrics.Collector
	Logger   zerolog.Logger
}

// NewHandler creates the web handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		usage:    deps.Usage,
		relay:    deps.Relay,
		ledger:   deps.Ledger,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

// Routes returns the HTTP router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.Liveness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Monitoring surface
		r.Route("/monitoring", func(r chi.Router) {
			r.Get("/health", h.MonitorHealth)
			r.Get("/domains", h.Domains)
			r.Get("/logs", h.RecentLogs)
			r.Get("/logs/{domain}", h.DomainLogs)
			r.Get("/stats/{domain}", h.DomainStats)
			r.Get("/traffic/summary", h.TrafficSummary)
			r.Get("/traffic/{domain}", h.DomainTraffic)
			r.Get("/billing/summary", h.BillingSummary)
			r.Get("/billing/{domain}", h.BillingDetail)
			r.Get("/events", h.Events)
		})

		// Auth surface
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)
		r.Post("/auth/refresh", h.Refresh)

		// Session-guarded surface
		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Get("/auth/me", h.Me)

			r.Get("/payments/client-key", h.PaymentClientKey)
			r.Post("/payments/prepare", h.PaymentPrepare)
			r.Post("/payments/confirm", h.PaymentConfirm)
			r.Get("/payments/orders/{orderID}", h.PaymentOrder)
			r.Post("/payments/{orderID}/recover", h.PaymentRecover)
			r.Post("/payments/{orderID}/cancel", h.PaymentCancel)
			r.Get("/payments/history", h.PaymentHistory)
			r.Get("/payments/failed", h.PaymentFailed)

			r.Get("/points/balance", h.PointsBalance)
			r.Post("/points/add", h.PointsAdd)
			r.Post("/points/deduct", h.PointsDeduct)
		})
	})

	return r
}

// Liveness reports that the process is up.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("encode response failed")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
