package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Em-Cyborg/WAF-Service/domain/billing"
	"github.com/Em-Cyborg/WAF-Service/domain/traffic"
)

const defaultLogCount = 50

// MonitorHealth probes the upstream monitor server.
func (h *Handler) MonitorHealth(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("health", time.Now())
	doc, err := h.usage.Health(r.Context())
	if err != nil {
		h.countUpstreamError("health")
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// Domains lists the monitor's configured domains.
func (h *Handler) Domains(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("domains", time.Now())
	domains, err := h.usage.Domains(r.Context())
	if err != nil {
		h.countUpstreamError("domains")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"domains": domains})
}

// RecentLogs returns the newest log entries across all domains.
func (h *Handler) RecentLogs(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("logs", time.Now())
	logs, err := h.usage.RecentLogs(r.Context(), queryCount(r, defaultLogCount))
	if err != nil {
		h.countUpstreamError("logs")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// DomainLogs returns the newest log entries for one domain.
func (h *Handler) DomainLogs(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("logs", time.Now())
	domain := chi.URLParam(r, "domain")
	logs, err := h.usage.DomainLogs(r.Context(), domain, queryCount(r, defaultLogCount))
	if err != nil {
		h.countUpstreamError("logs")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"domain": domain, "logs": logs})
}

// DomainStats returns the monitor's stats document for a domain.
func (h *Handler) DomainStats(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("stats", time.Now())
	doc, err := h.usage.DomainStats(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		h.countUpstreamError("stats")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// TrafficSummary returns the per-domain traffic overview.
func (h *Handler) TrafficSummary(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("traffic", time.Now())
	summaries, err := h.usage.Summary(r.Context())
	if err != nil {
		h.countUpstreamError("traffic")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

// DomainTraffic returns one domain's totals over interval×period.
func (h *Handler) DomainTraffic(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("traffic", time.Now())
	interval := traffic.Interval(r.URL.Query().Get("interval"))
	if interval == "" {
		interval = traffic.IntervalDay
	}
	period := queryInt(r, "period", 1)

	win, err := h.usage.Traffic(r.Context(), chi.URLParam(r, "domain"), interval, period)
	if err != nil {
		if errors.Is(err, traffic.ErrUnknownInterval) || errors.Is(err, traffic.ErrPeriodTooLong) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.countUpstreamError("traffic")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, win)
}

// BillingSummary returns the condensed billing view for every domain.
func (h *Handler) BillingSummary(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("billing", time.Now())
	summaries, err := h.usage.BillingSummary(r.Context())
	if err != nil {
		h.countUpstreamError("billing")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

// BillingDetail returns one domain's full billing record.
func (h *Handler) BillingDetail(w http.ResponseWriter, r *http.Request) {
	defer h.observeUpstream("billing", time.Now())
	name := chi.URLParam(r, "domain")

	domains, err := h.usage.Domains(r.Context())
	if err != nil {
		h.countUpstreamError("billing")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	for _, dom := range domains {
		if dom.Domain != name {
			continue
		}
		record, err := h.usage.BillingDetail(r.Context(), dom)
		if err != nil {
			if errors.Is(err, billing.ErrInvalidPeriod) {
				h.writeError(w, http.StatusUnprocessableEntity, "domain has no billing period")
				return
			}
			h.countUpstreamError("billing")
			h.writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, record)
		return
	}
	h.writeError(w, http.StatusNotFound, "unknown domain")
}

func (h *Handler) countUpstreamError(endpoint string) {
	if h.metrics != nil {
		h.metrics.UpstreamErrors.WithLabelValues(endpoint).Inc()
	}
}

func (h *Handler) observeUpstream(endpoint string, start time.Time) {
	if h.metrics != nil {
		h.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func queryCount(r *http.Request, fallback int) int {
	return queryInt(r, "n", fallback)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
