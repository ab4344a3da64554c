package web

import (
	"net/http"
	"time"

	"github.com/Em-Cyborg/WAF-Service/domain/event"
)

// Events streams live WAF events to the client as server-sent events.
// An optional domain query parameter scopes the stream.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	domain := r.URL.Query().Get("domain")

	// The server's write timeout would sever long-lived streams.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if h.metrics != nil {
		scope := "global"
		if domain != "" {
			scope = "domain"
		}
		h.metrics.StreamConnects.WithLabelValues(scope).Inc()
		h.metrics.StreamSubscribers.Inc()
		defer h.metrics.StreamSubscribers.Dec()
	}

	ctx := r.Context()
	for ev := range h.relay.Subscribe(ctx, domain) {
		if h.metrics != nil {
			h.metrics.StreamEvents.WithLabelValues(string(ev.Kind)).Inc()
		}
		if _, err := w.Write([]byte(event.Encode(ev))); err != nil {
			h.logger.Debug().Err(err).Msg("event stream client gone")
			return
		}
		flusher.Flush()
	}
}
