package app

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Em-Cyborg/WAF-Service/domain/event"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// Relay timing defaults.
const (
	relayBaseBackoff  = 1 * time.Second
	relayMaxBackoff   = 10 * time.Second
	relayPollInterval = 5 * time.Second
	relayPollCount    = 5
)

// RelayService fans the monitor's live event stream out to subscribers.
// Each subscription drives its own upstream connection with exponential
// backoff; domain-scoped subscriptions that never manage a live connection
// degrade to polling recent logs.
type RelayService struct {
	source  ports.EventSource
	monitor ports.MonitorAPI
	logger  zerolog.Logger

	baseBackoff  time.Duration
	maxBackoff   time.Duration
	pollInterval time.Duration
	pollCount    int
}

// NewRelayService creates a relay with default reconnect timing.
func NewRelayService(source ports.EventSource, monitor ports.MonitorAPI, logger zerolog.Logger) *RelayService {
	return &RelayService{
		source:       source,
		monitor:      monitor,
		logger:       logger,
		baseBackoff:  relayBaseBackoff,
		maxBackoff:   relayMaxBackoff,
		pollInterval: relayPollInterval,
		pollCount:    relayPollCount,
	}
}

// Subscribe opens an event channel for the given domain scope (empty for
// all domains). The channel closes when ctx is cancelled. Every event is
// forwarded; a slow subscriber backpressures the upstream read instead of
// losing events.
func (s *RelayService) Subscribe(ctx context.Context, domain string) <-chan event.Event {
	out := make(chan event.Event, 64)
	go s.run(ctx, domain, out)
	return out
}

func (s *RelayService) run(ctx context.Context, domain string, out chan<- event.Event) {
	defer close(out)

	backoff := s.baseBackoff
	everConnected := false

	for {
		if ctx.Err() != nil {
			return
		}

		body, err := s.source.Connect(ctx, domain)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn().Err(err).Str("domain", domain).Msg("event stream connect failed")

			// A domain stream that has never come up gets the polling
			// fallback instead of retrying forever.
			if domain != "" && !everConnected {
				s.emit(ctx, out, event.ErrorEvent(err))
				s.poll(ctx, domain, out)
				return
			}

			s.emit(ctx, out, event.ErrorEvent(err))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.maxBackoff)
			continue
		}

		everConnected = true
		backoff = s.baseBackoff
		s.logger.Info().Str("domain", domain).Msg("event stream connected")

		streamErr := s.pump(ctx, body, out)
		body.Close()

		if ctx.Err() != nil {
			return
		}

		if streamErr != nil {
			s.logger.Warn().Err(streamErr).Str("domain", domain).Msg("event stream broke")
			s.emit(ctx, out, event.ErrorEvent(streamErr))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.maxBackoff)
			continue
		}

		// Clean close: pause briefly and reconnect from the base delay.
		s.logger.Debug().Str("domain", domain).Msg("event stream closed cleanly")
		if !sleep(ctx, s.baseBackoff) {
			return
		}
		backoff = s.baseBackoff
	}
}

// pump decodes stream blocks and forwards them until the stream ends.
// Returns nil on clean EOF.
func (s *RelayService) pump(ctx context.Context, body io.Reader, out chan<- event.Event) error {
	return event.ScanBlocks(body, func(data string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.emit(ctx, out, event.Decode(data))
		return nil
	})
}

// poll fetches recent logs for the domain on a fixed interval, replaying
// them as log events. It runs until ctx is cancelled.
func (s *RelayService) poll(ctx context.Context, domain string, out chan<- event.Event) {
	s.logger.Info().Str("domain", domain).Msg("falling back to log polling")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		entries, err := s.monitor.DomainLogs(ctx, domain, s.pollCount)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn().Err(err).Str("domain", domain).Msg("fallback poll failed")
			s.emit(ctx, out, event.ErrorEvent(err))
		} else {
			for _, entry := range entries {
				s.emit(ctx, out, event.LogEvent(entry))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emit delivers one event, waiting for a slow subscriber; the wait ends
// when the subscription is cancelled.
func (s *RelayService) emit(ctx context.Context, out chan<- event.Event, ev event.Event) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// sleep waits d or until ctx is cancelled; reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
