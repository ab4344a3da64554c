package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Em-Cyborg/WAF-Service/domain/billing"
	"github.com/Em-Cyborg/WAF-Service/domain/event"
	"github.com/Em-Cyborg/WAF-Service/domain/traffic"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// UsageService answers traffic and billing queries against the monitor
// server. Results are recomputed on every call; nothing is cached.
type UsageService struct {
	monitor ports.MonitorAPI
	clock   ports.Clock
	logger  zerolog.Logger
}

// NewUsageService creates a usage service.
func NewUsageService(monitor ports.MonitorAPI, clock ports.Clock, logger zerolog.Logger) *UsageService {
	return &UsageService{monitor: monitor, clock: clock, logger: logger}
}

// Domains lists the monitor's configured domains.
func (s *UsageService) Domains(ctx context.Context) ([]ports.Domain, error) {
	return s.monitor.Domains(ctx)
}

// RecentLogs returns the newest log entries across all domains.
func (s *UsageService) RecentLogs(ctx context.Context, count int) ([]event.LogEntry, error) {
	return s.monitor.RecentLogs(ctx, count)
}

// DomainLogs returns the newest log entries for one domain.
func (s *UsageService) DomainLogs(ctx context.Context, domain string, count int) ([]event.LogEntry, error) {
	return s.monitor.DomainLogs(ctx, domain, count)
}

// DomainStats returns the monitor's stats document for a domain.
func (s *UsageService) DomainStats(ctx context.Context, domain string) (map[string]interface{}, error) {
	return s.monitor.DomainStats(ctx, domain)
}

// Health probes the monitor server.
func (s *UsageService) Health(ctx context.Context) (map[string]interface{}, error) {
	return s.monitor.Health(ctx)
}

// Traffic returns one domain's totals over interval×period. Day queries
// longer than the upstream's window limit are split into chunks and
// summed; a failed chunk contributes zero rather than failing the total.
func (s *UsageService) Traffic(ctx context.Context, domain string, interval traffic.Interval, period int) (traffic.Window, error) {
	if err := traffic.ValidateRange(interval, period); err != nil {
		return traffic.Window{}, err
	}

	if interval != traffic.IntervalDay || period <= billing.MaxChunkDays {
		return s.monitor.DomainTraffic(ctx, domain, interval, period)
	}

	total := traffic.Window{Domain: domain, Interval: interval, Period: period}
	for _, chunk := range traffic.SplitDays(period, billing.MaxChunkDays) {
		win, err := s.monitor.DomainTraffic(ctx, domain, traffic.IntervalDay, chunk)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("domain", domain).
				Int("chunk_days", chunk).
				Msg("traffic chunk failed, counting it as zero")
			continue
		}
		total.Add(win)
	}
	return total, nil
}

// Summary builds the per-domain traffic overview. The monitor's today and
// last-hour windows are taken as-is; the week and month windows are
// fetched individually, and a failed fetch falls back to extrapolating
// today's traffic.
func (s *UsageService) Summary(ctx context.Context) ([]traffic.DomainSummary, error) {
	base, err := s.monitor.TrafficSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("traffic summary: %w", err)
	}

	summaries := make([]traffic.DomainSummary, 0, len(base))
	for _, sum := range base {
		if !traffic.ValidHostname(sum.Domain) {
			continue
		}

		sum.Week = s.windowOrExtrapolate(ctx, sum.Domain, 7, sum.Today)
		sum.Month = s.windowOrExtrapolate(ctx, sum.Domain, 30, sum.Today)
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// windowOrExtrapolate fetches a day-interval window, projecting today's
// numbers over the span when the fetch fails. Domains are independent: one
// domain's failure never disturbs another's figures.
func (s *UsageService) windowOrExtrapolate(ctx context.Context, domain string, days int, today traffic.Window) traffic.Window {
	win, err := s.monitor.DomainTraffic(ctx, domain, traffic.IntervalDay, days)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("domain", domain).
			Int("days", days).
			Msg("window fetch failed, extrapolating from today")
		win = traffic.Scale(today, int64(days))
		win.Interval = traffic.IntervalDay
		win.Period = days
	}
	return win
}

// BillingDetail computes one domain's billing record over its current
// period.
func (s *UsageService) BillingDetail(ctx context.Context, dom ports.Domain) (billing.Record, error) {
	if dom.CreatedAt == nil || dom.BillingDue == nil {
		return billing.Record{}, billing.ErrInvalidPeriod
	}
	period, err := billing.NewPeriod(*dom.CreatedAt, *dom.BillingDue)
	if err != nil {
		return billing.Record{}, err
	}

	days := period.Days()
	if days < 1 {
		days = 1
	}
	win, err := s.Traffic(ctx, dom.Domain, traffic.IntervalDay, days)
	if err != nil {
		return billing.Record{}, fmt.Errorf("billing traffic for %s: %w", dom.Domain, err)
	}

	return billing.Compute(dom.Domain, period, win.Bytes, win.Requests), nil
}

// BillingSummary computes the condensed billing view for every domain
// with a billing period. Domains whose traffic cannot be fetched are
// skipped rather than failing the whole response.
func (s *UsageService) BillingSummary(ctx context.Context) ([]billing.Summary, error) {
	domains, err := s.monitor.Domains(ctx)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}

	now := s.clock.Now()
	summaries := make([]billing.Summary, 0, len(domains))
	for _, dom := range domains {
		record, err := s.BillingDetail(ctx, dom)
		if err != nil {
			s.logger.Warn().Err(err).Str("domain", dom.Domain).Msg("skipping domain in billing summary")
			continue
		}
		summaries = append(summaries, billing.Summarize(record, now))
	}
	return summaries, nil
}
