// Package traffic provides value types and pure functions for traffic
// window aggregation: interval ceilings, range chunking, extrapolation,
// and hostname filtering for cross-domain summaries.
package traffic

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// Interval is the granularity of an upstream traffic history query.
type Interval string

const (
	IntervalRealtime Interval = "realtime"
	IntervalHour     Interval = "hour"
	IntervalDay      Interval = "day"
	IntervalWeek     Interval = "week"
	IntervalMonth    Interval = "month"
)

// maxPeriods caps the period count per interval; all ceilings bound the
// query to roughly one year of data (60 minutes for realtime).
var maxPeriods = map[Interval]int{
	IntervalRealtime: 60,
	IntervalHour:     8760,
	IntervalDay:      365,
	IntervalWeek:     52,
	IntervalMonth:    12,
}

// ErrUnknownInterval is returned for an interval outside the supported set.
var ErrUnknownInterval = errors.New("unknown traffic interval")

// ErrPeriodTooLong is returned when a period exceeds its interval ceiling.
var ErrPeriodTooLong = errors.New("period exceeds interval ceiling")

// ValidateRange checks an interval/period pair before any upstream call.
// This is a PURE function.
func ValidateRange(interval Interval, period int) error {
	ceiling, ok := maxPeriods[interval]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}
	if period < 1 {
		return fmt.Errorf("period must be at least 1, got %d", period)
	}
	if period > ceiling {
		return fmt.Errorf("%w: %s allows at most %d, got %d", ErrPeriodTooLong, interval, ceiling, period)
	}
	return nil
}

// MaxPeriod returns the ceiling for an interval, or 0 if unknown.
// This is a PURE function.
func MaxPeriod(interval Interval) int {
	return maxPeriods[interval]
}

// SplitDays splits a day count into consecutive chunks of at most
// maxChunk days. A 65-day range with maxChunk 30 yields [30, 30, 5].
// This is a PURE function.
func SplitDays(days, maxChunk int) []int {
	if days <= 0 || maxChunk <= 0 {
		return nil
	}
	var chunks []int
	for days > 0 {
		n := days
		if n > maxChunk {
			n = maxChunk
		}
		chunks = append(chunks, n)
		days -= n
	}
	return chunks
}

// Window holds the totals measured for one domain over one query range.
// Derived data, never persisted.
type Window struct {
	Domain        string   `json:"domain"`
	Interval      Interval `json:"interval"`
	Period        int      `json:"period"`
	Requests      int64    `json:"total_requests"`
	Bytes         int64    `json:"total_bytes"`
	RequestBytes  int64    `json:"total_request_bytes"`
	ResponseBytes int64    `json:"total_response_bytes"`
}

// Add accumulates another window's totals into w.
func (w *Window) Add(other Window) {
	w.Requests += other.Requests
	w.Bytes += other.Bytes
	w.RequestBytes += other.RequestBytes
	w.ResponseBytes += other.ResponseBytes
}

// Scale multiplies a window's totals by a factor, used to extrapolate a
// longer period from a shorter measured one.
// This is a PURE function.
func Scale(w Window, factor int64) Window {
	w.Requests *= factor
	w.Bytes *= factor
	w.RequestBytes *= factor
	w.ResponseBytes *= factor
	return w
}

// DomainSummary combines the measured and derived windows reported for a
// single domain in the cross-domain summary.
type DomainSummary struct {
	Domain   string `json:"domain"`
	Today    Window `json:"today"`
	LastHour Window `json:"last_hour"`
	Week     Window `json:"week"`
	Month    Window `json:"month"`
}

// sentinels are non-hostname strings the upstream is known to report in
// the domain column.
var sentinels = map[string]struct{}{
	"accurate": {},
	"unknown":  {},
}

// hostnameLabel matches one RFC 1123 hostname label.
var hostnameLabel = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// ValidHostname reports whether a summary row's domain column holds a
// real hostname. It excludes empty strings, known sentinel values, bare
// IP literals, and anything carrying a colon (ports, IPv6), then checks
// RFC 1123 label syntax.
// This is a PURE function.
func ValidHostname(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 253 {
		return false
	}
	if _, bad := sentinels[strings.ToLower(s)]; bad {
		return false
	}
	if strings.Contains(s, ":") {
		return false
	}
	if net.ParseIP(s) != nil {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(s, "."), ".") {
		if !hostnameLabel.MatchString(label) {
			return false
		}
	}
	return true
}
