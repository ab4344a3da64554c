// Package billing provides traffic billing value types and pure functions.
// This package has NO dependencies on I/O or external packages.
package billing

import (
	"errors"
	"math"
	"time"
)

// PointsPerGB is the billing rate: 10,000 points per gigabyte of traffic.
const PointsPerGB = 10000

// BytesPerGB is one binary gigabyte.
const BytesPerGB = int64(1) << 30

// MaxChunkDays is the longest range a single upstream traffic query may
// cover at day granularity. Longer periods are split into chunks.
const MaxChunkDays = 30

// ErrInvalidPeriod is returned when a billing period's due date does not
// come after its start date.
var ErrInvalidPeriod = errors.New("billing period due date must be after creation date")

// TrafficGB converts a byte total to gigabytes, unrounded.
// This is a PURE function.
func TrafficGB(bytes int64) float64 {
	return float64(bytes) / float64(BytesPerGB)
}

// PointsForBytes computes billable points for a byte total.
// Points are computed from the unrounded gigabyte value and rounded up,
// so any fractional traffic still bills a whole point.
// This is a PURE function.
func PointsForBytes(bytes int64) int64 {
	if bytes <= 0 {
		return 0
	}
	return int64(math.Ceil(TrafficGB(bytes) * PointsPerGB))
}

// AmountForPoints converts points to a currency amount. One point is one
// currency unit.
// This is a PURE function.
func AmountForPoints(points int64) int64 {
	return points
}

// RoundGB rounds a gigabyte value to two decimals for presentation.
// The rounded value never feeds back into point calculation.
// This is a PURE function.
func RoundGB(gb float64) float64 {
	return math.Round(gb*100) / 100
}

// Period is a billing window from domain creation to the payment due date.
type Period struct {
	CreatedAt time.Time
	DueAt     time.Time
}

// NewPeriod validates and constructs a billing period.
func NewPeriod(createdAt, dueAt time.Time) (Period, error) {
	if !dueAt.After(createdAt) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{CreatedAt: createdAt, DueAt: dueAt}, nil
}

// Days returns the elapsed whole days covered by the period.
func (p Period) Days() int {
	return int(p.DueAt.Sub(p.CreatedAt).Hours() / 24)
}

// NeedsChunking reports whether the period is too long for a single
// upstream traffic query.
func (p Period) NeedsChunking() bool {
	return p.Days() > MaxChunkDays
}

// DaysUntilDue returns the whole days remaining until the due date,
// floored at zero. A past due date yields 0, never a negative count.
// This is a PURE function.
func DaysUntilDue(dueAt, now time.Time) int {
	days := int(dueAt.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Record is the per-domain billing detail, recomputed on every request
// and never cached.
type Record struct {
	Domain        string    `json:"domain"`
	CreatedAt     time.Time `json:"created_at"`
	DueAt         time.Time `json:"payment_due_date"`
	TrafficGB     float64   `json:"total_traffic_gb"`
	TotalRequests int64     `json:"total_requests"`
	Points        int64     `json:"billing_points"`
	AmountDue     int64     `json:"billing_amount"`
}

// Summary is the condensed per-domain billing view.
type Summary struct {
	Domain       string  `json:"domain"`
	TrafficGB    float64 `json:"traffic_gb"`
	Points       int64   `json:"points"`
	AmountDue    int64   `json:"amount"`
	DaysUntilDue int     `json:"days_until_billing"`
}

// Compute builds a billing record from a measured byte total.
// The displayed gigabyte figure is rounded for presentation; points come
// from the unrounded total.
// This is a PURE function.
func Compute(domain string, period Period, totalBytes, totalRequests int64) Record {
	points := PointsForBytes(totalBytes)
	return Record{
		Domain:        domain,
		CreatedAt:     period.CreatedAt,
		DueAt:         period.DueAt,
		TrafficGB:     RoundGB(TrafficGB(totalBytes)),
		TotalRequests: totalRequests,
		Points:        points,
		AmountDue:     AmountForPoints(points),
	}
}

// Summarize condenses a record into its summary form.
// This is a PURE function.
func Summarize(r Record, now time.Time) Summary {
	return Summary{
		Domain:       r.Domain,
		TrafficGB:    r.TrafficGB,
		Points:       r.Points,
		AmountDue:    r.AmountDue,
		DaysUntilDue: DaysUntilDue(r.DueAt, now),
	}
}
