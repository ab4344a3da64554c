// Package monitor provides the HTTP adapter for the upstream traffic/log
// monitoring server: JSON query endpoints and the live event stream.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Em-Cyborg/WAF-Service/domain/event"
	"github.com/Em-Cyborg/WAF-Service/domain/traffic"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// ClientConfig configures the monitor client.
type ClientConfig struct {
	BaseURL        string
	ControlTimeout time.Duration // short control calls (default 10s)
	TrafficTimeout time.Duration // traffic-heavy queries (default 30s)
}

// Client implements ports.MonitorAPI and ports.EventSource against the
// monitoring server's HTTP API.
type Client struct {
	baseURL string
	control *http.Client
	heavy   *http.Client
	// stream has no overall timeout; the relay's reconnect loop bounds it.
	stream *http.Client
}

// NewClient creates a monitor API client.
func NewClient(cfg ClientConfig) *Client {
	controlTimeout := cfg.ControlTimeout
	if controlTimeout == 0 {
		controlTimeout = 10 * time.Second
	}
	trafficTimeout := cfg.TrafficTimeout
	if trafficTimeout == 0 {
		trafficTimeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		control: &http.Client{Timeout: controlTimeout},
		heavy:   &http.Client{Timeout: trafficTimeout},
		stream:  &http.Client{},
	}
}

// APIError represents a non-success response from the monitor server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("monitor server error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) get(ctx context.Context, client *http.Client, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// domainDoc is the wire shape of one entry in the /domains response.
type domainDoc struct {
	Domain     string     `json:"domain"`
	Target     string     `json:"target"`
	WAF        string     `json:"waf"`
	LogCount   int64      `json:"log_count"`
	CreatedAt  *time.Time `json:"created_at"`
	BillingDue *time.Time `json:"payment_due_date"`
}

// Domains lists all domains the monitor reports on.
func (c *Client) Domains(ctx context.Context) ([]ports.Domain, error) {
	var doc struct {
		Domains []domainDoc `json:"domains"`
	}
	if err := c.get(ctx, c.control, "/domains", &doc); err != nil {
		return nil, err
	}

	domains := make([]ports.Domain, 0, len(doc.Domains))
	for _, d := range doc.Domains {
		domains = append(domains, ports.Domain{
			Domain:     d.Domain,
			Target:     d.Target,
			WAF:        d.WAF,
			LogCount:   d.LogCount,
			CreatedAt:  d.CreatedAt,
			BillingDue: d.BillingDue,
		})
	}
	return domains, nil
}

// RecentLogs returns the latest log entries across all domains.
func (c *Client) RecentLogs(ctx context.Context, count int) ([]event.LogEntry, error) {
	return c.fetchLogs(ctx, "/recent?n="+strconv.Itoa(count))
}

// DomainLogs returns the latest log entries for one domain.
func (c *Client) DomainLogs(ctx context.Context, domain string, count int) ([]event.LogEntry, error) {
	return c.fetchLogs(ctx, "/recent/"+url.PathEscape(domain)+"?n="+strconv.Itoa(count))
}

func (c *Client) fetchLogs(ctx context.Context, path string) ([]event.LogEntry, error) {
	var doc struct {
		Logs []event.LogEntry `json:"logs"`
	}
	if err := c.get(ctx, c.control, path, &doc); err != nil {
		return nil, err
	}
	return doc.Logs, nil
}

// DomainStats returns the monitor's raw stats document for a domain.
func (c *Client) DomainStats(ctx context.Context, domain string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := c.get(ctx, c.control, "/stats/"+url.PathEscape(domain), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// summaryWindow is the wire shape of a today/last-hour block.
type summaryWindow struct {
	Requests int64 `json:"requests"`
	Bytes    int64 `json:"bytes"`
}

// TrafficSummary returns per-domain "today" and "last hour" windows.
func (c *Client) TrafficSummary(ctx context.Context) ([]traffic.DomainSummary, error) {
	var doc []struct {
		Domain   string        `json:"domain"`
		Today    summaryWindow `json:"today"`
		LastHour summaryWindow `json:"last_hour"`
	}
	if err := c.get(ctx, c.control, "/traffic/summary", &doc); err != nil {
		return nil, err
	}

	summaries := make([]traffic.DomainSummary, 0, len(doc))
	for _, d := range doc {
		summaries = append(summaries, traffic.DomainSummary{
			Domain:   d.Domain,
			Today:    traffic.Window{Domain: d.Domain, Requests: d.Today.Requests, Bytes: d.Today.Bytes},
			LastHour: traffic.Window{Domain: d.Domain, Requests: d.LastHour.Requests, Bytes: d.LastHour.Bytes},
		})
	}
	return summaries, nil
}

// DomainTraffic returns one domain's totals over interval×period.
func (c *Client) DomainTraffic(ctx context.Context, domain string, interval traffic.Interval, period int) (traffic.Window, error) {
	var doc struct {
		TotalRequests      int64 `json:"total_requests"`
		TotalBytes         int64 `json:"total_bytes"`
		TotalRequestBytes  int64 `json:"total_request_bytes"`
		TotalResponseBytes int64 `json:"total_response_bytes"`
	}
	path := fmt.Sprintf("/traffic/%s?interval=%s&period=%d", url.PathEscape(domain), interval, period)
	if err := c.get(ctx, c.heavy, path, &doc); err != nil {
		return traffic.Window{}, err
	}

	return traffic.Window{
		Domain:        domain,
		Interval:      interval,
		Period:        period,
		Requests:      doc.TotalRequests,
		Bytes:         doc.TotalBytes,
		RequestBytes:  doc.TotalRequestBytes,
		ResponseBytes: doc.TotalResponseBytes,
	}, nil
}

// Health probes the monitor server.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc map[string]interface{}
	if err := c.get(probeCtx, c.control, "/health", &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Connect opens the live events stream. The caller owns the body; the
// connection has no read timeout and lives until closed or cancelled.
func (c *Client) Connect(ctx context.Context, domain string) (io.ReadCloser, error) {
	path := "/events"
	if domain != "" {
		path += "?domain=" + url.QueryEscape(domain)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "event stream rejected"}
	}
	return resp.Body, nil
}

// Ensure interface compliance.
var (
	_ ports.MonitorAPI  = (*Client)(nil)
	_ ports.EventSource = (*Client)(nil)
)
