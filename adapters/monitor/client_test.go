package monitor

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Em-Cyborg/WAF-Service/domain/traffic"
)

func TestDomains(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/domains" {
			t.Errorf("path = %q, want /domains", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"domains":[{"domain":"example.com","target":"10.0.0.5:8080","waf":"on","log_count":42}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	domains, err := c.Domains(context.Background())
	if err != nil {
		t.Fatalf("Domains: %v", err)
	}
	if len(domains) != 1 {
		t.Fatalf("got %d domains, want 1", len(domains))
	}
	if domains[0].Domain != "example.com" || domains[0].LogCount != 42 {
		t.Errorf("unexpected domain: %+v", domains[0])
	}
}

func TestDomainLogsPath(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"logs":[{"host":"example.com","status":403,"waf_action":"blocked"}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	logs, err := c.DomainLogs(context.Background(), "example.com", 5)
	if err != nil {
		t.Fatalf("DomainLogs: %v", err)
	}
	if gotPath != "/recent/example.com" || gotQuery != "n=5" {
		t.Errorf("request = %s?%s, want /recent/example.com?n=5", gotPath, gotQuery)
	}
	if len(logs) != 1 || logs[0].Status != 403 {
		t.Errorf("unexpected logs: %+v", logs)
	}
}

func TestDomainTraffic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.RawQuery; got != "interval=day&period=7" {
			t.Errorf("query = %q, want interval=day&period=7", got)
		}
		w.Write([]byte(`{"total_requests":100,"total_bytes":2048,"total_request_bytes":512,"total_response_bytes":1536}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	win, err := c.DomainTraffic(context.Background(), "example.com", traffic.IntervalDay, 7)
	if err != nil {
		t.Fatalf("DomainTraffic: %v", err)
	}
	if win.Requests != 100 || win.Bytes != 2048 || win.ResponseBytes != 1536 {
		t.Errorf("unexpected window: %+v", win)
	}
	if win.Domain != "example.com" || win.Interval != traffic.IntervalDay || win.Period != 7 {
		t.Errorf("window not labeled with query: %+v", win)
	}
}

func TestTrafficSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"domain":"a.com","today":{"requests":10,"bytes":100},"last_hour":{"requests":1,"bytes":10}}]`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	sums, err := c.TrafficSummary(context.Background())
	if err != nil {
		t.Fatalf("TrafficSummary: %v", err)
	}
	if len(sums) != 1 || sums[0].Today.Requests != 10 || sums[0].LastHour.Bytes != 10 {
		t.Errorf("unexpected summary: %+v", sums)
	}
}

func TestErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "domain not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.DomainStats(context.Background(), "missing.com")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
}

func TestConnectStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("domain"); got != "example.com" {
			t.Errorf("domain query = %q, want example.com", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"log\",\"payload\":{\"host\":\"example.com\"}}\n\n"))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	body, err := c.Connect(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer body.Close()

	line, err := bufio.NewReader(body).ReadString('\n')
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") {
		t.Errorf("stream line = %q, want data: prefix", line)
	}
}

func TestConnectRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	if _, err := c.Connect(context.Background(), ""); err == nil {
		t.Fatal("expected error for rejected stream")
	}
}
