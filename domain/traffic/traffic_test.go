package traffic_test

import (
	"errors"
	"testing"

	"github.com/Em-Cyborg/WAF-Service/domain/traffic"
)

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name     string
		interval traffic.Interval
		period   int
		wantErr  error
	}{
		{"realtime at ceiling", traffic.IntervalRealtime, 60, nil},
		{"realtime over ceiling", traffic.IntervalRealtime, 61, traffic.ErrPeriodTooLong},
		{"hour at ceiling", traffic.IntervalHour, 8760, nil},
		{"hour over ceiling", traffic.IntervalHour, 8761, traffic.ErrPeriodTooLong},
		{"day at ceiling", traffic.IntervalDay, 365, nil},
		{"day over ceiling", traffic.IntervalDay, 366, traffic.ErrPeriodTooLong},
		{"week at ceiling", traffic.IntervalWeek, 52, nil},
		{"month at ceiling", traffic.IntervalMonth, 12, nil},
		{"month over ceiling", traffic.IntervalMonth, 13, traffic.ErrPeriodTooLong},
		{"unknown interval", traffic.Interval("minute"), 1, traffic.ErrUnknownInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := traffic.ValidateRange(tt.interval, tt.period)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRange = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRange = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRange_RejectsNonPositivePeriod(t *testing.T) {
	if err := traffic.ValidateRange(traffic.IntervalDay, 0); err == nil {
		t.Error("period 0 must be rejected")
	}
}

func TestSplitDays(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		maxChunk int
		want     []int
	}{
		{"65 days splits 30+30+5", 65, 30, []int{30, 30, 5}},
		{"exactly one chunk", 30, 30, []int{30}},
		{"under one chunk", 7, 30, []int{7}},
		{"exact multiple", 60, 30, []int{30, 30}},
		{"zero days", 0, 30, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := traffic.SplitDays(tt.days, tt.maxChunk)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitDays = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("SplitDays = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestWindowAddAndScale(t *testing.T) {
	w := traffic.Window{Requests: 10, Bytes: 100, RequestBytes: 40, ResponseBytes: 60}
	w.Add(traffic.Window{Requests: 5, Bytes: 50, RequestBytes: 20, ResponseBytes: 30})

	if w.Requests != 15 || w.Bytes != 150 || w.RequestBytes != 60 || w.ResponseBytes != 90 {
		t.Errorf("Add produced %+v", w)
	}

	scaled := traffic.Scale(traffic.Window{Requests: 3, Bytes: 7}, 7)
	if scaled.Requests != 21 || scaled.Bytes != 49 {
		t.Errorf("Scale produced %+v", scaled)
	}
}

func TestValidHostname(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"sub.example.co.kr", true},
		{"localhost", true},
		{"a-b.example.com", true},

		{"", false},
		{"  ", false},
		{"accurate", false},
		{"Accurate", false},
		{"unknown", false},
		{"211.45.204.26", false},
		{"::1", false},
		{"example.com:8080", false},
		{"-bad.example.com", false},
		{"bad-.example.com", false},
		{"under_score.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := traffic.ValidHostname(tt.host); got != tt.want {
				t.Errorf("ValidHostname(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}
