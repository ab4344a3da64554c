package clock_test

import (
	"testing"
	"time"

	"github.com/Em-Cyborg/WAF-Service/adapters/clock"
)

func TestReal_Now(t *testing.T) {
	before := time.Now().UTC()
	got := clock.Real{}.Now()
	after := time.Now().UTC()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
	if got.Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", got.Location())
	}
}

func TestFake_Advance(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)

	if got := f.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	f.Advance(25 * time.Hour)
	want := start.Add(25 * time.Hour)
	if got := f.Now(); !got.Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", got, want)
	}
}
