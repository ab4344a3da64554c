package event_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Em-Cyborg/WAF-Service/domain/event"
)

func TestDecode_StructuredEvent(t *testing.T) {
	ev := event.Decode(`{"type":"log","payload":{"host":"example.com","status":403}}`)

	if ev.Kind != event.KindLog {
		t.Errorf("Kind = %s, want log", ev.Kind)
	}
	m, ok := ev.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("Payload type = %T, want map", ev.Payload)
	}
	if m["host"] != "example.com" {
		t.Errorf("host = %v", m["host"])
	}
}

func TestDecode_InvalidJSONBecomesRaw(t *testing.T) {
	ev := event.Decode("not json at all")

	if ev.Kind != event.KindRaw {
		t.Errorf("Kind = %s, want raw", ev.Kind)
	}
	if ev.Payload != "not json at all" {
		t.Errorf("Payload = %v, want original text", ev.Payload)
	}
}

func TestDecode_UntypedJSONBecomesRaw(t *testing.T) {
	ev := event.Decode(`{"foo":"bar"}`)

	if ev.Kind != event.KindRaw {
		t.Errorf("Kind = %s, want raw (no type tag)", ev.Kind)
	}
}

func TestDecode_MalformedLogPayloadStillForwarded(t *testing.T) {
	// status is a string, which misses the log schema; the event must
	// still come through as a log event.
	ev := event.Decode(`{"type":"log","payload":{"status":"not-a-number"}}`)

	if ev.Kind != event.KindLog {
		t.Errorf("Kind = %s, want log", ev.Kind)
	}
	if ev.Payload == nil {
		t.Error("payload must be preserved despite schema miss")
	}
}

func TestDecode_TrafficAndError(t *testing.T) {
	ev := event.Decode(`{"type":"traffic","payload":{"bytes":12}}`)
	if ev.Kind != event.KindTraffic {
		t.Errorf("Kind = %s, want traffic", ev.Kind)
	}

	ev = event.Decode(`{"type":"error","error":"upstream gone"}`)
	if ev.Kind != event.KindError || ev.Error != "upstream gone" {
		t.Errorf("got %+v", ev)
	}
}

func TestScanBlocks(t *testing.T) {
	stream := "data: one\n\ndata: two\ndata: three\nid: 7\n\n: comment\ndata:four\n\n"

	var got []string
	err := event.ScanBlocks(strings.NewReader(stream), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanBlocks failed: %v", err)
	}

	want := []string{"one", "two", "three", "four"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScanBlocks_FlushesUnterminatedBlock(t *testing.T) {
	var got []string
	err := event.ScanBlocks(strings.NewReader("data: tail"), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanBlocks failed: %v", err)
	}
	if len(got) != 1 || got[0] != "tail" {
		t.Errorf("got %v, want [tail]", got)
	}
}

func TestScanBlocks_EmitErrorStopsScan(t *testing.T) {
	stop := errors.New("consumer gone")
	calls := 0
	err := event.ScanBlocks(strings.NewReader("data: a\n\ndata: b\n\n"), func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want %v", err, stop)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestScanBlocks_CRLF(t *testing.T) {
	var got []string
	err := event.ScanBlocks(strings.NewReader("data: crlf\r\n\r\n"), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanBlocks failed: %v", err)
	}
	if len(got) != 1 || got[0] != "crlf" {
		t.Errorf("got %v, want [crlf]", got)
	}
}

func TestEncode(t *testing.T) {
	s := event.Encode(event.Event{Kind: event.KindRaw, Payload: "x"})

	if !strings.HasPrefix(s, "data: ") || !strings.HasSuffix(s, "\n\n") {
		t.Errorf("Encode = %q, want data:-prefixed double-newline frame", s)
	}
	if !strings.Contains(s, `"type":"raw"`) {
		t.Errorf("Encode = %q, missing kind tag", s)
	}
}

func TestErrorEvent(t *testing.T) {
	ev := event.ErrorEvent(errors.New("boom"))
	if ev.Kind != event.KindError || ev.Error != "boom" {
		t.Errorf("got %+v", ev)
	}
}
