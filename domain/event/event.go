// Package event provides the stream event tagged union and the wire
// framing parser for the upstream live event feed.
package event

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Kind tags the payload shape of a stream event.
type Kind string

const (
	KindLog           Kind = "log"
	KindTraffic       Kind = "traffic"
	KindSystemTraffic Kind = "system_traffic"
	KindError         Kind = "error"
	KindRaw           Kind = "raw"
)

// Event is one item in a live event sequence. Payload shape varies by
// kind; the union is resolved at the ingestion boundary and passed
// through untouched afterwards.
type Event struct {
	Kind    Kind        `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorEvent builds a downstream error event from an upstream failure.
func ErrorEvent(err error) Event {
	return Event{Kind: KindError, Error: err.Error()}
}

// envelope is the upstream JSON wire shape.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

// Decode turns one upstream data payload into an Event. Payloads that are
// not valid JSON objects become raw events carrying the original text;
// decoding never fails.
func Decode(data string) Event {
	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil || env.Type == "" {
		return Event{Kind: KindRaw, Payload: data}
	}

	ev := Event{Kind: Kind(env.Type), Error: env.Error}
	if len(env.Payload) > 0 {
		var payload interface{}
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return Event{Kind: KindRaw, Payload: data}
		}
		ev.Payload = payload
	}

	// Log payloads get an opportunistic schema check. A miss only skips
	// validation, it never drops the event.
	if ev.Kind == KindLog {
		if m, ok := ev.Payload.(map[string]interface{}); ok {
			_ = validateLogPayload(m)
		}
	}
	return ev
}

// LogEntry is the WAF access log schema carried by log events. Unknown
// fields are tolerated; all fields are optional.
type LogEntry struct {
	Timestamp   string                 `json:"timestamp,omitempty"`
	ClientIP    string                 `json:"client_ip,omitempty"`
	Host        string                 `json:"host,omitempty"`
	URI         string                 `json:"uri,omitempty"`
	Method      string                 `json:"method,omitempty"`
	Status      int                    `json:"status,omitempty"`
	ProxyTarget string                 `json:"proxy_target,omitempty"`
	WAFAction   string                 `json:"waf_action,omitempty"`
	UserAgent   string                 `json:"user_agent,omitempty"`
	RequestID   string                 `json:"request_id,omitempty"`
	RuleID      string                 `json:"rule_id,omitempty"`
	LogType     string                 `json:"log_type,omitempty"`
	ReceivedAt  string                 `json:"received_at,omitempty"`
	Traffic     map[string]interface{} `json:"traffic,omitempty"`
}

// LogEvent wraps a log entry as a stream event, used when synthesizing
// events from polled logs.
func LogEvent(entry LogEntry) Event {
	return Event{Kind: KindLog, Payload: entry}
}

func validateLogPayload(m map[string]interface{}) bool {
	raw, err := json.Marshal(m)
	if err != nil {
		return false
	}
	var entry LogEntry
	return json.Unmarshal(raw, &entry) == nil
}

// ScanBlocks reads the upstream's blank-line-delimited block framing and
// calls emit for the content of every "data:" line, in arrival order. A
// block may carry multiple data lines; each is forwarded independently.
// Returns the reader's error, or nil on a clean close.
func ScanBlocks(r io.Reader, emit func(data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var block []string
	flush := func() error {
		for _, line := range block {
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			if err := emit(strings.TrimLeft(line[len("data:"):], " ")); err != nil {
				return err
			}
		}
		block = block[:0]
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		block = append(block, line)
	}
	if err := flush(); err != nil {
		return err
	}
	return scanner.Err()
}

// Encode renders an event in the downstream SSE wire format.
func Encode(ev Event) string {
	b, err := json.Marshal(ev)
	if err != nil {
		return "data: {}\n\n"
	}
	return "data: " + string(b) + "\n\n"
}
