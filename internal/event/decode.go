package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMissingType is the EventSchemaError trigger of spec §7: an event
// lacking `type` is dropped outright. A missing timestamp has no error of
// its own; it falls back to ingest time.
var ErrMissingType = errors.New("event: missing required field \"type\"")

// SchemaError wraps a decode failure with enough context for the host to
// log and increment events_rejected without parsing the message string.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("event schema: %s: %v", e.Op, e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

// wireEvent mirrors the newline-delimited JSON ingress format of spec §6:
// {"type": "...", "timestamp": "...", "_source": "...", ...extra fields}.
type wireEvent struct {
	Type      string      `json:"type"`
	Timestamp interface{} `json:"timestamp"`
	Source    string      `json:"_source"`
}

// DecodeJSON parses one ingress line into an Event. The timestamp accepts
// either an ISO8601 string or a Unix-seconds number, per spec §6.
// ingestTime is used as the timestamp fallback (spec §4.1). When `_source`
// is absent, Source is the empty string.
func DecodeJSON(line []byte, ingestTime time.Time) (Event, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, &SchemaError{Op: "unmarshal", Err: err}
	}

	typRaw, ok := raw["type"]
	if !ok {
		return Event{}, &SchemaError{Op: "validate", Err: ErrMissingType}
	}
	typ, ok := typRaw.(string)
	if !ok || typ == "" {
		return Event{}, &SchemaError{Op: "validate", Err: ErrMissingType}
	}
	delete(raw, "type")

	source, _ := raw["_source"].(string)
	delete(raw, "_source")

	ts := parseTimestamp(raw["timestamp"], ingestTime)
	delete(raw, "timestamp")

	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		fields[k] = normalizeValue(v)
	}

	return New(Type(typ), ts, source, fields, ingestTime), nil
}

func parseTimestamp(v interface{}, ingestTime time.Time) time.Time {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC()
	case string:
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			return time.Unix(int64(n), 0).UTC()
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC()
		}
		return ingestTime
	default:
		return ingestTime
	}
}

// normalizeValue coerces json.Unmarshal's generic []interface{} for string
// arrays into []string so field-filter set-membership predicates (§4.2)
// never have to type-switch on interface{} elements.
func normalizeValue(v interface{}) interface{} {
	arr, ok := v.([]interface{})
	if !ok {
		return v
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return v
		}
		out = append(out, s)
	}
	return out
}
