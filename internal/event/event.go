// Package event defines the immutable record type the correlator ingests.
// Per spec invariant E1, an Event is never mutated after admission; every
// accessor returns copies of any mutable field (the overflow map).
package event

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Type is the enumerated event tag. Unknown tags are accepted: rules may
// reference event types the core has no built-in knowledge of.
type Type string

const (
	TypeAuthFail         Type = "auth_fail"
	TypeAuthSuccess      Type = "auth_success"
	TypeProcessStart     Type = "process_start"
	TypeNetworkConnect   Type = "network_connect"
	TypeFileAccess       Type = "file_access"
	TypeRegistryChange   Type = "registry_change"
	TypeDNSQuery         Type = "dns_query"
)

// Direction values for network_connect events.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Event is an immutable, normalized security observation. Mandatory fields
// are typed; everything else lives in Fields so rules can reference
// collector-specific attributes without the core knowing about them ahead
// of time.
type Event struct {
	Type      Type
	Timestamp time.Time
	Source    string

	// Fields holds every optional attribute the spec names (user,
	// source_ip, dest_port, process_name, ...) plus any collector-specific
	// overflow field. Values are usually string, float64, bool or
	// []string; DecodeJSON keeps nested objects and arrays with
	// non-string elements as json.Unmarshal produced them.
	Fields map[string]interface{}
}

// New constructs an Event, normalizing a possibly-missing or non-finite
// timestamp to ingestTime per spec §4.1 / §9 ("Treatment of events with
// timestamp missing").
func New(typ Type, timestamp time.Time, source string, fields map[string]interface{}, ingestTime time.Time) Event {
	ts := timestamp
	if ts.IsZero() || !isFiniteTime(ts) {
		ts = ingestTime
	}

	owned := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		owned[k] = v
	}

	return Event{
		Type:      typ,
		Timestamp: ts,
		Source:    source,
		Fields:    owned,
	}
}

func isFiniteTime(t time.Time) bool {
	unix := float64(t.UnixNano())
	return !math.IsNaN(unix) && !math.IsInf(unix, 0)
}

// Clone returns a deep copy of the event, suitable for binding into a
// DecisionGraph or Alert that must remain valid after the window store
// expires the original.
func (e Event) Clone() Event {
	owned := make(map[string]interface{}, len(e.Fields))
	for k, v := range e.Fields {
		owned[k] = v
	}
	return Event{
		Type:      e.Type,
		Timestamp: e.Timestamp,
		Source:    e.Source,
		Fields:    owned,
	}
}

// String returns the named optional field as a string, and whether it was
// present. Numeric and boolean fields are formatted; missing fields return
// ("", false) rather than erroring (predicates treat missing fields as a
// silent non-match, per spec §4.2).
func (e Event) String(field string) (string, bool) {
	v, ok := e.Fields[field]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Number returns the named field as a float64.
func (e Event) Number(field string) (float64, bool) {
	v, ok := e.Fields[field]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// StringSlice returns the named field as a []string, coercing a bare
// string into a single-element slice so `field: [v1, v2]` and
// `field: v1` both work uniformly for set-membership predicates.
func (e Event) StringSlice(field string) ([]string, bool) {
	v, ok := e.Fields[field]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out, true
	case string:
		return []string{t}, true
	default:
		return nil, false
	}
}

// User is a convenience accessor: the `user` field is the one optional
// field the rule evaluator reads directly for `same_user` gating.
func (e Event) User() (string, bool) {
	return e.String("user")
}
