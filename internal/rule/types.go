// Package rule implements the declarative rule model of spec §3: a named,
// ordered sequence of conditions plus an alert template, parsed once at
// load time (yaml.v3) and validated before the core will enable it.
package rule

import (
	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/predicate"
)

// Severity is the rule- and alert-level severity tag.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical, "":
		return true
	default:
		return false
	}
}

// Count is a parsed "OP N" count predicate (spec §3, §9: parsed once at
// load time, never re-parsed during evaluation).
type Count struct {
	Op    predicate.CompareOp
	Value int
}

// Satisfied reports whether n events satisfy this count predicate.
func (c Count) Satisfied(n int) bool {
	switch c.Op {
	case predicate.CmpGE:
		return n >= c.Value
	case predicate.CmpGT:
		return n > c.Value
	case predicate.CmpEQ:
		return n == c.Value
	case predicate.CmpLE:
		return n <= c.Value
	case predicate.CmpLT:
		return n < c.Value
	default:
		return false
	}
}

// Condition is one step Cᵢ of a rule's ordered sequence (spec §3).
type Condition struct {
	Type          event.Type
	Window        int // seconds, sliding lookback
	Count         Count
	FieldFilter   []predicate.Predicate
	GroupBy       []string
	SameUser      bool
	AfterPrevious bool
	Within        int // seconds, only meaningful when AfterPrevious
}

// AlertTemplate carries the alert-construction defaults of spec §3's
// "actions" field.
type AlertTemplate struct {
	Message    string
	Severity   Severity
	Confidence *float64 // nil means "use the rule's confidence, else the default confidence"
	Tag        string
}

// Rule is a named, identified declaration: conditions plus an alert
// template, per spec §3.
type Rule struct {
	ID              string
	Name            string
	Description     string
	Enabled         bool
	Severity        Severity
	Confidence      *float64
	MitreTechniques []string
	Conditions      []Condition
	Action          AlertTemplate
}
