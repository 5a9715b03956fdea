// Package predicate implements the field-filter interpreter of spec §4.2:
// scalar equality, set membership, substring ("_contains"), and arithmetic
// comparison against event fields, including KB/MB/GB size literals.
//
// Every predicate is syntactically valid by the time it reaches Match —
// unknown shapes are rejected at rule-load time (see package rule) — so
// Match only ever returns false on a type mismatch, never an error, per
// spec §7's PredicateTypeMismatch policy ("treat predicate as false; do
// not abort evaluation").
package predicate

import (
	"strconv"
	"strings"

	"github.com/sec-correlate/correlator/internal/event"
)

// Kind identifies which of the four predicate kinds a Predicate holds. A
// size literal such as "> 10MB" is parsed into a KindCompare.
type Kind int

const (
	KindEquals Kind = iota
	KindIn
	KindContains
	KindCompare
)

// CompareOp is the arithmetic comparator parsed out of a "OP N" shape.
type CompareOp string

const (
	CmpGE CompareOp = ">="
	CmpGT CompareOp = ">"
	CmpEQ CompareOp = "="
	CmpLE CompareOp = "<="
	CmpLT CompareOp = "<"
)

// Predicate is one parsed field-filter test, built once at rule-load time
// (spec §9: "never re-parse during evaluation").
type Predicate struct {
	Field       string
	Kind        Kind
	Scalar      string    // KindEquals: exact string form of the scalar
	ScalarNum   float64   // KindEquals: numeric form, when the scalar parses as a number
	ScalarIsNum bool
	Set         []string  // KindIn
	Substrings  []string  // KindContains
	CompareOp   CompareOp // KindCompare
	CompareNum  float64   // KindCompare
}

// Match applies the predicate to an event. A missing field fails silently
// (returns false, never an error) per spec §4.2.
func (p Predicate) Match(e event.Event) bool {
	switch p.Kind {
	case KindEquals:
		return matchEquals(p, e)
	case KindIn:
		return matchIn(p, e)
	case KindContains:
		return matchContains(p, e)
	case KindCompare:
		return matchCompare(p, e)
	default:
		return false
	}
}

func matchEquals(p Predicate, e event.Event) bool {
	if p.ScalarIsNum {
		n, ok := e.Number(p.Field)
		if ok {
			return n == p.ScalarNum
		}
	}
	s, ok := e.String(p.Field)
	if !ok {
		return false
	}
	return s == p.Scalar
}

func matchIn(p Predicate, e event.Event) bool {
	s, ok := e.String(p.Field)
	if !ok {
		return false
	}
	for _, v := range p.Set {
		if v == s {
			return true
		}
	}
	return false
}

func matchContains(p Predicate, e event.Event) bool {
	s, ok := e.String(p.Field)
	if !ok {
		return false
	}
	for _, sub := range p.Substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func matchCompare(p Predicate, e event.Event) bool {
	n, ok := e.Number(p.Field)
	if !ok {
		return false
	}
	switch p.CompareOp {
	case CmpGE:
		return n >= p.CompareNum
	case CmpGT:
		return n > p.CompareNum
	case CmpEQ:
		return n == p.CompareNum
	case CmpLE:
		return n <= p.CompareNum
	case CmpLT:
		return n < p.CompareNum
	default:
		return false
	}
}

// sizeMultipliers implements the KB=1024, MB=1024^2, GB=1024^3 literals of
// spec §4.2.
var sizeMultipliers = map[string]float64{
	"KB": 1024,
	"MB": 1024 * 1024,
	"GB": 1024 * 1024 * 1024,
}

// parseSizeLiteral parses a trailing size suffix ("10MB") into a raw
// number, returning (value, true) on success.
func parseSizeLiteral(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for suffix, mult := range sizeMultipliers {
		if strings.HasSuffix(strings.ToUpper(s), suffix) {
			numPart := strings.TrimSpace(s[:len(s)-len(suffix)])
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, false
			}
			return n * mult, true
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
