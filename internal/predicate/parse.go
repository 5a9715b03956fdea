package predicate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError is a rule-load-time failure: an unknown predicate shape.
// Spec §4.2: "Unknown predicate shapes are a rule-load-time error."
type ParseError struct {
	Field string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("predicate %q: %s", e.Field, e.Msg)
}

var compareRe = regexp.MustCompile(`^\s*(>=|<=|>|<|=)\s*(.+?)\s*$`)

const containsSuffix = "_contains"

// ParseFilter parses one YAML-decoded field_filter map into a list of
// Predicates, built once at rule-load time so Match never re-parses.
func ParseFilter(raw map[string]interface{}) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(raw))
	for key, val := range raw {
		p, err := parseOne(key, val)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func parseOne(key string, val interface{}) (Predicate, error) {
	if strings.HasSuffix(key, containsSuffix) {
		field := strings.TrimSuffix(key, containsSuffix)
		subs, err := toStringSlice(val)
		if err != nil {
			return Predicate{}, &ParseError{Field: key, Msg: "field_contains requires a string or list of strings"}
		}
		return Predicate{Field: field, Kind: KindContains, Substrings: subs}, nil
	}

	switch v := val.(type) {
	case []interface{}:
		set, err := toStringSlice(v)
		if err != nil {
			return Predicate{}, &ParseError{Field: key, Msg: "list predicate requires string elements"}
		}
		return Predicate{Field: key, Kind: KindIn, Set: set}, nil
	case []string:
		return Predicate{Field: key, Kind: KindIn, Set: v}, nil
	case string:
		if m := compareRe.FindStringSubmatch(v); m != nil {
			op := CompareOp(m[1])
			num, ok := parseSizeLiteral(m[2])
			if !ok {
				return Predicate{}, &ParseError{Field: key, Msg: fmt.Sprintf("invalid numeric literal %q", m[2])}
			}
			return Predicate{Field: key, Kind: KindCompare, CompareOp: op, CompareNum: num}, nil
		}
		p := Predicate{Field: key, Kind: KindEquals, Scalar: v}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			p.ScalarNum = n
			p.ScalarIsNum = true
		}
		return p, nil
	case int:
		return Predicate{Field: key, Kind: KindEquals, Scalar: strconv.Itoa(v), ScalarNum: float64(v), ScalarIsNum: true}, nil
	case float64:
		return Predicate{Field: key, Kind: KindEquals, Scalar: strconv.FormatFloat(v, 'f', -1, 64), ScalarNum: v, ScalarIsNum: true}, nil
	case bool:
		return Predicate{Field: key, Kind: KindEquals, Scalar: strconv.FormatBool(v)}, nil
	default:
		return Predicate{}, &ParseError{Field: key, Msg: fmt.Sprintf("unsupported predicate shape %T", val)}
	}
}

func toStringSlice(val interface{}) ([]string, error) {
	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := elementToString(e)
			if !ok {
				return nil, fmt.Errorf("unsupported element %v (%T)", e, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported shape %T", val)
	}
}

// elementToString coerces one decoded set/contains-list element to its
// string form, the same coercion parseOne already applies to bare
// scalars, so `in`/`_contains` sets over numeric or boolean fields (e.g.
// `dest_port: [445, 139]`) load the same way a single scalar would.
func elementToString(e interface{}) (string, bool) {
	switch t := e.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
