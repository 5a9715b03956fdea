package rule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sec-correlate/correlator/internal/predicate"
)

var countRe = regexp.MustCompile(`^\s*(>=|<=|>|<|=)?\s*(\d+)\s*$`)

// ParseCount parses a count predicate of the form "OP N" (spec §3). An
// empty string yields def. The operator is honored exactly as written —
// spec §9 flags that a faithful implementation must not collapse it to
// the numeric literal alone.
func ParseCount(s string, def Count) (Count, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	m := countRe.FindStringSubmatch(s)
	if m == nil {
		return Count{}, fmt.Errorf("invalid count predicate %q", s)
	}
	op := predicate.CompareOp(m[1])
	if op == "" {
		op = predicate.CmpGE
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Count{}, fmt.Errorf("invalid count value %q", m[2])
	}
	return Count{Op: op, Value: n}, nil
}
