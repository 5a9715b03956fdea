package rule

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/predicate"
)

// Document is the parsed, validated rule tree the core accepts from
// load_rules (spec §6). Disabled rules are dropped during parsing —
// they never reach the evaluator.
type Document struct {
	Rules []Rule
}

// Defaults supplies the process-wide fallbacks of spec §6's Configuration
// section (default_count, default_window) used when a condition omits
// them.
type Defaults struct {
	Count  Count
	Window int
}

// DefaultDefaults mirrors spec §6's stated defaults: count >= 1, window
// 60s.
func DefaultDefaults() Defaults {
	return Defaults{
		Count:  Count{Op: predicate.CmpGE, Value: 1},
		Window: 60,
	}
}

// ValidationError is one RuleValidationError (spec §7): the loader
// collects every error it finds rather than stopping at the first, so
// the host can report them all at once.
type ValidationError struct {
	RuleIndex int
	RuleID    string
	Field     string
	Message   string
}

func (e ValidationError) Error() string {
	id := e.RuleID
	if id == "" {
		id = fmt.Sprintf("rules[%d]", e.RuleIndex)
	}
	return fmt.Sprintf("rule %s: %s: %s", id, e.Field, e.Message)
}

// wire* types mirror the YAML document shape. Unknown top-level fields on
// a rule are rejected via yaml.Decoder.KnownFields, satisfying spec §7's
// "unknown field" trigger.
type wireDocument struct {
	Rules []wireRule `yaml:"rules"`
}

type wireRule struct {
	ID              string          `yaml:"id"`
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description"`
	Enabled         *bool           `yaml:"enabled"`
	Severity        string          `yaml:"severity"`
	Confidence      *float64        `yaml:"confidence"`
	MitreTechniques []string        `yaml:"mitre_techniques"`
	Conditions      []wireCondition `yaml:"conditions"`
	Actions         []wireAction    `yaml:"actions"`
}

type wireCondition struct {
	Type          string                 `yaml:"type"`
	Window        *int                   `yaml:"window"`
	Count         string                 `yaml:"count"`
	FieldFilter   map[string]interface{} `yaml:"field_filter"`
	GroupBy       []string               `yaml:"group_by"`
	SameUser      bool                   `yaml:"same_user"`
	AfterPrevious bool                   `yaml:"after_previous"`
	Within        *int                   `yaml:"within"`
}

type wireAction struct {
	Message    string   `yaml:"message"`
	Severity   string   `yaml:"severity"`
	Confidence *float64 `yaml:"confidence"`
	Tag        string   `yaml:"tag"`
}

// ParseDocument implements spec §6's load_rules(document): parses and
// validates a rule document, returning every validation error found.
// Rules with enabled: false are dropped silently (not an error). The core
// refuses to start if the returned error list is non-empty (host policy,
// enforced by the caller — see cmd/correlator).
func ParseDocument(r io.Reader, defaults Defaults) (*Document, []ValidationError) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, []ValidationError{{Field: "document", Message: err.Error()}}
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf.Bytes()))
	dec.KnownFields(true)

	var wire wireDocument
	if err := dec.Decode(&wire); err != nil {
		return nil, []ValidationError{{Field: "document", Message: err.Error()}}
	}

	doc := &Document{}
	var errs []ValidationError

	for i, wr := range wire.Rules {
		enabled := true
		if wr.Enabled != nil {
			enabled = *wr.Enabled
		}
		if !enabled {
			continue
		}

		r, ruleErrs := compileRule(i, wr, defaults)
		errs = append(errs, ruleErrs...)
		if len(ruleErrs) == 0 {
			doc.Rules = append(doc.Rules, r)
		}
	}

	return doc, errs
}

func compileRule(index int, wr wireRule, defaults Defaults) (Rule, []ValidationError) {
	var errs []ValidationError
	fail := func(field, msg string) {
		errs = append(errs, ValidationError{RuleIndex: index, RuleID: wr.ID, Field: field, Message: msg})
	}

	if wr.ID == "" {
		fail("id", "rule id is required")
	}
	if len(wr.Conditions) == 0 {
		fail("conditions", "condition list must not be empty")
	}
	if len(wr.Actions) == 0 {
		fail("actions", "at least one action is required")
	}

	sev := Severity(wr.Severity)
	if !sev.Valid() {
		fail("severity", fmt.Sprintf("unknown severity %q", wr.Severity))
	}
	if sev == "" {
		sev = SeverityMedium
	}

	conditions := make([]Condition, 0, len(wr.Conditions))
	for ci, wc := range wr.Conditions {
		cond, condErrs := compileCondition(ci, wc, defaults)
		for _, e := range condErrs {
			e.RuleIndex = index
			e.RuleID = wr.ID
			errs = append(errs, e)
		}
		conditions = append(conditions, cond)
	}

	var action AlertTemplate
	if len(wr.Actions) > 0 {
		wa := wr.Actions[0]
		actionSev := Severity(wa.Severity)
		if wa.Severity != "" && !actionSev.Valid() {
			fail("actions[0].severity", fmt.Sprintf("unknown severity %q", wa.Severity))
		}
		action = AlertTemplate{
			Message:    wa.Message,
			Severity:   actionSev,
			Confidence: wa.Confidence,
			Tag:        wa.Tag,
		}
	}

	if len(errs) > 0 {
		return Rule{}, errs
	}

	return Rule{
		ID:              wr.ID,
		Name:            wr.Name,
		Description:     wr.Description,
		Enabled:         true,
		Severity:        sev,
		Confidence:      wr.Confidence,
		MitreTechniques: wr.MitreTechniques,
		Conditions:      conditions,
		Action:          action,
	}, nil
}

func compileCondition(index int, wc wireCondition, defaults Defaults) (Condition, []ValidationError) {
	var errs []ValidationError
	fail := func(field, msg string) {
		errs = append(errs, ValidationError{Field: fmt.Sprintf("conditions[%d].%s", index, field), Message: msg})
	}

	if wc.Type == "" {
		fail("type", "event type is required")
	}

	window := defaults.Window
	if wc.Window != nil {
		window = *wc.Window
	}

	count, err := ParseCount(wc.Count, defaults.Count)
	if err != nil {
		fail("count", err.Error())
	}

	var filters []predicate.Predicate
	if len(wc.FieldFilter) > 0 {
		filters, err = predicate.ParseFilter(wc.FieldFilter)
		if err != nil {
			fail("field_filter", err.Error())
		}
	}

	if wc.AfterPrevious && index == 0 {
		fail("after_previous", "first condition cannot set after_previous")
	}

	if len(errs) > 0 {
		return Condition{}, errs
	}

	// within has no spec-defined default; an omitted value defaults to
	// this condition's own window rather than 0, since 0 would make
	// after_previous's t* < ts <= t*+within test unsatisfiable.
	within := window
	if wc.Within != nil {
		within = *wc.Within
	}

	return Condition{
		Type:          event.Type(wc.Type),
		Window:        window,
		Count:         count,
		FieldFilter:   filters,
		GroupBy:       wc.GroupBy,
		SameUser:      wc.SameUser,
		AfterPrevious: wc.AfterPrevious,
		Within:        within,
	}, nil
}
