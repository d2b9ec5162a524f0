package rules

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

// NotInAllowed names the violation raised for edges no allowed rule covers.
const NotInAllowed = "not-in-allowed"

type compiledRule struct {
	rule     Rule
	severity Severity
	from     *criteria
	to       *criteria
}

// RuleSet is the compiled, immutable form of a rule configuration.
type RuleSet struct {
	forbidden       []compiledRule
	allowed         []compiledRule
	allowedSeverity Severity
	cache           *patternCache
}

// Forbidden returns the forbidden rules in declaration order.
func (rs *RuleSet) Forbidden() []Rule { return rulesOf(rs.forbidden) }

// Allowed returns the allowed rules in declaration order.
func (rs *RuleSet) Allowed() []Rule { return rulesOf(rs.allowed) }

// AllowedSeverity is the severity of not-in-allowed violations.
func (rs *RuleSet) AllowedSeverity() Severity { return rs.allowedSeverity }

func rulesOf(crs []compiledRule) []Rule {
	out := make([]Rule, len(crs))
	for i, cr := range crs {
		out[i] = cr.rule
		out[i].Severity = string(cr.severity)
	}
	return out
}

// Compile validates and compiles every rule. Nothing is compiled partially:
// the first invalid rule aborts with a *ConfigError.
func Compile(forbidden, allowed []Rule, allowedSeverity string) (*RuleSet, error) {
	rs := &RuleSet{cache: newPatternCache()}

	sev, err := ParseSeverity(allowedSeverity)
	if err != nil {
		return nil, &ConfigError{Rule: "allowed", Field: "allowedSeverity", Err: err}
	}
	rs.allowedSeverity = sev

	for i, r := range forbidden {
		cr, err := compileRule(r, fmt.Sprintf("forbidden[%d]", i))
		if err != nil {
			return nil, err
		}
		rs.forbidden = append(rs.forbidden, cr)
	}
	for i, r := range allowed {
		cr, err := compileRule(r, fmt.Sprintf("allowed[%d]", i))
		if err != nil {
			return nil, err
		}
		cr.severity = rs.allowedSeverity
		rs.allowed = append(rs.allowed, cr)
	}
	return rs, nil
}

func compileRule(r Rule, position string) (compiledRule, error) {
	label := r.Name
	if label == "" {
		label = position
	}
	fail := func(field string, err error) (compiledRule, error) {
		return compiledRule{}, &ConfigError{Rule: label, Field: field, Err: err}
	}

	if r.Name == "" && r.From.IsZero() && r.To.IsZero() {
		return fail("", errors.New("rule has no name and no criteria"))
	}
	sev, err := ParseSeverity(r.Severity)
	if err != nil {
		return fail("severity", err)
	}

	if hasBackRef(r.From.Path) || hasBackRef(r.From.PathNot) {
		return fail("from", errors.New("back references are only allowed in to.path and to.pathNot"))
	}
	from, err := compileCriteria(r.From, false)
	if err != nil {
		return fail("from", err)
	}
	to, err := compileCriteria(r.To, true)
	if err != nil {
		return fail("to", err)
	}
	return compiledRule{rule: r, severity: sev, from: from, to: to}, nil
}

func compileCriteria(ec EndpointCriteria, templated bool) (*criteria, error) {
	c := &criteria{circular: ec.Circular, dynamic: ec.Dynamic}
	var err error
	if templated {
		if c.pathT, err = compileTemplate(ec.Path); err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		if c.pathNotT, err = compileTemplate(ec.PathNot); err != nil {
			return nil, fmt.Errorf("pathNot: %w", err)
		}
	} else {
		if c.path, err = depgraph.CompileAlternatives(ec.Path); err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		if c.pathNot, err = depgraph.CompileAlternatives(ec.PathNot); err != nil {
			return nil, fmt.Errorf("pathNot: %w", err)
		}
	}
	if c.types, err = typeSet(ec.DependencyTypes); err != nil {
		return nil, fmt.Errorf("dependencyTypes: %w", err)
	}
	if c.typesNot, err = typeSet(ec.DependencyTypesNot); err != nil {
		return nil, fmt.Errorf("dependencyTypesNot: %w", err)
	}
	return c, nil
}

// compileTemplate joins patterns into one alternation. Patterns with back
// references are syntax checked with placeholders and compiled per edge.
func compileTemplate(patterns []string) (*template, error) {
	source := depgraph.JoinAlternatives(patterns)
	if source == "" {
		return nil, nil
	}
	if !backRef.MatchString(source) {
		re, err := regexp.Compile(source)
		if err != nil {
			return nil, err
		}
		return &template{source: source, static: re}, nil
	}
	if _, err := regexp.Compile(placeholder(source)); err != nil {
		return nil, err
	}
	return &template{source: source}, nil
}

func typeSet(types []string) (map[string]bool, error) {
	if len(types) == 0 {
		return nil, nil
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		if !module.IsKnownType(t) {
			return nil, fmt.Errorf("unknown dependency type %q", t)
		}
		set[t] = true
	}
	return set, nil
}
