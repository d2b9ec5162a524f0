package rules

import (
	"fmt"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
)

// EdgeSource supplies edges in discovery order.
type EdgeSource interface {
	AllEdges() []depgraph.Edge
}

// Violation is one (rule, edge) pair that broke a rule.
type Violation struct {
	Rule            string   `json:"rule"`
	Severity        Severity `json:"severity"`
	From            string   `json:"from"`
	To              string   `json:"to"`
	DependencyTypes []string `json:"dependencyTypes"`
	Captures        []string `json:"captures,omitempty"`
	Comment         string   `json:"comment,omitempty"`
	Circular        bool     `json:"circular,omitempty"`
}

// Key returns the edge the violation was raised on.
func (v Violation) Key() depgraph.EdgeKey {
	return depgraph.EdgeKey{From: v.From, To: v.To}
}

// Evaluate checks every edge against every rule. Violations come out rule
// by rule in declaration order, and edge by edge in discovery order within
// a rule. not-in-allowed violations follow all forbidden ones.
func Evaluate(rs *RuleSet, edges EdgeSource) []Violation {
	all := edges.AllEdges()
	var out []Violation

	for _, cr := range rs.forbidden {
		for _, e := range all {
			caps, ok := cr.matches(e, rs.cache)
			if !ok {
				continue
			}
			out = append(out, newViolation(cr.rule.Name, cr.severity, cr.rule.Comment, e, caps.list()))
		}
	}

	if len(rs.allowed) == 0 {
		return out
	}
	for _, e := range all {
		if !rs.isAllowed(e) {
			out = append(out, newViolation(NotInAllowed, rs.allowedSeverity, "", e, nil))
		}
	}
	return out
}

func (cr compiledRule) matches(e depgraph.Edge, cache *patternCache) (captures, bool) {
	caps, ok := cr.from.matchFrom(e)
	if !ok {
		return caps, false
	}
	return caps, cr.to.matchTo(e, caps, cache)
}

func (rs *RuleSet) isAllowed(e depgraph.Edge) bool {
	for _, cr := range rs.allowed {
		if _, ok := cr.matches(e, rs.cache); ok {
			return true
		}
	}
	return false
}

func newViolation(rule string, sev Severity, comment string, e depgraph.Edge, caps []string) Violation {
	return Violation{
		Rule:            rule,
		Severity:        sev,
		From:            e.From.Path,
		To:              e.To.Path,
		DependencyTypes: append([]string(nil), e.DependencyTypes...),
		Captures:        caps,
		Comment:         comment,
		Circular:        e.Circular,
	}
}

// Summary counts violations by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
	Ignored  int `json:"ignored"`
	Modules  int `json:"modules"`
	Edges    int `json:"edges"`
}

// Summarize counts violations. ignore-level violations are counted apart
// and never affect Passed.
func Summarize(violations []Violation) Summary {
	var s Summary
	for _, v := range violations {
		switch v.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarn:
			s.Warnings++
		case SeverityInfo:
			s.Infos++
		default:
			s.Ignored++
		}
	}
	return s
}

// Total is the number of violations that were not ignored.
func (s Summary) Total() int { return s.Errors + s.Warnings + s.Infos }

// Passed reports whether no error-level violation was found.
func (s Summary) Passed() bool { return s.Errors == 0 }

func (s Summary) String() string {
	return fmt.Sprintf("%d violations (%d errors, %d warnings, %d info) in %d modules, %d dependencies",
		s.Total(), s.Errors, s.Warnings, s.Infos, s.Modules, s.Edges)
}
