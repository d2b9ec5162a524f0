// Package graph persists cruise runs in a graph database.
package graph

import (
	"context"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

// Repository provides graph storage for cruise runs.
type Repository interface {
	// SaveRun persists the modules, dependencies and violations of one run.
	SaveRun(ctx context.Context, res *cruise.Result) error
	// RunViolations returns the violations recorded for a run.
	RunViolations(ctx context.Context, runID string) ([]rules.Violation, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// Rows are the UNWIND parameters for one run. Modules are shared across
// runs; edges and violations carry the run id.
type Rows struct {
	RunID      string
	Modules    []map[string]any
	Edges      []map[string]any
	Violations []map[string]any
}

// BuildRows flattens a result into driver friendly parameter maps. Only
// primitive values and []any are used so the values can be sent as is.
func BuildRows(res *cruise.Result) Rows {
	rows := Rows{RunID: res.RunID}
	if res.Graph != nil {
		for _, n := range res.Graph.Nodes {
			rows.Modules = append(rows.Modules, map[string]any{
				"path":     n.Identity.Path,
				"kind":     n.Identity.Kind.String(),
				"followed": n.Followed,
				"stub":     n.Stub,
			})
		}
		for _, e := range res.Graph.Edges {
			rows.Edges = append(rows.Edges, map[string]any{
				"from":       e.From.Path,
				"fromKind":   e.From.Kind.String(),
				"to":         e.To.Path,
				"toKind":     e.To.Kind.String(),
				"types":      toAny(e.DependencyTypes),
				"specifiers": toAny(e.Specifiers),
				"dynamic":    e.Dynamic,
				"circular":   e.Circular,
			})
		}
	}
	// Module nodes are keyed by path and kind; violations only carry paths,
	// so their kinds come from the edge they were raised on.
	kinds := make(map[depgraph.EdgeKey]depgraph.Edge)
	if res.Graph != nil {
		for _, e := range res.Graph.Edges {
			if _, ok := kinds[e.Key()]; !ok {
				kinds[e.Key()] = e
			}
		}
	}
	for i, v := range res.Violations {
		e := kinds[v.Key()]
		rows.Violations = append(rows.Violations, map[string]any{
			"seq":      int64(i),
			"rule":     v.Rule,
			"severity": string(v.Severity),
			"from":     v.From,
			"fromKind": e.From.Kind.String(),
			"to":       v.To,
			"toKind":   e.To.Kind.String(),
			"types":    toAny(v.DependencyTypes),
			"captures": toAny(v.Captures),
			"comment":  v.Comment,
			"circular": v.Circular,
		})
	}
	return rows
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// ViolationFromRecord is the inverse of the violation rows built above.
func ViolationFromRecord(m map[string]any) rules.Violation {
	str := func(k string) string { s, _ := m[k].(string); return s }
	strs := func(k string) []string {
		items, _ := m[k].([]any)
		if len(items) == 0 {
			return nil
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	circular, _ := m["circular"].(bool)
	return rules.Violation{
		Rule:            str("rule"),
		Severity:        rules.Severity(str("severity")),
		From:            str("from"),
		To:              str("to"),
		DependencyTypes: strs("types"),
		Captures:        strs("captures"),
		Comment:         str("comment"),
		Circular:        circular,
	}
}
