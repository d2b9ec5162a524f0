package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

func sampleResult() *cruise.Result {
	a := module.NewIdentity("src/a/index.js", module.KindLocal)
	b := module.NewIdentity("src/b/util.js", module.KindLocal)
	g := &depgraph.Graph{
		Nodes: []depgraph.Node{{Identity: a, Followed: true}, {Identity: b, Followed: true}},
		Edges: []depgraph.Edge{{From: a, To: b, DependencyTypes: []string{"es6", "local"}}},
		Stats: depgraph.GraphStats{TotalNodes: 2, TotalEdges: 1},
	}
	violations := []rules.Violation{
		{Rule: "no-cross-folder", Severity: rules.SeverityError, From: a.Path, To: b.Path, Comment: "keep folders apart"},
		{Rule: "quiet", Severity: rules.SeverityIgnore, From: a.Path, To: b.Path},
		{Rule: "heads-up", Severity: rules.SeverityWarn, From: a.Path, To: b.Path},
	}
	summary := rules.Summarize(violations)
	summary.Modules, summary.Edges = 2, 1
	return &cruise.Result{
		RunID:      "run-1",
		Graph:      g,
		Violations: violations,
		Warnings:   []depgraph.Warning{{From: a.Path, Specifier: "./gone", Message: "no such file"}},
		Summary:    summary,
	}
}

func TestForName(t *testing.T) {
	for _, name := range []string{"text", "JSON", "dot", "mermaid"} {
		r, err := ForName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, r)
	}
	_, err := ForName("html")
	assert.ErrorContains(t, err, "unknown output type")
	assert.Equal(t, []string{"dot", "json", "mermaid", "text"}, Names())
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TextReporter{ShowWarnings: true}.Report(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "error no-cross-folder: src/a/index.js → src/b/util.js")
	assert.Contains(t, out, "warn  heads-up: src/a/index.js → src/b/util.js")
	assert.Contains(t, out, "keep folders apart")
	assert.NotContains(t, out, "quiet", "ignored violations are not listed")
	assert.Contains(t, out, `unresolved "./gone" in src/a/index.js`)
	assert.Contains(t, out, "✘ dependency errors found 2 violations (1 errors, 1 warnings, 0 info) in 2 modules, 1 dependencies")
	assert.NotContains(t, out, "\x1b[", "no escape codes when not writing to a terminal")
}

func TestTextReporter_Passed(t *testing.T) {
	res := &cruise.Result{Summary: rules.Summary{Modules: 3, Edges: 2}}
	var buf bytes.Buffer
	require.NoError(t, TextReporter{}.Report(&buf, res))
	assert.True(t, strings.HasPrefix(buf.String(), "✔ no dependency errors"))
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONReporter{}.Report(&buf, sampleResult()))

	var doc struct {
		RunID      string            `json:"runId"`
		Violations []rules.Violation `json:"violations"`
		Summary    rules.Summary     `json:"summary"`
		Stats      struct {
			TotalNodes int `json:"total_nodes"`
		} `json:"stats"`
		Passed bool `json:"passed"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.Len(t, doc.Violations, 3)
	assert.Equal(t, rules.SeverityError, doc.Violations[0].Severity)
	assert.Equal(t, 1, doc.Summary.Errors)
	assert.Equal(t, 2, doc.Stats.TotalNodes)
	assert.False(t, doc.Passed)
}

func TestGraphReporters(t *testing.T) {
	var buf bytes.Buffer
	dot, _ := ForName("dot")
	require.NoError(t, dot.Report(&buf, sampleResult()))
	assert.Contains(t, buf.String(), `"src/a/index.js" -> "src/b/util.js" [style=solid color="#f85149"];`)

	buf.Reset()
	mermaid, _ := ForName("mermaid")
	require.NoError(t, mermaid.Report(&buf, sampleResult()))
	assert.Contains(t, buf.String(), "linkStyle 0 stroke:#f85149")
}
