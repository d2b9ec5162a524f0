package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

func TestBuildRows(t *testing.T) {
	a := module.NewIdentity("src/a/index.js", module.KindLocal)
	fs := module.NewIdentity("fs", module.KindCore)
	res := &cruise.Result{
		RunID: "run-42",
		Graph: &depgraph.Graph{
			Nodes: []depgraph.Node{{Identity: a, Followed: true}, {Identity: fs}},
			Edges: []depgraph.Edge{{From: a, To: fs, DependencyTypes: []string{"core"}, Specifiers: []string{"fs"}}},
		},
		Violations: []rules.Violation{{
			Rule: "no-core", Severity: rules.SeverityError, From: a.Path, To: fs.Path,
			DependencyTypes: []string{"core"}, Captures: []string{"a"},
		}},
	}

	rows := BuildRows(res)
	assert.Equal(t, "run-42", rows.RunID)
	require.Len(t, rows.Modules, 2)
	assert.Equal(t, map[string]any{"path": "src/a/index.js", "kind": "local", "followed": true, "stub": false}, rows.Modules[0])
	assert.Equal(t, "core", rows.Modules[1]["kind"])

	require.Len(t, rows.Edges, 1)
	assert.Equal(t, []any{"core"}, rows.Edges[0]["types"])
	assert.Equal(t, []any{"fs"}, rows.Edges[0]["specifiers"])
	assert.Equal(t, "local", rows.Edges[0]["fromKind"])
	assert.Equal(t, "core", rows.Edges[0]["toKind"])

	require.Len(t, rows.Violations, 1)
	assert.Equal(t, int64(0), rows.Violations[0]["seq"])
	assert.Equal(t, "error", rows.Violations[0]["severity"])

	back := ViolationFromRecord(rows.Violations[0])
	assert.Equal(t, res.Violations[0], back)
}

func TestBuildRows_ModulesKeyedByPathAndKind(t *testing.T) {
	a := module.NewIdentity("src/a.js", module.KindLocal)
	coreFS := module.NewIdentity("fs", module.KindCore)
	localFS := module.NewIdentity("fs", module.KindLocal)
	res := &cruise.Result{
		RunID: "run-7",
		Graph: &depgraph.Graph{
			Nodes: []depgraph.Node{{Identity: a}, {Identity: coreFS}, {Identity: localFS}},
			Edges: []depgraph.Edge{{From: a, To: coreFS}, {From: localFS, To: a}},
		},
		Violations: []rules.Violation{{Rule: "r", Severity: rules.SeverityWarn, From: "fs", To: "src/a.js"}},
	}

	rows := BuildRows(res)
	require.Len(t, rows.Modules, 3)
	assert.Equal(t, "core", rows.Modules[1]["kind"])
	assert.Equal(t, "local", rows.Modules[2]["kind"])

	require.Len(t, rows.Edges, 2)
	assert.Equal(t, "core", rows.Edges[0]["toKind"])
	assert.Equal(t, "local", rows.Edges[1]["fromKind"])

	require.Len(t, rows.Violations, 1)
	assert.Equal(t, "local", rows.Violations[0]["fromKind"])
	assert.Equal(t, "local", rows.Violations[0]["toKind"])
}

func TestBuildRows_NoGraph(t *testing.T) {
	rows := BuildRows(&cruise.Result{RunID: "r"})
	assert.Empty(t, rows.Modules)
	assert.Empty(t, rows.Edges)
	assert.Empty(t, rows.Violations)
}

func TestViolationFromRecord_EmptyLists(t *testing.T) {
	v := ViolationFromRecord(map[string]any{"rule": "r", "severity": "warn", "captures": []any{}})
	assert.Nil(t, v.Captures)
	assert.Equal(t, rules.SeverityWarn, v.Severity)
}
