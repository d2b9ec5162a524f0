package depgraph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

// ExportDOT generates a Graphviz DOT representation of the graph. Edges in
// violated are drawn in red.
func ExportDOT(g *Graph, violated map[EdgeKey]bool) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	// Group nodes by top level folder using subgraphs
	clusters := groupNodes(g)
	for _, name := range sortedKeys(clusters) {
		b.WriteString(fmt.Sprintf("  subgraph cluster_%s {\n", sanitizeID(name)))
		b.WriteString(fmt.Sprintf("    label=%q;\n", name))
		b.WriteString("    style=dashed;\n")
		b.WriteString("    color=\"#58a6ff\";\n")
		for _, n := range clusters[name] {
			b.WriteString(fmt.Sprintf("    %q [label=%q shape=%s style=filled fillcolor=\"%s\"];\n",
				n.Identity.Path, n.Identity.Path, nodeShape(n), nodeColor(n.Identity.Kind)))
		}
		b.WriteString("  }\n\n")
	}

	for _, e := range g.Edges {
		color := edgeColor(e)
		if violated[e.Key()] {
			color = "#f85149"
		}
		b.WriteString(fmt.Sprintf("  %q -> %q [style=%s color=\"%s\"];\n",
			e.From.Path, e.To.Path, edgeStyle(e), color))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid diagram of the graph.
func ExportMermaid(g *Graph, violated map[EdgeKey]bool) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	clusters := groupNodes(g)
	for _, name := range sortedKeys(clusters) {
		b.WriteString(fmt.Sprintf("  subgraph %s[%q]\n", sanitizeID("c_"+name), name))
		for _, n := range clusters[name] {
			b.WriteString(fmt.Sprintf("    %s%s\n", sanitizeID(n.Identity.Path), mermaidNodeShape(n)))
		}
		b.WriteString("  end\n")
	}

	var red []int
	for i, e := range g.Edges {
		arrow := "-->"
		switch {
		case e.Dynamic:
			arrow = "-.->"
		case e.Circular:
			arrow = "==>"
		}
		if violated[e.Key()] {
			red = append(red, i)
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			sanitizeID(e.From.Path), arrow, sanitizeID(e.To.Path)))
	}
	for _, i := range red {
		b.WriteString(fmt.Sprintf("  linkStyle %d stroke:#f85149\n", i))
	}

	return b.String()
}

// ExportJSON serializes the graph to JSON.
func ExportJSON(g *Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// FormatStats returns a human-readable summary of graph statistics.
func FormatStats(g *Graph) string {
	var b strings.Builder
	b.WriteString("Dependency Graph Statistics\n")
	b.WriteString("==========================\n\n")
	b.WriteString(fmt.Sprintf("Modules:     %d total\n", g.Stats.TotalNodes))
	b.WriteString(fmt.Sprintf("  Local:     %d\n", g.Stats.LocalCount))
	b.WriteString(fmt.Sprintf("  External:  %d\n", g.Stats.ExternalCount))
	b.WriteString(fmt.Sprintf("  Core:      %d\n", g.Stats.CoreCount))
	b.WriteString(fmt.Sprintf("  Stubs:     %d\n", g.Stats.StubCount))
	b.WriteString(fmt.Sprintf("Edges:       %d total\n", g.Stats.TotalEdges))
	b.WriteString(fmt.Sprintf("Max Fan-Out: %d (%s)\n", g.Stats.MaxFanOut, g.Stats.HotspotNode))
	b.WriteString(fmt.Sprintf("Max Fan-In:  %d\n", g.Stats.MaxFanIn))
	b.WriteString(fmt.Sprintf("Components:  %d\n", g.Stats.ConnectedComponents))

	if len(g.Stats.Cycles) > 0 {
		b.WriteString(fmt.Sprintf("\nCycles: %d\n", len(g.Stats.Cycles)))
		for i, cycle := range g.Stats.Cycles {
			b.WriteString(fmt.Sprintf("  %d: %s\n", i+1, strings.Join(cycle, ", ")))
		}
	}

	if len(g.Warnings) > 0 {
		b.WriteString(fmt.Sprintf("\nUnresolved: %d\n", len(g.Warnings)))
		for _, w := range g.Warnings {
			b.WriteString(fmt.Sprintf("  %s: %s\n", w.From, w.Specifier))
		}
	}

	return b.String()
}

// clusterName is the first path segment of a local module.
func clusterName(id module.Identity) string {
	switch id.Kind {
	case module.KindCore:
		return "core"
	case module.KindExternal:
		return "node_modules"
	}
	if i := strings.IndexByte(id.Path, '/'); i > 0 {
		return id.Path[:i]
	}
	return "."
}

func groupNodes(g *Graph) map[string][]Node {
	clusters := make(map[string][]Node)
	for _, n := range g.Nodes {
		name := clusterName(n.Identity)
		clusters[name] = append(clusters[name], n)
	}
	return clusters
}

func sortedKeys(m map[string][]Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func nodeShape(n Node) string {
	if n.Stub {
		return "folder"
	}
	switch n.Identity.Kind {
	case module.KindExternal:
		return "box3d"
	case module.KindCore:
		return "diamond"
	default:
		return "box"
	}
}

func nodeColor(kind module.Kind) string {
	switch kind {
	case module.KindLocal:
		return "#238636"
	case module.KindExternal:
		return "#1f6feb"
	case module.KindCore:
		return "#d29922"
	default:
		return "#30363d"
	}
}

func edgeStyle(e Edge) string {
	if e.Dynamic {
		return "dashed"
	}
	return "solid"
}

func edgeColor(e Edge) string {
	if e.Circular {
		return "#8957e5"
	}
	return "#8b949e"
}

func mermaidNodeShape(n Node) string {
	switch n.Identity.Kind {
	case module.KindExternal:
		return fmt.Sprintf("[[%q]]", n.Identity.Path)
	case module.KindCore:
		return fmt.Sprintf("{%q}", n.Identity.Path)
	default:
		return fmt.Sprintf("[%q]", n.Identity.Path)
	}
}
