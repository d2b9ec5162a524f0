package depgraph

import (
	"sort"

	graphlib "github.com/dominikbraun/graph"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

func nodeKey(id module.Identity) string {
	return id.Kind.String() + ":" + id.Path
}

// markCircular flags edges whose endpoints share a strongly connected
// component and records the components as cycles.
func (g *Graph) markCircular() {
	dg := graphlib.New(graphlib.StringHash, graphlib.Directed())
	for _, n := range g.Nodes {
		_ = dg.AddVertex(nodeKey(n.Identity))
	}
	selfLoops := make(map[string]bool)
	for _, e := range g.Edges {
		if e.From == e.To {
			selfLoops[nodeKey(e.From)] = true
			continue
		}
		_ = dg.AddEdge(nodeKey(e.From), nodeKey(e.To))
	}

	sccs, err := graphlib.StronglyConnectedComponents(dg)
	if err != nil {
		return
	}
	component := make(map[string]int)
	var cycles [][]string
	for i, scc := range sccs {
		if len(scc) < 2 && !selfLoops[scc[0]] {
			continue
		}
		for _, k := range scc {
			component[k] = i + 1
		}
		cycles = append(cycles, sccPaths(g, scc))
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		c := component[nodeKey(e.From)]
		e.Circular = e.From == e.To || (c != 0 && c == component[nodeKey(e.To)])
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	g.Stats.Cycles = cycles
}

func sccPaths(g *Graph, keys []string) []string {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var paths []string
	for _, n := range g.Nodes {
		if want[nodeKey(n.Identity)] {
			paths = append(paths, n.Identity.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// computeStats computes graph metrics
func (g *Graph) computeStats() {
	cycles := g.Stats.Cycles
	g.Stats = GraphStats{
		TotalNodes: len(g.Nodes),
		TotalEdges: len(g.Edges),
		Cycles:     cycles,
		FanOut:     make(map[string]int),
	}

	fanIn := make(map[string]int)
	for _, n := range g.Nodes {
		switch n.Identity.Kind {
		case module.KindLocal:
			g.Stats.LocalCount++
		case module.KindExternal:
			g.Stats.ExternalCount++
		case module.KindCore:
			g.Stats.CoreCount++
		}
		if n.Stub {
			g.Stats.StubCount++
		}
	}

	for _, e := range g.Edges {
		g.Stats.FanOut[e.From.Path]++
		fanIn[e.To.Path]++
	}

	// iterate nodes, not the map, so the hotspot is stable on ties
	for _, n := range g.Nodes {
		if count := g.Stats.FanOut[n.Identity.Path]; count > g.Stats.MaxFanOut {
			g.Stats.MaxFanOut = count
			g.Stats.HotspotNode = n.Identity.Path
		}
	}
	for _, count := range fanIn {
		if count > g.Stats.MaxFanIn {
			g.Stats.MaxFanIn = count
		}
	}

	g.Stats.ConnectedComponents = g.countComponents()
}

// countComponents counts weakly connected components via union-find
func (g *Graph) countComponents() int {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] == "" {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		fa, fb := find(a), find(b)
		if fa != fb {
			parent[fa] = fb
		}
	}

	for _, n := range g.Nodes {
		find(nodeKey(n.Identity))
	}
	for _, e := range g.Edges {
		union(nodeKey(e.From), nodeKey(e.To))
	}

	roots := make(map[string]bool)
	for _, n := range g.Nodes {
		roots[find(nodeKey(n.Identity))] = true
	}
	return len(roots)
}
