package depgraph

import (
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

// Node represents a module in the dependency graph
type Node struct {
	Identity module.Identity `json:"identity"`
	Followed bool            `json:"followed"`       // its own dependencies were expanded
	Stub     bool            `json:"stub,omitempty"` // matched doNotFollow
}

// Edge is a directed dependency from importer to imported module.
// Raw dependencies between the same pair collapse into one edge.
type Edge struct {
	From            module.Identity `json:"from"`
	To              module.Identity `json:"to"`
	DependencyTypes []string        `json:"dependencyTypes"`
	Dynamic         bool            `json:"dynamic,omitempty"`
	Specifiers      []string        `json:"specifiers"`
	Circular        bool            `json:"circular,omitempty"` // From and To share a cycle
}

// EdgeKey identifies an edge by its endpoint paths.
type EdgeKey struct {
	From string
	To   string
}

// Key returns the edge's EdgeKey.
func (e Edge) Key() EdgeKey {
	return EdgeKey{From: e.From.Path, To: e.To.Path}
}

// Warning records a specifier that was skipped during the build.
type Warning struct {
	From      string `json:"from"`
	Specifier string `json:"specifier"`
	Message   string `json:"message"`
}

// Graph is the module dependency graph of one run. Nodes and edges are kept
// in discovery order.
type Graph struct {
	Nodes    []Node     `json:"nodes"`
	Edges    []Edge     `json:"edges"`
	Warnings []Warning  `json:"warnings,omitempty"`
	Stats    GraphStats `json:"stats"`

	nodeIndex map[module.Identity]int
	edgeIndex map[[2]module.Identity]int
}

// GraphStats holds computed metrics about the graph
type GraphStats struct {
	TotalNodes          int            `json:"total_nodes"`
	TotalEdges          int            `json:"total_edges"`
	LocalCount          int            `json:"local_count"`
	ExternalCount       int            `json:"external_count"`
	CoreCount           int            `json:"core_count"`
	StubCount           int            `json:"stub_count"`
	MaxFanOut           int            `json:"max_fan_out"`  // most outgoing edges
	MaxFanIn            int            `json:"max_fan_in"`   // most incoming edges
	HotspotNode         string         `json:"hotspot_node"` // node with most outgoing edges
	ConnectedComponents int            `json:"connected_components"`
	Cycles              [][]string     `json:"cycles,omitempty"`
	FanOut              map[string]int `json:"fan_out"` // per-module outgoing edge count
}

func newGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[module.Identity]int),
		edgeIndex: make(map[[2]module.Identity]int),
	}
}

// Node looks up a node by identity.
func (g *Graph) Node(id module.Identity) (Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Outgoing returns the edges leaving id, in discovery order.
func (g *Graph) Outgoing(id module.Identity) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// AllEdges returns the edges in discovery order.
func (g *Graph) AllEdges() []Edge {
	return g.Edges
}

// addNode keeps the first node recorded for an identity.
func (g *Graph) addNode(n Node) {
	if _, ok := g.nodeIndex[n.Identity]; ok {
		return
	}
	g.nodeIndex[n.Identity] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

func (g *Graph) markFollowed(id module.Identity) {
	if i, ok := g.nodeIndex[id]; ok {
		g.Nodes[i].Followed = true
	}
}

func (g *Graph) addEdge(e Edge) {
	key := [2]module.Identity{e.From, e.To}
	i, ok := g.edgeIndex[key]
	if !ok {
		e.DependencyTypes = module.MergeTypes(e.DependencyTypes, nil)
		g.edgeIndex[key] = len(g.Edges)
		g.Edges = append(g.Edges, e)
		return
	}
	existing := &g.Edges[i]
	existing.DependencyTypes = module.MergeTypes(existing.DependencyTypes, e.DependencyTypes)
	existing.Dynamic = existing.Dynamic || e.Dynamic
	for _, s := range e.Specifiers {
		if !contains(existing.Specifiers, s) {
			existing.Specifiers = append(existing.Specifiers, s)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
