package depgraph

import (
	"regexp"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

// CollapsePath maps p to the first match of pattern, or p itself when the
// pattern does not match.
func CollapsePath(p string, pattern *regexp.Regexp) string {
	if pattern == nil {
		return p
	}
	if m := pattern.FindString(p); m != "" {
		return m
	}
	return p
}

// Collapse folds every module whose path matches pattern into one node named
// by the match, e.g. "node_modules/react/index.js" into "node_modules/react"
// for `node_modules/(?:@[^/]+/[^/]+|[^/]+)`. Edges between folded modules
// merge; edges that end up inside one folded node are dropped. The violated
// set is remapped to the collapsed edge keys. A nil pattern returns the
// inputs unchanged. g is not modified.
func Collapse(g *Graph, violated map[EdgeKey]bool, pattern *regexp.Regexp) (*Graph, map[EdgeKey]bool) {
	if pattern == nil {
		return g, violated
	}

	out := newGraph()
	out.Warnings = g.Warnings
	ids := make(map[string]module.Identity, len(g.Nodes))
	mapped := func(id module.Identity) module.Identity {
		if c, ok := ids[CollapsePath(id.Path, pattern)]; ok {
			return c
		}
		return id
	}

	for _, n := range g.Nodes {
		p := CollapsePath(n.Identity.Path, pattern)
		c, seen := ids[p]
		if !seen {
			c = module.Identity{Path: p, Kind: n.Identity.Kind}
			ids[p] = c
			out.addNode(Node{Identity: c, Followed: n.Followed, Stub: n.Stub})
			continue
		}
		// a folded node is a stub only when all of its members are
		merged := &out.Nodes[out.nodeIndex[c]]
		merged.Followed = merged.Followed || n.Followed
		merged.Stub = merged.Stub && n.Stub
	}

	for _, e := range g.Edges {
		from, to := mapped(e.From), mapped(e.To)
		if from == to && e.From != e.To {
			continue
		}
		out.addEdge(Edge{
			From:            from,
			To:              to,
			DependencyTypes: e.DependencyTypes,
			Dynamic:         e.Dynamic,
			Specifiers:      append([]string(nil), e.Specifiers...),
		})
		if e.Circular {
			out.Edges[out.edgeIndex[[2]module.Identity{from, to}]].Circular = true
		}
	}

	remapped := make(map[EdgeKey]bool, len(violated))
	for k, v := range violated {
		if !v {
			continue
		}
		from, to := CollapsePath(k.From, pattern), CollapsePath(k.To, pattern)
		if from == to && k.From != k.To {
			continue
		}
		remapped[EdgeKey{From: from, To: to}] = true
	}

	out.computeStats()
	return out, remapped
}
