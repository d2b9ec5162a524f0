package depgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

// DefaultMaxModules caps the number of expanded modules in one build.
const DefaultMaxModules = 100000

// ErrCycleOverflow is matched by CycleOverflowError.
var ErrCycleOverflow = errors.New("module expansion limit exceeded")

// CycleOverflowError aborts a build that keeps discovering new modules past
// the configured limit. Real cycles never cause it; the visited set stops
// them. Hitting it points at a resolver that produces unstable identities.
type CycleOverflowError struct {
	Limit int
	Last  string
}

func (e *CycleOverflowError) Error() string {
	return fmt.Sprintf("expanded more than %d modules (last: %s)", e.Limit, e.Last)
}

func (e *CycleOverflowError) Unwrap() error { return ErrCycleOverflow }

// Resolver maps a specifier found in fromFile to a module.
type Resolver interface {
	Resolve(ctx context.Context, specifier, fromFile string) (module.Resolved, error)
}

// RawDependencies holds the parser output: project relative file path to the
// dependencies declared in that file, in source order.
type RawDependencies map[string][]module.RawDependency

// BuildOptions tunes Build.
type BuildOptions struct {
	Filters          *Filters
	ModuleSystems    []string // empty means all
	Workers          int
	MaxModules       int
	FailOnUnresolved bool
	Logger           *slog.Logger
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.MaxModules <= 0 {
		o.MaxModules = DefaultMaxModules
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// visitedSet is the insert-if-absent set guarding module expansion.
type visitedSet struct {
	mu   sync.Mutex
	seen map[module.Identity]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[module.Identity]struct{})}
}

// Add inserts id and reports whether it was absent.
func (s *visitedSet) Add(id module.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

func (s *visitedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type resolvedDep struct {
	raw      module.RawDependency
	resolved module.Resolved
}

type fileResult struct {
	deps     []resolvedDep
	warnings []Warning
}

// Build expands the graph breadth first from entries. Each level's files are
// resolved concurrently and merged in level order, so the node and edge
// order of the result does not depend on scheduling.
func Build(ctx context.Context, entries []string, raw RawDependencies, resolver Resolver, opts BuildOptions) (*Graph, error) {
	opts = opts.withDefaults()
	systems := make(map[string]bool, len(opts.ModuleSystems))
	for _, s := range opts.ModuleSystems {
		systems[s] = true
	}

	g := newGraph()
	visited := newVisitedSet()

	var frontier []module.Identity
	for _, entry := range entries {
		id := module.NewIdentity(entry, module.KindLocal)
		if !opts.Filters.Admits(id) {
			opts.Logger.Debug("entry filtered out", "path", id.Path)
			continue
		}
		if !visited.Add(id) {
			continue
		}
		stub := opts.Filters.Stubs(id, nil)
		g.addNode(Node{Identity: id, Stub: stub})
		if !stub {
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		results := make([]fileResult, len(frontier))
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(opts.Workers)
		for i, id := range frontier {
			eg.Go(func() error {
				res, err := resolveFile(egCtx, id, raw[id.Path], resolver, systems, opts)
				results[i] = res
				return err
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		var next []module.Identity
		for i, from := range frontier {
			g.markFollowed(from)
			g.Warnings = append(g.Warnings, results[i].warnings...)
			for _, d := range results[i].deps {
				to := d.resolved.Identity
				if !opts.Filters.Admits(to) {
					continue
				}
				types := edgeTypes(d)
				// The edge that first reaches a module settles whether it is
				// a stub; later edges only add to the edge list.
				first := visited.Add(to)
				if first {
					g.addNode(Node{Identity: to, Stub: opts.Filters.Stubs(to, types)})
				}
				g.addEdge(Edge{
					From:            from,
					To:              to,
					DependencyTypes: types,
					Dynamic:         d.raw.Dynamic,
					Specifiers:      []string{d.raw.Specifier},
				})
				if first && opts.Filters.Follows(to, types) {
					if visited.Len() > opts.MaxModules {
						return nil, &CycleOverflowError{Limit: opts.MaxModules, Last: to.Path}
					}
					next = append(next, to)
				}
			}
		}
		frontier = next
	}

	g.markCircular()
	g.computeStats()
	opts.Logger.Debug("dependency graph built",
		"nodes", len(g.Nodes), "edges", len(g.Edges), "warnings", len(g.Warnings))
	return g, nil
}

func resolveFile(ctx context.Context, from module.Identity, deps []module.RawDependency, resolver Resolver, systems map[string]bool, opts BuildOptions) (fileResult, error) {
	var res fileResult
	for _, raw := range deps {
		if len(systems) > 0 && !systems[raw.ModuleSystem] {
			continue
		}
		resolved, err := resolver.Resolve(ctx, raw.Specifier, from.Path)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if opts.FailOnUnresolved {
				return res, fmt.Errorf("resolving dependencies of %s: %w", from.Path, err)
			}
			opts.Logger.Debug("skipping unresolved dependency",
				"from", from.Path, "specifier", raw.Specifier, "error", err)
			res.warnings = append(res.warnings, Warning{
				From:      from.Path,
				Specifier: raw.Specifier,
				Message:   err.Error(),
			})
			continue
		}
		res.deps = append(res.deps, resolvedDep{raw: raw, resolved: resolved})
	}
	return res, nil
}

func edgeTypes(d resolvedDep) []string {
	extra := []string{d.raw.ModuleSystem}
	if d.raw.Dynamic {
		extra = append(extra, module.TypeDynamicImport)
	}
	return module.MergeTypes(d.resolved.DependencyTypes, extra)
}
