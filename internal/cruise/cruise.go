// Package cruise runs one lint pass: compile rules, resolve and build the
// dependency graph, evaluate the rules against its edges.
package cruise

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/observability"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/resolve"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

// Input is everything one run needs.
type Input struct {
	Root    string
	Entries []string // empty means every file in Raw
	Raw     depgraph.RawDependencies

	Forbidden       []rules.Rule
	Allowed         []rules.Rule
	AllowedSeverity string

	Filters          depgraph.FilterConfig
	ModuleSystems    []string
	Workers          int
	MaxModules       int
	FailOnUnresolved bool

	Resolve      resolve.Config
	TSConfigFile string             // relative to Root; empty to skip
	FileSystem   resolve.FileSystem // nil uses the local disk

	// CollapsePattern folds matching modules into one node in graph
	// exports; empty keeps every module.
	CollapsePattern string

	Logger *slog.Logger
}

// Result is the outcome of a run.
type Result struct {
	RunID      string             `json:"runId"`
	Graph      *depgraph.Graph    `json:"-"`
	Violations []rules.Violation  `json:"violations"`
	Warnings   []depgraph.Warning `json:"warnings,omitempty"`
	Summary    rules.Summary      `json:"summary"`
	Rules      *rules.RuleSet     `json:"-"`

	collapse *regexp.Regexp
}

// ExportGraph returns the graph and violated edge set to draw, collapsed
// when the run was configured with a collapse pattern.
func (r *Result) ExportGraph() (*depgraph.Graph, map[depgraph.EdgeKey]bool) {
	return depgraph.Collapse(r.Graph, r.Violated(), r.collapse)
}

// Violated returns the set of edges with at least one non ignored violation.
func (r *Result) Violated() map[depgraph.EdgeKey]bool {
	out := make(map[depgraph.EdgeKey]bool)
	for _, v := range r.Violations {
		if v.Severity != rules.SeverityIgnore {
			out[v.Key()] = true
		}
	}
	return out
}

// Run executes one lint pass. Rule and option errors are reported before any
// file is resolved.
func Run(ctx context.Context, in Input) (*Result, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	ruleSet, err := rules.Compile(in.Forbidden, in.Allowed, in.AllowedSeverity)
	if err != nil {
		return nil, err
	}
	filters, err := depgraph.NewFilters(in.Filters)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	for _, s := range in.ModuleSystems {
		if !module.KnownModuleSystem(s) {
			return nil, fmt.Errorf("options.moduleSystems: unknown module system %q", s)
		}
	}
	var collapse *regexp.Regexp
	if in.CollapsePattern != "" {
		collapse, err = regexp.Compile(in.CollapsePattern)
		if err != nil {
			return nil, fmt.Errorf("reporterOptions.dot.collapsePattern: %w", err)
		}
	}

	entries := in.Entries
	if len(entries) == 0 {
		entries = sortedFiles(in.Raw)
	}

	ctx, runSpan := observability.StartRunSpan(ctx, runID, len(entries))
	defer runSpan.End()

	resolver, err := newResolver(ctx, in, logger)
	if err != nil {
		observability.RecordError(runSpan, err)
		return nil, err
	}

	g, err := build(ctx, entries, in, resolver, filters, logger)
	if err != nil {
		observability.RecordError(runSpan, err)
		return nil, err
	}

	_, evalSpan := observability.StartEvaluateSpan(ctx, len(ruleSet.Forbidden()), len(ruleSet.Allowed()))
	violations := rules.Evaluate(ruleSet, g)
	summary := rules.Summarize(violations)
	summary.Modules = len(g.Nodes)
	summary.Edges = len(g.Edges)
	observability.RecordEvaluateResult(evalSpan, summary.Errors, summary.Warnings, summary.Infos, summary.Ignored)
	evalSpan.End()

	logger.Info("cruise finished",
		"modules", summary.Modules,
		"dependencies", summary.Edges,
		"errors", summary.Errors,
		"warnings", summary.Warnings,
		"unresolved", len(g.Warnings),
	)

	return &Result{
		RunID:      runID,
		Graph:      g,
		Violations: violations,
		Warnings:   g.Warnings,
		Summary:    summary,
		Rules:      ruleSet,
		collapse:   collapse,
	}, nil
}

func newResolver(ctx context.Context, in Input, logger *slog.Logger) (*resolve.Resolver, error) {
	fs := in.FileSystem
	if fs == nil {
		fs = resolve.NewFileSystem()
	}
	root, err := filepath.Abs(in.Root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	cfg := in.Resolve
	if in.TSConfigFile != "" {
		ts, err := resolve.LoadTSConfig(ctx, fs, root, in.TSConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = cfg.WithTSConfig(ts)
		logger.Debug("tsconfig loaded", "file", in.TSConfigFile, "paths", len(ts.Paths), "base_url", ts.BaseURL)
	}
	r, err := resolve.New(root, cfg, resolve.WithFileSystem(fs), resolve.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}
	return r, nil
}

func build(ctx context.Context, entries []string, in Input, r depgraph.Resolver, filters *depgraph.Filters, logger *slog.Logger) (*depgraph.Graph, error) {
	ctx, span := observability.StartBuildSpan(ctx, in.Workers)
	defer span.End()

	g, err := depgraph.Build(ctx, entries, in.Raw, r, depgraph.BuildOptions{
		Filters:          filters,
		ModuleSystems:    in.ModuleSystems,
		Workers:          in.Workers,
		MaxModules:       in.MaxModules,
		FailOnUnresolved: in.FailOnUnresolved,
		Logger:           logger,
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("build graph: %w", err)
	}
	observability.RecordBuildResult(span, len(g.Nodes), len(g.Edges), len(g.Warnings), len(g.Stats.Cycles))
	return g, nil
}

func sortedFiles(raw depgraph.RawDependencies) []string {
	files := make([]string, 0, len(raw))
	for f := range raw {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
