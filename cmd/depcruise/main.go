package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/baseline"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/config"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/graph/neo4j"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/observability"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/report"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/resolve"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/tui"
)

// errLintFailed signals error severity violations; the report already
// explains them.
var errLintFailed = errors.New("dependency rules violated")

var version = "dev"

func main() {
	_ = godotenv.Load()

	err := newRootCmd().Execute()
	switch {
	case errors.Is(err, errLintFailed):
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

type commonFlags struct {
	configPath string
	depsPath   string
	root       string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", ".dependency-cruiser.yaml", "Rule and options config file")
	cmd.Flags().StringVar(&f.depsPath, "deps", "", "Raw dependencies file (YAML or JSON)")
	cmd.Flags().StringVar(&f.root, "root", ".", "Project root")
	_ = cmd.MarkFlagRequired("deps")
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "depcruise",
		Short:         "Validate a JavaScript/TypeScript dependency graph against rules",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newLintCmd(), newGraphCmd(), newRulesCmd(), newBaselineCmd())
	return rootCmd
}

func newLintCmd() *cobra.Command {
	var (
		flags        commonFlags
		outputType   string
		showWarnings bool
		store        bool
		interactive  bool
		ignoreKnown  string
	)
	cmd := &cobra.Command{
		Use:   "lint [entry...]",
		Short: "Build the dependency graph and report rule violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			reporter, err := report.ForName(outputType)
			if err != nil {
				return err
			}
			if tr, ok := reporter.(report.TextReporter); ok {
				tr.ShowWarnings = showWarnings
				reporter = tr
			}

			return withRun(cmd.Context(), flags, args, func(ctx context.Context, cfg *config.Config, res *cruise.Result, logger *slog.Logger) error {
				if ignoreKnown != "" {
					if err := applyBaseline(ignoreKnown, res, logger); err != nil {
						return err
					}
				}
				if interactive {
					if err := tui.Browse(res); err != nil {
						return err
					}
				} else if err := reporter.Report(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if store {
					if err := saveRun(ctx, cfg, res, logger); err != nil {
						return err
					}
				}
				if !res.Summary.Passed() {
					return errLintFailed
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outputType, "output-type", "T", "text", "Output type: "+strings.Join(report.Names(), ", "))
	cmd.Flags().BoolVar(&showWarnings, "show-warnings", false, "List unresolved specifiers in text output")
	cmd.Flags().BoolVar(&store, "store", false, "Persist the run to the configured Neo4j store")
	cmd.Flags().StringVar(&ignoreKnown, "ignore-known", "", "Ignore violations recorded in this baseline file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse violations in a terminal UI instead of printing a report")
	return cmd
}

func newGraphCmd() *cobra.Command {
	var (
		flags  commonFlags
		format string
		stats  bool
	)
	cmd := &cobra.Command{
		Use:   "graph [entry...]",
		Short: "Export the dependency graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRun(cmd.Context(), flags, args, func(_ context.Context, _ *config.Config, res *cruise.Result, _ *slog.Logger) error {
				var out string
				switch strings.ToLower(format) {
				case "dot":
					out = depgraph.ExportDOT(res.ExportGraph())
				case "mermaid":
					out = depgraph.ExportMermaid(res.ExportGraph())
				case "json":
					data, err := depgraph.ExportJSON(res.Graph)
					if err != nil {
						return err
					}
					out = string(data) + "\n"
				default:
					return fmt.Errorf("unknown graph format %q (want dot, mermaid or json)", format)
				}
				if _, err := io.WriteString(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				if stats {
					fmt.Fprint(cmd.ErrOrStderr(), depgraph.FormatStats(res.Graph))
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "dot", "Graph format: dot, mermaid, json")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print graph statistics to stderr")
	return cmd
}

func newBaselineCmd() *cobra.Command {
	var (
		flags   commonFlags
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "baseline [entry...]",
		Short: "Record the current violations as known",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRun(cmd.Context(), flags, args, func(_ context.Context, _ *config.Config, res *cruise.Result, _ *slog.Logger) error {
				known, err := baseline.Load(outPath)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), baseline.FormatDiff(baseline.Compare(known, res.Violations)))
				return baseline.Save(outPath, res.Violations)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", baseline.DefaultFile, "Baseline file to write")
	return cmd
}

func newRulesCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Compile the configured rules and list them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			rs, err := rules.Compile(cfg.Forbidden, cfg.Allowed, cfg.AllowedSeverity)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Forbidden:")
			for _, r := range rs.Forbidden() {
				fmt.Fprintf(w, "  %-6s %s\n", r.Severity, r.Name)
				if r.Comment != "" {
					fmt.Fprintf(w, "         %s\n", r.Comment)
				}
			}
			if allowed := rs.Allowed(); len(allowed) > 0 {
				fmt.Fprintf(w, "Allowed (%s when no rule matches):\n", rs.AllowedSeverity())
				for _, r := range allowed {
					fmt.Fprintf(w, "  %s\n", r.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", ".dependency-cruiser.yaml", "Rule and options config file")
	return cmd
}

type runFunc func(ctx context.Context, cfg *config.Config, res *cruise.Result, logger *slog.Logger) error

// withRun loads config and dependencies, sets up logging and tracing, runs
// one cruise and hands the result to fn.
func withRun(ctx context.Context, flags commonFlags, entries []string, fn runFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "depcruise",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	raw, err := config.LoadDependencies(flags.depsPath)
	if err != nil {
		return err
	}

	res, err := cruise.Run(ctx, inputFromConfig(cfg, flags.root, entries, raw, logger))
	if err != nil {
		return err
	}
	return fn(ctx, cfg, res, logger)
}

func inputFromConfig(cfg *config.Config, root string, entries []string, raw depgraph.RawDependencies, logger *slog.Logger) cruise.Input {
	opts := cfg.Options
	return cruise.Input{
		Root:             root,
		Entries:          entries,
		Raw:              raw,
		Forbidden:        cfg.Forbidden,
		Allowed:          cfg.Allowed,
		AllowedSeverity:  cfg.AllowedSeverity,
		Filters:          opts.FilterConfig(),
		ModuleSystems:    opts.ModuleSystems,
		Workers:          opts.Workers,
		MaxModules:       opts.MaxModules,
		FailOnUnresolved: opts.FailOnUnresolved,
		Resolve:          opts.ResolveConfig(),
		TSConfigFile:     opts.TSConfig.FileName,
		FileSystem:       resolve.NewFileSystem(),
		CollapsePattern:  cfg.ReporterOptions.Dot.CollapsePattern,
		Logger:           logger,
	}
}

// applyBaseline downgrades known violations to ignore and recomputes the
// summary.
func applyBaseline(path string, res *cruise.Result, logger *slog.Logger) error {
	known, err := baseline.Load(path)
	if err != nil {
		return err
	}
	d := baseline.Compare(known, res.Violations)
	logger.Info("baseline applied", "known", len(d.Known), "new", len(d.New), "fixed", len(d.Fixed))

	modules, edges := res.Summary.Modules, res.Summary.Edges
	res.Violations = baseline.Apply(known, res.Violations)
	res.Summary = rules.Summarize(res.Violations)
	res.Summary.Modules, res.Summary.Edges = modules, edges
	return nil
}

func saveRun(ctx context.Context, cfg *config.Config, res *cruise.Result, logger *slog.Logger) error {
	nc := cfg.Store.Neo4j
	if nc.URI == "" {
		return errors.New("--store needs store.neo4j.uri")
	}
	repo, err := neo4j.NewNeo4j(ctx, nc.URI, nc.Username, nc.Password)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	if err := repo.SaveRun(ctx, res); err != nil {
		return err
	}
	logger.Info("run stored", "backend", "neo4j", "violations", len(res.Violations))
	return nil
}

func newLogger(c config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
