package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestValidate_NoRules(t *testing.T) {
	cfg := &Config{}
	warnings := cfg.Validate()
	if !hasWarning(warnings, "no forbidden or allowed rules") {
		t.Errorf("expected warning about missing rules, got %v", warnings)
	}
	if len(warnings) != 1 {
		t.Errorf("expected exactly one warning, got %v", warnings)
	}
}

func TestValidate_UnevaluatedConfigFiles(t *testing.T) {
	cfg := &Config{Options: Options{
		WebpackConfig: FileOption{FileName: "webpack.config.js"},
		BabelConfig:   FileOption{FileName: ".babelrc"},
	}}
	warnings := cfg.Validate()
	if !hasWarning(warnings, "webpackConfig") {
		t.Error("expected warning about webpackConfig")
	}
	if !hasWarning(warnings, "babelConfig") {
		t.Error("expected warning about babelConfig")
	}
}

func TestValidate_SampleRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want bool // true = should warn
	}{
		{"zero", 0, false},
		{"half", 0.5, false},
		{"one", 1.0, false},
		{"negative", -0.1, true},
		{"too_high", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Tracing: TracingConfig{SampleRate: tt.rate}}
			if got := hasWarning(cfg.Validate(), "sampleRate"); got != tt.want {
				t.Errorf("sampleRate=%.1f: hasWarn=%v, want=%v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestValidate_Options(t *testing.T) {
	cfg := &Config{
		Options:         Options{Workers: -1, MaxModules: -5},
		ReporterOptions: ReporterOptions{Dot: DotOptions{CollapsePattern: "node_modules/("}},
		Log:             LogConfig{Level: "verbose"},
		Store:           StoreConfig{Neo4j: GraphConfig{URI: "bolt://localhost:7687"}},
	}
	warnings := cfg.Validate()
	for _, want := range []string{"options.workers", "options.maxModules", "collapsePattern", "log level 'verbose'", "username is empty"} {
		if !hasWarning(warnings, want) {
			t.Errorf("expected warning containing %q, got %v", want, warnings)
		}
	}
}

const sampleConfig = `
forbidden:
  - name: no-cross-folder
    severity: error
    comment: folders stay apart
    from:
      path: "^src/([^/]+)/"
    to:
      path: "^src/"
      pathNot: "^src/$1/"
  - name: no-circular
    to:
      circular: true
allowed:
  - to:
      dependencyTypes: [local, core]
allowedSeverity: info
options:
  doNotFollow: node_modules
  exclude:
    path: ["\\.spec\\.js$", "^fixtures/"]
  includeOnly: "^src/"
  moduleSystems: [es6, cjs]
  workers: 4
  tsConfig:
    fileName: tsconfig.json
  enhancedResolveOptions:
    extensions: [".js", ".ts"]
    alias:
      - name: "@app"
        path: src/app
reporterOptions:
  dot:
    collapsePattern: "node_modules/(?:@[^/]+/[^/]+|[^/]+)"
log:
  level: debug
`

func TestLoad(t *testing.T) {
	t.Setenv("DEPCRUISE_LOG_FORMAT", "json")
	cfg, err := Load(writeFile(t, ".dependency-cruiser.yaml", sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Forbidden) != 2 {
		t.Fatalf("forbidden rules = %d, want 2", len(cfg.Forbidden))
	}
	cross := cfg.Forbidden[0]
	if cross.Name != "no-cross-folder" || cross.Severity != "error" || cross.Comment != "folders stay apart" {
		t.Errorf("unexpected rule header: %+v", cross)
	}
	if len(cross.From.Path) != 1 || cross.From.Path[0] != "^src/([^/]+)/" {
		t.Errorf("from.path = %v", cross.From.Path)
	}
	if len(cross.To.PathNot) != 1 || cross.To.PathNot[0] != "^src/$1/" {
		t.Errorf("to.pathNot = %v", cross.To.PathNot)
	}
	circ := cfg.Forbidden[1].To.Circular
	if circ == nil || !*circ {
		t.Errorf("to.circular = %v, want true", circ)
	}

	if len(cfg.Allowed) != 1 || len(cfg.Allowed[0].To.DependencyTypes) != 2 {
		t.Errorf("allowed = %+v", cfg.Allowed)
	}
	if cfg.AllowedSeverity != "info" {
		t.Errorf("allowedSeverity = %q", cfg.AllowedSeverity)
	}

	f := cfg.Options.FilterConfig()
	if len(f.DoNotFollowPath) != 1 || f.DoNotFollowPath[0] != "node_modules" {
		t.Errorf("doNotFollow shorthand = %v", f.DoNotFollowPath)
	}
	if len(f.ExcludePath) != 2 {
		t.Errorf("exclude = %v", f.ExcludePath)
	}
	if len(f.IncludeOnly) != 1 || f.IncludeOnly[0] != "^src/" {
		t.Errorf("includeOnly = %v", f.IncludeOnly)
	}
	if _, err := depgraph.NewFilters(f); err != nil {
		t.Errorf("filters should compile: %v", err)
	}

	if cfg.Options.Workers != 4 {
		t.Errorf("workers = %d", cfg.Options.Workers)
	}
	if cfg.Options.MaxModules != depgraph.DefaultMaxModules {
		t.Errorf("maxModules default = %d", cfg.Options.MaxModules)
	}
	if cfg.Options.TSConfig.FileName != "tsconfig.json" {
		t.Errorf("tsConfig = %q", cfg.Options.TSConfig.FileName)
	}

	rc := cfg.Options.ResolveConfig()
	if len(rc.Extensions) != 2 || len(rc.Alias) != 1 || rc.Alias[0].Name != "@app" || rc.Alias[0].Path != "src/app" {
		t.Errorf("resolve config = %+v", rc)
	}

	if got := cfg.ReporterOptions.Dot.CollapsePattern; got != "node_modules/(?:@[^/]+/[^/]+|[^/]+)" {
		t.Errorf("reporterOptions.dot.collapsePattern = %q", got)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("env override of log.format = %q, want json", cfg.Log.Format)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("sampleRate default = %v", cfg.Tracing.SampleRate)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", "forbidden: []\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AllowedSeverity != "warn" {
		t.Errorf("allowedSeverity default = %q, want warn", cfg.AllowedSeverity)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("expected reading config error, got %v", err)
	}
}

func TestParseDependencies(t *testing.T) {
	deps, err := ParseDependencies([]byte(`
./src/a/index.js:
  - ../b/util
  - {specifier: lodash, moduleSystem: cjs}
  - {specifier: ./lazy, dynamic: true}
src/b/util.js: []
`))
	if err != nil {
		t.Fatalf("ParseDependencies: %v", err)
	}

	a, ok := deps["src/a/index.js"]
	if !ok {
		t.Fatalf("keys should be normalized, got %v", deps)
	}
	want := []module.RawDependency{
		{Specifier: "../b/util", ModuleSystem: module.SystemES6},
		{Specifier: "lodash", ModuleSystem: module.SystemCJS},
		{Specifier: "./lazy", ModuleSystem: module.SystemES6, Dynamic: true},
	}
	if len(a) != len(want) {
		t.Fatalf("got %d deps, want %d", len(a), len(want))
	}
	for i := range want {
		if a[i] != want[i] {
			t.Errorf("dep[%d] = %+v, want %+v", i, a[i], want[i])
		}
	}
	if _, ok := deps["src/b/util.js"]; !ok {
		t.Error("files without dependencies must be kept")
	}
}

func TestParseDependencies_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown_system", "a.js:\n  - {specifier: x, moduleSystem: esm}\n", "unknown module system"},
		{"empty_specifier", "a.js:\n  - {moduleSystem: cjs}\n", "empty specifier"},
		{"not_a_map", "- a.js\n", "parsing dependencies"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDependencies([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDependencies_JSON(t *testing.T) {
	p := writeFile(t, "deps.json", `{"src/a.js": ["./b", {"specifier": "fs", "moduleSystem": "cjs"}], "src/b.js": []}`)
	deps, err := LoadDependencies(p)
	if err != nil {
		t.Fatalf("LoadDependencies: %v", err)
	}
	if len(deps["src/a.js"]) != 2 || deps["src/a.js"][1].ModuleSystem != module.SystemCJS {
		t.Errorf("unexpected deps %v", deps)
	}
}
