package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/config"
)

const lintConfig = `
forbidden:
  - name: no-cross-folder
    severity: error
    from:
      path: "^src/([^/]+)/"
    to:
      path: "^src/"
      pathNot: "^src/$1/"
options:
  doNotFollow: node_modules
`

const lintDeps = `
src/a/index.js:
  - ../b/util
  - ./helper
src/a/helper.js: []
src/b/util.js: []
`

func writeProject(t *testing.T) (root, cfgPath, depsPath string) {
	t.Helper()
	root = t.TempDir()
	files := map[string]string{
		"src/a/index.js":           "",
		"src/a/helper.js":          "",
		"src/b/util.js":            "",
		".dependency-cruiser.yaml": lintConfig,
		"deps.yaml":                lintDeps,
	}
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root, filepath.Join(root, ".dependency-cruiser.yaml"), filepath.Join(root, "deps.yaml")
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLint_ReportsCrossFolderImport(t *testing.T) {
	root, cfgPath, depsPath := writeProject(t)
	out, err := execute("lint", "--config", cfgPath, "--deps", depsPath, "--root", root)

	assert.ErrorIs(t, err, errLintFailed)
	assert.Contains(t, out, "no-cross-folder: src/a/index.js → src/b/util.js")
	assert.NotContains(t, out, "helper.js →")
	assert.Contains(t, out, "1 violations (1 errors")
}

func TestLint_JSONOutput(t *testing.T) {
	root, cfgPath, depsPath := writeProject(t)
	out, err := execute("lint", "--config", cfgPath, "--deps", depsPath, "--root", root, "-T", "json", "src/b/util.js")

	require.NoError(t, err, "entry without cross folder imports passes")
	assert.Contains(t, out, `"passed": true`)
}

func TestLint_UnknownOutputType(t *testing.T) {
	root, cfgPath, depsPath := writeProject(t)
	_, err := execute("lint", "--config", cfgPath, "--deps", depsPath, "--root", root, "-T", "html")
	assert.ErrorContains(t, err, "unknown output type")
}

func TestGraph_Mermaid(t *testing.T) {
	root, cfgPath, depsPath := writeProject(t)
	out, err := execute("graph", "--config", cfgPath, "--deps", depsPath, "--root", root, "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "graph LR")
	assert.Contains(t, out, "linkStyle")

	_, err = execute("graph", "--config", cfgPath, "--deps", depsPath, "--root", root, "--format", "svg")
	assert.ErrorContains(t, err, "unknown graph format")
}

func TestBaseline_IgnoreKnown(t *testing.T) {
	root, cfgPath, depsPath := writeProject(t)
	known := filepath.Join(root, "known.json")

	out, err := execute("baseline", "--config", cfgPath, "--deps", depsPath, "--root", root, "--out", known)
	require.NoError(t, err)
	assert.Contains(t, out, "+1 new")

	out, err = execute("lint", "--config", cfgPath, "--deps", depsPath, "--root", root, "--ignore-known", known)
	require.NoError(t, err, "the only violation is known")
	assert.Contains(t, out, "no dependency errors")
}

func TestRulesCommand(t *testing.T) {
	_, cfgPath, _ := writeProject(t)
	out, err := execute("rules", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "error  no-cross-folder")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, newLogger(config.LogConfig{}, &buf).Enabled(context.Background(), slog.LevelDebug))
}

func TestInputFromConfig(t *testing.T) {
	cfg := &config.Config{
		AllowedSeverity: "info",
		Options: config.Options{
			DoNotFollow: config.PathFilter{Path: []string{"node_modules"}},
			Workers:     3,
			TSConfig:    config.FileOption{FileName: "tsconfig.json"},
		},
		ReporterOptions: config.ReporterOptions{Dot: config.DotOptions{CollapsePattern: "^node_modules/[^/]+"}},
	}
	in := inputFromConfig(cfg, "/p", []string{"src/a.js"}, nil, slog.Default())
	assert.Equal(t, "/p", in.Root)
	assert.Equal(t, []string{"node_modules"}, in.Filters.DoNotFollowPath)
	assert.Equal(t, 3, in.Workers)
	assert.Equal(t, "tsconfig.json", in.TSConfigFile)
	assert.Equal(t, "info", in.AllowedSeverity)
	assert.Equal(t, "^node_modules/[^/]+", in.CollapsePattern)
	assert.NotNil(t, in.FileSystem)
}
