package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/resolve"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

// EnvPrefix prefixes environment overrides, e.g. DEPCRUISE_LOG_LEVEL.
const EnvPrefix = "DEPCRUISE"

// Config holds all application configuration.
type Config struct {
	Forbidden       []rules.Rule    `mapstructure:"forbidden"`
	Allowed         []rules.Rule    `mapstructure:"allowed"`
	AllowedSeverity string          `mapstructure:"allowedSeverity"`
	Options         Options         `mapstructure:"options"`
	ReporterOptions ReporterOptions `mapstructure:"reporterOptions"`
	Log             LogConfig       `mapstructure:"log"`
	Tracing         TracingConfig   `mapstructure:"tracing"`
	Store           StoreConfig     `mapstructure:"store"`
}

// Options are the cruise options.
type Options struct {
	DoNotFollow      PathFilter `mapstructure:"doNotFollow"`
	Exclude          PathFilter `mapstructure:"exclude"`
	IncludeOnly      []string   `mapstructure:"includeOnly"`
	ModuleSystems    []string   `mapstructure:"moduleSystems"`
	MaxModules       int        `mapstructure:"maxModules"`
	Workers          int        `mapstructure:"workers"`
	FailOnUnresolved bool       `mapstructure:"failOnUnresolved"`

	EnhancedResolveOptions ResolveOptions `mapstructure:"enhancedResolveOptions"`
	TSConfig               FileOption     `mapstructure:"tsConfig"`
	WebpackConfig          FileOption     `mapstructure:"webpackConfig"`
	BabelConfig            FileOption     `mapstructure:"babelConfig"`
}

// PathFilter accepts a pattern, a list of patterns or the object form.
type PathFilter struct {
	Path            []string `mapstructure:"path"`
	DependencyTypes []string `mapstructure:"dependencyTypes"`
}

// ResolveOptions override the resolver defaults. Empty lists keep them.
type ResolveOptions struct {
	ExportsFields  []string        `mapstructure:"exportsFields"`
	ConditionNames []string        `mapstructure:"conditionNames"`
	MainFields     []string        `mapstructure:"mainFields"`
	AliasFields    []string        `mapstructure:"aliasFields"`
	Extensions     []string        `mapstructure:"extensions"`
	Alias          []resolve.Alias `mapstructure:"alias"`
	CacheSize      int             `mapstructure:"cacheSize"`
}

// ReporterOptions tune the graph reporters.
type ReporterOptions struct {
	Dot DotOptions `mapstructure:"dot"`
}

// DotOptions apply to the dot and mermaid graph outputs.
type DotOptions struct {
	// CollapsePattern folds every module path matching it into one node
	// named by the first match.
	CollapsePattern string `mapstructure:"collapsePattern"`
}

// FileOption points at an auxiliary config file.
type FileOption struct {
	FileName string `mapstructure:"fileName"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sampleRate"`
	Environment string  `mapstructure:"environment"`
}

type StoreConfig struct {
	Neo4j GraphConfig `mapstructure:"neo4j"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// FilterConfig converts the traversal filters for the graph builder.
func (o Options) FilterConfig() depgraph.FilterConfig {
	return depgraph.FilterConfig{
		DoNotFollowPath:  o.DoNotFollow.Path,
		DoNotFollowTypes: o.DoNotFollow.DependencyTypes,
		ExcludePath:      o.Exclude.Path,
		IncludeOnly:      o.IncludeOnly,
	}
}

// ResolveConfig converts enhancedResolveOptions for the resolver.
func (o Options) ResolveConfig() resolve.Config {
	r := o.EnhancedResolveOptions
	return resolve.Config{
		MainFields:     r.MainFields,
		ExportsFields:  r.ExportsFields,
		ConditionNames: r.ConditionNames,
		Extensions:     r.Extensions,
		AliasFields:    r.AliasFields,
		Alias:          r.Alias,
		CacheSize:      r.CacheSize,
	}
}

var knownLogLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if len(c.Forbidden) == 0 && len(c.Allowed) == 0 {
		warnings = append(warnings, "no forbidden or allowed rules configured; every run passes")
	}

	if c.Options.WebpackConfig.FileName != "" {
		warnings = append(warnings, fmt.Sprintf("webpackConfig %q is not evaluated; declare aliases under options.enhancedResolveOptions.alias", c.Options.WebpackConfig.FileName))
	}
	if c.Options.BabelConfig.FileName != "" {
		warnings = append(warnings, fmt.Sprintf("babelConfig %q is not evaluated", c.Options.BabelConfig.FileName))
	}

	if c.Options.Workers < 0 {
		warnings = append(warnings, fmt.Sprintf("options.workers %d is negative; using the CPU count", c.Options.Workers))
	}
	if c.Options.MaxModules < 0 {
		warnings = append(warnings, fmt.Sprintf("options.maxModules %d is negative; using the default limit", c.Options.MaxModules))
	}

	if !knownLogLevels[strings.ToLower(c.Log.Level)] {
		warnings = append(warnings, fmt.Sprintf("log level '%s' is unknown; using info", c.Log.Level))
	}

	if p := c.ReporterOptions.Dot.CollapsePattern; p != "" {
		if _, err := regexp.Compile(p); err != nil {
			warnings = append(warnings, fmt.Sprintf("reporterOptions.dot.collapsePattern is not a valid pattern: %v", err))
		}
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("tracing sampleRate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	if c.Store.Neo4j.URI != "" && c.Store.Neo4j.Username == "" {
		warnings = append(warnings, "store.neo4j.uri is set but username is empty")
	}

	return warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("allowedSeverity", string(rules.SeverityWarn))
	v.SetDefault("options.maxModules", depgraph.DefaultMaxModules)
	v.SetDefault("options.workers", 0)
	v.SetDefault("options.failOnUnresolved", false)
	v.SetDefault("options.tsConfig.fileName", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampleRate", 1.0)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("store.neo4j.uri", "")
	v.SetDefault("store.neo4j.username", "")
	v.SetDefault("store.neo4j.password", "")
}

// stringOrList lets a single pattern stand in for a one element list.
// Splitting on commas is not an option since patterns contain them.
func stringOrList(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf([]string(nil)) {
		return []string{data.(string)}, nil
	}
	return data, nil
}

// pathFilterShorthand decodes `doNotFollow: "node_modules"` and the list
// form as {path: ...}.
func pathFilterShorthand(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(PathFilter{}) {
		return data, nil
	}
	if from.Kind() == reflect.String || from.Kind() == reflect.Slice {
		return map[string]any{"path": data}, nil
	}
	return data, nil
}

// DecodeHook is the hook chain used for every config decode.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		pathFilterShorthand,
		stringOrList,
	)
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
