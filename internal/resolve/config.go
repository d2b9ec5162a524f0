package resolve

import (
	"path"
	"strings"
)

// DefaultCacheSize bounds the per-run stat cache.
const DefaultCacheSize = 8192

// Alias maps a bare specifier prefix to a project path, webpack style.
type Alias struct {
	Name  string `mapstructure:"name" json:"name"`
	Path  string `mapstructure:"path" json:"path"`
	Exact bool   `mapstructure:"exact" json:"exact,omitempty"` // match Name only, not Name/...
}

// Config is the resolution strategy for one run. Treat it as immutable once
// handed to New.
type Config struct {
	MainFields     []string
	ExportsFields  []string
	ConditionNames []string
	Extensions     []string
	AliasFields    []string
	Alias          []Alias

	// tsconfig style path mapping; BaseURL is relative to the project root.
	BaseURL string
	Paths   map[string][]string

	CacheSize int
}

// DefaultConfig mirrors the defaults used for JavaScript and TypeScript
// projects.
func DefaultConfig() Config {
	return Config{
		MainFields:     []string{"main", "types", "typings"},
		ExportsFields:  []string{"exports"},
		ConditionNames: []string{"import", "require", "node", "default", "types"},
		Extensions:     []string{".js", ".cjs", ".mjs", ".jsx", ".ts", ".cts", ".mts", ".tsx", ".d.ts", ".json"},
		CacheSize:      DefaultCacheSize,
	}
}

// WithTSConfig returns a copy of c with the path mapping from ts merged in.
// Mappings already present in c win over the tsconfig ones.
func (c Config) WithTSConfig(ts TSConfig) Config {
	out := c
	if out.BaseURL == "" {
		out.BaseURL = ts.BaseURL
	}
	if len(ts.Paths) == 0 {
		return out
	}
	merged := make(map[string][]string, len(ts.Paths)+len(c.Paths))
	for k, v := range ts.Paths {
		merged[k] = v
	}
	for k, v := range c.Paths {
		merged[k] = v
	}
	out.Paths = merged
	return out
}

// withDefaults fills empty lists from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.MainFields) == 0 {
		c.MainFields = d.MainFields
	}
	if len(c.ExportsFields) == 0 {
		c.ExportsFields = d.ExportsFields
	}
	if len(c.ConditionNames) == 0 {
		c.ConditionNames = d.ConditionNames
	}
	if len(c.Extensions) == 0 {
		c.Extensions = d.Extensions
	}
	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
	c.BaseURL = strings.TrimPrefix(path.Clean("/"+c.BaseURL), "/")
	return c
}
