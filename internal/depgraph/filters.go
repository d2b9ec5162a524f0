package depgraph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

// FilterConfig holds the traversal filters as configured, before compiling.
// Every list of patterns is OR-ed into one expression.
type FilterConfig struct {
	DoNotFollowPath  []string
	DoNotFollowTypes []string
	ExcludePath      []string
	IncludeOnly      []string
}

// Filters decides which modules are followed, kept as stubs or left out.
type Filters struct {
	doNotFollow      *regexp.Regexp
	doNotFollowTypes map[string]bool
	exclude          *regexp.Regexp
	includeOnly      *regexp.Regexp
}

// NewFilters compiles cfg.
func NewFilters(cfg FilterConfig) (*Filters, error) {
	f := &Filters{doNotFollowTypes: make(map[string]bool)}
	var err error
	if f.doNotFollow, err = CompileAlternatives(cfg.DoNotFollowPath); err != nil {
		return nil, fmt.Errorf("doNotFollow.path: %w", err)
	}
	if f.exclude, err = CompileAlternatives(cfg.ExcludePath); err != nil {
		return nil, fmt.Errorf("exclude.path: %w", err)
	}
	if f.includeOnly, err = CompileAlternatives(cfg.IncludeOnly); err != nil {
		return nil, fmt.Errorf("includeOnly: %w", err)
	}
	for _, t := range cfg.DoNotFollowTypes {
		if !module.IsKnownType(t) {
			return nil, fmt.Errorf("doNotFollow.dependencyTypes: unknown dependency type %q", t)
		}
		f.doNotFollowTypes[t] = true
	}
	return f, nil
}

// JoinAlternatives joins patterns into one alternation source. Empty
// patterns are skipped.
func JoinAlternatives(patterns []string) string {
	var parts []string
	for _, p := range patterns {
		if p == "" {
			continue
		}
		parts = append(parts, "(?:"+p+")")
	}
	return strings.Join(parts, "|")
}

// CompileAlternatives compiles JoinAlternatives(patterns). It returns nil
// for an empty list.
func CompileAlternatives(patterns []string) (*regexp.Regexp, error) {
	source := JoinAlternatives(patterns)
	if source == "" {
		return nil, nil
	}
	return regexp.Compile(source)
}

// Admits reports whether an edge to id may be part of the graph at all.
func (f *Filters) Admits(id module.Identity) bool {
	if f == nil {
		return true
	}
	if f.exclude != nil && f.exclude.MatchString(id.Path) {
		return false
	}
	if f.includeOnly != nil && !f.includeOnly.MatchString(id.Path) {
		return false
	}
	return true
}

// Follows reports whether id's own dependencies should be expanded, given
// the dependency types of the edge that reached it.
func (f *Filters) Follows(id module.Identity, types []string) bool {
	return id.Kind != module.KindCore && !f.Stubs(id, types)
}

// Stubs reports whether id matches doNotFollow and is kept as a stub node.
func (f *Filters) Stubs(id module.Identity, types []string) bool {
	if f == nil {
		return false
	}
	if f.doNotFollow != nil && f.doNotFollow.MatchString(id.Path) {
		return true
	}
	for _, t := range types {
		if f.doNotFollowTypes[t] {
			return true
		}
	}
	return false
}
