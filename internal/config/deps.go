package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

// depItem is either a bare specifier (an es6 import) or the full object.
type depItem module.RawDependency

func (d *depItem) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*d = depItem{Specifier: n.Value, ModuleSystem: module.SystemES6}
		return nil
	}
	var raw module.RawDependency
	if err := n.Decode(&raw); err != nil {
		return err
	}
	if raw.ModuleSystem == "" {
		raw.ModuleSystem = module.SystemES6
	}
	*d = depItem(raw)
	return nil
}

// LoadDependencies reads the raw dependency list produced by an extractor.
// JSON input is accepted too since it is valid YAML.
//
//	src/a/index.js:
//	  - ../b/util
//	  - {specifier: lodash, moduleSystem: cjs}
func LoadDependencies(path string) (depgraph.RawDependencies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dependencies: %w", err)
	}
	return ParseDependencies(data)
}

// ParseDependencies decodes the document read by LoadDependencies.
func ParseDependencies(data []byte) (depgraph.RawDependencies, error) {
	var doc map[string][]depItem
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing dependencies: %w", err)
	}

	files := make([]string, 0, len(doc))
	for file := range doc {
		files = append(files, file)
	}
	sort.Strings(files)

	out := make(depgraph.RawDependencies, len(doc))
	for _, file := range files {
		items := doc[file]
		key := module.NormalizePath(file)
		deps := out[key]
		for i, it := range items {
			if it.Specifier == "" {
				return nil, fmt.Errorf("parsing dependencies: %s[%d]: empty specifier", file, i)
			}
			if !module.KnownModuleSystem(it.ModuleSystem) {
				return nil, fmt.Errorf("parsing dependencies: %s[%d]: unknown module system %q", file, i, it.ModuleSystem)
			}
			deps = append(deps, module.RawDependency(it))
		}
		out[key] = deps
	}
	return out, nil
}
