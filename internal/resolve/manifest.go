package resolve

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

const manifestName = "package.json"

// manifest is a decoded package.json.
type manifest struct {
	fields map[string]any
}

func parseManifest(data []byte) (*manifest, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return &manifest{fields: fields}, nil
}

func (m *manifest) field(name string) (any, bool) {
	v, ok := m.fields[name]
	return v, ok
}

func (m *manifest) stringField(name string) (string, bool) {
	v, ok := m.fields[name].(string)
	return v, ok && v != ""
}

// dependencyType reports how pkg is declared in this (project) manifest.
func (m *manifest) dependencyType(pkg string) string {
	sections := []struct {
		key string
		typ string
	}{
		{"dependencies", module.TypeNPM},
		{"devDependencies", module.TypeNPMDev},
		{"optionalDependencies", module.TypeNPMOptional},
		{"peerDependencies", module.TypeNPMPeer},
	}
	for _, s := range sections {
		if deps, ok := m.fields[s.key].(map[string]any); ok {
			if _, ok := deps[pkg]; ok {
				return s.typ
			}
		}
	}
	for _, key := range []string{"bundledDependencies", "bundleDependencies"} {
		if list, ok := m.fields[key].([]any); ok {
			for _, v := range list {
				if v == pkg {
					return module.TypeNPMBundled
				}
			}
		}
	}
	return module.TypeNPMNoPkg
}

// aliasFor applies the alias field maps (e.g. "browser") to a package
// relative path. It returns the replacement and false when the path is
// mapped to false, meaning it must not be resolved.
func (m *manifest) aliasFor(fields []string, rel string) (string, bool) {
	key := "./" + strings.TrimPrefix(path.Clean(rel), "./")
	for _, name := range fields {
		table, ok := m.fields[name].(map[string]any)
		if !ok {
			continue
		}
		for _, k := range []string{key, strings.TrimPrefix(key, "./")} {
			v, ok := table[k]
			if !ok {
				continue
			}
			switch target := v.(type) {
			case string:
				return target, true
			case bool:
				if !target {
					return "", false
				}
			}
		}
	}
	return rel, true
}

// exportsTargets returns the candidate targets (package relative, "./"
// prefixed) the exports map offers for subpath, in preference order. found
// reports whether any exports key matched subpath at all; blocked reports
// that the matching entry is null, which hides subpath from importers.
func exportsTargets(exports any, subpath string, conditions []string) (candidates []string, found, blocked bool) {
	entries, ok := exports.(map[string]any)
	if !ok || !hasSubpathKeys(entries) {
		entries = map[string]any{".": exports}
	}

	if v, ok := entries[subpath]; ok {
		if isNullTarget(v, conditions) {
			return nil, true, true
		}
		return expandTarget(v, func(s string) string { return s }, conditions), true, false
	}

	bestKey, bestLen := "", -1
	var bestSub func(string) string
	for key := range entries {
		var prefixLen int
		var sub func(string) string
		if prefix, suffix, isPattern := strings.Cut(key, "*"); isPattern {
			if len(subpath) < len(prefix)+len(suffix) ||
				!strings.HasPrefix(subpath, prefix) || !strings.HasSuffix(subpath, suffix) {
				continue
			}
			match := subpath[len(prefix) : len(subpath)-len(suffix)]
			prefixLen = len(prefix)
			sub = func(s string) string { return strings.ReplaceAll(s, "*", match) }
		} else if strings.HasSuffix(key, "/") && strings.HasPrefix(subpath, key) {
			rest := strings.TrimPrefix(subpath, key)
			// a pattern key with the same prefix is preferred
			prefixLen = len(key) - 1
			sub = func(s string) string { return s + rest }
		} else {
			continue
		}
		if prefixLen > bestLen || (prefixLen == bestLen && key < bestKey) {
			bestKey, bestLen, bestSub = key, prefixLen, sub
		}
	}
	if bestSub == nil {
		return nil, false, false
	}
	if isNullTarget(entries[bestKey], conditions) {
		return nil, true, true
	}
	return expandTarget(entries[bestKey], bestSub, conditions), true, false
}

// isNullTarget reports whether v is null, directly or as the value of the
// first condition that applies.
func isNullTarget(v any, conditions []string) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		for _, c := range conditions {
			if next, ok := t[c]; ok {
				return isNullTarget(next, conditions)
			}
		}
		if next, ok := t["default"]; ok {
			return isNullTarget(next, conditions)
		}
	}
	return false
}

func hasSubpathKeys(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, ".") {
			return true
		}
	}
	return false
}

// expandTarget flattens a target value: strings are substituted, arrays
// contribute their elements in order, condition objects are visited in the
// configured condition order with "default" always accepted last.
func expandTarget(v any, sub func(string) string, conditions []string) []string {
	switch t := v.(type) {
	case string:
		if !strings.HasPrefix(t, "./") {
			return nil
		}
		return []string{sub(t)}
	case []any:
		var out []string
		for _, el := range t {
			out = append(out, expandTarget(el, sub, conditions)...)
		}
		return out
	case map[string]any:
		var out []string
		seenDefault := false
		for _, c := range conditions {
			if c == "default" {
				seenDefault = true
			}
			if next, ok := t[c]; ok {
				out = append(out, expandTarget(next, sub, conditions)...)
			}
		}
		if !seenDefault {
			if next, ok := t["default"]; ok {
				out = append(out, expandTarget(next, sub, conditions)...)
			}
		}
		return out
	default:
		return nil
	}
}
