// Package module holds the identities and dependency vocabulary shared by the
// resolver, the graph builder and the rule engine.
package module

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Kind classifies a resolved module.
type Kind int

const (
	KindLocal Kind = iota
	KindExternal
	KindCore
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindExternal:
		return "external"
	case KindCore:
		return "core"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts the textual form back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "local":
		return KindLocal, nil
	case "external":
		return KindExternal, nil
	case "core":
		return KindCore, nil
	default:
		return 0, fmt.Errorf("unknown module kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Identity is the canonical reference to a module and the key of graph nodes.
type Identity struct {
	Path string `json:"path"` // posix, relative to the project root
	Kind Kind   `json:"kind"`
}

// NewIdentity normalizes p and returns the identity for it.
func NewIdentity(p string, kind Kind) Identity {
	return Identity{Path: NormalizePath(p), Kind: kind}
}

func (id Identity) String() string {
	return id.Path
}

// NormalizePath cleans p into a posix path relative to the project root.
// Applying it twice yields the same result.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	if p == "." {
		return ""
	}
	return p
}

// Module systems recognized on raw dependencies.
const (
	SystemES6 = "es6"
	SystemCJS = "cjs"
	SystemAMD = "amd"
	SystemTSD = "tsd"
)

// Dependency types attached to edges.
const (
	TypeLocal           = "local"
	TypeCore            = "core"
	TypeNPM             = "npm"
	TypeNPMDev          = "npm-dev"
	TypeNPMOptional     = "npm-optional"
	TypeNPMPeer         = "npm-peer"
	TypeNPMBundled      = "npm-bundled"
	TypeNPMNoPkg        = "npm-no-pkg"
	TypeNPMUnknown      = "npm-unknown"
	TypeAliased         = "aliased"
	TypeAliasedTSConfig = "aliased-tsconfig"
	TypeAliasedWebpack  = "aliased-webpack"
	TypeDynamicImport   = "dynamic-import"
)

var knownTypes = map[string]bool{
	TypeLocal: true, TypeCore: true,
	TypeNPM: true, TypeNPMDev: true, TypeNPMOptional: true, TypeNPMPeer: true,
	TypeNPMBundled: true, TypeNPMNoPkg: true, TypeNPMUnknown: true,
	TypeAliased: true, TypeAliasedTSConfig: true, TypeAliasedWebpack: true,
	TypeDynamicImport: true,
	SystemES6: true, SystemCJS: true, SystemAMD: true, SystemTSD: true,
}

// IsKnownType reports whether t belongs to the dependency-type vocabulary.
func IsKnownType(t string) bool {
	return knownTypes[t]
}

// KnownModuleSystem reports whether s is a recognized module system.
func KnownModuleSystem(s string) bool {
	switch s {
	case SystemES6, SystemCJS, SystemAMD, SystemTSD:
		return true
	}
	return false
}

// RawDependency is a single import statement as reported by a source parser.
type RawDependency struct {
	Specifier    string `json:"specifier" yaml:"specifier"`
	ModuleSystem string `json:"moduleSystem" yaml:"moduleSystem"`
	Dynamic      bool   `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
}

// Resolved is the outcome of resolving one specifier.
type Resolved struct {
	Identity        Identity
	DependencyTypes []string
}

// MergeTypes returns the sorted union of a and b without duplicates.
func MergeTypes(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
