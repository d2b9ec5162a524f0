// Package resolve maps import specifiers to canonical module identities,
// following package entry fields, conditional exports, extension inference
// and project path aliases.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/module"
)

// Resolver resolves specifiers relative to one project root. It is safe for
// concurrent use; the caches it holds live as long as the Resolver.
type Resolver struct {
	root      string
	cfg       Config
	fs        FileSystem
	manifests *lru.Cache[string, *manifest]
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFileSystem replaces the afs-backed default file system.
func WithFileSystem(fs FileSystem) Option {
	return func(r *Resolver) { r.fs = fs }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver for the project rooted at root.
func New(root string, cfg Config, opts ...Option) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	r := &Resolver{
		root:   abs,
		cfg:    cfg.withDefaults(),
		fs:     NewFileSystem(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	cached, err := newCachedFileSystem(r.fs, r.cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	r.fs = cached
	r.manifests, err = lru.New[string, *manifest](max(r.cfg.CacheSize/8, 64))
	if err != nil {
		return nil, fmt.Errorf("manifest cache: %w", err)
	}
	return r, nil
}

// Root returns the absolute project root.
func (r *Resolver) Root() string { return r.root }

// Config returns the effective resolution config.
func (r *Resolver) Config() Config { return r.cfg }

// Resolve maps specifier, found in fromFile (project relative), to a module.
func (r *Resolver) Resolve(ctx context.Context, specifier, fromFile string) (module.Resolved, error) {
	if specifier == "" {
		return module.Resolved{}, unresolved(specifier, fromFile, "empty specifier")
	}
	if name, ok := coreModule(specifier); ok {
		return module.Resolved{
			Identity:        module.NewIdentity(name, module.KindCore),
			DependencyTypes: []string{module.TypeCore},
		}, nil
	}

	baseDir := filepath.Dir(r.abs(fromFile))

	if isPathSpecifier(specifier) {
		target := filepath.FromSlash(specifier)
		if !filepath.IsAbs(target) {
			target = filepath.Join(baseDir, target)
		}
		file, ok := r.resolveFile(ctx, target)
		if !ok {
			return module.Resolved{}, unresolved(specifier, fromFile, "no such file")
		}
		return r.identify(ctx, specifier, fromFile, file, nil)
	}

	if file, ok := r.resolveAlias(ctx, specifier); ok {
		return r.identify(ctx, specifier, fromFile, file, []string{module.TypeAliased, module.TypeAliasedWebpack})
	}
	if file, ok := r.resolvePaths(ctx, specifier); ok {
		return r.identify(ctx, specifier, fromFile, file, []string{module.TypeAliased, module.TypeAliasedTSConfig})
	}

	file, err := r.resolvePackage(ctx, specifier, baseDir)
	if err != nil {
		return module.Resolved{}, unresolved(specifier, fromFile, "%v", err)
	}
	return r.identify(ctx, specifier, fromFile, file, nil)
}

// identify classifies file. Identities are root relative, so a file outside
// the project root is unresolved.
func (r *Resolver) identify(ctx context.Context, specifier, fromFile, file string, extra []string) (module.Resolved, error) {
	rel, err := filepath.Rel(r.root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return module.Resolved{}, unresolved(specifier, fromFile, "%s is outside the project root", filepath.ToSlash(file))
	}
	return r.classify(ctx, filepath.ToSlash(rel), extra), nil
}

func (r *Resolver) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

func isPathSpecifier(s string) bool {
	return s == "." || s == ".." ||
		strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") ||
		strings.HasPrefix(s, "/")
}

// resolveAlias applies webpack style prefix aliases.
func (r *Resolver) resolveAlias(ctx context.Context, specifier string) (string, bool) {
	for _, a := range r.cfg.Alias {
		rest, ok := aliasRest(a, specifier)
		if !ok {
			continue
		}
		target := path.Join(a.Path, rest)
		if file, ok := r.resolveFile(ctx, r.abs(target)); ok {
			return file, true
		}
	}
	return "", false
}

func aliasRest(a Alias, specifier string) (string, bool) {
	if specifier == a.Name {
		return "", true
	}
	if a.Exact {
		return "", false
	}
	return strings.CutPrefix(specifier, a.Name+"/")
}

// resolvePaths applies tsconfig style path mapping. The exact key wins,
// otherwise the wildcard pattern with the longest prefix.
func (r *Resolver) resolvePaths(ctx context.Context, specifier string) (string, bool) {
	if len(r.cfg.Paths) == 0 {
		return "", false
	}
	targets, match, ok := r.matchPaths(specifier)
	if !ok {
		return "", false
	}
	for _, t := range targets {
		target := path.Join(r.cfg.BaseURL, strings.ReplaceAll(t, "*", match))
		if file, ok := r.resolveFile(ctx, r.abs(target)); ok {
			return file, true
		}
	}
	return "", false
}

func (r *Resolver) matchPaths(specifier string) ([]string, string, bool) {
	if targets, ok := r.cfg.Paths[specifier]; ok {
		return targets, "", true
	}
	bestKey, bestLen, bestMatch := "", -1, ""
	for key := range r.cfg.Paths {
		prefix, suffix, isPattern := strings.Cut(key, "*")
		if !isPattern || len(specifier) < len(prefix)+len(suffix) ||
			!strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
			continue
		}
		if len(prefix) > bestLen || (len(prefix) == bestLen && key < bestKey) {
			bestKey, bestLen = key, len(prefix)
			bestMatch = specifier[len(prefix) : len(specifier)-len(suffix)]
		}
	}
	if bestLen < 0 {
		return nil, "", false
	}
	return r.cfg.Paths[bestKey], bestMatch, true
}

// resolvePackage walks up from dir looking for node_modules/<name>.
func (r *Resolver) resolvePackage(ctx context.Context, specifier, dir string) (string, error) {
	name, sub := splitPackage(specifier)
	if name == "" {
		return "", fmt.Errorf("invalid package specifier")
	}
	for {
		pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(name))
		if r.stat(ctx, pkgDir).IsDir {
			return r.resolveInPackage(ctx, pkgDir, sub)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package %s not found", name)
		}
		dir = parent
	}
}

// splitPackage splits "@scope/name/sub/path" into "@scope/name" and "sub/path".
func splitPackage(specifier string) (name, sub string) {
	parts := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", ""
		}
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			sub = parts[2]
		}
		return name, sub
	}
	name, sub, _ = strings.Cut(specifier, "/")
	return name, sub
}

func (r *Resolver) resolveInPackage(ctx context.Context, pkgDir, sub string) (string, error) {
	m := r.manifest(ctx, pkgDir)
	if m != nil {
		subpath := "."
		if sub != "" {
			subpath = "./" + sub
		}
		for _, field := range r.cfg.ExportsFields {
			exports, ok := m.field(field)
			if !ok {
				continue
			}
			candidates, found, blocked := exportsTargets(exports, subpath, r.cfg.ConditionNames)
			if blocked {
				return "", fmt.Errorf("%s is not exported by %s", subpath, filepath.Base(pkgDir))
			}
			for _, c := range candidates {
				file := filepath.Join(pkgDir, filepath.FromSlash(c))
				if info := r.stat(ctx, file); info.Exists && !info.IsDir {
					return file, nil
				}
			}
			if found {
				r.logger.Debug("exports entry did not resolve, falling back",
					"package", pkgDir, "subpath", subpath, "field", field)
				break
			}
		}
		if sub != "" {
			aliased, ok := m.aliasFor(r.cfg.AliasFields, sub)
			if !ok {
				return "", fmt.Errorf("%s is disabled by an alias field", sub)
			}
			sub = aliased
		}
	}
	if sub == "" {
		if file, ok := r.resolveDir(ctx, pkgDir); ok {
			return file, nil
		}
		return "", fmt.Errorf("no entry point in %s", filepath.Base(pkgDir))
	}
	if file, ok := r.resolveFile(ctx, filepath.Join(pkgDir, filepath.FromSlash(sub))); ok {
		return file, nil
	}
	return "", fmt.Errorf("no such file %s in package", sub)
}

// resolveFile tries the exact path, then each configured extension, then
// the path as a directory.
func (r *Resolver) resolveFile(ctx context.Context, target string) (string, bool) {
	info := r.stat(ctx, target)
	if info.Exists && !info.IsDir {
		return target, true
	}
	for _, ext := range r.cfg.Extensions {
		candidate := target + ext
		if ci := r.stat(ctx, candidate); ci.Exists && !ci.IsDir {
			return candidate, true
		}
	}
	if info.IsDir {
		return r.resolveDir(ctx, target)
	}
	return "", false
}

// resolveDir resolves a directory through its manifest main fields, then
// index files.
func (r *Resolver) resolveDir(ctx context.Context, dir string) (string, bool) {
	if m := r.manifest(ctx, dir); m != nil {
		for _, field := range r.cfg.MainFields {
			entry, ok := m.stringField(field)
			if !ok {
				continue
			}
			entry, ok = m.aliasFor(r.cfg.AliasFields, entry)
			if !ok {
				continue
			}
			candidate := filepath.Join(dir, filepath.FromSlash(entry))
			if candidate == dir {
				continue
			}
			if file, ok := r.resolveFile(ctx, candidate); ok {
				return file, true
			}
		}
	}
	index := filepath.Join(dir, "index")
	for _, ext := range r.cfg.Extensions {
		candidate := index + ext
		if info := r.stat(ctx, candidate); info.Exists && !info.IsDir {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) stat(ctx context.Context, p string) FileInfo {
	info, err := r.fs.Stat(ctx, p)
	if err != nil {
		r.logger.Debug("stat failed", "path", p, "error", err)
		return FileInfo{}
	}
	return info
}

// manifest returns the parsed package.json in dir, or nil.
func (r *Resolver) manifest(ctx context.Context, dir string) *manifest {
	if m, ok := r.manifests.Get(dir); ok {
		return m
	}
	var m *manifest
	file := filepath.Join(dir, manifestName)
	if info := r.stat(ctx, file); info.Exists && !info.IsDir {
		data, err := r.fs.ReadFile(ctx, file)
		if err == nil {
			m, err = parseManifest(data)
		}
		if err != nil {
			r.logger.Warn("ignoring unreadable manifest", "path", file, "error", err)
			m = nil
		}
	}
	r.manifests.Add(dir, m)
	return m
}

// classify turns a root relative file into an identity and its dependency
// types.
func (r *Resolver) classify(ctx context.Context, rel string, extra []string) module.Resolved {
	p := module.NormalizePath(rel)

	if pkg, ok := packageOf(p); ok {
		typ := module.TypeNPMUnknown
		if project := r.manifest(ctx, r.root); project != nil {
			typ = project.dependencyType(pkg)
		}
		return module.Resolved{
			Identity:        module.Identity{Path: p, Kind: module.KindExternal},
			DependencyTypes: module.MergeTypes([]string{typ}, extra),
		}
	}
	return module.Resolved{
		Identity:        module.Identity{Path: p, Kind: module.KindLocal},
		DependencyTypes: module.MergeTypes([]string{module.TypeLocal}, extra),
	}
}

// packageOf extracts the package name following the last node_modules
// segment of p.
func packageOf(p string) (string, bool) {
	segments := strings.Split(p, "/")
	last := -1
	for i, s := range segments {
		if s == "node_modules" {
			last = i
		}
	}
	if last < 0 || last+1 >= len(segments) {
		return "", false
	}
	name := segments[last+1]
	if strings.HasPrefix(name, "@") && last+2 < len(segments) {
		name += "/" + segments[last+2]
	}
	return name, true
}

// RelativeSpecifier serializes id as a specifier usable from fromFile.
// Resolving the result from the same file yields id again.
func RelativeSpecifier(fromFile string, id module.Identity) string {
	if id.Kind == module.KindCore {
		return id.Path
	}
	dir := path.Dir(module.NormalizePath(fromFile))
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(id.Path))
	if err != nil {
		return id.Path
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}
