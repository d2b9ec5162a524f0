package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// TSConfig carries the module resolution settings taken from a tsconfig file.
// BaseURL and the Paths targets are relative to the project root.
type TSConfig struct {
	BaseURL string
	Paths   map[string][]string
}

type tsconfigFile struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// LoadTSConfig reads fileName (relative to root) and converts its baseUrl and
// paths into root-relative form. Path targets are resolved against baseUrl,
// or against the tsconfig directory when no baseUrl is set.
func LoadTSConfig(ctx context.Context, fs FileSystem, root, fileName string) (TSConfig, error) {
	abs := filepath.Join(root, filepath.FromSlash(fileName))
	data, err := fs.ReadFile(ctx, abs)
	if err != nil {
		return TSConfig{}, fmt.Errorf("tsconfig: %w", err)
	}
	// tsconfig files are JSONC: comments and trailing commas are allowed.
	std, err := hujson.Standardize(data)
	if err != nil {
		return TSConfig{}, fmt.Errorf("tsconfig %s: %w", fileName, err)
	}
	var raw tsconfigFile
	if err := json.Unmarshal(std, &raw); err != nil {
		return TSConfig{}, fmt.Errorf("tsconfig %s: %w", fileName, err)
	}

	dir := path.Dir(filepath.ToSlash(fileName))
	ts := TSConfig{Paths: raw.CompilerOptions.Paths}
	switch {
	case raw.CompilerOptions.BaseURL != "":
		ts.BaseURL = cleanRel(path.Join(dir, raw.CompilerOptions.BaseURL))
	case len(ts.Paths) > 0:
		ts.BaseURL = cleanRel(dir)
	}
	return ts, nil
}

func cleanRel(p string) string {
	p = strings.TrimPrefix(path.Clean(p), "./")
	if p == "." {
		return ""
	}
	return p
}
