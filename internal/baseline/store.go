// Package baseline records known violations so a run can report only what
// changed since they were accepted.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

// DefaultFile is the conventional baseline location in a project.
const DefaultFile = ".dependency-cruiser-known-violations.json"

// Entry is one known violation. Severity and captures are not part of the
// identity, so tightening a rule's severity keeps its baseline.
type Entry struct {
	Rule string `json:"rule"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Key orders entries.
func (e Entry) Key() string { return e.Rule + "\x00" + e.From + "\x00" + e.To }

func entryOf(v rules.Violation) Entry {
	return Entry{Rule: v.Rule, From: v.From, To: v.To}
}

// FromViolations converts violations to sorted, unique entries. Ignored
// violations are left out.
func FromViolations(vs []rules.Violation) []Entry {
	seen := make(map[Entry]bool, len(vs))
	var out []Entry
	for _, v := range vs {
		if v.Severity == rules.SeverityIgnore {
			continue
		}
		e := entryOf(v)
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Save writes the violations as the new baseline.
func Save(path string, vs []rules.Violation) error {
	entries := FromViolations(vs)
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create baseline directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}

// Load reads a baseline. A missing file is an empty baseline.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal baseline %s: %w", path, err)
	}
	return entries, nil
}
