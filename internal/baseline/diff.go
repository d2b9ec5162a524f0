package baseline

import (
	"fmt"
	"strings"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

// Diff compares a run's violations with a baseline.
type Diff struct {
	New   []rules.Violation `json:"new"`
	Known []rules.Violation `json:"known"`
	Fixed []Entry           `json:"fixed"`
}

// Compare splits current into new and known violations and lists the
// baseline entries that no longer occur. Ignored violations are skipped.
func Compare(known []Entry, current []rules.Violation) *Diff {
	base := make(map[Entry]bool, len(known))
	for _, e := range known {
		base[e] = true
	}

	d := &Diff{}
	seen := make(map[Entry]bool)
	for _, v := range current {
		if v.Severity == rules.SeverityIgnore {
			continue
		}
		e := entryOf(v)
		seen[e] = true
		if base[e] {
			d.Known = append(d.Known, v)
		} else {
			d.New = append(d.New, v)
		}
	}
	for _, e := range known {
		if !seen[e] {
			d.Fixed = append(d.Fixed, e)
		}
	}
	return d
}

// Apply downgrades known violations to ignore, keeping their position, so
// only new ones count towards the summary.
func Apply(known []Entry, vs []rules.Violation) []rules.Violation {
	base := make(map[Entry]bool, len(known))
	for _, e := range known {
		base[e] = true
	}
	out := make([]rules.Violation, len(vs))
	for i, v := range vs {
		if base[entryOf(v)] {
			v.Severity = rules.SeverityIgnore
		}
		out[i] = v
	}
	return out
}

// FormatDiff returns a human-readable representation of the diff.
func FormatDiff(d *Diff) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Violations: +%d new, %d known, -%d fixed\n",
		len(d.New), len(d.Known), len(d.Fixed)))
	for _, v := range d.New {
		sb.WriteString(fmt.Sprintf("  + %s: %s → %s\n", v.Rule, v.From, v.To))
	}
	for _, e := range d.Fixed {
		sb.WriteString(fmt.Sprintf("  - %s: %s → %s\n", e.Rule, e.From, e.To))
	}
	return sb.String()
}
