package tui

import (
	"fmt"
	"strings"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

// BrowseItem is one violation together with the edge it was raised on.
type BrowseItem struct {
	Violation  rules.Violation
	Specifiers []string
	Dynamic    bool
}

// Title is the single line shown in the list pane.
func (it BrowseItem) Title() string {
	return fmt.Sprintf("%s: %s → %s", it.Violation.Rule, it.Violation.From, it.Violation.To)
}

// Matches reports whether the filter text occurs in the rule name or one of
// the endpoints. Matching ignores case.
func (it BrowseItem) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	f := strings.ToLower(filter)
	v := it.Violation
	for _, s := range []string{v.Rule, v.From, v.To, string(v.Severity)} {
		if strings.Contains(strings.ToLower(s), f) {
			return true
		}
	}
	return false
}

// BrowseSession holds everything shown by the browser.
type BrowseSession struct {
	RunID   string
	Items   []BrowseItem
	Summary rules.Summary
}

// NewBrowseSession collects the non ignored violations of a run in report
// order.
func NewBrowseSession(res *cruise.Result) *BrowseSession {
	edges := make(map[depgraph.EdgeKey]depgraph.Edge)
	if res.Graph != nil {
		for _, e := range res.Graph.Edges {
			edges[e.Key()] = e
		}
	}

	s := &BrowseSession{RunID: res.RunID, Summary: res.Summary}
	for _, v := range res.Violations {
		if v.Severity == rules.SeverityIgnore {
			continue
		}
		e := edges[v.Key()]
		s.Items = append(s.Items, BrowseItem{Violation: v, Specifiers: e.Specifiers, Dynamic: e.Dynamic})
	}
	return s
}

// Filter returns the indexes of the items matching filter.
func (s *BrowseSession) Filter(filter string) []int {
	out := make([]int, 0, len(s.Items))
	for i, it := range s.Items {
		if it.Matches(filter) {
			out = append(out, i)
		}
	}
	return out
}

// Detail renders the right hand pane for one item.
func (it BrowseItem) Detail() string {
	v := it.Violation
	var b strings.Builder
	fmt.Fprintf(&b, "Rule:      %s\n", v.Rule)
	fmt.Fprintf(&b, "Severity:  %s\n", v.Severity)
	if v.Comment != "" {
		fmt.Fprintf(&b, "Comment:   %s\n", v.Comment)
	}
	fmt.Fprintf(&b, "\nFrom:      %s\n", v.From)
	fmt.Fprintf(&b, "To:        %s\n", v.To)
	fmt.Fprintf(&b, "Types:     %s\n", strings.Join(v.DependencyTypes, ", "))
	if len(it.Specifiers) > 0 {
		fmt.Fprintf(&b, "Imported:  %s\n", strings.Join(it.Specifiers, ", "))
	}
	if it.Dynamic {
		b.WriteString("Dynamic:   yes\n")
	}
	if v.Circular {
		b.WriteString("Circular:  yes\n")
	}
	if len(v.Captures) > 0 {
		b.WriteString("\nCaptures:\n")
		for i, c := range v.Captures {
			fmt.Fprintf(&b, "  $%d = %s\n", i+1, c)
		}
	}
	return b.String()
}
