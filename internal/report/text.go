package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

// Color constants matching the dark terminal theme
const (
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorGray   = "#8b949e"
)

type textStyles struct {
	severity map[rules.Severity]lipgloss.Style
	rule     lipgloss.Style
	path     lipgloss.Style
	muted    lipgloss.Style
	passed   lipgloss.Style
	failed   lipgloss.Style
}

func newTextStyles(r *lipgloss.Renderer) textStyles {
	badge := func(color string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
	}
	return textStyles{
		severity: map[rules.Severity]lipgloss.Style{
			rules.SeverityError: badge(ColorRed),
			rules.SeverityWarn:  badge(ColorYellow),
			rules.SeverityInfo:  badge(ColorBlue),
		},
		rule:   r.NewStyle().Bold(true),
		path:   r.NewStyle(),
		muted:  r.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		passed: badge(ColorGreen),
		failed: badge(ColorRed),
	}
}

// TextReporter writes one line per violation and a summary footer. Colors
// are only emitted when w is a terminal.
type TextReporter struct {
	// ShowWarnings also lists unresolved specifiers.
	ShowWarnings bool
}

func (t TextReporter) Report(w io.Writer, res *cruise.Result) error {
	st := newTextStyles(lipgloss.NewRenderer(w))
	var b strings.Builder

	for _, v := range res.Violations {
		if v.Severity == rules.SeverityIgnore {
			continue
		}
		sev := string(v.Severity)
		b.WriteString(fmt.Sprintf("  %s%s %s: %s → %s\n",
			st.severity[v.Severity].Render(sev),
			strings.Repeat(" ", max(5-len(sev), 0)),
			st.rule.Render(v.Rule),
			st.path.Render(v.From),
			st.path.Render(v.To),
		))
		if v.Comment != "" {
			b.WriteString("        " + st.muted.Render(v.Comment) + "\n")
		}
	}

	if t.ShowWarnings && len(res.Warnings) > 0 {
		b.WriteString("\n")
		for _, wr := range res.Warnings {
			b.WriteString(st.muted.Render(fmt.Sprintf("  unresolved %q in %s: %s", wr.Specifier, wr.From, wr.Message)) + "\n")
		}
	}

	if b.Len() > 0 {
		b.WriteString("\n")
	}
	if res.Summary.Passed() {
		b.WriteString(st.passed.Render("✔ no dependency errors") + " " + res.Summary.String() + "\n")
	} else {
		b.WriteString(st.failed.Render("✘ dependency errors found") + " " + res.Summary.String() + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
