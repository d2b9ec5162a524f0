package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

// Color constants matching the dark terminal theme
const (
	ColorBg     = "#0d1117"
	ColorCard   = "#161b22"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	// Text styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style

	// Status badges
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style

	// List rows
	Row       lipgloss.Style
	ActiveRow lipgloss.Style

	Detail lipgloss.Style

	// Borders
	Border       lipgloss.Style
	ActiveBorder lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	badge := func(bg string) lipgloss.Style {
		return lipgloss.NewStyle().
			Background(lipgloss.Color(bg)).
			Foreground(lipgloss.Color(ColorBg)).
			Padding(0, 1).
			Bold(true)
	}
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			MarginBottom(1),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		StatusSuccess: badge(ColorGreen),
		StatusFailed:  badge(ColorRed),

		Row: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		ActiveRow: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBright)).
			Background(lipgloss.Color(ColorCard)).
			Bold(true),

		Detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		ActiveBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBlue)).
			Padding(0, 1),
	}
}

// SeverityColor returns the badge style for a severity.
func SeverityColor(sev rules.Severity) lipgloss.Style {
	style := lipgloss.NewStyle().
		Bold(true).
		Width(5)

	switch sev {
	case rules.SeverityError:
		return style.Foreground(lipgloss.Color(ColorRed))
	case rules.SeverityWarn:
		return style.Foreground(lipgloss.Color(ColorYellow))
	default:
		return style.Foreground(lipgloss.Color(ColorBlue))
	}
}
