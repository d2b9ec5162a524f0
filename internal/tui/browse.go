package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Pane int

const (
	PaneList Pane = iota
	PaneDetail
)

type BrowseModel struct {
	session    *BrowseSession
	styles     *Styles
	visible    []int // indexes into session.Items after filtering
	cursor     int   // position in visible
	filter     string
	viewport   viewport.Model
	activePane Pane
	width      int
	height     int
	quitting   bool
	filterMode bool // true while typing a filter
	textInput  textinput.Model
	help       help.Model
	keys       keyMap
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Tab    key.Binding
	Filter key.Binding
	Enter  key.Binding
	Escape key.Binding
	Quit   key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Up, km.Down, km.Tab, km.Filter, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Tab},
		{km.Filter, km.Enter, km.Escape, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func NewBrowseModel(session *BrowseSession) BrowseModel {
	ti := textinput.New()
	ti.Placeholder = "rule, path or severity..."
	ti.Width = 40

	m := BrowseModel{
		session:   session,
		styles:    DefaultStyles(),
		visible:   session.Filter(""),
		viewport:  viewport.New(38, 14),
		width:     80,
		height:    24,
		textInput: ti,
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.syncDetail()
	return m
}

// Selected returns the item under the cursor.
func (m BrowseModel) Selected() (BrowseItem, bool) {
	if m.cursor >= len(m.visible) {
		return BrowseItem{}, false
	}
	return m.session.Items[m.visible[m.cursor]], true
}

func (m *BrowseModel) syncDetail() {
	if it, ok := m.Selected(); ok {
		m.viewport.SetContent(it.Detail())
	} else {
		m.viewport.SetContent("")
	}
	m.viewport.GotoTop()
}

func (m *BrowseModel) applyFilter(f string) {
	m.filter = f
	m.visible = m.session.Filter(f)
	m.cursor = 0
	m.syncDetail()
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width/2-4, 10)
		m.viewport.Height = max(msg.Height-10, 3)
		return m, nil

	case tea.KeyMsg:
		if m.filterMode {
			switch msg.String() {
			case "enter":
				m.filterMode = false
				m.textInput.Blur()
				return m, nil
			case "esc":
				m.filterMode = false
				m.textInput.Blur()
				m.textInput.SetValue("")
				m.applyFilter("")
				return m, nil
			default:
				m.textInput, cmd = m.textInput.Update(msg)
				m.applyFilter(m.textInput.Value())
				return m, cmd
			}
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "tab":
			if m.activePane == PaneList {
				m.activePane = PaneDetail
			} else {
				m.activePane = PaneList
			}
			return m, nil

		case "/":
			m.filterMode = true
			m.textInput.SetValue(m.filter)
			cmd = m.textInput.Focus()
			return m, cmd

		case "esc":
			if m.filter != "" {
				m.applyFilter("")
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		}

		if m.activePane == PaneDetail {
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
				m.syncDetail()
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
				m.syncDetail()
			}
		}
		return m, nil
	}

	return m, nil
}

func (m BrowseModel) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderTopBar()}
	if len(m.session.Items) == 0 {
		sections = append(sections, m.styles.StatusSuccess.Render("No violations"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}
	sections = append(sections, m.renderNavigator(), m.renderPanels(), m.renderBottom())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BrowseModel) renderTopBar() string {
	title := m.styles.Title.Render("depcruise violations")
	s := m.session.Summary
	badge := m.styles.StatusSuccess.Render("passed")
	if !s.Passed() {
		badge = m.styles.StatusFailed.Render(fmt.Sprintf("%d errors", s.Errors))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", badge)
}

func (m BrowseModel) renderNavigator() string {
	position := fmt.Sprintf("[%d/%d]", min(m.cursor+1, len(m.visible)), len(m.visible))
	parts := []string{position, m.session.Summary.String()}
	if m.filter != "" {
		parts = append(parts, fmt.Sprintf("filter: %q", m.filter))
	}
	return m.styles.Subtitle.Render(strings.Join(parts, "  "))
}

func (m BrowseModel) renderPanels() string {
	panelWidth := max((m.width-6)/2, 20)

	listStyle, detailStyle := m.styles.Border, m.styles.Border
	if m.activePane == PaneList {
		listStyle = m.styles.ActiveBorder
	} else {
		detailStyle = m.styles.ActiveBorder
	}

	list := listStyle.Width(panelWidth).Render(m.renderList(panelWidth - 4))
	detail := detailStyle.Width(panelWidth).Render(m.styles.Detail.Render(m.viewport.View()))
	return lipgloss.JoinHorizontal(lipgloss.Top, list, " ", detail)
}

// renderList shows a window of rows that keeps the cursor visible.
func (m BrowseModel) renderList(width int) string {
	rows := max(m.height-10, 3)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.visible))

	var lines []string
	for i := start; i < end; i++ {
		it := m.session.Items[m.visible[i]]
		line := SeverityColor(it.Violation.Severity).Render(string(it.Violation.Severity)) + " " +
			truncate(it.Title(), width-6)
		if i == m.cursor {
			line = m.styles.ActiveRow.Render("> " + line)
		} else {
			line = m.styles.Row.Render("  " + line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return m.styles.Help.Render("no match")
	}
	return strings.Join(lines, "\n")
}

func truncate(line string, maxWidth int) string {
	r := []rune(line)
	if len(r) <= maxWidth {
		return line
	}
	if maxWidth < 3 {
		return "..."
	}
	return string(r[:maxWidth-3]) + "..."
}

func (m BrowseModel) renderBottom() string {
	if m.filterMode {
		return m.styles.Help.Render("Filter: " + m.textInput.View())
	}
	return m.styles.Help.Render(m.help.View(m.keys))
}
