package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"docnexus/internal/adapter/tui/theme"
)

// SearchMode tracks the current state of inline search.
type SearchMode int

const (
	SearchInactive SearchMode = iota
	SearchInput               // typing the query
	SearchActive              // query committed, stepping through matches
)

// SearchBarModel is the "/" search line. The chat screen matches the
// committed query against its rendered lines and steps between them; the
// chunk browser filters on Live() while the query is typed.
type SearchBarModel struct {
	Mode  SearchMode
	Query string
	Input textinput.Model
	// Matches holds the indices of matching lines; cur indexes Matches.
	Matches []int
	cur     int
}

// NewSearchBar creates an inactive search bar.
func NewSearchBar(placeholder string) SearchBarModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "/ "
	ti.Width = 30
	ti.PromptStyle = theme.TextInfo
	ti.PlaceholderStyle = theme.Dim
	return SearchBarModel{Input: ti}
}

// SetWidth sizes the query input.
func (m *SearchBarModel) SetWidth(w int) {
	m.Input.Width = max(w-20, 10)
}

// Activate opens an empty query input.
func (m *SearchBarModel) Activate() {
	m.reset()
	m.Mode = SearchInput
	m.Input.SetValue("")
	m.Input.Focus()
}

// Deactivate closes search and forgets the query.
func (m *SearchBarModel) Deactivate() {
	m.reset()
	m.Mode = SearchInactive
	m.Input.Blur()
}

func (m *SearchBarModel) reset() {
	m.Query = ""
	m.Matches = nil
	m.cur = 0
}

// Live returns the query as typed so far.
func (m SearchBarModel) Live() string {
	if m.Mode == SearchInput {
		return m.Input.Value()
	}
	return m.Query
}

// Search matches the committed query case-insensitively against lines,
// ignoring terminal styling, and selects the first match.
func (m *SearchBarModel) Search(lines []string) {
	m.Matches = nil
	m.cur = 0
	if m.Query == "" {
		return
	}
	q := strings.ToLower(m.Query)
	for i, line := range lines {
		if strings.Contains(strings.ToLower(ansi.Strip(line)), q) {
			m.Matches = append(m.Matches, i)
		}
	}
}

// Current returns the line of the selected match, or -1.
func (m SearchBarModel) Current() int {
	if len(m.Matches) == 0 {
		return -1
	}
	return m.Matches[m.cur]
}

// Step moves the selection by delta, wrapping, and returns its line or -1.
func (m *SearchBarModel) Step(delta int) int {
	n := len(m.Matches)
	if n == 0 {
		return -1
	}
	m.cur = ((m.cur+delta)%n + n) % n
	return m.Matches[m.cur]
}

// Update edits the query. Enter commits it and Esc closes the bar.
func (m SearchBarModel) Update(msg tea.Msg) (SearchBarModel, tea.Cmd) {
	if m.Mode == SearchInactive {
		return m, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			m.Deactivate()
			return m, nil
		case tea.KeyEnter:
			if m.Mode == SearchInput {
				m.Query = strings.TrimSpace(m.Input.Value())
				m.Mode = SearchActive
				m.Input.Blur()
			}
			return m, nil
		}
	}
	if m.Mode != SearchInput {
		return m, nil
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// View renders the bar, or "" when inactive.
func (m SearchBarModel) View() string {
	switch m.Mode {
	case SearchInactive:
		return ""
	case SearchInput:
		return "  " + m.Input.View()
	}
	info := theme.TextWarning.Render("no matches")
	if len(m.Matches) > 0 {
		info = theme.TextMuted.Render(fmt.Sprintf("[%d/%d]", m.cur+1, len(m.Matches)))
	}
	return fmt.Sprintf("  /%s  %s  %s", theme.Bold.Render(m.Query), info, theme.Dim.Render("n:next N:prev Esc:close"))
}
