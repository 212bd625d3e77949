package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"docnexus/internal/adapter/tui/theme"
)

// CommandDef defines a slash command for autocomplete.
type CommandDef struct {
	Name        string // e.g. "/open"
	Args        string // e.g. "<thread-id|n>"
	Description string
}

// Usage returns the command with its argument synopsis.
func (c CommandDef) Usage() string {
	if c.Args == "" {
		return c.Name
	}
	return c.Name + " " + c.Args
}

// AutocompleteModel is the slash-command popup above the input. Commands
// whose name starts with the typed text come first, in declaration order,
// followed by fuzzy matches ranked by score.
type AutocompleteModel struct {
	Commands []CommandDef
	Filtered []CommandDef
	Selected int
	Visible  bool
	// hits holds the matched rune positions of each filtered name.
	hits    [][]int
	maxShow int
	width   int
}

// NewAutocomplete creates an autocomplete model with the given commands.
func NewAutocomplete(commands []CommandDef) AutocompleteModel {
	return AutocompleteModel{Commands: commands, maxShow: 7}
}

// SetWidth updates the popup width.
func (m *AutocompleteModel) SetWidth(w int) {
	m.width = w
}

// SetPrefix refilters the commands against the typed text.
func (m *AutocompleteModel) SetPrefix(prefix string) {
	prefix = strings.ToLower(prefix)
	m.Filtered, m.hits = nil, nil
	if prefix == "" {
		m.Hide()
		return
	}

	names := make([]string, len(m.Commands))
	taken := make([]bool, len(m.Commands))
	for i, c := range m.Commands {
		names[i] = strings.ToLower(c.Name)
		if strings.HasPrefix(names[i], prefix) {
			m.add(i, seq(len([]rune(prefix))))
			taken[i] = true
		}
	}
	for _, match := range fuzzy.Find(prefix, names) {
		if !taken[match.Index] {
			m.add(match.Index, match.MatchedIndexes)
		}
	}

	m.Visible = len(m.Filtered) > 0
	if m.Selected >= len(m.Filtered) {
		m.Selected = 0
	}
}

func (m *AutocompleteModel) add(i int, hit []int) {
	m.Filtered = append(m.Filtered, m.Commands[i])
	m.hits = append(m.hits, hit)
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Hide hides the popup.
func (m *AutocompleteModel) Hide() {
	m.Visible = false
	m.Filtered, m.hits = nil, nil
	m.Selected = 0
}

// SelectNext moves selection down, wrapping.
func (m *AutocompleteModel) SelectNext() {
	if n := len(m.Filtered); n > 0 {
		m.Selected = (m.Selected + 1) % n
	}
}

// SelectPrev moves selection up, wrapping.
func (m *AutocompleteModel) SelectPrev() {
	if n := len(m.Filtered); n > 0 {
		m.Selected = (m.Selected - 1 + n) % n
	}
}

// Accept returns the selected command name and hides the popup.
func (m *AutocompleteModel) Accept() string {
	if len(m.Filtered) == 0 {
		return ""
	}
	name := m.Filtered[m.Selected].Name
	m.Hide()
	return name
}

// Height returns how many lines the popup occupies.
func (m AutocompleteModel) Height() int {
	if !m.Visible {
		return 0
	}
	return min(len(m.Filtered), m.maxShow) + 2
}

// View renders the popup, or "" when hidden.
func (m AutocompleteModel) View() string {
	if !m.Visible || len(m.Filtered) == 0 {
		return ""
	}
	const usageW = 20
	descW := max(m.width-4, 30) - usageW - 4

	// Keep the selection on screen when it moves past the last shown row.
	start := 0
	if m.Selected >= m.maxShow {
		start = m.Selected - m.maxShow + 1
	}
	end := min(start+m.maxShow, len(m.Filtered))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		cmd := m.Filtered[i]
		usage := highlight(cmd.Name, m.hits[i])
		if cmd.Args != "" {
			usage += " " + theme.Dim.Render(cmd.Args)
		}
		if pad := usageW - lipgloss.Width(usage); pad > 0 {
			usage += strings.Repeat(" ", pad)
		}
		marker := "  "
		if i == m.Selected {
			marker = theme.TextInfo.Render(theme.SymbolArrowR + " ")
		}
		lines = append(lines, marker+usage+" "+theme.TextMuted.Render(clip(cmd.Description, descW)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorderActive).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// highlight bolds the runes of name at the given positions.
func highlight(name string, at []int) string {
	if len(at) == 0 {
		return name
	}
	hit := make(map[int]bool, len(at))
	for _, i := range at {
		hit[i] = true
	}
	var sb strings.Builder
	for i, r := range []rune(name) {
		if hit[i] {
			sb.WriteString(theme.TextInfo.Render(string(r)))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
