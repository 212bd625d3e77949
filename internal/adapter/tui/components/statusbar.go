package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Send"
}

// StatusBarModel renders a bottom status bar with keybinding hints and
// session info.
type StatusBarModel struct {
	Hints    []KeyHint
	User     string
	ThreadID string
	// Degraded is shown while the API circuit breaker is not closed.
	Degraded string
	Extra    string // transient status, e.g. "Thinking..."
	width    int
}

// NewStatusBar creates a status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var parts []string
	if m.User != "" {
		parts = append(parts, m.User)
	} else {
		parts = append(parts, "guest")
	}
	if m.ThreadID != "" {
		parts = append(parts, shortID(m.ThreadID))
	}
	right := theme.TextMuted.Render(strings.Join(parts, " "+theme.SymbolBullet+" "))

	if m.Degraded != "" {
		right = theme.TextWarning.Render(theme.SymbolWarning+" "+m.Degraded) + "  " + right
	}
	if m.Extra != "" {
		right += "  " + theme.TextInfo.Render(m.Extra)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return theme.StatusBar.Width(m.width).Render(bar)
}

// shortID abbreviates a UUID to its first group.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
