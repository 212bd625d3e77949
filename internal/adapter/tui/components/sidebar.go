package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/adapter/tui/theme"
)

// Focus identifies which side of the chat screen receives scroll keys.
type Focus int

const (
	FocusMain Focus = iota
	FocusSidebar
)

const (
	minSidebarWidth = 32
	maxSidebarWidth = 60
)

// SidebarModel lays the conversation out next to an optional right-hand
// pane holding tool calls or bus activity. The sidebar takes about a third
// of the width and is never shown below theme.MinSplitWidth columns.
type SidebarModel struct {
	Open   bool
	Focus  Focus
	width  int
	height int
}

// NewSidebar returns a closed sidebar.
func NewSidebar() SidebarModel {
	return SidebarModel{}
}

// SetSize records the space shared by both sides. Shrinking below the
// minimum width closes the sidebar.
func (m *SidebarModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if w < theme.MinSplitWidth {
		m.close()
	}
}

// Toggle opens or closes the sidebar and reports whether it is open.
func (m *SidebarModel) Toggle() bool {
	if m.Open {
		m.close()
		return false
	}
	if m.width < theme.MinSplitWidth {
		return false
	}
	m.Open = true
	return true
}

func (m *SidebarModel) close() {
	m.Open = false
	m.Focus = FocusMain
}

// ToggleFocus flips focus between the conversation and an open sidebar.
func (m *SidebarModel) ToggleFocus() {
	if !m.Open {
		return
	}
	if m.Focus == FocusMain {
		m.Focus = FocusSidebar
	} else {
		m.Focus = FocusMain
	}
}

// SidebarFocused reports whether scroll keys go to the sidebar.
func (m SidebarModel) SidebarFocused() bool {
	return m.Open && m.Focus == FocusSidebar
}

// SideWidth is the sidebar width, 0 when closed.
func (m SidebarModel) SideWidth() int {
	if !m.Open {
		return 0
	}
	return theme.Clamp(m.width/3, minSidebarWidth, maxSidebarWidth)
}

// MainWidth is the conversation width.
func (m SidebarModel) MainWidth() int {
	if !m.Open {
		return m.width
	}
	return m.width - m.SideWidth() - 1
}

// Height returns the shared content height.
func (m SidebarModel) Height() int {
	return m.height
}

// Render places side to the right of main behind a one-column rule that is
// highlighted while the sidebar has focus.
func (m SidebarModel) Render(main, side string) string {
	if !m.Open {
		return main
	}
	color := theme.ColorBorder
	if m.Focus == FocusSidebar {
		color = theme.ColorBorderActive
	}
	rule := lipgloss.NewStyle().Foreground(color).Render("│")
	col := strings.TrimSuffix(strings.Repeat(rule+"\n", m.height), "\n")

	main = lipgloss.NewStyle().Width(m.MainWidth()).MaxHeight(m.height).Render(main)
	side = lipgloss.NewStyle().Width(m.SideWidth()).MaxHeight(m.height).Render(side)
	return lipgloss.JoinHorizontal(lipgloss.Top, main, col, side)
}
