// Package components provides reusable Bubble Tea sub-models for the TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/adapter/tui/theme"
)

// maxTabLabel bounds a thread title shown on a tab.
const maxTabLabel = 24

// Tab represents a single tab entry.
type Tab struct {
	ID    string
	Label string
}

// TabBarModel is a horizontal bar of recent threads. The parent model
// routes Ctrl+N/Ctrl+P to Next()/Prev() and opens the active tab's thread.
type TabBarModel struct {
	Tabs      []Tab
	Active    int // -1 when the displayed thread has no tab yet
	width     int
	collapsed bool
}

// NewTabBar creates a tab bar with the given tabs. The first tab is active.
func NewTabBar(tabs []Tab) TabBarModel {
	return TabBarModel{Tabs: tabs}
}

// SetWidth updates the available width and determines if tabs should collapse.
func (m *TabBarModel) SetWidth(w int) {
	m.width = w
	m.collapsed = w < theme.MinTabWidth
}

// SetTabs replaces the tabs and marks activeID, if present, as active.
func (m *TabBarModel) SetTabs(tabs []Tab, activeID string) {
	m.Tabs = tabs
	m.SelectID(activeID)
}

// SelectID activates the tab with the given id; unknown ids leave no tab active.
func (m *TabBarModel) SelectID(id string) {
	m.Active = -1
	for i, t := range m.Tabs {
		if t.ID == id {
			m.Active = i
			return
		}
	}
}

// ActiveID returns the id of the active tab, or "".
func (m TabBarModel) ActiveID() string {
	if m.Active < 0 || m.Active >= len(m.Tabs) {
		return ""
	}
	return m.Tabs[m.Active].ID
}

// Next advances to the next tab, wrapping around.
func (m *TabBarModel) Next() {
	if len(m.Tabs) == 0 {
		return
	}
	m.Active = (m.Active + 1) % len(m.Tabs)
}

// Prev moves to the previous tab, wrapping around.
func (m *TabBarModel) Prev() {
	if len(m.Tabs) == 0 {
		return
	}
	if m.Active < 0 {
		m.Active = 0
	}
	m.Active = (m.Active - 1 + len(m.Tabs)) % len(m.Tabs)
}

// View renders the tab bar.
func (m TabBarModel) View() string {
	if len(m.Tabs) == 0 {
		return theme.TextMuted.Render(" New chat")
	}

	if m.collapsed {
		label := theme.TabNormal.Render("New chat")
		pos := "-"
		if m.Active >= 0 {
			label = theme.TabActive.Render(clip(m.Tabs[m.Active].Label, maxTabLabel))
			pos = strconv.Itoa(m.Active + 1)
		}
		counter := theme.Dim.Render("[" + pos + "/" + strconv.Itoa(len(m.Tabs)) + "]")
		return lipgloss.JoinHorizontal(lipgloss.Center, label, " ", counter)
	}

	var parts []string
	used := 0
	for i, t := range m.Tabs {
		style := theme.TabNormal
		if i == m.Active {
			style = theme.TabActive
		}
		part := style.Render(clip(t.Label, maxTabLabel))
		w := lipgloss.Width(part)
		if m.width > 0 && used+w > m.width {
			break
		}
		used += w
		parts = append(parts, part)
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center, parts...)
	if m.width > 0 {
		bg := theme.TabNormal.UnsetPadding()
		if remaining := m.width - lipgloss.Width(bar); remaining > 0 {
			bar += bg.Render(strings.Repeat(" ", remaining))
		}
	}
	return bar
}
