package components

import (
	"fmt"
	"strconv"
	"strings"

	"docnexus/internal/adapter/tui/theme"
)

// FilterOption defines a single filter choice.
type FilterOption struct {
	ID       string // chunk type, e.g. "Table"
	Label    string
	Shortcut string // single key shortcut
}

// FilterBarModel renders a horizontal filter bar with keyboard shortcuts.
type FilterBarModel struct {
	Options  []FilterOption
	Active   string // currently active filter ID; empty = show all
	Total    int
	Filtered int
	width    int
}

// NewFilterBar creates a filter bar with the given options.
func NewFilterBar(options []FilterOption) FilterBarModel {
	return FilterBarModel{Options: options}
}

// OptionsFor numbers ids 1-9 as shortcuts. Ids past the ninth get no
// shortcut but still show.
func OptionsFor(ids []string) []FilterOption {
	opts := make([]FilterOption, len(ids))
	for i, id := range ids {
		opts[i] = FilterOption{ID: id, Label: id}
		if i < 9 {
			opts[i].Shortcut = strconv.Itoa(i + 1)
		}
	}
	return opts
}

// SetOptions replaces the options, clearing an active filter that no longer exists.
func (m *FilterBarModel) SetOptions(options []FilterOption) {
	m.Options = options
	for _, o := range options {
		if o.ID == m.Active {
			return
		}
	}
	m.Active = ""
}

// SetWidth updates the bar width.
func (m *FilterBarModel) SetWidth(w int) {
	m.width = w
}

// Toggle activates a filter. Calling with the same ID again clears the filter.
func (m *FilterBarModel) Toggle(id string) {
	if m.Active == id {
		m.Active = ""
	} else {
		m.Active = id
	}
}

// HandleShortcut checks if the key matches any filter shortcut.
// Returns true if the key was consumed.
func (m *FilterBarModel) HandleShortcut(key string) bool {
	if key == "0" {
		m.Active = ""
		return true
	}
	for _, opt := range m.Options {
		if opt.Shortcut != "" && opt.Shortcut == key {
			m.Toggle(opt.ID)
			return true
		}
	}
	return false
}

// SetCounts updates the total and filtered counts.
func (m *FilterBarModel) SetCounts(total, filtered int) {
	m.Total = total
	m.Filtered = filtered
}

// View renders the filter bar.
func (m FilterBarModel) View() string {
	render := func(active bool, label string) string {
		if active {
			return theme.TextInfo.Render(label)
		}
		return theme.TextMuted.Render(label)
	}

	parts := []string{render(m.Active == "", "[0] All")}
	for _, opt := range m.Options {
		label := opt.Label
		if opt.Shortcut != "" {
			label = fmt.Sprintf("[%s] %s", opt.Shortcut, opt.Label)
		}
		parts = append(parts, render(m.Active == opt.ID, label))
	}

	bar := "  Type: " + strings.Join(parts, "  ")
	if m.Total > 0 {
		bar += theme.Dim.Render(fmt.Sprintf("  Showing %d/%d", m.Filtered, m.Total))
	}
	return bar
}
