package components

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/domain"
)

// maxResultLines bounds the inline preview of a tool output.
const maxResultLines = 10

// ToolOutputModel displays the tool calls of the current turn in a
// scrollable pane.
type ToolOutputModel struct {
	Viewport viewport.Model
	calls    []domain.ToolCallRecord
	ready    bool
	width    int
	height   int
}

// NewToolOutput creates a tool output pane.
func NewToolOutput() ToolOutputModel {
	return ToolOutputModel{}
}

// SetSize sets the pane dimensions.
func (m *ToolOutputModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refreshContent()
}

// SetCalls replaces the displayed tool calls with the latest snapshot.
func (m *ToolOutputModel) SetCalls(calls []domain.ToolCallRecord) {
	m.calls = calls
	m.refreshContent()
	m.Viewport.GotoBottom()
}

// Calls returns the displayed tool calls.
func (m *ToolOutputModel) Calls() []domain.ToolCallRecord {
	return m.calls
}

// Call returns the call at index i.
func (m *ToolOutputModel) Call(i int) (domain.ToolCallRecord, bool) {
	if i < 0 || i >= len(m.calls) {
		return domain.ToolCallRecord{}, false
	}
	return m.calls[i], true
}

// LastCompletedIdx returns the index of the most recent completed call, or -1.
func (m *ToolOutputModel) LastCompletedIdx() int {
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Status == domain.ToolCompleted {
			return i
		}
	}
	return -1
}

// Clear removes all calls.
func (m *ToolOutputModel) Clear() {
	m.calls = nil
	m.refreshContent()
}

// Update handles viewport scrolling.
func (m ToolOutputModel) Update(msg tea.Msg) (ToolOutputModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the tool output pane.
func (m ToolOutputModel) View() string {
	if !m.ready {
		return ""
	}
	header := theme.Bold.Render(" Tools")
	return header + "\n" + m.Viewport.View()
}

func (m *ToolOutputModel) refreshContent() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(RenderToolCalls(m.calls, m.width))
}

// RenderToolCalls renders tool calls with their arguments and a truncated
// preview of their output.
func RenderToolCalls(calls []domain.ToolCallRecord, width int) string {
	if len(calls) == 0 {
		return theme.TextMuted.Render("  No tool calls yet")
	}
	contentWidth := width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	var sb strings.Builder
	for i, c := range calls {
		if i > 0 {
			sb.WriteString("\n" + Divider(width-2) + "\n")
		}
		icon := theme.TextSuccess.Render(theme.SymbolSuccess)
		if c.Status == domain.ToolCalling {
			icon = theme.TextInfo.Render(theme.SymbolSpinner)
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n", icon, theme.Bold.Render(c.Name)))

		if args := compactArgs(c.Args); args != "" {
			sb.WriteString("  " + theme.TextMuted.Render("Args: ") + clip(args, contentWidth-6) + "\n")
		}

		if c.Output == "" {
			continue
		}
		lines := strings.Split(c.Output, "\n")
		truncated := len(lines) > maxResultLines
		if truncated {
			lines = lines[:maxResultLines]
		}
		sb.WriteString(theme.TextMuted.Render("  Output:") + "\n")
		for _, line := range lines {
			sb.WriteString("  " + clip(line, contentWidth) + "\n")
		}
		if truncated {
			sb.WriteString(theme.Dim.Render(fmt.Sprintf("  %s %d more lines (press Enter to view full output)",
				theme.SymbolEllipsis, len(strings.Split(c.Output, "\n"))-maxResultLines)) + "\n")
		}
	}
	return sb.String()
}

func compactArgs(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + theme.SymbolEllipsis
}
