package components

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/domain"
)

// DetailModel is a full-screen overlay showing one tool call or one chunk
// in full.
type DetailModel struct {
	Viewport viewport.Model
	Title    string
	// Meta is the dimmed line under the title: status and id for a tool
	// call, page, size and source for a chunk.
	Meta    string
	Visible bool
	body    string
	width   int
	height  int
}

// NewDetail returns a hidden detail overlay.
func NewDetail() DetailModel {
	return DetailModel{width: 80, height: 24}
}

// OpenToolCall shows a tool call's arguments and complete output. JSON
// output is indented.
func (m *DetailModel) OpenToolCall(tc domain.ToolCallRecord) {
	meta := string(tc.Status)
	if tc.ID != "" {
		meta += "  id " + tc.ID
	}
	var body strings.Builder
	if args := indentJSON([]byte(tc.Args)); args != "" {
		body.WriteString(theme.TextMuted.Render("Arguments") + "\n" + args + "\n\n")
	}
	body.WriteString(theme.TextMuted.Render("Output") + "\n")
	switch {
	case tc.Output == "" && tc.Status == domain.ToolCalling:
		body.WriteString(theme.Dim.Render("still running"))
	case tc.Output == "":
		body.WriteString(theme.Dim.Render("(empty)"))
	default:
		if pretty := indentJSON([]byte(tc.Output)); pretty != "" {
			body.WriteString(pretty)
		} else {
			body.WriteString(tc.Output)
		}
	}
	m.open(theme.SymbolTool+" "+tc.Name, meta, body.String())
}

// OpenChunk shows chunk n of total.
func (m *DetailModel) OpenChunk(c domain.Chunk, n, total int) {
	meta := fmt.Sprintf("%d chars", c.Chars)
	if c.Page != nil {
		meta = fmt.Sprintf("page %d  %s", *c.Page, meta)
	}
	if c.Source != "" {
		meta += "  " + c.Source
	}
	m.open(fmt.Sprintf("%s chunk %d/%d", c.Type, n, total), meta, c.Content)
}

func (m *DetailModel) open(title, meta, body string) {
	m.Title = title
	m.Meta = meta
	m.body = body
	m.Visible = true
	m.Viewport = viewport.New(m.innerWidth(), m.innerHeight())
	m.Viewport.MouseWheelEnabled = true
	m.Viewport.SetContent(wrapText(body, m.innerWidth()))
}

// Close hides the overlay.
func (m *DetailModel) Close() {
	m.Visible = false
}

// SetSize updates the overlay size and rewraps an open body.
func (m *DetailModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.Visible {
		m.Viewport.Width = m.innerWidth()
		m.Viewport.Height = m.innerHeight()
		m.Viewport.SetContent(wrapText(m.body, m.innerWidth()))
	}
}

func (m DetailModel) innerWidth() int  { return max(m.width-6, 20) }
func (m DetailModel) innerHeight() int { return max(m.height-6, 3) }

// Update closes on Esc or q and scrolls on j/k and g/G. Other keys and the
// mouse wheel go to the viewport.
func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q":
			m.Close()
			return m, nil
		case "j", "down":
			m.Viewport.LineDown(1)
			return m, nil
		case "k", "up":
			m.Viewport.LineUp(1)
			return m, nil
		case "g", "home":
			m.Viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.Viewport.GotoBottom()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the overlay, or "" when hidden.
func (m DetailModel) View() string {
	if !m.Visible {
		return ""
	}
	header := theme.Bold.Render(m.Title)
	if m.Meta != "" {
		header += "  " + theme.TextMuted.Render(m.Meta)
	}
	footer := theme.Dim.Render(fmt.Sprintf("Esc/q close  j/k scroll  g/G top/bottom  %3.0f%%", m.Viewport.ScrollPercent()*100))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorderActive).
		Padding(0, 1).
		Width(m.width - 2).
		Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, "", m.Viewport.View(), footer))
}

// indentJSON returns raw re-indented, or "" when raw is empty or not JSON.
func indentJSON(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" || !json.Valid(raw) {
		return ""
	}
	// Bare strings and numbers read better unquoted.
	if raw[0] != '{' && raw[0] != '[' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return string(raw)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return ""
	}
	return buf.String()
}
