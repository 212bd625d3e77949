package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/domain"
)

// MessageRole identifies the sender of a chat message.
type MessageRole string

const (
	RoleUser   MessageRole = "user"
	RoleBot    MessageRole = "bot"
	RoleSystem MessageRole = "system"
	RoleError  MessageRole = "error"
)

// ChatMessage represents a single message in the chat history.
type ChatMessage struct {
	Role      MessageRole
	Content   string
	Rendered  string // cached glamour output; empty means not yet rendered
	Timestamp time.Time
	Reasoning []domain.ReasoningEntry
	ToolCalls []domain.ToolCallRecord
	// Streaming marks the in-progress bot message of the current turn.
	Streaming bool
}

// FromDomain converts a finalised conversation message for display.
func FromDomain(m domain.Message) ChatMessage {
	role := RoleBot
	if m.Role == domain.RoleUser {
		role = RoleUser
	}
	return ChatMessage{
		Role:      role,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
		Reasoning: m.Reasoning,
		ToolCalls: m.ToolCalls,
	}
}

// MessageListModel manages an ordered list of chat messages with optional ring buffer.
type MessageListModel struct {
	Messages    []ChatMessage
	MaxMessages int // 0 = unlimited; positive = ring buffer cap
	// Markdown enables glamour rendering of bot messages.
	Markdown   bool
	trimCount  int
	width      int
	mdRenderer *glamour.TermRenderer
}

// NewMessageList creates an empty message list.
func NewMessageList() MessageListModel {
	return MessageListModel{Markdown: true}
}

// SetWidth updates the rendering width and clears cached renders.
func (m *MessageListModel) SetWidth(w int) {
	if w == m.width {
		return
	}
	m.width = w
	m.mdRenderer = nil
	for i := range m.Messages {
		m.Messages[i].Rendered = ""
	}
}

// SetMaxMessages sets the ring buffer capacity. 0 means unlimited.
func (m *MessageListModel) SetMaxMessages(max int) {
	m.MaxMessages = max
}

// TrimmedIndicator returns a message if older messages were trimmed, empty otherwise.
func (m *MessageListModel) TrimmedIndicator() string {
	if m.trimCount == 0 {
		return ""
	}
	return fmt.Sprintf("(%d older messages trimmed)", m.trimCount)
}

// Add appends a message. If MaxMessages is set, trims oldest messages.
func (m *MessageListModel) Add(msg ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.Messages = append(m.Messages, msg)
	if m.MaxMessages > 0 && len(m.Messages) > m.MaxMessages {
		excess := len(m.Messages) - m.MaxMessages
		m.Messages = m.Messages[excess:]
		m.trimCount += excess
	}
}

// SetAll replaces the whole list, as when a thread is opened.
func (m *MessageListModel) SetAll(msgs []ChatMessage) {
	m.Messages = nil
	m.trimCount = 0
	for _, msg := range msgs {
		m.Add(msg)
	}
}

// Clear removes all messages.
func (m *MessageListModel) Clear() {
	m.Messages = nil
	m.trimCount = 0
}

// ReplaceStreaming swaps the in-progress bot message for msg, appending one
// if the turn has none yet.
func (m *MessageListModel) ReplaceStreaming(msg ChatMessage) {
	if n := len(m.Messages); n > 0 && m.Messages[n-1].Streaming {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = m.Messages[n-1].Timestamp
		}
		m.Messages[n-1] = msg
		return
	}
	m.Add(msg)
}

// DropStreaming removes the in-progress bot message, if any.
func (m *MessageListModel) DropStreaming() {
	if n := len(m.Messages); n > 0 && m.Messages[n-1].Streaming {
		m.Messages = m.Messages[:n-1]
	}
}

// View renders all messages as a single string.
func (m *MessageListModel) View() string {
	if len(m.Messages) == 0 {
		return theme.TextMuted.Render("  No messages yet. Ask something about your documents!")
	}

	contentWidth := ContentWidth(m.width)

	var sb strings.Builder
	if indicator := m.TrimmedIndicator(); indicator != "" {
		sb.WriteString(theme.TextMuted.Render("  "+indicator) + "\n\n")
	}
	for i := range m.Messages {
		msg := &m.Messages[i]
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(msg, contentWidth))
	}
	return sb.String()
}

func (m *MessageListModel) renderMessage(msg *ChatMessage, width int) string {
	label := roleLabel(msg.Role)
	ts := RelativeTime(msg.Timestamp)
	header := label + " " + theme.Timestamp.Render(ts)
	headerWidth := lipgloss.Width(header)

	var pre strings.Builder
	pre.WriteString(RenderReasoning(msg.Reasoning, width))
	pre.WriteString(renderToolSummary(msg.ToolCalls, width))

	var body string
	switch msg.Role {
	case RoleBot:
		if msg.Streaming || !m.Markdown {
			// Partial markdown re-renders badly; wrap until the turn ends.
			body = "  " + wrapText(msg.Content, width-2)
			if msg.Streaming {
				body += theme.TextMuted.Render(" " + theme.SymbolEllipsis)
			}
		} else {
			if msg.Rendered == "" {
				msg.Rendered = m.renderMarkdown(msg.Content, width)
			}
			body = strings.TrimRight(msg.Rendered, "\n ")
		}
		if strings.TrimSpace(msg.Content) == "" && !msg.Streaming {
			body = ""
		}
	case RoleError:
		body = theme.TextError.Render(wrapText(msg.Content, width-2))
	default:
		inlineW := width - headerWidth - 2
		if inlineW < 20 {
			inlineW = width - 2
		}
		body = wrapText(msg.Content, inlineW)
	}

	if pre.Len() > 0 || msg.Role == RoleBot {
		out := header + "\n" + pre.String()
		return strings.TrimRight(out+body, "\n")
	}
	if body == "" {
		return header
	}
	if width-headerWidth-2 < 20 {
		return header + "\n  " + body
	}

	lines := strings.SplitN(body, "\n", 2)
	result := header + "  " + strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		result += "\n" + lines[1]
	}
	return result
}

// RenderReasoning renders the reasoning log: pipeline steps with a gear,
// thoughts dimmed. Empty thought entries are skipped.
func RenderReasoning(entries []domain.ReasoningEntry, width int) string {
	if len(entries) == 0 {
		return ""
	}
	var lines []string
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		switch e.Kind {
		case domain.ReasoningStep:
			lines = append(lines, theme.ReasoningStep.Render(theme.SymbolGear+wrapText(text, width-6)))
		default:
			if text == "" {
				continue
			}
			lines = append(lines, theme.ReasoningThought.Render(wrapText(text, width-6)))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return theme.ReasoningBox.Render(strings.Join(lines, "\n")) + "\n"
}

// renderToolSummary renders a compact list of tool calls used during a response.
func renderToolSummary(tools []domain.ToolCallRecord, width int) string {
	if len(tools) == 0 {
		return ""
	}
	maxNameLen := width - 16
	if maxNameLen < 10 {
		maxNameLen = 10
	}

	var sb strings.Builder
	for _, tc := range tools {
		icon := theme.TextSuccess.Render(theme.SymbolSuccess)
		if tc.Status == domain.ToolCalling {
			icon = theme.TextWarning.Render(theme.SymbolActive)
		}
		name := tc.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-1] + theme.SymbolEllipsis
		}
		sb.WriteString("  " + icon + " " + theme.Dim.Render(theme.SymbolTool+" "+name) + "\n")
	}
	return sb.String()
}

func roleLabel(role MessageRole) string {
	switch role {
	case RoleUser:
		return theme.UserLabel.Render(theme.SymbolUser)
	case RoleBot:
		return theme.BotLabel.Render(theme.SymbolBot)
	case RoleSystem:
		return theme.SystemLabel.Render("System")
	case RoleError:
		return theme.ErrorLabel.Render(theme.SymbolError + " Error")
	default:
		return theme.TextMuted.Render(string(role))
	}
}

func (m *MessageListModel) renderMarkdown(content string, width int) string {
	if m.mdRenderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "  " + content
		}
		m.mdRenderer = r
	}
	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		return "  " + content
	}
	return rendered
}

// RelativeTime returns a human-readable relative time string.
func RelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2 15:04")
	}
}

// wrapText wraps text to the given width with a 2-space indent on continuation lines.
// Existing newlines are kept. Rune-based so multibyte text wraps cleanly.
func wrapText(s string, width int) string {
	paras := strings.Split(s, "\n")
	for i, p := range paras {
		paras[i] = wrapLine(p, width)
	}
	return strings.Join(paras, "\n  ")
}

func wrapLine(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	var lines []string
	for len(runes) > width {
		idx := -1
		for i := width - 1; i > 0; i-- {
			if runes[i] == ' ' {
				idx = i
				break
			}
		}
		if idx <= 0 {
			idx = width
		}
		lines = append(lines, string(runes[:idx]))
		runes = runes[idx:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return strings.Join(lines, "\n  ")
}

// TruncatePath truncates a file path with an ellipsis in the middle.
// e.g. "/home/user/very/deep/nested/path/file.pdf" -> "/home/.../path/file.pdf"
func TruncatePath(path string, maxLen int) string {
	if len(path) <= maxLen || maxLen < 10 {
		return path
	}
	parts := strings.Split(path, "/")
	if len(parts) <= 3 {
		return path[:maxLen-1] + theme.SymbolEllipsis
	}
	result := parts[0] + "/" + theme.SymbolEllipsis + "/" + strings.Join(parts[len(parts)-2:], "/")
	if len(result) > maxLen {
		return path[:maxLen-1] + theme.SymbolEllipsis
	}
	return result
}

// ContentWidth calculates the content width respecting MaxContentWidth.
func ContentWidth(termWidth int) int {
	w := termWidth - 4
	if w > theme.MaxContentWidth {
		w = theme.MaxContentWidth
	}
	if w < 40 {
		w = 40
	}
	return w
}

// Divider renders a horizontal line at the given width.
func Divider(width int) string {
	return lipgloss.NewStyle().
		Foreground(theme.ColorBorder).
		Render(strings.Repeat("─", width))
}
