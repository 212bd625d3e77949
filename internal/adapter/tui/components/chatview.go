package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// ChatViewModel wraps a viewport with smart auto-scroll behavior.
// Auto-scroll is active when the user is at the bottom.
// If the user scrolls up, auto-scroll pauses.
// It resumes when the user scrolls back to the bottom.
type ChatViewModel struct {
	Viewport viewport.Model
	Messages MessageListModel
	ready    bool
	atBottom bool
}

// NewChatView creates a chat view. The viewport is initialized lazily on the first WindowSizeMsg.
func NewChatView() ChatViewModel {
	return ChatViewModel{
		Messages: NewMessageList(),
		atBottom: true,
	}
}

// SetMaxMessages sets the ring buffer capacity for the message list.
func (m *ChatViewModel) SetMaxMessages(max int) {
	m.Messages.SetMaxMessages(max)
}

// SetSize sets the viewport dimensions and triggers content re-render.
func (m *ChatViewModel) SetSize(w, h int) {
	m.Messages.SetWidth(w)
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.Viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refreshContent()
}

// AddMessage appends a message and scrolls to bottom if auto-scroll is active.
func (m *ChatViewModel) AddMessage(msg ChatMessage) {
	m.Messages.Add(msg)
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// SetStreaming shows msg as the in-progress bot message of the turn.
func (m *ChatViewModel) SetStreaming(msg ChatMessage) {
	msg.Streaming = true
	m.Messages.ReplaceStreaming(msg)
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// FinishStreaming replaces the in-progress message with the final one.
// A nil msg just drops it.
func (m *ChatViewModel) FinishStreaming(msg *ChatMessage) {
	if msg == nil {
		m.Messages.DropStreaming()
	} else {
		msg.Streaming = false
		m.Messages.ReplaceStreaming(*msg)
	}
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// SetMessages replaces the conversation, as when a thread is opened.
func (m *ChatViewModel) SetMessages(msgs []ChatMessage) {
	m.Messages.SetAll(msgs)
	m.refreshContent()
	m.atBottom = true
	m.Viewport.GotoBottom()
}

// SetMarkdown toggles glamour rendering of bot messages.
func (m *ChatViewModel) SetMarkdown(on bool) {
	m.Messages.Markdown = on
}

// Clear removes all messages and resets the viewport.
func (m *ChatViewModel) Clear() {
	m.Messages.Clear()
	m.refreshContent()
	m.atBottom = true
	m.Viewport.GotoTop()
}

// Update handles viewport scrolling and tracks auto-scroll state.
func (m ChatViewModel) Update(msg tea.Msg) (ChatViewModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)

	// Track whether user is at the bottom for smart auto-scroll.
	m.atBottom = m.Viewport.AtBottom()

	return m, cmd
}

// RenderedLines returns the viewport content line by line, so a line index
// is also a viewport offset. Lines keep their styling.
func (m ChatViewModel) RenderedLines() []string {
	return strings.Split(m.Messages.View(), "\n")
}

// View renders the chat viewport.
func (m ChatViewModel) View() string {
	if !m.ready {
		return "  Initializing..."
	}
	return m.Viewport.View()
}

func (m *ChatViewModel) refreshContent() {
	if !m.ready {
		return
	}
	content := m.Messages.View()
	m.Viewport.SetContent(content)
}
