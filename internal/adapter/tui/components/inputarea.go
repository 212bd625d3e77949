package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/adapter/tui/theme"
)

// maxHistory bounds the recalled-input ring.
const maxHistory = 50

// InputSubmitMsg is sent when the user presses Enter to submit input.
type InputSubmitMsg struct {
	Value string
}

// InputAreaModel wraps a textarea with slash-command detection, autocomplete,
// input history and submit handling.
type InputAreaModel struct {
	Textarea     textarea.Model
	Autocomplete AutocompleteModel
	Enabled      bool
	width        int

	history []string
	// histPos indexes history while recalling; len(history) means "not recalling".
	histPos int
	draft   string
}

// NewInputArea creates an input area.
func NewInputArea() InputAreaModel {
	ta := textarea.New()
	ta.Placeholder = "Ask about your documents, or type / for commands..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = theme.InputPrompt
	ta.FocusedStyle.Placeholder = theme.InputPlaceholder
	ta.Focus()

	return InputAreaModel{
		Textarea: ta,
		Enabled:  true,
	}
}

// SetWidth updates the textarea width.
func (m *InputAreaModel) SetWidth(w int) {
	m.width = w
	m.Textarea.SetWidth(w - 2)
	m.Autocomplete.SetWidth(w)
}

// SetEnabled enables or disables input.
func (m *InputAreaModel) SetEnabled(enabled bool) {
	m.Enabled = enabled
	if enabled {
		m.Textarea.Focus()
	} else {
		m.Textarea.Blur()
	}
}

// Reset clears the input.
func (m *InputAreaModel) Reset() {
	m.Textarea.Reset()
}

// Value returns the current input text.
func (m InputAreaModel) Value() string {
	return m.Textarea.Value()
}

// History returns submitted inputs, oldest first.
func (m InputAreaModel) History() []string {
	return m.history
}

// IsSlashCommand checks if the current input starts with a slash.
func (m InputAreaModel) IsSlashCommand() bool {
	return strings.HasPrefix(strings.TrimSpace(m.Textarea.Value()), "/")
}

// ParseSlashCommand extracts command and args from slash command input.
func ParseSlashCommand(input string) (cmd string, args []string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}
	parts := strings.Fields(input)
	return strings.ToLower(parts[0]), parts[1:], true
}

func (m *InputAreaModel) remember(value string) {
	if n := len(m.history); n == 0 || m.history[n-1] != value {
		m.history = append(m.history, value)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
	}
	m.histPos = len(m.history)
	m.draft = ""
}

// recall moves through history by delta. It only acts on single-line input
// so the arrows still move the cursor in multi-line drafts.
func (m *InputAreaModel) recall(delta int) bool {
	if len(m.history) == 0 || m.Textarea.LineCount() > 1 {
		return false
	}
	pos := m.histPos + delta
	if pos < 0 || pos > len(m.history) {
		return false
	}
	if m.histPos == len(m.history) {
		m.draft = m.Textarea.Value()
	}
	m.histPos = pos
	if pos == len(m.history) {
		m.Textarea.SetValue(m.draft)
	} else {
		m.Textarea.SetValue(m.history[pos])
	}
	m.Textarea.CursorEnd()
	return true
}

// Update handles key events. Enter submits (unless Alt is held for newline).
// When the autocomplete popup is visible, Tab/arrow keys navigate it;
// otherwise Up/Down recall earlier inputs.
func (m InputAreaModel) Update(msg tea.Msg) (InputAreaModel, tea.Cmd) {
	if !m.Enabled {
		return m, nil
	}

	if _, ok := msg.(tea.MouseMsg); ok {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.Autocomplete.Visible {
			switch keyMsg.Type {
			case tea.KeyTab, tea.KeyDown:
				m.Autocomplete.SelectNext()
				return m, nil
			case tea.KeyShiftTab, tea.KeyUp:
				m.Autocomplete.SelectPrev()
				return m, nil
			case tea.KeyEnter:
				// Accept the selected command into the textarea (don't submit yet).
				if accepted := m.Autocomplete.Accept(); accepted != "" {
					m.Textarea.SetValue(accepted + " ")
					m.Textarea.CursorEnd()
				}
				return m, nil
			case tea.KeyEsc:
				m.Autocomplete.Hide()
				return m, nil
			}
		}

		switch keyMsg.Type {
		case tea.KeyEnter:
			if keyMsg.Alt {
				break
			}
			value := strings.TrimSpace(m.Textarea.Value())
			if value != "" {
				m.Textarea.Reset()
				m.Autocomplete.Hide()
				m.remember(value)
				return m, func() tea.Msg {
					return InputSubmitMsg{Value: value}
				}
			}
			return m, nil
		case tea.KeyUp:
			if m.recall(-1) {
				return m, nil
			}
		case tea.KeyDown:
			if m.recall(1) {
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.Textarea, cmd = m.Textarea.Update(msg)

	value := m.Textarea.Value()
	if strings.HasPrefix(value, "/") && !strings.Contains(value, " ") {
		m.Autocomplete.SetPrefix(value)
	} else {
		m.Autocomplete.Hide()
	}

	return m, cmd
}

// View renders the input area with optional autocomplete popup above it.
func (m InputAreaModel) View() string {
	if popup := m.Autocomplete.View(); popup != "" {
		return popup + "\n" + m.Textarea.View()
	}
	return m.Textarea.View()
}
