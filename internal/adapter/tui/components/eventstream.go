package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/domain"
)

const maxEventEntries = 500

// EventStreamModel is the activity pane: a scrollable log of bus events
// (turns, uploads, task progress, logins) with smart auto-scroll.
type EventStreamModel struct {
	Viewport viewport.Model
	events   []domain.Event
	filter   string // event type prefix; empty = show all
	ready    bool
	atBottom bool
	width    int
	height   int
}

// NewEventStream creates an activity pane.
func NewEventStream() EventStreamModel {
	return EventStreamModel{atBottom: true}
}

// SetSize sets the viewport dimensions.
func (m *EventStreamModel) SetSize(w, h int) {
	m.width = w
	m.height = h
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

// SetFilter limits the pane to event types starting with prefix, e.g.
// "stream." or "task.". Empty shows all events.
func (m *EventStreamModel) SetFilter(prefix string) {
	m.filter = prefix
	m.refreshContent()
}

// AddEvent appends an event and auto-scrolls if at bottom.
func (m *EventStreamModel) AddEvent(event domain.Event) {
	m.events = append(m.events, event)
	if len(m.events) > maxEventEntries {
		m.events = m.events[len(m.events)-maxEventEntries:]
	}
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// Update handles viewport scrolling.
func (m EventStreamModel) Update(msg tea.Msg) (EventStreamModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	m.atBottom = m.Viewport.AtBottom()
	return m, cmd
}

// EventCount returns the total number of events.
func (m EventStreamModel) EventCount() int {
	return len(m.events)
}

// FilteredCount returns the number of events matching the current filter.
func (m EventStreamModel) FilteredCount() int {
	count := 0
	for _, evt := range m.events {
		if m.matches(evt) {
			count++
		}
	}
	return count
}

func (m EventStreamModel) matches(evt domain.Event) bool {
	return m.filter == "" || strings.HasPrefix(string(evt.Type), m.filter)
}

// View renders the activity pane.
func (m EventStreamModel) View() string {
	if !m.ready {
		return ""
	}
	return theme.Bold.Render(" Activity") + "\n" + m.Viewport.View()
}

func (m *EventStreamModel) refreshContent() {
	if !m.ready {
		return
	}
	if len(m.events) == 0 {
		m.Viewport.SetContent(theme.TextMuted.Render("  No activity yet"))
		return
	}

	var sb strings.Builder
	for _, evt := range m.events {
		if !m.matches(evt) {
			continue
		}
		ts := theme.Dim.Render(evt.Timestamp.Format("15:04:05"))
		sb.WriteString(fmt.Sprintf("  %s  %s %s\n", ts, styleEventType(evt.Type), theme.TextMuted.Render(DescribeEvent(evt))))
	}
	m.Viewport.SetContent(sb.String())
}

func styleEventType(t domain.EventType) string {
	padded := fmt.Sprintf("%-17s", t)
	switch t {
	case domain.EventStreamFailed:
		return theme.TextError.Render(padded)
	case domain.EventStreamCompleted, domain.EventThreadCreated:
		return theme.TextSuccess.Render(padded)
	case domain.EventTaskUpdated, domain.EventTaskFinished, domain.EventUploadProgress:
		return theme.TextWarning.Render(padded)
	case domain.EventSessionChanged:
		return theme.TextAccent.Render(padded)
	default:
		return theme.TextInfo.Render(padded)
	}
}

// DescribeEvent summarises an event's payload in one line.
func DescribeEvent(evt domain.Event) string {
	switch evt.Type {
	case domain.EventStreamStarted:
		var p domain.StreamStartedPayload
		if evt.DecodePayload(&p) == nil {
			return fmt.Sprintf("%q", clip(p.Query, 40))
		}
	case domain.EventStreamCompleted:
		var p domain.StreamCompletedPayload
		if evt.DecodePayload(&p) == nil {
			return fmt.Sprintf("%d lines, %d bytes, %d tools", p.Lines, p.ContentBytes, p.ToolCalls)
		}
	case domain.EventStreamFailed:
		var p domain.StreamErrorPayload
		if evt.DecodePayload(&p) == nil {
			return clip(p.Error, 60)
		}
	case domain.EventThreadCreated:
		var p domain.ThreadCreatedPayload
		if evt.DecodePayload(&p) == nil {
			return clip(p.Title, 50)
		}
	case domain.EventUploadProgress:
		var p domain.UploadProgressPayload
		if evt.DecodePayload(&p) == nil {
			return fmt.Sprintf("%d%% of %d file(s)", p.Percent, p.Files)
		}
	case domain.EventTaskUpdated, domain.EventTaskFinished:
		var p domain.TaskUpdatePayload
		if evt.DecodePayload(&p) == nil {
			s := string(p.Status.State)
			if p.Status.CurrentStage != "" {
				s += " " + domain.StageLabels[p.Status.CurrentStage]
			}
			return s
		}
	case domain.EventSessionChanged:
		var p domain.SessionChangedPayload
		if evt.DecodePayload(&p) == nil {
			if p.LoggedIn {
				return "logged in as " + p.Username
			}
			return "logged out"
		}
	}
	return ""
}
