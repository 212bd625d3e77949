package stream

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"docnexus/internal/domain"
)

// Snapshot is an immutable copy of the in-progress answer. Slices in a
// Snapshot are never written after it is returned.
type Snapshot struct {
	Reasoning []domain.ReasoningEntry
	ToolCalls []domain.ToolCallRecord
	Content   string
	Lines     int
}

// Empty reports whether nothing has been projected yet.
func (s Snapshot) Empty() bool {
	return len(s.Reasoning) == 0 && len(s.ToolCalls) == 0 && s.Content == ""
}

// Accumulator owns the reasoning log, tool-call log and answer draft of one
// chat turn. It must be used from a single goroutine; other goroutines see
// its state only through Snapshot values.
type Accumulator struct {
	reasoning []domain.ReasoningEntry
	tools     []domain.ToolCallRecord
	byID      map[string]int
	byName    map[string][]int
	draft     strings.Builder
	lines     int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		byID:   make(map[string]int),
		byName: make(map[string][]int),
	}
}

// Apply projects one event and reports whether visible state changed.
func (a *Accumulator) Apply(ev domain.StreamEvent) bool {
	a.lines++
	switch ev.Kind {
	case domain.StreamStepStarted:
		a.reasoning = append(a.reasoning, domain.ReasoningEntry{Kind: domain.ReasoningStep, Text: ev.Text})
		return true

	case domain.StreamThoughtStarted:
		a.reasoning = append(a.reasoning, domain.ReasoningEntry{Kind: domain.ReasoningThought})
		return true

	case domain.StreamReasoningDelta:
		if len(a.reasoning) == 0 {
			return false
		}
		a.reasoning[len(a.reasoning)-1].Text += ev.Text
		return true

	case domain.StreamToolInvoked:
		if ev.ToolCall == nil {
			return false
		}
		a.startTool(*ev.ToolCall)
		return true

	case domain.StreamToolCompleted:
		if ev.ToolEnd == nil {
			return false
		}
		return a.completeTool(*ev.ToolEnd)

	case domain.StreamContentDelta:
		a.draft.WriteString(ev.Text)
		return ev.Text != ""
	}
	return false
}

func (a *Accumulator) startTool(tc domain.ToolCallPayload) {
	idx := len(a.tools)
	a.tools = append(a.tools, domain.ToolCallRecord{
		ID:     tc.ID,
		Name:   tc.Name,
		Args:   tc.Args,
		Status: domain.ToolCalling,
	})
	if tc.ID != "" {
		a.byID[tc.ID] = idx
	}
	a.byName[tc.Name] = append(a.byName[tc.Name], idx)
}

// completeTool resolves a TOOL_END by name, since the wire format carries no
// call id on completion. The oldest record of that name still calling is
// completed; if none is calling, the oldest record of that name is updated.
func (a *Accumulator) completeTool(te domain.ToolEndPayload) bool {
	candidates := a.byName[te.Name]
	if len(candidates) == 0 {
		return false
	}
	target := candidates[0]
	for _, idx := range candidates {
		if a.tools[idx].Status == domain.ToolCalling {
			target = idx
			break
		}
	}
	a.tools[target].Status = domain.ToolCompleted
	a.tools[target].Output = outputText(te.Output)
	return true
}

// ToolByID returns the record started with the given call id.
func (a *Accumulator) ToolByID(id string) (domain.ToolCallRecord, bool) {
	idx, ok := a.byID[id]
	if !ok {
		return domain.ToolCallRecord{}, false
	}
	return a.tools[idx], true
}

// Content returns the answer draft.
func (a *Accumulator) Content() string { return a.draft.String() }

// Snapshot returns an immutable copy of the current state.
func (a *Accumulator) Snapshot() Snapshot {
	return Snapshot{
		Reasoning: slices.Clone(a.reasoning),
		ToolCalls: cloneTools(a.tools),
		Content:   a.draft.String(),
		Lines:     a.lines,
	}
}

// Finalize freezes the accumulated state into a bot message and resets the
// accumulator for reuse.
func (a *Accumulator) Finalize(at time.Time) domain.Message {
	snap := a.Snapshot()
	a.Reset()
	msg := domain.Message{
		Role:      domain.RoleBot,
		Content:   snap.Content,
		CreatedAt: at,
	}
	if len(snap.Reasoning) > 0 {
		msg.Reasoning = snap.Reasoning
	}
	if len(snap.ToolCalls) > 0 {
		msg.ToolCalls = snap.ToolCalls
	}
	return msg
}

// Reset discards all transient state.
func (a *Accumulator) Reset() {
	a.reasoning = nil
	a.tools = nil
	a.byID = make(map[string]int)
	a.byName = make(map[string][]int)
	a.draft.Reset()
	a.lines = 0
}

func cloneTools(in []domain.ToolCallRecord) []domain.ToolCallRecord {
	if in == nil {
		return nil
	}
	out := make([]domain.ToolCallRecord, len(in))
	for i, t := range in {
		t.Args = slices.Clone(t.Args)
		out[i] = t
	}
	return out
}

// outputText renders a tool output: JSON strings are unquoted, anything
// else is kept as its JSON text.
func outputText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
