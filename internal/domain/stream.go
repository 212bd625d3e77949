package domain

import "encoding/json"

// StreamEventKind tags a decoded line of the chat stream protocol.
type StreamEventKind int

const (
	// StreamIgnored marks a line with no recognised prefix.
	StreamIgnored StreamEventKind = iota
	// StreamStepStarted comes from "NODE:" and opens a labelled reasoning entry.
	StreamStepStarted
	// StreamThoughtStarted comes from "THINKING_START" and opens an empty reasoning entry.
	StreamThoughtStarted
	// StreamReasoningDelta comes from "THINKING:".
	StreamReasoningDelta
	// StreamReasoningEnded comes from "THINKING_END".
	StreamReasoningEnded
	// StreamToolInvoked comes from "TOOL_CALL:".
	StreamToolInvoked
	// StreamToolCompleted comes from "TOOL_END:".
	StreamToolCompleted
	// StreamContentDelta comes from "CONTENT:".
	StreamContentDelta
)

var streamEventKindNames = [...]string{
	StreamIgnored:        "ignored",
	StreamStepStarted:    "step_started",
	StreamThoughtStarted: "thought_started",
	StreamReasoningDelta: "reasoning_delta",
	StreamReasoningEnded: "reasoning_ended",
	StreamToolInvoked:    "tool_invoked",
	StreamToolCompleted:  "tool_completed",
	StreamContentDelta:   "content_delta",
}

func (k StreamEventKind) String() string {
	if int(k) < 0 || int(k) >= len(streamEventKindNames) {
		return "unknown"
	}
	return streamEventKindNames[k]
}

// ToolCallPayload is the JSON body of a "TOOL_CALL:" line.
type ToolCallPayload struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolEndPayload is the JSON body of a "TOOL_END:" line.
// Output is kept raw because the server sends either a string or an object.
type ToolEndPayload struct {
	Name   string          `json:"name"`
	Output json.RawMessage `json:"output,omitempty"`
}

// StreamEvent is one decoded line of the chat stream.
type StreamEvent struct {
	Kind     StreamEventKind
	Text     string // payload for step, reasoning and content lines, verbatim
	ToolCall *ToolCallPayload
	ToolEnd  *ToolEndPayload
}

// StreamStartedPayload is the payload for EventStreamStarted events.
type StreamStartedPayload struct {
	Query string `json:"query"`
}

// StreamCompletedPayload is the payload for EventStreamCompleted events.
type StreamCompletedPayload struct {
	Lines        int `json:"lines"`
	ContentBytes int `json:"content_bytes"`
	ToolCalls    int `json:"tool_calls"`
}

// StreamErrorPayload is the payload for EventStreamFailed events.
type StreamErrorPayload struct {
	Error string `json:"error"`
}
