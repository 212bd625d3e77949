package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Role identifies who authored a displayed message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// ReasoningKind distinguishes pipeline steps from free-form model thoughts.
type ReasoningKind string

const (
	ReasoningStep    ReasoningKind = "step"
	ReasoningThought ReasoningKind = "thought"
)

// ReasoningEntry is one item of the reasoning log.
type ReasoningEntry struct {
	Kind ReasoningKind `json:"kind"`
	Text string        `json:"text"`
}

// ToolStatus is the lifecycle state of a tool-call record.
type ToolStatus string

const (
	ToolCalling   ToolStatus = "calling"
	ToolCompleted ToolStatus = "completed"
)

// ToolCallRecord tracks one tool invocation made by the assistant.
type ToolCallRecord struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args,omitempty"`
	Status ToolStatus      `json:"status"`
	Output string          `json:"output,omitempty"`
}

// Message is a finalised, displayable conversation message.
// Values are never mutated after construction; slices are owned by the message.
type Message struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Reasoning []ReasoningEntry `json:"reasoning,omitempty"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ThreadSummary is one entry of the conversation history list.
type ThreadSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// RawToolCall is a tool call as stored in server-side history.
type RawToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// RawMessage is a message as returned by GET /chat/{id}. The server emits
// both "role" and LangChain-style "type" fields depending on the message origin.
type RawMessage struct {
	Role             string          `json:"role,omitempty"`
	Type             string          `json:"type,omitempty"`
	Content          json.RawMessage `json:"content,omitempty"`
	AdditionalKwargs struct {
		Thinking string `json:"thinking,omitempty"`
	} `json:"additional_kwargs"`
	ToolCalls  []RawToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

// IsTool reports whether the message is a tool result.
func (m RawMessage) IsTool() bool {
	return m.Type == "tool" || m.Role == "tool"
}

// IsUser reports whether the message was written by the user.
func (m RawMessage) IsUser() bool {
	return m.Role == "user" || m.Type == "human"
}

// IsBot reports whether the message was written by the assistant.
func (m RawMessage) IsBot() bool {
	return m.Role == "bot" || m.Role == "assistant" || m.Type == "ai"
}

// Text returns the message content as plain text. Content is either a JSON
// string or a list of content blocks with "text" fields.
func (m RawMessage) Text() string {
	return ContentText(m.Content)
}

// ContentText flattens a JSON content value into text. Objects and other
// shapes are returned as their raw JSON.
func ContentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var sb strings.Builder
		for _, b := range blocks {
			sb.WriteString(b.Text)
		}
		return sb.String()
	}
	return string(raw)
}
