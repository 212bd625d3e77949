package stream

import (
	"encoding/json"
	"fmt"
	"strings"

	"docnexus/internal/domain"
)

// Wire prefixes of the chat stream protocol.
const (
	PrefixNode          = "NODE:"
	PrefixThinkingStart = "THINKING_START"
	PrefixThinking      = "THINKING:"
	PrefixThinkingEnd   = "THINKING_END"
	PrefixToolCall      = "TOOL_CALL:"
	PrefixToolEnd       = "TOOL_END:"
	PrefixContent       = "CONTENT:"
)

// prefixTable is checked in order; the first matching prefix wins.
var prefixTable = []struct {
	prefix string
	kind   domain.StreamEventKind
}{
	{PrefixNode, domain.StreamStepStarted},
	{PrefixThinkingStart, domain.StreamThoughtStarted},
	{PrefixThinking, domain.StreamReasoningDelta},
	{PrefixThinkingEnd, domain.StreamReasoningEnded},
	{PrefixToolCall, domain.StreamToolInvoked},
	{PrefixToolEnd, domain.StreamToolCompleted},
	{PrefixContent, domain.StreamContentDelta},
}

// PayloadError reports a structured payload that could not be parsed.
type PayloadError struct {
	Prefix string
	Err    error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", strings.TrimSuffix(e.Prefix, ":"), e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Classify maps one decoded line to a stream event. The text after the
// prefix is kept verbatim. Lines with no known prefix yield a StreamIgnored
// event. A *PayloadError is returned when a TOOL_CALL or TOOL_END payload is
// not valid JSON; the event should then be skipped.
func Classify(line string) (domain.StreamEvent, error) {
	for _, p := range prefixTable {
		if !strings.HasPrefix(line, p.prefix) {
			continue
		}
		payload := line[len(p.prefix):]
		ev := domain.StreamEvent{Kind: p.kind}

		switch p.kind {
		case domain.StreamStepStarted, domain.StreamReasoningDelta, domain.StreamContentDelta:
			ev.Text = payload
		case domain.StreamToolInvoked:
			var tc domain.ToolCallPayload
			if err := json.Unmarshal([]byte(payload), &tc); err != nil {
				return domain.StreamEvent{}, &PayloadError{Prefix: p.prefix, Err: err}
			}
			ev.ToolCall = &tc
		case domain.StreamToolCompleted:
			var te domain.ToolEndPayload
			if err := json.Unmarshal([]byte(payload), &te); err != nil {
				return domain.StreamEvent{}, &PayloadError{Prefix: p.prefix, Err: err}
			}
			ev.ToolEnd = &te
		}
		return ev, nil
	}
	return domain.StreamEvent{Kind: domain.StreamIgnored}, nil
}
