package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnexus/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		kind domain.StreamEventKind
		text string
	}{
		{"NODE:retrieve_documents", domain.StreamStepStarted, "retrieve_documents"},
		{"THINKING_START", domain.StreamThoughtStarted, ""},
		{"THINKING: part1", domain.StreamReasoningDelta, " part1"},
		{"THINKING_END", domain.StreamReasoningEnded, ""},
		{"CONTENT:  spaced  ", domain.StreamContentDelta, "  spaced  "},
		{"CONTENT:", domain.StreamContentDelta, ""},
		{"PING:ok", domain.StreamIgnored, ""},
		{"", domain.StreamIgnored, ""},
		{"content:lowercase", domain.StreamIgnored, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ev, err := Classify(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.text, ev.Text)
		})
	}
}

func TestClassifyToolCall(t *testing.T) {
	ev, err := Classify(`TOOL_CALL:{"id":"1","name":"search","args":{"q":"eps"}}`)
	require.NoError(t, err)
	require.NotNil(t, ev.ToolCall)
	assert.Equal(t, domain.StreamToolInvoked, ev.Kind)
	assert.Equal(t, "1", ev.ToolCall.ID)
	assert.Equal(t, "search", ev.ToolCall.Name)
	assert.JSONEq(t, `{"q":"eps"}`, string(ev.ToolCall.Args))
}

func TestClassifyToolEnd(t *testing.T) {
	ev, err := Classify(`TOOL_END:{"name":"search","output":"r1"}`)
	require.NoError(t, err)
	require.NotNil(t, ev.ToolEnd)
	assert.Equal(t, domain.StreamToolCompleted, ev.Kind)
	assert.Equal(t, "search", ev.ToolEnd.Name)
	assert.Equal(t, `"r1"`, string(ev.ToolEnd.Output))
}

func TestClassifyMalformedPayload(t *testing.T) {
	for _, line := range []string{"TOOL_CALL:{not json", "TOOL_END:", "TOOL_END:[1,2"} {
		_, err := Classify(line)
		require.Error(t, err, line)

		var pe *PayloadError
		require.True(t, errors.As(err, &pe), line)
		assert.Contains(t, err.Error(), "malformed")
	}
}
