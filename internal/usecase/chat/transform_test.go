package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnexus/internal/domain"
)

func TestTransformHistory(t *testing.T) {
	var raw []domain.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"human","content":"What was the EPS?"},
		{"type":"ai","content":"","additional_kwargs":{"thinking":"need filings"},
		 "tool_calls":[{"id":"call_1","name":"search","args":{"q":"EPS"}}]},
		{"type":"tool","tool_call_id":"call_1","content":"EPS 1.23"},
		{"role":"assistant","content":[{"type":"text","text":"EPS was "},{"type":"text","text":"1.23"}]},
		{"role":"system","content":"ignored"}
	]`), &raw))

	msgs := TransformHistory(raw)
	require.Len(t, msgs, 3)

	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "What was the EPS?"}, msgs[0])

	bot := msgs[1]
	assert.Equal(t, domain.RoleBot, bot.Role)
	require.Len(t, bot.Reasoning, 1)
	assert.Equal(t, domain.ReasoningEntry{Kind: domain.ReasoningThought, Text: " need filings"}, bot.Reasoning[0])
	require.Len(t, bot.ToolCalls, 1)
	tc := bot.ToolCalls[0]
	assert.Equal(t, "call_1", tc.ID)
	assert.Equal(t, domain.ToolCompleted, tc.Status)
	assert.Equal(t, "EPS 1.23", tc.Output)
	assert.JSONEq(t, `{"q":"EPS"}`, string(tc.Args))

	assert.Equal(t, "EPS was 1.23", msgs[2].Content)
	assert.Nil(t, msgs[2].Reasoning)
	assert.Nil(t, msgs[2].ToolCalls)
}

func TestTransformHistoryMissingToolResult(t *testing.T) {
	msgs := TransformHistory([]domain.RawMessage{{
		Role:      "bot",
		Content:   json.RawMessage(`"done"`),
		ToolCalls: []domain.RawToolCall{{ID: "x", Name: "lookup"}},
	}})
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Empty(t, msgs[0].ToolCalls[0].Output)
	assert.Equal(t, domain.ToolCompleted, msgs[0].ToolCalls[0].Status)
}

func TestTransformHistoryEmpty(t *testing.T) {
	assert.Nil(t, TransformHistory(nil))
}
