package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnexus/internal/domain"
)

func applyLines(t *testing.T, a *Accumulator, lines ...string) {
	t.Helper()
	for _, l := range lines {
		ev, err := Classify(l)
		require.NoError(t, err, l)
		a.Apply(ev)
	}
}

func TestAccumulatorThoughtDeltasJoinOneEntry(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a, "THINKING_START", "THINKING: part1", "THINKING: part2", "THINKING_END")

	snap := a.Snapshot()
	require.Len(t, snap.Reasoning, 1)
	assert.Equal(t, domain.ReasoningThought, snap.Reasoning[0].Kind)
	assert.Equal(t, " part1 part2", snap.Reasoning[0].Text)
}

func TestAccumulatorStepsAndThoughtsInterleave(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a,
		"NODE:retrieve",
		"THINKING_START",
		"THINKING:looking",
		"THINKING_END",
		"NODE:answer",
		"THINKING:more",
	)

	snap := a.Snapshot()
	require.Len(t, snap.Reasoning, 3)
	assert.Equal(t, domain.ReasoningEntry{Kind: domain.ReasoningStep, Text: "retrieve"}, snap.Reasoning[0])
	assert.Equal(t, domain.ReasoningEntry{Kind: domain.ReasoningThought, Text: "looking"}, snap.Reasoning[1])
	// A delta after a step extends the step entry.
	assert.Equal(t, domain.ReasoningEntry{Kind: domain.ReasoningStep, Text: "answermore"}, snap.Reasoning[2])
}

func TestAccumulatorThinkingWithoutEntryIsIgnored(t *testing.T) {
	a := NewAccumulator()
	ev, err := Classify("THINKING:orphan")
	require.NoError(t, err)

	assert.False(t, a.Apply(ev))
	assert.True(t, a.Snapshot().Empty())
}

func TestAccumulatorToolLifecycle(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a, `TOOL_CALL:{"id":"1","name":"search","args":{"q":"x"}}`)

	snap := a.Snapshot()
	require.Len(t, snap.ToolCalls, 1)
	assert.Equal(t, domain.ToolCalling, snap.ToolCalls[0].Status)

	applyLines(t, a, `TOOL_END:{"name":"search","output":"r1"}`)

	snap = a.Snapshot()
	require.Len(t, snap.ToolCalls, 1)
	assert.Equal(t, domain.ToolCompleted, snap.ToolCalls[0].Status)
	assert.Equal(t, "r1", snap.ToolCalls[0].Output)
	assert.Equal(t, "1", snap.ToolCalls[0].ID)

	rec, ok := a.ToolByID("1")
	require.True(t, ok)
	assert.Equal(t, "r1", rec.Output)
}

func TestAccumulatorUnmatchedToolEnd(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a, `TOOL_CALL:{"id":"1","name":"search","args":{}}`)
	before := a.Snapshot().ToolCalls

	ev, err := Classify(`TOOL_END:{"name":"lookup","output":"x"}`)
	require.NoError(t, err)
	assert.False(t, a.Apply(ev))
	assert.Equal(t, before, a.Snapshot().ToolCalls)
}

func TestAccumulatorSameNameToolsCompleteOldestFirst(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a,
		`TOOL_CALL:{"id":"a","name":"search","args":{"q":1}}`,
		`TOOL_CALL:{"id":"b","name":"search","args":{"q":2}}`,
		`TOOL_END:{"name":"search","output":"first"}`,
	)

	snap := a.Snapshot()
	require.Len(t, snap.ToolCalls, 2)
	assert.Equal(t, domain.ToolCompleted, snap.ToolCalls[0].Status)
	assert.Equal(t, "first", snap.ToolCalls[0].Output)
	assert.Equal(t, domain.ToolCalling, snap.ToolCalls[1].Status)

	applyLines(t, a, `TOOL_END:{"name":"search","output":"second"}`)
	snap = a.Snapshot()
	assert.Equal(t, "second", snap.ToolCalls[1].Output)
	assert.Equal(t, "first", snap.ToolCalls[0].Output)
}

func TestAccumulatorNonStringToolOutput(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a,
		`TOOL_CALL:{"id":"1","name":"rows","args":{}}`,
		`TOOL_END:{"name":"rows","output":[{"eps":1.2}]}`,
	)
	assert.JSONEq(t, `[{"eps":1.2}]`, a.Snapshot().ToolCalls[0].Output)
}

func TestAccumulatorContentConcatenates(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a, "CONTENT:Hello", "CONTENT: ", "CONTENT:world", "PING:ok")
	assert.Equal(t, "Hello world", a.Content())
	assert.Equal(t, 4, a.Snapshot().Lines)
}

func TestAccumulatorSnapshotIsImmutable(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a, "THINKING_START", "THINKING:a", `TOOL_CALL:{"id":"1","name":"s","args":{}}`)
	snap := a.Snapshot()

	applyLines(t, a, "THINKING:b", `TOOL_END:{"name":"s","output":"done"}`, "CONTENT:x")

	assert.Equal(t, "a", snap.Reasoning[0].Text)
	assert.Equal(t, domain.ToolCalling, snap.ToolCalls[0].Status)
	assert.Empty(t, snap.Content)
}

func TestAccumulatorFinalizeResets(t *testing.T) {
	a := NewAccumulator()
	applyLines(t, a, "NODE:n", "CONTENT:answer")
	at := time.Date(2025, 10, 30, 12, 0, 0, 0, time.UTC)

	msg := a.Finalize(at)
	assert.Equal(t, domain.RoleBot, msg.Role)
	assert.Equal(t, "answer", msg.Content)
	assert.Len(t, msg.Reasoning, 1)
	assert.Nil(t, msg.ToolCalls)
	assert.Equal(t, at, msg.CreatedAt)

	assert.True(t, a.Snapshot().Empty())
	_, ok := a.ToolByID("1")
	assert.False(t, ok)
}
