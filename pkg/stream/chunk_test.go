package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardDropsChunksAfterTerminal(t *testing.T) {
	raw := func(yield func(Chunk) bool) {
		if !yield(Content("hello")) {
			return
		}
		if !yield(Done()) {
			return
		}
		// Protocol violation: content after done.
		yield(Content("should be dropped"))
	}

	got := Collect(Guard(raw))
	require.Len(t, got, 2)
	assert.Equal(t, KindContent, got[0].Kind)
	assert.Equal(t, KindDone, got[1].Kind)
}

func TestGuardStopsOnErrorToo(t *testing.T) {
	raw := func(yield func(Chunk) bool) {
		if !yield(Error("boom")) {
			return
		}
		yield(Content("dropped"))
	}
	got := Collect(Guard(raw))
	require.Len(t, got, 1)
	assert.Equal(t, KindError, got[0].Kind)
}

func TestEnsureTerminalAddsDoneIfMissing(t *testing.T) {
	raw := func(yield func(Chunk) bool) {
		yield(Content("x"))
	}
	got := Collect(EnsureTerminal(raw))
	require.Len(t, got, 2)
	assert.True(t, got[1].Terminal())
}

func TestSimulateOrdersToolCallsBeforeCompleteMessage(t *testing.T) {
	calls := []ToolCall{{ID: "1", Name: "new_answer"}}
	got := Collect(Simulate(RoleAssistant, "final answer text", calls))

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, KindDone, last.Kind)

	var sawToolCalls, sawComplete bool
	var toolCallsIdx, completeIdx int
	for i, c := range got {
		if c.Kind == KindToolCalls {
			sawToolCalls = true
			toolCallsIdx = i
		}
		if c.Kind == KindCompleteMessage {
			sawComplete = true
			completeIdx = i
			assert.Equal(t, "final answer text", c.Message.Content)
		}
	}
	require.True(t, sawToolCalls)
	require.True(t, sawComplete)
	assert.Less(t, toolCallsIdx, completeIdx)
}

func TestWithAgentTagsChunk(t *testing.T) {
	c := Content("hi").WithAgent("agent-a")
	assert.Equal(t, "agent-a", c.AgentID)
}
