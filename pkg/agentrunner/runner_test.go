package agentrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/massgen/massgen/pkg/stream"
	"github.com/massgen/massgen/pkg/tool"
)

// scriptedBackend returns one canned Seq per call, in order, regardless of
// the messages/tools passed in; it records how many times it was invoked.
type scriptedBackend struct {
	seqs  []stream.Seq
	calls int
}

func (b *scriptedBackend) ExecuteStreaming(ctx context.Context, messages []stream.Message, tools []tool.Definition) stream.Seq {
	i := b.calls
	b.calls++
	if i >= len(b.seqs) {
		return stream.Simulate(stream.RoleAssistant, "", nil)
	}
	return b.seqs[i]
}

func collectEmitted(t *testing.T) (Emit, func() []stream.Chunk) {
	t.Helper()
	var out []stream.Chunk
	return func(c stream.Chunk) { out = append(out, c) }, func() []stream.Chunk { return out }
}

func newHandler(t *testing.T) *tool.Handler {
	t.Helper()
	h, err := tool.NewHandler()
	require.NoError(t, err)
	return h
}

func TestRunDetectsNewAnswer(t *testing.T) {
	backend := &scriptedBackend{seqs: []stream.Seq{
		stream.Simulate(stream.RoleAssistant, "done", []stream.ToolCall{
			{ID: "1", Name: tool.NewAnswer, Arguments: map[string]any{"content": "42"}},
		}),
	}}
	emit, _ := collectEmitted(t)

	r := New(Config{AgentID: "agent-a", Backend: backend, Tools: newHandler(t)})
	outcome := r.Run(context.Background(), nil, emit)

	assert.Equal(t, StateHasAnswer, outcome.State)
	assert.Equal(t, "42", outcome.Answer)
	require.NoError(t, outcome.Err)
}

func TestRunDetectsVote(t *testing.T) {
	backend := &scriptedBackend{seqs: []stream.Seq{
		stream.Simulate(stream.RoleAssistant, "", []stream.ToolCall{
			{ID: "1", Name: tool.Vote, Arguments: map[string]any{"agent_id": "agent-b", "reason": "clearer"}},
		}),
	}}
	emit, _ := collectEmitted(t)

	r := New(Config{AgentID: "agent-a", Backend: backend, Tools: newHandler(t)})
	outcome := r.Run(context.Background(), nil, emit)

	assert.Equal(t, StateVoted, outcome.State)
	assert.Equal(t, "agent-b", outcome.VoteFor)
	assert.Equal(t, "clearer", outcome.VoteReason)
}

func TestRunDetectsRestartRequest(t *testing.T) {
	backend := &scriptedBackend{seqs: []stream.Seq{
		stream.Simulate(stream.RoleAssistant, "", []stream.ToolCall{
			{ID: "1", Name: tool.Restart, Arguments: map[string]any{"reason": "need a different approach"}},
		}),
	}}
	emit, _ := collectEmitted(t)

	r := New(Config{AgentID: "agent-a", Backend: backend, Tools: newHandler(t)})
	outcome := r.Run(context.Background(), nil, emit)

	assert.True(t, outcome.RestartRequested)
	assert.Equal(t, "need a different approach", outcome.RestartReason)
}

func TestRunCompletesWithNoToolCalls(t *testing.T) {
	backend := &scriptedBackend{seqs: []stream.Seq{
		stream.Simulate(stream.RoleAssistant, "just some text", nil),
	}}
	emit, _ := collectEmitted(t)

	r := New(Config{AgentID: "agent-a", Backend: backend, Tools: newHandler(t)})
	outcome := r.Run(context.Background(), nil, emit)

	assert.Equal(t, StateCompleted, outcome.State)
}

func TestRunDispatchesOrdinaryToolThenContinues(t *testing.T) {
	echo := echoTool{}
	h, err := tool.NewHandler(echo)
	require.NoError(t, err)

	backend := &scriptedBackend{seqs: []stream.Seq{
		stream.Simulate(stream.RoleAssistant, "", []stream.ToolCall{
			{ID: "1", Name: "echo", Arguments: map[string]any{"text": "hi"}},
		}),
		stream.Simulate(stream.RoleAssistant, "", []stream.ToolCall{
			{ID: "2", Name: tool.NewAnswer, Arguments: map[string]any{"content": "final"}},
		}),
	}}
	emit, getChunks := collectEmitted(t)

	r := New(Config{AgentID: "agent-a", Backend: backend, Tools: h})
	outcome := r.Run(context.Background(), nil, emit)

	assert.Equal(t, StateHasAnswer, outcome.State)
	assert.Equal(t, "final", outcome.Answer)
	assert.Equal(t, 2, backend.calls)

	var sawToolResult bool
	for _, c := range getChunks() {
		if c.Kind == stream.KindToolResult {
			sawToolResult = true
			assert.Equal(t, "hi", c.ToolResult.Output)
		}
	}
	assert.True(t, sawToolResult)
}

type echoTool struct{}

func (echoTool) Definition() tool.Definition { return tool.Definition{Name: "echo"} }
func (echoTool) Call(_ context.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{Output: args["text"].(string)}, nil
}
