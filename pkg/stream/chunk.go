// Package stream defines the Stream Chunk Bus: the uniform envelope that
// carries content, tool-call, status, error, and terminator chunks from
// backends through the orchestrator to displays.
//
// The bus is not a queue abstraction. It is the envelope definition plus
// the ordering contract: within a single Seq, chunk order is authoritative,
// and a Seq MUST terminate with exactly one Done or Error chunk.
package stream

import "fmt"

// Kind identifies which case of the Chunk tagged union is populated.
type Kind string

const (
	KindContent         Kind = "content"
	KindReasoning       Kind = "reasoning"
	KindToolCalls        Kind = "tool_calls"
	KindToolResult       Kind = "tool_result"
	KindCompleteMessage  Kind = "complete_message"
	KindStatus           Kind = "status"
	KindError            Kind = "error"
	KindDone             Kind = "done"
)

// StatusKind enumerates the values a Status chunk may carry.
type StatusKind string

const (
	StatusAnswering  StatusKind = "answering"
	StatusVoted      StatusKind = "voted"
	StatusAnswered   StatusKind = "answered"
	StatusCompleted  StatusKind = "completed"
	StatusStreaming  StatusKind = "streaming"
	StatusCancelled  StatusKind = "cancelled"
)

// Role identifies the author of a complete message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation requested by a backend.
//
// Arguments is left as `any` because callers receive either a decoded
// object or a raw JSON string depending on the backend, per spec.md §3;
// use tool.NormalizeArguments to normalize it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments any
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	CallID  string
	Output  string
	IsError bool
}

// Message is a finalized conversation message, used by KindCompleteMessage.
type Message struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall
}

// Chunk is the tagged union carried on the bus. Exactly one of the
// Kind-specific fields is populated, matching the Kind field.
type Chunk struct {
	Kind Kind

	// KindContent / KindReasoning
	Text string

	// KindToolCalls
	ToolCalls []ToolCall

	// KindToolResult
	ToolResult ToolResult

	// KindCompleteMessage
	Message Message

	// KindStatus
	Status StatusKind

	// KindError
	ErrMessage string

	// AgentID tags which agent produced this chunk. Populated by the Agent
	// Runner before chunks reach the orchestrator or display bus; empty for
	// chunks still inside a single backend's raw Seq.
	AgentID string
}

// Content builds a content chunk.
func Content(text string) Chunk { return Chunk{Kind: KindContent, Text: text} }

// Reasoning builds a reasoning (chain-of-thought) chunk.
func Reasoning(text string) Chunk { return Chunk{Kind: KindReasoning, Text: text} }

// ToolCallsChunk builds a tool-calls chunk.
func ToolCallsChunk(calls ...ToolCall) Chunk { return Chunk{Kind: KindToolCalls, ToolCalls: calls} }

// ToolResultChunk builds a tool-result chunk.
func ToolResultChunk(callID, output string, isErr bool) Chunk {
	return Chunk{Kind: KindToolResult, ToolResult: ToolResult{CallID: callID, Output: output, IsError: isErr}}
}

// CompleteMessage builds a complete-message chunk.
func CompleteMessage(msg Message) Chunk { return Chunk{Kind: KindCompleteMessage, Message: msg} }

// Status builds a status chunk.
func Status(kind StatusKind) Chunk { return Chunk{Kind: KindStatus, Status: kind} }

// Error builds an error chunk. Error chunks are terminal: no further chunks
// may follow in the same Seq.
func Error(format string, args ...any) Chunk {
	return Chunk{Kind: KindError, ErrMessage: fmt.Sprintf(format, args...)}
}

// Done builds the terminal done chunk.
func Done() Chunk { return Chunk{Kind: KindDone} }

// Terminal reports whether this chunk ends a Seq (Done or Error).
func (c Chunk) Terminal() bool { return c.Kind == KindDone || c.Kind == KindError }

// WithAgent returns a copy of c tagged with the given agent ID.
func (c Chunk) WithAgent(agentID string) Chunk {
	c.AgentID = agentID
	return c
}
