package stream

import (
	"iter"
	"log/slog"
)

// Seq is the lazy, finite sequence of chunks a backend yields for one
// streaming call. It is exactly iter.Seq[Chunk]; the alias exists so call
// sites read as domain vocabulary rather than stdlib generics.
type Seq = iter.Seq[Chunk]

// Guard wraps a raw backend Seq and enforces the bus's ordering contract:
// any chunk observed after a terminal chunk (Done or Error) is a protocol
// violation and is dropped with a warning rather than forwarded, per
// spec.md §4.1.
func Guard(raw Seq) Seq {
	return func(yield func(Chunk) bool) {
		done := false
		for c := range raw {
			if done {
				slog.Warn("stream: chunk observed after terminal chunk, dropping",
					"kind", c.Kind)
				continue
			}
			if !yield(c) {
				return
			}
			if c.Terminal() {
				done = true
			}
		}
	}
}

// EnsureTerminal appends a synthetic Done chunk if raw ended without one.
// Backends are required to terminate with Done or Error, but a defensive
// consumer should not hang forever if one doesn't.
func EnsureTerminal(raw Seq) Seq {
	return func(yield func(Chunk) bool) {
		sawTerminal := false
		for c := range raw {
			sawTerminal = c.Terminal()
			if !yield(c) {
				return
			}
		}
		if !sawTerminal {
			yield(Done())
		}
	}
}

// Simulate builds a streaming Seq for a backend that only produces a final,
// non-streaming response: it splits the content into a handful of content
// chunks, appends the tool calls (if any) before the complete message, then
// the complete message, then Done — per spec.md §4.1's non-streaming
// simulation rule.
func Simulate(role Role, content string, calls []ToolCall) Seq {
	return func(yield func(Chunk) bool) {
		for _, piece := range splitIntoPieces(content, 4) {
			if !yield(Content(piece)) {
				return
			}
		}
		if len(calls) > 0 {
			if !yield(ToolCallsChunk(calls...)) {
				return
			}
		}
		if !yield(CompleteMessage(Message{Role: role, Content: content, ToolCalls: calls})) {
			return
		}
		yield(Done())
	}
}

// splitIntoPieces divides s into at most n roughly equal pieces without
// splitting multi-byte runes across a boundary awkwardly (best effort: it
// splits on rune boundaries only).
func splitIntoPieces(s string, n int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	if n <= 1 || len(runes) <= n {
		return []string{s}
	}
	size := (len(runes) + n - 1) / n
	var pieces []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
	}
	return pieces
}

// Collect drains a Seq, returning all chunks. Intended for tests and for
// backends that buffer internally; production consumers should range over
// the Seq directly instead of collecting it.
func Collect(s Seq) []Chunk {
	var out []Chunk
	for c := range s {
		out = append(out, c)
	}
	return out
}
