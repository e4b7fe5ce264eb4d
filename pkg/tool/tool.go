// Package tool defines the tool-calling vocabulary shared by the Agent
// Runner and the backend adapter contract: tool definitions advertised to
// a backend, the handler interface tools satisfy, and the two
// coordination-reserved tool names (new_answer, vote) that the orchestrator
// itself interprets rather than dispatching to a handler.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Reserved coordination tool names. These are never routed through a
// Handler: the Agent Runner intercepts calls to these names and turns them
// into coordination events, per spec.md §4.4.3 and §6.
const (
	NewAnswer = "new_answer"
	Vote      = "vote"
	// Restart is a configured "restart-requesting" tool name recognized by
	// the orchestrator per spec.md §4.5.5. It is not wired to a fixed
	// name in the original system; callers configure it explicitly via
	// agentrunner.Config.RestartToolName, which defaults to this value.
	Restart = "request_restart"
)

// Definition describes a tool in the backend-agnostic shape the Backend
// adapter contract (spec.md §6) requires: name, description, and a
// JSON-Schema-like parameter shape.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Tool is a capability an agent may invoke. Implementations are registered
// with a Toolset and dispatched by a Handler; the two reserved coordination
// names are handled by the orchestrator and never reach a Handler.
type Tool interface {
	Definition() Definition
	// Call executes the tool with decoded arguments and returns its result.
	Call(ctx context.Context, args map[string]any) (Result, error)
}

// Result is a tool's outcome, normalized from whatever concrete type
// Call returns.
type Result struct {
	Output  string
	IsError bool
}

// Toolset resolves a dynamic set of tools, e.g. ones loaded from an MCP
// server. A static slice of Tool can be adapted into one with Static.
type Toolset interface {
	Tools(ctx context.Context) ([]Tool, error)
}

// Static adapts a fixed slice of tools into a Toolset.
type Static []Tool

func (s Static) Tools(context.Context) ([]Tool, error) { return []Tool(s), nil }

// Handler dispatches a named tool call with raw arguments to its
// implementation, per the Tool handler contract in spec.md §6. Names
// NewAnswer and Vote are reserved and MUST NOT be registered with a
// Handler; Register returns an error if they are.
type Handler struct {
	tools map[string]Tool
}

// NewHandler builds a Handler from a list of tools.
func NewHandler(tools ...Tool) (*Handler, error) {
	h := &Handler{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := h.Register(t); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Register adds a tool to the handler.
func (h *Handler) Register(t Tool) error {
	name := t.Definition().Name
	if name == NewAnswer || name == Vote {
		return fmt.Errorf("tool: %q is a reserved coordination tool name and cannot be registered with a handler", name)
	}
	if h.tools == nil {
		h.tools = make(map[string]Tool)
	}
	h.tools[name] = t
	return nil
}

// Definitions returns the Definition of every registered tool, for
// inclusion in a backend Request's Tools list.
func (h *Handler) Definitions() []Definition {
	defs := make([]Definition, 0, len(h.tools))
	for _, t := range h.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Handle dispatches name with raw arguments (decoded object, or JSON
// string per spec.md §3) to its registered tool.
func (h *Handler) Handle(ctx context.Context, name string, rawArgs any) (Result, error) {
	t, ok := h.tools[name]
	if !ok {
		return Result{}, fmt.Errorf("tool: no handler registered for %q", name)
	}
	args, err := NormalizeArguments(rawArgs)
	if err != nil {
		return Result{IsError: true, Output: err.Error()}, nil
	}
	return t.Call(ctx, args)
}

// NormalizeArguments decodes a ToolCall's Arguments field, which per
// spec.md §3 may arrive as an already-decoded object or as a raw JSON
// string, into a map[string]any. A malformed JSON string downgrades to a
// ProtocolError-shaped error rather than panicking, per spec.md §7.
func NormalizeArguments(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return map[string]any{}, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("tool: malformed argument JSON: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("tool: unsupported arguments type %T", raw)
	}
}
