// Package agentrunner implements the Agent Runner: it drives one agent
// through one attempt, formatting messages, invoking its backend,
// consuming the resulting Stream Chunks, detecting coordination tool
// calls, and enforcing filesystem permissions on every other tool call,
// per spec.md §4.4.
package agentrunner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/massgen/massgen/pkg/permission"
	"github.com/massgen/massgen/pkg/stream"
	"github.com/massgen/massgen/pkg/tool"
)

// State is the coordination-relevant state a runner observes its agent to
// be in at the end of one pass, mirroring the orchestrator-local
// AgentState of spec.md §3.
type State string

const (
	StateWorking    State = "working"
	StateHasAnswer  State = "has_answer"
	StateVoted      State = "voted"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Outcome is what one Run call produced: at most one of Answer / VoteFor
// is set, per the "at most one of has_answer/voted" invariant in spec.md
// §3 — a later coordination call in the same Run overwrites an earlier one.
type Outcome struct {
	AgentID          string
	State            State
	Answer           string
	AnsweredAt       time.Time
	VoteFor          string
	VoteReason       string
	RestartRequested bool
	RestartReason    string
	Err              error
}

// Backend is the adapter contract of spec.md §6: given a message history
// and the tools to advertise, it returns a lazy sequence of Stream Chunks.
type Backend interface {
	ExecuteStreaming(ctx context.Context, messages []stream.Message, tools []tool.Definition) stream.Seq
}

// Config configures one Runner instance, built fresh per agent per attempt.
type Config struct {
	AgentID       string
	SystemPrompt  string
	Backend       Backend
	Tools         *tool.Handler
	Permissions   *permission.Manager
	RestartToolName string // defaults to tool.Restart if empty
	MaxIterations int      // defaults to 25 if zero
	PathArg       string   // argument key tools use for a filesystem path; defaults to "path"
}

// Runner drives one agent through one attempt's worth of backend calls.
type Runner struct {
	cfg Config
}

// New builds a Runner from cfg, applying defaults.
func New(cfg Config) *Runner {
	if cfg.RestartToolName == "" {
		cfg.RestartToolName = tool.Restart
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 25
	}
	if cfg.PathArg == "" {
		cfg.PathArg = "path"
	}
	return &Runner{cfg: cfg}
}

// Emit is called for every chunk the runner produces, already tagged with
// AgentID, so callers (the orchestrator) can fan them out to displays.
type Emit func(stream.Chunk)

// Run drives the agent's reasoning loop: invoke the backend, consume its
// stream, dispatch non-coordination tool calls (permission-gated), and
// feed tool results back in, until a coordination tool call is observed,
// the backend yields a final response with no tool calls, or
// MaxIterations is exceeded. When a single response names more than one
// coordination call (e.g. both new_answer and vote), they resolve
// last-write-wins in list order, per spec.md §3's "has_answer ↔ voted:
// allowed (last write wins)" invariant.
func (r *Runner) Run(ctx context.Context, history []stream.Message, emit Emit) Outcome {
	messages := append([]stream.Message{
		{Role: stream.RoleSystem, Content: r.cfg.SystemPrompt},
	}, history...)

	toolDefs := append(r.cfg.Tools.Definitions(), tool.CoordinationDefinitions()...)

	outcome := Outcome{AgentID: r.cfg.AgentID, State: StateWorking}

	for i := 0; i < r.cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			outcome.State = StateFailed
			outcome.Err = ctx.Err()
			return outcome
		}

		var content strings.Builder
		var calls []stream.ToolCall
		sawCompleteMessage := false
		terminatedInError := false

		for chunk := range stream.Guard(stream.EnsureTerminal(r.cfg.Backend.ExecuteStreaming(ctx, messages, toolDefs))) {
			emit(chunk.WithAgent(r.cfg.AgentID))

			switch chunk.Kind {
			case stream.KindContent:
				content.WriteString(chunk.Text)
			case stream.KindCompleteMessage:
				// The complete_message chunk is authoritative for the whole
				// turn, per spec.md §4.1: it replaces, not appends to,
				// whatever content/tool_calls chunks streamed before it.
				sawCompleteMessage = true
				content.Reset()
				content.WriteString(chunk.Message.Content)
				calls = append([]stream.ToolCall(nil), chunk.Message.ToolCalls...)
			case stream.KindToolCalls:
				if !sawCompleteMessage {
					calls = append(calls, chunk.ToolCalls...)
				}
			case stream.KindError:
				slog.Warn("agentrunner: backend reported error", "agent_id", r.cfg.AgentID, "error", chunk.ErrMessage)
				outcome.Err = fmt.Errorf("agentrunner: backend error: %s", chunk.ErrMessage)
				terminatedInError = true
			}
		}

		if terminatedInError {
			outcome.State = StateFailed
			return outcome
		}

		messages = append(messages, stream.Message{
			Role:      stream.RoleAssistant,
			Content:   content.String(),
			ToolCalls: calls,
		})

		if len(calls) == 0 {
			if outcome.State == StateWorking {
				outcome.State = StateCompleted
			}
			return outcome
		}

		coordinationSeen := false

		for _, call := range calls {
			switch call.Name {
			case tool.NewAnswer:
				args, err := argsOf(call)
				if err != nil {
					outcome.Err = err
					outcome.State = StateFailed
					return outcome
				}
				outcome.Answer, _ = args["content"].(string)
				outcome.AnsweredAt = time.Now()
				outcome.VoteFor = ""
				outcome.State = StateHasAnswer
				coordinationSeen = true
			case tool.Vote:
				args, err := argsOf(call)
				if err != nil {
					outcome.Err = err
					outcome.State = StateFailed
					return outcome
				}
				outcome.VoteFor, _ = args["agent_id"].(string)
				outcome.VoteReason, _ = args["reason"].(string)
				outcome.Answer = ""
				outcome.State = StateVoted
				coordinationSeen = true
			case r.cfg.RestartToolName:
				args, err := argsOf(call)
				if err == nil {
					outcome.RestartReason, _ = args["reason"].(string)
				}
				outcome.RestartRequested = true
				return outcome
			default:
				result, err := r.dispatch(ctx, call)
				if err != nil {
					result = tool.Result{IsError: true, Output: err.Error()}
				}
				rc := stream.ToolResultChunk(call.ID, result.Output, result.IsError)
				emit(rc.WithAgent(r.cfg.AgentID))
				messages = append(messages, stream.Message{
					Role:    stream.RoleTool,
					Content: result.Output,
				})
			}
		}

		if coordinationSeen {
			return outcome
		}
	}

	outcome.State = StateFailed
	outcome.Err = fmt.Errorf("agentrunner: %q exceeded %d iterations without a final response", r.cfg.AgentID, r.cfg.MaxIterations)
	return outcome
}

// dispatch resolves a non-coordination tool call, consulting the Path
// Permission Manager first when the call carries the configured path
// argument, per spec.md §4.2's "any filesystem-affecting tool must pass
// through the Path Permission Manager" contract.
func (r *Runner) dispatch(ctx context.Context, call stream.ToolCall) (tool.Result, error) {
	args, err := tool.NormalizeArguments(call.Arguments)
	if err != nil {
		return tool.Result{}, err
	}

	if r.cfg.Permissions != nil {
		if rawPath, ok := args[r.cfg.PathArg].(string); ok && rawPath != "" {
			if allowed, reason := r.cfg.Permissions.Check(call.Name, rawPath); !allowed {
				return tool.Result{IsError: true, Output: "permission denied: " + reason}, nil
			}
		}
	}

	return r.cfg.Tools.Handle(ctx, call.Name, args)
}

func argsOf(call stream.ToolCall) (map[string]any, error) {
	return tool.NormalizeArguments(call.Arguments)
}
