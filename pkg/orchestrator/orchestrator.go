// Package orchestrator implements the turn-attempt state machine of
// spec.md §4.5: it launches every agent's runner in parallel, aggregates
// their answers and votes, selects a winner with deterministic
// tie-breaks, drives restarts, and runs the winner's final-presentation
// pass.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/massgen/massgen/pkg/agentrunner"
	"github.com/massgen/massgen/pkg/attempt"
	"github.com/massgen/massgen/pkg/coordination"
	"github.com/massgen/massgen/pkg/metrics"
	"github.com/massgen/massgen/pkg/stream"
)

// AgentSpec is one participant in a turn: an identity, the runner
// configuration to launch it with, and the workspace root Attempt Storage
// snapshots at attempt close, per spec.md §4.5.5.
type AgentSpec struct {
	AgentID       string
	Runner        *agentrunner.Runner
	WorkspacePath string
}

// Config configures one Orchestrator for the lifetime of one session.
type Config struct {
	Agents []AgentSpec

	Attempts    *attempt.Store
	Tracker     *coordination.Tracker
	Metrics     *metrics.Recorder // nil is valid; Recorder methods no-op on nil
	Display     Emit              // fan-out of every agent's tagged chunks; nil is valid

	MaxRestarts int // default 3
	AttemptTimeout time.Duration // default 0 = unbounded

	// AllowSelfVote mirrors config.Tunables.AllowSelfVote; nil defaults to
	// allowed, per spec.md §9's resolved Open Question.
	AllowSelfVote *bool

	// FinalPresentationPrompt, if set, is appended as a system message to
	// the winner's final-presentation invocation.
	FinalPresentationPrompt string
}

// Emit receives every chunk produced during a turn, already tagged with
// the producing agent's AgentID. The orchestrator emits no chunks of its
// own.
type Emit func(stream.Chunk)

// Orchestrator drives turns for one session.
type Orchestrator struct {
	cfg Config
}

// New builds an Orchestrator, applying defaults.
func New(cfg Config) *Orchestrator {
	if cfg.MaxRestarts == 0 {
		cfg.MaxRestarts = 3
	}
	if cfg.Display == nil {
		cfg.Display = func(stream.Chunk) {}
	}
	if cfg.Tracker == nil {
		cfg.Tracker = coordination.New()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop()
	}
	return &Orchestrator{cfg: cfg}
}

// TurnResult is what RunTurn returns on completion (success or failure).
type TurnResult struct {
	Turn           int
	AttemptNumber  int
	WinningAgentID string
	Answer         string
	Err            error
}

// RunTurn drives one turn to completion: it launches all agents, resolves
// the winner (restarting as needed), runs the final-presentation round,
// and persists the outcome via Attempt Storage.
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID string, turn int, task string, history []stream.Message) TurnResult {
	var restartBriefing string

	for attemptNumber := 1; ; attemptNumber++ {
		if attemptNumber > o.cfg.MaxRestarts+1 {
			return TurnResult{Turn: turn, Err: fmt.Errorf("orchestrator: turn %d exceeded max restarts (%d)", turn, o.cfg.MaxRestarts)}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if o.cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		}

		messages := history
		if restartBriefing != "" {
			messages = append(append([]stream.Message{}, history...), stream.Message{
				Role:    stream.RoleUser,
				Content: restartBriefing,
			})
		}

		outcomes := o.launchAll(attemptCtx, messages)
		if cancel != nil {
			// Runners cut off by the per-attempt timeout count as completed,
			// not failed.
			if ctx.Err() == nil && attemptCtx.Err() != nil {
				for i := range outcomes {
					if outcomes[i].State == agentrunner.StateFailed && outcomes[i].Err == attemptCtx.Err() {
						outcomes[i].State = agentrunner.StateCompleted
					}
				}
			}
			cancel()
		}

		winner, restartReason, ok := o.resolve(ctx, turn, attemptNumber, outcomes)

		// Record the attempt's collective outcome as a single attempt_<n>
		// record, per spec.md §4.3's single workspace_snapshot_path per
		// attempt: one record per (turn, attempt), not one per agent, since
		// the storage layout keys attempts by (turn, attempt) alone and a
		// later call on the same key replaces the earlier one. On a
		// successful pass the final-presentation answer is saved again
		// below under the same key, replacing this record.
		answer := ""
		winningID := ""
		if ok {
			answer = winner.Answer
			winningID = winner.AgentID
		}
		if _, err := o.cfg.Attempts.SaveAttempt(ctx, attempt.Attempt{
			SessionID:      sessionID,
			Turn:           turn,
			AttemptNumber:  attemptNumber,
			Task:           task,
			AnswerText:     answer,
			WinningAgentID: winningID,
			RestartReason:  restartReason,
			Timestamp:      time.Now(),
		}, o.representativeWorkspace(outcomes, winningID)); err != nil {
			slog.Warn("orchestrator: failed to save attempt", "session_id", sessionID, "turn", turn, "attempt", attemptNumber, "error", err)
		}

		if !ok {
			o.cfg.Metrics.RecordRestart(ctx, restartReason)
			o.cfg.Tracker.RecordRestart(turn, attemptNumber, restartReason, time.Now())
			priors, err := o.cfg.Attempts.PreviousAttemptsContext(ctx, sessionID, turn, attemptNumber+1)
			if err != nil {
				slog.Warn("orchestrator: failed to load previous attempts context", "error", err)
			}
			restartBriefing = briefingFrom(priors, restartReason)
			continue
		}

		o.cfg.Tracker.RecordWinner(turn, attemptNumber, winner.AgentID, time.Now())

		final := o.runFinalPresentation(ctx, winner, messages)

		if _, err := o.cfg.Attempts.SaveAttempt(ctx, attempt.Attempt{
			SessionID:      sessionID,
			Turn:           turn,
			AttemptNumber:  attemptNumber,
			Task:           task,
			AnswerText:     final,
			WinningAgentID: winner.AgentID,
			Timestamp:      time.Now(),
		}, o.representativeWorkspace(outcomes, winner.AgentID)); err != nil {
			return TurnResult{Turn: turn, AttemptNumber: attemptNumber, Err: fmt.Errorf("orchestrator: persist final answer: %w", err)}
		}
		if err := o.cfg.Attempts.MarkSuccessfulAttempt(ctx, sessionID, turn, attemptNumber); err != nil {
			return TurnResult{Turn: turn, AttemptNumber: attemptNumber, Err: fmt.Errorf("orchestrator: mark successful attempt: %w", err)}
		}

		return TurnResult{Turn: turn, AttemptNumber: attemptNumber, WinningAgentID: winner.AgentID, Answer: final}
	}
}

// launchAll runs every agent's runner to completion in parallel. A runner
// panic or error is isolated to that agent, per spec.md §4.5/§7's failure
// isolation: it never aborts sibling runners.
func (o *Orchestrator) launchAll(ctx context.Context, messages []stream.Message) []agentrunner.Outcome {
	outcomes := make([]agentrunner.Outcome, len(o.cfg.Agents))
	g, gctx := errgroup.WithContext(ctx)

	for i, spec := range o.cfg.Agents {
		i, spec := i, spec
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					outcomes[i] = agentrunner.Outcome{AgentID: spec.AgentID, State: agentrunner.StateFailed, Err: fmt.Errorf("orchestrator: runner for %q panicked: %v", spec.AgentID, p)}
				}
			}()
			outcomes[i] = spec.Runner.Run(gctx, messages, o.cfg.Display)
			return nil
		})
	}
	_ = g.Wait() // runner errors are carried in Outcome.Err, never fatal to siblings

	return outcomes
}

// resolve computes the turn's candidate/vote sets from a batch of final
// outcomes and applies winner selection, per spec.md §4.5 steps 2-4.
func (o *Orchestrator) resolve(ctx context.Context, turn, attemptNumber int, outcomes []agentrunner.Outcome) (winner agentrunner.Outcome, restartReason string, ok bool) {
	answered := map[string]agentrunner.Outcome{}
	for _, oc := range outcomes {
		if oc.State == agentrunner.StateHasAnswer {
			answered[oc.AgentID] = oc
			o.cfg.Tracker.RecordAnswer(turn, attemptNumber, oc.AgentID, oc.AnsweredAt)
			o.cfg.Metrics.RecordAnswer(ctx, oc.AgentID)
		}
	}

	votes := map[string]int{}
	for _, oc := range outcomes {
		if oc.State != agentrunner.StateVoted {
			continue
		}
		o.cfg.Metrics.RecordVote(ctx, oc.AgentID)
		if oc.VoteFor == oc.AgentID && !o.selfVoteAllowed() {
			slog.Warn("orchestrator: dropping disallowed self-vote", "turn", turn, "agent", oc.AgentID)
			continue
		}
		if _, targetAnswered := answered[oc.VoteFor]; !targetAnswered {
			slog.Warn("orchestrator: dropping vote for agent without an answer",
				"turn", turn, "voter", oc.AgentID, "target", oc.VoteFor)
			continue
		}
		votes[oc.VoteFor]++
		o.cfg.Tracker.RecordVote(turn, attemptNumber, oc.AgentID, oc.VoteFor, oc.VoteReason, time.Now())
	}

	for _, oc := range outcomes {
		if oc.RestartRequested {
			return agentrunner.Outcome{}, requestedRestartReason(oc), false
		}
	}

	if len(answered) == 0 {
		return agentrunner.Outcome{}, "no agent produced an answer", false
	}

	candidates := make([]agentrunner.Outcome, 0, len(answered))
	for _, oc := range answered {
		candidates = append(candidates, oc)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		va, vb := votes[a.AgentID], votes[b.AgentID]
		if va != vb {
			return va > vb
		}
		if !a.AnsweredAt.Equal(b.AnsweredAt) {
			return a.AnsweredAt.Before(b.AnsweredAt)
		}
		return a.AgentID < b.AgentID
	})

	return candidates[0], "", true
}

func (o *Orchestrator) selfVoteAllowed() bool {
	return o.cfg.AllowSelfVote == nil || *o.cfg.AllowSelfVote
}

func requestedRestartReason(oc agentrunner.Outcome) string {
	if oc.RestartReason != "" {
		return oc.RestartReason
	}
	return fmt.Sprintf("agent %q requested a restart", oc.AgentID)
}

// runFinalPresentation re-invokes the winner with a specialized prompt to
// produce the user-facing answer, per spec.md §4.5 step 6.
func (o *Orchestrator) runFinalPresentation(ctx context.Context, winner agentrunner.Outcome, messages []stream.Message) string {
	spec, ok := o.agentByID(winner.AgentID)
	if !ok {
		return winner.Answer
	}

	prompt := o.cfg.FinalPresentationPrompt
	if prompt == "" {
		prompt = "Your answer was selected as the winner. Produce the final, polished, user-facing response now."
	}

	final := spec.Runner.Run(ctx, append(append([]stream.Message{}, messages...), stream.Message{
		Role:    stream.RoleUser,
		Content: prompt,
	}), o.cfg.Display)

	if final.Err != nil || final.Answer == "" {
		return winner.Answer
	}
	return final.Answer
}

// representativeWorkspace picks the workspace root Attempt Storage should
// snapshot for this attempt's single workspace_snapshot_path, per spec.md
// §4.3. With a winner, that is the winner's workspace. Without one (an
// inconclusive or restarted attempt), it falls back to the workspace of
// whichever agent answered first (earliest AnsweredAt, then AgentID), so
// restart lineage still has a workspace to reference; an attempt with no
// answer at all snapshots nothing.
func (o *Orchestrator) representativeWorkspace(outcomes []agentrunner.Outcome, winnerID string) string {
	if winnerID != "" {
		if spec, ok := o.agentByID(winnerID); ok {
			return spec.WorkspacePath
		}
	}

	var best *agentrunner.Outcome
	for i := range outcomes {
		oc := outcomes[i]
		if oc.State != agentrunner.StateHasAnswer {
			continue
		}
		if best == nil || oc.AnsweredAt.Before(best.AnsweredAt) || (oc.AnsweredAt.Equal(best.AnsweredAt) && oc.AgentID < best.AgentID) {
			best = &oc
		}
	}
	if best == nil {
		return ""
	}
	spec, ok := o.agentByID(best.AgentID)
	if !ok {
		return ""
	}
	return spec.WorkspacePath
}

func (o *Orchestrator) agentByID(id string) (AgentSpec, bool) {
	for _, a := range o.cfg.Agents {
		if a.AgentID == id {
			return a, true
		}
	}
	return AgentSpec{}, false
}

// briefingFrom composes a restart briefing message referencing prior
// attempts, per spec.md §4.5 step 5.
func briefingFrom(priors []attempt.Attempt, reason string) string {
	msg := fmt.Sprintf("The previous attempt was restarted: %s\n\nPrior attempts in this turn:\n", reason)
	for _, p := range priors {
		msg += fmt.Sprintf("- attempt %d (winner=%q): %s\n", p.AttemptNumber, p.WinningAgentID, truncate(p.AnswerText, 400))
	}
	return msg
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
