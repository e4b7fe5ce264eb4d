// Package session implements the Session Manager: it assigns session
// IDs, reconstructs conversation history on resume, and records the
// outcome of each closed turn, per spec.md §4.6.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/massgen/massgen/pkg/attempt"
	"github.com/massgen/massgen/pkg/stream"
)

// Manager supplies previous-turn context to the orchestrator and records
// new turn outcomes via the underlying Attempt Storage.
type Manager struct {
	store *attempt.Store
}

// NewManager builds a Manager backed by an Attempt Storage store.
func NewManager(store *attempt.Store) *Manager {
	return &Manager{store: store}
}

// NewSessionID returns a new session identifier that is globally unique
// and sortable by creation time: a UTC timestamp prefix with nanosecond
// precision followed by a random UUID suffix. The suffix makes IDs unique;
// two IDs with the same timestamp prefix sort by their random suffix, not
// by issuance order.
func NewSessionID() string {
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405.000000000"), uuid.NewString())
}

// Resumed is the result of resuming an existing session: the alternating
// user/assistant message history plus the per-turn records it was built
// from (for callers that need turn numbers or workspace paths too).
type Resumed struct {
	History []stream.Message
	Turns   []attempt.TurnRecord
}

// Resume loads a session's closed turns and reconstructs conversation
// history as alternating user (= task) / assistant (= winning answer)
// messages, in turn order. An unknown session resumes as an empty history,
// not an error — it is indistinguishable from a brand-new session.
func (m *Manager) Resume(ctx context.Context, sessionID string) (Resumed, error) {
	turns, err := m.store.PreviousTurnsForSession(ctx, sessionID)
	if err != nil {
		return Resumed{}, fmt.Errorf("session: resume %q: %w", sessionID, err)
	}

	history := make([]stream.Message, 0, len(turns)*2)
	for _, t := range turns {
		history = append(history,
			stream.Message{Role: stream.RoleUser, Content: t.Task},
			stream.Message{Role: stream.RoleAssistant, Content: t.AnswerText},
		)
	}
	return Resumed{History: history, Turns: turns}, nil
}

// NextTurnNumber returns the turn number a new turn on this session should
// use: one greater than the highest closed turn, or 1 for a new session.
func (m *Manager) NextTurnNumber(ctx context.Context, sessionID string) (int, error) {
	turns, err := m.store.PreviousTurnsForSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("session: next turn number for %q: %w", sessionID, err)
	}
	max := 0
	for _, t := range turns {
		if t.Turn > max {
			max = t.Turn
		}
	}
	return max + 1, nil
}

// RecordTurn closes out a turn by marking its winning attempt successful,
// which also appends the winner to the session's winning_agents_history.
func (m *Manager) RecordTurn(ctx context.Context, sessionID string, turn, winningAttempt int) error {
	if err := m.store.MarkSuccessfulAttempt(ctx, sessionID, turn, winningAttempt); err != nil {
		return fmt.Errorf("session: record turn %d of %q: %w", turn, sessionID, err)
	}
	return nil
}
