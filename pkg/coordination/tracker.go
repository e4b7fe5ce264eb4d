// Package coordination implements the Coordination Tracker: a pure,
// append-only log of coordination-relevant events (answers submitted,
// votes cast, restarts, winners chosen) for post-hoc display. It contains
// no decision logic of its own — the orchestrator decides, the tracker
// only records, per spec.md §4.7.
package coordination

import (
	"sync"
	"time"
)

// EventKind tags the shape of an Event.
type EventKind string

const (
	EventAnswerSubmitted EventKind = "answer_submitted"
	EventVoteCast        EventKind = "vote_cast"
	EventRestart         EventKind = "restart"
	EventWinnerChosen    EventKind = "winner_chosen"
	EventAgentFailed     EventKind = "agent_failed"
)

// Event is one recorded coordination-relevant occurrence. Seq is
// strictly increasing within a session, assigned by the Tracker at
// record time; it is never reused even across restarts.
type Event struct {
	Seq       uint64
	Kind      EventKind
	Turn      int
	Attempt   int
	AgentID   string
	VoteFor   string
	Reason    string
	Timestamp time.Time
}

// Tracker is a per-session event log. It is safe for concurrent use: the
// orchestrator is the only writer in practice, but Subscribe readers and
// Events snapshots may run concurrently with recording.
type Tracker struct {
	mu     sync.RWMutex
	nextSeq uint64
	events []Event

	subsMu sync.Mutex
	subs   []chan Event
}

// New returns an empty Tracker for one session.
func New() *Tracker {
	return &Tracker{}
}

// record appends an event, stamping it with the next sequence number, and
// fans it out to any active subscribers. Subscribers that are not keeping
// up are dropped from delivery for this event rather than blocking the
// orchestrator.
func (t *Tracker) record(e Event) Event {
	t.mu.Lock()
	t.nextSeq++
	e.Seq = t.nextSeq
	t.events = append(t.events, e)
	t.mu.Unlock()

	t.subsMu.Lock()
	for _, ch := range t.subs {
		select {
		case ch <- e:
		default:
		}
	}
	t.subsMu.Unlock()

	return e
}

// RecordAnswer logs that agentID submitted a new answer.
func (t *Tracker) RecordAnswer(turn, attempt int, agentID string, when time.Time) Event {
	return t.record(Event{Kind: EventAnswerSubmitted, Turn: turn, Attempt: attempt, AgentID: agentID, Timestamp: when})
}

// RecordVote logs that agentID voted for voteFor.
func (t *Tracker) RecordVote(turn, attempt int, agentID, voteFor, reason string, when time.Time) Event {
	return t.record(Event{Kind: EventVoteCast, Turn: turn, Attempt: attempt, AgentID: agentID, VoteFor: voteFor, Reason: reason, Timestamp: when})
}

// RecordRestart logs a turn restart.
func (t *Tracker) RecordRestart(turn, attempt int, reason string, when time.Time) Event {
	return t.record(Event{Kind: EventRestart, Turn: turn, Attempt: attempt, Reason: reason, Timestamp: when})
}

// RecordWinner logs the winner chosen for a turn's attempt.
func (t *Tracker) RecordWinner(turn, attempt int, agentID string, when time.Time) Event {
	return t.record(Event{Kind: EventWinnerChosen, Turn: turn, Attempt: attempt, AgentID: agentID, Timestamp: when})
}

// RecordAgentFailed logs that agentID's runner failed for this attempt.
func (t *Tracker) RecordAgentFailed(turn, attempt int, agentID, reason string, when time.Time) Event {
	return t.record(Event{Kind: EventAgentFailed, Turn: turn, Attempt: attempt, AgentID: agentID, Reason: reason, Timestamp: when})
}

// Events returns a snapshot of every event recorded so far, in Seq order.
func (t *Tracker) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Subscribe returns a channel that receives every event recorded after
// this call, for a display adapter's live feed. The caller must call the
// returned cancel function to stop delivery and release the channel.
func (t *Tracker) Subscribe() (events <-chan Event, cancel func()) {
	ch := make(chan Event, 64)
	t.subsMu.Lock()
	t.subs = append(t.subs, ch)
	t.subsMu.Unlock()

	cancelFn := func() {
		t.subsMu.Lock()
		defer t.subsMu.Unlock()
		for i, c := range t.subs {
			if c == ch {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancelFn
}
