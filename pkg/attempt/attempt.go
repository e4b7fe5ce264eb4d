// Package attempt implements Attempt Storage: the durable record of every
// attempt an orchestrator makes at a turn, laid out on disk so that older
// tools reading `metadata`/`answer`/`workspace/` by name keep working.
package attempt

import "time"

// Attempt is one recorded attempt at one turn of one session.
type Attempt struct {
	SessionID            string
	Turn                 int
	AttemptNumber        int
	Task                 string
	AnswerText           string
	WinningAgentID       string
	RestartReason        string
	RestartInstructions  string
	Timestamp            time.Time
}

// Successful reports whether this attempt's metadata names a winning agent.
// It does not consult the turn's successful_attempt marker written by
// MarkSuccessfulAttempt.
func (a Attempt) Successful() bool {
	return a.WinningAgentID != ""
}

// TurnRecord summarizes a closed turn's successful (or best) attempt, as
// returned by PreviousTurnsForSession.
type TurnRecord struct {
	Turn          int
	AttemptNumber int
	Task          string
	AnswerText    string
	WinningAgent  string
	WorkspacePath string
	FromFallback  bool // true if no attempt was marked successful
}

// metadataFile is the on-disk JSON shape of an attempt's metadata file.
type metadataFile struct {
	SessionID           string    `json:"session_id"`
	Turn                int       `json:"turn"`
	AttemptNumber       int       `json:"attempt_number"`
	Task                string    `json:"task"`
	WinningAgentID      string    `json:"winning_agent,omitempty"`
	RestartReason       string    `json:"restart_reason,omitempty"`
	RestartInstructions string    `json:"restart_instructions,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

func (a Attempt) toFile() metadataFile {
	return metadataFile{
		SessionID:           a.SessionID,
		Turn:                a.Turn,
		AttemptNumber:       a.AttemptNumber,
		Task:                a.Task,
		WinningAgentID:      a.WinningAgentID,
		RestartReason:       a.RestartReason,
		RestartInstructions: a.RestartInstructions,
		Timestamp:           a.Timestamp,
	}
}

func (m metadataFile) toAttempt(answer string) Attempt {
	return Attempt{
		SessionID:           m.SessionID,
		Turn:                m.Turn,
		AttemptNumber:       m.AttemptNumber,
		Task:                m.Task,
		AnswerText:          answer,
		WinningAgentID:      m.WinningAgentID,
		RestartReason:       m.RestartReason,
		RestartInstructions: m.RestartInstructions,
		Timestamp:           m.Timestamp,
	}
}
