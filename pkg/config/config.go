// Package config defines the tunables the core requires from whatever
// supplies CLI flags or a config file — which this package deliberately
// does not implement, per spec.md §6's "CLI and config are out of scope".
package config

import "time"

// Tunables are the knobs spec.md §6 says the embedding CLI/config layer
// MUST supply: per-attempt timeout and max restarts per turn, plus the
// two behaviors spec.md leaves as Open Questions (self-voting, storage
// root) resolved here with their chosen defaults.
type Tunables struct {
	// PerAttemptTimeout bounds one agent attempt before still-working
	// runners are cancelled and treated as completed, per spec.md §4.5
	// step 3. Zero means no timeout to a consumer reading the field
	// directly; SetDefaults replaces a zero value with the default.
	PerAttemptTimeout time.Duration `yaml:"per_attempt_timeout,omitempty"`

	// MaxRestartsPerTurn caps restarts before a turn fails with
	// RestartExhausted, per spec.md §4.5 step 5 / §7.
	MaxRestartsPerTurn int `yaml:"max_restarts_per_turn,omitempty"`

	// AllowSelfVote controls whether an agent may vote for its own
	// answer. Resolved Open Question (spec.md §9): allowed by default.
	AllowSelfVote *bool `yaml:"allow_self_vote,omitempty"`

	// StorageRoots is the ordered list of Attempt Storage base
	// directories, per the dual-location merge behavior in spec.md §4.3.
	StorageRoots []string `yaml:"storage_roots,omitempty"`

	// RestartToolName is the tool name an agent calls to request a
	// restart; spec.md §4.5 leaves the exact name to the embedder.
	RestartToolName string `yaml:"restart_tool_name,omitempty"`
}

// DefaultTunables returns the tunables the core uses when an embedder
// supplies none.
func DefaultTunables() Tunables {
	allowSelfVote := true
	return Tunables{
		PerAttemptTimeout:  10 * time.Minute,
		MaxRestartsPerTurn: 3,
		AllowSelfVote:      &allowSelfVote,
		StorageRoots:       []string{"./sessions"},
		RestartToolName:    "request_restart",
	}
}

// SetDefaults fills in zero-valued fields with DefaultTunables' values,
// matching the teacher's Config.SetDefaults convention.
func (t *Tunables) SetDefaults() {
	d := DefaultTunables()
	if t.PerAttemptTimeout == 0 {
		t.PerAttemptTimeout = d.PerAttemptTimeout
	}
	if t.MaxRestartsPerTurn == 0 {
		t.MaxRestartsPerTurn = d.MaxRestartsPerTurn
	}
	if t.AllowSelfVote == nil {
		t.AllowSelfVote = d.AllowSelfVote
	}
	if len(t.StorageRoots) == 0 {
		t.StorageRoots = d.StorageRoots
	}
	if t.RestartToolName == "" {
		t.RestartToolName = d.RestartToolName
	}
}

// SelfVoteAllowed reports the resolved self-vote policy, defaulting to
// true when unset.
func (t Tunables) SelfVoteAllowed() bool {
	return t.AllowSelfVote == nil || *t.AllowSelfVote
}
