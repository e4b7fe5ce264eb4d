package tool

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// NewAnswerArgs is the argument shape of the new_answer coordination tool.
type NewAnswerArgs struct {
	Content string `json:"content" jsonschema:"required,description=The complete candidate answer to the user's task"`
}

// VoteArgs is the argument shape of the vote coordination tool.
type VoteArgs struct {
	AgentID string `json:"agent_id" jsonschema:"required,description=ID of the agent whose answer is being voted for"`
	Reason  string `json:"reason,omitempty" jsonschema:"description=Why this answer was chosen"`
}

var schemaReflector = &jsonschema.Reflector{
	ExpandedStruct: true,
	DoNotReference: true,
}

// schemaFor generates a JSON-Schema parameter map for a Go struct using the
// same struct-tag convention the teacher's tool definitions use
// (`jsonschema:"required,description=..."`).
func schemaFor(v any) map[string]any {
	s := schemaReflector.Reflect(v)
	data, err := s.MarshalJSON()
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}

// CoordinationDefinitions returns the Definition of the two
// orchestrator-reserved tools (new_answer, vote), to be merged into every
// agent's advertised tool set regardless of task-specific tools, per
// spec.md §4.4.2.
func CoordinationDefinitions() []Definition {
	return []Definition{
		{
			Name:        NewAnswer,
			Description: "Submit a new candidate answer to the task. Replaces any previous answer or vote from this agent.",
			Parameters:  schemaFor(NewAnswerArgs{}),
		},
		{
			Name:        Vote,
			Description: "Vote for another agent's submitted answer as the best candidate. Replaces any previous answer or vote from this agent.",
			Parameters:  schemaFor(VoteArgs{}),
		},
	}
}
