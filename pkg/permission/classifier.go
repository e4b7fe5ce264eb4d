package permission

import "strings"

// readOnlyTools lists tool names the default classifier treats as
// read-capability: file reads, directory listings, and stat operations,
// per spec.md §4.2's fixed table. Every other name, including unrecognized
// ones, is treated as write-capable, matching the spec's "err toward
// write when unsure" rule.
var readOnlyTools = map[string]bool{
	"read_file":  true,
	"list_dir":   true,
	"list_files": true,
	"stat_file":  true,
	"grep_search": true,
	"search_files": true,
	"glob":       true,
	"cat":        true,
	"ls":         true,
}

// writeSubstrings flags a tool as write-capable if its name contains any
// of these fragments, covering the common create/edit/delete/move/exec
// vocabulary without needing every backend's exact tool names enumerated.
var writeSubstrings = []string{
	"write", "edit", "patch", "delete", "remove", "rm",
	"move", "rename", "mkdir", "create", "exec", "shell", "run_command",
	"apply_patch", "search_replace",
}

// DefaultClassifier implements spec.md §4.2's fixed table: known read-only
// names are Read; anything containing a write-shaped verb, and anything
// unrecognized, is Write.
func DefaultClassifier(toolName string) Capability {
	name := strings.ToLower(toolName)
	if readOnlyTools[name] {
		return Read
	}
	for _, frag := range writeSubstrings {
		if strings.Contains(name, frag) {
			return Write
		}
	}
	// Unknown tool name: err toward write, per spec.md §4.2.
	return Write
}
