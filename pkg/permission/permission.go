// Package permission implements the Path Permission Manager: it classifies
// every filesystem-affecting tool call an agent makes as an allowed read,
// an allowed write, or a denial, per spec.md §4.2.
package permission

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/massgen/massgen/internal/pathutil"
)

// Capability is the access level a ManagedPath grants.
type Capability int

const (
	Read Capability = iota
	Write
)

func (c Capability) String() string {
	if c == Write {
		return "write"
	}
	return "read"
}

// ManagedPath is one entry in the manager's ordered list of roots.
type ManagedPath struct {
	Path       string
	Capability Capability
}

// Manager holds the ordered list of managed paths for one agent's attempt
// and answers pre-tool-use permission checks, modelled on
// original_source/massgen/mcp_tools/permission_wrapper.py's
// pre_tool_use_hook(name, args) -> (allowed, reason), except that Check
// takes one path rather than the call's whole argument map.
type Manager struct {
	mu    sync.RWMutex
	paths []resolvedPath
	table Classifier

	watcher *fsnotify.Watcher
}

type resolvedPath struct {
	original string
	resolved string
	cap      Capability
}

// Classifier maps a tool name to the Capability it requires. Unknown tool
// names MUST err toward Write, per spec.md §4.2.
type Classifier func(toolName string) Capability

// New builds a Manager from an ordered list of managed paths. Paths are
// canonicalized (symlinks resolved) eagerly so later checks are cheap; a
// path that does not yet exist on disk (it may be created by the agent
// itself, e.g. its own workspace before first use) is canonicalized through
// its deepest existing ancestor.
func New(paths []ManagedPath, classify Classifier) (*Manager, error) {
	if classify == nil {
		classify = DefaultClassifier
	}
	m := &Manager{table: classify}
	for _, p := range paths {
		if err := m.addLocked(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// WatchForRemoval starts an fsnotify watcher on every managed root so that,
// in a long-lived orchestrator process, removal of a managed directory
// invalidates this Manager's cached canonical resolution for it instead of
// silently continuing to serve a stale allow decision. Safe to call once;
// returns an error if a watcher could not be created (e.g. inotify limits
// exhausted) — callers may ignore it; Check then keeps using each managed
// root as it was resolved at registration.
func (m *Manager) WatchForRemoval() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("permission: create watcher: %w", err)
	}
	m.mu.Lock()
	m.watcher = w
	paths := make([]resolvedPath, len(m.paths))
	copy(paths, m.paths)
	m.mu.Unlock()

	for _, p := range paths {
		if err := w.Add(p.resolved); err != nil {
			slog.Warn("permission: failed to watch managed path", "path", p.resolved, "error", err)
		}
	}

	go func() {
		for event := range w.Events {
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				slog.Warn("permission: managed path removed or renamed, re-resolving", "path", event.Name)
				m.mu.Lock()
				for i, p := range m.paths {
					if p.resolved == event.Name {
						if r, err := pathutil.Canonicalize(p.original); err == nil {
							m.paths[i].resolved = r
						}
					}
				}
				m.mu.Unlock()
			}
		}
	}()

	return nil
}

// Close releases the watcher, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

func (m *Manager) addLocked(p ManagedPath) error {
	resolved, err := pathutil.Canonicalize(p.Path)
	if err != nil {
		return fmt.Errorf("permission: resolve managed path %q: %w", p.Path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, resolvedPath{original: p.Path, resolved: resolved, cap: p.Capability})
	return nil
}

// Add registers an additional managed path after construction (e.g. a
// context path handed to an agent mid-attempt).
func (m *Manager) Add(p ManagedPath) error {
	return m.addLocked(p)
}

// Check resolves the one path it is given, finds the innermost managed
// root containing it, and decides allow/deny per spec.md §4.2. Other
// path-like arguments of the same tool call are not examined; the Agent
// Runner passes only the value of its configured PathArg key.
//  1. canonicalize the argument path
//  2. find the innermost managed prefix; none found => deny
//  3. write-capable tool against a read-only root => deny
//  4. otherwise allow
//
// A denial is never fatal to the caller: per spec.md §4.2 the Agent
// Runner synthesizes a tool_result chunk with is_error=true and continues.
func (m *Manager) Check(toolName string, rawPath string) (allowed bool, reason string) {
	required := m.table(toolName)

	resolved, err := pathutil.Canonicalize(rawPath)
	if err != nil {
		return false, fmt.Sprintf("cannot resolve path %q: %v", rawPath, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	match, ok := m.innermostMatch(resolved)
	if !ok {
		return false, fmt.Sprintf("path %q is outside all managed workspaces", rawPath)
	}

	if required == Write && match.cap != Write {
		return false, fmt.Sprintf("tool %q requires write access but %q is read-only", toolName, match.original)
	}

	return true, ""
}

// innermostMatch returns the managed root that is a prefix of resolved and
// has the longest (most specific) path, per spec.md §4.2 step 2.
func (m *Manager) innermostMatch(resolved string) (resolvedPath, bool) {
	var best resolvedPath
	found := false
	for _, p := range m.paths {
		if pathutil.IsWithin(resolved, p.resolved) {
			if !found || len(p.resolved) > len(best.resolved) {
				best = p
				found = true
			}
		}
	}
	return best, found
}
