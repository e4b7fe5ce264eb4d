package attempt

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLIndex is an optional secondary index over Attempt Storage, queryable
// with SQL for operational tooling (e.g. "which sessions restarted more
// than twice today"). It is never the source of truth: the filesystem
// layout in store.go is, and SQLIndex can always be rebuilt from it via
// Rebuild.
type SQLIndex struct {
	db *sql.DB
}

// OpenSQLIndex opens (creating if needed) a pure-Go SQLite database at
// path for the attempt index.
func OpenSQLIndex(path string) (*SQLIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("attempt: open sqlite index: %w", err)
	}
	idx := &SQLIndex{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *SQLIndex) migrate() error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS attempts (
			session_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			attempt_number INTEGER NOT NULL,
			task TEXT NOT NULL,
			winning_agent TEXT,
			restart_reason TEXT,
			timestamp TEXT NOT NULL,
			PRIMARY KEY (session_id, turn, attempt_number)
		)
	`)
	if err != nil {
		return fmt.Errorf("attempt: migrate sqlite index: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (idx *SQLIndex) Close() error {
	return idx.db.Close()
}

// Index upserts one attempt's row. Callers invoke this after every
// successful SaveAttempt/MarkSuccessfulAttempt; failures here are
// non-fatal to the core since the filesystem layout remains authoritative.
func (idx *SQLIndex) Index(ctx context.Context, a Attempt) error {
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO attempts (session_id, turn, attempt_number, task, winning_agent, restart_reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, turn, attempt_number) DO UPDATE SET
			task = excluded.task,
			winning_agent = excluded.winning_agent,
			restart_reason = excluded.restart_reason,
			timestamp = excluded.timestamp
	`, a.SessionID, a.Turn, a.AttemptNumber, a.Task, nullable(a.WinningAgentID), nullable(a.RestartReason), a.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	if err != nil {
		return fmt.Errorf("attempt: index attempt: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Rebuild truncates the index and repopulates it by walking every attempt
// the Store can see for the given session IDs, restoring it to a clean
// derived state after e.g. schema corruption.
func (idx *SQLIndex) Rebuild(ctx context.Context, store *Store, sessionIDs []string) error {
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM attempts`); err != nil {
		return fmt.Errorf("attempt: truncate index: %w", err)
	}
	for _, sid := range sessionIDs {
		attempts, err := store.LoadAttempts(ctx, sid, nil)
		if err != nil {
			return fmt.Errorf("attempt: load attempts for rebuild: %w", err)
		}
		for _, a := range attempts {
			if err := idx.Index(ctx, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// SessionsWithRestarts returns session IDs that contain at least one
// attempt whose restart_reason is set, i.e. sessions that needed more than
// one attempt at some turn.
func (idx *SQLIndex) SessionsWithRestarts(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT DISTINCT session_id FROM attempts WHERE restart_reason IS NOT NULL AND restart_reason != ''
	`)
	if err != nil {
		return nil, fmt.Errorf("attempt: query restarted sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
