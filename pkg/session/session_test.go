package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/massgen/massgen/pkg/attempt"
	"github.com/massgen/massgen/pkg/stream"
)

func newTestManager(t *testing.T) (*Manager, *attempt.Store) {
	t.Helper()
	store, err := attempt.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewManager(store), store
}

func TestNewSessionIDsAreUniqueAndSortable(t *testing.T) {
	a := NewSessionID()
	time.Sleep(time.Millisecond)
	b := NewSessionID()
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}

func TestResumeUnknownSessionReturnsEmptyHistory(t *testing.T) {
	m, _ := newTestManager(t)
	resumed, err := m.Resume(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, resumed.History)
}

func TestResumeReconstructsAlternatingHistory(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	_, err := store.SaveAttempt(ctx, attempt.Attempt{
		SessionID: "sess-1", Turn: 1, AttemptNumber: 1,
		Task: "first task", AnswerText: "first answer",
		WinningAgentID: "agent-a", Timestamp: time.Now(),
	}, "")
	require.NoError(t, err)
	require.NoError(t, store.MarkSuccessfulAttempt(ctx, "sess-1", 1, 1))

	_, err = store.SaveAttempt(ctx, attempt.Attempt{
		SessionID: "sess-1", Turn: 2, AttemptNumber: 1,
		Task: "second task", AnswerText: "second answer",
		WinningAgentID: "agent-b", Timestamp: time.Now(),
	}, "")
	require.NoError(t, err)
	require.NoError(t, store.MarkSuccessfulAttempt(ctx, "sess-1", 2, 1))

	resumed, err := m.Resume(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, resumed.History, 4)
	assert.Equal(t, stream.RoleUser, resumed.History[0].Role)
	assert.Equal(t, "first task", resumed.History[0].Content)
	assert.Equal(t, stream.RoleAssistant, resumed.History[1].Role)
	assert.Equal(t, "first answer", resumed.History[1].Content)
	assert.Equal(t, "second task", resumed.History[2].Content)
	assert.Equal(t, "second answer", resumed.History[3].Content)
}

func TestNextTurnNumberIncrementsFromHighestClosedTurn(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	n, err := m.NextTurnNumber(ctx, "new-session")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.SaveAttempt(ctx, attempt.Attempt{SessionID: "sess-2", Turn: 1, AttemptNumber: 1, Task: "t", Timestamp: time.Now()}, "")
	require.NoError(t, err)
	require.NoError(t, store.MarkSuccessfulAttempt(ctx, "sess-2", 1, 1))

	n, err = m.NextTurnNumber(ctx, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecordTurnMarksSuccessfulAttempt(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	_, err := store.SaveAttempt(ctx, attempt.Attempt{SessionID: "sess-3", Turn: 1, AttemptNumber: 1, Task: "t", Timestamp: time.Now()}, "")
	require.NoError(t, err)

	require.NoError(t, m.RecordTurn(ctx, "sess-3", 1, 1))

	turns, err := store.PreviousTurnsForSession(ctx, "sess-3")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.False(t, turns[0].FromFallback)
}
