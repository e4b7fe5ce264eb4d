package coordination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAssignsStrictlyMonotonicSeq(t *testing.T) {
	tr := New()
	now := time.Now()

	e1 := tr.RecordAnswer(1, 1, "agent-a", now)
	e2 := tr.RecordVote(1, 1, "agent-b", "agent-a", "clearer", now)
	e3 := tr.RecordWinner(1, 1, "agent-a", now)

	assert.Equal(t, uint64(1), e1.Seq)
	assert.Equal(t, uint64(2), e2.Seq)
	assert.Equal(t, uint64(3), e3.Seq)
}

func TestEventsReturnsSnapshotInSeqOrder(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.RecordAnswer(1, 1, "agent-a", now)
	tr.RecordRestart(1, 1, "inconclusive", now)
	tr.RecordAnswer(1, 2, "agent-a", now)

	events := tr.Events()
	require.Len(t, events, 3)
	for i := range events {
		assert.Equal(t, uint64(i+1), events[i].Seq)
	}
	assert.Equal(t, EventRestart, events[1].Kind)
}

func TestSubscribeReceivesEventsAfterSubscription(t *testing.T) {
	tr := New()
	ch, cancel := tr.Subscribe()
	defer cancel()

	tr.RecordAnswer(1, 1, "agent-a", time.Now())

	select {
	case e := <-ch:
		assert.Equal(t, EventAnswerSubmitted, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestCancelStopsFurtherDelivery(t *testing.T) {
	tr := New()
	ch, cancel := tr.Subscribe()
	cancel()

	tr.RecordAnswer(1, 1, "agent-a", time.Now())

	_, open := <-ch
	assert.False(t, open)
}
