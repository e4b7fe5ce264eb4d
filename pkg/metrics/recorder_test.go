package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNoopRecorderMethodsDoNotPanic(t *testing.T) {
	r := Noop()
	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.RecordAnswer(ctx, "agent-a")
		r.RecordVote(ctx, "agent-b")
		r.RecordRestart(ctx, "inconclusive")
		r.RecordTurnDuration(ctx, time.Second, true)
		r.RecordPermissionDenial(ctx, "write_file")
	})
}

func TestNilRecorderMethodsDoNotPanic(t *testing.T) {
	var r *Recorder
	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.RecordAnswer(ctx, "agent-a")
		r.RecordVote(ctx, "agent-b")
		r.RecordRestart(ctx, "inconclusive")
		r.RecordTurnDuration(ctx, time.Second, true)
		r.RecordPermissionDenial(ctx, "write_file")
	})
}

func TestNewWithReaderRecordsAgainstManualReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	r, err := NewWithReader(reader)
	require.NoError(t, err)

	ctx := context.Background()
	r.RecordAnswer(ctx, "agent-a")
	r.RecordVote(ctx, "agent-b")
	r.RecordRestart(ctx, "inconclusive")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	assert.Contains(t, names, "massgen.answers_submitted")
	assert.Contains(t, names, "massgen.votes_cast")
	assert.Contains(t, names, "massgen.turn_restarts")
}
