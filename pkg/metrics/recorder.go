// Package metrics provides an exporter-agnostic recorder for orchestrator
// business events, built on OpenTelemetry metric instruments so any
// configured otel SDK exporter (Prometheus, OTLP, stdout) receives them.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder records the handful of business events the orchestrator cares
// about. A nil *Recorder is safe to call methods on — every method
// no-ops — so callers can wire Noop() in tests without branching.
type Recorder struct {
	answers     metric.Int64Counter
	votes       metric.Int64Counter
	restarts    metric.Int64Counter
	turnDur     metric.Float64Histogram
	permDenials metric.Int64Counter
}

// New builds a Recorder from a meter obtained from an otel MeterProvider.
func New(meter metric.Meter) (*Recorder, error) {
	answers, err := meter.Int64Counter("massgen.answers_submitted",
		metric.WithDescription("Number of new_answer tool calls observed"))
	if err != nil {
		return nil, fmt.Errorf("metrics: create answers counter: %w", err)
	}
	votes, err := meter.Int64Counter("massgen.votes_cast",
		metric.WithDescription("Number of vote tool calls observed"))
	if err != nil {
		return nil, fmt.Errorf("metrics: create votes counter: %w", err)
	}
	restarts, err := meter.Int64Counter("massgen.turn_restarts",
		metric.WithDescription("Number of turn restarts triggered"))
	if err != nil {
		return nil, fmt.Errorf("metrics: create restarts counter: %w", err)
	}
	turnDur, err := meter.Float64Histogram("massgen.turn_duration_seconds",
		metric.WithDescription("Wall-clock duration of a completed turn"))
	if err != nil {
		return nil, fmt.Errorf("metrics: create turn duration histogram: %w", err)
	}
	permDenials, err := meter.Int64Counter("massgen.permission_denials",
		metric.WithDescription("Number of filesystem tool calls denied by the Path Permission Manager"))
	if err != nil {
		return nil, fmt.Errorf("metrics: create permission denials counter: %w", err)
	}

	return &Recorder{
		answers:     answers,
		votes:       votes,
		restarts:    restarts,
		turnDur:     turnDur,
		permDenials: permDenials,
	}, nil
}

// RecordAnswer records one new_answer submission by agentID.
func (r *Recorder) RecordAnswer(ctx context.Context, agentID string) {
	if r == nil || r.answers == nil {
		return
	}
	r.answers.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_id", agentID)))
}

// RecordVote records one vote, attributed to the voting agent.
func (r *Recorder) RecordVote(ctx context.Context, agentID string) {
	if r == nil || r.votes == nil {
		return
	}
	r.votes.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_id", agentID)))
}

// RecordRestart records one turn restart and its reason.
func (r *Recorder) RecordRestart(ctx context.Context, reason string) {
	if r == nil || r.restarts == nil {
		return
	}
	r.restarts.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordTurnDuration records the wall-clock time a turn took to resolve.
func (r *Recorder) RecordTurnDuration(ctx context.Context, d time.Duration, successful bool) {
	if r == nil || r.turnDur == nil {
		return
	}
	r.turnDur.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("successful", successful)))
}

// RecordPermissionDenial records one tool call denied by the Path
// Permission Manager.
func (r *Recorder) RecordPermissionDenial(ctx context.Context, toolName string) {
	if r == nil || r.permDenials == nil {
		return
	}
	r.permDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", toolName)))
}
