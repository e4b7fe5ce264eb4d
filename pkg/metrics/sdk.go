package metrics

import (
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewWithReader builds a Recorder backed by a fresh SDK MeterProvider using
// the given reader (e.g. a Prometheus exporter or a periodic OTLP reader),
// for processes that want real metric output rather than the no-op
// default. The caller owns the reader's lifecycle (flush/shutdown).
func NewWithReader(reader sdkmetric.Reader) (*Recorder, error) {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r, err := New(provider.Meter("massgen"))
	if err != nil {
		return nil, fmt.Errorf("metrics: build recorder from sdk meter provider: %w", err)
	}
	return r, nil
}
