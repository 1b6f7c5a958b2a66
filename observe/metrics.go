// Package observe holds the overlay's OpenTelemetry instruments and the
// Prometheus bridge used by -metrics.
//
// Tests should build a [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider]; [DefaultMetrics] uses the global provider.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "handy/overlay"

// Metrics holds every instrument the coordinator records into. All fields
// are safe for concurrent use.
type Metrics struct {
	// Events counts inbound lifecycle events. Attribute: event.
	Events metric.Int64Counter

	// Shows counts show-overlay transitions. Attribute: mode.
	Shows metric.Int64Counter

	// Cancels counts cancellation requests sent to the backend.
	Cancels metric.Int64Counter

	// Ticks counts elapsed-timer ticks.
	Ticks metric.Int64Counter

	// Visible is 1 while the overlay is shown.
	Visible metric.Int64UpDownCounter

	// RecordingDuration records the counter value when a recording ends.
	RecordingDuration metric.Float64Histogram
}

var durationBuckets = []float64{1, 2, 5, 10, 20, 30, 60, 120, 300}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Events, err = m.Int64Counter("handy.overlay.events",
		metric.WithDescription("Inbound overlay lifecycle events by name."),
	); err != nil {
		return nil, err
	}
	if met.Shows, err = m.Int64Counter("handy.overlay.shows",
		metric.WithDescription("show-overlay transitions by mode."),
	); err != nil {
		return nil, err
	}
	if met.Cancels, err = m.Int64Counter("handy.overlay.cancels",
		metric.WithDescription("Cancellation requests sent to the backend."),
	); err != nil {
		return nil, err
	}
	if met.Ticks, err = m.Int64Counter("handy.overlay.ticks",
		metric.WithDescription("Elapsed timer ticks."),
	); err != nil {
		return nil, err
	}
	if met.Visible, err = m.Int64UpDownCounter("handy.overlay.visible",
		metric.WithDescription("1 while the overlay is shown."),
	); err != nil {
		return nil, err
	}
	if met.RecordingDuration, err = m.Float64Histogram("handy.overlay.recording.duration",
		metric.WithDescription("Elapsed counter value when a recording ends."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a Metrics bound to the global meter provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordEvent(ctx context.Context, name string) {
	m.Events.Add(ctx, 1, metric.WithAttributes(attribute.String("event", name)))
}

func (m *Metrics) RecordShow(ctx context.Context, mode string) {
	m.Shows.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

func (m *Metrics) RecordCancel(ctx context.Context) {
	m.Cancels.Add(ctx, 1)
}

func (m *Metrics) RecordTick(ctx context.Context) {
	m.Ticks.Add(ctx, 1)
}

// SetVisible moves the visible gauge on a change. Callers pass the previous
// and new visibility so repeated shows do not double count.
func (m *Metrics) SetVisible(ctx context.Context, was, now bool) {
	switch {
	case !was && now:
		m.Visible.Add(ctx, 1)
	case was && !now:
		m.Visible.Add(ctx, -1)
	}
}

func (m *Metrics) RecordRecordingDuration(ctx context.Context, seconds int) {
	m.RecordingDuration.Record(ctx, float64(seconds))
}
