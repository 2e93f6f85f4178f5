package metrics

import (
	"context"

	"github.com/artpar/datagate/domain/calllog"
	"github.com/artpar/datagate/ports"
)

// Recorder observes call events into the collector and forwards them
// to the next recorder in the chain. A nil next recorder means metrics
// only.
type Recorder struct {
	collector *Collector
	next      ports.CallRecorder
}

// NewRecorder creates a metrics-observing recorder.
func NewRecorder(collector *Collector, next ports.CallRecorder) *Recorder {
	return &Recorder{collector: collector, next: next}
}

// Record updates metrics for one finished call and passes the event on.
func (r *Recorder) Record(event calllog.Event) {
	r.collector.CallsTotal.WithLabelValues(event.Resource, event.Operation, string(event.Status)).Inc()
	r.collector.CallDuration.WithLabelValues(event.Resource, event.Operation).Observe(float64(event.LatencyMs) / 1000)
	r.collector.CallAttempts.WithLabelValues(event.Resource).Observe(float64(event.Attempts))
	if event.Retried() {
		r.collector.Retries.WithLabelValues(event.Resource).Inc()
	}

	if r.next != nil {
		r.next.Record(event)
	}
}

// Flush delegates to the next recorder.
func (r *Recorder) Flush(ctx context.Context) error {
	if r.next == nil {
		return nil
	}
	return r.next.Flush(ctx)
}

// Close delegates to the next recorder.
func (r *Recorder) Close() error {
	if r.next == nil {
		return nil
	}
	return r.next.Close()
}

// Ensure interface compliance.
var _ ports.CallRecorder = (*Recorder)(nil)
