// Package fulfillment records and announces the outcome of pipeline runs.
// Sinks are best effort: a recording failure is logged and counted but never
// changes the outcome handed back to the requester.
package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/common/metrics"
	"ticketpin-workers/internal/models"
)

// Recorder persists or forwards one fulfillment.
type Recorder interface {
	Record(ctx context.Context, f *models.Fulfillment) error
	Name() string
}

// MultiRecorder fans a fulfillment out to every sink in order.
type MultiRecorder struct {
	sinks  []Recorder
	logger logger.Logger
}

func NewMultiRecorder(log logger.Logger, sinks ...Recorder) *MultiRecorder {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &MultiRecorder{sinks: sinks, logger: log}
}

func (m *MultiRecorder) Name() string { return "multi" }

// Len reports how many sinks are configured.
func (m *MultiRecorder) Len() int { return len(m.sinks) }

// Record tries every sink even when an earlier one fails.
func (m *MultiRecorder) Record(ctx context.Context, f *models.Fulfillment) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Record(ctx, f); err != nil {
			metrics.FulfillmentRecordFailures.WithLabelValues(sink.Name()).Inc()
			m.logger.Warn("fulfillment sink failed", map[string]interface{}{
				"sink":      sink.Name(),
				"runId":     f.RunID,
				"requestId": f.RequestID,
				"error":     err.Error(),
			})
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Nop discards fulfillments.
type Nop struct{}

func (Nop) Record(context.Context, *models.Fulfillment) error { return nil }
func (Nop) Name() string                                      { return "nop" }
