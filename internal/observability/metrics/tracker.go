// Package metrics bridges progress events into the StatsD sink.
package metrics

import (
	"context"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/progress"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/statsd"
)

// TrackerSink is a progress sink that emits StatsD metrics for streaming
// lifecycle and reconciliation activity.
type TrackerSink struct {
	sink statsd.Sink
}

// NewTrackerSink wraps a StatsD sink. A nil sink yields a sink that drops
// everything.
func NewTrackerSink(sink statsd.Sink) *TrackerSink {
	return &TrackerSink{sink: sink}
}

// Publish implements the progress.Sink interface.
func (t *TrackerSink) Publish(_ context.Context, ev progress.Event) {
	if t == nil || t.sink == nil {
		return
	}

	switch ev.Kind {
	case progress.KindTransportUp:
		t.sink.Count("streaming.transport", 1, map[string]string{"state": "up"})
	case progress.KindTransportDown:
		t.sink.Count("streaming.transport", 1, map[string]string{"state": "down"})
	case progress.KindTestRunProcessing:
		t.sink.Count("testrun.processing", 1, nil)
	case progress.KindQueueItemSnapshot:
		if ev.QueueItem == nil {
			return
		}
		for status, n := range ev.QueueItem.StatusCounts() {
			t.sink.Count("testrun.records", int64(n), map[string]string{
				"status": status.String(),
			})
		}
	}
}

var _ progress.Sink = (*TrackerSink)(nil)
