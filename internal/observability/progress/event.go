package progress

import (
	"context"
	"time"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
)

// Kind identifies the type of a progress event.
type Kind string

const (
	// KindTransportUp signals the streaming transport came up.
	KindTransportUp Kind = "transport_up"
	// KindTransportDown signals the streaming transport went down.
	KindTransportDown Kind = "transport_down"
	// KindTestRunProcessing signals the run is alive but not yet terminal.
	KindTestRunProcessing Kind = "test_run_processing"
	// KindQueueItemSnapshot carries the full polled queue-item state.
	KindQueueItemSnapshot Kind = "queue_item_snapshot"
)

// Event is a typed progress observation emitted while tracking a test run.
// Consumption is fire-and-forget; sinks must not affect tracker correctness.
type Event struct {
	Kind       Kind
	RunID      model.RunID          // set for processing and snapshot events
	QueueItem  *model.TestQueueItem // set for snapshot events
	OccurredAt time.Time
}

// TransportUp builds a transport-up event.
func TransportUp() Event {
	return Event{Kind: KindTransportUp, OccurredAt: time.Now()}
}

// TransportDown builds a transport-down event.
func TransportDown() Event {
	return Event{Kind: KindTransportDown, OccurredAt: time.Now()}
}

// TestRunProcessing builds a liveness event carrying the run id.
func TestRunProcessing(runID model.RunID) Event {
	return Event{Kind: KindTestRunProcessing, RunID: runID, OccurredAt: time.Now()}
}

// QueueItemSnapshot builds a snapshot event for a polled queue item.
func QueueItemSnapshot(item model.TestQueueItem) Event {
	return Event{
		Kind:       KindQueueItemSnapshot,
		RunID:      item.RunID,
		QueueItem:  &item,
		OccurredAt: time.Now(),
	}
}

// Sink describes a destination capable of consuming progress events.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, ev Event)

// Publish implements the Sink interface.
func (f SinkFunc) Publish(ctx context.Context, ev Event) {
	if f == nil {
		return
	}
	f(ctx, ev)
}

// NopSink discards every event. It is substituted when no sink is configured
// so call sites never need a nil check.
type NopSink struct{}

// Publish implements the Sink interface.
func (NopSink) Publish(context.Context, Event) {}

// Fanout publishes each event to every wrapped sink in order.
type Fanout []Sink

// Publish implements the Sink interface.
func (f Fanout) Publish(ctx context.Context, ev Event) {
	for _, s := range f {
		if s != nil {
			s.Publish(ctx, ev)
		}
	}
}
