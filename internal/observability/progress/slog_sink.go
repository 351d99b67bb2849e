package progress

import (
	"context"
	"log/slog"
)

// SlogSink logs progress events through a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink constructs a sink around logger; falls back to slog.Default
// when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "progress")}
}

// Publish implements the Sink interface.
func (s *SlogSink) Publish(ctx context.Context, ev Event) {
	switch ev.Kind {
	case KindTransportUp:
		s.logger.InfoContext(ctx, "streaming transport up")
	case KindTransportDown:
		s.logger.InfoContext(ctx, "streaming transport down")
	case KindTestRunProcessing:
		s.logger.InfoContext(ctx, "test run processing", "run_id", ev.RunID.String())
	case KindQueueItemSnapshot:
		attrs := []any{"run_id", ev.RunID.String()}
		if ev.QueueItem != nil {
			attrs = append(attrs, "records", len(ev.QueueItem.Records))
			for status, n := range ev.QueueItem.StatusCounts() {
				attrs = append(attrs, "status_"+status.String(), n)
			}
		}
		s.logger.InfoContext(ctx, "test run snapshot", attrs...)
	default:
		s.logger.DebugContext(ctx, "progress event", "kind", string(ev.Kind))
	}
}

var _ Sink = (*SlogSink)(nil)
