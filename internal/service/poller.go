package service

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/MuriloKakazu/salesforcedx-apex/internal/errors"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/progress"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
)

// PollerOptions groups dependencies for Poller.
type PollerOptions struct {
	Query  ports.QueryClient // Required: authoritative status query
	Sink   progress.Sink     // Optional: progress event sink
	Logger *slog.Logger      // Optional: structured logger
}

// Poller issues the authoritative completion query for a run id and
// classifies the result as pending or terminal. It never retries or backs
// off: pushed-event arrival drives poll cadence, not a timer, so at most one
// poll is in flight at a time.
type Poller struct {
	query  ports.QueryClient
	sink   progress.Sink
	logger *slog.Logger
}

// NewPoller constructs a Poller.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Query == nil {
		return nil, errors.New("QueryClient is required")
	}

	sink := opts.Sink
	if sink == nil {
		sink = progress.NopSink{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		query:  opts.Query,
		sink:   sink,
		logger: logger.With("component", "poller"),
	}, nil
}

// Poll runs one status query for runID. The returned bool reports whether the
// run is terminal; when false the returned item is the zero value and the run
// is still pending. Zero records from the backend fail with a no_results
// error, surfaced to the caller without retry.
//
// A snapshot of the full queue item is published to the progress sink for
// every non-empty result, terminal or not.
func (p *Poller) Poll(ctx context.Context, runID model.RunID) (model.TestQueueItem, bool, error) {
	records, err := p.query.QueryTestQueueItems(ctx, runID)
	if err != nil {
		return model.TestQueueItem{}, false, apperrors.Wrapf(err, apperrors.ErrCodeInternal,
			"query test queue items for run %s", runID)
	}
	if len(records) == 0 {
		return model.TestQueueItem{}, false, apperrors.NoResultsf(
			"no test queue items found for run %s", runID)
	}

	item := model.TestQueueItem{RunID: runID, Records: records}
	p.sink.Publish(ctx, progress.QueueItemSnapshot(item))

	pending := 0
	for _, rec := range item.Records {
		if !rec.Status.Terminal() {
			pending++
		}
	}
	p.logger.InfoContext(ctx, "polled test run",
		"run_id", runID.String(),
		"records", len(item.Records),
		"pending", pending)

	if pending > 0 {
		return model.TestQueueItem{}, false, nil
	}
	return item, true, nil
}
