package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/run"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/progress"
)

// ReconcilerOptions groups dependencies for Reconciler.
type ReconcilerOptions struct {
	Poller *Poller     // Required: completion poller
	RunID  *run.IDCell // Required: session run-id cell for correlation
	Sink   progress.Sink
	Logger *slog.Logger
}

// Reconciler consumes inbound push messages, validates their correlation to
// the active run, and triggers the completion poller. Ambiguous or unrelated
// signals become progress observations, never premature completion.
type Reconciler struct {
	poller *Poller
	runID  *run.IDCell
	sink   progress.Sink
	logger *slog.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(opts ReconcilerOptions) (*Reconciler, error) {
	if opts.Poller == nil {
		return nil, errors.New("Poller is required")
	}
	if opts.RunID == nil {
		return nil, errors.New("run id cell is required")
	}

	sink := opts.Sink
	if sink == nil {
		sink = progress.NopSink{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		poller: opts.Poller,
		runID:  opts.RunID,
		sink:   sink,
		logger: logger.With("component", "reconciler"),
	}, nil
}

// Handle reconciles one signal: either an inbound push event (subject id
// drives correlation) or an explicit run id for out-of-band polling. The
// returned bool reports terminal completion.
//
// Events whose subject does not correlate to the session's run id are dropped
// without polling; they may belong to another run sharing the channel and are
// not an error. A pending poll result emits a processing progress event so
// observers see liveness without a terminal result.
func (r *Reconciler) Handle(ctx context.Context, ev *model.TestRunEvent, explicit model.RunID) (model.TestQueueItem, bool, error) {
	candidate := explicit
	if ev != nil {
		candidate = ev.RunID
	}

	// The subscribed id may be unset while the start action is still in
	// flight; first-contact correlation accepts any well-formed candidate.
	subscribed, _ := r.runID.Get()
	if !model.IsValidRunID(candidate, subscribed) {
		r.logger.DebugContext(ctx, "ignoring uncorrelated test run event",
			"candidate", candidate.String(),
			"subscribed", subscribed.String())
		return model.TestQueueItem{}, false, nil
	}

	item, done, err := r.poller.Poll(ctx, candidate)
	if err != nil {
		return model.TestQueueItem{}, false, err
	}
	if !done {
		r.sink.Publish(ctx, progress.TestRunProcessing(candidate))
		return model.TestQueueItem{}, false, nil
	}
	return item, true, nil
}
