package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/MuriloKakazu/salesforcedx-apex/internal/errors"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/run"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/progress"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
)

// DefaultIdleCeiling bounds how long a subscription may stay open without
// resolving. It is a safety net against orphaned connections, not a normal
// code path.
const DefaultIdleCeiling = 2 * time.Hour

// TrackerOptions groups dependencies for Tracker.
type TrackerOptions struct {
	Transport   ports.Transport        // Required: push transport
	Credentials ports.CredentialSource // Required: access token refresh
	Query       ports.QueryClient      // Required: completion query
	Channel     string                 // Required: push channel name
	Sink        progress.Sink          // Optional: progress event sink
	IdleCeiling time.Duration          // Optional: defaults to DefaultIdleCeiling
	Logger      *slog.Logger           // Optional: structured logger
}

// Result is the terminal outcome of one tracked test run.
type Result struct {
	RunID     model.RunID
	QueueItem model.TestQueueItem
}

// Tracker owns the subscription lifecycle for one test-run tracking
// operation: credential refresh, transport handshake, the subscribe/start
// race, event reconciliation, and teardown. One Tracker tracks one run; the
// transport connection and its single channel subscription are owned
// exclusively for the lifetime of the operation.
type Tracker struct {
	transport   ports.Transport
	credentials ports.CredentialSource
	channel     string
	sink        progress.Sink
	idleCeiling time.Duration
	logger      *slog.Logger

	poller     *Poller
	reconciler *Reconciler
	runID      *run.IDCell

	subscribed     atomic.Bool
	resolved       atomic.Bool
	disconnectOnce sync.Once
}

// NewTracker constructs a Tracker.
func NewTracker(opts TrackerOptions) (*Tracker, error) {
	if opts.Transport == nil {
		return nil, errors.New("Transport is required")
	}
	if opts.Credentials == nil {
		return nil, errors.New("CredentialSource is required")
	}
	if opts.Query == nil {
		return nil, errors.New("QueryClient is required")
	}
	if opts.Channel == "" {
		return nil, errors.New("channel name is required")
	}

	sink := opts.Sink
	if sink == nil {
		sink = progress.NopSink{}
	}

	idleCeiling := opts.IdleCeiling
	if idleCeiling <= 0 {
		idleCeiling = DefaultIdleCeiling
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tracker")

	cell := run.NewIDCell()

	poller, err := NewPoller(PollerOptions{
		Query:  opts.Query,
		Sink:   sink,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	reconciler, err := NewReconciler(ReconcilerOptions{
		Poller: poller,
		RunID:  cell,
		Sink:   sink,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	return &Tracker{
		transport:   opts.Transport,
		credentials: opts.Credentials,
		channel:     opts.Channel,
		sink:        sink,
		idleCeiling: idleCeiling,
		logger:      logger,
		poller:      poller,
		reconciler:  reconciler,
		runID:       cell,
	}, nil
}

// RunID returns the session's run-id cell. Callers may wait on it before or
// independently of Subscribe returning; it resolves as soon as the start
// action does, regardless of message arrival order.
func (t *Tracker) RunID() *run.IDCell {
	return t.runID
}

// Subscribe opens the push channel, invokes start once the subscription is
// established, and blocks until the first terminal queue item, a fatal error,
// or the idle ceiling. The transport is disconnected exactly once on every
// exit path. A Tracker tracks a single run; Subscribe must not be called
// twice.
func (t *Tracker) Subscribe(ctx context.Context, start ports.StartAction) (Result, error) {
	if start == nil {
		return Result{}, errors.New("start action is required")
	}
	if !t.subscribed.CompareAndSwap(false, true) {
		return Result{}, apperrors.Internal("tracker already subscribed")
	}

	ctx, cancel := context.WithTimeout(ctx, t.idleCeiling)
	defer cancel()

	if err := t.authenticate(ctx); err != nil {
		return Result{}, err
	}

	if err := t.transport.Handshake(ctx); err != nil {
		t.disconnect(ctx)
		return Result{}, apperrors.MapTransportError(err, true)
	}
	t.sink.Publish(ctx, progress.TransportUp())

	// First terminal item or first in-band error wins; subsequent messages
	// are no-ops.
	outcomeCh := make(chan Result, 1)
	handlerErrCh := make(chan error, 1)

	handler := func(hctx context.Context, payload []byte) error {
		return t.handleMessage(hctx, payload, outcomeCh, handlerErrCh)
	}

	// The channel subscription must exist before the start action runs so no
	// push event for the newly started job is missed.
	if err := t.transport.Subscribe(ctx, t.channel, handler); err != nil {
		t.disconnect(ctx)
		return Result{}, apperrors.MapTransportError(err, false)
	}

	startErrCh := make(chan error, 1)
	go func() {
		id, err := start(ctx)
		if err != nil {
			startErrCh <- err
			return
		}
		t.runID.Set(id)
		t.logger.InfoContext(ctx, "test run started", "run_id", id.String())
	}()

	defer func() {
		t.disconnect(context.WithoutCancel(ctx))
	}()

	select {
	case res := <-outcomeCh:
		t.logger.InfoContext(ctx, "test run resolved", "run_id", res.RunID.String())
		return res, nil
	case err := <-handlerErrCh:
		return Result{}, err
	case err := <-startErrCh:
		return Result{}, apperrors.SubscriptionSetup(err, "start action failed")
	case <-t.transport.Done():
		err := t.transport.Err()
		if err == nil {
			err = apperrors.Transport("streaming connection closed before resolution")
		}
		return Result{}, apperrors.MapTransportError(err, false)
	case <-ctx.Done():
		return Result{}, apperrors.MapTransportError(ctx.Err(), false)
	}
}

// authenticate refreshes the access credential and installs it on the
// transport. Runs before handshake because tokens can silently expire between
// client construction and use.
func (t *Tracker) authenticate(ctx context.Context) error {
	token, err := t.credentials.Refresh(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNoAccessToken, "refresh access token")
	}
	if token == "" {
		return apperrors.NoAccessToken("credential refresh produced no access token")
	}
	t.transport.SetAuthHeader(token)
	return nil
}

// handleMessage is the transport message handler. It returns an error only
// for in-band error payloads, which instructs the dispatch loop to abort the
// connection; uncorrelated or pending signals are absorbed.
func (t *Tracker) handleMessage(ctx context.Context, payload []byte, outcomeCh chan<- Result, errCh chan<- error) error {
	if t.resolved.Load() {
		return nil
	}

	ev, err := model.ParseTestRunEvent(payload)
	if err != nil {
		t.logger.DebugContext(ctx, "discarding malformed channel payload", "error", err)
		return nil
	}

	if ev.HasError() {
		cerr := apperrors.ClassifyStreamingError(ev.Error, false)
		if t.resolved.CompareAndSwap(false, true) {
			errCh <- cerr
		}
		return cerr
	}

	item, done, err := t.reconciler.Handle(ctx, &ev, "")
	if err != nil {
		if t.resolved.CompareAndSwap(false, true) {
			errCh <- err
		}
		return err
	}
	if !done {
		return nil
	}

	if t.resolved.CompareAndSwap(false, true) {
		outcomeCh <- Result{RunID: item.RunID, QueueItem: item}
	}
	return nil
}

// disconnect tears the transport down at most once and publishes the
// transport-down observation.
func (t *Tracker) disconnect(ctx context.Context) {
	t.disconnectOnce.Do(func() {
		if err := t.transport.Disconnect(ctx); err != nil {
			t.logger.ErrorContext(ctx, "transport disconnect failed", "error", err)
		}
		t.sink.Publish(ctx, progress.TransportDown())
	})
}
