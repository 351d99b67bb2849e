package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	apperrors "github.com/MuriloKakazu/salesforcedx-apex/internal/errors"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/mocks"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/mocks/push"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/progress"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/testutil"
)

const testChannel = "/systemTopic/TestResult"

func eventPayload(runID model.RunID) []byte {
	return []byte(fmt.Sprintf(
		`{"event":{"createdDate":"2024-01-01T00:00:00.000Z","type":"updated"},"sobject":{"Id":%q}}`,
		runID.String()))
}

func errorPayload(detail string) []byte {
	return []byte(fmt.Sprintf(`{"event":{"type":"updated"},"error":%q}`, detail))
}

type trackerFixture struct {
	tracker   *Tracker
	transport *push.FakeTransport
	query     *mocks.MockQueryClient
	sink      *push.CaptureSink
}

func newTrackerFixture(t *testing.T, opts ...func(*TrackerOptions)) *trackerFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	query := mocks.NewMockQueryClient(ctrl)
	creds := mocks.NewMockCredentialSource(ctrl)
	creds.EXPECT().Refresh(gomock.Any()).Return("secret-token", nil).AnyTimes()

	transport := push.NewFakeTransport()
	sink := &push.CaptureSink{}

	topts := TrackerOptions{
		Transport:   transport,
		Credentials: creds,
		Query:       query,
		Channel:     testChannel,
		Sink:        sink,
	}
	for _, o := range opts {
		o(&topts)
	}

	tracker, err := NewTracker(topts)
	require.NoError(t, err)
	return &trackerFixture{tracker: tracker, transport: transport, query: query, sink: sink}
}

func startReturning(id model.RunID) ports.StartAction {
	return func(context.Context) (model.RunID, error) { return id, nil }
}

func TestSubscribeResolvesOnTerminalEvent(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t)
	gomock.InOrder(
		fix.query.EXPECT().QueryTestQueueItems(gomock.Any(), testRunID).
			Return(testutil.Records(2, model.StatusProcessing), nil),
		fix.query.EXPECT().QueryTestQueueItems(gomock.Any(), testRunID).
			Return(testutil.Records(2, model.StatusCompleted), nil),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A waiter registered before Subscribe observes the run id as soon as
	// the start action resolves it.
	waited := make(chan model.RunID, 1)
	go func() {
		id, err := fix.tracker.RunID().Wait(ctx)
		if err == nil {
			waited <- id
		}
	}()

	go func() {
		// The subscription exists before the start action runs, so the id
		// cell resolving means delivery is safe.
		id, err := fix.tracker.RunID().Wait(ctx)
		if err != nil {
			return
		}
		_ = fix.transport.Deliver(ctx, eventPayload(id))
		_ = fix.transport.Deliver(ctx, eventPayload(id))
	}()

	res, err := fix.tracker.Subscribe(ctx, startReturning(testRunID))
	require.NoError(t, err)
	assert.Equal(t, testRunID, res.RunID)
	assert.Len(t, res.QueueItem.Records, 2)
	assert.Equal(t, testRunID, res.QueueItem.RunID)

	select {
	case id := <-waited:
		assert.Equal(t, testRunID, id)
	case <-ctx.Done():
		t.Fatal("early waiter never observed the run id")
	}

	assert.Equal(t, "secret-token", fix.transport.AuthHeader())
	assert.Equal(t, testChannel, fix.transport.Channel())
	assert.Equal(t, 1, fix.transport.HandshakeCalls())
	assert.Equal(t, 1, fix.transport.DisconnectCalls())

	kinds := fix.sink.Kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, progress.KindTransportUp, kinds[0])
	assert.Equal(t, progress.KindTransportDown, kinds[len(kinds)-1])
	assert.Contains(t, kinds, progress.KindTestRunProcessing)
	assert.Contains(t, kinds, progress.KindQueueItemSnapshot)
}

func TestSubscribeIgnoresMessagesAfterResolution(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t)
	// One poll only: the delivery after resolution must not reach the query.
	fix.query.EXPECT().QueryTestQueueItems(gomock.Any(), testRunID).
		Return(testutil.Records(1, model.StatusCompleted), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		id, err := fix.tracker.RunID().Wait(ctx)
		if err != nil {
			return
		}
		_ = fix.transport.Deliver(ctx, eventPayload(id))
		_ = fix.transport.Deliver(ctx, eventPayload(id))
	}()

	res, err := fix.tracker.Subscribe(ctx, startReturning(testRunID))
	require.NoError(t, err)
	assert.Equal(t, testRunID, res.RunID)
}

func TestSubscribeStartActionFailure(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := func(context.Context) (model.RunID, error) {
		return "", errors.New("INVALID_TYPE: no such class")
	}
	_, err := fix.tracker.Subscribe(ctx, start)
	require.Error(t, err)
	assert.True(t, apperrors.IsSubscriptionSetup(err))
	assert.True(t, fix.transport.Subscribed(), "subscription was established before the start action ran")
	assert.Equal(t, 1, fix.transport.DisconnectCalls())
}

func TestSubscribeHandshakeFailure(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t)
	fix.transport.HandshakeErr = errors.New("403::Handshake denied")

	_, err := fix.tracker.Subscribe(context.Background(), startReturning(testRunID))
	require.Error(t, err)
	assert.True(t, apperrors.IsHandshakeFailed(err))
	assert.False(t, apperrors.IsTransport(err))
	assert.Equal(t, 1, fix.transport.DisconnectCalls())
}

func TestSubscribeSubscribeFailure(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t)
	fix.transport.SubscribeErr = errors.New("subscribe rejected")

	_, err := fix.tracker.Subscribe(context.Background(), startReturning(testRunID))
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.False(t, apperrors.IsHandshakeFailed(err))
	assert.Equal(t, 1, fix.transport.DisconnectCalls())
}

func TestSubscribeTransportFailureAfterHandshake(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		if _, err := fix.tracker.RunID().Wait(ctx); err != nil {
			return
		}
		fix.transport.Fail(errors.New("connection reset"))
	}()

	_, err := fix.tracker.Subscribe(ctx, startReturning(testRunID))
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.Equal(t, 1, fix.transport.DisconnectCalls())
}

func TestSubscribeInBandErrorPayload(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		if _, err := fix.tracker.RunID().Wait(ctx); err != nil {
			return
		}
		_ = fix.transport.Deliver(ctx, errorPayload("500::stream error"))
	}()

	_, err := fix.tracker.Subscribe(ctx, startReturning(testRunID))
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.Contains(t, err.Error(), "500::stream error")
}

func TestSubscribeDiscardsMalformedPayload(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t)
	fix.query.EXPECT().QueryTestQueueItems(gomock.Any(), testRunID).
		Return(testutil.Records(1, model.StatusCompleted), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		id, err := fix.tracker.RunID().Wait(ctx)
		if err != nil {
			return
		}
		_ = fix.transport.Deliver(ctx, []byte("{not json"))
		_ = fix.transport.Deliver(ctx, eventPayload(id))
	}()

	res, err := fix.tracker.Subscribe(ctx, startReturning(testRunID))
	require.NoError(t, err)
	assert.Equal(t, testRunID, res.RunID)
}

func TestSubscribeCredentialFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		err   error
	}{
		{name: "refresh error", err: errors.New("invalid_grant")},
		{name: "empty token", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			query := mocks.NewMockQueryClient(ctrl)
			creds := mocks.NewMockCredentialSource(ctrl)
			creds.EXPECT().Refresh(gomock.Any()).Return(tt.token, tt.err)

			transport := push.NewFakeTransport()
			tracker, err := NewTracker(TrackerOptions{
				Transport:   transport,
				Credentials: creds,
				Query:       query,
				Channel:     testChannel,
			})
			require.NoError(t, err)

			_, err = tracker.Subscribe(context.Background(), startReturning(testRunID))
			require.Error(t, err)
			assert.True(t, apperrors.IsNoAccessToken(err))
			assert.Equal(t, 0, transport.HandshakeCalls())
		})
	}
}

func TestSubscribeIdleCeiling(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t, func(o *TrackerOptions) {
		o.IdleCeiling = 20 * time.Millisecond
	})

	// Nothing ever arrives; the ceiling fires.
	_, err := fix.tracker.Subscribe(context.Background(), startReturning(testRunID))
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
	assert.Equal(t, 1, fix.transport.DisconnectCalls())
}

func TestSubscribeTwiceRejected(t *testing.T) {
	t.Parallel()

	fix := newTrackerFixture(t, func(o *TrackerOptions) {
		o.IdleCeiling = 20 * time.Millisecond
	})

	_, _ = fix.tracker.Subscribe(context.Background(), startReturning(testRunID))
	_, err := fix.tracker.Subscribe(context.Background(), startReturning(testRunID))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
}

func TestNewTrackerValidation(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	query := mocks.NewMockQueryClient(ctrl)
	creds := mocks.NewMockCredentialSource(ctrl)
	transport := push.NewFakeTransport()

	tests := []struct {
		name string
		opts TrackerOptions
	}{
		{name: "missing transport", opts: TrackerOptions{Credentials: creds, Query: query, Channel: testChannel}},
		{name: "missing credentials", opts: TrackerOptions{Transport: transport, Query: query, Channel: testChannel}},
		{name: "missing query", opts: TrackerOptions{Transport: transport, Credentials: creds, Channel: testChannel}},
		{name: "missing channel", opts: TrackerOptions{Transport: transport, Credentials: creds, Query: query}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTracker(tt.opts)
			assert.Error(t, err)
		})
	}
}
