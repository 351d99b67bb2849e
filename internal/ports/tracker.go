// Package ports defines interfaces (hexagonal ports) for the test-run
// tracker's collaborators. Implementations live in internal/adapters;
// orchestration in internal/service.
package ports

import (
	"context"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
)

// MessageHandler consumes one inbound channel payload. A returned error
// aborts the connection: the transport's dispatch loop performs the
// disconnect and propagates the error, so handlers never need to reach into
// connection state themselves.
type MessageHandler func(ctx context.Context, payload []byte) error

// Transport is a persistent push-notification connection. One Transport
// carries at most one active channel subscription and is owned exclusively by
// a single tracking operation.
type Transport interface {
	// SetAuthHeader installs the bearer token used on every outbound frame.
	// Must be called before Handshake; tokens can expire between client
	// construction and use.
	SetAuthHeader(token string)

	// Handshake performs the transport handshake and returns when the server
	// acknowledges it. A transport-reported error here is fatal.
	Handshake(ctx context.Context) error

	// Subscribe opens the named channel and delivers every inbound message to
	// handler until the connection ends. It returns once the subscription is
	// established; delivery continues in the background.
	Subscribe(ctx context.Context, channel string, handler MessageHandler) error

	// Disconnect tears the connection down. Safe to call more than once; after
	// the first call no further messages are delivered.
	Disconnect(ctx context.Context) error

	// Done is closed once the dispatch loop has stopped, whether by
	// Disconnect or by a transport failure.
	Done() <-chan struct{}

	// Err reports the terminal connection error, if any, once Done is closed.
	Err() error
}

// QueryClient issues the authoritative status query for a test run.
type QueryClient interface {
	// QueryTestQueueItems returns every queue-item record whose parent job id
	// matches runID. An empty slice means the backend does not know the run.
	QueryTestQueueItems(ctx context.Context, runID model.RunID) ([]model.QueueItemRecord, error)
}

// CredentialSource yields a fresh access token for the org connection.
type CredentialSource interface {
	Refresh(ctx context.Context) (string, error)
}

// StartAction starts the server-side job and resolves its run id. It is
// invoked only after the channel subscription is established, so no push
// event for the new job can be missed.
type StartAction func(ctx context.Context) (model.RunID, error)
