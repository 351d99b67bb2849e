// Package devpush provides a Redis pub/sub stand-in for the streaming
// transport, used in local development where no Salesforce streaming endpoint
// is reachable. Test events published to the configured Redis channel are
// delivered exactly as CometD deliveries would be.
package devpush

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
)

// Config controls the dev transport behavior.
type Config struct {
	Client redis.UniversalClient // Required
	Logger *slog.Logger
	// ChannelPrefix namespaces the Redis channels, default "devpush:".
	ChannelPrefix string
}

// Transport implements ports.Transport over Redis pub/sub. Handshake is a
// connectivity ping; auth headers are accepted and ignored.
type Transport struct {
	client redis.UniversalClient
	logger *slog.Logger
	prefix string

	mu       sync.Mutex
	pubsub   *redis.PubSub
	handler  ports.MessageHandler
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
	err      error
}

var _ ports.Transport = (*Transport)(nil)

// New constructs a dev transport from Config.
func New(cfg Config) (*Transport, error) {
	if cfg.Client == nil {
		return nil, errors.New("devpush: redis client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = "devpush:"
	}

	return &Transport{
		client: cfg.Client,
		logger: logger.With("component", "devpush"),
		prefix: prefix,
		done:   make(chan struct{}),
	}, nil
}

// SetAuthHeader implements ports.Transport. The dev transport has no auth.
func (t *Transport) SetAuthHeader(string) {}

// Handshake verifies Redis connectivity.
func (t *Transport) Handshake(ctx context.Context) error {
	if err := t.client.Ping(ctx).Err(); err != nil {
		return errors.Join(errors.New("devpush handshake"), err)
	}
	return nil
}

// Subscribe opens the Redis channel and starts the delivery loop.
func (t *Transport) Subscribe(ctx context.Context, channel string, handler ports.MessageHandler) error {
	if handler == nil {
		return errors.New("devpush: message handler is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pubsub != nil {
		return errors.New("devpush: transport already carries a subscription")
	}

	pubsub := t.client.Subscribe(ctx, t.prefix+channel)
	// Force the SUBSCRIBE round trip so the ordering guarantee holds: the
	// subscription exists before the caller's start action runs.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return errors.Join(errors.New("devpush subscribe"), err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.pubsub = pubsub
	t.handler = handler
	t.cancel = cancel

	go t.deliverLoop(loopCtx, pubsub, handler)
	return nil
}

// Disconnect closes the subscription. Safe to call more than once.
func (t *Transport) Disconnect(context.Context) error {
	t.mu.Lock()
	cancel := t.cancel
	pubsub := t.pubsub
	t.cancel = nil
	t.pubsub = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			return err
		}
	}
	t.finish(nil)
	return nil
}

// Done is closed once the delivery loop has stopped.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Err reports the terminal connection error recorded by the delivery loop.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Transport) deliverLoop(ctx context.Context, pubsub *redis.PubSub, handler ports.MessageHandler) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			t.finish(nil)
			return
		case msg, ok := <-ch:
			if !ok {
				t.finish(nil)
				return
			}
			if err := handler(ctx, []byte(msg.Payload)); err != nil {
				t.finish(err)
				return
			}
		}
	}
}

func (t *Transport) finish(err error) {
	t.doneOnce.Do(func() {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.done)
	})
}
