// Package push contains simple hand-written test doubles for the streaming
// ports. These are lightweight and suitable for unit tests without codegen:
// the fake transport lets a test feed payloads through the subscribed handler
// the way a live dispatch loop would.
package push

import (
	"context"
	"errors"
	"sync"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/progress"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Transport = (*FakeTransport)(nil)
	_ progress.Sink   = (*CaptureSink)(nil)
)

// FakeTransport is an in-memory ports.Transport. Tests deliver payloads with
// Deliver and observe lifecycle calls through the exported counters.
type FakeTransport struct {
	HandshakeErr error
	SubscribeErr error

	mu              sync.Mutex
	authHeader      string
	channel         string
	handler         ports.MessageHandler
	handshakeCalls  int
	disconnectCalls int

	done     chan struct{}
	doneOnce sync.Once
	err      error
}

// NewFakeTransport constructs a fake transport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{done: make(chan struct{})}
}

// SetAuthHeader records the installed token.
func (f *FakeTransport) SetAuthHeader(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeader = token
}

// Handshake returns the scripted handshake error.
func (f *FakeTransport) Handshake(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handshakeCalls++
	return f.HandshakeErr
}

// Subscribe records the channel and handler.
func (f *FakeTransport) Subscribe(_ context.Context, channel string, handler ports.MessageHandler) error {
	if f.SubscribeErr != nil {
		return f.SubscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handler != nil {
		return errors.New("fake transport already carries a subscription")
	}
	f.channel = channel
	f.handler = handler
	return nil
}

// Disconnect counts calls and closes Done, mirroring a dispatch loop stop.
func (f *FakeTransport) Disconnect(context.Context) error {
	f.mu.Lock()
	f.disconnectCalls++
	f.mu.Unlock()
	f.finish(nil)
	return nil
}

// Done is closed on Disconnect or Fail.
func (f *FakeTransport) Done() <-chan struct{} {
	return f.done
}

// Err reports the scripted terminal error.
func (f *FakeTransport) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Deliver feeds one payload through the subscribed handler, returning the
// handler's verdict. Calling Deliver before Subscribe is a test bug.
func (f *FakeTransport) Deliver(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler == nil {
		return errors.New("fake transport has no subscriber")
	}
	err := handler(ctx, payload)
	if err != nil {
		// A handler error aborts the connection, like the real dispatch loop.
		f.finish(err)
	}
	return err
}

// Fail simulates a transport-level failure ending the dispatch loop.
func (f *FakeTransport) Fail(err error) {
	f.finish(err)
}

// AuthHeader returns the last installed token.
func (f *FakeTransport) AuthHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authHeader
}

// Channel returns the subscribed channel name.
func (f *FakeTransport) Channel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channel
}

// HandshakeCalls returns how many times Handshake ran.
func (f *FakeTransport) HandshakeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handshakeCalls
}

// DisconnectCalls returns how many times Disconnect ran.
func (f *FakeTransport) DisconnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnectCalls
}

// Subscribed reports whether a handler is installed.
func (f *FakeTransport) Subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

func (f *FakeTransport) finish(err error) {
	f.doneOnce.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.done)
	})
}

// CaptureSink records every published progress event.
type CaptureSink struct {
	mu     sync.Mutex
	events []progress.Event
}

// Publish implements the progress.Sink interface.
func (c *CaptureSink) Publish(_ context.Context, ev progress.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a copy of the captured events.
func (c *CaptureSink) Events() []progress.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]progress.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Kinds returns just the event kinds, in publish order.
func (c *CaptureSink) Kinds() []progress.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]progress.Kind, 0, len(c.events))
	for _, ev := range c.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}
