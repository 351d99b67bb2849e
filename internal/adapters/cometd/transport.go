// Package cometd implements the push transport over the Bayeux long-polling
// protocol as exposed by the Salesforce streaming endpoint.
package cometd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	apperrors "github.com/MuriloKakazu/salesforcedx-apex/internal/errors"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
)

// Interceptor inspects an inbound frame before delivery. Returning a non-nil
// error short-circuits delivery: the dispatch loop disconnects and records
// the error as the connection's terminal failure. This replaces the pattern
// of throwing out of a transport callback; control never crosses the callback
// boundary via panic.
type Interceptor func(channel, errorDetail string) error

// ErrorInterceptor is the default interceptor: any error-bearing frame aborts
// the connection with a transport error.
func ErrorInterceptor(channel, errorDetail string) error {
	return apperrors.ClassifyStreamingError(errorDetail, false)
}

// Config describes how to reach the streaming endpoint.
type Config struct {
	// URL is the full cometd endpoint, e.g.
	// https://org.my.salesforce.com/cometd/61.0.
	URL string
	// Timeout bounds each long-poll request. The server's advice timeout is
	// honored when longer.
	Timeout time.Duration
	// Interceptors run against every inbound frame before delivery. When
	// empty, ErrorInterceptor is installed.
	Interceptors []Interceptor
	Logger       *slog.Logger
	// HTTPClient overrides the default client; a cookie jar is attached when
	// the client has none, since the endpoint requires cookie affinity across
	// handshake and connect requests.
	HTTPClient *http.Client
}

// Transport is a Bayeux long-polling connection implementing ports.Transport.
// One Transport carries at most one channel subscription.
type Transport struct {
	url          string
	timeout      time.Duration
	interceptors []Interceptor
	logger       *slog.Logger
	httpClient   *http.Client

	mu         sync.Mutex
	authHeader string
	clientID   string
	subscribed string
	handler    ports.MessageHandler

	done     chan struct{}
	doneOnce sync.Once
	err      error
	cancel   context.CancelFunc
}

var _ ports.Transport = (*Transport)(nil)

// New constructs a Transport against the given endpoint.
func New(cfg Config) (*Transport, error) {
	if cfg.URL == "" {
		return nil, errors.New("cometd: endpoint URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 110 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("cometd: build cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	interceptors := cfg.Interceptors
	if len(interceptors) == 0 {
		interceptors = []Interceptor{ErrorInterceptor}
	}

	return &Transport{
		url:          cfg.URL,
		timeout:      timeout,
		interceptors: interceptors,
		logger:       logger.With("component", "cometd"),
		httpClient:   httpClient,
		done:         make(chan struct{}),
	}, nil
}

// SetAuthHeader installs the bearer token sent on every request.
func (t *Transport) SetAuthHeader(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.authHeader = "Bearer " + token
}

// Handshake negotiates the Bayeux session and stores the server-assigned
// client id.
func (t *Transport) Handshake(ctx context.Context) error {
	replies, err := t.post(ctx, message{
		Channel:                  channelHandshake,
		Version:                  bayeuxVersion,
		SupportedConnectionTypes: []string{connectionTypeLongPolling},
		ID:                       uuid.NewString(),
	})
	if err != nil {
		return apperrors.HandshakeFailed(err, "transport handshake failed")
	}

	for _, reply := range replies {
		if reply.Channel != channelHandshake {
			continue
		}
		if !reply.ok() {
			return apperrors.ClassifyStreamingError(reply.Error, true)
		}
		if reply.ClientID == "" {
			return apperrors.HandshakeFailed(errors.New("handshake reply carried no client id"), "transport handshake failed")
		}
		t.mu.Lock()
		t.clientID = reply.ClientID
		t.mu.Unlock()
		return nil
	}
	return apperrors.HandshakeFailed(errors.New("no handshake reply received"), "transport handshake failed")
}

// Subscribe opens the channel and starts the long-poll dispatch loop. It
// returns once the server acknowledges the subscription.
func (t *Transport) Subscribe(ctx context.Context, channel string, handler ports.MessageHandler) error {
	t.mu.Lock()
	clientID := t.clientID
	alreadySubscribed := t.subscribed != ""
	t.mu.Unlock()

	if clientID == "" {
		return apperrors.Transport("subscribe before handshake")
	}
	if alreadySubscribed {
		return apperrors.Transport("transport already carries a subscription")
	}
	if handler == nil {
		return errors.New("cometd: message handler is required")
	}

	replies, err := t.post(ctx, message{
		Channel:      channelSubscribe,
		ClientID:     clientID,
		Subscription: channel,
		ID:           uuid.NewString(),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "subscribe request failed")
	}
	for _, reply := range replies {
		if reply.Channel == channelSubscribe && !reply.ok() {
			return apperrors.ClassifyStreamingError(reply.Error, false)
		}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.mu.Lock()
	t.subscribed = channel
	t.handler = handler
	t.cancel = cancel
	t.mu.Unlock()

	go t.connectLoop(loopCtx)
	return nil
}

// Disconnect stops the dispatch loop and tells the server to drop the
// session. Safe to call more than once.
func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	cancel := t.cancel
	clientID := t.clientID
	t.cancel = nil
	t.clientID = ""
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.finish(nil)

	if clientID == "" {
		return nil
	}
	_, err := t.post(ctx, message{
		Channel:  channelDisconnect,
		ClientID: clientID,
		ID:       uuid.NewString(),
	})
	if err != nil {
		// The session dies server-side on its own timeout; a failed
		// disconnect frame is not fatal.
		t.logger.DebugContext(ctx, "disconnect frame failed", "error", err)
	}
	return nil
}

// Done is closed once the dispatch loop has stopped.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Err reports the terminal connection error recorded by the dispatch loop.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// connectLoop issues long-poll connect requests until canceled, the server
// advises against reconnecting, or an interceptor/handler aborts delivery.
func (t *Transport) connectLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			t.finish(nil)
			return
		}

		t.mu.Lock()
		clientID := t.clientID
		t.mu.Unlock()
		if clientID == "" {
			t.finish(nil)
			return
		}

		replies, err := t.post(ctx, message{
			Channel:        channelConnect,
			ClientID:       clientID,
			ConnectionType: connectionTypeLongPolling,
			ID:             uuid.NewString(),
		})
		if err != nil {
			if ctx.Err() != nil {
				t.finish(nil)
				return
			}
			t.finish(apperrors.Wrap(err, apperrors.ErrCodeTransport, "streaming connect failed"))
			return
		}

		stop, interval := t.dispatch(ctx, replies)
		if stop {
			return
		}
		if interval > 0 {
			select {
			case <-ctx.Done():
				t.finish(nil)
				return
			case <-time.After(interval):
			}
		}
	}
}

// dispatch feeds one batch of frames through the interceptors and the
// subscriber handler. It returns stop=true when the loop must end (the
// terminal error, if any, has been recorded) and the interval to pause before
// the next connect.
func (t *Transport) dispatch(ctx context.Context, replies []message) (stop bool, interval time.Duration) {
	t.mu.Lock()
	subscribed := t.subscribed
	handler := t.handler
	t.mu.Unlock()

	for _, reply := range replies {
		if reply.Error != "" {
			for _, intercept := range t.interceptors {
				if err := intercept(reply.Channel, reply.Error); err != nil {
					t.finish(err)
					return true, 0
				}
			}
		}

		switch {
		case reply.Channel == channelConnect:
			if adv := reply.Advice; adv != nil {
				if adv.Reconnect == adviceNone {
					t.finish(apperrors.Transport("server advised against reconnecting"))
					return true, 0
				}
				if adv.Reconnect == adviceHandshake {
					t.finish(apperrors.Transport("streaming session lost, server requires a new handshake"))
					return true, 0
				}
				interval = time.Duration(adv.Interval) * time.Millisecond
			}
		case reply.Channel == subscribed && !reply.isMeta():
			if handler == nil {
				continue
			}
			if err := handler(ctx, reply.Data); err != nil {
				t.finish(err)
				return true, 0
			}
		}
	}
	return false, interval
}

// finish records the terminal error and closes Done exactly once.
func (t *Transport) finish(err error) {
	t.doneOnce.Do(func() {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.done)
	})
}

// post sends one Bayeux frame and decodes the reply batch.
func (t *Transport) post(ctx context.Context, msg message) ([]message, error) {
	body, err := json.Marshal([]message{msg})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", msg.Channel, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", msg.Channel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	t.mu.Lock()
	if t.authHeader != "" {
		req.Header.Set("Authorization", t.authHeader)
	}
	t.mu.Unlock()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", msg.Channel, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s request returned status %d", msg.Channel, resp.StatusCode)
	}

	var replies []message
	if err := json.NewDecoder(resp.Body).Decode(&replies); err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", msg.Channel, err)
	}
	return replies, nil
}
