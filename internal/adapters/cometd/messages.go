package cometd

import "encoding/json"

// Bayeux meta channel names.
const (
	channelHandshake  = "/meta/handshake"
	channelConnect    = "/meta/connect"
	channelSubscribe  = "/meta/subscribe"
	channelDisconnect = "/meta/disconnect"

	connectionTypeLongPolling = "long-polling"
	bayeuxVersion             = "1.0"
)

// Reconnect advice values a Bayeux server may return.
const (
	adviceRetry     = "retry"
	adviceHandshake = "handshake"
	adviceNone      = "none"
)

// message is a single Bayeux frame, outbound or inbound. Fields not relevant
// to a given channel are left empty and omitted from the wire form.
type message struct {
	Channel                  string          `json:"channel"`
	Version                  string          `json:"version,omitempty"`
	ClientID                 string          `json:"clientId,omitempty"`
	ID                       string          `json:"id,omitempty"`
	ConnectionType           string          `json:"connectionType,omitempty"`
	SupportedConnectionTypes []string        `json:"supportedConnectionTypes,omitempty"`
	Subscription             string          `json:"subscription,omitempty"`
	Successful               *bool           `json:"successful,omitempty"`
	Error                    string          `json:"error,omitempty"`
	Advice                   *advice         `json:"advice,omitempty"`
	Data                     json.RawMessage `json:"data,omitempty"`
}

// advice carries the server's reconnection guidance.
type advice struct {
	Reconnect string `json:"reconnect,omitempty"`
	Interval  int    `json:"interval,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`
}

// ok reports whether a meta reply was marked successful. Event deliveries
// carry no successful field and count as ok.
func (m message) ok() bool {
	return m.Successful == nil || *m.Successful
}

// isMeta reports whether the frame is a /meta reply rather than an event
// delivery.
func (m message) isMeta() bool {
	return len(m.Channel) >= 6 && m.Channel[:6] == "/meta/"
}
