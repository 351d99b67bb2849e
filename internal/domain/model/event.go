package model

import "encoding/json"

// TestRunEvent is an inbound push notification from the test-result streaming
// channel. It is transient: the reconciler inspects it, triggers a poll, and
// discards it.
type TestRunEvent struct {
	// RunID is the subject the event pertains to. Events for other runs can
	// arrive on the shared channel and are filtered by correlation.
	RunID RunID `json:"runId"`
	// Error carries an optional error payload attached by the publisher.
	Error string `json:"error,omitempty"`
	// Raw preserves the original payload for diagnostic logging.
	Raw json.RawMessage `json:"-"`
}

// HasError reports whether the event carries an error payload.
func (e TestRunEvent) HasError() bool {
	return e.Error != ""
}

// testResultMessage is the wire shape of a test-result channel delivery. The
// subject run id rides in sobject.Id; meta errors surface in the error field.
type testResultMessage struct {
	Event struct {
		CreatedDate string `json:"createdDate"`
		Type        string `json:"type"`
	} `json:"event"`
	Sobject struct {
		ID string `json:"Id"`
	} `json:"sobject"`
	Error string `json:"error,omitempty"`
}

// ParseTestRunEvent decodes an inbound channel payload into a TestRunEvent.
func ParseTestRunEvent(payload []byte) (TestRunEvent, error) {
	var msg testResultMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return TestRunEvent{}, err
	}
	return TestRunEvent{
		RunID: RunID(msg.Sobject.ID),
		Error: msg.Error,
		Raw:   json.RawMessage(payload),
	}, nil
}
