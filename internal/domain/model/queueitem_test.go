package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusQueued, StatusHolding, StatusPreparing, StatusProcessing} {
		assert.False(t, s.Terminal(), "status %s must be pending", s)
	}
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusAborted} {
		assert.True(t, s.Terminal(), "status %s must be terminal", s)
	}

	// Terminality is defined by exclusion: unknown statuses are terminal.
	assert.True(t, Status("Finished").Terminal())
	assert.True(t, Status("").Terminal())
}

func TestTestQueueItemTerminal(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		statuses []Status
		want     bool
	}{
		"all completed":              {statuses: []Status{StatusCompleted, StatusCompleted}, want: true},
		"mixed terminal":             {statuses: []Status{StatusCompleted, StatusFailed, StatusAborted}, want: true},
		"one record still queued":    {statuses: []Status{StatusCompleted, StatusQueued}, want: false},
		"one record processing":      {statuses: []Status{StatusProcessing}, want: false},
		"single holding among done":  {statuses: []Status{StatusFailed, StatusHolding, StatusCompleted}, want: false},
		"empty record set not terminal": {statuses: nil, want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			item := TestQueueItem{RunID: "707xx0000000001"}
			for i, s := range tc.statuses {
				item.Records = append(item.Records, QueueItemRecord{ID: string(rune('a' + i)), Status: s})
			}
			assert.Equal(t, tc.want, item.Terminal())
		})
	}
}

func TestStatusCounts(t *testing.T) {
	t.Parallel()

	item := TestQueueItem{Records: []QueueItemRecord{
		{Status: StatusQueued},
		{Status: StatusQueued},
		{Status: StatusCompleted},
	}}

	counts := item.StatusCounts()
	assert.Equal(t, 2, counts[StatusQueued])
	assert.Equal(t, 1, counts[StatusCompleted])
	assert.Len(t, counts, 2)
}

func TestParseTestRunEvent(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"event": {"createdDate": "2024-04-01T10:00:00.000Z", "type": "updated"},
		"sobject": {"Id": "707xx0000000001AAA"}
	}`)

	ev, err := ParseTestRunEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, RunID("707xx0000000001AAA"), ev.RunID)
	assert.False(t, ev.HasError())
	assert.JSONEq(t, string(payload), string(ev.Raw))
}

func TestParseTestRunEventWithError(t *testing.T) {
	t.Parallel()

	ev, err := ParseTestRunEvent([]byte(`{"error": "403::Organization total events daily limit exceeded", "sobject": {"Id": "707xx0000000001"}}`))
	require.NoError(t, err)
	assert.True(t, ev.HasError())
	assert.Equal(t, "403::Organization total events daily limit exceeded", ev.Error)
}

func TestParseTestRunEventMalformed(t *testing.T) {
	t.Parallel()

	_, err := ParseTestRunEvent([]byte(`{"sobject": `))
	require.Error(t, err)
}
