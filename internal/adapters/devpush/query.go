package devpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
)

// QueryClient is the dev-mode authoritative-state query: queue-item records
// are read from a Redis key seeded by whatever publishes the dev events.
// Keys are namespaced by the run's correlation prefix so the 15- and
// 18-character id forms resolve to the same record set.
type QueryClient struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.QueryClient = (*QueryClient)(nil)

// NewQueryClient constructs a dev query client.
func NewQueryClient(client redis.UniversalClient, channelPrefix string) (*QueryClient, error) {
	if client == nil {
		return nil, errors.New("devpush: redis client is required")
	}
	if channelPrefix == "" {
		channelPrefix = "devpush:"
	}
	return &QueryClient{client: client, prefix: channelPrefix + "queueitem:"}, nil
}

// QueryTestQueueItems implements ports.QueryClient. A missing key yields an
// empty slice, which the poller surfaces as a no-results failure.
func (q *QueryClient) QueryTestQueueItems(ctx context.Context, runID model.RunID) ([]model.QueueItemRecord, error) {
	data, err := q.client.Get(ctx, q.prefix+runID.CorrelationKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get queue item: %w", err)
	}

	var records []model.QueueItemRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("unmarshal queue item records: %w", err)
	}
	return records, nil
}

// StaticCredentials is a fixed-token credential source for dev mode, where
// the transport ignores auth entirely.
type StaticCredentials struct {
	Token string
}

// Refresh implements ports.CredentialSource.
func (s StaticCredentials) Refresh(context.Context) (string, error) {
	if s.Token == "" {
		return "dev", nil
	}
	return s.Token, nil
}

var _ ports.CredentialSource = StaticCredentials{}
