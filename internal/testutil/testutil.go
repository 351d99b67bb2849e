// Package testutil provides testing utilities and helpers for the tracker.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
)

// SetupTestRedis creates a Redis client for testing. Tests are skipped when
// Redis is not available; set TEST_REDIS_ADDR to point at a non-default
// instance.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client after ping error: %v", cerr)
		}
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client: %v", cerr)
		}
	})
	return client
}

// RecordBuilder provides a fluent interface for building queue-item records
// for testing.
type RecordBuilder struct {
	rec model.QueueItemRecord
}

// NewRecord creates a RecordBuilder with sensible defaults.
func NewRecord() *RecordBuilder {
	return &RecordBuilder{
		rec: model.QueueItemRecord{
			ID:          "709xx00000000001",
			ApexClassID: "01pxx00000000001",
			Status:      model.StatusQueued,
		},
	}
}

// WithID sets the record id.
func (b *RecordBuilder) WithID(id string) *RecordBuilder {
	b.rec.ID = id
	return b
}

// WithStatus sets the record status.
func (b *RecordBuilder) WithStatus(status model.Status) *RecordBuilder {
	b.rec.Status = status
	return b
}

// Build returns the record.
func (b *RecordBuilder) Build() model.QueueItemRecord {
	return b.rec
}

// Records builds n records sharing one status.
func Records(n int, status model.Status) []model.QueueItemRecord {
	out := make([]model.QueueItemRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.QueueItemRecord{
			ID:          "709xx0000000000" + string(rune('1'+i)),
			ApexClassID: "01pxx0000000000" + string(rune('1'+i)),
			Status:      status,
		})
	}
	return out
}
