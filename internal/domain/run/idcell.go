// Package run holds the session-scoped run-identifier primitive shared
// between the subscription lifecycle and its callers.
package run

import (
	"context"
	"sync"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
)

// IDCell is a single-assignment cell publishing the run id of the active
// session. The first Set wins; every Wait after assignment returns the same
// value immediately, and Waits before assignment block until the id arrives
// or the caller's context ends. Safe for concurrent use by any number of
// writers and readers.
type IDCell struct {
	mu  sync.Mutex
	id  model.RunID
	set bool
	ch  chan struct{}
}

// NewIDCell constructs an empty cell.
func NewIDCell() *IDCell {
	return &IDCell{ch: make(chan struct{})}
}

// Set assigns the run id. Returns true on first assignment, false when a
// value was already published (the later value is discarded).
func (c *IDCell) Set(id model.RunID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return false
	}
	c.id = id
	c.set = true
	close(c.ch)
	return true
}

// Wait blocks until a run id has been published or ctx ends.
func (c *IDCell) Wait(ctx context.Context) (model.RunID, error) {
	select {
	case <-c.ch:
		return c.id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Get returns the published id without blocking. The second return value
// reports whether an id has been assigned yet.
func (c *IDCell) Get() (model.RunID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.set
}
