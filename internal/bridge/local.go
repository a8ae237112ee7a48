package bridge

import (
	"context"
	"fmt"
	"sync"

	"joblens-agent/pkg/models"
)

// LocalEndpoint is one side of an in-process transport pair. The two contexts
// stay memory-isolated by convention: nothing crosses except Message values.
type LocalEndpoint struct {
	in     chan models.Message
	peer   *LocalEndpoint
	mu     sync.RWMutex
	closed bool
}

// NewLocalPair creates two connected in-process endpoints.
func NewLocalPair(queueSize int) (*LocalEndpoint, *LocalEndpoint) {
	if queueSize <= 0 {
		queueSize = 64
	}
	a := &LocalEndpoint{in: make(chan models.Message, queueSize)}
	b := &LocalEndpoint{in: make(chan models.Message, queueSize)}
	a.peer = b
	b.peer = a
	return a, b
}

// Deliver sends a message to the peer endpoint's inbox.
func (e *LocalEndpoint) Deliver(ctx context.Context, msg models.Message) error {
	e.mu.RLock()
	senderClosed := e.closed
	e.mu.RUnlock()
	if senderClosed {
		return fmt.Errorf("deliver on closed endpoint")
	}

	if e.peer.isClosed() {
		return ErrChannelInvalidated
	}

	select {
	case e.peer.in <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns this endpoint's inbox.
func (e *LocalEndpoint) Messages() <-chan models.Message {
	return e.in
}

// Close marks the endpoint torn down. The inbox channel is left open so
// in-flight sends never panic; the peer observes the teardown through
// ErrChannelInvalidated on its next delivery.
func (e *LocalEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Reopen reattaches a torn-down endpoint, modelling a page context that was
// recreated after teardown.
func (e *LocalEndpoint) Reopen() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = false
}

func (e *LocalEndpoint) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}
