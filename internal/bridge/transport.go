package bridge

import (
	"context"
	"errors"

	"joblens-agent/pkg/models"
)

// ErrChannelInvalidated is the typed failure signature a transport returns
// when the receiving context was torn down mid-flight. It is the only
// delivery failure the bridge treats as transient.
var ErrChannelInvalidated = errors.New("channel invalidated: receiving context is gone")

// Transport moves messages between the two execution contexts. Implementations
// must return ErrChannelInvalidated (possibly wrapped) for teardown failures
// and any other error for permanent ones.
type Transport interface {
	// Deliver sends a message to the peer context.
	Deliver(ctx context.Context, msg models.Message) error

	// Messages returns the stream of messages delivered to this context.
	Messages() <-chan models.Message

	// Close tears this endpoint down; the peer's subsequent deliveries fail
	// with ErrChannelInvalidated.
	Close() error
}
