package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"joblens-agent/internal/config"
	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

// RetryPolicy is the explicit delivery retry policy: a fixed attempt budget
// with a fixed delay between attempts. The numbers live in config, not at
// call sites.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// PolicyFromConfig builds the retry policy from configuration.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.Bridge.MaxAttempts,
		Delay:       cfg.Bridge.RetryDelay,
	}
}

// Bridge wraps a lossy, teardown-prone transport with reliable delivery.
// Delivery is at-least-once; duplicate events must be idempotent downstream.
type Bridge struct {
	transport Transport
	policy    RetryPolicy
	sleep     func(time.Duration)
	logger    logging.Logger
}

// New creates a bridge over the given transport.
func New(transport Transport, policy RetryPolicy) *Bridge {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.Delay <= 0 {
		policy.Delay = 2 * time.Second
	}
	return &Bridge{
		transport: transport,
		policy:    policy,
		sleep:     time.Sleep,
		logger:    logging.GetGlobalLogger(),
	}
}

// Send delivers a message, retrying channel-invalidated failures with the
// same payload up to the policy's attempt budget. Any other failure is
// permanent and returned on the first occurrence. Exhausting the budget
// returns a CHANNEL_INVALIDATED classified error; the caller surfaces its
// reload-page hint and does not retry further.
func (b *Bridge) Send(ctx context.Context, msg models.Message) error {
	var lastErr error

	for attempt := 1; attempt <= b.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			b.sleep(b.policy.Delay)
		}

		err := b.transport.Deliver(ctx, msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrChannelInvalidated) {
			return fmt.Errorf("message delivery failed: %w", err)
		}

		lastErr = err
		b.logger.Warn("Delivery hit invalidated channel", map[string]interface{}{
			"type":         string(msg.Type),
			"attempt":      attempt,
			"max_attempts": b.policy.MaxAttempts,
		})
	}

	return utils.NewChannelInvalidatedError(
		fmt.Sprintf("delivery of %s failed after %d attempts", msg.Type, b.policy.MaxAttempts),
		lastErr,
	)
}

// Messages exposes the underlying inbox stream.
func (b *Bridge) Messages() <-chan models.Message {
	return b.transport.Messages()
}

// Close tears down the underlying transport endpoint.
func (b *Bridge) Close() error {
	return b.transport.Close()
}
