package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"joblens-agent/internal/config"
	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
)

const (
	pageChannel       = "joblens:ctx:page"
	backgroundChannel = "joblens:ctx:background"
)

// RedisTransport carries messages between contexts over Redis pub/sub, for
// deployments where the page agent and the coordinator run as separate
// processes.
type RedisTransport struct {
	client      *redis.Client
	pubsub      *redis.PubSub
	sendChannel string
	out         chan models.Message
	cancel      context.CancelFunc
	logger      logging.Logger
}

// NewRedisTransport creates the endpoint for one context. role is either
// "page" or "background" and decides which pub/sub channel is the inbox.
func NewRedisTransport(cfg *config.Config, role string) (*RedisTransport, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	opts.DB = cfg.Redis.DB
	opts.DialTimeout = cfg.Redis.Timeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	var recvChannel, sendChannel string
	switch role {
	case "page":
		recvChannel, sendChannel = pageChannel, backgroundChannel
	case "background":
		recvChannel, sendChannel = backgroundChannel, pageChannel
	default:
		return nil, fmt.Errorf("unknown transport role: %s", role)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := client.Subscribe(ctx, recvChannel)

	t := &RedisTransport{
		client:      client,
		pubsub:      pubsub,
		sendChannel: sendChannel,
		out:         make(chan models.Message, 64),
		cancel:      cancel,
		logger:      logging.GetGlobalLogger().WithField("transport", "redis"),
	}

	go t.receive(ctx)

	return t, nil
}

func (t *RedisTransport) receive(ctx context.Context) {
	defer close(t.out)

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-t.pubsub.Channel():
			if !ok {
				return
			}
			if !t.forward(ctx, raw.Payload) {
				return
			}
		}
	}
}

// forward decodes one pub/sub payload into the inbox. Returns false when ctx
// ended before the inbox accepted the message, so a full inbox with a gone
// consumer never wedges the receive goroutine past Close.
func (t *RedisTransport) forward(ctx context.Context, payload string) bool {
	var msg models.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.logger.Warn("Dropping undecodable message", map[string]interface{}{
			"error": err.Error(),
		})
		return true
	}

	select {
	case t.out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// Deliver publishes a message to the peer context's channel. A publish that
// reaches Redis but finds zero subscribers means the peer was torn down; that
// is the transient teardown signature.
func (t *RedisTransport) Deliver(ctx context.Context, msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	receivers, err := t.client.Publish(ctx, t.sendChannel, data).Result()
	if err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return fmt.Errorf("%w: %v", ErrChannelInvalidated, err)
		}
		return fmt.Errorf("publish failed: %w", err)
	}
	if receivers == 0 {
		return fmt.Errorf("%w: no subscriber on %s", ErrChannelInvalidated, t.sendChannel)
	}
	return nil
}

// Messages returns the inbox stream for this context.
func (t *RedisTransport) Messages() <-chan models.Message {
	return t.out
}

// Close tears the endpoint down.
func (t *RedisTransport) Close() error {
	t.cancel()
	if err := t.pubsub.Close(); err != nil {
		t.client.Close()
		return err
	}
	return t.client.Close()
}
