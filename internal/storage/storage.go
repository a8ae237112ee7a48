package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"joblens-agent/internal/config"
	"joblens-agent/internal/logging"
)

const (
	tokenKey             = "joblens:auth:token"
	notificationsPrefKey = "joblens:prefs:notifications"
)

// Store reads shared local storage: the capability token owned by the external
// auth subsystem and the user's preference flags. This core never writes the
// token.
type Store struct {
	client *redis.Client
	logger logging.Logger
}

// NewStore creates a shared-storage client from configuration.
func NewStore(cfg *config.Config) *Store {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		// Fallback to default configuration
		opts = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	opts.DB = cfg.Redis.DB
	opts.DialTimeout = cfg.Redis.Timeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	return &Store{
		client: redis.NewClient(opts),
		logger: logging.GetGlobalLogger(),
	}
}

// Ping tests the storage connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the storage connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Token returns the capability token, or "" when none is stored. The caller
// fails fast on an empty token; this core never mints one.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read capability token: %w", err)
	}
	return token, nil
}

// NotificationsEnabled reports the user's notification preference. An unset
// flag defaults to enabled (fail-open); a storage error also fails open so a
// flaky store cannot silently suppress notifications.
func (s *Store) NotificationsEnabled(ctx context.Context) bool {
	val, err := s.client.Get(ctx, notificationsPrefKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Failed to read notification preference", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return true
	}
	return val != "0" && val != "false"
}

// IsHealthy checks if shared storage is reachable
func (s *Store) IsHealthy(ctx context.Context) error {
	return s.Ping(ctx)
}
