package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "config:"

// RedisStore keeps each list at config:<name> as a JSON array.
type RedisStore struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, log *zap.SugaredLogger) *RedisStore {
	return &RedisStore{client: client, log: log.Named("settings")}
}

// Get returns the stored list for name. Missing value, backend failure or a
// corrupt payload all fall back to the compiled-in default, so a Redis outage
// degrades to default behavior instead of stopping the pipeline.
func (s *RedisStore) Get(ctx context.Context, name string) []string {
	val, err := s.client.Get(ctx, keyPrefix+name).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warnw("config read failed, using default", "list", name, "error", err)
		}
		return Default(name)
	}

	var values []string
	if err := json.Unmarshal([]byte(val), &values); err != nil {
		s.log.Warnw("corrupt config value, using default", "list", name, "error", err)
		return Default(name)
	}
	return values
}

// Set replaces the stored list for name.
func (s *RedisStore) Set(ctx context.Context, name string, values []string) error {
	if Default(name) == nil {
		return fmt.Errorf("unknown config list %q", name)
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := s.client.Set(ctx, keyPrefix+name, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	s.log.Infow("config list updated", "list", name, "items", len(values))
	return nil
}

// SeedIfMissing writes the default for every list that has no stored value.
func (s *RedisStore) SeedIfMissing(ctx context.Context) error {
	for _, name := range Names {
		n, err := s.client.Exists(ctx, keyPrefix+name).Result()
		if err != nil {
			return fmt.Errorf("exists %s: %w", name, err)
		}
		if n > 0 {
			continue
		}
		def := Default(name)
		payload, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("marshal default %s: %w", name, err)
		}
		if err := s.client.Set(ctx, keyPrefix+name, payload, 0).Err(); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		s.log.Infow("seeded config list", "list", name, "items", len(def))
	}
	return nil
}
