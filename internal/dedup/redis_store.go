package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"velocity/monitor-service/internal/model"
)

// RedisStore keeps dedup records in Redis so alert history survives restarts.
type RedisStore struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, log *zap.SugaredLogger) *RedisStore {
	return &RedisStore{client: client, log: log.Named("dedup")}
}

// Seen reports whether the key exists. Fail-open: any backend error is logged
// and treated as "not seen": a duplicate alert beats a missed one.
func (s *RedisStore) Seen(ctx context.Context, key string) bool {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.log.Warnw("seen check failed, treating as unseen", "key", key, "error", err)
		return false
	}
	return n > 0
}

// MarkSeen stores the posting snapshot under key with the class's expiry.
// TTLPermanent writes without expiry.
func (s *RedisStore) MarkSeen(ctx context.Context, key string, job model.JobPosting, class TTLClass) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, time.Duration(class)).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes one record. A missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Scan walks every seen:* key and returns the live records with remaining TTL.
// Keys that expire or fail to decode mid-scan are skipped.
func (s *RedisStore) Scan(ctx context.Context) ([]Record, error) {
	var records []Record
	iter := s.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		val, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if err != redis.Nil {
				s.log.Warnw("get during scan failed", "key", key, "error", err)
			}
			continue
		}

		var job model.JobPosting
		if err := json.Unmarshal([]byte(val), &job); err != nil {
			s.log.Warnw("undecodable snapshot, skipping", "key", key, "error", err)
			continue
		}

		ttl, err := s.client.TTL(ctx, key).Result()
		if err != nil {
			ttl = -1
		}

		records = append(records, Record{Key: key, Job: job, TTL: ttl})
	}
	if err := iter.Err(); err != nil {
		return records, fmt.Errorf("scan %s*: %w", KeyPrefix, err)
	}
	return records, nil
}
