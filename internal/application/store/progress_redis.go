package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"admission/internal/application/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

const progressKeyPrefix = "application:draft:"

// RedisProgressStore keeps saved drafts as JSON documents with a TTL so
// abandoned drafts age out.
type RedisProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProgressStore(client *redis.Client, ttl time.Duration) *RedisProgressStore {
	return &RedisProgressStore{client: client, ttl: ttl}
}

func progressKey(owner id.ApplicationID) string {
	return progressKeyPrefix + owner.String()
}

func (s *RedisProgressStore) Save(ctx context.Context, snap models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, progressKey(snap.Owner), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Load(ctx context.Context, owner id.ApplicationID) (*models.Snapshot, error) {
	raw, err := s.client.Get(ctx, progressKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &snap, nil
}

func (s *RedisProgressStore) Delete(ctx context.Context, owner id.ApplicationID) error {
	if err := s.client.Del(ctx, progressKey(owner)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
