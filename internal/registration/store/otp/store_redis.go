package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"admission/internal/registration/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

const keyPrefix = "otp:"

// RedisStore keeps each OTP in a hash that expires with the code, so the
// attempt counter can be bumped atomically with HINCRBY.
type RedisStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, clock: time.Now}
}

func key(appID id.ApplicationID) string {
	return keyPrefix + appID.String()
}

func (s *RedisStore) Save(ctx context.Context, o *models.OTP) error {
	ttl := o.ExpiresAt.Sub(s.clock())
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	k := key(o.ApplicationID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"code_hash", o.CodeHash,
			"issued_at", o.IssuedAt.UTC().Format(time.RFC3339Nano),
			"expires_at", o.ExpiresAt.UTC().Format(time.RFC3339Nano),
			"attempts", o.Attempts,
		)
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, appID id.ApplicationID) (*models.OTP, error) {
	fields, err := s.client.HGetAll(ctx, key(appID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	o := &models.OTP{ApplicationID: appID, CodeHash: fields["code_hash"]}
	if o.IssuedAt, err = time.Parse(time.RFC3339Nano, fields["issued_at"]); err != nil {
		return nil, fmt.Errorf("decode otp issued_at: %w", err)
	}
	if o.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expires_at"]); err != nil {
		return nil, fmt.Errorf("decode otp expires_at: %w", err)
	}
	if o.Attempts, err = strconv.Atoi(fields["attempts"]); err != nil {
		return nil, fmt.Errorf("decode otp attempts: %w", err)
	}
	return o, nil
}

// incrementScript bumps the counter only when the OTP hash still exists, so
// a concurrent delete cannot leave a bare counter behind.
var incrementScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

func (s *RedisStore) IncrementAttempts(ctx context.Context, appID id.ApplicationID) (int, error) {
	n, err := incrementScript.Run(ctx, s.client, []string{key(appID)}).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	if n < 0 {
		return 0, sentinel.ErrNotFound
	}
	return int(n), nil
}

func (s *RedisStore) Delete(ctx context.Context, appID id.ApplicationID) error {
	if err := s.client.Del(ctx, key(appID)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
