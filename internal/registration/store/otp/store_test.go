package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission/internal/registration/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

const appID = id.ApplicationID("REG202500000001")

type store interface {
	Save(ctx context.Context, o *models.OTP) error
	Get(ctx context.Context, appID id.ApplicationID) (*models.OTP, error)
	IncrementAttempts(ctx context.Context, appID id.ApplicationID) (int, error)
	Delete(ctx context.Context, appID id.ApplicationID) error
}

func issued(now time.Time) *models.OTP {
	return &models.OTP{
		ApplicationID: appID,
		CodeHash:      "$2a$10$otp",
		IssuedAt:      now,
		ExpiresAt:     now.Add(5 * time.Minute),
	}
}

func exercise(t *testing.T, s store, now time.Time) {
	ctx := context.Background()

	_, err := s.Get(ctx, appID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.IncrementAttempts(ctx, appID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Save(ctx, issued(now)))
	n, err := s.IncrementAttempts(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.IncrementAttempts(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Get(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "$2a$10$otp", got.CodeHash)
	assert.True(t, now.Add(5*time.Minute).Equal(got.ExpiresAt))

	require.NoError(t, s.Save(ctx, issued(now)), "reissue resets attempts")
	got, err = s.Get(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Attempts)

	require.NoError(t, s.Delete(ctx, appID))
	_, err = s.Get(ctx, appID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore(t *testing.T) {
	exercise(t, NewInMemoryStore(), time.Now())
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client)
}

func TestRedisStore(t *testing.T) {
	_, s := newRedisStore(t)
	exercise(t, s, time.Now())
}

func TestRedisStoreExpiresWithCode(t *testing.T) {
	mr, s := newRedisStore(t)
	now := time.Now()
	require.NoError(t, s.Save(context.Background(), issued(now)))

	mr.FastForward(6 * time.Minute)
	_, err := s.Get(context.Background(), appID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisStoreRejectsExpiredSave(t *testing.T) {
	_, s := newRedisStore(t)
	err := s.Save(context.Background(), issued(time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, sentinel.ErrExpired)
}

func TestRedisStoreIncrementIsAtomic(t *testing.T) {
	_, s := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, issued(time.Now())))

	const n = 20
	seen := make([]int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen[i], _ = s.IncrementAttempts(ctx, appID)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, seen)
}
