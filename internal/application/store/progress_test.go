package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission/internal/application/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

const owner = id.ApplicationID("REG202500000001")

type progressStore interface {
	Save(ctx context.Context, snap models.Snapshot) error
	Load(ctx context.Context, owner id.ApplicationID) (*models.Snapshot, error)
	Delete(ctx context.Context, owner id.ApplicationID) error
}

func draftSnapshot(t *testing.T) models.Snapshot {
	t.Helper()
	app := models.New(owner)
	d, err := app.Draft()
	require.NoError(t, err)
	d.UpdatePersonal(models.Personal{FullName: models.Ptr("Asha Patil")})
	d.UpdateDocuments(models.Documents{"photograph": {FileName: "photo.jpg", Size: 1024}})
	require.NoError(t, d.SetStep(4))
	return app.Snapshot()
}

func exerciseProgressStore(t *testing.T, s progressStore) {
	ctx := context.Background()

	_, err := s.Load(ctx, owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Save(ctx, draftSnapshot(t)))
	got, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentStep)
	assert.Equal(t, "Asha Patil", *got.Sections.Personal.FullName)
	assert.Equal(t, "photo.jpg", got.Sections.Documents["photograph"].FileName)

	restored, err := models.FromSnapshot(*got)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.CurrentStep())

	require.NoError(t, s.Delete(ctx, owner))
	_, err = s.Load(ctx, owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryProgressStore(t *testing.T) {
	exerciseProgressStore(t, NewInMemoryProgressStore(time.Hour))
}

func TestInMemoryProgressStoreExpires(t *testing.T) {
	s := NewInMemoryProgressStore(time.Minute)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }
	require.NoError(t, s.Save(context.Background(), draftSnapshot(t)))

	now = now.Add(2 * time.Minute)
	_, err := s.Load(context.Background(), owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryProgressStoreCopiesSections(t *testing.T) {
	s := NewInMemoryProgressStore(0)
	snap := draftSnapshot(t)
	require.NoError(t, s.Save(context.Background(), snap))
	snap.Sections.Documents["signature"] = models.DocumentRef{FileName: "sig.png"}

	got, err := s.Load(context.Background(), owner)
	require.NoError(t, err)
	assert.NotContains(t, got.Sections.Documents, "signature")
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisProgressStore(t *testing.T) {
	_, client := newMiniredis(t)
	exerciseProgressStore(t, NewRedisProgressStore(client, time.Hour))
}

func TestRedisProgressStoreAppliesTTL(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewRedisProgressStore(client, 30*time.Minute)
	require.NoError(t, s.Save(context.Background(), draftSnapshot(t)))

	assert.Equal(t, 30*time.Minute, mr.TTL(progressKeyPrefix+owner.String()))
	mr.FastForward(31 * time.Minute)

	_, err := s.Load(context.Background(), owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisProgressStoreRejectsCorruptPayload(t *testing.T) {
	mr, client := newMiniredis(t)
	require.NoError(t, mr.Set(progressKeyPrefix+owner.String(), "{not json"))

	_, err := NewRedisProgressStore(client, time.Hour).Load(context.Background(), owner)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound)
}
