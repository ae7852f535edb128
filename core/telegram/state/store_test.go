package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Step string            `json:"step"`
	Data map[string]string `json:"data"`
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:"), mr
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	var got doc
	found, err := s.Get(ctx, Key("wizard", 7), &got)
	require.NoError(t, err)
	assert.False(t, found)

	in := doc{Step: "host", Data: map[string]string{"name": "web-1"}}
	require.NoError(t, s.Put(ctx, Key("wizard", 7), in, time.Hour))

	found, err = s.Get(ctx, Key("wizard", 7), &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, got)

	require.NoError(t, s.Put(ctx, Key("wizard", 7), doc{Step: "name"}, time.Hour))
	got = doc{}
	_, err = s.Get(ctx, Key("wizard", 7), &got)
	require.NoError(t, err)
	assert.Equal(t, "name", got.Step)
	assert.Empty(t, got.Data)

	require.NoError(t, s.Delete(ctx, Key("wizard", 7)))
	require.NoError(t, s.Delete(ctx, Key("wizard", 7)))
	found, err = s.Get(ctx, Key("wizard", 7), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreContract(t *testing.T) {
	storeContract(t, NewMemoryStore(nil))
}

func TestRedisStoreContract(t *testing.T) {
	s, _ := newRedisStore(t)
	storeContract(t, s)
}

func TestLoggedStoreContract(t *testing.T) {
	storeContract(t, WithLogging(NewMemoryStore(nil)))
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "analytics:1", doc{Step: "x"}, 30*time.Minute))
	require.NoError(t, s.Put(ctx, "forever", doc{Step: "y"}, 0))

	now = now.Add(29 * time.Minute)
	var got doc
	found, _ := s.Get(ctx, "analytics:1", &got)
	assert.True(t, found)

	now = now.Add(time.Minute)
	found, _ = s.Get(ctx, "analytics:1", &got)
	assert.False(t, found)
	assert.Equal(t, 1, s.Len())

	now = now.Add(365 * 24 * time.Hour)
	found, _ = s.Get(ctx, "forever", &got)
	assert.True(t, found)
}

func TestRedisStoreExpiryAndPrefix(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "analytics:5", doc{Step: "x"}, 30*time.Minute))
	assert.True(t, mr.Exists("test:analytics:5"))
	assert.Equal(t, 30*time.Minute, mr.TTL("test:analytics:5"))

	mr.FastForward(31 * time.Minute)
	var got doc
	found, err := s.Get(ctx, "analytics:5", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreReportsBackendErrors(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:broken", "not json"))
	var got doc
	_, err := s.Get(ctx, "broken", &got)
	assert.Error(t, err)

	mr.SetError("LOADING")
	_, err = s.Get(ctx, "anything", &got)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, redis.Nil))
	assert.ErrorContains(t, s.Ping(ctx), "redis ping")
	assert.Error(t, WithLogging(s).Ping(ctx))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "wizard:42", Key("wizard", 42))
	assert.Equal(t, "analytics:-1", Key("analytics", -1))
}
