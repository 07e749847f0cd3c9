package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemz/agentmemz/internal/errs"
)

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), mr
}

func TestCacheRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	c := NewCache(client, time.Second)
	ctx := context.Background()

	_, ok := c.Get(ctx, "query:abc")
	assert.False(t, ok)

	c.Set(ctx, "query:abc", []byte(`[{"score":0.9}]`), time.Hour)

	got, ok := c.Get(ctx, "query:abc")
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"score":0.9}]`), got)
}

func TestCacheExpiry(t *testing.T) {
	client, mr := newTestClient(t)
	c := NewCache(client, time.Second)
	ctx := context.Background()

	c.Set(ctx, "query:abc", []byte("value"), time.Minute)
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "query:abc")
	assert.False(t, ok)
}

func TestCacheFailureIsAMiss(t *testing.T) {
	client, mr := newTestClient(t)
	c := NewCache(client, time.Second)
	ctx := context.Background()

	c.Set(ctx, "query:abc", []byte("value"), time.Hour)
	mr.Close()

	_, ok := c.Get(ctx, "query:abc")
	assert.False(t, ok)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	s := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	err := s.UpdateContext(ctx, "s1", map[string]string{
		"user_id":         "u1",
		"conversation_id": "conv1",
	})
	require.NoError(t, err)

	got, err := s.GetContext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got["user_id"])
	assert.Equal(t, "conv1", got["conversation_id"])
}

func TestSessionStoreMergesUpdates(t *testing.T) {
	client, _ := newTestClient(t)
	s := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.UpdateContext(ctx, "s1", map[string]string{"user_id": "u1"}))
	require.NoError(t, s.UpdateContext(ctx, "s1", map[string]string{"topic": "hiking"}))

	got, err := s.GetContext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got["user_id"])
	assert.Equal(t, "hiking", got["topic"])
}

func TestSessionStoreExpiry(t *testing.T) {
	client, mr := newTestClient(t)
	s := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.UpdateContext(ctx, "s1", map[string]string{"user_id": "u1"}))
	mr.FastForward(2 * time.Hour)

	_, err := s.GetContext(ctx, "s1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSessionStoreUnknownSession(t *testing.T) {
	client, _ := newTestClient(t)
	s := NewSessionStore(client, time.Hour)

	_, err := s.GetContext(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
