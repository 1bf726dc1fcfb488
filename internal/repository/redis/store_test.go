package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionStore(client, "test", ttl), mr
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestSessionStore_Load_Empty(t *testing.T) {
	store, _ := setupTestRedis(t, 0)

	rec, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Empty())
}

func TestSessionStore_Load_Existing(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	require.NoError(t, mr.Set("storefront:test:token", "t1"))
	require.NoError(t, mr.Set("storefront:test:user", `{"id":1}`))

	rec, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repository.Record{Token: "t1", User: `{"id":1}`}, rec)
}

func TestSessionStore_Load_Partial(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	require.NoError(t, mr.Set("storefront:test:user", `{"id":1}`))

	rec, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.Token)
	assert.False(t, rec.Complete())
}

func TestSessionStore_Load_ConnectionError(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	mr.Close()

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis mget session")
}

// ---------------------------------------------------------------------------
// Save / Clear
// ---------------------------------------------------------------------------

func TestSessionStore_Save(t *testing.T) {
	store, mr := setupTestRedis(t, 0)

	require.NoError(t, store.Save(context.Background(), repository.Record{Token: "t1", User: `{"id":1}`}))

	tok, err := mr.Get("storefront:test:token")
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	user, err := mr.Get("storefront:test:user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, user)
	assert.Equal(t, time.Duration(0), mr.TTL("storefront:test:token"))
}

func TestSessionStore_Save_WithTTL(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)

	require.NoError(t, store.Save(context.Background(), repository.Record{Token: "t1", User: "{}"}))
	assert.Equal(t, time.Hour, mr.TTL("storefront:test:token"))
	assert.Equal(t, time.Hour, mr.TTL("storefront:test:user"))

	mr.FastForward(2 * time.Hour)
	rec, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Empty())
}

func TestSessionStore_Clear(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, repository.Record{Token: "t1", User: "{}"}))
	require.NoError(t, store.Clear(ctx))

	assert.False(t, mr.Exists("storefront:test:token"))
	assert.False(t, mr.Exists("storefront:test:user"))
	require.NoError(t, store.Clear(ctx))
}

func TestSessionStore_NamespacesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	a := NewSessionStore(client, "a", 0)
	b := NewSessionStore(client, "b", 0)
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, repository.Record{Token: "ta", User: "{}"}))

	rec, err := b.Load(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Empty())
}
