package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aahar/internal/config"
	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/models"
)

type testStruct struct {
	Name      string
	Trimester int
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Trimester: 2}
	err := cache.Set(ctx, "user:1", expected, time.Minute)
	require.NoError(t, err)

	var actual testStruct
	found, err := cache.Get(ctx, "user:1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	err := cache.Set(ctx, "key", "value", time.Minute)
	require.NoError(t, err)

	err = cache.Invalidate(ctx, "key")
	require.NoError(t, err)

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	err := cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err()
	require.NoError(t, err)

	var out testStruct
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestSetExpires(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "otp", "hash", time.Minute))
	mr.FastForward(2 * time.Minute)

	var out string
	found, err := cache.Get(ctx, "otp", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadWriteDelete(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	_, found, err := cache.Read(ctx, "aahar_premium_a@x.com")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Write(ctx, "aahar_premium_a@x.com", "true"))
	require.NoError(t, cache.Write(ctx, "aahar_subscription_a@x.com", "{}"))

	val, found, err := cache.Read(ctx, "aahar_premium_a@x.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "true", val)

	require.NoError(t, cache.Delete(ctx, "aahar_premium_a@x.com", "aahar_subscription_a@x.com", "missing"))
	_, found, err = cache.Read(ctx, "aahar_subscription_a@x.com")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Delete(ctx))
}

func TestAllow(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	for i := range 3 {
		ok, err := cache.Allow(ctx, "otp_send:a@x.com", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := cache.Allow(ctx, "otp_send:a@x.com", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = cache.Allow(ctx, "otp_send:a@x.com", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreUnavailable(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()
	mr.Close()

	_, _, err := cache.Read(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, cache.Write(ctx, "k", "v"))
}

func TestManagerOverRedis(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mgr := entitlement.NewManager(cache, log)
	_, err := mgr.SetStatus(ctx, "a@x.com", true, models.SubscriptionPremiumMonthly)
	require.NoError(t, err)

	// второй экземпляр видит ту же запись
	other := entitlement.NewManager(New(cache.Db), log)
	status, err := other.GetStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, status)

	mr.Close()
	_, err = other.GetStatus(ctx, "a@x.com")
	assert.ErrorIs(t, err, entitlement.ErrStorageUnavailable)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:9999",
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
