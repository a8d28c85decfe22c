package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinyoro/market-service/internal/config"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

func newTestKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(&config.RedisConfig{Address: mr.Addr()}, logger.NewNop())
	require.NoError(t, err)
	kv := NewRedisKV(client, "market:", logger.NewNop())
	t.Cleanup(func() { kv.Close() })
	return kv, mr
}

func TestRedisKV_LoadMissingKey(t *testing.T) {
	kv, _ := newTestKV(t)

	data, err := kv.Load(context.Background(), "sinyoro_market_items")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisKV_SaveUsesPrefixAndNoTTL(t *testing.T) {
	kv, mr := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Save(ctx, "sinyoro_market_items", []byte(`[]`)))

	raw, err := mr.Get("market:sinyoro_market_items")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)
	assert.Zero(t, mr.TTL("market:sinyoro_market_items"))

	data, err := kv.Load(ctx, "sinyoro_market_items")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), data)
}

func TestRedisKV_ServerDown(t *testing.T) {
	kv, mr := newTestKV(t)
	mr.Close()

	_, err := kv.Load(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, kv.Save(context.Background(), "k", []byte("v")))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(&config.RedisConfig{Address: addr}, logger.NewNop())
	assert.Error(t, err)
}
