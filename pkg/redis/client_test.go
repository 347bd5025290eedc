package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		expectError bool
	}{
		{
			name:        "invalid URL",
			url:         "invalid://url",
			expectError: true,
		},
		{
			name:        "empty URL",
			url:         "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", zap.NewNop())
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func TestClient_GetSet(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	err := client.Set(ctx, "test:key1", "value1", time.Minute)
	require.NoError(t, err)

	value, err := client.Get(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", value)

	_, err = client.Get(ctx, "test:missing")
	assert.Error(t, err)
}

func TestClient_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	mr.Set("test:key1", "value1")

	err := client.Delete(ctx, "test:key1")
	require.NoError(t, err)

	n, err := client.Exists(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestClient_SortedSetOps(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	key := "test:window"

	require.NoError(t, client.ZAdd(ctx, key, 100, "a"))
	require.NoError(t, client.ZAdd(ctx, key, 200, "b"))
	require.NoError(t, client.ZAdd(ctx, key, 300, "c"))

	n, err := client.ZCard(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	zs, err := client.ZRangeWithScores(ctx, key, 0, 0)
	require.NoError(t, err)
	require.Len(t, zs, 1)
	assert.Equal(t, float64(100), zs[0].Score)

	// Drop everything scored at or below 200
	require.NoError(t, client.ZRemRangeByScore(ctx, key, "-inf", "200"))

	n, err = client.ZCard(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClient_Expire(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	mr.Set("test:key1", "value1")

	err := client.Expire(ctx, "test:key1", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	n, err := client.Exists(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestClient_Health(t *testing.T) {
	_, client := setupTestRedis(t)
	assert.NoError(t, client.Health(context.Background()))
}
