package container

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe-be/internal/config"
	"vibe-be/internal/service"
	"vibe-be/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:          "test",
		AuthJWTSecret:        "test-secret",
		MaxActionsPerSession: 50,
		SessionTTL:           24 * time.Hour,
		RateLimitMaxRequests: 10,
		RateLimitWindow:      time.Minute,
		SweepSchedule:        "@every 10m",
	}
}

func TestNew_WithoutBackingServices(t *testing.T) {
	c, err := New(context.Background(), testConfig(), logger.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.False(t, c.HasRedis())
	assert.False(t, c.HasDB())
	assert.Nil(t, c.GetRedisClient())
	assert.Nil(t, c.GetDB())

	require.NotNil(t, c.Services)
	assert.NotNil(t, c.Services.Auth)
	assert.NotNil(t, c.Services.Actions)
	assert.NotNil(t, c.Services.Reconcile)
	assert.NotNil(t, c.Services.Sweeper)
}

func TestNew_WithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := testConfig()
	cfg.Environment = "production"
	cfg.RedisURL = "redis://" + mr.Addr()

	c, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.True(t, c.HasRedis())
	assert.Equal(t, "prod", c.RedisClient.KeyBuilder.GetPrefix())
}

func TestNew_WithUnreachableRedis(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"

	// Container creation succeeds; the limiter falls back to memory
	c, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.False(t, c.HasRedis())
	assert.NotNil(t, c.Services.Actions)
}

func TestContainer_Getters(t *testing.T) {
	cfg := testConfig()
	log := logger.NewNop()

	c, err := New(context.Background(), cfg, log)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, cfg, c.GetConfig())
	assert.Equal(t, log, c.GetLogger())

	assert.Implements(t, (*service.AuthService)(nil), c.GetAuthService())
	assert.Implements(t, (*service.AnonymousActionService)(nil), c.GetActionService())
	assert.Implements(t, (*service.ReconcileService)(nil), c.GetReconcileService())
	assert.Implements(t, (*service.SweeperService)(nil), c.GetSweeperService())
}
