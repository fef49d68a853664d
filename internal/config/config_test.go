package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptlyprinted/forge/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		// Clear environment
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify defaults
		require.Equal(t, 8080, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 180, cfg.Server.WriteTimeout)
		require.Equal(t, "https://api.together.xyz/v1", cfg.Together.BaseURL)
		require.Equal(t, 120, cfg.Together.Timeout)
		require.Empty(t, cfg.Together.APIKey)
		require.Equal(t, "localhost:6379", cfg.Redis.Addr)
		require.Equal(t, 3, cfg.Quota.FreeLimit)
		require.Equal(t, 24, cfg.Quota.WindowHours)
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		// Set environment variables using t.Setenv for automatic cleanup
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("TOGETHER_API_KEY", "tk-test-key")
		t.Setenv("TOGETHER_BASE_URL", "https://test.together.xyz/v1")
		t.Setenv("TOGETHER_TIMEOUT", "60")
		t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
		t.Setenv("REDIS_ADDR", "redis:6380")
		t.Setenv("GUEST_FREE_LIMIT", "5")
		t.Setenv("GUEST_WINDOW_HOURS", "12")

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify loaded values
		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, "tk-test-key", cfg.Together.APIKey)
		require.Equal(t, "https://test.together.xyz/v1", cfg.Together.BaseURL)
		require.Equal(t, 60, cfg.Together.Timeout)
		require.Equal(t, "postgres://test:test@db:5432/test", cfg.Postgres.URL)
		require.Equal(t, "redis:6380", cfg.Redis.Addr)
		require.Equal(t, 5, cfg.Quota.FreeLimit)
		require.Equal(t, 12, cfg.Quota.WindowHours)
	})
}
