package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/nexcell-pos/nexcell-pos/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	require.Equal(t, 5, cfg.WorkerConcurrency)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestInTestModeSetByGuard(t *testing.T) {
	// The guard import forces NEXCELL_TEST_MODE=1 for the whole test binary.
	RefreshTestMode()
	require.True(t, InTestMode())
}
