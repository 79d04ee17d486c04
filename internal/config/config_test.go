package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	body := `
[server]
name = "test-realm"

[engine]
tick_rate = "50ms"
visibility_range = 12

[rate_limit]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden values take effect.
	require.Equal(t, "test-realm", cfg.Server.Name)
	require.Equal(t, 50*time.Millisecond, cfg.Engine.TickRate)
	require.Equal(t, int32(12), cfg.Engine.VisibilityRange)
	require.False(t, cfg.RateLimit.Enabled)

	// Untouched sections keep their defaults.
	require.Equal(t, "0.0.0.0:7001", cfg.Network.BindAddress)
	require.Equal(t, 256, cfg.Network.OutQueueSize)
	require.Equal(t, 1500, cfg.Engine.SaveIntervalTicks)
	require.Equal(t, 6, cfg.Character.DefaultSlots)
	require.NotZero(t, cfg.Server.StartTime)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
