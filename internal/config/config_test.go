package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskstream/internal/constants"
	"deskstream/internal/security"
	"deskstream/internal/types"
)

// unsetAfter removes variables a Loader may have copied from a .env file.
func unsetAfter(t *testing.T, keys ...string) {
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func writeEnv(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.env")).Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.BindAddress)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "current", cfg.Resolution)
	assert.Equal(t, 30.0, cfg.FPS)
	assert.True(t, cfg.DisplayCursor)
	assert.Equal(t, 75, cfg.JPEGQuality)
	assert.Equal(t, constants.DefaultMaxClients, cfg.MaxClients)
	assert.Equal(t, constants.MaxConnectionsPerIP, cfg.MaxConnPerIP)
	assert.Equal(t, constants.MaxAuthAttempts, cfg.MaxAuthAttempts)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "deskstream:events", cfg.RedisChannel)
	assert.Empty(t, cfg.DashboardAddr())
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvFileBelowProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeEnv(t, path, "DESKSTREAM_PORT=7000\nDESKSTREAM_FPS=12.5\nDESKSTREAM_RESOLUTION=720p\nDESKSTREAM_JPEG_QUALITY=60\nDESKSTREAM_TEST_PATTERN=true\n")
	unsetAfter(t, "DESKSTREAM_FPS", "DESKSTREAM_RESOLUTION", "DESKSTREAM_JPEG_QUALITY", "DESKSTREAM_TEST_PATTERN")
	t.Setenv("DESKSTREAM_PORT", "9000")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 12.5, cfg.FPS)

	sc, err := cfg.StreamConfig()
	require.NoError(t, err)
	assert.Equal(t, types.ResolutionHD, sc.Resolution)
	assert.Equal(t, 80*time.Millisecond, sc.FrameRate.Interval())
	assert.Equal(t, 60, sc.JPEGQuality)
	assert.True(t, sc.TestPattern)
	assert.Equal(t, 0, sc.Display)
}

func TestLoad_ReloadForgetsRemovedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeEnv(t, path, "DESKSTREAM_FPS=5\n")
	unsetAfter(t, "DESKSTREAM_FPS")

	l := NewLoader(path)
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.FPS)

	writeEnv(t, path, "DESKSTREAM_FPS=15\n")
	cfg, err = l.Load()
	require.NoError(t, err)
	assert.Equal(t, 15.0, cfg.FPS)

	writeEnv(t, path, "\n")
	cfg, err = l.Load()
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.FPS)
}

func TestLoad_RejectsMalformedNumbers(t *testing.T) {
	t.Setenv("DESKSTREAM_PORT", "eighty")

	_, err := NewLoader("").Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{BindAddress: "127.0.0.1", Port: 8080, Resolution: "current", FPS: 30, JPEGQuality: 75}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero fps", func(c *Config) { c.FPS = 0 }, types.ErrInvalidFrameRate},
		{"negative fps", func(c *Config) { c.FPS = -1 }, types.ErrInvalidFrameRate},
		{"unknown resolution", func(c *Config) { c.Resolution = "8k" }, types.ErrUnknownResolution},
		{"port too large", func(c *Config) { c.Port = 65536 }, security.ErrInvalidPort},
		{"bad bind address", func(c *Config) { c.BindAddress = "example.com" }, security.ErrInvalidAddress},
		{"quality", func(c *Config) { c.JPEGQuality = 0 }, ErrInvalidQuality},
		{"dashboard port", func(c *Config) { c.DashboardPort = -2 }, security.ErrInvalidPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, base().Validate())
}

func TestDashboardAddr(t *testing.T) {
	cfg := &Config{DashboardPort: 4040}
	assert.Equal(t, "127.0.0.1:4040", cfg.DashboardAddr())
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeEnv(t, path, "DESKSTREAM_FPS=5\n")
	unsetAfter(t, "DESKSTREAM_FPS")

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- l.Watch(ctx, func(cfg *Config, err error) {
			if err == nil {
				got <- cfg
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeEnv(t, path, "DESKSTREAM_FPS=24\n")

	select {
	case cfg := <-got:
		assert.Equal(t, 24.0, cfg.FPS)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after .env change")
	}

	cancel()
	select {
	case err := <-watchDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
