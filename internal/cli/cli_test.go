package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskstream/internal/config"
	"deskstream/internal/constants"
)

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	require.NoError(t, serveCmd.ParseFlags([]string{
		"--port", "9000",
		"-r", "hd",
		"--cursor=false",
		"--send-timeout", "3s",
		"--max-auth-attempts", "2",
	}))
	t.Cleanup(func() {
		for _, name := range []string{"port", "resolution", "cursor", "send-timeout", "max-auth-attempts"} {
			serveCmd.Flags().Lookup(name).Changed = false
		}
	})

	cfg := &config.Config{
		BindAddress:   "0.0.0.0",
		Port:          8080,
		Resolution:    "current",
		FPS:           12,
		DisplayCursor: true,
		SendTimeout:   constants.SendTimeout,
		MaxConnPerIP:  constants.MaxConnectionsPerIP,
	}
	applyFlags(serveCmd, cfg)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "hd", cfg.Resolution)
	assert.False(t, cfg.DisplayCursor)
	assert.Equal(t, 3*time.Second, cfg.SendTimeout)
	assert.Equal(t, 2, cfg.MaxAuthAttempts)

	// untouched flags keep the loaded values
	assert.Equal(t, "0.0.0.0", cfg.BindAddress)
	assert.Equal(t, 12.0, cfg.FPS)
	assert.Equal(t, constants.MaxConnectionsPerIP, cfg.MaxConnPerIP)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), constants.Version)
	assert.Contains(t, out.String(), constants.AppName)
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["version"])
	assert.Equal(t, constants.Version, rootCmd.Version)
	assert.NotNil(t, rootCmd.Flags().Lookup("pick-resolution"))
}
