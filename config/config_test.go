package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.HTTPAddress)
	assert.Equal(t, []string{"wizard", "explorer", "hero", "ruler"}, cfg.Game.Sprites)
	assert.Equal(t, "lobby", cfg.Game.LobbyScene)
	assert.Equal(t, 6, cfg.Game.CodeLength)
	assert.Equal(t, 60*time.Second, cfg.Server.PongWait)
	assert.Equal(t, "none", cfg.Database.Driver)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http_address: ":9999"
game:
  sprites: [knight, mage]
  lobby_scene: hub
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddress)
	assert.Equal(t, []string{"knight", "mage"}, cfg.Game.Sprites)
	assert.Equal(t, "hub", cfg.Game.LobbyScene)
	assert.Equal(t, "down", cfg.Game.DefaultDirection)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ROOMSERVER_SERVER_HTTP_ADDRESS", ":4242")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ":4242", cfg.Server.HTTPAddress)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty catalog":     func(c *Config) { c.Game.Sprites = nil },
		"duplicate sprite":  func(c *Config) { c.Game.Sprites = []string{"a", "a"} },
		"zero code length":  func(c *Config) { c.Game.CodeLength = 0 },
		"repeated alphabet": func(c *Config) { c.Game.CodeAlphabet = "AAB" },
		"empty lobby":       func(c *Config) { c.Game.LobbyScene = "" },
		"unknown direction": func(c *Config) { c.Game.DefaultDirection = "south" },
		"empty direction":   func(c *Config) { c.Game.DefaultDirection = "" },
		"unknown driver":    func(c *Config) { c.Database.Driver = "mysql" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoadConfig_RejectsBadDirection(t *testing.T) {
	dir := t.TempDir()
	yaml := "game:\n  default_direction: south\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "default_direction")
}
