package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": 8080}}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, DefaultUser, cfg.DefaultUser)
	assert.Len(t, cfg.Models, 2)
	assert.Len(t, cfg.Apps, 2)
	assert.Equal(t, DefaultImagePrompt, cfg.Stream.ImagePrompt)
}

func TestLoadFileModelsAndApps(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"driver": "memory"},
		"models": [{"id": "m1", "server_url": "http://llm:8000", "model_name": "tiny"}],
		"apps": [{"id": "a1", "name": "Helper", "prompt": "Be helpful."}]
	}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	require.Len(t, cfg.Models, 1)
	assert.Equal(t, DefaultAPIPath, cfg.Models[0].APIPath)

	m, ok := cfg.Model("m1")
	assert.True(t, ok)
	assert.Equal(t, "tiny", m.ModelName)
	assert.Equal(t, "m1", cfg.DefaultModel().ID)

	a, ok := cfg.App("a1")
	assert.True(t, ok)
	assert.Equal(t, "Be helpful.", a.Prompt)

	_, ok = cfg.App("missing")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "no models",
			mutate:  func(c *Config) { c.Models = nil },
			wantErr: "at least one model",
		},
		{
			name: "duplicate model",
			mutate: func(c *Config) {
				c.Models = append(c.Models, c.Models[0])
			},
			wantErr: "duplicate model id",
		},
		{
			name:    "empty app id",
			mutate:  func(c *Config) { c.Apps[0].ID = "" },
			wantErr: "app id must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6543")

	cfg := createDefaultConfig()
	loadEnvOverrides(cfg)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
}
