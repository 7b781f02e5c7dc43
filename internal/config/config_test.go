package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
supabase:
  url: https://example.supabase.co
  key: service-key
  folders_table: my_folders
engine:
  remote_timeout: 5s
  page_size: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Production, cfg.Environment)
	assert.Equal(t, "https://example.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "my_folders", cfg.Supabase.FoldersTable)
	assert.Equal(t, "items", cfg.Supabase.ItemsTable)
	assert.Equal(t, 5*time.Second, cfg.Engine.RemoteTimeout)
	assert.Equal(t, 50, cfg.Engine.PageSize)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOOM_SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("LOOM_SUPABASE_KEY", "anon-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, "folders", cfg.Supabase.FoldersTable)
	assert.Equal(t, "items", cfg.Supabase.ItemsTable)
	assert.Equal(t, 10*time.Second, cfg.Engine.RemoteTimeout)
	assert.Equal(t, 30, cfg.Engine.PageSize)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	t.Setenv("LOOM_SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("LOOM_SUPABASE_KEY", "anon-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Development, cfg.Environment)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
environment: development
supabase:
  url: https://file.supabase.co
  key: file-key
engine:
  page_size: 20
`)
	t.Setenv("LOOM_ENVIRONMENT", "production")
	t.Setenv("LOOM_SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("LOOM_PAGE_SIZE", "40")
	t.Setenv("LOOM_REMOTE_TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Production, cfg.Environment)
	assert.Equal(t, "https://env.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "file-key", cfg.Supabase.Key)
	assert.Equal(t, 40, cfg.Engine.PageSize)
	assert.Equal(t, 3*time.Second, cfg.Engine.RemoteTimeout)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "environment: [not\n  closed")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: Development,
			Supabase: SupabaseConfig{
				URL: "https://example.supabase.co",
				Key: "anon-key",
			},
			Engine: EngineConfig{
				RemoteTimeout: 10 * time.Second,
				PageSize:      30,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"missing url", func(c *Config) { c.Supabase.URL = "" }, "supabase url is required"},
		{"missing key", func(c *Config) { c.Supabase.Key = "" }, "supabase key is required"},
		{"page size too large", func(c *Config) { c.Engine.PageSize = 101 }, "page size"},
		{"page size zero", func(c *Config) { c.Engine.PageSize = 0 }, "page size"},
		{"timeout too short", func(c *Config) { c.Engine.RemoteTimeout = 100 * time.Millisecond }, "remote timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
