package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.False(t, cfg.CMS.Debug)
	assert.Equal(t, "page_slug", cfg.CMS.RouteMarker)
	backend, ok := cfg.Cache.Backend("cms.container")
	require.True(t, ok)
	assert.Equal(t, "noop", backend)
	assert.Equal(t, time.Hour, cfg.Cache.FragmentTTL)
	assert.Equal(t, []string{`^/admin/`, `^/api/`}, cfg.CMS.Decorator.IgnoreURIPatterns)

	pages, err := cfg.CMS.ErrorPageRoutes()
	require.NoError(t, err)
	assert.Equal(t, "_page_internal_error_not_found", pages[404])
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
cms:
  debug: false
  default_template: "base.html"
cache:
  bindings:
    - block_type: cms.text
      backend: memory
  shared:
    capacity: 500
`), 0o644))

	t.Setenv("CMS_CMS_DEBUG", "true")
	t.Setenv("CMS_DATABASE_PATH", filepath.Join(dir, "test.db"))
	t.Setenv("CMS_CACHE_FRAGMENT_TTL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.CMS.Debug)
	assert.Equal(t, "base.html", cfg.CMS.DefaultTemplate)
	assert.Equal(t, filepath.Join(dir, "test.db"), cfg.Database.Path)
	assert.Equal(t, 90*time.Second, cfg.Cache.FragmentTTL)
	require.Len(t, cfg.Cache.Bindings, 1)
	backend, _ := cfg.Cache.Backend("cms.text")
	assert.Equal(t, "memory", backend)
	assert.Equal(t, 500, cfg.Cache.Shared.Capacity)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "unsupported database driver"},
		{"libsql without url", func(c *Config) { c.Database.Driver = "libsql" }, "database.url"},
		{"unknown backend", func(c *Config) { c.Cache.Bindings = []CacheBinding{{BlockType: "cms.text", Backend: "redis"}} }, "unknown cache backend"},
		{"bad exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, "tracing exporter"},
		{"bad status", func(c *Config) { c.CMS.ErrorPages = map[string]string{"abc": "x"} }, "error page status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MustDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "CMS_CACHE_SHARED_TTL", EnvName("cache.shared.ttl"))
}
