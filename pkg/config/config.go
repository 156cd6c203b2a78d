// Package config provides centralized configuration for the CMS server.
package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config is the fully resolved server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	CMS      CMSConfig      `mapstructure:"cms"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	Mode         string        `mapstructure:"mode"`
}

// DatabaseConfig selects the store driver. "sqlite3" opens Path; "libsql"
// opens URL with AuthToken.
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	URL                string        `mapstructure:"url"`
	AuthToken          string        `mapstructure:"auth_token"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
}

type CMSConfig struct {
	Debug           bool              `mapstructure:"debug"`
	RouteMarker     string            `mapstructure:"route_marker"`
	DefaultTemplate string            `mapstructure:"default_template"`
	DefaultLayout   string            `mapstructure:"default_layout"`
	TemplatesDir    string            `mapstructure:"templates_dir"`
	WatchTemplates  bool              `mapstructure:"watch_templates"`
	ErrorPages      map[string]string `mapstructure:"error_pages"`
	Decorator       DecoratorConfig   `mapstructure:"decorator"`
}

type DecoratorConfig struct {
	IgnoreRoutes        []string `mapstructure:"ignore_routes"`
	IgnoreRoutePatterns []string `mapstructure:"ignore_route_patterns"`
	IgnoreURIPatterns   []string `mapstructure:"ignore_uri_patterns"`
}

// CacheConfig binds block types to backends and sizes the backends.
type CacheConfig struct {
	Bindings      []CacheBinding    `mapstructure:"bindings"`
	FragmentTTL   time.Duration     `mapstructure:"fragment_ttl"`
	Memory        MemoryCacheConfig `mapstructure:"memory"`
	Shared        SharedCacheConfig `mapstructure:"shared"`
	PurgeSchedule string            `mapstructure:"purge_schedule"`
	PurgeVerbose  bool              `mapstructure:"purge_verbose"`
}

// CacheBinding names the backend ("fragments", "memory", "shared" or "noop")
// serving one block type. Block types contain dots, so bindings are a list
// rather than a map keyed by type.
type CacheBinding struct {
	BlockType string `mapstructure:"block_type"`
	Backend   string `mapstructure:"backend"`
}

// Backend returns the backend bound to blockType.
func (c CacheConfig) Backend(blockType string) (string, bool) {
	for _, b := range c.Bindings {
		if b.BlockType == blockType {
			return b.Backend, true
		}
	}
	return "", false
}

type MemoryCacheConfig struct {
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type SharedCacheConfig struct {
	Capacity           int           `mapstructure:"capacity"`
	NumShards          int           `mapstructure:"num_shards"`
	TTL                time.Duration `mapstructure:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval"`
}

type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level         string            `mapstructure:"level"`
	JSON          bool              `mapstructure:"json"`
	ToFile        bool              `mapstructure:"to_file"`
	Directory     string            `mapstructure:"directory"`
	ChannelLevels map[string]string `mapstructure:"channel_levels"`
}

// TracingConfig picks the span exporter: "none", "stdout" or "otlp".
type TracingConfig struct {
	Exporter    string `mapstructure:"exporter"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

// ErrorPageRoutes converts the configured error page map to status codes.
func (c CMSConfig) ErrorPageRoutes() (map[int]string, error) {
	out := make(map[int]string, len(c.ErrorPages))
	for status, route := range c.ErrorPages {
		code, err := strconv.Atoi(status)
		if err != nil || code < 100 || code > 599 {
			return nil, fmt.Errorf("invalid error page status %q", status)
		}
		out[code] = route
	}
	return out, nil
}

// Validate reports configuration that would prevent the server from starting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite3 driver")
		}
	case "libsql":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the libsql driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.Tracing.Exporter)
	}

	for _, b := range c.Cache.Bindings {
		if b.BlockType == "" {
			return fmt.Errorf("cache binding without block_type")
		}
		switch b.Backend {
		case "fragments", "memory", "shared", "noop":
		default:
			return fmt.Errorf("block type %s bound to unknown cache backend %q", b.BlockType, b.Backend)
		}
	}

	if _, err := c.CMS.ErrorPageRoutes(); err != nil {
		return err
	}
	return nil
}
