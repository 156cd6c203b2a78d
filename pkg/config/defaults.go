package config

import "time"

// defaults holds every key the loader knows. Environment variables only
// override keys listed here.
var defaults = map[string]any{
	"server.port":          "8080",
	"server.read_timeout":  15 * time.Second,
	"server.write_timeout": 15 * time.Second,
	"server.idle_timeout":  60 * time.Second,
	"server.cors_origins":  []string{"*"},
	"server.mode":          "release",

	"database.driver":               "sqlite3",
	"database.path":                 "cms.db",
	"database.url":                  "",
	"database.auth_token":           "",
	"database.max_open_conns":       10,
	"database.max_idle_conns":       3,
	"database.conn_max_lifetime":    30 * time.Minute,
	"database.conn_max_idle_time":   3 * time.Minute,
	"database.slow_query_threshold": 500 * time.Millisecond,

	"cms.debug":            false,
	"cms.route_marker":     "page_slug",
	"cms.default_template": "default.html",
	"cms.default_layout":   "_default",
	"cms.templates_dir":    "templates",
	"cms.watch_templates":  false,
	"cms.error_pages": map[string]string{
		"404": "_page_internal_error_not_found",
		"500": "_page_internal_error_fatal",
	},
	"cms.decorator.ignore_routes":         []string{},
	"cms.decorator.ignore_route_patterns": []string{`^(.*)admin(.*)`, `^_(.*)`},
	"cms.decorator.ignore_uri_patterns":   []string{`^/admin/`, `^/api/`},

	"cache.bindings": []map[string]any{
		{"block_type": "cms.container", "backend": "noop"},
		{"block_type": "cms.text", "backend": "fragments"},
		{"block_type": "cms.template", "backend": "fragments"},
	},
	"cache.fragment_ttl":               time.Hour,
	"cache.memory.default_ttl":         10 * time.Minute,
	"cache.memory.cleanup_interval":    5 * time.Minute,
	"cache.shared.capacity":            10000,
	"cache.shared.num_shards":          10,
	"cache.shared.ttl":                 time.Hour,
	"cache.shared.eviction_percentage": 10,
	"cache.shared.eviction_interval":   time.Minute,
	"cache.purge_schedule":             "*/5 * * * *",
	"cache.purge_verbose":              false,

	"auth.jwt_secret":          "",
	"auth.admin_password_hash": "",
	"auth.token_ttl":           24 * time.Hour,

	"logging.level":     "info",
	"logging.json":      true,
	"logging.to_file":   false,
	"logging.directory": "logs",

	"tracing.exporter":     "none",
	"tracing.endpoint":     "localhost:4317",
	"tracing.insecure":     true,
	"tracing.service_name": "tractstack-cms",
}
