package cms

import (
	"mime"
	"net/http"
	"regexp"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

// DecoratorConfig lists the routes and URIs that are never decorated.
type DecoratorConfig struct {
	IgnoreRoutes        []string `mapstructure:"ignore_routes"`
	IgnoreRoutePatterns []string `mapstructure:"ignore_route_patterns"`
	IgnoreURIPatterns   []string `mapstructure:"ignore_uri_patterns"`
}

// DefaultDecoratorConfig skips admin and underscore-prefixed routes and the
// /admin/ and /api/ URI trees.
func DefaultDecoratorConfig() DecoratorConfig {
	return DecoratorConfig{
		IgnoreRoutePatterns: []string{`^(.*)admin(.*)`, `^_(.*)`},
		IgnoreURIPatterns:   []string{`^/admin/`, `^/api/`},
	}
}

// DecisionStrategy decides whether a response gets page chrome. Patterns
// are compiled once; IsDecorable never fails.
type DecisionStrategy struct {
	ignoreRoutes        map[string]bool
	ignoreRoutePatterns []*regexp.Regexp
	ignoreURIPatterns   []*regexp.Regexp
}

func NewDecisionStrategy(cfg DecoratorConfig) (*DecisionStrategy, error) {
	d := &DecisionStrategy{ignoreRoutes: make(map[string]bool, len(cfg.IgnoreRoutes))}
	for _, r := range cfg.IgnoreRoutes {
		d.ignoreRoutes[r] = true
	}

	var err error
	if d.ignoreRoutePatterns, err = compileAll(cfg.IgnoreRoutePatterns); err != nil {
		return nil, err
	}
	if d.ignoreURIPatterns, err = compileAll(cfg.IgnoreURIPatterns); err != nil {
		return nil, err
	}
	return d, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, cmserrors.Configuration("invalid decorator pattern %q: %v", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// IsDecorable reports whether resp to r should be wrapped in the page
// template.
func (d *DecisionStrategy) IsDecorable(r *http.Request, kind RequestKind, resp *rendering.Response) bool {
	if kind != MasterRequest || resp == nil {
		return false
	}

	if ct := resp.ContentType(); ct != "" && !isHTML(ct) {
		return false
	}

	if resp.StatusCode != http.StatusOK {
		return false
	}

	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}

	if !d.IsRouteDecorable(RouteNameFrom(r.Context())) {
		return false
	}

	return !d.IsURIIgnored(r.URL.Path)
}

// isHTML reports whether the media type of contentType is exactly text/html.
func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}

// IsRouteDecorable reports whether a route name passes the route deny lists.
// Empty names are never decorable.
func (d *DecisionStrategy) IsRouteDecorable(name string) bool {
	if name == "" || d.ignoreRoutes[name] {
		return false
	}
	return !matchesAny(d.ignoreRoutePatterns, name)
}

// IsURIIgnored reports whether path matches an ignored URI pattern.
func (d *DecisionStrategy) IsURIIgnored(path string) bool {
	return matchesAny(d.ignoreURIPatterns, path)
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
