// Package templates renders page layouts with html/template. Template codes
// are file paths relative to the templates directory.
package templates

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// DefaultLayoutCode is always available, even without a templates directory.
const DefaultLayoutCode = "_default"

const defaultLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ with .page }}{{ .Name }}{{ else }}{{ with .site }}{{ .Name }}{{ end }}{{ end }}</title>
</head>
<body>
{{ .content }}
</body>
</html>
`

// partialsDir holds templates shared by every layout, defined with
// {{ define "name" }}.
const partialsDir = "_partials"

var funcs = template.FuncMap{
	"raw": func(s string) template.HTML { return template.HTML(s) },
	"default": func(def, v any) any {
		if v == nil || v == "" {
			return def
		}
		return v
	},
}

// ReloadHook is called after a reload with the codes whose source changed,
// including added and removed ones.
type ReloadHook func(ctx context.Context, codes []string)

// Engine holds the parsed layouts. It is safe for concurrent use; Load
// swaps the whole set atomically.
type Engine struct {
	dir    string
	logger *logging.ChanneledLogger

	mu      sync.RWMutex
	layouts map[string]*template.Template
	// sources holds each layout's text with its partials, compared on reload
	sources map[string]string
	hooks   []ReloadHook
}

// NewEngine creates an engine for dir and loads it. An empty dir or a
// missing directory leaves only the built-in default layout.
func NewEngine(dir string, logger *logging.ChanneledLogger) (*Engine, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	e := &Engine{dir: dir, logger: logger}
	if err := e.Load(); err != nil {
		return nil, err
	}
	return e, nil
}

// Load parses every *.html file under the templates directory.
func (e *Engine) Load() error {
	builtin, err := template.New(DefaultLayoutCode).Funcs(funcs).Parse(defaultLayout)
	if err != nil {
		return fmt.Errorf("failed to parse default layout: %w", err)
	}
	layouts := map[string]*template.Template{DefaultLayoutCode: builtin}
	sources := map[string]string{DefaultLayoutCode: defaultLayout}

	if e.dir == "" {
		e.swap(layouts, sources)
		return nil
	}
	if _, err := os.Stat(e.dir); os.IsNotExist(err) {
		e.logger.Render().Warn("Templates directory not found, using built-in layout only", "dir", e.dir)
		e.swap(layouts, sources)
		return nil
	}

	partials, codes, err := e.scan()
	if err != nil {
		return err
	}

	partialNames := make([]string, 0, len(partials))
	for name := range partials {
		partialNames = append(partialNames, name)
	}
	sort.Strings(partialNames)
	var shared strings.Builder
	for _, name := range partialNames {
		shared.WriteString(name + "\n" + partials[name] + "\n")
	}

	for _, code := range codes {
		tmpl := template.New(code).Funcs(funcs)
		for _, name := range partialNames {
			if _, err := tmpl.New(name).Parse(partials[name]); err != nil {
				return cmserrors.Configuration("failed to parse partial %s: %v", name, err)
			}
		}
		body, err := os.ReadFile(filepath.Join(e.dir, filepath.FromSlash(code)))
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", code, err)
		}
		if _, err := tmpl.Parse(string(body)); err != nil {
			return cmserrors.Configuration("failed to parse template %s: %v", code, err)
		}
		layouts[code] = tmpl
		sources[code] = shared.String() + string(body)
	}

	e.swap(layouts, sources)
	e.logger.Render().Info("Templates loaded", "dir", e.dir, "count", len(codes), "partials", len(partials))
	return nil
}

// scan returns the partial sources keyed by relative path and the sorted
// layout codes.
func (e *Engine) scan() (partials map[string]string, codes []string, err error) {
	partials = make(map[string]string)
	err = filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(e.dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, partialsDir+"/") {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			partials[rel] = string(src)
		} else {
			codes = append(codes, rel)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan templates directory %s: %w", e.dir, err)
	}
	sort.Strings(codes)
	return partials, codes, nil
}

func (e *Engine) swap(layouts map[string]*template.Template, sources map[string]string) {
	e.mu.Lock()
	e.layouts = layouts
	e.sources = sources
	e.mu.Unlock()
}

// OnReload registers fn to run after every Reload that changed a template.
func (e *Engine) OnReload(fn ReloadHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Reload loads the templates again and returns the codes whose source
// changed. Registered hooks receive the same codes. On error the previous
// set stays active and no hook runs.
func (e *Engine) Reload(ctx context.Context) ([]string, error) {
	e.mu.RLock()
	before := e.sources
	e.mu.RUnlock()

	if err := e.Load(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	changed := changedCodes(before, e.sources)
	hooks := append([]ReloadHook(nil), e.hooks...)
	e.mu.RUnlock()

	if len(changed) == 0 {
		return nil, nil
	}
	for _, fn := range hooks {
		fn(ctx, changed)
	}
	return changed, nil
}

func changedCodes(before, after map[string]string) []string {
	var out []string
	for code, src := range after {
		if prev, ok := before[code]; !ok || prev != src {
			out = append(out, code)
		}
	}
	for code := range before {
		if _, ok := after[code]; !ok {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// Dir returns the templates directory.
func (e *Engine) Dir() string { return e.dir }

// Codes lists the loaded template codes.
func (e *Engine) Codes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.layouts))
	for code := range e.layouts {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Has reports whether code is loaded.
func (e *Engine) Has(code string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.layouts[code]
	return ok
}

// Render executes the template code with params.
func (e *Engine) Render(code string, params map[string]any) (string, error) {
	e.mu.RLock()
	tmpl, ok := e.layouts[code]
	e.mu.RUnlock()
	if !ok {
		return "", cmserrors.Configuration("unknown template %q", code)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, code, params); err != nil {
		return "", cmserrors.Render(err, "failed to execute template %s", code)
	}
	return buf.String(), nil
}

// RenderIntoResponse renders code into resp's body, keeping its status and
// headers. A response without a content type becomes text/html.
func (e *Engine) RenderIntoResponse(code string, params map[string]any, resp *rendering.Response) (*rendering.Response, error) {
	body, err := e.Render(code, params)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = rendering.NewResponse()
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	if resp.ContentType() == "" {
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	}
	resp.Body = body
	return resp, nil
}
