package cms

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/blocks"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/backends"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

type memPages struct {
	mu       sync.Mutex
	pages    map[int64]*content.Page
	nextID   int64
	template string
	creates  int
	err      error
}

func newMemPages(defaultTemplate string) *memPages {
	return &memPages{pages: make(map[int64]*content.Page), template: defaultTemplate}
}

func (r *memPages) add(p *content.Page) *content.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.pages[p.ID] = p
	return p
}

// copies keep tests honest about the manager's own caching
func clonePage(p *content.Page) *content.Page {
	cp := *p
	cp.Blocks = nil
	return &cp
}

func (r *memPages) FindBySlug(_ context.Context, siteID int64, slug string) (*content.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, p := range r.pages {
		if p.SiteID == siteID && p.Slug == slug {
			return clonePage(p), nil
		}
	}
	return nil, nil
}

func (r *memPages) FindByRouteName(_ context.Context, siteID int64, name string) (*content.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, p := range r.pages {
		if p.SiteID == siteID && p.RouteName == name {
			return clonePage(p), nil
		}
	}
	return nil, nil
}

func (r *memPages) FindByID(_ context.Context, id int64) (*content.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pages[id]; ok {
		return clonePage(p), nil
	}
	return nil, nil
}

func (r *memPages) FindAll(_ context.Context, siteID int64) ([]*content.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*content.Page
	for _, p := range r.pages {
		if p.SiteID == siteID {
			out = append(out, clonePage(p))
		}
	}
	return out, nil
}

func (r *memPages) Create(_ context.Context, np content.NewPage) (*content.Page, error) {
	r.creates++
	p := r.add(&content.Page{
		SiteID: np.SiteID, RouteName: np.RouteName, Slug: np.Slug, URL: np.URL, Name: np.Name,
		Template: np.Template, TTL: np.TTL, IsHybrid: np.IsHybrid, Decorate: np.Decorate, Enabled: np.Enabled,
		Created: time.Now(), Updated: time.Now(),
	})
	return clonePage(p), nil
}

func (r *memPages) Save(_ context.Context, p *content.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[p.ID] = clonePage(p)
	return nil
}

func (r *memPages) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pages, id)
	return nil
}

func (r *memPages) DefaultTemplate() string { return r.template }

type memBlocks struct {
	mu        sync.Mutex
	blocks    map[int64]*content.Block
	nextID    int64
	createErr error
	created   int
}

func newMemBlocks() *memBlocks {
	return &memBlocks{blocks: make(map[int64]*content.Block)}
}

func (r *memBlocks) add(b *content.Block) *content.Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = r.nextID
	r.blocks[b.ID] = b
	return b
}

func (r *memBlocks) FindByPage(_ context.Context, pageID int64) ([]*content.Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*content.Block
	for _, b := range r.blocks {
		if b.PageID == pageID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memBlocks) FindByID(_ context.Context, id int64) (*content.Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.blocks[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (r *memBlocks) CreateContainer(_ context.Context, attrs content.ContainerAttrs) (*content.Block, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created++
	b := r.add(&content.Block{
		PageID: attrs.PageID, ParentID: attrs.ParentID, Type: attrs.Type,
		Settings: map[string]any{"name": attrs.Name}, Position: attrs.Position, Enabled: attrs.Enabled,
	})
	cp := *b
	return &cp, nil
}

func (r *memBlocks) Save(_ context.Context, b *content.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.blocks[b.ID] = &cp
	return nil
}

// fakeTemplates renders "<layout:CODE>CONTENT</layout>" and expands
// "slot:NAME" template codes through the container function.
type fakeTemplates struct {
	rendered []string
	err      error
}

func (f *fakeTemplates) Render(code string, params map[string]any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rendered = append(f.rendered, code)
	var b strings.Builder
	fmt.Fprintf(&b, "<layout:%s>", code)
	if slot, ok := strings.CutPrefix(code, "slot:"); ok {
		fn := params["container"].(func(string) (template.HTML, error))
		html, err := fn(slot)
		if err != nil {
			return "", err
		}
		b.WriteString(string(html))
	}
	if c, ok := params["content"].(template.HTML); ok {
		b.WriteString(string(c))
	}
	b.WriteString("</layout>")
	return b.String(), nil
}

func (f *fakeTemplates) RenderIntoResponse(code string, params map[string]any, resp *rendering.Response) (*rendering.Response, error) {
	body, err := f.Render(code, params)
	if err != nil {
		return nil, err
	}
	resp.Body = body
	return resp, nil
}

// countingService renders "<n>" where n is the execution count.
type countingService struct {
	mu    sync.Mutex
	execs int
	err   error
	panic bool
}

func (s *countingService) CacheElement(block *content.Block, page *content.Page) rendering.CacheElement {
	return blocks.DefaultElement(block, page, nil)
}

func (s *countingService) Execute(_ context.Context, block *content.Block, _ *content.Page, shell *rendering.Response) (*rendering.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs++
	if s.panic {
		panic("service exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	shell.Body = fmt.Sprintf("<%s:%d>", block.Setting("content"), s.execs)
	return shell, nil
}

type harness struct {
	pages     *memPages
	blocks    *memBlocks
	services  *blocks.Registry
	caches    *manager.Manager
	templates *fakeTemplates
	logs      *bytes.Buffer
	factory   *Factory
	site      *content.Site
}

func newHarness(t *testing.T, policy ErrorPolicy) *harness {
	t.Helper()
	h := &harness{
		pages:     newMemPages("default.html"),
		blocks:    newMemBlocks(),
		services:  blocks.NewRegistry(),
		templates: &fakeTemplates{},
		logs:      &bytes.Buffer{},
		site:      &content.Site{ID: 1, Name: "default", IsDefault: true, Enabled: true},
	}
	logger := logging.NewWriterLogger(h.logs, slog.LevelDebug)
	h.caches = manager.NewManager(logger)

	blocks.RegisterBuiltins(h.services, h.templates)
	fragments := backends.NewFragments(stores.NewFragmentsStore(time.Hour))
	h.caches.Register(blocks.TypeContainer, backends.NewNoop())
	h.caches.Register(blocks.TypeText, fragments)
	h.caches.Register(blocks.TypeTemplate, fragments)

	decider, err := NewDecisionStrategy(DefaultDecoratorConfig())
	if err != nil {
		t.Fatal(err)
	}

	h.factory = NewFactory(Dependencies{
		Pages:     h.pages,
		Blocks:    h.blocks,
		Services:  h.services,
		Caches:    h.caches,
		Templates: h.templates,
		Decider:   decider,
		Logger:    logger,
	}, Options{Policy: policy, DefaultLayout: "_default"})
	return h
}

func (h *harness) manager() *Manager {
	return h.factory.NewManager(h.site)
}

func (h *harness) criticalCount() int {
	return strings.Count(h.logs.String(), `"level":"CRITICAL"`)
}
