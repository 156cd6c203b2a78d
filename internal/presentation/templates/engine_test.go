package templates

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDefaultLayoutWithoutDirectory(t *testing.T) {
	e, err := NewEngine("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultLayoutCode}, e.Codes())

	out, err := e.Render(DefaultLayoutCode, map[string]any{
		"content": template.HTML("<main>hi</main>"),
		"page":    &content.Page{Name: "Home"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "<main>hi</main>")
	assert.Contains(t, out, "<title>Home</title>")
}

func TestMissingDirectoryKeepsBuiltin(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.True(t, e.Has(DefaultLayoutCode))
}

func TestRenderLayoutsWithPartials(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "_partials/header.html", `{{ define "header" }}<header>{{ .site.Name }}</header>{{ end }}`)
	writeTemplate(t, dir, "blog/post.html", `{{ template "header" . }}<article>{{ .content }}</article>{{ call .container "sidebar" }}`)

	e, err := NewEngine(dir, nil)
	require.NoError(t, err)
	assert.True(t, e.Has("blog/post.html"))
	assert.False(t, e.Has("_partials/header.html"))

	out, err := e.Render("blog/post.html", map[string]any{
		"site":    &content.Site{Name: "Acme"},
		"content": template.HTML("<p>body</p>"),
		"container": func(slot string) (template.HTML, error) {
			return template.HTML("<aside>" + slot + "</aside>"), nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "<header>Acme</header><article><p>body</p></article><aside>sidebar</aside>", out)
}

func TestUnescapedStringsAreEscaped(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "plain.html", `{{ .content }}`)
	e, err := NewEngine(dir, nil)
	require.NoError(t, err)

	out, err := e.Render("plain.html", map[string]any{"content": "<b>x</b>"})
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;x&lt;/b&gt;", out)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "fails.html", `{{ call .container "main" }}`)
	e, err := NewEngine(dir, nil)
	require.NoError(t, err)

	_, err = e.Render("nope.html", nil)
	assert.True(t, cmserrors.IsConfiguration(err))

	_, err = e.Render("fails.html", map[string]any{
		"container": func(string) (template.HTML, error) { return "", assert.AnError },
	})
	assert.True(t, cmserrors.IsRender(err))
}

func TestParseErrorIsConfiguration(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "broken.html", `{{ if }}`)
	_, err := NewEngine(dir, nil)
	assert.True(t, cmserrors.IsConfiguration(err))
}

func TestRenderIntoResponseKeepsStatusAndHeaders(t *testing.T) {
	e, err := NewEngine("", nil)
	require.NoError(t, err)

	resp := &rendering.Response{StatusCode: http.StatusNotFound, Header: http.Header{"X-Trace": {"abc"}}}
	out, err := e.RenderIntoResponse(DefaultLayoutCode, map[string]any{"content": template.HTML("gone")}, resp)
	require.NoError(t, err)
	assert.Same(t, resp, out)
	assert.Equal(t, http.StatusNotFound, out.StatusCode)
	assert.Equal(t, "abc", out.Header.Get("X-Trace"))
	assert.Equal(t, "text/html; charset=utf-8", out.ContentType())
	assert.Contains(t, out.Body, "gone")
}

func TestWatchReloadsTemplates(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "page.html", `v1`)
	e, err := NewEngine(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, e.Watch(ctx, 10*time.Millisecond))

	writeTemplate(t, dir, "page.html", `v2`)
	assert.Eventually(t, func() bool {
		out, err := e.Render("page.html", nil)
		return err == nil && out == "v2"
	}, 2*time.Second, 20*time.Millisecond)

	writeTemplate(t, dir, "page.html", `{{ if }}`)
	time.Sleep(100 * time.Millisecond)
	out, err := e.Render("page.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", out)
}

func TestReloadReportsChangedCodes(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "a.html", `a1`)
	writeTemplate(t, dir, "b.html", `{{ template "nav" }}`)
	writeTemplate(t, dir, "_partials/nav.html", `{{ define "nav" }}n1{{ end }}`)
	e, err := NewEngine(dir, nil)
	require.NoError(t, err)

	var hooked [][]string
	e.OnReload(func(_ context.Context, codes []string) { hooked = append(hooked, codes) })

	changed, err := e.Reload(context.Background())
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Empty(t, hooked, "hooks only run when something changed")

	writeTemplate(t, dir, "a.html", `a2`)
	changed, err = e.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html"}, changed)

	writeTemplate(t, dir, "_partials/nav.html", `{{ define "nav" }}n2{{ end }}`)
	writeTemplate(t, dir, "c.html", `c`)
	changed, err = e.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.html", "c.html"}, changed)

	require.NoError(t, os.Remove(filepath.Join(dir, "c.html")))
	changed, err = e.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c.html"}, changed)

	writeTemplate(t, dir, "a.html", `{{ if }}`)
	_, err = e.Reload(context.Background())
	require.Error(t, err)

	assert.Equal(t, [][]string{{"a.html"}, {"a.html", "b.html", "c.html"}, {"c.html"}}, hooked)
}

func TestWatchRunsReloadHooks(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "card.html", `v1`)
	e, err := NewEngine(dir, nil)
	require.NoError(t, err)

	reloaded := make(chan []string, 4)
	e.OnReload(func(_ context.Context, codes []string) { reloaded <- codes })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, e.Watch(ctx, 10*time.Millisecond))

	writeTemplate(t, dir, "card.html", `v2`)
	select {
	case codes := <-reloaded:
		assert.Equal(t, []string{"card.html"}, codes)
	case <-time.After(2 * time.Second):
		t.Fatal("reload hook not called")
	}
}
