package middleware

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/cms"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// SubrequestHeader marks a request issued by another page render, such as
// an edge include. Sub-requests are never decorated.
const SubrequestHeader = "X-CMS-Subrequest"

const managerKey = "cmsManager"

// RouteName names the matched route for page resolution.
func RouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(cms.WithRouteName(c.Request.Context(), name))
		c.Next()
	}
}

// SubRequest marks every request of a route group as a sub-request.
func SubRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(cms.WithRequestKind(c.Request.Context(), cms.SubRequest))
		c.Next()
	}
}

// GetManager returns the request-scoped manager created by CMSMiddleware.
func GetManager(c *gin.Context) (*cms.Manager, bool) {
	value, exists := c.Get(managerKey)
	if !exists {
		return nil, false
	}
	mgr, ok := value.(*cms.Manager)
	return mgr, ok
}

// CMSMiddleware creates a Manager per request, buffers the handler's output
// and, once the handler returns, decorates it with the current page or
// substitutes the error page bound to its status. Must run after
// SiteMiddleware.
func CMSMiddleware(factory *cms.Factory, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		site, _ := GetSite(c)
		mgr := factory.NewManager(site)
		c.Set(managerKey, mgr)

		if c.GetHeader(SubrequestHeader) == "1" {
			c.Request = c.Request.WithContext(cms.WithRequestKind(c.Request.Context(), cms.SubRequest))
		}

		// upgraded connections write straight to the socket
		if c.IsWebsocket() {
			c.Next()
			return
		}

		original := c.Writer
		buf := &bufferedWriter{ResponseWriter: original, status: original.Status()}
		c.Writer = buf
		defer func() { c.Writer = original }()
		c.Next()
		c.Writer = original

		resp := &rendering.Response{
			StatusCode: buf.status,
			Header:     original.Header().Clone(),
			Body:       buf.body.String(),
		}
		resp = finish(c, mgr, factory, resp, logger)
		flush(original, resp)
	}
}

func finish(c *gin.Context, mgr *cms.Manager, factory *cms.Factory, resp *rendering.Response, logger *logging.ChanneledLogger) *rendering.Response {
	r := c.Request
	ctx := r.Context()
	kind := cms.RequestKindFrom(ctx)

	decorated, err := mgr.Decorate(ctx, r, kind, resp)
	if err != nil {
		logger.WithContext(logging.ChannelRender, ctx).Error("Response decoration failed",
			"path", r.URL.Path, "route", cms.RouteNameFrom(ctx), "error", err)
		resp = failure(err, mgr.Policy())
	}
	if decorated || kind != cms.MasterRequest || factory.Decider().IsURIIgnored(r.URL.Path) {
		return resp
	}
	if ct := resp.ContentType(); ct != "" && !errorPageType(ct) {
		return resp
	}

	if _, err := mgr.RenderErrorPage(ctx, resp); err != nil {
		logger.WithContext(logging.ChannelRender, ctx).Error("Error page rendering failed",
			"status", resp.StatusCode, "error", err)
	}
	return resp
}

// errorPageType reports whether a response of contentType may be replaced
// by an error page.
func errorPageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "text/html" || mediaType == "text/plain")
}

func failure(err error, policy cms.ErrorPolicy) *rendering.Response {
	resp := rendering.NewResponse()
	resp.StatusCode = http.StatusInternalServerError
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp.Body = http.StatusText(http.StatusInternalServerError)
	if policy == cms.PolicyStrict {
		resp.Body = err.Error()
	}
	return resp
}

func flush(w gin.ResponseWriter, resp *rendering.Response) {
	dst := w.Header()
	for k := range dst {
		delete(dst, k)
	}
	for k, v := range resp.Header {
		dst[k] = v
	}
	dst.Del("Content-Length")
	if resp.Body != "" && dst.Get("Content-Type") == "" {
		dst.Set("Content-Type", "text/html; charset=utf-8")
	}

	w.WriteHeader(resp.StatusCode)
	w.WriteHeaderNow()
	if resp.Body != "" {
		_, _ = w.WriteString(resp.Body)
	}
}

// bufferedWriter holds the handler's status and body until the middleware
// has finished with them.
type bufferedWriter struct {
	gin.ResponseWriter
	body    bytes.Buffer
	status  int
	written bool
}

func (w *bufferedWriter) WriteHeader(code int) {
	if code > 0 {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() { w.written = true }

func (w *bufferedWriter) Write(data []byte) (int, error) {
	w.written = true
	return w.body.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.written = true
	return w.body.WriteString(s)
}

func (w *bufferedWriter) Status() int { return w.status }

func (w *bufferedWriter) Size() int {
	if !w.written {
		return -1
	}
	return w.body.Len()
}

func (w *bufferedWriter) Written() bool { return w.written }

// Flush is a no-op until the buffered response is written out.
func (w *bufferedWriter) Flush() {}
