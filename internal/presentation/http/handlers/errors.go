// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/gin-gonic/gin"
)

// statusFor maps CMS error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case cmserrors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeResponse copies a rendered response onto the gin writer.
func writeResponse(c *gin.Context, resp *rendering.Response) {
	for k, values := range resp.Header {
		for i, v := range values {
			if i == 0 {
				c.Writer.Header().Set(k, v)
			} else {
				c.Writer.Header().Add(k, v)
			}
		}
	}
	contentType := resp.ContentType()
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	c.Data(status, contentType, []byte(resp.Body))
}

func htmlError(c *gin.Context, status int) {
	c.Data(status, "text/html; charset=utf-8", []byte(http.StatusText(status)))
}
