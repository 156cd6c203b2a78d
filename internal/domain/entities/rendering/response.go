package rendering

import (
	"net/http"
	"time"
)

// Response is a rendered HTTP response body with its status, headers and
// cache lifetime.
type Response struct {
	StatusCode int           `json:"statusCode"`
	Header     http.Header   `json:"header,omitempty"`
	Body       string        `json:"body"`
	TTL        time.Duration `json:"ttl"`
}

// NewResponse returns an empty 200 text/html response.
func NewResponse() *Response {
	h := make(http.Header)
	h.Set("Content-Type", "text/html; charset=utf-8")
	return &Response{StatusCode: http.StatusOK, Header: h}
}

// Clone returns a deep copy of r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Header = r.Header.Clone()
	if cp.Header == nil {
		cp.Header = make(http.Header)
	}
	return &cp
}

// ContentType returns the Content-Type header, "" when absent.
func (r *Response) ContentType() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}
