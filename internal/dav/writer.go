package dav

import (
	"net/http"
	"strconv"
)

// ResponseBuilder wraps an http.ResponseWriter with the "never write
// headers twice" guard spec §4.5 requires: every helper checks Started
// before writing anything.
type ResponseBuilder struct {
	w       http.ResponseWriter
	Started bool
}

// NewResponseBuilder wraps w.
func NewResponseBuilder(w http.ResponseWriter) *ResponseBuilder {
	return &ResponseBuilder{w: w}
}

// Empty writes a bare status with Content-Length: 0 and no body (spec
// §4.5 "Empty-body statuses").
func (b *ResponseBuilder) Empty(status int) {
	if b.Started {
		return
	}
	b.Started = true
	b.w.Header().Set("Content-Length", "0")
	b.w.WriteHeader(status)
}

// XML writes status with an application/xml body, setting Content-Length
// from its UTF-8 byte length (spec §4.5).
func (b *ResponseBuilder) XML(status int, body []byte) {
	if b.Started {
		return
	}
	b.Started = true
	b.w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	b.w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	b.w.WriteHeader(status)
	_, _ = b.w.Write(body)
}

// Header exposes the underlying header map for handlers that need to set
// verb-specific headers (Content-Type, Range, Etag) before finishing the
// response.
func (b *ResponseBuilder) Header() http.Header { return b.w.Header() }

// WriteHeader starts the response with status and no forced
// Content-Length, for handlers (GET, HEAD) that stream or explicitly set
// their own length.
func (b *ResponseBuilder) WriteHeader(status int) {
	if b.Started {
		return
	}
	b.Started = true
	b.w.WriteHeader(status)
}

// Write proxies to the underlying writer, implicitly starting the
// response at 200 if WriteHeader was never called (matching
// http.ResponseWriter semantics).
func (b *ResponseBuilder) Write(p []byte) (int, error) {
	b.Started = true
	return b.w.Write(p)
}
