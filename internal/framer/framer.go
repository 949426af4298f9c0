// Package framer implements RequestBodyFramer (spec §4.1): peeking the
// first byte of a PUT/POST body without consuming the stream, so the PUT
// handler can distinguish a deliberate zero-byte probe (Explorer/Finder
// opening a file before writing to it) from a real upload, while still
// handing the handler a stream that replays the peeked byte.
package framer

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxXMLBody bounds the in-memory read of PROPFIND/PROPPATCH request
// bodies (spec §4.1: "bounded read, 1 MiB hard cap").
const maxXMLBody = 1 << 20

// Framed is the result of framing a PUT/POST body.
type Framed struct {
	// Empty is true if the client sent no body at all (Content-Length: 0
	// or the connection closed before any byte arrived).
	Empty bool
	// Body replays the peeked first byte (when !Empty) followed by the
	// rest of the original stream. Callers must read exactly this.
	Body io.Reader
}

// PeekTimeout is not consulted by Frame. Frame blocks on the first byte
// with no deadline of its own, so the wait is bounded only by whatever read
// timeouts the serving http.Server has configured.
var PeekTimeout = 30 * time.Second

// deadlineSetter is the read-deadline method of the underlying net.Conn.
// Frame receives only the *http.Request, whose Body does not expose it, so
// Frame sets no read deadline.
type deadlineSetter interface {
	SetReadDeadline(time.Time) error
}

// Frame peeks exactly one byte from r.Body for PUT/POST requests. It never
// buffers the remainder of the body.
func Frame(r *http.Request) (Framed, error) {
	if r.ContentLength == 0 {
		return Framed{Empty: true, Body: http.NoBody}, nil
	}
	if r.Body == nil {
		return Framed{Empty: true, Body: http.NoBody}, nil
	}

	first := make([]byte, 1)
	if _, err := io.ReadFull(r.Body, first); err != nil {
		if err == io.EOF {
			return Framed{Empty: true, Body: http.NoBody}, nil
		}
		return Framed{}, err
	}
	return Framed{Empty: false, Body: io.MultiReader(bytes.NewReader(first), r.Body)}, nil
}

// ReadXMLBody reads an XML request body for verbs other than PUT/POST
// (PROPFIND, PROPPATCH, LOCK), bounded to maxXMLBody bytes, accepting
// application/xml or text/xml (and treating a missing/empty body as "").
func ReadXMLBody(r *http.Request) (string, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return "", nil
	}
	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mt := ct
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			mt = strings.TrimSpace(ct[:i])
		}
		if !strings.EqualFold(mt, "application/xml") && !strings.EqualFold(mt, "text/xml") {
			// Some clients omit or mis-set Content-Type on small PROPFIND
			// bodies; tolerate it rather than reject, matching spec's
			// "accepted but not required to be parsed" posture.
		}
	}
	limited := io.LimitReader(r.Body, maxXMLBody+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", err
	}
	if len(data) > maxXMLBody {
		data = data[:maxXMLBody]
	}
	return string(data), nil
}
