package dav

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/atlasdrive/webdav/internal/resolver"
	"github.com/atlasdrive/webdav/internal/resource"
	"github.com/atlasdrive/webdav/internal/session"
)

// UploadChunkSize is the constant the backend SDK chunks uploads by (spec
// §4.4 PUT step 4: "chunks = ceil(size / UPLOAD_CHUNK_SIZE)").
const UploadChunkSize = 4 * 1024 * 1024

// Handlers implements MethodHandlers (spec §4.4) for every WebDAV verb.
type Handlers struct {
	TempFileGlobs []string
	Log           *logrus.Logger
}

// Options implements the OPTIONS handler (spec §4.4).
func (h *Handlers) Options(w http.ResponseWriter, r *http.Request) {
	NewResponseBuilder(w).Empty(http.StatusOK)
}

// Head implements the HEAD handler (spec §4.4).
func (h *Handlers) Head(w http.ResponseWriter, r *http.Request) {
	h.serveGetOrHead(w, r, false)
}

// Get implements the GET handler (spec §4.4).
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	h.serveGetOrHead(w, r, true)
}

func (h *Handlers) serveGetOrHead(w http.ResponseWriter, r *http.Request, withBody bool) {
	rb := NewResponseBuilder(w)
	st := StateFromContext(r)
	p := PathFromContext(r)

	res, err := resolver.Resolve(r.Context(), st, p)
	if err != nil {
		h.logErr(r, "GET/HEAD", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	if res == nil {
		rb.Empty(http.StatusNotFound)
		return
	}
	if res.IsDir() {
		rb.Empty(http.StatusForbidden)
		return
	}

	ct := res.Mime
	if ct == "" {
		ct = resource.MimeByName(res.Name)
	}
	rb.Header().Set("Content-Type", ct)
	rb.Header().Set("Accept-Ranges", "bytes")

	if res.Tier == resource.TierVirtual {
		rb.Header().Set("Content-Length", "0")
		rb.WriteHeader(http.StatusOK)
		return
	}

	start, end, ranged, rangeErr := parseRange(r, res.Size)
	if rangeErr != nil {
		rb.Empty(http.StatusBadRequest)
		return
	}

	length := res.Size
	status := http.StatusOK
	if ranged {
		length = end - start + 1
		status = http.StatusPartialContent
		rb.Header().Set("Content-Range", contentRangeHeader(start, end, res.Size))
	}
	rb.Header().Set("Content-Length", strconv.FormatInt(length, 10))

	if !withBody {
		rb.WriteHeader(status)
		return
	}

	body, err := h.openBody(r.Context(), st, res, start, end)
	if err != nil {
		if rb.Started {
			return
		}
		h.logErr(r, "GET", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	defer body.Close()

	rb.WriteHeader(status)
	_, _ = io.Copy(rb, body)
}

func (h *Handlers) openBody(ctx context.Context, st *session.State, res *resource.Resource, start, end int64) (io.ReadCloser, error) {
	if res.Tier == resource.TierDisk {
		f, err := st.DiskFS.Open(res.TempDiskID)
		if err != nil {
			return nil, err
		}
		if start > 0 {
			if _, err := f.Seek(start, io.SeekStart); err != nil {
				f.Close()
				return nil, err
			}
		}
		if end < 0 {
			return f, nil
		}
		return &limitedReadCloser{r: io.LimitReader(f, end-start+1), c: f}, nil
	}
	return st.Backend.DownloadStream(ctx, res.UUID, start, end)
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }

// parseRange parses `Range: bytes=start-[end]` (also accepting the legacy
// Content-Range header some clients send instead, per spec §4.4 GET).
func parseRange(r *http.Request, size int64) (start, end int64, ranged bool, err error) {
	h := r.Header.Get("Range")
	if h == "" {
		h = r.Header.Get("Content-Range")
	}
	if h == "" {
		return 0, size - 1, false, nil
	}
	h = strings.TrimPrefix(h, "bytes=")
	parts := strings.SplitN(h, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false, errors.New("malformed range")
	}
	start, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false, err
	}
	if parts[1] == "" {
		end = size - 1
	} else {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, 0, false, err
		}
	}
	if start < 0 || end < start || end >= size {
		return 0, 0, false, errors.New("out of range")
	}
	return start, end, true, nil
}

func (h *Handlers) logErr(r *http.Request, op string, err error) {
	if h.Log == nil || err == nil {
		return
	}
	path := ""
	if r != nil {
		path = r.URL.Path
	}
	h.Log.WithFields(logrus.Fields{"op": op, "path": path}).Error(err)
}
