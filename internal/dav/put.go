package dav

import (
	"context"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/framer"
	"github.com/atlasdrive/webdav/internal/pathutil"
	"github.com/atlasdrive/webdav/internal/resolver"
	"github.com/atlasdrive/webdav/internal/resource"
	"github.com/atlasdrive/webdav/internal/scratch"
	"github.com/atlasdrive/webdav/internal/session"
)

// RemoveRetryTimeout bounds how long removeWithRetry keeps retrying the
// deletion of a scratch file (PUT, DELETE, and COPY/MOVE overwrite) before
// giving up (spec §4.4 DELETE/PUT: "retry up to 10 minutes").
var RemoveRetryTimeout = 10 * time.Minute

// Put implements the PUT handler; Post aliases it (spec §4.4 "POST is
// aliased to PUT").
func (h *Handlers) Put(w http.ResponseWriter, r *http.Request) {
	rb := NewResponseBuilder(w)
	st := StateFromContext(r)
	p := PathFromContext(r)
	ctx := r.Context()

	existing, err := resolver.Resolve(ctx, st, p)
	if err != nil {
		h.logErr(r, "PUT", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	if existing != nil && existing.IsDir() {
		rb.Empty(http.StatusForbidden)
		return
	}

	parentPath := pathutil.Dirname(p)
	name := pathutil.Basename(p)

	if err := st.Backend.Mkdir(ctx, parentPath); err != nil {
		h.logErr(r, "PUT", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	parentStat, err := st.Backend.Stat(ctx, parentPath)
	if err != nil || parentStat.Kind != resource.KindDirectory {
		rb.Empty(http.StatusPreconditionFailed)
		return
	}

	framed, err := framer.Frame(r)
	if err != nil {
		h.logErr(r, "PUT", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}

	if framed.Empty {
		h.putEmpty(rb, st, p)
		return
	}

	if scratch.Matches(h.TempFileGlobs, p) {
		h.putScratch(ctx, rb, st, p, framed.Body)
		return
	}

	h.putBackend(ctx, rb, st, p, parentPath, name, framed.Body)
}

// putEmpty synthesizes the virtual zero-byte placeholder (spec §4.4 PUT
// step 3).
func (h *Handlers) putEmpty(rb *ResponseBuilder, st *session.State, p string) {
	st.PutVirtual(p, resource.NewVirtual(p))
	rb.Empty(http.StatusCreated)
}

// putScratch spools the body to this user's disk-scratch tier (spec §4.4
// PUT step 4).
func (h *Handlers) putScratch(ctx context.Context, rb *ResponseBuilder, st *session.State, p string, body io.Reader) {
	tempDiskID := scratch.TempDiskID(st.Username, p)

	if err := removeWithRetry(st, tempDiskID); err != nil {
		h.logErr(nil, "PUT", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}

	f, err := st.DiskFS.Create(tempDiskID)
	if err != nil {
		h.logErr(nil, "PUT", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	n, err := io.Copy(f, body)
	if err != nil {
		h.logErr(nil, "PUT", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}

	chunks := int(math.Ceil(float64(n) / float64(UploadChunkSize)))
	if chunks == 0 {
		chunks = 1
	}
	res := resource.NewDisk(p, n, chunks, tempDiskID)
	st.PutDisk(p, res)
	rb.Empty(http.StatusCreated)
}

// putBackend streams the body into the backend upload API and rewrites
// its metadata index so the next Stat sees the new file (spec §4.4 PUT
// step 5).
func (h *Handlers) putBackend(ctx context.Context, rb *ResponseBuilder, st *session.State, p, parentPath, name string, body io.Reader) {
	result, err := st.Backend.UploadStream(ctx, parentPath, name, body)
	if err != nil {
		st.RemoveVirtual(p)
		st.RemoveDisk(p)
		h.logErr(nil, "PUT", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}

	stat := &backend.Stat{
		UUID:        result.UUID,
		Kind:        result.Kind,
		Name:        name,
		Size:        result.Size,
		MtimeMs:     result.LastModified,
		BirthtimeMs: result.Creation,
		Mime:        result.Mime,
		Key:         result.Key,
		Bucket:      result.Bucket,
		Region:      result.Region,
		Version:     result.Version,
		Chunks:      result.Chunks,
		Hash:        result.Hash,
	}
	_ = st.Backend.RemoveItem(ctx, p)
	if err := st.Backend.AddItem(ctx, p, stat); err != nil {
		h.logErr(nil, "PUT", err)
	}

	st.RemoveVirtual(p)
	st.RemoveDisk(p)
	rb.Empty(http.StatusCreated)
}

// removeWithRetry deletes name from the user's scratch tier, retrying on
// transient errors (e.g. the file is briefly held open by a concurrent
// GET) for up to RemoveRetryTimeout, matching spec's "retry up to 10
// minutes" contract for scratch-file deletes.
func removeWithRetry(st *session.State, name string) error {
	deadline := time.Now().Add(RemoveRetryTimeout)
	backoff := 10 * time.Millisecond
	for {
		err := st.DiskFS.Remove(name)
		if err == nil || os.IsNotExist(err) {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(backoff)
		if backoff < time.Second {
			backoff *= 2
		}
	}
}
