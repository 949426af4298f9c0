package dav

import (
	"net/http"

	"github.com/atlasdrive/webdav/internal/pathutil"
	"github.com/atlasdrive/webdav/internal/resource"
)

// Mkcol implements MKCOL (spec §4.4). Per spec §9 Open Questions, MKCOL on
// an existing directory is lenient: the backend's own mkdir idempotence
// means a repeat call still answers 201 rather than RFC 4918's strict 405.
func (h *Handlers) Mkcol(w http.ResponseWriter, r *http.Request) {
	rb := NewResponseBuilder(w)
	st := StateFromContext(r)
	p := PathFromContext(r)
	ctx := r.Context()

	parentPath := pathutil.Dirname(p)
	parentStat, err := st.Backend.Stat(ctx, parentPath)
	if err != nil || parentStat.Kind != resource.KindDirectory {
		rb.Empty(http.StatusPreconditionFailed)
		return
	}

	if err := st.Backend.Mkdir(ctx, p); err != nil {
		h.logErr(r, "MKCOL", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}

	created, err := st.Backend.Stat(ctx, p)
	if err != nil || created.Kind != resource.KindDirectory {
		rb.Empty(http.StatusNotFound)
		return
	}
	rb.Empty(http.StatusCreated)
}
