package dav

import (
	"net/http"

	"github.com/atlasdrive/webdav/internal/resolver"
	"github.com/atlasdrive/webdav/internal/resource"
)

// Delete implements DELETE (spec §4.4): virtual entries are dropped from
// memory, disk-scratch entries are removed from disk (retrying per
// removeWithRetry), and everything else is soft-deleted at the backend.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	rb := NewResponseBuilder(w)
	st := StateFromContext(r)
	p := PathFromContext(r)
	ctx := r.Context()

	res, err := resolver.Resolve(ctx, st, p)
	if err != nil {
		h.logErr(r, "DELETE", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	if res == nil {
		rb.Empty(http.StatusNotFound)
		return
	}

	switch res.Tier {
	case resource.TierVirtual:
		st.RemoveVirtual(p)
	case resource.TierDisk:
		if err := removeWithRetry(st, res.TempDiskID); err != nil {
			h.logErr(r, "DELETE", err)
			rb.Empty(http.StatusInternalServerError)
			return
		}
		st.RemoveDisk(p)
	default:
		if err := st.Backend.Unlink(ctx, p, false); err != nil {
			h.logErr(r, "DELETE", err)
			rb.Empty(http.StatusInternalServerError)
			return
		}
	}
	rb.Empty(http.StatusOK)
}
