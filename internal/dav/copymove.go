package dav

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/atlasdrive/webdav/internal/pathutil"
	"github.com/atlasdrive/webdav/internal/resolver"
	"github.com/atlasdrive/webdav/internal/resource"
	"github.com/atlasdrive/webdav/internal/scratch"
	"github.com/atlasdrive/webdav/internal/session"
)

// Copy implements COPY (spec §4.4).
func (h *Handlers) Copy(w http.ResponseWriter, r *http.Request) {
	h.copyOrMove(w, r, false)
}

// Move implements MOVE (spec §4.4).
func (h *Handlers) Move(w http.ResponseWriter, r *http.Request) {
	h.copyOrMove(w, r, true)
}

func (h *Handlers) copyOrMove(w http.ResponseWriter, r *http.Request, move bool) {
	rb := NewResponseBuilder(w)
	st := StateFromContext(r)
	src := PathFromContext(r)
	ctx := r.Context()

	dest, status, ok := parseDestination(r)
	if !ok {
		rb.Empty(status)
		return
	}

	if src == dest {
		rb.Empty(http.StatusCreated)
		return
	}

	srcRes, destRes, err := resolveBoth(ctx, st, src, dest)
	if err != nil {
		h.logErr(r, "COPY/MOVE", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	if srcRes == nil {
		rb.Empty(http.StatusNotFound)
		return
	}

	overwrite := strings.EqualFold(r.Header.Get("Overwrite"), "T")
	if destRes != nil && !overwrite {
		rb.Empty(http.StatusForbidden)
		return
	}

	if destRes != nil {
		permanent := srcRes.Tier != resource.TierBackend
		if err := purgeDestination(ctx, st, dest, destRes, permanent); err != nil {
			h.logErr(r, "COPY/MOVE", err)
			rb.Empty(http.StatusInternalServerError)
			return
		}
	}

	if err := h.applyCopyOrMove(ctx, st, src, dest, srcRes, move); err != nil {
		h.logErr(r, "COPY/MOVE", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}

	if destRes != nil {
		rb.Empty(http.StatusNoContent)
	} else {
		rb.Empty(http.StatusCreated)
	}
}

// parseDestination validates the Destination header per spec §4.4: it
// must be present, URL-parseable, carry the request's scheme+host, and
// its decoded path must not attempt to climb out of the namespace.
func parseDestination(r *http.Request) (dest string, status int, ok bool) {
	raw := r.Header.Get("Destination")
	if raw == "" {
		return "", http.StatusBadRequest, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" || u.Host != r.Host {
		return "", http.StatusBadRequest, false
	}
	decoded, err := pathutil.Canonicalize(u.Path)
	if err != nil {
		return "", http.StatusBadRequest, false
	}
	if pathutil.IsTraversal(strings.TrimPrefix(u.Path, "/")) {
		return "", http.StatusForbidden, false
	}
	return decoded, 0, true
}

func resolveBoth(ctx context.Context, st *session.State, src, dest string) (*resource.Resource, *resource.Resource, error) {
	p := pool.NewWithResults[*resource.Resource]().WithContext(ctx)
	p.Go(func(ctx context.Context) (*resource.Resource, error) { return resolver.Resolve(ctx, st, src) })
	p.Go(func(ctx context.Context) (*resource.Resource, error) { return resolver.Resolve(ctx, st, dest) })
	results, err := p.Wait()
	if err != nil {
		return nil, nil, err
	}
	return results[0], results[1], nil
}

// purgeDestination removes an existing destination before an Overwrite:T
// copy/move. permanent selects hard-delete vs trash for a backend-tier
// destination, keyed on the *source* tier (spec §4.4 table, §9 "asymmetric
// permanence policy"): a virtual- or disk-tier source overwriting a
// backend destination purges it permanently; a backend-tier source
// trashes it.
func purgeDestination(ctx context.Context, st *session.State, dest string, destRes *resource.Resource, permanent bool) error {
	switch destRes.Tier {
	case resource.TierVirtual:
		st.RemoveVirtual(dest)
		return nil
	case resource.TierDisk:
		if err := removeWithRetry(st, destRes.TempDiskID); err != nil {
			return err
		}
		st.RemoveDisk(dest)
		return nil
	default:
		return st.Backend.Unlink(ctx, dest, permanent)
	}
}

func (h *Handlers) applyCopyOrMove(ctx context.Context, st *session.State, src, dest string, srcRes *resource.Resource, move bool) error {
	switch srcRes.Tier {
	case resource.TierVirtual:
		return copyMoveVirtual(st, src, dest, srcRes, move)
	case resource.TierDisk:
		return copyMoveDisk(st, src, dest, srcRes, move)
	default:
		if move {
			return st.Backend.Rename(ctx, src, dest)
		}
		return st.Backend.Copy(ctx, src, dest)
	}
}

func copyMoveVirtual(st *session.State, src, dest string, srcRes *resource.Resource, move bool) error {
	clone := *srcRes
	clone.Path = dest
	clone.Name = pathutil.Basename(dest)
	st.PutVirtual(dest, &clone)
	if move {
		st.RemoveVirtual(src)
	}
	return nil
}

func copyMoveDisk(st *session.State, src, dest string, srcRes *resource.Resource, move bool) error {
	newID := scratch.TempDiskID(st.Username, dest)

	if move {
		if err := st.DiskFS.Rename(srcRes.TempDiskID, newID); err != nil {
			return err
		}
		st.RemoveDisk(src)
	} else {
		if err := copyFile(st, srcRes.TempDiskID, newID); err != nil {
			return err
		}
	}

	clone := *srcRes
	clone.Path = dest
	clone.Name = pathutil.Basename(dest)
	clone.TempDiskID = newID
	st.PutDisk(dest, &clone)
	return nil
}

func copyFile(st *session.State, from, to string) error {
	src, err := st.DiskFS.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := st.DiskFS.Create(to)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}
