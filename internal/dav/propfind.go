package dav

import (
	"context"
	"net/http"
	"path"

	"github.com/sourcegraph/conc/pool"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/resolver"
	"github.com/atlasdrive/webdav/internal/resource"
	"github.com/atlasdrive/webdav/internal/session"
)

// Propfind implements the PROPFIND handler (spec §4.4). The request body
// is not read, so any requested prop set is ignored — spec §9 Open
// Questions documents this as the accepted simple policy; every response
// carries the full "all properties" set.
func (h *Handlers) Propfind(w http.ResponseWriter, r *http.Request) {
	rb := NewResponseBuilder(w)
	st := StateFromContext(r)
	p := PathFromContext(r)
	ctx := r.Context()

	depth := r.Header.Get("Depth")
	if depth == "" {
		depth = "1"
	}

	target, err := resolver.Resolve(ctx, st, p)
	if err != nil {
		h.logErr(r, "PROPFIND", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	if target == nil {
		body, merr := marshalNotFoundMultistatus(p)
		if merr != nil {
			rb.Empty(http.StatusInternalServerError)
			return
		}
		rb.XML(http.StatusNotFound, body)
		return
	}

	quota := h.statFS(ctx, st)

	resources := []*resource.Resource{target}
	if target.IsDir() && depth != "0" {
		children, err := h.listChildren(ctx, st, target.Path)
		if err != nil {
			h.logErr(r, "PROPFIND", err)
			rb.Empty(http.StatusInternalServerError)
			return
		}
		resources = append(resources, children...)
	}

	body, err := marshalMultistatus(resources, &quota)
	if err != nil {
		h.logErr(r, "PROPFIND", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	rb.XML(http.StatusMultiStatus, body)
}

// statFS returns the 60s-cached statfs result, refreshing it on a cache
// miss (spec §4.4, §4.6).
func (h *Handlers) statFS(ctx context.Context, st *session.State) backend.Quota {
	if q, ok := st.CachedStatFS(); ok {
		return q
	}
	q, err := st.Backend.StatFS(ctx)
	if err != nil {
		h.logErr(nil, "PROPFIND", err)
		return backend.Quota{}
	}
	st.CacheStatFS(q)
	return q
}

// listChildren resolves a directory's children: backend readdir+stat
// fanned out with bounded concurrency (conc/pool), plus any virtual/disk
// overlay entries directly under dir (spec §4.4 PROPFIND).
func (h *Handlers) listChildren(ctx context.Context, st *session.State, dir string) ([]*resource.Resource, error) {
	names, err := st.Backend.ReadDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	type result struct {
		idx int
		res *resource.Resource
	}

	p := pool.NewWithResults[result]().WithContext(ctx).WithMaxGoroutines(8)
	for i, name := range names {
		i, name := i, name
		p.Go(func(ctx context.Context) (result, error) {
			childPath := path.Join(dir, name)
			r, err := resolver.Resolve(ctx, st, childPath)
			if err != nil || r == nil {
				return result{idx: i}, nil
			}
			return result{idx: i, res: r}, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	out := make([]*resource.Resource, 0, len(results)+4)
	for _, r := range results {
		if r.res != nil {
			out = append(out, r.res)
		}
	}
	out = append(out, st.ChildrenUnder(dir)...)
	return out, nil
}
