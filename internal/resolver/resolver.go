// Package resolver implements ResourceResolver (spec §4.3): mapping a
// canonical path to a tagged resource.Resource drawn from whichever tier
// currently owns it, without mutating any tier map.
package resolver

import (
	"context"
	"errors"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/resource"
	"github.com/atlasdrive/webdav/internal/session"
)

// Resolve returns the Resource at path for st, checking virtual, then
// disk, then the backend, in that order (spec §4.3). A nil Resource with a
// nil error means "not found" (backend.ErrNotFound is swallowed here, per
// spec §7: "backend 'not found' errors inside resolvers are swallowed and
// surface as none").
func Resolve(ctx context.Context, st *session.State, path string) (*resource.Resource, error) {
	if r, ok := st.Virtual(path); ok {
		return r, nil
	}
	if r, ok := st.Disk(path); ok {
		return r, nil
	}

	stat, err := st.Backend.Stat(ctx, path)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fromStat(path, stat), nil
}

// fromStat wraps a backend.Stat as a TierBackend resource.Resource.
func fromStat(path string, st *backend.Stat) *resource.Resource {
	return &resource.Resource{
		UUID:        st.UUID,
		Kind:        st.Kind,
		Path:        path,
		Name:        st.Name,
		Mime:        st.Mime,
		Size:        st.Size,
		Chunks:      st.Chunks,
		MtimeMs:     st.MtimeMs,
		BirthtimeMs: st.BirthtimeMs,
		Hash:        st.Hash,
		Tier:        resource.TierBackend,
		Bucket:      st.Bucket,
		Region:      st.Region,
		Version:     st.Version,
		Key:         st.Key,
	}
}
