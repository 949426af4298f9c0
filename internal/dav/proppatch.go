package dav

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/framer"
	"github.com/atlasdrive/webdav/internal/resolver"
	"github.com/atlasdrive/webdav/internal/resource"
)

// propAny captures one <D:prop> child regardless of its namespace prefix
// (D:, d:, or none) — the same "match by local name, ignore the prefix"
// trick google-go-webdav's xml.Any uses to read PROPFIND/PROPPATCH bodies
// from arbitrary clients.
type propAny struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// propertyUpdate models only the <D:propertyupdate><D:set><D:prop> path
// spec §4.4 PROPPATCH reads; <D:remove> is out of scope (only timestamp
// mutation is supported, per spec §1 Non-goals).
type propertyUpdate struct {
	XMLName xml.Name `xml:"propertyupdate"`
	Set     struct {
		Prop struct {
			Any []propAny `xml:",any"`
		} `xml:"prop"`
	} `xml:"set"`
}

// timestampFormats are the date encodings a PROPPATCH client may send for
// getlastmodified/creationdate: the RFC 1123 GMT form this server itself
// emits from PROPFIND (spec §4.4), plus the common RFC 3339 alternative.
var timestampFormats = []string{
	http.TimeFormat,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339,
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseSetTimestamps extracts the two properties PROPPATCH is allowed to
// mutate (spec §4.4: "getlastmodified/lastmodified -> new lastModified;
// creationdate/getcreationdate -> new creation"), matching names
// case-insensitively and validating each as a parseable date. An
// unparseable value is ignored rather than rejecting the whole request,
// matching the handler's "always ends in 207" contract.
func parseSetTimestamps(body string) (lastModified, creation *time.Time) {
	if body == "" {
		return nil, nil
	}
	var pu propertyUpdate
	if err := xml.Unmarshal([]byte(body), &pu); err != nil {
		return nil, nil
	}
	for _, p := range pu.Set.Prop.Any {
		switch strings.ToLower(p.XMLName.Local) {
		case "getlastmodified", "lastmodified":
			if t, ok := parseTimestamp(p.Value); ok {
				t := t
				lastModified = &t
			}
		case "creationdate", "getcreationdate":
			if t, ok := parseTimestamp(p.Value); ok {
				t := t
				creation = &t
			}
		}
	}
	return lastModified, creation
}

// applyTimestamps patches res's timestamp fields in place so the caller can
// write it straight back into whichever tier map owns it (spec §4.4: "If
// file and virtual-tier, patch the in-memory record. If disk-tier, patch
// the in-memory record.").
func applyTimestamps(res *resource.Resource, lastModified, creation *time.Time) {
	if lastModified != nil {
		res.LastModified = *lastModified
		res.MtimeMs = lastModified.UnixMilli()
	}
	if creation != nil {
		res.Creation = *creation
		res.BirthtimeMs = creation.UnixMilli()
	}
}

// Proppatch implements PROPPATCH (spec §4.4). Timestamp mutation is the
// only settable property (spec §1 Non-goals); directories and requests
// that set no recognized timestamp are a no-op that still answers the
// canonical empty-prop 207.
func (h *Handlers) Proppatch(w http.ResponseWriter, r *http.Request) {
	rb := NewResponseBuilder(w)
	st := StateFromContext(r)
	p := PathFromContext(r)
	ctx := r.Context()

	body, err := framer.ReadXMLBody(r)
	if err != nil {
		h.logErr(r, "PROPPATCH", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}

	res, err := resolver.Resolve(ctx, st, p)
	if err != nil {
		h.logErr(r, "PROPPATCH", err)
		rb.Empty(http.StatusInternalServerError)
		return
	}
	if res == nil {
		respBody, merr := marshalNotFoundMultistatus(p)
		if merr != nil {
			rb.Empty(http.StatusInternalServerError)
			return
		}
		rb.XML(http.StatusNotFound, respBody)
		return
	}

	if res.IsDir() {
		h.respondEmptyProp(rb, p)
		return
	}

	lastModified, creation := parseSetTimestamps(body)
	if lastModified == nil && creation == nil {
		h.respondEmptyProp(rb, p)
		return
	}

	switch res.Tier {
	case resource.TierVirtual:
		applyTimestamps(res, lastModified, creation)
		st.PutVirtual(p, res)
	case resource.TierDisk:
		applyTimestamps(res, lastModified, creation)
		st.PutDisk(p, res)
	default:
		applyTimestamps(res, lastModified, creation)
		patch := backend.MetadataPatch{
			Name:         res.Name,
			Key:          res.Key,
			LastModified: res.MtimeMs,
			Creation:     res.BirthtimeMs,
			Hash:         res.Hash,
			Size:         res.Size,
			Mime:         res.Mime,
		}
		if err := st.Backend.EditFileMetadata(ctx, res.UUID, patch); err != nil {
			h.logErr(r, "PROPPATCH", err)
			rb.Empty(http.StatusInternalServerError)
			return
		}
		stat := &backend.Stat{
			UUID:        res.UUID,
			Kind:        res.Kind,
			Name:        res.Name,
			Size:        res.Size,
			MtimeMs:     res.MtimeMs,
			BirthtimeMs: res.BirthtimeMs,
			Mime:        res.Mime,
			Key:         res.Key,
			Bucket:      res.Bucket,
			Region:      res.Region,
			Version:     res.Version,
			Chunks:      res.Chunks,
			Hash:        res.Hash,
		}
		_ = st.Backend.RemoveItem(ctx, p)
		if err := st.Backend.AddItem(ctx, p, stat); err != nil {
			h.logErr(r, "PROPPATCH", err)
		}
	}

	h.respondEmptyProp(rb, p)
}

func (h *Handlers) respondEmptyProp(rb *ResponseBuilder, p string) {
	body, err := marshalEmptyPropMultistatus(p)
	if err != nil {
		rb.Empty(http.StatusInternalServerError)
		return
	}
	rb.XML(http.StatusMultiStatus, body)
}
