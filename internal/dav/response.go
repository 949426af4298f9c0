// Package dav implements MethodHandlers and ResponseBuilder (spec §4.4,
// §4.5): one handler per WebDAV verb, dispatched behind a chi.Router, and
// the RFC 4918 XML envelopes they emit. The XML types here are grounded on
// the pack's own webdav.Multistatus/Propstat/Prop shape (see
// other_examples' ProxyDAV webdav handler), generalized with the
// quota/etag/resourcetype properties spec §4.4 PROPFIND requires.
package dav

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/pathutil"
	"github.com/atlasdrive/webdav/internal/resource"
)

// multistatus is the <D:multistatus> envelope (spec §4.5).
type multistatus struct {
	XMLName   xml.Name   `xml:"D:multistatus"`
	XmlnsD    string     `xml:"xmlns:D,attr"`
	Responses []response `xml:"D:response"`
}

type response struct {
	Href     string   `xml:"D:href"`
	Propstat propstat `xml:"D:propstat"`
}

type propstat struct {
	Prop   prop   `xml:"D:prop"`
	Status string `xml:"D:status"`
}

// resourceType holds either a <D:collection/> marker or is empty for files.
type resourceType struct {
	Collection *struct{} `xml:"D:collection,omitempty"`
}

type prop struct {
	LastModified        string        `xml:"D:getlastmodified,omitempty"`
	DisplayName          string        `xml:"D:displayname,omitempty"`
	ContentLength        *int64        `xml:"D:getcontentlength,omitempty"`
	ETag                 string        `xml:"D:getetag,omitempty"`
	CreationDate         string        `xml:"D:creationdate,omitempty"`
	QuotaAvailableBytes  *uint64       `xml:"D:quota-available-bytes,omitempty"`
	QuotaUsedBytes       *uint64       `xml:"D:quota-used-bytes,omitempty"`
	ContentType          string        `xml:"D:getcontenttype,omitempty"`
	ResourceType         *resourceType `xml:"D:resourcetype,omitempty"`
}

// rfc1123 formats a unix-millis timestamp the way spec §4.4 PROPFIND
// requires: "ddd, DD MMM YYYY HH:mm:ss GMT". time.RFC1123 renders a UTC
// time's zone as "UTC", not "GMT", which strict clients (and Go's own
// http.ParseTime) reject; http.TimeFormat is the same layout with the zone
// fixed to "GMT".
func rfc1123(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(http.TimeFormat)
}

func propsFor(r *resource.Resource, q *backend.Quota) prop {
	p := prop{
		LastModified: rfc1123(r.MtimeMs),
		DisplayName:  url.PathEscape(r.Name),
		ETag:         r.UUID,
		CreationDate: rfc1123(r.BirthtimeMs),
	}
	if r.IsDir() {
		var zero int64
		p.ContentLength = &zero
		p.ContentType = "httpd/unix-directory"
		p.ResourceType = &resourceType{Collection: &struct{}{}}
	} else {
		size := r.Size
		p.ContentLength = &size
		p.ContentType = r.Mime
		if p.ContentType == "" {
			p.ContentType = resource.MimeByName(r.Name)
		}
		p.ResourceType = &resourceType{}
	}
	if q != nil {
		used, avail := q.Used, uint64(0)
		if q.Max >= q.Used {
			avail = q.Max - q.Used
		}
		p.QuotaUsedBytes = &used
		p.QuotaAvailableBytes = &avail
	}
	return p
}

func responseFor(r *resource.Resource, q *backend.Quota) response {
	return response{
		Href: pathutil.EncodeHref(r.URL()),
		Propstat: propstat{
			Prop:   propsFor(r, q),
			Status: "HTTP/1.1 200 OK",
		},
	}
}

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

// marshalMultistatus marshals resources (and, for the directory itself, its
// own properties) into the 207 envelope described in spec §4.4 PROPFIND
// and §4.5.
func marshalMultistatus(resources []*resource.Resource, q *backend.Quota) ([]byte, error) {
	ms := multistatus{XmlnsD: "DAV:"}
	for _, r := range resources {
		ms.Responses = append(ms.Responses, responseFor(r, q))
	}
	body, err := xml.Marshal(ms)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), body...), nil
}

// marshalNotFoundMultistatus builds the empty-prop 404 multi-status body
// spec §4.4/§4.5 require for a missing PROPFIND target.
func marshalNotFoundMultistatus(href string) ([]byte, error) {
	ms := multistatus{
		XmlnsD: "DAV:",
		Responses: []response{{
			Href: pathutil.EncodeHref(href),
			Propstat: propstat{
				Prop:   prop{},
				Status: "HTTP/1.1 404 NOT FOUND",
			},
		}},
	}
	body, err := xml.Marshal(ms)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), body...), nil
}

// marshalEmptyPropMultistatus builds the PROPPATCH 207 reply: empty
// <D:prop/> with a 207 status line (spec §4.4 PROPPATCH, §4.5).
func marshalEmptyPropMultistatus(href string) ([]byte, error) {
	ms := multistatus{
		XmlnsD: "DAV:",
		Responses: []response{{
			Href: pathutil.EncodeHref(href),
			Propstat: propstat{
				Prop:   prop{},
				Status: "HTTP/1.1 207 Multi-Status",
			},
		}},
	}
	body, err := xml.Marshal(ms)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), body...), nil
}

// contentRangeHeader formats the Content-Range value for a ranged GET/HEAD
// (spec §4.4 GET).
func contentRangeHeader(start, end, total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, end, total)
}
