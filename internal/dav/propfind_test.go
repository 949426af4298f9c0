package dav

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPropfindListsChildren(t *testing.T) {
	h := &Handlers{}

	mkdirReq, st := newTestRequest(t, "MKCOL", "/dir", "")
	h.Mkcol(httptest.NewRecorder(), mkdirReq)

	putReq := httptest.NewRequest(http.MethodPut, "/dir/a.txt", strings.NewReader("x"))
	putReq = withState(putReq, st)
	putReq = withPath(putReq, "/dir/a.txt")
	putRec := httptest.NewRecorder()
	h.Put(putRec, putReq)
	if putRec.Code != http.StatusCreated {
		t.Fatalf("Put Code = %d, want 201: body=%s", putRec.Code, putRec.Body.String())
	}

	pfReq := httptest.NewRequest("PROPFIND", "/dir", nil)
	pfReq.Header.Set("Depth", "1")
	pfReq = withState(pfReq, st)
	pfReq = withPath(pfReq, "/dir")
	pfRec := httptest.NewRecorder()
	h.Propfind(pfRec, pfReq)

	if pfRec.Code != http.StatusMultiStatus {
		t.Fatalf("Propfind Code = %d, want 207: body=%s", pfRec.Code, pfRec.Body.String())
	}
	if !strings.Contains(pfRec.Body.String(), "a.txt") {
		t.Errorf("expected a.txt in the multistatus body, got %s", pfRec.Body.String())
	}
}

func TestPropfindMissingReturns404Multistatus(t *testing.T) {
	h := &Handlers{}
	r, _ := newTestRequest(t, "PROPFIND", "/missing", "")
	rec := httptest.NewRecorder()
	h.Propfind(rec, r)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404") {
		t.Errorf("expected a 404 status line in the body, got %s", rec.Body.String())
	}
}
