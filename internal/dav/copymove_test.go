package dav

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCopyVirtualRequiresDestinationHeader(t *testing.T) {
	h := &Handlers{}
	r, _ := newTestRequest(t, "COPY", "/a.txt", "")
	rec := httptest.NewRecorder()
	h.Copy(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Code = %d, want 400 when Destination is missing", rec.Code)
	}
}

func TestMoveVirtualEntry(t *testing.T) {
	h := &Handlers{}

	putReq, st := newTestRequest(t, http.MethodPut, "/a.txt", "")
	h.Put(httptest.NewRecorder(), putReq)

	mvReq := httptest.NewRequest("MOVE", "/a.txt", nil)
	mvReq.Host = "example.com"
	mvReq.Header.Set("Destination", "http://example.com/b.txt")
	mvReq = withState(mvReq, st)
	mvReq = withPath(mvReq, "/a.txt")
	rec := httptest.NewRecorder()
	h.Move(rec, mvReq)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Move Code = %d, want 201: body=%s", rec.Code, rec.Body.String())
	}
	if _, ok := st.Virtual("/a.txt"); ok {
		t.Error("expected the source to be gone after Move")
	}
	if _, ok := st.Virtual("/b.txt"); !ok {
		t.Error("expected the destination to exist after Move")
	}
}

func TestCopyWithoutOverwriteRefusesExistingDestination(t *testing.T) {
	h := &Handlers{}

	putReqA, st := newTestRequest(t, http.MethodPut, "/a.txt", "")
	h.Put(httptest.NewRecorder(), putReqA)

	putReqB := httptest.NewRequest(http.MethodPut, "/b.txt", nil)
	putReqB = withState(putReqB, st)
	putReqB = withPath(putReqB, "/b.txt")
	h.Put(httptest.NewRecorder(), putReqB)

	cpReq := httptest.NewRequest("COPY", "/a.txt", nil)
	cpReq.Host = "example.com"
	cpReq.Header.Set("Destination", "http://example.com/b.txt")
	cpReq = withState(cpReq, st)
	cpReq = withPath(cpReq, "/a.txt")
	rec := httptest.NewRecorder()
	h.Copy(rec, cpReq)

	if rec.Code != http.StatusForbidden {
		t.Errorf("Code = %d, want 403 without Overwrite:T", rec.Code)
	}
}
