package dav

import (
	"net/http/httptest"
	"testing"
)

func TestResponseBuilderEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	b := NewResponseBuilder(rec)
	b.Empty(204)
	if rec.Code != 204 {
		t.Errorf("Code = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Content-Length") != "0" {
		t.Errorf("Content-Length = %q, want 0", rec.Header().Get("Content-Length"))
	}
	if !b.Started {
		t.Error("expected Started to be true")
	}
}

func TestResponseBuilderXML(t *testing.T) {
	rec := httptest.NewRecorder()
	b := NewResponseBuilder(rec)
	b.XML(207, []byte("<a/>"))
	if rec.Code != 207 {
		t.Errorf("Code = %d, want 207", rec.Code)
	}
	if rec.Body.String() != "<a/>" {
		t.Errorf("Body = %q, want <a/>", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestResponseBuilderDoubleWriteGuard(t *testing.T) {
	rec := httptest.NewRecorder()
	b := NewResponseBuilder(rec)
	b.Empty(204)
	b.XML(500, []byte("should not appear"))
	if rec.Code != 204 {
		t.Errorf("Code = %d, want the first status (204) to win", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty: second write should be suppressed", rec.Body.String())
	}
}

func TestResponseBuilderWriteHeaderThenWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	b := NewResponseBuilder(rec)
	b.WriteHeader(200)
	if _, err := b.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rec.Code != 200 {
		t.Errorf("Code = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello" {
		t.Errorf("Body = %q, want hello", rec.Body.String())
	}
}
