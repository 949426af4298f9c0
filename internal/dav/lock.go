package dav

import "net/http"

// Lock implements LOCK (spec §4.4 Non-goals): this gateway does not
// implement RFC 4918 locking, and answers 501 Not Implemented rather than
// faking lock tokens a client would rely on.
func (h *Handlers) Lock(w http.ResponseWriter, r *http.Request) {
	NewResponseBuilder(w).Empty(http.StatusNotImplemented)
}

// Unlock implements UNLOCK (spec §4.4 Non-goals), mirroring Lock.
func (h *Handlers) Unlock(w http.ResponseWriter, r *http.Request) {
	NewResponseBuilder(w).Empty(http.StatusNotImplemented)
}
