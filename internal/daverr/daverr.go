// Package daverr maps the error kinds of spec §7 onto HTTP status codes.
// The Authenticator reports its failures as *Error values of kind
// Unauthenticated; the method handlers write their status codes directly
// and do not return errors of this type.
package daverr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error kinds enumerated in spec §7.
type Kind int

const (
	Internal Kind = iota
	InvalidRequest
	Unauthenticated
	Forbidden
	NotFound
	PreconditionFailed
	NotImplemented
)

// Status returns the HTTP status code spec §7 maps a Kind to.
func (k Kind) Status() int {
	switch k {
	case InvalidRequest:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case PreconditionFailed:
		return http.StatusPreconditionFailed
	case NotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed WebDAV handler error: a Kind (which determines the
// response status) plus an underlying cause safe to log but never sent to
// the client (spec §7: "the server never sends a plaintext error body
// other than Internal server error").
type Error struct {
	Kind Kind
	Op   string // handler tag, e.g. "PUT", "PROPFIND"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, statusText(e.Kind))
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, statusText(e.Kind), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func statusText(k Kind) string { return http.StatusText(k.Status()) }

// New constructs a typed error for handler op with kind k wrapping cause.
func New(op string, k Kind, cause error) *Error {
	return &Error{Kind: k, Op: op, Err: cause}
}

// StatusOf returns the HTTP status for any error: typed *Error values map
// via Kind; anything else is Internal (spec §7's catch-all).
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Status()
	}
	return http.StatusInternalServerError
}
