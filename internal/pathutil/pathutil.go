// Package pathutil canonicalizes WebDAV request paths: percent-decoding,
// trailing-slash stripping, and Unicode normalization so that a name typed
// on macOS (NFD) matches the same name stored by a backend that keys on
// NFC (spec §9 "Path canonicalization").
package pathutil

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonicalize percent-decodes raw once, NFC-normalizes it, and strips any
// trailing slash except for the root "/".
func Canonicalize(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	if decoded == "" {
		decoded = "/"
	}
	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}
	decoded = norm.NFC.String(decoded)
	if decoded != "/" {
		decoded = strings.TrimSuffix(decoded, "/")
		if decoded == "" {
			decoded = "/"
		}
	}
	return decoded, nil
}

// Dirname returns the parent of p ("/" for top-level entries), POSIX-style.
func Dirname(p string) string {
	if p == "/" {
		return "/"
	}
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

// Basename returns the final path segment of p.
func Basename(p string) string {
	if p == "/" {
		return "/"
	}
	i := strings.LastIndexByte(p, '/')
	return p[i+1:]
}

// IsTraversal reports whether a decoded destination path attempts to climb
// out of the namespace root (spec §4.4 COPY/MOVE, §8 boundary behaviors).
func IsTraversal(p string) bool {
	return strings.HasPrefix(p, "..") || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../")
}

// EncodeHref percent-encodes a canonical path for use inside an <D:href>
// element, preserving the leading slash and internal slashes.
func EncodeHref(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
