// Package scratch computes disk-scratch tier identifiers: whether a path
// matches the admin-configured "do not upload" glob (spec §3, §6), and the
// sanitized on-disk file name derived from a user+path hash.
package scratch

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"regexp"
	"strings"
)

// reservedWindowsNames are device names Windows refuses to use as a file
// name regardless of extension (spec §6 "sanitization ... strips ...
// reserved Windows device names").
var reservedWindowsNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// Matches reports whether p (its base name) matches any of the configured
// glob patterns, used to route a PUT into the disk-scratch tier instead of
// the backend (spec §4.4 PUT, §6 tempFilesToStoreOnDisk).
func Matches(patterns []string, p string) bool {
	base := path.Base(p)
	for _, pat := range patterns {
		if ok, err := path.Match(pat, base); err == nil && ok {
			return true
		}
	}
	return false
}

// TempDiskID derives the sanitized scratch file name for username+path
// (spec §6: `sanitize(hash(username + "_" + path))`).
func TempDiskID(username, p string) string {
	sum := sha256.Sum256([]byte(username + "_" + p))
	return Sanitize(hex.EncodeToString(sum[:]))
}

// Sanitize strips control characters, rejects reserved Windows device
// names (by returning a safe fallback), and truncates to 255 bytes (spec
// §6).
func Sanitize(name string) string {
	cleaned := controlChars.ReplaceAllString(name, "")
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, cleaned)

	upper := strings.ToUpper(cleaned)
	if dot := strings.IndexByte(upper, '.'); dot >= 0 {
		upper = upper[:dot]
	}
	if reservedWindowsNames[upper] {
		cleaned = "_" + cleaned
	}

	if len(cleaned) > 255 {
		cleaned = cleaned[:255]
	}
	if cleaned == "" {
		cleaned = "_"
	}
	return cleaned
}
