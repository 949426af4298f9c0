// Package backend declares the Store interface that stands in for the
// encrypting cloud SDK described in spec §6. The gateway never implements
// encryption, chunking, or cloud transport itself — those concerns belong
// to whatever Store is plugged in at construction time (see
// backend/localstore for the disk-backed reference implementation used by
// tests and the quickstart binary).
package backend

import (
	"context"
	"errors"
	"io"

	"github.com/atlasdrive/webdav/internal/resource"
)

// ErrNotFound is returned by Stat/Rename/Unlink/etc. when the path does not
// exist in the backend. Resolvers translate it into an absent Resource;
// every other error surfaces as 500 (spec §7).
var ErrNotFound = errors.New("backend: not found")

// Stat describes a single entry as reported by the backend, mirroring the
// SDK `Stats` shape in spec §6.
type Stat struct {
	UUID         string
	Kind         resource.Kind
	Name         string
	Size         int64
	MtimeMs      int64
	BirthtimeMs  int64
	Mime         string
	Key          string
	Bucket       string
	Region       string
	Version      int
	Chunks       int
	Hash         string
}

// Quota is the aggregated capacity/usage pair behind statfs (spec §4.6, §8).
type Quota struct {
	Used uint64
	Max  uint64
}

// UploadResult is returned by an UploadStream call on success.
type UploadResult struct {
	UUID         string
	Kind         resource.Kind
	Size         int64
	LastModified int64
	Creation     int64
	Hash         string
	Key          string
	Bucket       string
	Region       string
	Version      int
	Chunks       int
	Mime         string
}

// MetadataPatch carries the fields PROPPATCH is allowed to mutate plus the
// identifying fields the backend needs to locate the file (spec §4.4
// PROPPATCH, backend.editFileMetadata).
type MetadataPatch struct {
	Name         string
	Key          string
	LastModified int64
	Creation     int64
	Hash         string
	Size         int64
	Mime         string
}

// Store is the backend SDK contract consumed by the gateway (spec §6). It
// is intentionally narrow: directory walking, chunked upload/download, and
// metadata indexing are the only operations MethodHandlers need.
type Store interface {
	Stat(ctx context.Context, p string) (*Stat, error)
	ReadDir(ctx context.Context, p string) ([]string, error)
	Mkdir(ctx context.Context, p string) error
	Rename(ctx context.Context, from, to string) error
	Copy(ctx context.Context, from, to string) error
	Unlink(ctx context.Context, p string, permanent bool) error
	StatFS(ctx context.Context) (Quota, error)

	// UploadStream streams body into a new or overwritten file under
	// parent/name, chunking and encrypting internally.
	UploadStream(ctx context.Context, parentUUID, name string, body io.Reader) (*UploadResult, error)

	// DownloadStream opens a byte-range [start, end] (inclusive) read of
	// the file identified by uuid. end == -1 means "to EOF".
	DownloadStream(ctx context.Context, uuid string, start, end int64) (io.ReadCloser, error)

	EditFileMetadata(ctx context.Context, uuid string, patch MetadataPatch) error

	// RemoveItem/AddItem rewrite the backend SDK's own in-memory metadata
	// index so a subsequent Stat sees a just-written file immediately
	// (spec §4.4 PUT step 5, PROPPATCH backend branch).
	RemoveItem(ctx context.Context, p string) error
	AddItem(ctx context.Context, p string, st *Stat) error

	// Login authenticates a proxy-mode user against the backend and
	// returns a session handle plus a channel that is closed when the
	// backend reports the account's password changed (spec §4.2, §3
	// PerUserState lifecycle).
	Login(ctx context.Context, email, password, twoFactorCode string) (Session, error)
}

// Session is the per-user handle returned by Login. Closing it releases
// any backend-side subscription (e.g. the passwordChanged watch).
type Session interface {
	PasswordChanged() <-chan struct{}
	Close() error
}
