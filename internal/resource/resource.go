// Package resource defines the tagged Resource type shared by every tier
// of the namespace overlay (backend, virtual, disk) and the helpers that
// derive its WebDAV-facing fields (url, mime, displayname).
package resource

import (
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tier identifies which of the three overlay layers owns a Resource.
type Tier int

const (
	// TierBackend resources are canonical and live in the remote encrypted store.
	TierBackend Tier = iota
	// TierVirtual resources are zero-byte placeholders created by an empty PUT.
	TierVirtual
	// TierDisk resources are plaintext scratch files matching the "do not upload" glob.
	TierDisk
)

func (t Tier) String() string {
	switch t {
	case TierBackend:
		return "backend"
	case TierVirtual:
		return "virtual"
	case TierDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Kind distinguishes files from directories.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

// Resource is the tagged union described in spec §3. Backend fields
// (Bucket, Region, Key) are populated only when Tier == TierBackend; Version
// is also set (to 2) on virtual placeholders; TempDiskID is populated only
// when Tier == TierDisk.
type Resource struct {
	UUID        string
	Kind        Kind
	Path        string // absolute POSIX path, no trailing slash except root
	Name        string
	Mime        string
	Size        int64
	Chunks      int
	MtimeMs     int64
	BirthtimeMs int64
	LastModified time.Time
	Creation     time.Time
	Hash         string

	Tier Tier

	// Backend-tier only.
	Bucket  string
	Region  string
	Version int
	Key     string

	// Disk-tier only.
	TempDiskID string
}

// IsDir reports whether the resource is a directory.
func (r *Resource) IsDir() bool { return r.Kind == KindDirectory }

// URL computes the href per spec §3: path+"/" for non-root directories, "/"
// for the root, and path unchanged for files.
func (r *Resource) URL() string {
	if r.Kind != KindDirectory {
		return r.Path
	}
	if r.Path == "/" {
		return "/"
	}
	return r.Path + "/"
}

// NewVirtual synthesizes the zero-byte placeholder created by an empty PUT.
func NewVirtual(p string) *Resource {
	now := time.Now()
	return &Resource{
		UUID:         uuid.NewString(),
		Kind:         KindFile,
		Path:         p,
		Name:         path.Base(p),
		Mime:         mimeByName(p),
		Size:         0,
		Chunks:       1,
		Version:      2,
		MtimeMs:      now.UnixMilli(),
		BirthtimeMs:  now.UnixMilli(),
		LastModified: now,
		Creation:     now,
		Tier:         TierVirtual,
	}
}

// NewDisk builds the scratch-tier Resource recorded after a PUT body has
// been spooled to the local disk cache.
func NewDisk(p string, size int64, chunks int, tempDiskID string) *Resource {
	now := time.Now()
	return &Resource{
		UUID:         uuid.NewString(),
		Kind:         KindFile,
		Path:         p,
		Name:         path.Base(p),
		Mime:         mimeByName(p),
		Size:         size,
		Chunks:       chunks,
		MtimeMs:      now.UnixMilli(),
		BirthtimeMs:  now.UnixMilli(),
		LastModified: now,
		Creation:     now,
		Tier:         TierDisk,
		TempDiskID:   tempDiskID,
	}
}

func mimeByName(p string) string {
	if ext := path.Ext(p); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			// mime.TypeByExtension may append a charset parameter; WebDAV
			// clients expect the bare content type here.
			if i := strings.IndexByte(t, ';'); i >= 0 {
				return strings.TrimSpace(t[:i])
			}
			return t
		}
	}
	return "application/octet-stream"
}

// MimeByName exposes the same lookup used internally, for handlers that
// need it directly (e.g. HEAD/GET Content-Type on a backend resource whose
// stored mime is empty).
func MimeByName(p string) string { return mimeByName(p) }
