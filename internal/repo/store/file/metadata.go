package file

import (
	"os"
	"time"

	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/storage"
)

// Permission field layout: the low nine rwx bits plus one flag bit each
// for symlinks, setuid and setgid.
const (
	permBits   = 0o777
	permLink   = 0o1000
	permSetuid = 0o2000
	permSetgid = 0o4000
)

// EncodePerm packs mode and the link flag into the stored permission field.
func EncodePerm(mode os.FileMode, isLink bool) uint32 {
	p := uint32(mode.Perm()) & permBits
	if isLink {
		p |= permLink
	}
	if mode&os.ModeSetuid != 0 {
		p |= permSetuid
	}
	if mode&os.ModeSetgid != 0 {
		p |= permSetgid
	}
	return p
}

// DecodePerm is the inverse of EncodePerm.
func DecodePerm(p uint32) (os.FileMode, bool) {
	mode := os.FileMode(p & permBits)
	if p&permSetuid != 0 {
		mode |= os.ModeSetuid
	}
	if p&permSetgid != 0 {
		mode |= os.ModeSetgid
	}
	return mode, p&permLink != 0
}

// metadataOf describes a file for storage. info is the followed stat of the
// file; isLink tells whether the path itself is a symbolic link.
func metadataOf(info os.FileInfo, isLink bool, now time.Time) storage.Metadata {
	attrs := fs.AttrsOf(info)
	return storage.Metadata{
		Perm:  storage.Uint32(EncodePerm(info.Mode(), isLink)),
		Size:  storage.Int64(info.Size()),
		CTime: storage.Int64(attrs.CTime.UnixNano()),
		MTime: storage.Int64(info.ModTime().UnixNano()),
		UID:   storage.Uint32(attrs.UID),
		GID:   storage.Uint32(attrs.GID),
		Stamp: storage.Int64(now.UnixNano()),
	}
}
