package filesystem

import (
	"os"
	"slices"
	"sync"
	"time"

	"github.com/brettbedarf/minifs/storage"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// File is the inode of a regular file: identity, metadata and the ordered
// list of blocks holding its content. The block-backed content is
// authoritative; cache only ever holds a copy of it.
type File struct {
	id      uint64 // immutable
	blksize int    // immutable
	mu      sync.RWMutex
	// Fields below are protected by mu
	name     string
	typ      FileType
	mode     Mode
	size     int
	created  time.Time
	modified time.Time
	accessed time.Time
	blocks   []storage.BlockIndex
	cache    []byte     // nil unless filled by a read since the last store
	parent   *Directory // nil once removed
}

func newFile(id uint64, name string, typ FileType, mode Mode, blksize int, parent *Directory, now time.Time) *File {
	return &File{
		id:       id,
		blksize:  blksize,
		name:     name,
		typ:      typ,
		mode:     mode,
		created:  now,
		modified: now,
		accessed: now,
		parent:   parent,
	}
}

// ID returns the immutable inode number.
func (f *File) ID() uint64 {
	return f.id
}

func (f *File) Name() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.name
}

func (f *File) Type() FileType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.typ
}

func (f *File) Mode() Mode {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mode
}

// Size returns the logical content length in bytes, excluding block padding.
func (f *File) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.size
}

// BlockCount returns the number of blocks the file owns.
func (f *File) BlockCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.blocks)
}

// Blocks returns a copy of the owned block indices in content order.
func (f *File) Blocks() []storage.BlockIndex {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.blocks)
}

func (f *File) Created() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.created
}

func (f *File) Modified() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.modified
}

func (f *File) Accessed() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.accessed
}

// Parent returns the owning directory, or nil after the file was removed.
func (f *File) Parent() *Directory {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.parent
}

// Attr returns a snapshot of the file's attributes in fuse wire form.
func (f *File) Attr() fuse.Attr {
	f.mu.RLock()
	defer f.mu.RUnlock()

	attr := newAttr(f.id, f.created, f.modified, f.accessed)
	attr.Mode = fuse.S_IFREG | f.mode.Perm()
	attr.Size = uint64(f.size)
	attr.Blksize = uint32(f.blksize)
	// fuse counts 512-byte units
	attr.Blocks = uint64((len(f.blocks)*f.blksize + 511) / 512)
	return attr
}

// newAttr returns the attributes shared by files and directories
// NOTE: Make sure to set the Mode field appropriately
func newAttr(ino uint64, ctime, mtime, atime time.Time) fuse.Attr {
	return fuse.Attr{
		Ino:   ino,
		Nlink: 1,
		Owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
		Atime:     uint64(atime.Unix()),
		Mtime:     uint64(mtime.Unix()),
		Ctime:     uint64(ctime.Unix()),
		Atimensec: uint32(atime.Nanosecond()),
		Mtimensec: uint32(mtime.Nanosecond()),
		Ctimensec: uint32(ctime.Nanosecond()),
	}
}
