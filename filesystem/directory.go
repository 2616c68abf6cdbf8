package filesystem

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"
)

// Directory is a node of the tree. Files and subdirectories live in separate
// name spaces, so a file and a subdirectory may share a name.
//
// Lookups are lock-free; mu serializes child-set mutations so that the
// uniqueness and capacity checks and the insert happen as one step.
type Directory struct {
	id      uint64     // immutable; numbered apart from file inodes
	name    string     // immutable
	parent  *Directory // immutable; nil for the root
	created time.Time  // immutable
	mu      sync.Mutex
	dirs    *xsync.Map[string, *Directory]
	files   *xsync.Map[string, *File]
}

func newDirectory(id uint64, name string, parent *Directory, now time.Time) *Directory {
	return &Directory{
		id:      id,
		name:    name,
		parent:  parent,
		created: now,
		dirs:    xsync.NewMap[string, *Directory](),
		files:   xsync.NewMap[string, *File](),
	}
}

// ID returns the directory number; the root is [fuse.FUSE_ROOT_ID].
func (d *Directory) ID() uint64 {
	return d.id
}

func (d *Directory) Name() string {
	return d.name
}

// Parent returns the parent directory; nil for the root.
func (d *Directory) Parent() *Directory {
	return d.parent
}

func (d *Directory) IsRoot() bool {
	return d.parent == nil
}

// Path returns the absolute path of d. The root is "/" and its name never
// appears as a segment.
func (d *Directory) Path() string {
	var segs []string
	for cur := d; !cur.IsRoot(); cur = cur.parent {
		segs = append(segs, cur.name)
	}
	slices.Reverse(segs)
	return "/" + strings.Join(segs, "/")
}

// FindChildDir looks up an immediate subdirectory by exact name.
func (d *Directory) FindChildDir(name string) (*Directory, error) {
	if child, ok := d.dirs.Load(name); ok {
		return child, nil
	}
	return nil, fmt.Errorf("directory %q: %w", name, ErrNotFound)
}

// FindChildFile looks up an immediate file by exact name.
func (d *Directory) FindChildFile(name string) (*File, error) {
	if child, ok := d.files.Load(name); ok {
		return child, nil
	}
	return nil, fmt.Errorf("file %q: %w", name, ErrNotFound)
}

// DirCount returns the number of subdirectories.
func (d *Directory) DirCount() int {
	return d.dirs.Size()
}

// FileCount returns the number of files.
func (d *Directory) FileCount() int {
	return d.files.Size()
}

// Dirs returns the subdirectories sorted by name.
func (d *Directory) Dirs() []*Directory {
	dirs := make([]*Directory, 0, d.dirs.Size())
	d.dirs.Range(func(_ string, child *Directory) bool {
		dirs = append(dirs, child)
		return true
	})
	slices.SortFunc(dirs, func(a, b *Directory) int { return strings.Compare(a.name, b.name) })
	return dirs
}

// Files returns the files sorted by name.
func (d *Directory) Files() []*File {
	files := make([]*File, 0, d.files.Size())
	d.files.Range(func(_ string, child *File) bool {
		files = append(files, child)
		return true
	})
	slices.SortFunc(files, func(a, b *File) int { return strings.Compare(a.Name(), b.Name()) })
	return files
}

// Attr returns the directory's attributes in fuse wire form. Directories carry
// no mode of their own and report rwxr-xr-x.
func (d *Directory) Attr() fuse.Attr {
	attr := newAttr(d.id, d.created, d.created, d.created)
	attr.Mode = fuse.S_IFDIR | 0o755
	attr.Nlink = uint32(2 + d.dirs.Size())
	return attr
}
