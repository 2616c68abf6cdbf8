// Package filesystem implements the directory tree, file inodes, the
// permission model and the file operations over a [storage.BlockStore].
package filesystem

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/brettbedarf/minifs/config"
	"github.com/brettbedarf/minifs/storage"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// BlockAllocator is the part of [storage.BlockStore] the filesystem relies on.
type BlockAllocator interface {
	BlockSize() int
	Reallocate(owned []storage.BlockIndex, n int) ([]storage.BlockIndex, error)
	Release(owned []storage.BlockIndex)
	Write(idx storage.BlockIndex, p []byte, off int, pad bool) (int, error)
	Read(idx storage.BlockIndex) ([]byte, error)
	Stats() storage.Stats
}

type FileSystem struct {
	cfg       *config.Config
	store     BlockAllocator
	root      *Directory    // Root of the directory tree
	lastIno   atomic.Uint64 // Last file inode number assigned
	lastDirID atomic.Uint64 // Last directory number assigned
	now       func() time.Time
}

// NewFS validates cfg and creates an empty filesystem on a fresh block store.
func NewFS(cfg *config.Config) (*FileSystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := storage.NewBlockStore(cfg.DiskSize, cfg.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create block store: %w", err)
	}
	return NewFSWithStore(cfg, store), nil
}

// NewFSWithStore creates an empty filesystem on an existing allocator.
// cfg is trusted as is.
func NewFSWithStore(cfg *config.Config, store BlockAllocator) *FileSystem {
	fs := &FileSystem{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
	fs.lastDirID.Store(fuse.FUSE_ROOT_ID)
	fs.root = newDirectory(fuse.FUSE_ROOT_ID, "/", nil, fs.now())
	return fs
}

// Root returns the root directory.
func (fs *FileSystem) Root() *Directory {
	return fs.root
}

// Config returns the configuration the filesystem was built with.
func (fs *FileSystem) Config() *config.Config {
	return fs.cfg
}

// Stats returns a snapshot of block usage.
func (fs *FileSystem) Stats() storage.Stats {
	return fs.store.Stats()
}

// SetClock replaces the time source used for timestamps.
func (fs *FileSystem) SetClock(now func() time.Time) {
	fs.now = now
}

// checkName rejects names that cannot be a single path segment and truncates
// names longer than MaxNameLen bytes on a rune boundary. A rejected name is
// returned unchanged along with the error.
func (fs *FileSystem) checkName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return name, ErrInvalidName
	}
	if len(name) <= fs.cfg.MaxNameLen {
		return name, nil
	}
	cut := fs.cfg.MaxNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut], nil
}
