package filesystem

import (
	"bytes"
	"encoding/hex"
	"errors"

	"github.com/brettbedarf/minifs/internal/util"
	"github.com/zeebo/blake3"
)

// Mkdir creates an empty subdirectory of parent.
func (fs *FileSystem) Mkdir(parent *Directory, name string) (*Directory, error) {
	logger := util.GetLogger("FS.Mkdir")

	name, err := fs.checkName(name)
	if err != nil {
		return nil, opErr("mkdir", name, err)
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	if _, ok := parent.dirs.Load(name); ok {
		return nil, opErr("mkdir", name, ErrAlreadyExists)
	}
	if parent.dirs.Size() >= fs.cfg.MaxChildren {
		logger.Warn().Str("parent", parent.Path()).Int("limit", fs.cfg.MaxChildren).Msg("Directory limit reached")
		return nil, opErr("mkdir", name, ErrCapacityExceeded)
	}

	dir := newDirectory(fs.lastDirID.Add(1), name, parent, fs.now())
	parent.dirs.Store(name, dir)
	logger.Debug().Str("path", dir.Path()).Msg("Created directory")
	return dir, nil
}

// Create adds an empty file to parent. No blocks are allocated until the
// first write.
func (fs *FileSystem) Create(parent *Directory, name string, typ FileType, mode Mode) (*File, error) {
	if !mode.Valid() {
		return nil, opErr("create", name, ErrInvalidMode)
	}
	name, err := fs.checkName(name)
	if err != nil {
		return nil, opErr("create", name, err)
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	f, err := fs.createLocked(parent, name, typ, mode)
	if err != nil {
		return nil, opErr("create", name, err)
	}
	return f, nil
}

// createLocked checks uniqueness and capacity, then inserts a new file.
// Caller must hold parent.mu.
func (fs *FileSystem) createLocked(parent *Directory, name string, typ FileType, mode Mode) (*File, error) {
	logger := util.GetLogger("FS.Create")

	if _, ok := parent.files.Load(name); ok {
		return nil, ErrAlreadyExists
	}
	if parent.files.Size() >= fs.cfg.MaxChildren {
		logger.Warn().Str("parent", parent.Path()).Int("limit", fs.cfg.MaxChildren).Msg("File limit reached")
		return nil, ErrCapacityExceeded
	}

	f := newFile(fs.lastIno.Add(1), name, typ, mode, fs.store.BlockSize(), parent, fs.now())
	parent.files.Store(name, f)
	logger.Debug().Uint64("ino", f.id).Str("name", name).Str("parent", parent.Path()).Msg("Created file")
	return f, nil
}

// Touch creates a text file with the configured default mode when name is
// absent. An existing file only gets its modified time bumped.
func (fs *FileSystem) Touch(parent *Directory, name string) (*File, error) {
	name, err := fs.checkName(name)
	if err != nil {
		return nil, opErr("touch", name, err)
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	if f, ok := parent.files.Load(name); ok {
		f.mu.Lock()
		f.modified = fs.now()
		f.mu.Unlock()
		return f, nil
	}

	f, err := fs.createLocked(parent, name, FileText, Mode(fs.cfg.DefaultMode))
	if err != nil {
		return nil, opErr("touch", name, err)
	}
	return f, nil
}

// Write replaces the content of f with data. It needs write permission for
// user; a removed file is [ErrNotFound]. On a short write (content over
// capacity) the truncated content is committed and n < len(data) is returned
// with [ErrFileTooLarge].
func (fs *FileSystem) Write(user UserClass, f *File, data []byte) (int, error) {
	logger := util.GetLogger("FS.Write")

	f.mu.Lock()
	defer f.mu.Unlock()

	// a removed file must not take blocks nothing can free
	if f.parent == nil {
		return 0, opErr("write", f.name, ErrNotFound)
	}
	if !HasPermission(f.mode, user, ActionWrite) {
		return 0, opErr("write", f.name, ErrPermissionDenied)
	}

	n, err := fs.storeContentLocked(f, data)
	if err != nil && !errors.Is(err, ErrFileTooLarge) {
		logger.Error().Err(err).Uint64("ino", f.id).Int("size", len(data)).Msg("Failed to store content")
		return n, opErr("write", f.name, err)
	}
	f.modified = fs.now()
	logger.Debug().Uint64("ino", f.id).Int("size", n).Int("blocks", len(f.blocks)).Msg("Stored content")
	if err != nil {
		return n, opErr("write", f.name, err)
	}
	return n, nil
}

// Read returns the content of f. It needs read permission for user and
// updates the accessed time.
func (fs *FileSystem) Read(user UserClass, f *File) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.parent == nil {
		return nil, opErr("read", f.name, ErrNotFound)
	}
	if !HasPermission(f.mode, user, ActionRead) {
		return nil, opErr("read", f.name, ErrPermissionDenied)
	}

	data, err := fs.readContentLocked(f)
	if err != nil {
		return nil, opErr("read", f.name, err)
	}
	f.cache = append([]byte(nil), data...)
	f.accessed = fs.now()
	return data, nil
}

// Chmod sets the mode of f. Invalid modes are rejected without change.
func (fs *FileSystem) Chmod(f *File, mode Mode) error {
	logger := util.GetLogger("FS.Chmod")

	if !mode.Valid() {
		return opErr("chmod", f.Name(), ErrInvalidMode)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.parent == nil {
		return opErr("chmod", f.name, ErrNotFound)
	}
	f.mode = mode
	logger.Debug().Uint64("ino", f.id).Str("mode", mode.String()).Msg("Changed mode")
	return nil
}

// lockParent locks the directory owning f and verifies f is still its child
// under name. On success the caller owns parent.mu and must unlock it.
func lockParent(f *File) (*Directory, error) {
	f.mu.RLock()
	parent := f.parent
	f.mu.RUnlock()
	if parent == nil {
		return nil, ErrNotFound
	}

	parent.mu.Lock()
	f.mu.RLock()
	current, ok := parent.files.Load(f.name)
	f.mu.RUnlock()
	if !ok || current != f {
		parent.mu.Unlock()
		return nil, ErrNotFound
	}
	return parent, nil
}

// Remove deletes f from its directory after releasing all its blocks. It
// needs write permission for user. Both happen under the directory and file
// locks, so no block outlives the entry that references it.
func (fs *FileSystem) Remove(user UserClass, f *File) error {
	logger := util.GetLogger("FS.Remove")

	parent, err := lockParent(f)
	if err != nil {
		return opErr("remove", f.Name(), err)
	}
	defer parent.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	if !HasPermission(f.mode, user, ActionWrite) {
		return opErr("remove", f.name, ErrPermissionDenied)
	}

	blocks := len(f.blocks)
	fs.releaseLocked(f)
	parent.files.Delete(f.name)
	f.parent = nil
	logger.Debug().Uint64("ino", f.id).Str("name", f.name).Int("blocks", blocks).Msg("Removed file")
	return nil
}

// Rename gives f a new name within its directory. The new name must not be
// taken by a sibling file.
func (fs *FileSystem) Rename(f *File, newName string) error {
	logger := util.GetLogger("FS.Rename")

	newName, err := fs.checkName(newName)
	if err != nil {
		return opErr("rename", newName, err)
	}

	parent, err := lockParent(f)
	if err != nil {
		return opErr("rename", f.Name(), err)
	}
	defer parent.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	oldName := f.name
	if oldName == newName {
		return nil
	}
	if _, ok := parent.files.Load(newName); ok {
		return opErr("rename", newName, ErrAlreadyExists)
	}

	parent.files.Delete(oldName)
	f.name = newName
	parent.files.Store(newName, f)
	logger.Debug().Uint64("ino", f.id).Str("from", oldName).Str("to", newName).Msg("Renamed file")
	return nil
}

// Copy creates destName next to src with the same type, mode and content in
// freshly allocated blocks. The copy is verified against the source by hash
// before it becomes visible. Reading the source is internal and does not
// require read permission.
func (fs *FileSystem) Copy(src *File, destName string) (*File, error) {
	logger := util.GetLogger("FS.Copy")

	destName, err := fs.checkName(destName)
	if err != nil {
		return nil, opErr("copy", destName, err)
	}

	parent, err := lockParent(src)
	if err != nil {
		return nil, opErr("copy", src.Name(), err)
	}
	defer parent.mu.Unlock()

	if _, ok := parent.files.Load(destName); ok {
		return nil, opErr("copy", destName, ErrAlreadyExists)
	}
	if parent.files.Size() >= fs.cfg.MaxChildren {
		return nil, opErr("copy", destName, ErrCapacityExceeded)
	}

	src.mu.RLock()
	data, err := fs.readContentLocked(src)
	typ, mode := src.typ, src.mode
	src.mu.RUnlock()
	if err != nil {
		return nil, opErr("copy", destName, err)
	}

	dst := newFile(fs.lastIno.Add(1), destName, typ, mode, fs.store.BlockSize(), parent, fs.now())
	dst.mu.Lock()
	defer dst.mu.Unlock()

	if _, err := fs.storeContentLocked(dst, data); err != nil {
		fs.releaseLocked(dst)
		logger.Error().Err(err).Str("src", src.Name()).Str("dst", destName).Msg("Failed to store copy")
		return nil, opErr("copy", destName, err)
	}

	written, err := fs.assembleLocked(dst)
	if err == nil && !bytes.Equal(checksum(data), checksum(written)) {
		err = ErrChecksumMismatch
	}
	if err != nil {
		fs.releaseLocked(dst)
		logger.Error().Err(err).Str("src", src.Name()).Str("dst", destName).Msg("Copy verification failed")
		return nil, opErr("copy", destName, err)
	}

	parent.files.Store(destName, dst)
	logger.Debug().Uint64("src", src.id).Uint64("dst", dst.id).Int("size", dst.size).Msg("Copied file")
	return dst, nil
}

// Checksum returns the hex blake3 digest of the content of f. It needs read
// permission for user and leaves the access time alone.
func (fs *FileSystem) Checksum(user UserClass, f *File) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.parent == nil {
		return "", opErr("checksum", f.name, ErrNotFound)
	}
	if !HasPermission(f.mode, user, ActionRead) {
		return "", opErr("checksum", f.name, ErrPermissionDenied)
	}
	data, err := fs.readContentLocked(f)
	if err != nil {
		return "", opErr("checksum", f.name, err)
	}
	return hex.EncodeToString(checksum(data)), nil
}

func checksum(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}
