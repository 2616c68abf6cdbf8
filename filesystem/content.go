package filesystem

import (
	"fmt"

	"github.com/brettbedarf/minifs/internal/util"
	"github.com/brettbedarf/minifs/storage"
)

// storeContentLocked replaces the content of f with data. The old blocks are
// released and the new ones allocated as one step, so running out of space
// leaves the previous content untouched. Data beyond the block list capacity
// is dropped and reported as a short write with [ErrFileTooLarge].
// Caller must hold f.mu.Lock().
func (fs *FileSystem) storeContentLocked(f *File, data []byte) (int, error) {
	logger := util.GetLogger("FS.storeContent")

	bs := fs.store.BlockSize()
	n := len(data)
	truncated := false
	if limit := fs.cfg.MaxFileBlocks * bs; n > limit {
		logger.Warn().
			Uint64("ino", f.id).
			Int("size", n).
			Int("limit", limit).
			Msg("Content exceeds block list capacity; truncating")
		n = limit
		truncated = true
	}

	needed := (n + bs - 1) / bs
	blocks, err := fs.store.Reallocate(f.blocks, needed)
	if err != nil {
		return 0, err
	}

	for i, idx := range blocks {
		end := min((i+1)*bs, n)
		last := i == len(blocks)-1
		if _, err := fs.store.Write(idx, data[i*bs:end], 0, last); err != nil {
			// old blocks are already gone; leave a consistent empty file
			fs.store.Release(blocks)
			f.blocks = nil
			f.size = 0
			f.cache = nil
			return 0, fmt.Errorf("failed to write block %d: %w", idx, err)
		}
	}

	f.blocks = blocks
	f.size = n
	f.cache = nil

	if truncated {
		return n, ErrFileTooLarge
	}
	return n, nil
}

// readContentLocked returns the logical content of f: the cache when filled,
// otherwise the owned blocks concatenated in order and cut to f.size.
// Caller must hold f.mu (read or write).
func (fs *FileSystem) readContentLocked(f *File) ([]byte, error) {
	if f.cache != nil {
		return append([]byte(nil), f.cache...), nil
	}
	return fs.assembleLocked(f)
}

// assembleLocked rebuilds content from blocks only.
// Caller must hold f.mu (read or write).
func (fs *FileSystem) assembleLocked(f *File) ([]byte, error) {
	buf := make([]byte, 0, f.size)
	for _, idx := range f.blocks {
		if len(buf) >= f.size {
			break
		}
		if idx == storage.NoBlock {
			continue
		}
		blk, err := fs.store.Read(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to read block %d: %w", idx, err)
		}
		buf = append(buf, blk[:min(len(blk), f.size-len(buf))]...)
	}
	return buf, nil
}

// releaseLocked frees every owned block and drops the cache.
// Caller must hold f.mu.Lock().
func (fs *FileSystem) releaseLocked(f *File) {
	fs.store.Release(f.blocks)
	f.blocks = nil
	f.size = 0
	f.cache = nil
}
