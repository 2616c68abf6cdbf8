// Package storage implements the simulated block device: a fixed byte arena
// divided into equally sized blocks with first-fit allocation.
package storage

import (
	"fmt"
	"io"
	"sync"

	"github.com/brettbedarf/minifs/internal/util"
)

// BlockIndex identifies a block within the arena.
type BlockIndex int

// NoBlock is the sentinel for "no block"; freeing it is a no-op.
const NoBlock BlockIndex = -1

// Stats is a point-in-time snapshot of block usage.
type Stats struct {
	BlockSize   int
	TotalBlocks int
	UsedBlocks  int
	FreeBlocks  int
}

// TotalBytes is the arena capacity in bytes.
func (s Stats) TotalBytes() int { return s.TotalBlocks * s.BlockSize }

// UsedBytes is the number of bytes held by occupied blocks, padding included.
func (s Stats) UsedBytes() int { return s.UsedBlocks * s.BlockSize }

// FreeBytes is the number of bytes in free blocks.
func (s Stats) FreeBytes() int { return s.FreeBlocks * s.BlockSize }

// BlockStore is the authoritative allocator and storage for all file blocks.
// It is safe for concurrent use; every method takes the store lock.
type BlockStore struct {
	mu        sync.Mutex
	disk      []byte
	used      []bool // occupancy per block index
	usedCount int
	blockSize int
}

// NewBlockStore creates a zeroed arena of diskSize bytes split into blocks of
// blockSize bytes. diskSize must be a positive multiple of blockSize.
func NewBlockStore(diskSize, blockSize int) (*BlockStore, error) {
	if blockSize <= 0 || diskSize <= 0 || diskSize%blockSize != 0 {
		return nil, fmt.Errorf("disk size %d is not a positive multiple of block size %d", diskSize, blockSize)
	}
	return &BlockStore{
		disk:      make([]byte, diskSize),
		used:      make([]bool, diskSize/blockSize),
		blockSize: blockSize,
	}, nil
}

// BlockSize returns the fixed block size in bytes.
func (s *BlockStore) BlockSize() int {
	return s.blockSize
}

// NumBlocks returns the total number of blocks in the arena.
func (s *BlockStore) NumBlocks() int {
	return len(s.used)
}

// FreeCount returns the number of free blocks.
func (s *BlockStore) FreeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.used) - s.usedCount
}

// UsedCount returns the number of occupied blocks.
func (s *BlockStore) UsedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedCount
}

// Stats returns a consistent snapshot of block usage.
func (s *BlockStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		BlockSize:   s.blockSize,
		TotalBlocks: len(s.used),
		UsedBlocks:  s.usedCount,
		FreeBlocks:  len(s.used) - s.usedCount,
	}
}

// IsAllocated reports whether idx is a valid, occupied block.
func (s *BlockStore) IsAllocated(idx BlockIndex) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inRange(idx) && s.used[idx]
}

func (s *BlockStore) inRange(idx BlockIndex) bool {
	return idx >= 0 && int(idx) < len(s.used)
}

// Allocate marks the lowest free block as occupied and returns its index.
// Returns [ErrOutOfSpace] when every block is occupied.
func (s *BlockStore) Allocate() (BlockIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocateLocked()
}

// allocateLocked is first-fit by ascending index.
// Caller must hold s.mu.
func (s *BlockStore) allocateLocked() (BlockIndex, error) {
	for i, inUse := range s.used {
		if !inUse {
			s.used[i] = true
			s.usedCount++
			return BlockIndex(i), nil
		}
	}
	return NoBlock, ErrOutOfSpace
}

// Free marks idx as free. Freeing an already free block, [NoBlock] or an
// out of range index is a no-op.
func (s *BlockStore) Free(idx BlockIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeLocked(idx)
}

// freeLocked reports whether idx was occupied.
// Caller must hold s.mu.
func (s *BlockStore) freeLocked(idx BlockIndex) bool {
	if !s.inRange(idx) || !s.used[idx] {
		return false
	}
	s.used[idx] = false
	s.usedCount--
	return true
}

// Release frees every block in owned under a single lock.
func (s *BlockStore) Release(owned []BlockIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idx := range owned {
		s.freeLocked(idx)
	}
}

// Reallocate atomically releases owned and allocates n fresh blocks first-fit.
// Before anything is mutated it checks that the free blocks plus the blocks
// being released cover n; otherwise it returns [ErrOutOfSpace] and owned is
// left allocated.
func (s *BlockStore) Reallocate(owned []BlockIndex, n int) ([]BlockIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	releasable := 0
	seen := make(map[BlockIndex]struct{}, len(owned))
	for _, idx := range owned {
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		if s.inRange(idx) && s.used[idx] {
			releasable++
		}
	}
	if free := len(s.used) - s.usedCount; free+releasable < n {
		logger := util.GetLogger("BlockStore.Reallocate")
		logger.Warn().
			Int("needed", n).
			Int("free", free).
			Int("releasable", releasable).
			Msg("Not enough free blocks")
		return nil, fmt.Errorf("need %d blocks, %d available: %w", n, free+releasable, ErrOutOfSpace)
	}

	for _, idx := range owned {
		s.freeLocked(idx)
	}
	blocks := make([]BlockIndex, 0, n)
	for range n {
		idx, err := s.allocateLocked()
		if err != nil {
			// unreachable after the pre-flight check
			for _, b := range blocks {
				s.freeLocked(b)
			}
			return nil, err
		}
		blocks = append(blocks, idx)
	}
	return blocks, nil
}

// Write copies p into block idx starting at off. Bytes that do not fit in
// the block are dropped and [io.ErrShortWrite] is returned with the count
// written. With pad set, the block tail after the written bytes is zeroed,
// which is how the final block of a file is written.
func (s *BlockStore) Write(idx BlockIndex, p []byte, off int, pad bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRange(idx) || off < 0 || off > s.blockSize {
		return 0, fmt.Errorf("write block %d at offset %d: %w", idx, off, ErrInvalidBlock)
	}
	if !s.used[idx] {
		return 0, fmt.Errorf("write block %d: %w", idx, ErrBlockNotAllocated)
	}

	blk := s.block(idx)
	n := copy(blk[off:], p)
	if pad {
		clear(blk[off+n:])
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Read returns a copy of the full contents of block idx.
func (s *BlockStore) Read(idx BlockIndex) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRange(idx) {
		return nil, fmt.Errorf("read block %d: %w", idx, ErrInvalidBlock)
	}
	buf := make([]byte, s.blockSize)
	copy(buf, s.block(idx))
	return buf, nil
}

// block returns the live slice of the arena backing idx.
// Caller must hold s.mu.
func (s *BlockStore) block(idx BlockIndex) []byte {
	start := int(idx) * s.blockSize
	return s.disk[start : start+s.blockSize : start+s.blockSize]
}
