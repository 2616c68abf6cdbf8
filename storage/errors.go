package storage

import "errors"

var (
	// ErrOutOfSpace occurs when the store has no free block left for an
	// allocation.
	ErrOutOfSpace = errors.New("out of space")

	// ErrInvalidBlock occurs when a block index is outside the arena or an
	// in-block offset is outside the block.
	ErrInvalidBlock = errors.New("invalid block")

	// ErrBlockNotAllocated occurs when a free block is written to.
	ErrBlockNotAllocated = errors.New("block not allocated")
)
