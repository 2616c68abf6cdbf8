package storage

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, blocks, blockSize int) *BlockStore {
	t.Helper()
	s, err := NewBlockStore(blocks*blockSize, blockSize)
	require.NoError(t, err)
	return s
}

func TestNewBlockStore(t *testing.T) {
	t.Parallel()

	s, err := NewBlockStore(8192, 64)
	require.NoError(t, err)
	assert.Equal(t, 128, s.NumBlocks())
	assert.Equal(t, 64, s.BlockSize())
	assert.Equal(t, 128, s.FreeCount())
	assert.Equal(t, 0, s.UsedCount())

	for _, tc := range []struct{ disk, blk int }{{100, 64}, {0, 64}, {64, 0}, {-64, 64}} {
		_, err := NewBlockStore(tc.disk, tc.blk)
		assert.Error(t, err, "disk=%d blk=%d", tc.disk, tc.blk)
	}
}

type op interface {
	Do(*testing.T, *BlockStore)
}

type allocOp struct {
	expIdx BlockIndex
	expErr error
}

func (op allocOp) Do(t *testing.T, s *BlockStore) {
	idx, err := s.Allocate()
	if op.expErr == nil {
		require.NoError(t, err)
	} else {
		require.ErrorIs(t, err, op.expErr)
	}
	require.Equal(t, op.expIdx, idx, "block index returned by allocate")
}

type freeOp struct {
	idx     BlockIndex
	expUsed int
}

func (op freeOp) Do(t *testing.T, s *BlockStore) {
	s.Free(op.idx)
	require.Equal(t, op.expUsed, s.UsedCount())
}

func TestBlockStore_AllocateFree(t *testing.T) {
	t.Parallel()

	type testcase struct {
		name string
		ops  []op
	}

	tcs := []testcase{
		{
			name: "first fit ascending",
			ops: []op{
				allocOp{expIdx: 0},
				allocOp{expIdx: 1},
				allocOp{expIdx: 2},
			},
		},
		{
			name: "reuses lowest freed index",
			ops: []op{
				allocOp{expIdx: 0},
				allocOp{expIdx: 1},
				allocOp{expIdx: 2},
				freeOp{idx: 1, expUsed: 2},
				freeOp{idx: 0, expUsed: 1},
				allocOp{expIdx: 0},
				allocOp{expIdx: 1},
				allocOp{expIdx: 3},
			},
		},
		{
			name: "out of space",
			ops: []op{
				allocOp{expIdx: 0},
				allocOp{expIdx: 1},
				allocOp{expIdx: 2},
				allocOp{expIdx: 3},
				allocOp{expIdx: NoBlock, expErr: ErrOutOfSpace},
				freeOp{idx: 2, expUsed: 3},
				allocOp{expIdx: 2},
			},
		},
		{
			name: "double free is a no-op",
			ops: []op{
				allocOp{expIdx: 0},
				freeOp{idx: 0, expUsed: 0},
				freeOp{idx: 0, expUsed: 0},
				allocOp{expIdx: 0},
			},
		},
		{
			name: "sentinel and out of range free",
			ops: []op{
				allocOp{expIdx: 0},
				freeOp{idx: NoBlock, expUsed: 1},
				freeOp{idx: 99, expUsed: 1},
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestStore(t, 4, 8)
			for _, op := range tc.ops {
				op.Do(t, s)
			}
		})
	}
}

// Occupied count always equals successful allocations minus effective frees,
// and allocate never hands out an occupied block.
func TestBlockStore_RandomAccounting(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 32, 16)
	rng := rand.New(rand.NewSource(7))
	held := map[BlockIndex]bool{}

	for range 2000 {
		if rng.Intn(2) == 0 {
			idx, err := s.Allocate()
			if len(held) == s.NumBlocks() {
				require.ErrorIs(t, err, ErrOutOfSpace)
				continue
			}
			require.NoError(t, err)
			require.False(t, held[idx], "allocate returned occupied block %d", idx)
			held[idx] = true
		} else {
			idx := BlockIndex(rng.Intn(s.NumBlocks()))
			s.Free(idx)
			delete(held, idx)
		}
		require.Equal(t, len(held), s.UsedCount())
		require.Equal(t, s.NumBlocks()-len(held), s.FreeCount())
	}
}

func TestBlockStore_WriteRead(t *testing.T) {
	t.Parallel()

	t.Run("pad zero fills tail", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 2, 8)
		idx, err := s.Allocate()
		require.NoError(t, err)

		_, err = s.Write(idx, []byte("abcdefgh"), 0, false)
		require.NoError(t, err)
		n, err := s.Write(idx, []byte("xy"), 0, true)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		buf, err := s.Read(idx)
		require.NoError(t, err)
		assert.Equal(t, []byte{'x', 'y', 0, 0, 0, 0, 0, 0}, buf)
	})

	t.Run("no pad keeps tail", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 2, 8)
		idx, err := s.Allocate()
		require.NoError(t, err)

		_, err = s.Write(idx, []byte("abcdefgh"), 0, false)
		require.NoError(t, err)
		_, err = s.Write(idx, []byte("XY"), 2, false)
		require.NoError(t, err)

		buf, err := s.Read(idx)
		require.NoError(t, err)
		assert.Equal(t, []byte("abXYefgh"), buf)
	})

	t.Run("write over block end", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 2, 8)
		idx, err := s.Allocate()
		require.NoError(t, err)

		n, err := s.Write(idx, []byte("test"), 6, false)
		assert.ErrorIs(t, err, io.ErrShortWrite)
		assert.Equal(t, 2, n)

		// the neighbouring block is untouched
		other, err := s.Allocate()
		require.NoError(t, err)
		buf, err := s.Read(other)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(make([]byte, 8), buf))
	})

	t.Run("read returns a copy", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 1, 4)
		idx, err := s.Allocate()
		require.NoError(t, err)
		_, err = s.Write(idx, []byte("abcd"), 0, true)
		require.NoError(t, err)

		buf, err := s.Read(idx)
		require.NoError(t, err)
		buf[0] = 'z'
		again, err := s.Read(idx)
		require.NoError(t, err)
		assert.Equal(t, []byte("abcd"), again)
	})

	t.Run("invalid targets", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 2, 8)

		_, err := s.Write(0, []byte("a"), 0, true)
		assert.ErrorIs(t, err, ErrBlockNotAllocated)
		_, err = s.Write(5, []byte("a"), 0, true)
		assert.ErrorIs(t, err, ErrInvalidBlock)
		_, err = s.Write(NoBlock, []byte("a"), 0, true)
		assert.ErrorIs(t, err, ErrInvalidBlock)

		idx, err := s.Allocate()
		require.NoError(t, err)
		_, err = s.Write(idx, []byte("a"), 9, true)
		assert.ErrorIs(t, err, ErrInvalidBlock)

		_, err = s.Read(2)
		assert.ErrorIs(t, err, ErrInvalidBlock)
	})
}

func TestBlockStore_Reallocate(t *testing.T) {
	t.Parallel()

	t.Run("replaces owned blocks first fit", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 6, 4)
		owned, err := s.Reallocate(nil, 3)
		require.NoError(t, err)
		assert.Equal(t, []BlockIndex{0, 1, 2}, owned)

		other, err := s.Allocate()
		require.NoError(t, err)
		assert.Equal(t, BlockIndex(3), other)

		got, err := s.Reallocate(owned, 4)
		require.NoError(t, err)
		assert.Equal(t, []BlockIndex{0, 1, 2, 4}, got)
		assert.Equal(t, 5, s.UsedCount())
	})

	t.Run("counts released blocks toward the pre-flight", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 4, 4)
		owned, err := s.Reallocate(nil, 3)
		require.NoError(t, err)

		got, err := s.Reallocate(owned, 4)
		require.NoError(t, err)
		assert.Len(t, got, 4)
		assert.Equal(t, 0, s.FreeCount())
	})

	t.Run("out of space leaves owned allocated", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 4, 4)
		owned, err := s.Reallocate(nil, 2)
		require.NoError(t, err)
		_, err = s.Allocate()
		require.NoError(t, err)

		got, err := s.Reallocate(owned, 4)
		require.ErrorIs(t, err, ErrOutOfSpace)
		assert.Nil(t, got)
		assert.Equal(t, 3, s.UsedCount())
		for _, idx := range owned {
			assert.True(t, s.IsAllocated(idx))
		}
	})

	t.Run("duplicate and free entries are not double counted", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 2, 4)
		idx, err := s.Allocate()
		require.NoError(t, err)

		_, err = s.Reallocate([]BlockIndex{idx, idx, 1, NoBlock}, 3)
		require.ErrorIs(t, err, ErrOutOfSpace)
		assert.Equal(t, 1, s.UsedCount())
	})

	t.Run("zero blocks frees everything", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, 2, 4)
		owned, err := s.Reallocate(nil, 2)
		require.NoError(t, err)

		got, err := s.Reallocate(owned, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 2, s.FreeCount())
	})
}

func TestBlockStore_ReleaseAndStats(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 8, 16)
	owned, err := s.Reallocate(nil, 5)
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, Stats{BlockSize: 16, TotalBlocks: 8, UsedBlocks: 5, FreeBlocks: 3}, stats)
	assert.Equal(t, 128, stats.TotalBytes())
	assert.Equal(t, 80, stats.UsedBytes())
	assert.Equal(t, 48, stats.FreeBytes())

	s.Release(owned)
	s.Release(owned)
	assert.Equal(t, 8, s.FreeCount())
}
