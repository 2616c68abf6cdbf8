package filesystem

import (
	"errors"
	"testing"

	"github.com/brettbedarf/minifs/internal/mocks"
	"github.com/brettbedarf/minifs/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	t.Parallel()

	// default block size is 64 with 16 blocks per file
	tests := []struct {
		name   string
		size   int
		blocks int
	}{
		{"empty", 0, 0},
		{"one byte", 1, 1},
		{"short of one block", 63, 1},
		{"exactly one block", 64, 1},
		{"one past a block", 65, 2},
		{"several blocks", 300, 5},
		{"full capacity", 1024, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := newTestFS(t, nil)
			f, err := fs.Create(fs.Root(), "f", FileText, 644)
			require.NoError(t, err)

			data := pattern(tt.size)
			n, err := fs.Write(Owner, f, data)
			require.NoError(t, err)
			assert.Equal(t, tt.size, n)
			assert.Equal(t, tt.size, f.Size())
			assert.Equal(t, tt.blocks, f.BlockCount())
			assert.Equal(t, tt.blocks, usedBlocks(fs))

			got, err := fs.Read(Owner, f)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestWrite_Oversize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{1025, 2000} {
		fs := newTestFS(t, nil)
		f, err := fs.Create(fs.Root(), "big", FileText, 644)
		require.NoError(t, err)

		data := pattern(size)
		n, err := fs.Write(Owner, f, data)
		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
		assert.Equal(t, 1024, n)
		assert.Equal(t, 1024, f.Size())
		assert.Equal(t, 16, f.BlockCount())

		got, err := fs.Read(Owner, f)
		require.NoError(t, err)
		assert.Equal(t, data[:1024], got)
	}
}

func TestWrite_ReplacesBlocks(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t, nil)
	f := createFileWithContent(t, fs, fs.Root(), "f", pattern(640))
	require.Equal(t, 10, usedBlocks(fs))

	n, err := fs.Write(Owner, f, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, f.BlockCount())
	assert.Equal(t, 1, usedBlocks(fs))

	n, err = fs.Write(Owner, f, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.BlockCount())
	assert.Equal(t, 0, usedBlocks(fs))
}

func TestWrite_PadsLastBlock(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t, nil)
	f := createFileWithContent(t, fs, fs.Root(), "f", pattern(64))
	_, err := fs.Write(Owner, f, []byte("hello"))
	require.NoError(t, err)

	blocks := f.Blocks()
	require.Len(t, blocks, 1)
	raw, err := fs.store.Read(blocks[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), raw[:5])
	assert.Equal(t, make([]byte, 59), raw[5:])
}

func TestWrite_OutOfSpace(t *testing.T) {
	t.Parallel()

	t.Run("new file leaves store untouched", func(t *testing.T) {
		t.Parallel()
		fs := newTestFS(t, smallDiskConfig())
		a := createFileWithContent(t, fs, fs.Root(), "a", pattern(3*64))
		b, err := fs.Create(fs.Root(), "b", FileText, 644)
		require.NoError(t, err)

		n, err := fs.Write(Owner, b, pattern(2*64))
		assert.ErrorIs(t, err, ErrOutOfSpace)
		assert.Equal(t, 0, n)
		assert.Equal(t, 0, b.Size())
		assert.Equal(t, 0, b.BlockCount())
		assert.Equal(t, 3, usedBlocks(fs))

		got, err := fs.Read(Owner, a)
		require.NoError(t, err)
		assert.Equal(t, pattern(3*64), got)
	})

	t.Run("rewrite keeps previous content", func(t *testing.T) {
		t.Parallel()
		fs := newTestFS(t, smallDiskConfig())
		createFileWithContent(t, fs, fs.Root(), "a", pattern(2*64))
		b := createFileWithContent(t, fs, fs.Root(), "b", []byte("previous"))
		before := b.Blocks()

		_, err := fs.Write(Owner, b, pattern(4*64))
		assert.ErrorIs(t, err, ErrOutOfSpace)
		assert.Equal(t, before, b.Blocks())
		assert.Equal(t, 3, usedBlocks(fs))

		got, err := fs.Read(Owner, b)
		require.NoError(t, err)
		assert.Equal(t, []byte("previous"), got)
	})

	t.Run("rewrite may reuse own blocks", func(t *testing.T) {
		t.Parallel()
		fs := newTestFS(t, smallDiskConfig())
		createFileWithContent(t, fs, fs.Root(), "a", pattern(2*64))
		b := createFileWithContent(t, fs, fs.Root(), "b", pattern(2*64))

		n, err := fs.Write(Owner, b, pattern(2*64))
		require.NoError(t, err)
		assert.Equal(t, 128, n)
		assert.Equal(t, 4, usedBlocks(fs))
	})
}

func TestWrite_StoreFailure(t *testing.T) {
	t.Parallel()

	store := new(mocks.MockBlockAllocator)
	store.On("BlockSize").Return(4)
	owned := []storage.BlockIndex{0, 1}
	store.On("Reallocate", mock.Anything, 2).Return(owned, nil)
	store.On("Write", storage.BlockIndex(0), []byte("abcd"), 0, false).Return(4, nil)
	store.On("Write", storage.BlockIndex(1), []byte("ef"), 0, true).Return(0, errors.New("disk on fire"))
	store.On("Release", owned).Return()

	fs := NewFSWithStore(createTestConfig(), store)
	f, err := fs.Create(fs.Root(), "f", FileText, 644)
	require.NoError(t, err)

	n, err := fs.Write(Owner, f, []byte("abcdef"))
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.Size())
	assert.Equal(t, 0, f.BlockCount())
	store.AssertExpectations(t)
}

func TestWrite_OutOfSpaceFromAllocator(t *testing.T) {
	t.Parallel()

	store := new(mocks.MockBlockAllocator)
	store.On("BlockSize").Return(64)
	store.On("Reallocate", mock.Anything, 1).Return(nil, storage.ErrOutOfSpace)

	fs := NewFSWithStore(createTestConfig(), store)
	f, err := fs.Create(fs.Root(), "f", FileText, 644)
	require.NoError(t, err)
	mtime := f.Modified()

	_, err = fs.Write(Owner, f, []byte("x"))
	assert.ErrorIs(t, err, ErrOutOfSpace)
	assert.Equal(t, mtime, f.Modified())
	store.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestRead_Cache(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t, nil)
	f := createFileWithContent(t, fs, fs.Root(), "f", []byte("first"))

	got, err := fs.Read(Owner, f)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	// the returned slice is a copy
	got[0] = 'X'
	again, err := fs.Read(Owner, f)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), again)

	_, err = fs.Write(Owner, f, []byte("second"))
	require.NoError(t, err)
	got, err = fs.Read(Owner, f)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}
