package filesystem

import (
	"sync"
	"testing"
	"time"

	"github.com/brettbedarf/minifs/config"
	"github.com/brettbedarf/minifs/storage"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *config.Config {
	return config.NewDefaultConfig()
}

// fakeClock ticks one second per call so timestamp updates are observable.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestFS(t *testing.T, cfg *config.Config) *FileSystem {
	t.Helper()
	if cfg == nil {
		cfg = createTestConfig()
	}
	fs, err := NewFS(cfg)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	fs.SetClock(clock.Now)
	return fs
}

// createFileWithContent creates a 644 text file under dir holding data.
func createFileWithContent(t *testing.T, fs *FileSystem, dir *Directory, name string, data []byte) *File {
	t.Helper()
	f, err := fs.Create(dir, name, FileText, 644)
	require.NoError(t, err)
	n, err := fs.Write(Owner, f, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	return f
}

func usedBlocks(fs *FileSystem) int {
	return fs.Stats().UsedBlocks
}

func pattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte('a' + i%26)
	}
	return buf
}

// smallDiskConfig has a 4 block disk of 64 byte blocks.
func smallDiskConfig() *config.Config {
	cfg := createTestConfig()
	cfg.DiskSize = 4 * cfg.BlockSize
	return cfg
}

var _ BlockAllocator = (*storage.BlockStore)(nil)
