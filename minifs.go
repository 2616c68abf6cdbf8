// Package minifs is an in-memory filesystem: a block store simulating a
// fixed-size disk, a directory tree of files with owner/group/other
// permissions, and a shell to drive it.
package minifs

import (
	"io"

	"github.com/brettbedarf/minifs/config"
	"github.com/brettbedarf/minifs/filesystem"
	"github.com/brettbedarf/minifs/shell"
)

// New creates an empty filesystem given your config.
func New(cfg *config.Config) (*filesystem.FileSystem, error) {
	return filesystem.NewFS(cfg)
}

// NewSession starts a session at the root of fs.
func NewSession(fs *filesystem.FileSystem) *filesystem.Session {
	return filesystem.NewSession(fs)
}

// NewShell starts a session on fs and returns a shell writing to out.
func NewShell(fs *filesystem.FileSystem, out io.Writer) *shell.Shell {
	return shell.New(filesystem.NewSession(fs), out)
}
