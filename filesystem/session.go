package filesystem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brettbedarf/minifs/internal/util"
	"github.com/google/uuid"
)

// Session is the acting context of one caller: who is acting (user class)
// and where (current directory cursor). Every permission-gated operation
// resolves against the session's user.
//
// NOTE: Session itself is **not** thread-safe meaning references
// to it should not be shared between goroutines. Separate sessions over the
// same [FileSystem] may be used concurrently.
type Session struct {
	id   string
	fs   *FileSystem
	cwd  *Directory
	user UserClass
}

// NewSession starts a session at the root acting as the configured default
// user class.
func NewSession(fs *FileSystem) *Session {
	user, err := ParseUserClass(fs.cfg.DefaultUser)
	if err != nil {
		user = Owner
	}
	s := &Session{
		id:   uuid.NewString(),
		fs:   fs,
		cwd:  fs.root,
		user: user,
	}
	logger := util.GetLogger("Session")
	logger.Debug().Str("session", s.id).Str("user", user.String()).Msg("Session started")
	return s
}

// ID returns the unique session identifier.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) FS() *FileSystem {
	return s.fs
}

func (s *Session) User() UserClass {
	return s.user
}

func (s *Session) SetUser(user UserClass) {
	s.user = user
}

// Cwd returns the current directory.
func (s *Session) Cwd() *Directory {
	return s.cwd
}

// Pwd returns the absolute path of the current directory.
func (s *Session) Pwd() string {
	return s.cwd.Path()
}

// ResolveDir walks path to a directory. "/" alone or as a prefix starts at
// the root, ".." moves to the parent (the root is its own parent), "." and
// empty segments are skipped; anything else must be an existing
// subdirectory. An empty path is the current directory.
func (s *Session) ResolveDir(path string) (*Directory, error) {
	cur := s.cwd
	if strings.HasPrefix(path, "/") {
		cur = s.fs.root
	}
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if cur.parent != nil {
				cur = cur.parent
			}
		default:
			next, err := cur.FindChildDir(seg)
			if err != nil {
				return nil, opErr("resolve", path, err)
			}
			cur = next
		}
	}
	return cur, nil
}

// Chdir moves the cursor. A failed lookup leaves it in place.
func (s *Session) Chdir(path string) error {
	dir, err := s.ResolveDir(path)
	if err != nil {
		return err
	}
	s.cwd = dir
	return nil
}

// Lookup finds a file of the current directory.
func (s *Session) Lookup(name string) (*File, error) {
	f, err := s.cwd.FindChildFile(name)
	if err != nil {
		return nil, opErr("lookup", name, err)
	}
	return f, nil
}

func (s *Session) Mkdir(name string) (*Directory, error) {
	return s.fs.Mkdir(s.cwd, name)
}

func (s *Session) Create(name string, typ FileType, mode Mode) (*File, error) {
	return s.fs.Create(s.cwd, name, typ, mode)
}

func (s *Session) Touch(name string) (*File, error) {
	return s.fs.Touch(s.cwd, name)
}

// WriteFile replaces the content of name, creating it as a default text
// file first when it does not exist.
func (s *Session) WriteFile(name string, data []byte) (int, error) {
	f, err := s.cwd.FindChildFile(name)
	if errors.Is(err, ErrNotFound) {
		f, err = s.fs.Touch(s.cwd, name)
	}
	if err != nil {
		return 0, err
	}
	return s.fs.Write(s.user, f, data)
}

func (s *Session) ReadFile(name string) ([]byte, error) {
	f, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.fs.Read(s.user, f)
}

func (s *Session) Chmod(name string, mode Mode) error {
	f, err := s.Lookup(name)
	if err != nil {
		return err
	}
	return s.fs.Chmod(f, mode)
}

func (s *Session) Remove(name string) error {
	f, err := s.Lookup(name)
	if err != nil {
		return err
	}
	return s.fs.Remove(s.user, f)
}

func (s *Session) Rename(oldName, newName string) error {
	f, err := s.Lookup(oldName)
	if err != nil {
		return err
	}
	return s.fs.Rename(f, newName)
}

func (s *Session) Copy(srcName, destName string) (*File, error) {
	f, err := s.Lookup(srcName)
	if err != nil {
		return nil, err
	}
	return s.fs.Copy(f, destName)
}

func (s *Session) Checksum(name string) (string, error) {
	f, err := s.Lookup(name)
	if err != nil {
		return "", err
	}
	return s.fs.Checksum(s.user, f)
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s at %s)", s.id, s.user, s.Pwd())
}
