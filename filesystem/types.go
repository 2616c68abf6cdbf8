package filesystem

import (
	"fmt"
	"strings"
)

// FileType is an advisory tag; no operation enforces it.
type FileType uint8

const (
	FileText FileType = iota
	FileBinary
	FileNumeric
	FileProgram
)

// String returns a string representation of the file type
func (t FileType) String() string {
	switch t {
	case FileText:
		return "text"
	case FileBinary:
		return "binary"
	case FileNumeric:
		return "numeric"
	case FileProgram:
		return "program"
	default:
		return "unknown"
	}
}

// ParseFileType is the inverse of [FileType.String].
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return FileText, nil
	case "binary":
		return FileBinary, nil
	case "numeric":
		return FileNumeric, nil
	case "program":
		return FileProgram, nil
	default:
		return 0, fmt.Errorf("unknown file type %q", s)
	}
}
