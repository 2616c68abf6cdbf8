package filesystem

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brettbedarf/minifs/config"
)

// Mode is a permission mode written as three decimal digits (owner, group,
// other), each digit a read(4) write(2) execute(1) mask. 644 is rw-r--r--.
type Mode uint16

// MaxMode is the largest valid mode.
const MaxMode Mode = 777

// Valid reports whether m is within 0-777 with every digit at most 7.
func (m Mode) Valid() bool {
	return config.ValidMode(int(m))
}

// NewMode validates v as a mode.
func NewMode(v int) (Mode, error) {
	if !config.ValidMode(v) {
		return 0, fmt.Errorf("%d: %w", v, ErrInvalidMode)
	}
	return Mode(v), nil
}

// ParseMode parses the decimal mode notation used by chmod, e.g. "750".
func ParseMode(s string) (Mode, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidMode)
	}
	return NewMode(v)
}

// Digit returns the 3-bit mask that applies to user.
func (m Mode) Digit(user UserClass) uint8 {
	switch user {
	case Owner:
		return uint8(m / 100 % 10)
	case Group:
		return uint8(m / 10 % 10)
	default:
		return uint8(m % 10)
	}
}

// Perm converts m to the equivalent octal permission bits, e.g. 644 to 0o644.
func (m Mode) Perm() uint32 {
	return uint32(m.Digit(Owner))<<6 | uint32(m.Digit(Group))<<3 | uint32(m.Digit(Other))
}

// String renders m symbolically, e.g. 750 as "rwxr-x---".
func (m Mode) String() string {
	var b strings.Builder
	for _, user := range []UserClass{Owner, Group, Other} {
		d := m.Digit(user)
		for _, a := range []struct {
			bit Action
			c   byte
		}{{ActionRead, 'r'}, {ActionWrite, 'w'}, {ActionExecute, 'x'}} {
			if d&uint8(a.bit) != 0 {
				b.WriteByte(a.c)
			} else {
				b.WriteByte('-')
			}
		}
	}
	return b.String()
}

// UserClass is the axis permissions are resolved against.
type UserClass uint8

const (
	Owner UserClass = iota
	Group
	Other
)

func (u UserClass) String() string {
	switch u {
	case Owner:
		return "owner"
	case Group:
		return "group"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// ParseUserClass accepts owner, group or other (also u, g, o).
func ParseUserClass(s string) (UserClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner", "u", "user":
		return Owner, nil
	case "group", "g":
		return Group, nil
	case "other", "others", "o":
		return Other, nil
	default:
		return 0, fmt.Errorf("unknown user class %q", s)
	}
}

// Action is the bit an operation needs in the acting user's digit.
type Action uint8

const (
	ActionExecute Action = 1
	ActionWrite   Action = 2
	ActionRead    Action = 4
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionWrite:
		return "write"
	case ActionExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// HasPermission selects the digit of mode for user and tests the action bit.
func HasPermission(mode Mode, user UserClass, action Action) bool {
	return mode.Digit(user)&uint8(action) != 0
}
