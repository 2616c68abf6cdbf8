// Package shell is the line-oriented command interpreter over a
// [filesystem.Session]. It tokenizes input, dispatches to the core
// operations and renders their results as text.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/brettbedarf/minifs/filesystem"
	"github.com/brettbedarf/minifs/internal/util"
	"github.com/charmbracelet/lipgloss"
)

var (
	// ErrExit is returned by [Shell.Exec] for the exit command.
	ErrExit = errors.New("exit")

	// ErrUnknownCommand occurs for a command name with no handler.
	ErrUnknownCommand = errors.New("unknown command, type 'help'")

	// ErrUsage occurs when a command gets the wrong arguments.
	ErrUsage = errors.New("usage")
)

type styles struct {
	dir    lipgloss.Style
	file   lipgloss.Style
	detail lipgloss.Style
	err    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		dir:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		file:   r.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
		detail: r.NewStyle().Foreground(lipgloss.Color("#626262")),
		err:    r.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
	}
}

// Shell executes commands against one session and writes results to out.
// Like the session it wraps, a Shell must not be shared between goroutines.
type Shell struct {
	sess   *filesystem.Session
	out    io.Writer
	styles styles
}

// New returns a shell bound to sess. Styling adapts to what out supports, so
// plain writers get plain text.
func New(sess *filesystem.Session, out io.Writer) *Shell {
	return &Shell{
		sess:   sess,
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out)),
	}
}

// Session returns the session commands act on.
func (sh *Shell) Session() *filesystem.Session {
	return sh.sess
}

// Prompt renders the current directory followed by " > ".
func (sh *Shell) Prompt() string {
	return sh.sess.Pwd() + " > "
}

// Exec runs a single input line. Blank lines are a no-op. The exit command
// returns [ErrExit]; any other error is the command's failure and leaves the
// shell usable.
func (sh *Shell) Exec(line string) error {
	logger := util.GetLogger("Shell.Exec")

	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	name, rest, _ := strings.Cut(line, " ")
	cmd, ok := commands[name]
	if !ok {
		logger.Debug().Str("session", sh.sess.ID()).Str("cmd", name).Msg("Unknown command")
		return fmt.Errorf("%s: %w", name, ErrUnknownCommand)
	}

	var args []string
	if cmd.raw {
		args = []string{strings.TrimSpace(rest)}
	} else {
		args = strings.Fields(rest)
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}

	logger.Debug().Str("session", sh.sess.ID()).Str("cmd", name).Strs("args", args).Msg("Executing command")
	return cmd.run(sh, args)
}

// Run is the interactive loop: it prints a banner, then reads in line by
// line, printing a prompt before each and the error of any failed command.
// It returns when in is exhausted or on exit.
func (sh *Shell) Run(in io.Reader) error {
	logger := util.GetLogger("Shell.Run")
	logger.Info().Str("session", sh.sess.ID()).Msg("Shell started")

	fmt.Fprintln(sh.out, "In-memory filesystem shell")
	fmt.Fprintln(sh.out, "Type 'help' for help, 'exit' to quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.out, sh.Prompt())
		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			break
		}
		err := sh.Exec(scanner.Text())
		if errors.Is(err, ErrExit) {
			break
		}
		if err != nil {
			fmt.Fprintln(sh.out, sh.styles.err.Render("error: "+err.Error()))
		}
	}

	logger.Info().Str("session", sh.sess.ID()).Msg("Shell stopped")
	return scanner.Err()
}

func (sh *Shell) printf(format string, a ...any) {
	fmt.Fprintf(sh.out, format, a...)
}
