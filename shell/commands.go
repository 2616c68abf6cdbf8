package shell

import (
	"fmt"
	"strings"
	"time"

	"github.com/brettbedarf/minifs/filesystem"
	"github.com/dustin/go-humanize"
)

type command struct {
	name    string
	usage   string
	minArgs int
	maxArgs int  // -1 for no limit
	raw     bool // receive the rest of the line as a single argument
	run     func(sh *Shell, args []string) error
}

// commandList is in help order.
var commandList []command

var commands map[string]command

func init() {
	commandList = []command{
		{name: "help", usage: "help", run: (*Shell).help},
		{name: "ls", usage: "ls", run: (*Shell).ls},
		{name: "mkdir", usage: "mkdir <name>", minArgs: 1, maxArgs: 1, run: (*Shell).mkdir},
		{name: "cd", usage: "cd <dir>|..|/", minArgs: 1, maxArgs: 1, run: (*Shell).cd},
		{name: "pwd", usage: "pwd", run: (*Shell).pwd},
		{name: "touch", usage: "touch <file>", minArgs: 1, maxArgs: 1, run: (*Shell).touch},
		{name: "echo", usage: "echo TEXT > file", minArgs: 1, maxArgs: 1, raw: true, run: (*Shell).echo},
		{name: "cat", usage: "cat <file>", minArgs: 1, maxArgs: 1, run: (*Shell).cat},
		{name: "chmod", usage: "chmod <mode> <file>", minArgs: 2, maxArgs: 2, run: (*Shell).chmod},
		{name: "rm", usage: "rm <file>", minArgs: 1, maxArgs: 1, run: (*Shell).rm},
		{name: "mv", usage: "mv <src> <dst>", minArgs: 2, maxArgs: 2, run: (*Shell).mv},
		{name: "cp", usage: "cp <src> <dst>", minArgs: 2, maxArgs: 2, run: (*Shell).cp},
		{name: "stat", usage: "stat <file>", minArgs: 1, maxArgs: 1, run: (*Shell).stat},
		{name: "sum", usage: "sum <file>", minArgs: 1, maxArgs: 1, run: (*Shell).sum},
		{name: "df", usage: "df", run: (*Shell).df},
		{name: "su", usage: "su owner|group|other", minArgs: 1, maxArgs: 1, run: (*Shell).su},
		{name: "whoami", usage: "whoami", run: (*Shell).whoami},
		{name: "exit", usage: "exit", run: func(*Shell, []string) error { return ErrExit }},
	}
	commands = make(map[string]command, len(commandList))
	for _, cmd := range commandList {
		commands[cmd.name] = cmd
	}
}

func (sh *Shell) help(_ []string) error {
	sh.printf("Available commands:\n")
	for _, cmd := range commandList {
		sh.printf("  %s\n", cmd.usage)
	}
	return nil
}

// ls prints subdirectories first, then files, each group sorted by name.
func (sh *Shell) ls(_ []string) error {
	cwd := sh.sess.Cwd()
	for _, d := range cwd.Dirs() {
		sh.printf("%s\n", sh.styles.dir.Render("[D] "+d.Name()))
	}
	for _, f := range cwd.Files() {
		sh.printf("%s  %s\n",
			sh.styles.file.Render("[F] "+f.Name()),
			sh.styles.detail.Render(fmt.Sprintf("(id=%d, %d bytes, perms=%s)", f.ID(), f.Size(), f.Mode())))
	}
	return nil
}

func (sh *Shell) mkdir(args []string) error {
	_, err := sh.sess.Mkdir(args[0])
	return err
}

func (sh *Shell) cd(args []string) error {
	return sh.sess.Chdir(args[0])
}

func (sh *Shell) pwd(_ []string) error {
	sh.printf("%s\n", sh.sess.Pwd())
	return nil
}

func (sh *Shell) touch(args []string) error {
	_, err := sh.sess.Touch(args[0])
	return err
}

// echo splits its raw argument at the first " > ": the text before it becomes
// the whole content of the named file.
func (sh *Shell) echo(args []string) error {
	text, name, ok := strings.Cut(" "+args[0]+" ", " > ")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("%w: %s", ErrUsage, commands["echo"].usage)
	}
	text = strings.TrimPrefix(text, " ")

	n, err := sh.sess.WriteFile(name, []byte(text))
	if err != nil && n > 0 {
		sh.printf("wrote %d of %d bytes\n", n, len(text))
	}
	return err
}

func (sh *Shell) cat(args []string) error {
	data, err := sh.sess.ReadFile(args[0])
	if err != nil {
		return err
	}
	sh.printf("%s\n", data)
	return nil
}

func (sh *Shell) chmod(args []string) error {
	mode, err := filesystem.ParseMode(args[0])
	if err != nil {
		return err
	}
	return sh.sess.Chmod(args[1], mode)
}

func (sh *Shell) rm(args []string) error {
	return sh.sess.Remove(args[0])
}

func (sh *Shell) mv(args []string) error {
	return sh.sess.Rename(args[0], args[1])
}

func (sh *Shell) cp(args []string) error {
	_, err := sh.sess.Copy(args[0], args[1])
	return err
}

func (sh *Shell) stat(args []string) error {
	f, err := sh.sess.Lookup(args[0])
	if err != nil {
		return err
	}
	attr := f.Attr()
	mode := f.Mode()
	sh.printf("  File: %s\n", f.Name())
	sh.printf(" Inode: %d\tType: %s\n", attr.Ino, f.Type())
	sh.printf("  Size: %d (%s)\tBlocks: %d of %d bytes\n",
		attr.Size, humanize.IBytes(attr.Size), f.BlockCount(), attr.Blksize)
	sh.printf("  Mode: %03d (%s)\n", mode, mode)
	sh.printf("Access: %s\n", formatTime(attr.Atime, attr.Atimensec))
	sh.printf("Modify: %s\n", formatTime(attr.Mtime, attr.Mtimensec))
	sh.printf("Create: %s\n", formatTime(attr.Ctime, attr.Ctimensec))
	return nil
}

func formatTime(sec uint64, nsec uint32) string {
	t := time.Unix(int64(sec), int64(nsec))
	return fmt.Sprintf("%s (%s)", t.Format(time.DateTime), humanize.Time(t))
}

func (sh *Shell) sum(args []string) error {
	sum, err := sh.sess.Checksum(args[0])
	if err != nil {
		return err
	}
	sh.printf("%s  %s\n", sum, args[0])
	return nil
}

func (sh *Shell) df(_ []string) error {
	st := sh.sess.FS().Stats()
	sh.printf("%-8s %8s %8s %8s %5s\n", "", "Size", "Used", "Free", "Use%")
	sh.printf("%-8s %8s %8s %8s %4d%%\n", "bytes",
		humanize.IBytes(uint64(st.TotalBytes())),
		humanize.IBytes(uint64(st.UsedBytes())),
		humanize.IBytes(uint64(st.FreeBytes())),
		percent(st.UsedBlocks, st.TotalBlocks))
	sh.printf("%-8s %8s %8s %8s\n", "blocks",
		humanize.Comma(int64(st.TotalBlocks)),
		humanize.Comma(int64(st.UsedBlocks)),
		humanize.Comma(int64(st.FreeBlocks)))
	return nil
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}

func (sh *Shell) su(args []string) error {
	user, err := filesystem.ParseUserClass(args[0])
	if err != nil {
		return err
	}
	sh.sess.SetUser(user)
	return nil
}

func (sh *Shell) whoami(_ []string) error {
	sh.printf("%s\n", sh.sess.User())
	return nil
}
