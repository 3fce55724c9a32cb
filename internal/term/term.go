// Package term spawns terminal emulator windows running arbitrary commands,
// used for launching sessions and for bulk attach where each attach gets its
// own window.
package term

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// emulators are tried in order when nothing is configured and $TERMINAL is
// unset.
var emulators = []string{"kitty", "alacritty", "gnome-terminal", "xterm", "konsole", "terminator", "tilix"}

// Launcher spawns terminal emulator windows.
type Launcher struct {
	// Program is the emulator binary to use. Empty means autodetect.
	Program string
}

// lookPath is swappable for tests.
var lookPath = exec.LookPath

// Resolve returns the emulator program the launcher will use: the configured
// one, then $TERMINAL, then the first known emulator found in PATH, falling
// back to xterm.
func (l *Launcher) Resolve() string {
	if l.Program != "" {
		return l.Program
	}
	if term := os.Getenv("TERMINAL"); term != "" {
		return term
	}
	for _, e := range emulators {
		if _, err := lookPath(e); err == nil {
			return e
		}
	}
	return "xterm"
}

// commandFlag returns the flag that introduces the command to run for the
// given emulator. gnome-terminal dropped -e in favor of --; everything else
// commonly supported takes -e.
func commandFlag(program string) string {
	if filepath.Base(program) == "gnome-terminal" {
		return "--"
	}
	return "-e"
}

// Argv returns the full emulator invocation wrapping the given command.
func (l *Launcher) Argv(command []string) []string {
	program := l.Resolve()
	argv := []string{program, commandFlag(program)}
	return append(argv, command...)
}

// startProcess starts argv detached. Package-level so tests can intercept
// the actual process launch.
var startProcess = func(argv []string, env []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Spawn opens a terminal emulator window running the command and returns
// without waiting for it. TMUX is stripped from the environment so the
// spawned command may itself be a tmux client even when we are already
// inside a session.
func (l *Launcher) Spawn(command []string) error {
	argv := l.Argv(command)
	if err := startProcess(argv, envWithoutTMUX()); err != nil {
		return fmt.Errorf("launch terminal %s: %w", argv[0], err)
	}
	return nil
}

// envWithoutTMUX returns the current environment with the TMUX variable
// removed, allowing nested tmux clients to start from inside a session.
func envWithoutTMUX() []string {
	var env []string
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "TMUX=") {
			env = append(env, e)
		}
	}
	return env
}

// CommandString quotes and joins an argv into a single display line, used
// when printing commands instead of running them.
func CommandString(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\$`!#&|;(){}[]<>?*~") {
			quoted[i] = "'" + strings.ReplaceAll(arg, "'", "'\\''") + "'"
		} else {
			quoted[i] = arg
		}
	}
	return strings.Join(quoted, " ")
}
