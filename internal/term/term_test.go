package term

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func setLookPath(t *testing.T, available ...string) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestResolve(t *testing.T) {
	t.Run("configured program wins", func(t *testing.T) {
		t.Setenv("TERMINAL", "konsole")
		l := &Launcher{Program: "footerm"}
		if got := l.Resolve(); got != "footerm" {
			t.Errorf("Resolve() = %q, want footerm", got)
		}
	})

	t.Run("TERMINAL env second", func(t *testing.T) {
		t.Setenv("TERMINAL", "tilix")
		setLookPath(t, "kitty")
		if got := (&Launcher{}).Resolve(); got != "tilix" {
			t.Errorf("Resolve() = %q, want tilix", got)
		}
	})

	t.Run("first available from PATH", func(t *testing.T) {
		t.Setenv("TERMINAL", "")
		setLookPath(t, "gnome-terminal", "xterm")
		if got := (&Launcher{}).Resolve(); got != "gnome-terminal" {
			t.Errorf("Resolve() = %q, want gnome-terminal", got)
		}
	})

	t.Run("xterm fallback", func(t *testing.T) {
		t.Setenv("TERMINAL", "")
		setLookPath(t)
		if got := (&Launcher{}).Resolve(); got != "xterm" {
			t.Errorf("Resolve() = %q, want xterm", got)
		}
	})
}

func TestArgvFlagShapes(t *testing.T) {
	command := []string{"tmux", "-L", "work", "attach", "-t", "main"}

	tests := []struct {
		program string
		want    []string
	}{
		{"xterm", []string{"xterm", "-e", "tmux", "-L", "work", "attach", "-t", "main"}},
		{"kitty", []string{"kitty", "-e", "tmux", "-L", "work", "attach", "-t", "main"}},
		{"gnome-terminal", []string{"gnome-terminal", "--", "tmux", "-L", "work", "attach", "-t", "main"}},
		{"/usr/bin/gnome-terminal", []string{"/usr/bin/gnome-terminal", "--", "tmux", "-L", "work", "attach", "-t", "main"}},
	}

	for _, tt := range tests {
		t.Run(tt.program, func(t *testing.T) {
			l := &Launcher{Program: tt.program}
			if got := l.Argv(command); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Argv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpawnDetachesAndStripsTMUX(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-1000/work,123,0")

	var gotArgv, gotEnv []string
	orig := startProcess
	startProcess = func(argv []string, env []string) error {
		gotArgv = argv
		gotEnv = env
		return nil
	}
	t.Cleanup(func() { startProcess = orig })

	l := &Launcher{Program: "xterm"}
	if err := l.Spawn([]string{"tmux", "-L", "work", "attach", "-t", "main"}); err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	if gotArgv[0] != "xterm" || gotArgv[1] != "-e" {
		t.Errorf("Spawn() argv = %v", gotArgv)
	}
	for _, e := range gotEnv {
		if strings.HasPrefix(e, "TMUX=") {
			t.Errorf("TMUX leaked into spawned environment: %q", e)
		}
	}
}

func TestSpawnWrapsLaunchError(t *testing.T) {
	orig := startProcess
	startProcess = func([]string, []string) error { return errors.New("fork failed") }
	t.Cleanup(func() { startProcess = orig })

	err := (&Launcher{Program: "xterm"}).Spawn([]string{"true"})
	if err == nil || !strings.Contains(err.Error(), "xterm") {
		t.Errorf("Spawn() = %v, want error naming the emulator", err)
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{
			name: "plain args unquoted",
			argv: []string{"tmux", "-L", "work", "attach", "-t", "main"},
			want: "tmux -L work attach -t main",
		},
		{
			name: "spaces quoted",
			argv: []string{"tmux", "new-session", "watch -n1 date"},
			want: "tmux new-session 'watch -n1 date'",
		},
		{
			name: "single quotes escaped",
			argv: []string{"echo", "it's"},
			want: `echo 'it'\''s'`,
		},
		{
			name: "empty arg quoted",
			argv: []string{"echo", ""},
			want: "echo ''",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommandString(tt.argv); got != tt.want {
				t.Errorf("CommandString() = %q, want %q", got, tt.want)
			}
		})
	}
}
