package mux

import (
	"os"
	"path/filepath"
	"strings"
)

// InsideTmux reports whether the process runs inside a tmux client, going by
// the TMUX environment variable tmux sets for its children.
func InsideTmux() bool {
	return os.Getenv("TMUX") != ""
}

// CurrentSocket returns the socket name of the surrounding tmux server when
// running inside tmux. The TMUX variable holds
// "<socket path>,<server pid>,<session id>"; the socket name is the path's
// final element.
func CurrentSocket() (string, bool) {
	v := os.Getenv("TMUX")
	if v == "" {
		return "", false
	}
	path, _, _ := strings.Cut(v, ",")
	if path == "" {
		return "", false
	}
	return filepath.Base(path), true
}
