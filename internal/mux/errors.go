package mux

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors recognized from tmux stderr. Callers separate expected
// absence (a session or server that simply is not there) from real failure
// with errors.Is.
var (
	// ErrNoServer indicates no server is running on the target socket.
	ErrNoServer = errors.New("no tmux server running")
	// ErrSessionNotFound indicates the target session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists indicates a session with that name already exists.
	ErrSessionExists = errors.New("session already exists")
)

// wrapStderr folds tmux's stderr into the returned error, mapping
// well-known messages onto the sentinel errors above.
func wrapStderr(err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no server running"),
		strings.Contains(lower, "error connecting to"):
		return fmt.Errorf("%w: %s", ErrNoServer, msg)
	case strings.Contains(lower, "can't find session"),
		strings.Contains(lower, "session not found"):
		return fmt.Errorf("%w: %s", ErrSessionNotFound, msg)
	case strings.Contains(lower, "duplicate session"):
		return fmt.Errorf("%w: %s", ErrSessionExists, msg)
	}
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}
