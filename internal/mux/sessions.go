package mux

import (
	"context"
	"errors"
	"fmt"

	"github.com/muxherd/muxherd/internal/model"
)

// SessionFilter narrows Sessions output. At most one field may be set.
type SessionFilter struct {
	// OnlyDetached keeps sessions with no attached client.
	OnlyDetached bool
	// OnlyAttached keeps sessions with at least one attached client.
	OnlyAttached bool
}

// args returns the list-sessions filter arguments. The comparison runs
// inside tmux, so filtered-out sessions never cross the process boundary.
func (f SessionFilter) args() []string {
	switch {
	case f.OnlyDetached:
		return []string{"-f", "#{==:#{session_attached},0}"}
	case f.OnlyAttached:
		return []string{"-f", "#{session_attached}"}
	}
	return nil
}

// Sessions lists the server's sessions, one model.Session per line of
// list-sessions output. Requesting both filter sides at once is a usage
// error reported before tmux is invoked.
func (c *Client) Sessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	if filter.OnlyDetached && filter.OnlyAttached {
		return nil, errors.New("only_detached and only_attached are mutually exclusive")
	}
	args := []string{"list-sessions", "-F", model.LineFormat}
	args = append(args, filter.args()...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("tmux list-sessions: %w", err)
	}
	return model.ParseSessions(c.Name(), out)
}
