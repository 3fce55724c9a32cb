package mux

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// StartServer starts the server on the client's socket if it is not already
// running. Safe to call repeatedly.
func (c *Client) StartServer(ctx context.Context) error {
	if _, err := c.run(ctx, "start-server"); err != nil {
		return fmt.Errorf("tmux start-server: %w", err)
	}
	return nil
}

// HasSession reports whether a session with exactly the given name exists.
// A missing session, or a socket with no server behind it, is false rather
// than an error.
func (c *Client) HasSession(ctx context.Context, name string) (bool, error) {
	// "=" forces an exact name match instead of tmux's prefix matching.
	_, err := c.run(ctx, "has-session", "-t", "="+name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
		return false, nil
	}
	return false, fmt.Errorf("tmux has-session: %w", err)
}

// NewSession creates a detached session running the given command.
func (c *Client) NewSession(ctx context.Context, name string, command ...string) error {
	args := append([]string{"new-session", "-d", "-s", name}, command...)
	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("tmux new-session: %w", err)
	}
	return nil
}

// KillSession kills the named session. Killing a session that does not
// exist, or killing on a socket with no server, is not an error.
func (c *Client) KillSession(ctx context.Context, name string) error {
	_, err := c.run(ctx, "kill-session", "-t", name)
	if err == nil || errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
		return nil
	}
	return fmt.Errorf("tmux kill-session: %w", err)
}

// SetOption sets an option on the target session.
func (c *Client) SetOption(ctx context.Context, target, option, value string) error {
	if _, err := c.run(ctx, "set-option", "-t", target, option, value); err != nil {
		return fmt.Errorf("tmux set-option %s: %w", option, err)
	}
	return nil
}

// SetGlobalOption sets a server-global option.
func (c *Client) SetGlobalOption(ctx context.Context, option, value string) error {
	if _, err := c.run(ctx, "set-option", "-g", option, value); err != nil {
		return fmt.Errorf("tmux set-option -g %s: %w", option, err)
	}
	return nil
}

// DisplayMessage expands a format string against a target and returns the
// result with surrounding whitespace trimmed.
func (c *Client) DisplayMessage(ctx context.Context, target, format string) (string, error) {
	out, err := c.run(ctx, "display-message", "-p", "-t", target, format)
	if err != nil {
		return "", fmt.Errorf("tmux display-message: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// RespawnPane kills whatever runs in the target pane and starts the given
// command in its place.
func (c *Client) RespawnPane(ctx context.Context, target string, command ...string) error {
	args := append([]string{"respawn-pane", "-k", "-t", target}, command...)
	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("tmux respawn-pane: %w", err)
	}
	return nil
}

// Window is one window of a session.
type Window struct {
	// ID is the tmux window id, e.g. "@3". Stable for the window's lifetime.
	ID string
	// Name is the window name.
	Name string
}

// NewWindow creates a detached window in the session running the given
// command and returns its window id.
func (c *Client) NewWindow(ctx context.Context, session, name string, command ...string) (string, error) {
	args := append([]string{"new-window", "-d", "-P", "-F", "#{window_id}", "-t", session, "-n", name}, command...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("tmux new-window: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ListWindows returns the session's windows.
func (c *Client) ListWindows(ctx context.Context, session string) ([]Window, error) {
	out, err := c.run(ctx, "list-windows", "-t", session, "-F", "#{window_id}\t#{window_name}")
	if err != nil {
		return nil, fmt.Errorf("tmux list-windows: %w", err)
	}
	var windows []Window
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, name, _ := strings.Cut(line, "\t")
		windows = append(windows, Window{ID: id, Name: name})
	}
	return windows, nil
}

// SelectWindow makes the target window the session's current window.
func (c *Client) SelectWindow(ctx context.Context, target string) error {
	if _, err := c.run(ctx, "select-window", "-t", target); err != nil {
		return fmt.Errorf("tmux select-window: %w", err)
	}
	return nil
}

// SplitWindow splits the target window's active pane, runs the command in
// the new pane without changing focus, and returns the new pane id.
func (c *Client) SplitWindow(ctx context.Context, target string, command ...string) (string, error) {
	args := append([]string{"split-window", "-d", "-P", "-F", "#{pane_id}", "-t", target}, command...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("tmux split-window: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// SelectLayout applies a layout to the target window.
func (c *Client) SelectLayout(ctx context.Context, target, layout string) error {
	if _, err := c.run(ctx, "select-layout", "-t", target, layout); err != nil {
		return fmt.Errorf("tmux select-layout %s: %w", layout, err)
	}
	return nil
}

// SetPaneTitle sets the title of the target pane.
func (c *Client) SetPaneTitle(ctx context.Context, target, title string) error {
	if _, err := c.run(ctx, "select-pane", "-t", target, "-T", title); err != nil {
		return fmt.Errorf("tmux select-pane -T: %w", err)
	}
	return nil
}

// SwitchClient switches the attached client to the target session. Only
// meaningful when the process runs inside tmux on the same socket.
func (c *Client) SwitchClient(ctx context.Context, target string) error {
	if _, err := c.run(ctx, "switch-client", "-t", target); err != nil {
		return fmt.Errorf("tmux switch-client: %w", err)
	}
	return nil
}
