// Package mux wraps the tmux command-line program, scoped to one named
// server socket (the -L flag). Sessions, windows and panes live entirely in
// the tmux server; the Client holds no state beyond the socket name, so it
// is cheap to construct per call site.
package mux

import (
	"context"
	"os"
	"os/exec"
)

// Client invokes tmux against a single named server socket.
type Client struct {
	// Socket is the server socket name passed via -L. Empty targets tmux's
	// default server.
	Socket string
	// Tmux is the tmux binary to invoke. Empty means "tmux" from PATH.
	Tmux string
	// Trace, when set, receives the full argv of every invocation before it
	// runs.
	Trace func(argv []string)
}

// New returns a Client for the given server socket name.
func New(socket string) *Client {
	return &Client{Socket: socket}
}

// Name returns the server name the client targets. The default socket is
// named "default", matching tmux's own naming.
func (c *Client) Name() string {
	if c.Socket == "" {
		return "default"
	}
	return c.Socket
}

func (c *Client) binary() string {
	if c.Tmux != "" {
		return c.Tmux
	}
	return "tmux"
}

// Argv returns the full command line, binary included, for the given tmux
// subcommand and arguments. Callers hand it to a terminal emulator or print
// it in simulate mode.
func (c *Client) Argv(args ...string) []string {
	argv := []string{c.binary()}
	if c.Socket != "" {
		argv = append(argv, "-L", c.Socket)
	}
	return append(argv, args...)
}

// runCommand executes a command and returns its stdout. Package-level so
// tests can substitute a fake tmux.
var runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", wrapStderr(err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}

// run executes a tmux subcommand against the client's socket.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	argv := c.Argv(args...)
	if c.Trace != nil {
		c.Trace(argv)
	}
	return runCommand(ctx, argv[0], argv[1:]...)
}

// Attach attaches the controlling terminal to the named session and blocks
// until the client detaches or the session ends.
func (c *Client) Attach(ctx context.Context, session string) error {
	argv := c.Argv("attach", "-t", session)
	if c.Trace != nil {
		c.Trace(argv)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
