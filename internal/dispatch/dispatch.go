// Package dispatch implements bulk attach: enumerate each server's detached
// sessions and issue an attach per session, either synchronously in the
// current terminal, in freshly spawned terminal windows, or in simulate
// mode where commands are printed instead of run.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/muxherd/muxherd/internal/discover"
	"github.com/muxherd/muxherd/internal/model"
	"github.com/muxherd/muxherd/internal/mux"
	mhotel "github.com/muxherd/muxherd/internal/otel"
	"github.com/muxherd/muxherd/internal/term"
)

var tracer = otel.Tracer("muxherd")

// Conn is the per-server slice of the tmux client the dispatcher drives.
// *mux.Client implements it.
type Conn interface {
	Sessions(ctx context.Context, filter mux.SessionFilter) ([]model.Session, error)
	Attach(ctx context.Context, session string) error
	Argv(args ...string) []string
}

// Terminal opens new terminal windows. *term.Launcher implements it.
type Terminal interface {
	Argv(command []string) []string
	Spawn(command []string) error
}

// Options control one dispatch run.
type Options struct {
	// Reverse processes servers in reverse order, pausing for confirmation
	// first when a Confirm hook is set.
	Reverse bool
	// Simulate prints each attach command instead of executing it.
	Simulate bool
	// AllAtOnce runs every attach in its own terminal window instead of
	// sequentially in the current one.
	AllAtOnce bool
}

// Dispatcher attaches to detached sessions across tmux servers.
type Dispatcher struct {
	// Dial returns a client for the named server. Required.
	Dial func(server string) Conn
	// Discover lists running servers, used when no servers are given
	// explicitly.
	Discover func(ctx context.Context) ([]string, error)
	// Terminal spawns windows for AllAtOnce mode.
	Terminal Terminal
	// Confirm gates reversed runs. Nil skips the pause.
	Confirm func(prompt string) bool
	// Out receives simulate output. Nil means stdout.
	Out io.Writer
	// Err receives per-server warnings. Nil means stderr.
	Err io.Writer
	// Metrics counts issued attaches; nil-safe.
	Metrics *mhotel.Metrics
}

func (d *Dispatcher) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return os.Stdout
}

func (d *Dispatcher) errw() io.Writer {
	if d.Err != nil {
		return d.Err
	}
	return os.Stderr
}

// Attach attaches to every detached session on the given servers, or on all
// discovered servers when none are named. A server that fails to enumerate
// is skipped with a warning; the run as a whole fails only when explicitly
// named servers all fail.
func (d *Dispatcher) Attach(ctx context.Context, servers []string, opts Options) error {
	explicit := len(servers) > 0
	if !explicit {
		found, err := d.Discover(ctx)
		if err != nil {
			return fmt.Errorf("discover servers: %w", err)
		}
		servers = found
	}
	return d.attachServers(ctx, servers, explicit, opts)
}

// AttachPrefix is Attach restricted to discovered servers whose name starts
// with the given literal prefix.
func (d *Dispatcher) AttachPrefix(ctx context.Context, prefix string, opts Options) error {
	found, err := d.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover servers: %w", err)
	}
	return d.attachServers(ctx, discover.WithPrefix(found, prefix), false, opts)
}

func (d *Dispatcher) attachServers(ctx context.Context, servers []string, explicit bool, opts Options) error {
	ctx, span := tracer.Start(ctx, "attach",
		trace.WithAttributes(
			attribute.Int("servers", len(servers)),
			attribute.Bool("simulate", opts.Simulate),
			attribute.Bool("all_at_once", opts.AllAtOnce),
		))
	defer span.End()

	if opts.Reverse {
		servers = reversed(servers)
		if d.Confirm != nil {
			prompt := fmt.Sprintf("attach to sessions on %d server(s) in reverse order?", len(servers))
			if !d.Confirm(prompt) {
				return nil
			}
		}
	}

	failed := 0
	for _, server := range servers {
		if err := d.attachServer(ctx, server, opts); err != nil {
			failed++
			fmt.Fprintf(d.errw(), "warning: %s: %v\n", server, err)
		}
	}
	if explicit && failed > 0 && failed == len(servers) {
		return fmt.Errorf("all %d server(s) failed", failed)
	}
	return nil
}

func (d *Dispatcher) attachServer(ctx context.Context, server string, opts Options) error {
	conn := d.Dial(server)
	sessions, err := conn.Sessions(ctx, mux.SessionFilter{OnlyDetached: true})
	if err != nil {
		return err
	}
	for _, s := range sessions {
		// A client may have attached between enumeration and now.
		if s.Attached {
			continue
		}
		if err := d.attachSession(ctx, conn, s.Name, opts); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) attachSession(ctx context.Context, conn Conn, session string, opts Options) error {
	argv := conn.Argv("attach", "-t", session)
	switch {
	case opts.Simulate:
		if opts.AllAtOnce {
			argv = d.Terminal.Argv(argv)
		}
		fmt.Fprintln(d.out(), term.CommandString(argv))
		d.Metrics.RecordAttach(ctx, "simulated")
	case opts.AllAtOnce:
		if err := d.Terminal.Spawn(argv); err != nil {
			return fmt.Errorf("attach %s: %w", session, err)
		}
		d.Metrics.RecordAttach(ctx, "terminal")
	default:
		if err := conn.Attach(ctx, session); err != nil {
			return fmt.Errorf("attach %s: %w", session, err)
		}
		d.Metrics.RecordAttach(ctx, "foreground")
	}
	return nil
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
