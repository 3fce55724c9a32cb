package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muxherd/muxherd/internal/config"
	"github.com/muxherd/muxherd/internal/dispatch"
	telem "github.com/muxherd/muxherd/internal/otel"
	mhterm "github.com/muxherd/muxherd/internal/term"
)

var (
	flagAttachReverse  bool
	flagAttachSimulate bool
	flagAttachAll      bool
)

var attachCmd = &cobra.Command{
	Use:   "attach [servers...]",
	Short: "Attach to every detached session",
	Long: `Attach to all detached sessions on the named servers, or on every
running server found by discovery when none are named.

Without --all, each attach runs in the foreground and occupies the
terminal until you detach; sessions are worked through one after another.
With --all, every attach opens in its own terminal emulator window at
once. --simulate prints the attach commands without running anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tel := setupTelemetry(ctx, cfg)
		if tel != nil {
			defer tel.Shutdown(ctx)
		}
		d := newDispatcher(cfg, telMetrics(tel))
		return d.Attach(ctx, args, attachOptions())
	},
}

var attachPrefixCmd = &cobra.Command{
	Use:   "attach-prefix <prefix>",
	Short: "Attach to detached sessions on servers matching a prefix",
	Long: `Like attach, but targets the discovered servers whose name starts
with the given literal prefix instead of an explicit list.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tel := setupTelemetry(ctx, cfg)
		if tel != nil {
			defer tel.Shutdown(ctx)
		}
		d := newDispatcher(cfg, telMetrics(tel))
		return d.AttachPrefix(ctx, args[0], attachOptions())
	},
}

func attachOptions() dispatch.Options {
	return dispatch.Options{
		Reverse:   flagAttachReverse,
		Simulate:  flagAttachSimulate,
		AllAtOnce: flagAttachAll,
	}
}

// newDispatcher wires a dispatcher from config. The reverse-order
// confirmation pause only engages on an interactive stdin.
func newDispatcher(cfg *config.Config, metrics *telem.Metrics) *dispatch.Dispatcher {
	d := &dispatch.Dispatcher{
		Dial: func(server string) dispatch.Conn {
			return newClient(cfg, server)
		},
		Discover: func(ctx context.Context) ([]string, error) {
			return discoverServers(ctx, cfg)
		},
		Terminal: &mhterm.Launcher{Program: cfg.Terminal},
		Metrics:  metrics,
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		d.Confirm = confirmOnStdin
	}
	return d
}

// confirmOnStdin asks on stderr and reads one line from stdin. Anything but
// y/yes declines.
func confirmOnStdin(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	for _, c := range []*cobra.Command{attachCmd, attachPrefixCmd} {
		c.Flags().BoolVar(&flagAttachReverse, "reverse", false, "process servers in reverse order, confirming first")
		c.Flags().BoolVar(&flagAttachSimulate, "simulate", false, "print attach commands without running them")
		c.Flags().BoolVar(&flagAttachAll, "all", false, "open every attach in its own terminal window")
		rootCmd.AddCommand(c)
	}
}
