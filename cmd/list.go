package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/muxherd/muxherd/internal/mux"
)

var (
	flagListDetached bool
	flagListAttached bool
)

var (
	serverColor   = color.New(color.FgCyan, color.Bold)
	attachedColor = color.New(color.FgYellow)
)

var listCmd = &cobra.Command{
	Use:     "list [servers...]",
	Aliases: []string{"ls"},
	Short:   "List sessions across tmux servers",
	Long: `List the sessions of the named tmux servers, or of every running
server found by discovery when none are named.

One line per session: server name, session name, window count, creation
time, and an "(attached)" marker when a client is connected. Use
--detached or --attached to filter; the two are mutually exclusive.`,
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
		metrics := telMetrics(tel)

		servers := args
		explicit := len(servers) > 0
		if !explicit {
			servers, err = discoverServers(ctx, cfg)
			if err != nil {
				return fmt.Errorf("discover servers: %w", err)
			}
			metrics.RecordDiscovery(ctx, len(servers))
		}

		filter := mux.SessionFilter{
			OnlyDetached: flagListDetached,
			OnlyAttached: flagListAttached,
		}

		for _, server := range servers {
			sessions, err := newClient(cfg, server).Sessions(ctx, filter)
			if err != nil {
				// A server that was running at discovery time may have
				// exited since; that is only worth a warning. A server the
				// user named must answer.
				if explicit {
					return fmt.Errorf("%s: %w", server, err)
				}
				fmt.Fprintf(os.Stderr, "warning: %s: %v\n", server, err)
				continue
			}
			metrics.RecordSessionsListed(ctx, server, len(sessions))
			for _, s := range sessions {
				line := s.Line()
				if s.Attached {
					line = strings.TrimSuffix(line, "(attached)") + attachedColor.Sprint("(attached)")
				}
				fmt.Printf("%s %s\n", serverColor.Sprint(server), line)
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&flagListDetached, "detached", false, "only sessions with no attached client")
	listCmd.Flags().BoolVar(&flagListAttached, "attached", false, "only sessions with an attached client")
	listCmd.MarkFlagsMutuallyExclusive("detached", "attached")
	rootCmd.AddCommand(listCmd)
}
