package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/muxherd/muxherd/internal/config"
	"github.com/muxherd/muxherd/internal/inventory"
	"github.com/muxherd/muxherd/internal/model"
	"github.com/muxherd/muxherd/internal/mux"
	"github.com/muxherd/muxherd/internal/picker"
	"github.com/muxherd/muxherd/internal/term"
)

var flagPickTheme string

var pickCmd = &cobra.Command{
	Use:   "pick [servers...]",
	Short: "Browse servers and sessions interactively",
	Long: `Open an interactive browser over the named servers, or over every
discovered server when none are named. Sessions refresh on a timer.

Enter attaches to the selected detached session: inside tmux on the same
server the client is switched in place, otherwise the browser closes and
the attach takes over the terminal. 'a' opens the session in a new
terminal emulator window instead.`,
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

		refresher := &inventory.Refresher{
			Servers: args,
			Discover: func(ctx context.Context) ([]string, error) {
				return discoverServers(ctx, cfg)
			},
			List: func(ctx context.Context, server string) ([]model.Session, error) {
				return newClient(cfg, server).Sessions(ctx, mux.SessionFilter{})
			},
			Exclude: func(server string) bool {
				return config.MatchesExcludeList(server, cfg.ExcludeServers)
			},
			Parallel: cfg.Parallel,
			Store:    inventory.NewStore(3 * cfg.RefreshDuration),
		}

		launcher := &term.Launcher{Program: cfg.Terminal}
		insideSocket, _ := mux.CurrentSocket()

		p := &picker.Picker{
			Refresher:       refresher,
			RefreshInterval: cfg.RefreshDuration,
			ThemeName:       flagPickTheme,
			InsideSocket:    insideSocket,
			Switch: func(ctx context.Context, server, session string) error {
				return newClient(cfg, server).SwitchClient(ctx, session)
			},
			OpenWindow: func(server, session string) error {
				return launcher.Spawn(newClient(cfg, server).Argv("attach", "-t", session))
			},
		}

		choice, err := p.Run(ctx)
		if err != nil || choice == nil {
			return err
		}
		// The TUI has released the terminal; attach takes it over.
		return newClient(cfg, choice.Server).Attach(ctx, choice.Session)
	},
}

func init() {
	pickCmd.Flags().StringVar(&flagPickTheme, "theme", "dark", "color theme: dark, light")
	rootCmd.AddCommand(pickCmd)
}
