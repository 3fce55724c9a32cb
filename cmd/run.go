package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muxherd/muxherd/internal/term"
)

var flagRunSimulate bool

var runCmd = &cobra.Command{
	Use:   "run <server> [session-args...]",
	Short: "Start a server and open a new session in a terminal window",
	Long: `Start the tmux server of the given name (idempotent) and open a new
session on it inside a freshly spawned terminal emulator window. Extra
arguments are passed to tmux new-session, e.g. -s <name> or a command.

The terminal window is launched fire-and-forget; muxherd returns
immediately. Panes whose command exits nonzero stay visible
(remain-on-exit failed) so failures can be inspected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newClient(cfg, args[0])
		launcher := &term.Launcher{Program: cfg.Terminal}
		argv := client.Argv(append([]string{"new-session"}, args[1:]...)...)

		if flagRunSimulate {
			fmt.Println(term.CommandString(launcher.Argv(argv)))
			return nil
		}

		if err := client.StartServer(ctx); err != nil {
			return err
		}
		if err := client.SetGlobalOption(ctx, "remain-on-exit", "failed"); err != nil {
			return err
		}
		return launcher.Spawn(argv)
	},
}

func init() {
	runCmd.Flags().BoolVar(&flagRunSimulate, "simulate", false, "print the terminal command instead of running it")
	rootCmd.AddCommand(runCmd)
}
