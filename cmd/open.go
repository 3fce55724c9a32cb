package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muxherd/muxherd/internal/model"
	"github.com/muxherd/muxherd/internal/workspace"
)

var (
	flagOpenLayout   string
	flagOpenForceNew bool
	flagOpenWindow   string
	flagOpenTitle    string
	flagOpenFile     string
)

var openCmd = &cobra.Command{
	Use:   "open <server> <session> [flags] [-- command args...]",
	Short: "Compose a session from panes",
	Long: `Create or reuse a session on the named server and add panes to it.

With a trailing command (after --), one pane running that command is
added, optionally into a named --window and with a --title. With --file,
a whole YAML layout of windows and panes is composed in order.

The session is created detached when missing; its first pane holds a
placeholder process that the first real pane replaces, so composing never
leaves an idle extra pane behind. The configured layout is re-applied as
panes are added. Created pane ids are printed one per line.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Everything after -- is the pane command.
		var command []string
		if dash := cmd.ArgsLenAtDash(); dash >= 0 {
			command = args[dash:]
			args = args[:dash]
		}
		if len(args) != 2 {
			return fmt.Errorf("expected <server> <session>, got %d arguments", len(args))
		}
		server, session := args[0], args[1]

		if flagOpenFile == "" && len(command) == 0 {
			return errors.New("nothing to compose: give a command after -- or a layout with --file")
		}
		if flagOpenFile != "" && len(command) > 0 {
			return errors.New("--file and a trailing command are mutually exclusive")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tel := setupTelemetry(ctx, cfg)
		if tel != nil {
			defer tel.Shutdown(ctx)
		}

		layout := flagOpenLayout
		if layout == "" {
			layout = cfg.DefaultLayout
		}

		w, err := workspace.Open(ctx, newClient(cfg, server), session, workspace.Options{
			Layout:      layout,
			ForceNew:    flagOpenForceNew,
			Placeholder: cfg.Placeholder,
			Metrics:     telMetrics(tel),
		})
		if err != nil {
			return err
		}
		defer w.Close(ctx)

		if flagOpenFile != "" {
			lf, err := model.LoadLayoutFile(flagOpenFile)
			if err != nil {
				return err
			}
			panes, err := w.Compose(ctx, lf)
			for _, id := range panes {
				fmt.Println(id)
			}
			return err
		}

		id, err := w.AddPane(ctx, workspace.PaneSpec{
			Command: command,
			Title:   flagOpenTitle,
			Window:  flagOpenWindow,
		})
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

func init() {
	openCmd.Flags().StringVar(&flagOpenLayout, "layout", "", "tmux layout re-applied as panes are added (default from config)")
	openCmd.Flags().BoolVar(&flagOpenForceNew, "force-new", false, "kill any existing session of this name first")
	openCmd.Flags().StringVar(&flagOpenWindow, "window", "", "window to place the pane in (created when missing)")
	openCmd.Flags().StringVar(&flagOpenTitle, "title", "", "title set on the created pane")
	openCmd.Flags().StringVar(&flagOpenFile, "file", "", "YAML layout file to compose instead of a single command")
	rootCmd.AddCommand(openCmd)
}
