package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muxherd/muxherd/internal/mux"
)

var inTmuxCmd = &cobra.Command{
	Use:   "in-tmux",
	Short: "Exit zero when running inside a tmux session",
	Long: `Check whether the current process runs inside a tmux session, going
by the TMUX environment variable. Prints the surrounding server's socket
name and exits zero when inside; otherwise reports the condition on stderr
and exits nonzero. Meant for shell scripts and prompt hooks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		socket, ok := mux.CurrentSocket()
		if !ok {
			return errors.New("not inside a tmux session")
		}
		fmt.Println(socket)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inTmuxCmd)
}
