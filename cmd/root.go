package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muxherd/muxherd/internal/config"
	"github.com/muxherd/muxherd/internal/discover"
	"github.com/muxherd/muxherd/internal/mux"
	telem "github.com/muxherd/muxherd/internal/otel"
	"github.com/muxherd/muxherd/internal/term"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	// Global flags.
	flagConfig    string
	flagTmux      string
	flagSocketDir string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "muxherd",
	Short: "Wrangle tmux sessions across many named servers",
	Long: `muxherd manages long-running tmux sessions spread over multiple
independently named tmux servers (tmux -L <name>) on one host.

It discovers running servers from the process and socket tables, lists
their sessions, composes multi-pane session layouts, and re-attaches to
detached sessions one at a time or in bulk via spawned terminal windows.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .muxherd.yaml, then ~/.config/muxherd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagTmux, "tmux", envOrDefault("MUXHERD_TMUX", ""), "tmux binary to invoke (default: tmux from PATH)")
	rootCmd.PersistentFlags().StringVar(&flagSocketDir, "socket-dir", envOrDefault("MUXHERD_SOCKET_DIR", ""), "tmux socket directory (default: /tmp/tmux-<uid>)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "echo every tmux invocation to stderr")
}

// loadConfig loads the configuration and applies flag overrides on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if flagTmux != "" {
		cfg.Tmux = flagTmux
	}
	if flagSocketDir != "" {
		cfg.SocketDir = flagSocketDir
	}
	return cfg, nil
}

// newClient returns a tmux client for the named server, honoring the
// configured binary and the --verbose trace.
func newClient(cfg *config.Config, server string) *mux.Client {
	c := mux.New(server)
	c.Tmux = cfg.Tmux
	if flagVerbose {
		c.Trace = func(argv []string) {
			fmt.Fprintf(os.Stderr, "+ %s\n", term.CommandString(argv))
		}
	}
	return c
}

// discoverOptions maps config onto discovery options.
func discoverOptions(cfg *config.Config) discover.Options {
	return discover.Options{
		SocketDir:   cfg.SocketDir,
		ProcessName: cfg.ServerProcess,
	}
}

// discoverServers lists running servers minus the configured excludes.
func discoverServers(ctx context.Context, cfg *config.Config) ([]string, error) {
	servers, err := discover.Servers(ctx, discoverOptions(cfg))
	if err != nil {
		return nil, err
	}
	kept := servers[:0]
	for _, s := range servers {
		if !config.MatchesExcludeList(s, cfg.ExcludeServers) {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

// setupTelemetry initializes OTEL from config. A failed init is a warning,
// not a fatal error; the returned telemetry is nil in that case and every
// metric call no-ops.
func setupTelemetry(ctx context.Context, cfg *config.Config) *telem.Telemetry {
	telem.Version = Version
	tel, err := telem.Init(ctx, telem.Config{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: otel init failed: %v\n", err)
		return nil
	}
	return tel
}

// telMetrics returns the metric instruments, nil-safe.
func telMetrics(tel *telem.Telemetry) *telem.Metrics {
	if tel == nil {
		return nil
	}
	return tel.Metrics
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
