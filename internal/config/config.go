// Package config loads muxherd configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (MUXHERD_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .muxherd.yaml in current directory
//  2. ~/.config/muxherd/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all muxherd configuration.
type Config struct {
	// Tmux is the tmux binary to invoke. Empty means "tmux" from PATH.
	Tmux string `yaml:"tmux"`
	// SocketDir is the directory holding tmux server sockets. Empty means
	// the per-user default, /tmp/tmux-<uid>.
	SocketDir string `yaml:"socket_dir"`
	// ServerProcess is the process-table name of a tmux server.
	ServerProcess string `yaml:"server_process"`

	// DefaultLayout is applied to composed windows when no layout is given.
	DefaultLayout string `yaml:"default_layout"`
	// Placeholder is the argv parked in fresh windows until the first real
	// pane replaces it.
	Placeholder []string `yaml:"placeholder"`

	// Terminal is the terminal emulator program for spawned windows.
	// Empty means autodetect ($TERMINAL, then a known-good list).
	Terminal string `yaml:"terminal"`

	// ExcludeServers lists glob patterns of server names discovery-based
	// commands skip.
	ExcludeServers []string `yaml:"exclude_servers"`

	// Refresh and parallelism for the interactive picker.
	Refresh  string `yaml:"refresh"`  // Go duration string, e.g. "5s"
	Parallel int    `yaml:"parallel"` // servers refreshed concurrently

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // comma-separated key=value pairs

	// Parsed duration (not from YAML, set after loading)
	RefreshDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		ServerProcess: "tmux: server",
		DefaultLayout: "tiled",
		Placeholder:   []string{"sleep", "infinity"},
		Refresh:       "5s",
		Parallel:      4,
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values. An empty path means
// "search the usual locations"; a missing file there is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if p, data, err := findConfigFile(path); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", p, err)
		}
		cfg.ConfigFile = p
		mergeFile(cfg, &fileCfg)
	} else if path != "" {
		// An explicitly named file must exist.
		return nil, err
	}

	mergeEnv(cfg)

	var err error
	cfg.RefreshDuration, err = parseDurationOrDisable(cfg.Refresh, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh interval %q: %w", cfg.Refresh, err)
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}

	return cfg, nil
}

// findConfigFile locates a config file and returns its path and contents.
// An explicit path skips the search.
func findConfigFile(explicit string) (string, []byte, error) {
	if explicit != "" {
		data, err := os.ReadFile(explicit)
		if err != nil {
			return "", nil, fmt.Errorf("read config file: %w", err)
		}
		return explicit, data, nil
	}

	// 1. Current directory
	if data, err := os.ReadFile(".muxherd.yaml"); err == nil {
		return ".muxherd.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "muxherd", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Tmux != "" {
		cfg.Tmux = file.Tmux
	}
	if file.SocketDir != "" {
		cfg.SocketDir = file.SocketDir
	}
	if file.ServerProcess != "" {
		cfg.ServerProcess = file.ServerProcess
	}
	if file.DefaultLayout != "" {
		cfg.DefaultLayout = file.DefaultLayout
	}
	if len(file.Placeholder) > 0 {
		cfg.Placeholder = file.Placeholder
	}
	if file.Terminal != "" {
		cfg.Terminal = file.Terminal
	}
	if len(file.ExcludeServers) > 0 {
		cfg.ExcludeServers = file.ExcludeServers
	}
	if file.Refresh != "" {
		cfg.Refresh = file.Refresh
	}
	if file.Parallel > 0 {
		cfg.Parallel = file.Parallel
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("MUXHERD_TMUX"); v != "" {
		cfg.Tmux = v
	}
	if v := os.Getenv("MUXHERD_SOCKET_DIR"); v != "" {
		cfg.SocketDir = v
	}
	if v := os.Getenv("MUXHERD_SERVER_PROCESS"); v != "" {
		cfg.ServerProcess = v
	}
	if v := os.Getenv("MUXHERD_LAYOUT"); v != "" {
		cfg.DefaultLayout = v
	}
	if v := os.Getenv("MUXHERD_TERMINAL"); v != "" {
		cfg.Terminal = v
	}
	if v := os.Getenv("MUXHERD_EXCLUDE_SERVERS"); v != "" {
		cfg.ExcludeServers = splitList(v)
	}
	if v := os.Getenv("MUXHERD_REFRESH"); v != "" {
		cfg.Refresh = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}

// splitList splits a comma-separated env value, dropping empty elements.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// MatchesExcludeList reports whether the server name matches any of the
// exclude patterns. Patterns use filepath.Match globs; a pattern that does
// not compile matches only as a literal name.
func MatchesExcludeList(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
		if name == p {
			return true
		}
	}
	return false
}
