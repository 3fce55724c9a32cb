// Package discover locates running tmux servers by correlating the process
// table with the unix-domain socket table: a server is a process named like
// a tmux server that owns a socket inside tmux's per-user socket directory.
// The socket's file name is the server name usable with -L.
package discover

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// defaultProcessName is how a tmux server announces itself in the process
// table.
const defaultProcessName = "tmux: server"

// Options adjusts where and what to look for. Zero values select tmux's
// defaults.
type Options struct {
	// SocketDir is the directory holding the server sockets. Empty means
	// the per-user default, /tmp/tmux-<uid>.
	SocketDir string
	// ProcessName is the process-table name of a tmux server. Empty means
	// "tmux: server".
	ProcessName string
}

// DefaultSocketDir returns tmux's per-user socket directory.
func DefaultSocketDir() string {
	return fmt.Sprintf("/tmp/tmux-%d", os.Getuid())
}

// socketOwner is one unix-domain socket and the pid holding it.
type socketOwner struct {
	Path string
	Pid  int32
}

// listProcesses returns pid → process name for every visible process.
// Package-level so tests can substitute fixed tables.
var listProcesses = func(ctx context.Context) (map[int32]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int32]string, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Processes exit mid-scan; skip them.
			continue
		}
		names[p.Pid] = name
	}
	return names, nil
}

// listUnixSockets returns every unix-domain socket with its owning pid.
var listUnixSockets = func(ctx context.Context) ([]socketOwner, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "unix")
	if err != nil {
		return nil, err
	}
	owners := make([]socketOwner, 0, len(conns))
	for _, conn := range conns {
		owners = append(owners, socketOwner{Path: conn.Laddr.IP, Pid: conn.Pid})
	}
	return owners, nil
}

// Servers returns the names of all tmux servers currently running for this
// user, sorted. Zero running servers is an empty result, not an error; a
// failure to read the process or socket tables is an error.
func Servers(ctx context.Context, opts Options) ([]string, error) {
	procName := opts.ProcessName
	if procName == "" {
		procName = defaultProcessName
	}
	dir := opts.SocketDir
	if dir == "" {
		dir = DefaultSocketDir()
	}
	prefix := strings.TrimSuffix(dir, "/") + "/"

	names, err := listProcesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	serverPids := make(map[int32]bool)
	for pid, name := range names {
		if name == procName {
			serverPids[pid] = true
		}
	}
	if len(serverPids) == 0 {
		return nil, nil
	}

	owners, err := listUnixSockets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unix sockets: %w", err)
	}

	seen := make(map[string]bool)
	var servers []string
	for _, o := range owners {
		if !serverPids[o.Pid] || !strings.HasPrefix(o.Path, prefix) {
			continue
		}
		name := strings.TrimPrefix(o.Path, prefix)
		if name == "" || strings.Contains(name, "/") || seen[name] {
			continue
		}
		seen[name] = true
		servers = append(servers, name)
	}
	sort.Strings(servers)
	return servers, nil
}

// WithPrefix filters server names to those with the given literal prefix.
func WithPrefix(servers []string, prefix string) []string {
	var out []string
	for _, s := range servers {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}
