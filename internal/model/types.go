package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LineFormat is the list-sessions format string producing one parseable line
// per session. Fields are tab-separated so extraction never scrapes the
// rendered human line; the pane title sits last because it is free-form text
// and may itself contain tabs.
const LineFormat = "#{session_created}\t#{session_name}\t#{session_windows}\t#{session_group}\t#{session_grouped}\t#{session_attached}\t#{pane_title}"

// lineFields is the number of tab-separated fields in LineFormat.
const lineFields = 7

// Session describes one tmux session on a named server.
type Session struct {
	// Server is the socket name the session's server was started with (-L).
	Server string `json:"server"`
	// Name is the session name, usable as an attach target.
	Name string `json:"name"`
	// Created is the session creation time.
	Created time.Time `json:"created"`
	// Windows is the number of windows in the session.
	Windows int `json:"windows"`
	// Group is the session group name. Empty when the session is ungrouped.
	Group string `json:"group,omitempty"`
	// Grouped reports whether the session belongs to a session group.
	Grouped bool `json:"grouped,omitempty"`
	// Title is the title of the active pane.
	Title string `json:"title,omitempty"`
	// Attached reports whether at least one client is attached.
	Attached bool `json:"attached"`
}

// ParseSessionLine parses a single LineFormat-formatted line as emitted by
// list-sessions on the given server.
func ParseSessionLine(server, line string) (Session, error) {
	parts := strings.SplitN(line, "\t", lineFields)
	if len(parts) != lineFields {
		return Session{}, fmt.Errorf("malformed session line (%d of %d fields): %q", len(parts), lineFields, line)
	}
	created, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("bad session creation time %q: %w", parts[0], err)
	}
	windows, err := strconv.Atoi(parts[2])
	if err != nil {
		return Session{}, fmt.Errorf("bad window count %q: %w", parts[2], err)
	}
	// session_attached renders as the number of attached clients.
	clients, err := strconv.Atoi(parts[5])
	if err != nil {
		return Session{}, fmt.Errorf("bad attached count %q: %w", parts[5], err)
	}
	return Session{
		Server:   server,
		Name:     parts[1],
		Created:  time.Unix(created, 0),
		Windows:  windows,
		Group:    parts[3],
		Grouped:  parts[4] == "1",
		Attached: clients > 0,
		Title:    parts[6],
	}, nil
}

// ParseSessions parses full list-sessions output, one session per line.
// Blank lines are skipped; a server with no sessions yields a nil slice.
func ParseSessions(server, out string) ([]Session, error) {
	var sessions []Session
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		s, err := ParseSessionLine(server, line)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Line renders the session as a human-readable descriptive line. The
// "(attached)" marker is appended only when a client is attached, which is
// what bulk attach relies on to recognize sessions it must leave alone.
func (s Session) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d windows (created %s)", s.Name, s.Windows, s.Created.Format("2006-01-02 15:04:05"))
	if s.Grouped {
		fmt.Fprintf(&b, " (group %s)", s.Group)
	}
	if s.Title != "" {
		b.WriteString(" ")
		b.WriteString(s.Title)
	}
	if s.Attached {
		b.WriteString(" (attached)")
	}
	return b.String()
}
