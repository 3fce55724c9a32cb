// Package picker is the interactive session browser: a bubbletea TUI
// listing every discovered server with its sessions, refreshed on a tick,
// from which the operator attaches to detached sessions.
package picker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muxherd/muxherd/internal/inventory"
)

// listItem is one visible row: a server header or a session under it.
type listItem struct {
	kind       itemKind
	entryIdx   int // index into entries
	sessionIdx int // index into entries[entryIdx].Sessions (itemSession only)
}

type itemKind int

const (
	itemServer itemKind = iota
	itemSession
)

// messages
type refreshMsg struct {
	entries []inventory.Entry
	err     error
}

type tickMsg struct{}

// Choice is the session the operator picked for a foreground attach. The
// TUI quits first; the caller performs the attach once the terminal is
// free again.
type Choice struct {
	Server  string
	Session string
}

// Picker runs the interactive session browser.
type Picker struct {
	// Refresher feeds the session inventory. Required.
	Refresher *inventory.Refresher
	// RefreshInterval schedules automatic refreshes. 0 disables them.
	RefreshInterval time.Duration
	// ThemeName selects the color theme: dark, light.
	ThemeName string
	// InsideSocket is the socket name of the surrounding tmux server when
	// the picker itself runs inside tmux; empty otherwise. Sessions on that
	// server are entered with switch-client instead of a fresh attach.
	InsideSocket string
	// Switch switches the surrounding tmux client to the given session.
	// Only called when InsideSocket matches the session's server.
	Switch func(ctx context.Context, server, session string) error
	// OpenWindow attaches to the session in a newly spawned terminal
	// emulator window. Nil disables the binding.
	OpenWindow func(server, session string) error
}

// Run blocks until the user quits or picks a session to attach to in the
// foreground. A nil Choice means plain quit.
func (p *Picker) Run(ctx context.Context) (*Choice, error) {
	st := newStyles(ThemeByName(p.ThemeName))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.dim

	m := &pickerModel{
		picker:   p,
		ctx:      ctx,
		styles:   st,
		spinner:  sp,
		expanded: make(map[string]bool),
	}
	out, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	final, ok := out.(*pickerModel)
	if !ok {
		return nil, nil
	}
	return final.choice, nil
}

// pickerModel implements tea.Model.
type pickerModel struct {
	picker *Picker
	ctx    context.Context
	styles styles

	entries  []inventory.Entry
	expanded map[string]bool // server name -> expanded; unset means expanded
	items    []listItem
	cursor   int

	spinner    spinner.Model
	refreshing bool
	message    string
	choice     *Choice

	width  int
	height int
}

func (m *pickerModel) Init() tea.Cmd {
	m.refreshing = true
	return tea.Batch(m.spinner.Tick, m.doRefresh())
}

func (m *pickerModel) doRefresh() tea.Cmd {
	refresher := m.picker.Refresher
	ctx := m.ctx
	return func() tea.Msg {
		entries, err := refresher.Refresh(ctx)
		return refreshMsg{entries: entries, err: err}
	}
}

// scheduleTick returns a tea.Cmd that sends a tickMsg after the refresh
// interval, or nil when auto-refresh is disabled.
func (m *pickerModel) scheduleTick() tea.Cmd {
	if m.picker.RefreshInterval <= 0 {
		return nil
	}
	return tea.Tick(m.picker.RefreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// rebuildItems flattens entries + expand state into the visible rows.
func (m *pickerModel) rebuildItems() {
	m.items = nil
	for ei, e := range m.entries {
		m.items = append(m.items, listItem{kind: itemServer, entryIdx: ei})
		if m.collapsed(e.Server) {
			continue
		}
		for si := range e.Sessions {
			m.items = append(m.items, listItem{kind: itemSession, entryIdx: ei, sessionIdx: si})
		}
	}
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// collapsed reports whether a server's sessions are hidden. Servers start
// expanded.
func (m *pickerModel) collapsed(server string) bool {
	expanded, seen := m.expanded[server]
	return seen && !expanded
}

// selectedSession returns the session under the cursor, or nil on a server
// header or empty list.
func (m *pickerModel) selectedSession() (inventory.Entry, int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return inventory.Entry{}, 0, false
	}
	item := m.items[m.cursor]
	if item.kind != itemSession {
		return inventory.Entry{}, 0, false
	}
	return m.entries[item.entryIdx], item.sessionIdx, true
}

func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.refreshing = false
		if msg.err != nil {
			m.message = fmt.Sprintf("refresh failed: %v", msg.err)
		} else {
			m.entries = msg.entries
			m.rebuildItems()
		}
		return m, m.scheduleTick()

	case tickMsg:
		if m.refreshing {
			return m, m.scheduleTick()
		}
		m.refreshing = true
		return m, tea.Batch(m.spinner.Tick, m.doRefresh())

	case spinner.TickMsg:
		if !m.refreshing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *pickerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "r":
		if !m.refreshing {
			m.refreshing = true
			return m, tea.Batch(m.spinner.Tick, m.doRefresh())
		}

	case "enter":
		return m.enter()

	case "a":
		return m.openInWindow()
	}
	return m, nil
}

// enter acts on the row under the cursor: toggle a server's sessions, or
// attach to a detached session. Inside tmux on the session's own socket the
// client is switched in place; otherwise the TUI quits and the caller runs
// the foreground attach.
func (m *pickerModel) enter() (tea.Model, tea.Cmd) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return m, nil
	}
	item := m.items[m.cursor]
	if item.kind == itemServer {
		server := m.entries[item.entryIdx].Server
		m.expanded[server] = m.collapsed(server)
		m.rebuildItems()
		return m, nil
	}

	entry, si, ok := m.selectedSession()
	if !ok {
		return m, nil
	}
	s := entry.Sessions[si]
	if s.Attached {
		m.message = fmt.Sprintf("%s/%s already has a client attached", entry.Server, s.Name)
		return m, nil
	}
	if m.picker.InsideSocket != "" && m.picker.InsideSocket == entry.Server {
		if err := m.picker.Switch(m.ctx, entry.Server, s.Name); err != nil {
			m.message = fmt.Sprintf("switch failed: %v", err)
			return m, nil
		}
		m.message = fmt.Sprintf("switched to %s", s.Name)
		return m, nil
	}
	m.choice = &Choice{Server: entry.Server, Session: s.Name}
	return m, tea.Quit
}

// openInWindow attaches to the selected detached session in a new terminal
// emulator window, leaving the picker running.
func (m *pickerModel) openInWindow() (tea.Model, tea.Cmd) {
	if m.picker.OpenWindow == nil {
		return m, nil
	}
	entry, si, ok := m.selectedSession()
	if !ok {
		return m, nil
	}
	s := entry.Sessions[si]
	if s.Attached {
		m.message = fmt.Sprintf("%s/%s already has a client attached", entry.Server, s.Name)
		return m, nil
	}
	if err := m.picker.OpenWindow(entry.Server, s.Name); err != nil {
		m.message = fmt.Sprintf("open window failed: %v", err)
	} else {
		m.message = fmt.Sprintf("opened %s/%s in a new window", entry.Server, s.Name)
	}
	return m, nil
}

func (m *pickerModel) View() string {
	var b strings.Builder

	title := m.styles.title.Render("muxherd — sessions")
	if m.refreshing {
		title += " " + m.spinner.View()
	}
	b.WriteString(title + "\n\n")

	if len(m.items) == 0 {
		b.WriteString(m.styles.dim.Render("no running servers") + "\n")
	}

	for i, item := range m.items {
		line := m.renderItem(item)
		if i == m.cursor {
			line = m.styles.selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(m.styles.dim.Render(m.message) + "\n")
	}
	b.WriteString(m.hints())
	return b.String()
}

func (m *pickerModel) renderItem(item listItem) string {
	e := m.entries[item.entryIdx]
	if item.kind == itemServer {
		marker := "▾"
		if m.collapsed(e.Server) {
			marker = "▸"
		}
		head := fmt.Sprintf("%s %s", marker, m.styles.server.Render(e.Server))
		if e.Err != nil {
			return head + " " + m.styles.err.Render(fmt.Sprintf("(%v)", e.Err))
		}
		return head + " " + m.styles.dim.Render(fmt.Sprintf("(%d sessions)", len(e.Sessions)))
	}

	s := e.Sessions[item.sessionIdx]
	name := m.styles.detached.Render(s.Name)
	if s.Attached {
		name = m.styles.attached.Render(s.Name)
	}
	line := fmt.Sprintf("  %s  %s", name,
		m.styles.dim.Render(fmt.Sprintf("%dw, %s", s.Windows, formatAge(s.Created))))
	if s.Attached {
		line += " " + m.styles.attached.Render("(attached)")
	}
	return line
}

func (m *pickerModel) hints() string {
	pairs := []struct{ key, desc string }{
		{"↑/↓", "move"},
		{"enter", "attach"},
		{"a", "new window"},
		{"r", "refresh"},
		{"q", "quit"},
	}
	var parts []string
	for _, p := range pairs {
		parts = append(parts, m.styles.hintKey.Render(p.key)+" "+m.styles.hintDesc.Render(p.desc))
	}
	return strings.Join(parts, m.styles.hintDesc.Render("  ·  "))
}

// formatAge renders how long ago a session was created, coarsely.
func formatAge(created time.Time) string {
	d := time.Since(created)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
