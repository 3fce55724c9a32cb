package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/muxherd/muxherd/internal/model"
	"github.com/muxherd/muxherd/internal/mux"
)

// mockTmux implements Tmux, recording every invocation as one formatted
// line so tests can assert exact command sequences.
type mockTmux struct {
	calls []string

	hasSession  bool
	windows     []mux.Window
	windowID    string // initial current window id
	windowName  string // initial current window name
	paneID      string // display-message pane id reply
	splitID     string // split-window reply
	newWindowID string // new-window reply
	startErr    error
	respawnErr  error
	layoutErr   error
}

func (m *mockTmux) log(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockTmux) StartServer(context.Context) error {
	m.log("start-server")
	return m.startErr
}

func (m *mockTmux) HasSession(_ context.Context, name string) (bool, error) {
	m.log("has-session %s", name)
	return m.hasSession, nil
}

func (m *mockTmux) NewSession(_ context.Context, name string, command ...string) error {
	m.log("new-session %s %s", name, strings.Join(command, " "))
	return nil
}

func (m *mockTmux) KillSession(_ context.Context, name string) error {
	m.log("kill-session %s", name)
	return nil
}

func (m *mockTmux) SetOption(_ context.Context, target, option, value string) error {
	m.log("set-option %s %s %s", target, option, value)
	return nil
}

func (m *mockTmux) DisplayMessage(_ context.Context, target, format string) (string, error) {
	m.log("display-message %s", target)
	if strings.Contains(format, "window_id") {
		return m.windowID + "\t" + m.windowName, nil
	}
	return m.paneID, nil
}

func (m *mockTmux) RespawnPane(_ context.Context, target string, command ...string) error {
	m.log("respawn-pane %s %s", target, strings.Join(command, " "))
	return m.respawnErr
}

func (m *mockTmux) NewWindow(_ context.Context, session, name string, command ...string) (string, error) {
	m.log("new-window %s %s %s", session, name, strings.Join(command, " "))
	return m.newWindowID, nil
}

func (m *mockTmux) ListWindows(_ context.Context, session string) ([]mux.Window, error) {
	m.log("list-windows %s", session)
	return m.windows, nil
}

func (m *mockTmux) SelectWindow(_ context.Context, target string) error {
	m.log("select-window %s", target)
	return nil
}

func (m *mockTmux) SplitWindow(_ context.Context, target string, command ...string) (string, error) {
	m.log("split-window %s %s", target, strings.Join(command, " "))
	return m.splitID, nil
}

func (m *mockTmux) SelectLayout(_ context.Context, target, layout string) error {
	m.log("select-layout %s %s", target, layout)
	return m.layoutErr
}

func (m *mockTmux) SetPaneTitle(_ context.Context, target, title string) error {
	m.log("select-pane %s -T %s", target, title)
	return nil
}

func newMock() *mockTmux {
	return &mockTmux{
		windowID:    "@1",
		windowName:  "zsh",
		paneID:      "%0",
		splitID:     "%5",
		newWindowID: "@7",
	}
}

func open(t *testing.T, m *mockTmux, opts Options) *Workspace {
	t.Helper()
	if opts.Warnings == nil {
		opts.Warnings = &bytes.Buffer{}
	}
	w, err := Open(context.Background(), m, "work", opts)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return w
}

func TestOpenCreatesMissingSession(t *testing.T) {
	m := newMock()
	open(t, m, Options{})

	want := []string{
		"start-server",
		"has-session work",
		"new-session work sleep infinity",
		"set-option work remain-on-exit failed",
		"display-message work",
	}
	if !reflect.DeepEqual(m.calls, want) {
		t.Errorf("calls = %v\nwant %v", m.calls, want)
	}
}

func TestOpenReusesExistingSession(t *testing.T) {
	m := newMock()
	m.hasSession = true
	open(t, m, Options{})

	for _, call := range m.calls {
		if strings.HasPrefix(call, "new-session") {
			t.Errorf("existing session was recreated: %v", m.calls)
		}
	}
}

func TestOpenForceNewKillsFirst(t *testing.T) {
	m := newMock()
	open(t, m, Options{ForceNew: true})

	if m.calls[1] != "kill-session work" {
		t.Errorf("calls = %v, want kill-session right after start-server", m.calls)
	}
}

func TestOpenCustomPlaceholder(t *testing.T) {
	m := newMock()
	open(t, m, Options{Placeholder: []string{"cat"}})

	found := false
	for _, call := range m.calls {
		if call == "new-session work cat" {
			found = true
		}
	}
	if !found {
		t.Errorf("placeholder not used: %v", m.calls)
	}
}

func TestOpenStartServerFailure(t *testing.T) {
	m := newMock()
	m.startErr = errors.New("socket dir not writable")

	if _, err := Open(context.Background(), m, "work", Options{}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestAddPaneEmptyCommand(t *testing.T) {
	m := newMock()
	w := open(t, m, Options{})
	before := len(m.calls)

	if _, err := w.AddPane(context.Background(), PaneSpec{}); err == nil {
		t.Fatal("expected usage error, got nil")
	}
	// Rejected before any tmux invocation.
	if len(m.calls) != before {
		t.Errorf("tmux was invoked for an empty command: %v", m.calls[before:])
	}
}

func TestAddPaneFirstRespawnsThenSplits(t *testing.T) {
	m := newMock()
	w := open(t, m, Options{})
	ctx := context.Background()
	m.calls = nil

	id, err := w.AddPane(ctx, PaneSpec{Command: []string{"echo", "hi"}})
	if err != nil {
		t.Fatalf("AddPane() error: %v", err)
	}
	if id != "%0" {
		t.Errorf("first pane id = %q, want %%0", id)
	}
	want := []string{
		"respawn-pane work:@1.0 echo hi",
		"display-message work:@1.0",
	}
	if !reflect.DeepEqual(m.calls, want) {
		t.Errorf("calls = %v\nwant %v", m.calls, want)
	}

	m.calls = nil
	id, err = w.AddPane(ctx, PaneSpec{Command: []string{"htop"}})
	if err != nil {
		t.Fatalf("AddPane() error: %v", err)
	}
	if id != "%5" {
		t.Errorf("second pane id = %q, want %%5", id)
	}
	want = []string{
		"split-window work:@1 htop",
		"select-layout work:@1 tiled",
	}
	if !reflect.DeepEqual(m.calls, want) {
		t.Errorf("calls = %v\nwant %v", m.calls, want)
	}
}

func TestAddPaneSetsTitle(t *testing.T) {
	m := newMock()
	w := open(t, m, Options{})

	if _, err := w.AddPane(context.Background(), PaneSpec{Command: []string{"vim"}, Title: "editor"}); err != nil {
		t.Fatalf("AddPane() error: %v", err)
	}
	last := m.calls[len(m.calls)-1]
	if last != "select-pane %0 -T editor" {
		t.Errorf("last call = %q, want pane title set", last)
	}
}

func TestAddPaneSwitchesToExistingWindow(t *testing.T) {
	m := newMock()
	m.windows = []mux.Window{{ID: "@1", Name: "zsh"}, {ID: "@9", Name: "logs"}}
	w := open(t, m, Options{})
	ctx := context.Background()

	// Occupy the current window so the counter is nonzero before switching.
	if _, err := w.AddPane(ctx, PaneSpec{Command: []string{"vim"}}); err != nil {
		t.Fatal(err)
	}
	m.calls = nil

	if _, err := w.AddPane(ctx, PaneSpec{Command: []string{"tail", "-f", "x"}, Window: "logs"}); err != nil {
		t.Fatalf("AddPane() error: %v", err)
	}
	want := []string{
		"list-windows work",
		"select-window work:@9",
		// Counter reset on window change: first pane respawns, not splits.
		"respawn-pane work:@9.0 tail -f x",
		"display-message work:@9.0",
	}
	if !reflect.DeepEqual(m.calls, want) {
		t.Errorf("calls = %v\nwant %v", m.calls, want)
	}
}

func TestAddPaneCreatesMissingWindow(t *testing.T) {
	m := newMock()
	m.windows = []mux.Window{{ID: "@1", Name: "zsh"}}
	w := open(t, m, Options{})
	m.calls = nil

	if _, err := w.AddPane(context.Background(), PaneSpec{Command: []string{"htop"}, Window: "monitor"}); err != nil {
		t.Fatalf("AddPane() error: %v", err)
	}
	want := []string{
		"list-windows work",
		"new-window work monitor sleep infinity",
		"respawn-pane work:@7.0 htop",
		"display-message work:@7.0",
	}
	if !reflect.DeepEqual(m.calls, want) {
		t.Errorf("calls = %v\nwant %v", m.calls, want)
	}
}

func TestAddPaneCurrentWindowNameSkipsLookup(t *testing.T) {
	m := newMock()
	w := open(t, m, Options{})
	m.calls = nil

	if _, err := w.AddPane(context.Background(), PaneSpec{Command: []string{"vim"}, Window: "zsh"}); err != nil {
		t.Fatalf("AddPane() error: %v", err)
	}
	for _, call := range m.calls {
		if strings.HasPrefix(call, "list-windows") || strings.HasPrefix(call, "select-window") {
			t.Errorf("window lookup for the already-current window: %v", m.calls)
		}
	}
}

func TestAddPaneRespawnFailurePropagates(t *testing.T) {
	m := newMock()
	m.respawnErr = errors.New("pane gone")
	w := open(t, m, Options{})

	if _, err := w.AddPane(context.Background(), PaneSpec{Command: []string{"vim"}}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLayoutFailureIsWarningOnly(t *testing.T) {
	m := newMock()
	m.layoutErr = errors.New("no space for pane")
	var warnings bytes.Buffer
	w := open(t, m, Options{Warnings: &warnings})
	ctx := context.Background()

	if _, err := w.AddPane(ctx, PaneSpec{Command: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	// Second pane triggers the layout re-application that fails.
	id, err := w.AddPane(ctx, PaneSpec{Command: []string{"b"}})
	if err != nil {
		t.Fatalf("AddPane() error: %v", err)
	}
	if id != "%5" {
		t.Errorf("pane id = %q, want %%5", id)
	}
	if !strings.Contains(warnings.String(), "warning: apply layout") {
		t.Errorf("warnings = %q, want layout warning", warnings.String())
	}
}

func TestNewWindowResetsCounter(t *testing.T) {
	m := newMock()
	w := open(t, m, Options{})
	ctx := context.Background()

	if _, err := w.AddPane(ctx, PaneSpec{Command: []string{"vim"}}); err != nil {
		t.Fatal(err)
	}
	id, err := w.NewWindow(ctx, "fresh")
	if err != nil {
		t.Fatalf("NewWindow() error: %v", err)
	}
	if id != "@7" {
		t.Errorf("NewWindow() = %q, want @7", id)
	}
	m.calls = nil

	if _, err := w.AddPane(ctx, PaneSpec{Command: []string{"htop"}}); err != nil {
		t.Fatal(err)
	}
	if m.calls[0] != "respawn-pane work:@7.0 htop" {
		t.Errorf("calls = %v, want respawn in the fresh window", m.calls)
	}
}

func TestApplyLayoutOverride(t *testing.T) {
	m := newMock()
	w := open(t, m, Options{Layout: "even-horizontal"})
	m.calls = nil

	w.ApplyLayout(context.Background(), "main-vertical")
	if m.calls[0] != "select-layout work:@1 main-vertical" {
		t.Errorf("calls = %v", m.calls)
	}

	m.calls = nil
	w.ApplyLayout(context.Background(), "")
	if m.calls[0] != "select-layout work:@1 even-horizontal" {
		t.Errorf("calls = %v", m.calls)
	}
}

func TestCloseAppliesFinalLayout(t *testing.T) {
	m := newMock()
	w := open(t, m, Options{})
	m.calls = nil

	w.Close(context.Background())
	if len(m.calls) != 1 || m.calls[0] != "select-layout work:@1 tiled" {
		t.Errorf("calls = %v, want final select-layout", m.calls)
	}
}

func TestCompose(t *testing.T) {
	m := newMock()
	m.windows = []mux.Window{{ID: "@1", Name: "zsh"}}
	w := open(t, m, Options{})
	m.calls = nil

	lf := model.LayoutFile{
		Layout: "main-vertical",
		Windows: []model.LayoutWindow{
			{Panes: []model.LayoutPane{
				{Command: []string{"greendb", "-c", "a.json"}, Title: "a"},
				{Command: []string{"greendb", "-c", "b.json"}},
			}},
			{Name: "logs", Panes: []model.LayoutPane{
				{Command: []string{"tail", "-f", "x.log"}},
			}},
		},
	}

	panes, err := w.Compose(context.Background(), lf)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	want := []string{"%0", "%5", "%0"}
	if !reflect.DeepEqual(panes, want) {
		t.Errorf("Compose() = %v, want %v", panes, want)
	}

	joined := strings.Join(m.calls, "\n")
	if !strings.Contains(joined, "select-layout work:@1 main-vertical") {
		t.Errorf("file layout not applied:\n%s", joined)
	}
	if !strings.Contains(joined, "new-window work logs sleep infinity") {
		t.Errorf("second window not created:\n%s", joined)
	}
}

func TestComposeRejectsInvalidFile(t *testing.T) {
	m := newMock()
	w := open(t, m, Options{})
	before := len(m.calls)

	_, err := w.Compose(context.Background(), model.LayoutFile{})
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if len(m.calls) != before {
		t.Errorf("tmux was invoked for an invalid layout file")
	}
}
