// Package workspace composes multi-pane tmux sessions. It owns the
// create-or-reuse session dance, placeholder replacement, window tracking
// and layout application; the actual tmux invocations go through the Tmux
// interface.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muxherd/muxherd/internal/model"
	"github.com/muxherd/muxherd/internal/mux"
	mhotel "github.com/muxherd/muxherd/internal/otel"
)

// DefaultLayout is applied when no layout is configured.
const DefaultLayout = "tiled"

// Tmux is the slice of the tmux client the orchestrator drives.
// *mux.Client implements it.
type Tmux interface {
	StartServer(ctx context.Context) error
	HasSession(ctx context.Context, name string) (bool, error)
	NewSession(ctx context.Context, name string, command ...string) error
	KillSession(ctx context.Context, name string) error
	SetOption(ctx context.Context, target, option, value string) error
	DisplayMessage(ctx context.Context, target, format string) (string, error)
	RespawnPane(ctx context.Context, target string, command ...string) error
	NewWindow(ctx context.Context, session, name string, command ...string) (string, error)
	ListWindows(ctx context.Context, session string) ([]mux.Window, error)
	SelectWindow(ctx context.Context, target string) error
	SplitWindow(ctx context.Context, target string, command ...string) (string, error)
	SelectLayout(ctx context.Context, target, layout string) error
	SetPaneTitle(ctx context.Context, target, title string) error
}

// Options configures Open.
type Options struct {
	// Layout is the tmux layout re-applied as panes are added. Empty means
	// DefaultLayout.
	Layout string
	// ForceNew kills any existing session of the same name before creating
	// a fresh one.
	ForceNew bool
	// Placeholder is the command parked in fresh windows until the first
	// real pane replaces it. Empty means "sleep infinity".
	Placeholder []string
	// Warnings receives notes about non-fatal failures. Nil means stderr.
	Warnings io.Writer
	// Metrics counts pane creation and layout failures; nil-safe.
	Metrics *mhotel.Metrics
}

// PaneSpec describes one pane to add.
type PaneSpec struct {
	// Command is the argv to run in the pane. Required.
	Command []string
	// Title is set on the created pane when non-empty.
	Title string
	// Window names the window to place the pane in. Empty means the current
	// window; a named window is switched to if it exists and created
	// otherwise.
	Window string
}

// Workspace tracks composition state for one session: which window panes
// are currently being added to and how many real panes that window holds.
//
// The pane count resets to zero whenever the current window changes, and
// while it is zero the next pane replaces the window's placeholder via a
// forced respawn instead of splitting. A window therefore never holds both
// the placeholder and a real command. Single goroutine use only.
type Workspace struct {
	tmux        Tmux
	session     string
	layout      string
	placeholder []string
	warnings    io.Writer
	metrics     *mhotel.Metrics

	windowID   string // current window id, e.g. "@3"
	windowName string
	panes      int // real panes in the current window
}

// Open prepares the session on the client's server. The server is started
// if needed, the session created detached with a placeholder if it does not
// exist, and remain-on-exit set to failed so panes whose command dies keep
// their output visible.
func Open(ctx context.Context, t Tmux, session string, opts Options) (*Workspace, error) {
	w := &Workspace{
		tmux:        t,
		session:     session,
		layout:      opts.Layout,
		placeholder: opts.Placeholder,
		warnings:    opts.Warnings,
		metrics:     opts.Metrics,
	}
	if w.layout == "" {
		w.layout = DefaultLayout
	}
	if len(w.placeholder) == 0 {
		w.placeholder = []string{"sleep", "infinity"}
	}
	if w.warnings == nil {
		w.warnings = os.Stderr
	}

	if err := t.StartServer(ctx); err != nil {
		return nil, err
	}
	if opts.ForceNew {
		// KillSession already treats a missing session as success.
		if err := t.KillSession(ctx, session); err != nil {
			return nil, err
		}
	}
	exists, err := t.HasSession(ctx, session)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := t.NewSession(ctx, session, w.placeholder...); err != nil {
			return nil, err
		}
	}
	if err := t.SetOption(ctx, session, "remain-on-exit", "failed"); err != nil {
		return nil, err
	}

	out, err := t.DisplayMessage(ctx, session, "#{window_id}\t#{window_name}")
	if err != nil {
		return nil, err
	}
	w.windowID, w.windowName, _ = strings.Cut(out, "\t")
	return w, nil
}

// target is the current window's tmux target.
func (w *Workspace) target() string {
	return fmt.Sprintf("%s:%s", w.session, w.windowID)
}

// Session returns the session name the workspace composes.
func (w *Workspace) Session() string {
	return w.session
}

// AddPane runs the command in a new pane of the current (or named) window
// and returns the created pane's id.
//
// The first pane after a window change replaces that window's first pane
// with a forced respawn; later panes split the window, re-applying the
// layout each time (a layout failure is only a warning).
func (w *Workspace) AddPane(ctx context.Context, spec PaneSpec) (string, error) {
	if len(spec.Command) == 0 {
		return "", errors.New("pane command cannot be empty")
	}
	if spec.Window != "" && spec.Window != w.windowName {
		if err := w.switchWindow(ctx, spec.Window); err != nil {
			return "", err
		}
	}

	var paneID string
	if w.panes == 0 {
		target := fmt.Sprintf("%s:%s.0", w.session, w.windowID)
		if err := w.tmux.RespawnPane(ctx, target, spec.Command...); err != nil {
			return "", err
		}
		id, err := w.tmux.DisplayMessage(ctx, target, "#{pane_id}")
		if err != nil {
			return "", err
		}
		paneID = id
		w.metrics.RecordPane(ctx, "respawn")
	} else {
		id, err := w.tmux.SplitWindow(ctx, w.target(), spec.Command...)
		if err != nil {
			return "", err
		}
		paneID = id
		w.metrics.RecordPane(ctx, "split")
		w.ApplyLayout(ctx, "")
	}
	w.panes++

	if spec.Title != "" {
		if err := w.tmux.SetPaneTitle(ctx, paneID, spec.Title); err != nil {
			return "", err
		}
	}
	return paneID, nil
}

// switchWindow makes the named window current, creating it when it does not
// exist. Either way the pane count starts over.
func (w *Workspace) switchWindow(ctx context.Context, name string) error {
	windows, err := w.tmux.ListWindows(ctx, w.session)
	if err != nil {
		return err
	}
	for _, win := range windows {
		if win.Name == name {
			if err := w.tmux.SelectWindow(ctx, fmt.Sprintf("%s:%s", w.session, win.ID)); err != nil {
				return err
			}
			w.windowID = win.ID
			w.windowName = name
			w.panes = 0
			return nil
		}
	}
	_, err = w.NewWindow(ctx, name)
	return err
}

// NewWindow creates a named window holding a placeholder and makes it
// current for subsequent AddPane calls.
func (w *Workspace) NewWindow(ctx context.Context, name string) (string, error) {
	id, err := w.tmux.NewWindow(ctx, w.session, name, w.placeholder...)
	if err != nil {
		return "", err
	}
	w.windowID = id
	w.windowName = name
	w.panes = 0
	return id, nil
}

// ApplyLayout applies the given layout, or the workspace default when empty,
// to the current window. Failures are warnings, not errors: some layouts
// are invalid for certain pane counts.
func (w *Workspace) ApplyLayout(ctx context.Context, layout string) {
	if layout == "" {
		layout = w.layout
	}
	if err := w.tmux.SelectLayout(ctx, w.target(), layout); err != nil {
		w.metrics.RecordLayoutFailure(ctx)
		fmt.Fprintf(w.warnings, "warning: apply layout: %v\n", err)
	}
}

// Compose builds every window and pane of a layout file in order and
// returns the created pane ids. The file's layout, when set, overrides the
// workspace layout for everything composed.
func (w *Workspace) Compose(ctx context.Context, lf model.LayoutFile) ([]string, error) {
	if err := lf.Validate(); err != nil {
		return nil, err
	}
	if lf.Layout != "" {
		w.layout = lf.Layout
	}
	var panes []string
	for _, win := range lf.Windows {
		for _, p := range win.Panes {
			id, err := w.AddPane(ctx, PaneSpec{Command: p.Command, Title: p.Title, Window: win.Name})
			if err != nil {
				return panes, err
			}
			panes = append(panes, id)
		}
	}
	return panes, nil
}

// Close applies the final layout. Callers defer it so the layout lands even
// on early returns; it never masks their errors.
func (w *Workspace) Close(ctx context.Context) {
	w.ApplyLayout(ctx, "")
}
