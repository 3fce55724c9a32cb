package model

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LayoutFile describes a multi-window, multi-pane session composition.
//
// Each window holds one or more panes, each running its own command. The
// first window may omit its name, in which case its panes land in the
// session's initial window; every later window needs a name so it can be
// created (or switched to, if it already exists).
//
// Example YAML:
//
//	layout: tiled
//	windows:
//	  - name: db
//	    panes:
//	      - title: primary
//	        command: ["greendb", "-c", "primary.json"]
//	      - title: replica
//	        command: ["greendb", "-c", "replica.json"]
//	  - name: logs
//	    panes:
//	      - command: ["tail", "-f", "/var/log/greendb.log"]
type LayoutFile struct {
	// Layout is the tmux layout algorithm applied to each window after its
	// panes are created. Options: main-vertical, main-horizontal,
	// even-horizontal, even-vertical, tiled. Empty means the caller's
	// default.
	Layout string `yaml:"layout"`

	// Windows defines the windows to compose, in order.
	Windows []LayoutWindow `yaml:"windows"`
}

// LayoutWindow describes one window in a layout file.
type LayoutWindow struct {
	// Name identifies the window. Optional for the first window only.
	Name string `yaml:"name"`

	// Panes defines the panes of this window, in order. At least one is
	// required, and every pane needs a command.
	Panes []LayoutPane `yaml:"panes"`
}

// LayoutPane describes a single pane in a layout file.
type LayoutPane struct {
	// Title is set as the tmux pane title. Optional.
	Title string `yaml:"title"`

	// Command is the argv to run in this pane. Required.
	Command []string `yaml:"command"`
}

// LoadLayoutFile reads and validates a LayoutFile from a YAML file.
func LoadLayoutFile(path string) (LayoutFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LayoutFile{}, fmt.Errorf("read layout file %s: %w", path, err)
	}
	var lf LayoutFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return LayoutFile{}, fmt.Errorf("parse layout file %s: %w", path, err)
	}
	if err := lf.Validate(); err != nil {
		return LayoutFile{}, fmt.Errorf("layout file %s: %w", path, err)
	}
	return lf, nil
}

// Validate checks the structural rules a layout file must satisfy before any
// tmux command is issued for it.
func (f LayoutFile) Validate() error {
	if len(f.Windows) == 0 {
		return errors.New("no windows defined")
	}
	for i, w := range f.Windows {
		if i > 0 && w.Name == "" {
			return fmt.Errorf("window %d: name required (only the first window may be unnamed)", i)
		}
		if len(w.Panes) == 0 {
			return fmt.Errorf("window %d (%s): no panes defined", i, w.Name)
		}
		for j, p := range w.Panes {
			if len(p.Command) == 0 {
				return fmt.Errorf("window %d (%s) pane %d: empty command", i, w.Name, j)
			}
		}
	}
	return nil
}
