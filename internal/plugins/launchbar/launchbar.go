// Package launchbar is the launcher plugin: a fixed set of command
// buttons arranged by the shared grid engine.
package launchbar

import (
	"log/slog"
	"os/exec"

	"github.com/ItsNotGoodName/x-panel/internal/config"
	"github.com/ItsNotGoodName/x-panel/internal/grid"
	"github.com/jezek/xgb/xproto"
)

// Host is the slice of the panel the launchbar needs to own sub-windows.
type Host interface {
	CreateSubWindow() (xproto.Window, error)
	MapSub(wid xproto.Window) error
	ConfigureSub(wid xproto.Window, r grid.Rect, offsetX, offsetY int) error
}

type button struct {
	wid     xproto.Window
	command string
}

type LaunchBar struct {
	host    Host
	layout  *grid.Layout
	buttons []button
	region  grid.Rect

	// run spawns a launcher command; swapped out by tests.
	run func(command string)
}

func New(host Host, cfg []config.Button, horizontal bool, cellSize int) (*LaunchBar, error) {
	orientation := grid.RowMajor
	if !horizontal {
		orientation = grid.ColumnMajor
	}

	lb := &LaunchBar{
		host:   host,
		layout: grid.New(orientation, cellSize, cellSize, 1),
		run:    spawn,
	}

	for _, b := range cfg {
		wid, err := host.CreateSubWindow()
		if err != nil {
			return nil, err
		}
		if err := host.MapSub(wid); err != nil {
			return nil, err
		}
		lb.buttons = append(lb.buttons, button{wid: wid, command: b.Command})
	}

	return lb, nil
}

func (lb *LaunchBar) Name() string { return "launchbar" }

func (lb *LaunchBar) Len() int { return len(lb.buttons) }

// Preferred reports the bar's natural size for the panel's region split.
func (lb *LaunchBar) Preferred() (w, h int) {
	return lb.layout.Preferred(len(lb.buttons))
}

// SetRegion assigns the launchbar's slice of the panel, bounds the grid
// cap by the region's narrow extent, and re-places the buttons.
func (lb *LaunchBar) SetRegion(r grid.Rect) {
	lb.region = r
	cellW, cellH := lb.layout.CellMax()
	if lb.layout.Orientation() == grid.RowMajor {
		lb.layout.SetCap(r.H / max(cellH, 1))
	} else {
		lb.layout.SetCap(r.W / max(cellW, 1))
	}
	lb.layout.TakeRelayout()
	lb.arrange()
}

func (lb *LaunchBar) arrange() {
	rects := lb.layout.Allocate(len(lb.buttons), lb.region.W, lb.region.H)
	for i, b := range lb.buttons {
		if err := lb.host.ConfigureSub(b.wid, rects[i], lb.region.X, lb.region.Y); err != nil {
			slog.Debug("Failed to place launcher button", "window", b.wid, "error", err)
		}
	}
}

// Click launches the clicked button's command. Reports whether the window
// belonged to this bar.
func (lb *LaunchBar) Click(wid xproto.Window) bool {
	for _, b := range lb.buttons {
		if b.wid == wid {
			if b.command != "" {
				slog.Info("Launching command", "command", b.command)
				lb.run(b.command)
			}
			return true
		}
	}
	return false
}

func (lb *LaunchBar) Close() {}

func spawn(command string) {
	cmd := exec.Command("/bin/sh", "-c", command)
	if err := cmd.Start(); err != nil {
		slog.Error("Failed to launch command", "command", command, "error", err)
		return
	}
	// Reap the child so finished launchers do not linger as zombies.
	go cmd.Wait()
}
