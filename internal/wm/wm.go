// Package wm wraps the EWMH/ICCCM property surface over xgbutil. Reads
// degrade to zero values with an error when a window is gone; commands are
// fire-and-forget client messages to the window manager.
package wm

import (
	"log/slog"

	"github.com/ItsNotGoodName/x-panel/internal/taskbar"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil"
	"github.com/jezek/xgbutil/ewmh"
	"github.com/jezek/xgbutil/icccm"
	"github.com/jezek/xgbutil/xprop"
	"github.com/jezek/xgbutil/xwindow"
)

type Client struct {
	X *xgbutil.XUtil

	atomNames map[xproto.Atom]string
}

func New(x *xgbutil.XUtil) *Client {
	return &Client{
		X:         x,
		atomNames: make(map[xproto.Atom]string),
	}
}

// AtomName resolves and caches a property atom's name for event routing.
func (c *Client) AtomName(a xproto.Atom) string {
	if name, ok := c.atomNames[a]; ok {
		return name
	}
	name, err := xprop.AtomName(c.X, a)
	if err != nil {
		return ""
	}
	c.atomNames[a] = name
	return name
}

// ClientList reads the window manager's client-list snapshot. On error the
// snapshot is empty, which the registry treats as "no clients", so callers
// pass through the previous state by skipping the reconcile.
func (c *Client) ClientList() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.X)
}

func (c *Client) ActiveWindow() xproto.Window {
	active, err := ewmh.ActiveWindowGet(c.X)
	if err != nil {
		return xproto.WindowNone
	}
	return active
}

func (c *Client) CurrentDesktop() (uint32, error) {
	d, err := ewmh.CurrentDesktopGet(c.X)
	return uint32(d), err
}

func (c *Client) DesktopCount() (uint32, error) {
	n, err := ewmh.NumberOfDesktopsGet(c.X)
	return uint32(n), err
}

// WindowState implements taskbar.Reader.
func (c *Client) WindowState(w xproto.Window) (taskbar.WindowState, error) {
	states, err := ewmh.WmStateGet(c.X, w)
	if err != nil {
		return taskbar.WindowState{}, err
	}

	var s taskbar.WindowState
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_SKIP_TASKBAR":
			s.SkipTaskbar = true
		case "_NET_WM_STATE_SKIP_PAGER":
			s.SkipPager = true
		case "_NET_WM_STATE_SHADED":
			s.Shaded = true
		case "_NET_WM_STATE_HIDDEN":
			s.Hidden = true
		}
	}
	return s, nil
}

// WindowType implements taskbar.Reader. A window without the property is
// normal, not an error.
func (c *Client) WindowType(w xproto.Window) (taskbar.WindowType, error) {
	types, err := ewmh.WmWindowTypeGet(c.X, w)
	if err != nil {
		// Distinguish "no property" from "window gone" by probing the
		// window's attributes; a vanished window must be skipped.
		if _, aerr := xproto.GetWindowAttributes(c.X.Conn(), w).Reply(); aerr != nil {
			return taskbar.WindowType{}, aerr
		}
		return taskbar.WindowType{}, nil
	}

	var t taskbar.WindowType
	for _, typ := range types {
		switch typ {
		case "_NET_WM_WINDOW_TYPE_DESKTOP":
			t.Desktop = true
		case "_NET_WM_WINDOW_TYPE_DOCK":
			t.Dock = true
		case "_NET_WM_WINDOW_TYPE_SPLASH":
			t.Splash = true
		}
	}
	return t, nil
}

// WindowTitle prefers the UTF-8 _NET_WM_NAME and falls back to the legacy
// WM_NAME. A window with neither reports an empty title.
func (c *Client) WindowTitle(w xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.X, w); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.X, w); err == nil {
		return name
	}
	return ""
}

func (c *Client) WindowDesktop(w xproto.Window) (uint32, error) {
	d, err := ewmh.WmDesktopGet(c.X, w)
	if err != nil {
		return 0, err
	}
	return uint32(d), nil
}

// Urgent reads the ICCCM urgency hint and the EWMH demands-attention
// state.
func (c *Client) Urgent(w xproto.Window) bool {
	if hints, err := icccm.WmHintsGet(c.X, w); err == nil {
		if hints.Flags&icccm.HintUrgency > 0 {
			return true
		}
	}
	states, err := ewmh.WmStateGet(c.X, w)
	if err != nil {
		return false
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_DEMANDS_ATTENTION" {
			return true
		}
	}
	return false
}

// Watch implements taskbar.Watcher by selecting PropertyChange events on
// the window.
func (c *Client) Watch(w xproto.Window) error {
	return xwindow.New(c.X, w).Listen(xproto.EventMaskPropertyChange)
}

func (c *Client) Unwatch(w xproto.Window) {
	// The window may already be destroyed; an unchecked request is fine.
	xproto.ChangeWindowAttributes(c.X.Conn(), w, xproto.CwEventMask, []uint32{0})
}

// WatchRoot subscribes to the root window's property notifications.
func (c *Client) WatchRoot() error {
	return xwindow.New(c.X, c.X.RootWin()).Listen(xproto.EventMaskPropertyChange)
}

// Outbound window-manager commands. All are fire-and-forget; failures are
// logged and dropped because there is nothing useful to do about them.

func (c *Client) Activate(w xproto.Window, timestamp xproto.Timestamp) {
	// Source indication 2 marks the request as coming from a pager/taskbar.
	if err := ewmh.ClientEvent(c.X, w, "_NET_ACTIVE_WINDOW", 2, int(timestamp), 0); err != nil {
		slog.Debug("Activate request failed", "window", w, "error", err)
	}
}

func (c *Client) Close(w xproto.Window) {
	if err := ewmh.CloseWindow(c.X, w); err != nil {
		slog.Debug("Close request failed", "window", w, "error", err)
	}
}

func (c *Client) SetDesktop(w xproto.Window, desktop uint32) {
	if err := ewmh.ClientEvent(c.X, w, "_NET_WM_DESKTOP", int(desktop), 2); err != nil {
		slog.Debug("Desktop assignment failed", "window", w, "error", err)
	}
}

func (c *Client) ToggleShaded(w xproto.Window) {
	if err := ewmh.WmStateReq(c.X, w, ewmh.StateToggle, "_NET_WM_STATE_SHADED"); err != nil {
		slog.Debug("Shade toggle failed", "window", w, "error", err)
	}
}

func (c *Client) Iconify(w xproto.Window) {
	if err := ewmh.ClientEvent(c.X, w, "WM_CHANGE_STATE", int(icccm.StateIconic)); err != nil {
		slog.Debug("Iconify request failed", "window", w, "error", err)
	}
}

func (c *Client) Raise(w xproto.Window) {
	xwindow.New(c.X, w).Stack(xproto.StackModeAbove)
}
