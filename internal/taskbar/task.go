// Package taskbar mirrors the window manager's client-window set. The
// Registry reconciles against _NET_CLIENT_LIST snapshots and filters out
// windows a taskbar must not show; the Presenter keeps one button widget
// per task consistent with visibility, focus, and urgency state.
package taskbar

import (
	"image"
	"time"

	"github.com/jezek/xgb/xproto"
)

// DesktopAll is the EWMH sentinel for a sticky window present on every
// desktop.
const DesktopAll = ^uint32(0)

// WindowState is the snapshot of the _NET_WM_STATE flags the taskbar cares
// about.
type WindowState struct {
	SkipTaskbar bool
	SkipPager   bool
	Shaded      bool
	Hidden      bool
}

// WindowType is the snapshot of _NET_WM_WINDOW_TYPE membership. A window
// with none of the special types set is treated as normal.
type WindowType struct {
	Desktop bool
	Dock    bool
	Splash  bool
}

func (t WindowType) Normal() bool {
	return !t.Desktop && !t.Dock && !t.Splash
}

// Task is one accepted client window. Exactly one Task exists per tracked
// window handle; the handle is the registry key.
type Task struct {
	Window  xproto.Window
	Name    string
	Desktop uint32 // DesktopAll when sticky
	State   WindowState
	Type    WindowType
	Urgent  bool
	Focused bool

	// refcount is only meaningful during a reconciliation pass: the mark
	// phase sets it to 1 for retained and freshly created tasks, the sweep
	// resets survivors to 0 and removes the rest.
	refcount int

	// Presentation state, owned by the Presenter. iconSig identifies the
	// icon source content that produced icon, so an unchanged source skips
	// the reassignment.
	widget  Widget
	icon    image.Image
	iconSig string
	flash   Handle
	flashOn bool
}

// DisplayName is the task's label, bracketed when iconified the way
// classic taskbars mark hidden windows.
func (t *Task) DisplayName() string {
	if t.State.Hidden {
		return "[" + t.Name + "]"
	}
	return t.Name
}

func (t *Task) Iconified() bool { return t.State.Hidden }

// Handle cancels a scheduled callback. It matches xloop.Handle without
// importing it so tests can substitute their own scheduler.
type Handle interface {
	Cancel()
}

// Scheduler is the slice of the event loop the taskbar needs: one-shot
// idle callbacks for deferred layout and repeating timers for urgency
// flashing. All callbacks run on the loop goroutine.
type Scheduler interface {
	ScheduleIdle(fn func()) Handle
	ScheduleEvery(interval time.Duration, fn func()) Handle
}
