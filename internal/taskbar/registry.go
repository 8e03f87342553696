package taskbar

import (
	"context"
	"log/slog"

	"github.com/ItsNotGoodName/x-panel/internal/bus"
	"github.com/jezek/xgb/xproto"
)

// Reader is the synchronous window-property query surface. Implementations
// return zero values with an error when a window vanished mid-query; the
// registry treats that as "absent", never as fatal.
type Reader interface {
	WindowState(w xproto.Window) (WindowState, error)
	WindowType(w xproto.Window) (WindowType, error)
	WindowTitle(w xproto.Window) string
	WindowDesktop(w xproto.Window) (uint32, error)
}

// Watcher subscribes the registry to per-window property notifications.
type Watcher interface {
	Watch(w xproto.Window) error
	Unwatch(w xproto.Window)
}

// Policy holds the boolean and integer knobs consumed at construction
// time.
type Policy struct {
	AcceptSkipPager bool
	ShowIconified   bool
	ShowMapped      bool
	ShowAllDesktops bool
	Tooltips        bool
	UseMouseWheel   bool
	UseUrgencyHint  bool
	MaxTaskWidth    int
	MaxTaskHeight   int
	IconSize        int
}

// Registry owns the window-to-task map. All methods run on the event-loop
// goroutine; a reconciliation pass is atomic with respect to every other
// callback.
type Registry struct {
	reader  Reader
	watcher Watcher
	policy  Policy

	// The panel's own top-level window. The window manager reports it as
	// the active window when the user clicks the panel; that must not
	// steal task focus.
	panelWindow xproto.Window

	tasks map[xproto.Window]*Task
	// order preserves client-list appearance order for stable button
	// placement.
	order          []xproto.Window
	currentDesktop uint32
	desktopCount   uint32
	focused        *Task
	lastFocused    *Task

	// reconciled flips once the first client-list snapshot has been
	// processed; the presenter refuses to paint before that.
	reconciled bool

	// onRemove tears down presentation resources (widget, flash timer)
	// synchronously as part of removal. Set by the Presenter.
	onRemove func(*Task)
}

func NewRegistry(reader Reader, watcher Watcher, policy Policy, panelWindow xproto.Window) *Registry {
	return &Registry{
		reader:      reader,
		watcher:     watcher,
		policy:      policy,
		panelWindow: panelWindow,
		tasks:       make(map[xproto.Window]*Task),
	}
}

func (r *Registry) Policy() Policy         { return r.policy }
func (r *Registry) Len() int               { return len(r.tasks) }
func (r *Registry) CurrentDesktop() uint32 { return r.currentDesktop }
func (r *Registry) DesktopCount() uint32   { return r.desktopCount }
func (r *Registry) Focused() *Task         { return r.focused }
func (r *Registry) LastFocused() *Task     { return r.lastFocused }
func (r *Registry) Reconciled() bool       { return r.reconciled }
func (r *Registry) Task(w xproto.Window) *Task {
	return r.tasks[w]
}

// Tasks returns every tracked task in client-list appearance order.
func (r *Registry) Tasks() []*Task {
	out := make([]*Task, 0, len(r.order))
	for _, w := range r.order {
		out = append(out, r.tasks[w])
	}
	return out
}

// VisibleTasks returns the tasks IsVisible accepts, in appearance order.
func (r *Registry) VisibleTasks() []*Task {
	out := make([]*Task, 0, len(r.order))
	for _, w := range r.order {
		if t := r.tasks[w]; r.IsVisible(t) {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) SetCurrentDesktop(d uint32) { r.currentDesktop = d }
func (r *Registry) SetDesktopCount(n uint32)   { r.desktopCount = n }

// AcceptState rejects windows that asked to be skipped by taskbars, and
// optionally windows that asked to be skipped by pagers.
func (r *Registry) AcceptState(s WindowState) bool {
	if s.SkipTaskbar {
		return false
	}
	if s.SkipPager && !r.policy.AcceptSkipPager {
		return false
	}
	return true
}

// AcceptType rejects desktop, dock, and splash windows.
func (r *Registry) AcceptType(t WindowType) bool {
	return !t.Desktop && !t.Dock && !t.Splash
}

// IsVisible applies the desktop policy and the iconified-visibility policy
// to a tracked task.
func (r *Registry) IsVisible(t *Task) bool {
	onDesktop := r.policy.ShowAllDesktops || t.Desktop == DesktopAll || t.Desktop == r.currentDesktop
	if !onDesktop {
		return false
	}
	if t.Iconified() {
		return r.policy.ShowIconified
	}
	return r.policy.ShowMapped
}

// Reconcile aligns the task set with a fresh client-list snapshot using a
// two-pass mark-and-sweep. The mark phase retains known windows and
// creates tasks for accepted new ones; the sweep removes every task the
// snapshot no longer names. A window that vanishes while its properties
// are being read is skipped silently.
func (r *Registry) Reconcile(ctx context.Context, snapshot []xproto.Window) {
	for _, w := range snapshot {
		if t, ok := r.tasks[w]; ok {
			t.refcount++
			continue
		}

		state, err := r.reader.WindowState(w)
		if err != nil {
			slog.Debug("Skipping vanished window", "window", w, "error", err)
			continue
		}
		typ, err := r.reader.WindowType(w)
		if err != nil {
			slog.Debug("Skipping vanished window", "window", w, "error", err)
			continue
		}
		if !r.AcceptState(state) || !r.AcceptType(typ) {
			continue
		}

		r.track(ctx, w, state, typ)
	}

	removed := 0
	for _, t := range r.tasks {
		if t.refcount == 0 {
			r.remove(ctx, t)
			removed++
		} else {
			t.refcount = 0
		}
	}

	r.reconciled = true
	slog.Debug("Reconciled client list", "snapshot", len(snapshot), "tracked", len(r.tasks), "removed", removed)
	bus.Publish(ctx, EventTasksChanged{Tasks: r.Snapshot()})
}

func (r *Registry) track(ctx context.Context, w xproto.Window, state WindowState, typ WindowType) *Task {
	t := &Task{
		Window:   w,
		Name:     r.reader.WindowTitle(w),
		State:    state,
		Type:     typ,
		Desktop:  DesktopAll,
		refcount: 1,
	}
	if d, err := r.reader.WindowDesktop(w); err == nil {
		t.Desktop = d
	}

	if err := r.watcher.Watch(w); err != nil {
		slog.Debug("Failed to watch window", "window", w, "error", err)
	}

	r.tasks[w] = t
	r.order = append(r.order, w)
	return t
}

// Remove drops a single task, used when a later property change makes the
// window fail an accept filter.
func (r *Registry) Remove(ctx context.Context, t *Task) {
	r.remove(ctx, t)
	bus.Publish(ctx, EventTasksChanged{Tasks: r.Snapshot()})
}

func (r *Registry) remove(ctx context.Context, t *Task) {
	r.watcher.Unwatch(t.Window)
	if r.onRemove != nil {
		r.onRemove(t)
	}
	if r.focused == t {
		r.focused = nil
	}
	if r.lastFocused == t {
		r.lastFocused = nil
	}
	delete(r.tasks, t.Window)
	for i, w := range r.order {
		if w == t.Window {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// SetActive resolves the window manager's reported active window to a
// focus transition. It returns the previously and newly focused tasks when
// the focus actually moved; both nil pointers and changed=false otherwise.
func (r *Registry) SetActive(ctx context.Context, w xproto.Window) (prev, next *Task, changed bool) {
	if w == r.panelWindow {
		// The user clicked the panel itself. Keep task focus untouched but
		// remember what was focused for the click-to-iconify heuristic.
		r.lastFocused = r.focused
		return nil, nil, false
	}

	var t *Task
	if w != xproto.WindowNone {
		t = r.tasks[w] // may be nil for untracked windows
	}
	if t == r.focused {
		return nil, nil, false
	}

	prev = r.focused
	if prev != nil {
		prev.Focused = false
	}
	r.lastFocused = prev
	r.focused = t
	if t != nil {
		t.Focused = true
	}

	bus.Publish(ctx, EventFocusChanged{Window: uint32(w)})
	return prev, t, true
}

// Destroy removes every task and forgets the focus references.
func (r *Registry) Destroy(ctx context.Context) {
	for _, t := range r.tasks {
		r.remove(ctx, t)
	}
	r.focused = nil
	r.lastFocused = nil
}

// Snapshot copies the registry state for consumers outside the event loop.
func (r *Registry) Snapshot() []TaskInfo {
	out := make([]TaskInfo, 0, len(r.tasks))
	for _, t := range r.Tasks() {
		out = append(out, TaskInfo{
			Window:    uint32(t.Window),
			Name:      t.Name,
			Desktop:   t.Desktop,
			Sticky:    t.Desktop == DesktopAll,
			Iconified: t.Iconified(),
			Urgent:    t.Urgent,
			Focused:   t.Focused,
			Visible:   r.IsVisible(t),
		})
	}
	return out
}
