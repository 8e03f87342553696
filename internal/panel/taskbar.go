package panel

import (
	"image"
	"log/slog"
	"time"

	"github.com/ItsNotGoodName/x-panel/internal/config"
	"github.com/ItsNotGoodName/x-panel/internal/grid"
	"github.com/ItsNotGoodName/x-panel/internal/taskbar"
	"github.com/ItsNotGoodName/x-panel/internal/wm"
	"github.com/ItsNotGoodName/x-panel/internal/xloop"
	"github.com/jezek/xgb/xproto"
)

// loopScheduler adapts xloop.Loop to the taskbar's Scheduler interface.
type loopScheduler struct {
	loop *xloop.Loop
}

func (s loopScheduler) ScheduleIdle(fn func()) taskbar.Handle { return s.loop.ScheduleIdle(fn) }
func (s loopScheduler) ScheduleEvery(d time.Duration, fn func()) taskbar.Handle {
	return s.loop.ScheduleEvery(d, fn)
}

// Taskbar is the panel-side taskbar plugin: it owns the registry, the
// presenter, the grid, and the mapping from button windows back to tasks.
type Taskbar struct {
	panel *Panel
	wmc   *wm.Client

	Registry  *taskbar.Registry
	Presenter *taskbar.Presenter
	Layout    *grid.Layout

	// region is the panel-relative rectangle the taskbar may fill.
	region grid.Rect

	buttons map[xproto.Window]*taskbar.Task
	wids    map[*taskbar.Task]xproto.Window
}

func NewTaskbar(p *Panel, wmc *wm.Client, loop *xloop.Loop, cfg config.Taskbar) *Taskbar {
	policy := taskbar.Policy{
		AcceptSkipPager: cfg.AcceptSkipPager,
		ShowIconified:   cfg.ShowIconified,
		ShowMapped:      cfg.ShowMapped,
		ShowAllDesktops: cfg.ShowAllDesktops,
		Tooltips:        cfg.Tooltips,
		UseMouseWheel:   cfg.UseMouseWheel,
		UseUrgencyHint:  cfg.UseUrgencyHint,
		MaxTaskWidth:    cfg.MaxTaskWidth,
		MaxTaskHeight:   cfg.MaxTaskHeight,
		IconSize:        cfg.IconSize,
	}

	orientation := grid.RowMajor
	if !p.Horizontal() {
		orientation = grid.ColumnMajor
	}
	layout := grid.New(orientation, policy.MaxTaskWidth, policy.MaxTaskHeight, 1)

	tb := &Taskbar{
		panel:   p,
		wmc:     wmc,
		Layout:  layout,
		buttons: make(map[xproto.Window]*taskbar.Task),
		wids:    make(map[*taskbar.Task]xproto.Window),
	}

	tb.Registry = taskbar.NewRegistry(wmc, wmc, policy, p.Window)
	tb.Presenter = taskbar.NewPresenter(tb.Registry, layout, loopScheduler{loop}, wmc, tb.createWidget)
	return tb
}

func (tb *Taskbar) Name() string { return "taskbar" }

func (tb *Taskbar) createWidget(t *taskbar.Task) taskbar.Widget {
	b, err := newTaskButton(tb.panel)
	if err != nil {
		slog.Error("Failed to create task button", "window", t.Window, "error", err)
		return nopWidget{}
	}
	tb.buttons[b.wid] = t
	tb.wids[t] = b.wid
	return &ownedButton{TaskButton: b, tb: tb, task: t}
}

// ownedButton removes itself from the click-routing maps on destroy.
type ownedButton struct {
	*TaskButton
	tb   *Taskbar
	task *taskbar.Task
}

func (b *ownedButton) Destroy() {
	delete(b.tb.buttons, b.wid)
	delete(b.tb.wids, b.task)
	b.TaskButton.Destroy()
}

// SetRegion assigns the taskbar's slice of the panel and feeds the
// presenter the extent that bounds the grid's dimension cap.
func (tb *Taskbar) SetRegion(r grid.Rect) {
	tb.region = r
	if tb.panel.Horizontal() {
		tb.Presenter.Resized(r.H, tb.Registry.Policy().MaxTaskHeight)
	} else {
		tb.Presenter.Resized(r.W, tb.Registry.Policy().MaxTaskWidth)
	}
}

// Arrange places the visible task buttons into the taskbar region using
// the grid allocations, in client-list appearance order.
func (tb *Taskbar) Arrange() {
	visible := tb.Registry.VisibleTasks()
	rects := tb.Layout.Allocate(len(visible), tb.region.W, tb.region.H)
	for i, t := range visible {
		wid, ok := tb.wids[t]
		if !ok {
			continue
		}
		if err := tb.panel.ConfigureSub(wid, rects[i], tb.region.X, tb.region.Y); err != nil {
			slog.Debug("Failed to place task button", "window", wid, "error", err)
		}
	}
}

// ButtonForWindow resolves a click target to its task.
func (tb *Taskbar) ButtonForWindow(w xproto.Window) (*taskbar.Task, bool) {
	t, ok := tb.buttons[w]
	return t, ok
}

// Click performs the taskbar's pointer actions.
func (tb *Taskbar) Click(t *taskbar.Task, button xproto.Button, timestamp xproto.Timestamp) {
	switch button {
	case xproto.ButtonIndex1:
		// Clicking the focused task iconifies it. When the panel itself
		// holds the focus the click lands with no focused task, so the
		// task remembered before the panel took focus counts as focused.
		focused := tb.Registry.Focused()
		if t == focused || (focused == nil && t == tb.Registry.LastFocused()) {
			tb.wmc.Iconify(t.Window)
			return
		}
		tb.wmc.Activate(t.Window, timestamp)
		tb.wmc.Raise(t.Window)
	case xproto.ButtonIndex2:
		tb.wmc.ToggleShaded(t.Window)
	case xproto.ButtonIndex3:
		tb.wmc.Close(t.Window)
	}
}

// Wheel cycles activation through the visible tasks.
func (tb *Taskbar) Wheel(up bool, timestamp xproto.Timestamp) {
	if !tb.Registry.Policy().UseMouseWheel {
		return
	}
	visible := tb.Registry.VisibleTasks()
	if len(visible) == 0 {
		return
	}

	idx := -1
	for i, t := range visible {
		if t.Focused {
			idx = i
			break
		}
	}
	if idx == -1 {
		tb.wmc.Activate(visible[0].Window, timestamp)
		return
	}

	step := 1
	if up {
		step = len(visible) - 1
	}
	next := visible[(idx+step)%len(visible)]
	tb.wmc.Activate(next.Window, timestamp)
}

func (tb *Taskbar) Close() {
	tb.Presenter.Close()
}

// nopWidget stands in when the X button could not be created; the task
// stays tracked without a visual element.
type nopWidget struct{}

func (nopWidget) Show()                 {}
func (nopWidget) Hide()                 {}
func (nopWidget) SetLabel(_, _ string)  {}
func (nopWidget) SetIcon(_ image.Image) {}
func (nopWidget) SetFocused(_ bool)     {}
func (nopWidget) SetFlash(_ bool)       {}
func (nopWidget) Destroy()              {}
