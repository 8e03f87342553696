package taskbar

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/ItsNotGoodName/x-panel/internal/grid"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	cancelled bool
	interval  time.Duration
	fn        func()
}

func (h *fakeHandle) Cancel() { h.cancelled = true }

// fakeScheduler records scheduled callbacks; tests fire them manually.
type fakeScheduler struct {
	idles  []*fakeHandle
	timers []*fakeHandle
}

func (s *fakeScheduler) ScheduleIdle(fn func()) Handle {
	h := &fakeHandle{fn: fn}
	s.idles = append(s.idles, h)
	return h
}

func (s *fakeScheduler) ScheduleEvery(interval time.Duration, fn func()) Handle {
	h := &fakeHandle{fn: fn, interval: interval}
	s.timers = append(s.timers, h)
	return h
}

func (s *fakeScheduler) fireIdles() {
	idles := s.idles
	s.idles = nil
	for _, h := range idles {
		if !h.cancelled {
			h.fn()
		}
	}
}

type fakeWidget struct {
	visible   bool
	label     string
	tooltip   string
	icon      image.Image
	iconSets  int
	focused   bool
	flash     bool
	destroyed bool
}

func (w *fakeWidget) Show()                          { w.visible = true }
func (w *fakeWidget) Hide()                          { w.visible = false }
func (w *fakeWidget) SetLabel(label, tooltip string) { w.label, w.tooltip = label, tooltip }
func (w *fakeWidget) SetIcon(img image.Image)        { w.icon = img; w.iconSets++ }
func (w *fakeWidget) SetFocused(focused bool)        { w.focused = focused }
func (w *fakeWidget) SetFlash(on bool)               { w.flash = on }
func (w *fakeWidget) Destroy()                       { w.destroyed = true }

type fakeIcons struct {
	argbW, argbH int
	argb         []uint32
	argbErr      error
	pixmap       image.Image
	pixmapErr    error
}

func (f *fakeIcons) IconARGB(w xproto.Window) (int, int, []uint32, error) {
	return f.argbW, f.argbH, f.argb, f.argbErr
}

func (f *fakeIcons) IconPixmap(w xproto.Window) (image.Image, error) {
	return f.pixmap, f.pixmapErr
}

var errNoIcon = errors.New("no icon property")

func newTestPresenter(t *testing.T, policy Policy, icons IconSource) (*Presenter, *Registry, *fakeReader, *fakeScheduler) {
	t.Helper()
	r := newFakeReader()
	reg := newTestRegistry(r, policy)
	layout := grid.New(grid.RowMajor, policy.MaxTaskWidth, policy.MaxTaskHeight, 1)
	sched := &fakeScheduler{}
	if icons == nil {
		icons = &fakeIcons{argbErr: errNoIcon, pixmapErr: errNoIcon}
	}
	p := NewPresenter(reg, layout, sched, icons, func(*Task) Widget { return &fakeWidget{} })
	return p, reg, r, sched
}

func TestRefreshAllBeforeFirstSnapshot(t *testing.T) {
	p, reg, r, _ := newTestPresenter(t, defaultPolicy(), nil)
	r.add(0x20, fakeWindow{})

	// No snapshot has ever been received; nothing must be painted.
	p.RefreshAll()
	assert.False(t, reg.Reconciled())
}

func TestRefreshOneVisibility(t *testing.T) {
	ctx := context.Background()
	p, reg, r, _ := newTestPresenter(t, defaultPolicy(), nil)
	r.add(0x20, fakeWindow{title: "editor", desktop: 2})
	reg.SetCurrentDesktop(2)
	reg.Reconcile(ctx, []xproto.Window{0x20})

	task := reg.Task(0x20)
	p.RefreshOne(task)
	w := task.widget.(*fakeWidget)
	assert.True(t, w.visible)
	assert.Equal(t, "editor", w.label)

	reg.SetCurrentDesktop(3)
	p.RefreshOne(task)
	assert.False(t, w.visible)
}

func TestRefreshOneIconifiedLabel(t *testing.T) {
	ctx := context.Background()
	p, reg, r, _ := newTestPresenter(t, defaultPolicy(), nil)
	r.add(0x20, fakeWindow{title: "editor", sticky: true})
	reg.Reconcile(ctx, []xproto.Window{0x20})

	task := reg.Task(0x20)
	task.State.Hidden = true
	p.RefreshOne(task)
	assert.Equal(t, "[editor]", task.widget.(*fakeWidget).label)
}

func TestDeferredDimCoalescing(t *testing.T) {
	p, _, _, sched := newTestPresenter(t, defaultPolicy(), nil)

	// Two resizes before the idle fires: one callback, last value wins.
	p.Resized(100, 24) // dim 4
	p.Resized(48, 24)  // dim 2
	require.Len(t, sched.idles, 1)

	sched.fireIdles()
	assert.Equal(t, 2, p.layout.Cap())
	assert.Empty(t, sched.idles, "no second idle may be scheduled")

	// The next resize schedules a fresh callback.
	p.Resized(72, 24)
	require.Len(t, sched.idles, 1)
	sched.fireIdles()
	assert.Equal(t, 3, p.layout.Cap())
}

func TestCloseCancelsPendingIdle(t *testing.T) {
	p, _, _, sched := newTestPresenter(t, defaultPolicy(), nil)

	p.Resized(100, 24)
	require.Len(t, sched.idles, 1)

	p.Close()
	sched.fireIdles()
	assert.Equal(t, 1, p.layout.Cap(), "cancelled idle must not apply the cap")
}

func TestIconFallbackChain(t *testing.T) {
	ctx := context.Background()

	// ARGB width below the minimum falls through to the pixmap source.
	pixmap := image.NewRGBA(image.Rect(0, 0, 32, 32))
	icons := &fakeIcons{argbW: 8, argbH: 8, argb: make([]uint32, 64), pixmap: pixmap}
	p, reg, r, _ := newTestPresenter(t, defaultPolicy(), icons)
	r.add(0x20, fakeWindow{})
	reg.Reconcile(ctx, []xproto.Window{0x20})

	task := reg.Task(0x20)
	p.RefreshOne(task)
	require.NotNil(t, task.icon)
	assert.NotEqual(t, p.fallbackIcon, task.icon)
	assert.Equal(t, 24, task.icon.Bounds().Dx(), "icon must be scaled to the configured size")

	// Pixmap absent too: the fixed fallback wins.
	icons.pixmap, icons.pixmapErr = nil, errNoIcon
	p2, reg2, r2, _ := newTestPresenter(t, defaultPolicy(), icons)
	r2.add(0x20, fakeWindow{})
	reg2.Reconcile(ctx, []xproto.Window{0x20})
	task2 := reg2.Task(0x20)
	p2.RefreshOne(task2)
	assert.Equal(t, p2.fallbackIcon, task2.icon)
}

func TestIconValidARGB(t *testing.T) {
	ctx := context.Background()
	icons := &fakeIcons{argbW: 32, argbH: 32, argb: make([]uint32, 32*32), pixmapErr: errNoIcon}
	p, reg, r, _ := newTestPresenter(t, defaultPolicy(), icons)
	r.add(0x20, fakeWindow{})
	reg.Reconcile(ctx, []xproto.Window{0x20})

	task := reg.Task(0x20)
	p.RefreshOne(task)
	assert.NotEqual(t, p.fallbackIcon, task.icon)
	assert.Equal(t, 24, task.icon.Bounds().Dx())
}

func TestIconReassignedOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	icons := &fakeIcons{argbW: 32, argbH: 32, argb: make([]uint32, 32*32), pixmapErr: errNoIcon}
	p, reg, r, _ := newTestPresenter(t, defaultPolicy(), icons)
	r.add(0x20, fakeWindow{})
	reg.Reconcile(ctx, []xproto.Window{0x20})

	task := reg.Task(0x20)
	p.RefreshOne(task)
	w := task.widget.(*fakeWidget)
	require.Equal(t, 1, w.iconSets)

	// Property notify with identical icon content must not repaint.
	p.UpdateIcon(task)
	p.UpdateIcon(task)
	assert.Equal(t, 1, w.iconSets)

	icons.argb[0] = 0xffff0000
	p.UpdateIcon(task)
	assert.Equal(t, 2, w.iconSets)
}

func TestUrgencyFlash(t *testing.T) {
	ctx := context.Background()
	pol := defaultPolicy()
	pol.UseUrgencyHint = true
	p, reg, r, sched := newTestPresenter(t, pol, nil)
	r.add(0x20, fakeWindow{})
	reg.Reconcile(ctx, []xproto.Window{0x20})
	task := reg.Task(0x20)
	p.RefreshOne(task)

	p.SetUrgent(task, true)
	require.Len(t, sched.timers, 1)
	assert.Equal(t, FlashInterval, sched.timers[0].interval)

	w := task.widget.(*fakeWidget)
	sched.timers[0].fn()
	assert.True(t, w.flash)
	sched.timers[0].fn()
	assert.False(t, w.flash)

	// Urgency cleared: the timer is cancelled and the flash state reset.
	sched.timers[0].fn()
	p.SetUrgent(task, false)
	assert.True(t, sched.timers[0].cancelled)
	assert.False(t, w.flash)
	assert.Nil(t, task.flash)
}

func TestRemovalCancelsFlash(t *testing.T) {
	ctx := context.Background()
	pol := defaultPolicy()
	pol.UseUrgencyHint = true
	p, reg, r, sched := newTestPresenter(t, pol, nil)
	r.add(0x20, fakeWindow{})
	reg.Reconcile(ctx, []xproto.Window{0x20})
	task := reg.Task(0x20)
	p.RefreshOne(task)
	p.SetUrgent(task, true)
	require.Len(t, sched.timers, 1)

	w := task.widget.(*fakeWidget)
	reg.Reconcile(ctx, nil)
	assert.Equal(t, 0, reg.Len())
	assert.True(t, sched.timers[0].cancelled)
	assert.True(t, w.destroyed)
}
