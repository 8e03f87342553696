package taskbar

import (
	"context"
	"errors"
	"testing"

	"github.com/ItsNotGoodName/x-panel/internal/bus"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	state   WindowState
	typ     WindowType
	title   string
	desktop uint32
	sticky  bool
}

// fakeReader backs Reader and Watcher with an in-memory window table.
// Windows absent from the table report read errors, like windows that
// vanished mid-query.
type fakeReader struct {
	windows map[xproto.Window]*fakeWindow
	watched map[xproto.Window]bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		windows: make(map[xproto.Window]*fakeWindow),
		watched: make(map[xproto.Window]bool),
	}
}

func (f *fakeReader) add(w xproto.Window, fw fakeWindow) *fakeWindow {
	f.windows[w] = &fw
	return f.windows[w]
}

var errVanished = errors.New("window vanished")

func (f *fakeReader) WindowState(w xproto.Window) (WindowState, error) {
	fw, ok := f.windows[w]
	if !ok {
		return WindowState{}, errVanished
	}
	return fw.state, nil
}

func (f *fakeReader) WindowType(w xproto.Window) (WindowType, error) {
	fw, ok := f.windows[w]
	if !ok {
		return WindowType{}, errVanished
	}
	return fw.typ, nil
}

func (f *fakeReader) WindowTitle(w xproto.Window) string {
	if fw, ok := f.windows[w]; ok {
		return fw.title
	}
	return ""
}

func (f *fakeReader) WindowDesktop(w xproto.Window) (uint32, error) {
	fw, ok := f.windows[w]
	if !ok {
		return 0, errVanished
	}
	if fw.sticky {
		return DesktopAll, nil
	}
	return fw.desktop, nil
}

func (f *fakeReader) Watch(w xproto.Window) error { f.watched[w] = true; return nil }
func (f *fakeReader) Unwatch(w xproto.Window)     { delete(f.watched, w) }

const panelWin = xproto.Window(0x1)

func newTestRegistry(r *fakeReader, policy Policy) *Registry {
	return NewRegistry(r, r, policy, panelWin)
}

func defaultPolicy() Policy {
	return Policy{
		ShowIconified: true,
		ShowMapped:    true,
		MaxTaskWidth:  150,
		MaxTaskHeight: 24,
		IconSize:      24,
	}
}

func TestReconcileEndToEnd(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x10, fakeWindow{state: WindowState{SkipTaskbar: true}})
	r.add(0x20, fakeWindow{title: "editor"})
	reg := newTestRegistry(r, defaultPolicy())

	reg.Reconcile(ctx, []xproto.Window{0x10, 0x20})
	require.Equal(t, 1, reg.Len())
	require.NotNil(t, reg.Task(0x20))
	assert.Equal(t, "editor", reg.Task(0x20).Name)

	r.add(0x30, fakeWindow{title: "terminal"})
	reg.Reconcile(ctx, []xproto.Window{0x20, 0x30})
	assert.Equal(t, 2, reg.Len())
	assert.NotNil(t, reg.Task(0x20))
	assert.NotNil(t, reg.Task(0x30))

	reg.Reconcile(ctx, []xproto.Window{0x30})
	assert.Equal(t, 1, reg.Len())
	assert.Nil(t, reg.Task(0x20))
	assert.NotNil(t, reg.Task(0x30))
	assert.False(t, r.watched[0x20], "removed task must be unwatched")
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x20, fakeWindow{title: "a"})
	r.add(0x30, fakeWindow{title: "b"})
	reg := newTestRegistry(r, defaultPolicy())

	snapshot := []xproto.Window{0x20, 0x30}
	reg.Reconcile(ctx, snapshot)
	first := reg.Task(0x20)
	_, _, _ = reg.SetActive(ctx, 0x20)

	reg.Reconcile(ctx, snapshot)
	assert.Equal(t, 2, reg.Len())
	assert.Same(t, first, reg.Task(0x20), "reconcile must not recreate retained tasks")
	assert.Same(t, first, reg.Focused())
	for _, task := range reg.Tasks() {
		assert.Equal(t, 0, task.refcount)
	}
}

func TestReconcileMarkAndSweep(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0xA, fakeWindow{})
	r.add(0xB, fakeWindow{})
	r.add(0xC, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())
	reg.Reconcile(ctx, []xproto.Window{0xA, 0xB, 0xC})
	require.Equal(t, 3, reg.Len())

	reg.Reconcile(ctx, []xproto.Window{0xA, 0xC})
	assert.Equal(t, 2, reg.Len())
	assert.Nil(t, reg.Task(0xB))
	for _, task := range reg.Tasks() {
		assert.Equal(t, 0, task.refcount)
	}
}

// A task created during the mark phase carries refcount 1 into the sweep
// of the same pass and must never be collected by it.
func TestReconcileCreatedThisPassSurvives(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x40, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())

	reg.Reconcile(ctx, []xproto.Window{0x40})
	require.NotNil(t, reg.Task(0x40))
	assert.Equal(t, 0, reg.Task(0x40).refcount)
}

func TestReconcileVanishedWindowSkipped(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x20, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())

	// 0x99 is in the snapshot but unreadable; the pass must survive it.
	reg.Reconcile(ctx, []xproto.Window{0x99, 0x20})
	assert.Equal(t, 1, reg.Len())
	assert.NotNil(t, reg.Task(0x20))
}

func TestAcceptState(t *testing.T) {
	r := newFakeReader()

	reg := newTestRegistry(r, defaultPolicy())
	assert.False(t, reg.AcceptState(WindowState{SkipTaskbar: true}))
	assert.False(t, reg.AcceptState(WindowState{SkipTaskbar: true, SkipPager: true}))
	assert.False(t, reg.AcceptState(WindowState{SkipPager: true}))
	assert.True(t, reg.AcceptState(WindowState{Shaded: true, Hidden: true}))

	pol := defaultPolicy()
	pol.AcceptSkipPager = true
	reg = newTestRegistry(r, pol)
	assert.True(t, reg.AcceptState(WindowState{SkipPager: true}))
	assert.False(t, reg.AcceptState(WindowState{SkipTaskbar: true, SkipPager: true}))
}

func TestAcceptType(t *testing.T) {
	reg := newTestRegistry(newFakeReader(), defaultPolicy())

	assert.False(t, reg.AcceptType(WindowType{Desktop: true}))
	assert.False(t, reg.AcceptType(WindowType{Dock: true}))
	assert.False(t, reg.AcceptType(WindowType{Splash: true}))
	assert.True(t, reg.AcceptType(WindowType{}))
}

func TestIsVisible(t *testing.T) {
	reg := newTestRegistry(newFakeReader(), defaultPolicy())
	reg.SetCurrentDesktop(3)

	task := &Task{Desktop: 3}
	assert.True(t, reg.IsVisible(task))

	reg.SetCurrentDesktop(4)
	assert.False(t, reg.IsVisible(task))

	sticky := &Task{Desktop: DesktopAll}
	assert.True(t, reg.IsVisible(sticky))

	pol := defaultPolicy()
	pol.ShowAllDesktops = true
	regAll := newTestRegistry(newFakeReader(), pol)
	regAll.SetCurrentDesktop(4)
	assert.True(t, regAll.IsVisible(task))

	pol = defaultPolicy()
	pol.ShowIconified = false
	regMapped := newTestRegistry(newFakeReader(), pol)
	regMapped.SetCurrentDesktop(3)
	iconified := &Task{Desktop: 3, State: WindowState{Hidden: true}}
	assert.False(t, regMapped.IsVisible(iconified))
	assert.True(t, regMapped.IsVisible(task))
}

func TestSetActiveFocusUniqueness(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x20, fakeWindow{})
	r.add(0x30, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())
	reg.Reconcile(ctx, []xproto.Window{0x20, 0x30})

	prev, next, changed := reg.SetActive(ctx, 0x20)
	require.True(t, changed)
	assert.Nil(t, prev)
	assert.Same(t, reg.Task(0x20), next)

	prev, next, changed = reg.SetActive(ctx, 0x30)
	require.True(t, changed)
	assert.Same(t, reg.Task(0x20), prev)
	assert.Same(t, reg.Task(0x30), next)

	focused := 0
	for _, task := range reg.Tasks() {
		if task.Focused {
			focused++
		}
	}
	assert.Equal(t, 1, focused)

	// Unchanged focus produces no transition.
	_, _, changed = reg.SetActive(ctx, 0x30)
	assert.False(t, changed)
}

func TestSetActivePublishesFocusEvents(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x20, fakeWindow{})
	r.add(0x30, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())
	reg.Reconcile(ctx, []xproto.Window{0x20, 0x30})

	var got []uint32
	bus.Subscribe("registry-test", func(ctx context.Context, event EventFocusChanged) error {
		got = append(got, event.Window)
		return nil
	})

	reg.SetActive(ctx, 0x20)
	reg.SetActive(ctx, 0x30)
	reg.SetActive(ctx, 0x30) // unchanged, no event
	assert.Equal(t, []uint32{0x20, 0x30}, got)
}

func TestSetActivePanelWindow(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x20, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())
	reg.Reconcile(ctx, []xproto.Window{0x20})
	reg.SetActive(ctx, 0x20)

	// Clicking the panel keeps the task focused and remembers it.
	_, _, changed := reg.SetActive(ctx, panelWin)
	assert.False(t, changed)
	assert.Same(t, reg.Task(0x20), reg.Focused())
	assert.Same(t, reg.Task(0x20), reg.LastFocused())
}

func TestSetActiveNoneClearsFocus(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x20, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())
	reg.Reconcile(ctx, []xproto.Window{0x20})
	reg.SetActive(ctx, 0x20)

	prev, next, changed := reg.SetActive(ctx, xproto.WindowNone)
	require.True(t, changed)
	assert.Same(t, reg.Task(0x20), prev)
	assert.Nil(t, next)
	assert.Nil(t, reg.Focused())
	assert.False(t, reg.Task(0x20).Focused)
}

func TestRemoveClearsFocusReferences(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x20, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())
	reg.Reconcile(ctx, []xproto.Window{0x20})
	reg.SetActive(ctx, 0x20)

	reg.Remove(ctx, reg.Task(0x20))
	assert.Nil(t, reg.Focused())
	assert.Nil(t, reg.LastFocused())
	assert.Equal(t, 0, reg.Len())
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	r := newFakeReader()
	r.add(0x20, fakeWindow{})
	r.add(0x30, fakeWindow{})
	reg := newTestRegistry(r, defaultPolicy())
	reg.Reconcile(ctx, []xproto.Window{0x20, 0x30})
	reg.SetActive(ctx, 0x20)

	reg.Destroy(ctx)
	assert.Equal(t, 0, reg.Len())
	assert.Nil(t, reg.Focused())
	assert.Empty(t, r.watched)
}
