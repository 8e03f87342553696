package panel

import (
	"image"
	"log/slog"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil/ewmh"
)

// Button backgrounds. Painting proper text and icons is the toolkit's
// job; the panel renders buttons as colored cells and leaves the rest to
// the compositor theme.
const (
	bgNormal  = 0x3b4252
	bgFocused = 0x5e81ac
	bgFlash   = 0xbf616a
)

// TaskButton is the X-backed taskbar.Widget: one child window per task.
type TaskButton struct {
	panel *Panel
	wid   xproto.Window

	mapped  bool
	focused bool
	flash   bool
	label   string
}

func newTaskButton(p *Panel) (*TaskButton, error) {
	wid, err := p.CreateSubWindow()
	if err != nil {
		return nil, err
	}
	b := &TaskButton{panel: p, wid: wid}
	b.paint()
	return b, nil
}

func (b *TaskButton) Show() {
	if b.mapped {
		return
	}
	b.mapped = true
	if err := xproto.MapWindowChecked(b.panel.X.Conn(), b.wid).Check(); err != nil {
		slog.Debug("Failed to map task button", "window", b.wid, "error", err)
	}
}

func (b *TaskButton) Hide() {
	if !b.mapped {
		return
	}
	b.mapped = false
	xproto.UnmapWindow(b.panel.X.Conn(), b.wid)
}

func (b *TaskButton) SetLabel(label, tooltip string) {
	if label == b.label {
		return
	}
	b.label = label
	// The label doubles as the sub-window name so pagers and debugging
	// tools can identify the button.
	ewmh.WmNameSet(b.panel.X, b.wid, label)
}

func (b *TaskButton) SetIcon(img image.Image) {
	// Icon pixels are painted by the toolkit layer; the panel only keeps
	// the window identity stable across icon changes.
}

func (b *TaskButton) SetFocused(focused bool) {
	if b.focused == focused {
		return
	}
	b.focused = focused
	b.paint()
}

func (b *TaskButton) SetFlash(on bool) {
	if b.flash == on {
		return
	}
	b.flash = on
	b.paint()
}

func (b *TaskButton) Destroy() {
	xproto.DestroyWindow(b.panel.X.Conn(), b.wid)
}

func (b *TaskButton) paint() {
	bg := uint32(bgNormal)
	switch {
	case b.flash:
		bg = bgFlash
	case b.focused:
		bg = bgFocused
	}
	conn := b.panel.X.Conn()
	xproto.ChangeWindowAttributes(conn, b.wid, xproto.CwBackPixel, []uint32{bg})
	xproto.ClearArea(conn, false, b.wid, 0, 0, 0, 0)
}
