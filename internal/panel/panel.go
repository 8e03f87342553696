// Package panel owns the panel's top-level dock window, the per-item
// sub-windows, and the dispatcher that routes X events to the taskbar and
// the other plugins.
package panel

import (
	"fmt"

	"github.com/ItsNotGoodName/x-panel/internal/config"
	"github.com/ItsNotGoodName/x-panel/internal/grid"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil"
	"github.com/jezek/xgbutil/ewmh"
)

type Panel struct {
	X      *xgbutil.XUtil
	Window xproto.Window
	Width  uint16
	Height uint16

	cfg config.Panel
}

// Create builds the panel's top-level window: a sticky dock along the
// configured screen edge with a matching strut so maximized windows stay
// clear of it.
func Create(x *xgbutil.XUtil, cfg config.Panel) (*Panel, error) {
	conn := x.Conn()
	screen := xproto.Setup(conn).DefaultScreen(conn)
	sw, sh := int(screen.WidthInPixels), int(screen.HeightInPixels)

	var px, py, pw, ph int
	if cfg.Horizontal() {
		pw = sw * cfg.WidthPercent / 100
		ph = cfg.Size
		px = (sw - pw) / 2
		if cfg.Edge == "top" {
			py = 0
		} else {
			py = sh - ph
		}
	} else {
		pw = cfg.Size
		ph = sh * cfg.WidthPercent / 100
		py = (sh - ph) / 2
		if cfg.Edge == "left" {
			px = 0
		} else {
			px = sw - pw
		}
	}

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}

	if err := xproto.CreateWindowChecked(conn, screen.RootDepth,
		wid, screen.Root,
		int16(px), int16(py), uint16(pw), uint16(ph), 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{
			0x2e3440,
			xproto.EventMaskStructureNotify | xproto.EventMaskButtonPress | xproto.EventMaskExposure,
		}).Check(); err != nil {
		return nil, fmt.Errorf("create panel window: %w", err)
	}

	ewmh.WmNameSet(x, wid, "x-panel")
	ewmh.WmWindowTypeSet(x, wid, []string{"_NET_WM_WINDOW_TYPE_DOCK"})
	ewmh.WmStateSet(x, wid, []string{"_NET_WM_STATE_STICKY", "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER"})
	ewmh.WmDesktopSet(x, wid, 0xFFFFFFFF)

	strut := &ewmh.WmStrutPartial{}
	switch cfg.Edge {
	case "top":
		strut.Top = uint(ph)
		strut.TopStartX, strut.TopEndX = uint(px), uint(px+pw-1)
	case "left":
		strut.Left = uint(pw)
		strut.LeftStartY, strut.LeftEndY = uint(py), uint(py+ph-1)
	case "right":
		strut.Right = uint(pw)
		strut.RightStartY, strut.RightEndY = uint(py), uint(py+ph-1)
	default:
		strut.Bottom = uint(ph)
		strut.BottomStartX, strut.BottomEndX = uint(px), uint(px+pw-1)
	}
	ewmh.WmStrutPartialSet(x, wid, strut)

	if err := xproto.MapWindowChecked(conn, wid).Check(); err != nil {
		return nil, fmt.Errorf("map panel window: %w", err)
	}

	return &Panel{
		X:      x,
		Window: wid,
		Width:  uint16(pw),
		Height: uint16(ph),
		cfg:    cfg,
	}, nil
}

func (p *Panel) Horizontal() bool { return p.cfg.Horizontal() }

// CreateSubWindow makes one unmapped child window for a panel item.
func (p *Panel) CreateSubWindow() (xproto.Window, error) {
	conn := p.X.Conn()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}

	if err := xproto.CreateWindowChecked(conn, xproto.WindowClassCopyFromParent,
		wid, p.Window,
		0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, xproto.WindowClassCopyFromParent,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskButtonPress | xproto.EventMaskExposure}).Check(); err != nil {
		return 0, err
	}

	return wid, nil
}

// MapSub shows a child window.
func (p *Panel) MapSub(wid xproto.Window) error {
	return xproto.MapWindowChecked(p.X.Conn(), wid).Check()
}

// ConfigureSub moves one child window into its grid cell.
func (p *Panel) ConfigureSub(wid xproto.Window, r grid.Rect, offsetX, offsetY int) error {
	return xproto.ConfigureWindowChecked(p.X.Conn(), wid,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(offsetX + r.X), uint32(offsetY + r.Y), uint32(r.W), uint32(r.H)}).
		Check()
}

func (p *Panel) Destroy() {
	xproto.DestroyWindow(p.X.Conn(), p.Window)
}
