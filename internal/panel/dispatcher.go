package panel

import (
	"context"
	"log/slog"

	"github.com/ItsNotGoodName/x-panel/internal/grid"
	"github.com/ItsNotGoodName/x-panel/internal/plugins/launchbar"
	"github.com/ItsNotGoodName/x-panel/internal/wm"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Plugin is a panel component whose lifetime the dispatcher manages.
type Plugin interface {
	Name() string
	Close()
}

// Dispatcher routes X events to the taskbar and launchbar. It never
// decides accept/reject or visibility itself; it resolves the event to
// the owning component and calls its operation.
type Dispatcher struct {
	ctx     context.Context
	wmc     *wm.Client
	panel   *Panel
	tb      *Taskbar
	lb      *launchbar.LaunchBar
	root    xproto.Window
	plugins []Plugin
}

func NewDispatcher(ctx context.Context, wmc *wm.Client, p *Panel, tb *Taskbar, lb *launchbar.LaunchBar, extra ...Plugin) *Dispatcher {
	d := &Dispatcher{
		ctx:   ctx,
		wmc:   wmc,
		panel: p,
		tb:    tb,
		lb:    lb,
		root:  wmc.X.RootWin(),
	}
	d.plugins = append(d.plugins, tb)
	if lb != nil {
		d.plugins = append(d.plugins, lb)
	}
	d.plugins = append(d.plugins, extra...)
	return d
}

// Bootstrap subscribes to root notifications and loads the initial
// window-manager state before the first event arrives.
func (d *Dispatcher) Bootstrap() error {
	if err := d.wmc.WatchRoot(); err != nil {
		return err
	}

	if desktop, err := d.wmc.CurrentDesktop(); err == nil {
		d.tb.Registry.SetCurrentDesktop(desktop)
	}
	if count, err := d.wmc.DesktopCount(); err == nil {
		d.tb.Registry.SetDesktopCount(count)
	}

	d.layoutRegions()

	list, err := d.wmc.ClientList()
	if err != nil {
		return err
	}
	d.tb.Registry.Reconcile(d.ctx, list)
	d.tb.Registry.SetActive(d.ctx, d.wmc.ActiveWindow())
	d.tb.Presenter.RefreshAll()
	d.tb.Arrange()

	return nil
}

// layoutRegions splits the panel between the launchbar's natural size and
// the taskbar, which takes the rest.
func (d *Dispatcher) layoutRegions() {
	w, h := int(d.panel.Width), int(d.panel.Height)

	var lbExtent int
	if d.lb != nil {
		lbW, lbH := d.lb.Preferred()
		if d.panel.Horizontal() {
			lbExtent = lbW
			d.lb.SetRegion(grid.Rect{X: 0, Y: 0, W: lbW, H: h})
		} else {
			lbExtent = lbH
			d.lb.SetRegion(grid.Rect{X: 0, Y: 0, W: w, H: lbH})
		}
		lbExtent += grid.Separator
	}

	if d.panel.Horizontal() {
		d.tb.SetRegion(grid.Rect{X: lbExtent, Y: 0, W: w - lbExtent, H: h})
	} else {
		d.tb.SetRegion(grid.Rect{X: 0, Y: lbExtent, W: w, H: h - lbExtent})
	}
	d.tb.Arrange()
}

// Handle is the loop's event callback.
func (d *Dispatcher) Handle(ev xgb.Event) {
	switch ev := ev.(type) {
	case xproto.PropertyNotifyEvent:
		d.property(ev)
	case xproto.ConfigureNotifyEvent:
		if ev.Window == d.panel.Window && (ev.Width != d.panel.Width || ev.Height != d.panel.Height) {
			d.panel.Width, d.panel.Height = ev.Width, ev.Height
			d.layoutRegions()
		}
	case xproto.ButtonPressEvent:
		d.buttonPress(ev)
	default:
		slog.Debug("Unhandled X event", "event", ev.String())
	}
}

func (d *Dispatcher) buttonPress(ev xproto.ButtonPressEvent) {
	// Wheel anywhere on the panel cycles tasks.
	if ev.Detail == xproto.ButtonIndex4 || ev.Detail == xproto.ButtonIndex5 {
		d.tb.Wheel(ev.Detail == xproto.ButtonIndex4, ev.Time)
		return
	}

	if d.lb != nil && d.lb.Click(ev.Event) {
		return
	}
	if t, ok := d.tb.ButtonForWindow(ev.Event); ok {
		d.tb.Click(t, ev.Detail, ev.Time)
	}
}

func (d *Dispatcher) property(ev xproto.PropertyNotifyEvent) {
	name := d.wmc.AtomName(ev.Atom)

	if ev.Window == d.root {
		d.rootProperty(name)
		return
	}

	t := d.tb.Registry.Task(ev.Window)
	if t == nil {
		return
	}

	switch name {
	case "_NET_WM_DESKTOP":
		if desktop, err := d.wmc.WindowDesktop(t.Window); err == nil {
			t.Desktop = desktop
		}
		d.tb.Presenter.RefreshAll()
		d.tb.Arrange()
	case "_NET_WM_NAME", "WM_NAME":
		t.Name = d.wmc.WindowTitle(t.Window)
		d.tb.Presenter.UpdateName(t)
	case "_NET_WM_ICON":
		d.tb.Presenter.UpdateIcon(t)
	case "WM_HINTS":
		d.tb.Presenter.UpdateIcon(t)
		d.tb.Presenter.SetUrgent(t, d.wmc.Urgent(t.Window))
	case "_NET_WM_STATE":
		state, err := d.wmc.WindowState(t.Window)
		if err != nil {
			return
		}
		if !d.tb.Registry.AcceptState(state) {
			d.tb.Registry.Remove(d.ctx, t)
			d.tb.Arrange()
			return
		}
		t.State = state
		d.tb.Presenter.SetUrgent(t, d.wmc.Urgent(t.Window))
		d.tb.Presenter.RefreshOne(t)
		d.tb.Arrange()
	case "_NET_WM_WINDOW_TYPE":
		typ, err := d.wmc.WindowType(t.Window)
		if err != nil {
			return
		}
		if !d.tb.Registry.AcceptType(typ) {
			d.tb.Registry.Remove(d.ctx, t)
			d.tb.Arrange()
			return
		}
		t.Type = typ
	}
}

func (d *Dispatcher) rootProperty(name string) {
	switch name {
	case "_NET_CLIENT_LIST":
		list, err := d.wmc.ClientList()
		if err != nil {
			slog.Debug("Failed to read client list", "error", err)
			return
		}
		d.tb.Registry.Reconcile(d.ctx, list)
		d.tb.Presenter.RefreshAll()
		d.tb.Arrange()
	case "_NET_CURRENT_DESKTOP":
		if desktop, err := d.wmc.CurrentDesktop(); err == nil {
			d.tb.Registry.SetCurrentDesktop(desktop)
			d.tb.Presenter.RefreshAll()
			d.tb.Arrange()
		}
	case "_NET_NUMBER_OF_DESKTOPS":
		if count, err := d.wmc.DesktopCount(); err == nil {
			d.tb.Registry.SetDesktopCount(count)
		}
	case "_NET_ACTIVE_WINDOW":
		prev, next, changed := d.tb.Registry.SetActive(d.ctx, d.wmc.ActiveWindow())
		if changed {
			d.tb.Presenter.RefreshOne(prev)
			d.tb.Presenter.RefreshOne(next)
		}
	}
}

// Close tears the panel state down: plugins first (pending deferred
// layout included), then every task, then the panel window itself.
func (d *Dispatcher) Close() {
	for _, pl := range d.plugins {
		slog.Debug("Closing plugin", "plugin", pl.Name())
		pl.Close()
	}
	d.tb.Registry.Destroy(d.ctx)
	d.panel.Destroy()
}
