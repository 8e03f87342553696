package taskbar

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/ItsNotGoodName/x-panel/internal/grid"
	"github.com/jezek/xgb/xproto"
	"golang.org/x/image/draw"
)

// FlashInterval is the urgency blink period, the conventional cursor-blink
// rate.
const FlashInterval = 500 * time.Millisecond

// Icon dimension bounds accepted from the _NET_WM_ICON property. Anything
// outside is treated as malformed and the next icon source is tried.
const (
	IconMinDim = 16
	IconMaxDim = 256
)

// Widget is the visual element behind one task. The panel backs it with an
// X sub-window; tests back it with a recorder.
type Widget interface {
	Show()
	Hide()
	SetLabel(label, tooltip string)
	SetIcon(img image.Image)
	SetFocused(focused bool)
	SetFlash(on bool)
	Destroy()
}

// WidgetFactory builds the widget for a freshly tracked task.
type WidgetFactory func(t *Task) Widget

// IconSource reads a window's icon material. ARGB returns the raw EWMH
// icon pixels; Pixmap returns the legacy ICCCM icon already composited
// with its mask.
type IconSource interface {
	IconARGB(w xproto.Window) (width, height int, argb []uint32, err error)
	IconPixmap(w xproto.Window) (image.Image, error)
}

// Presenter keeps widgets consistent with registry state and owns the
// grid's dimension cap. It must only be driven from the event loop.
type Presenter struct {
	reg     *Registry
	layout  *grid.Layout
	sched   Scheduler
	icons   IconSource
	widgets WidgetFactory

	fallbackIcon image.Image

	// Deferred dimension-cap application. Applying the cap synchronously
	// from a resize callback would re-enter the host layout pass, so the
	// pending value is applied on the next idle turn. Only one idle
	// callback is ever outstanding; later resizes overwrite pendingDim.
	pendingDim int
	idle       Handle
}

func NewPresenter(reg *Registry, layout *grid.Layout, sched Scheduler, icons IconSource, widgets WidgetFactory) *Presenter {
	p := &Presenter{
		reg:          reg,
		layout:       layout,
		sched:        sched,
		icons:        icons,
		widgets:      widgets,
		fallbackIcon: defaultIcon(reg.Policy().IconSize),
	}
	reg.onRemove = p.release
	return p
}

// RefreshOne applies visibility and focus state to a task's widget,
// building the widget on first use.
func (p *Presenter) RefreshOne(t *Task) {
	if t == nil {
		return
	}
	if t.widget == nil {
		t.widget = p.widgets(t)
		p.UpdateIcon(t)
	}

	if !p.reg.IsVisible(t) {
		t.widget.Hide()
		return
	}

	t.widget.Show()
	t.widget.SetFocused(t.Focused)
	tooltip := ""
	if p.reg.Policy().Tooltips {
		tooltip = t.Name
	}
	t.widget.SetLabel(t.DisplayName(), tooltip)
}

// RefreshAll refreshes every task. It is a no-op before the first
// client-list snapshot arrives, which prevents painting stale emptiness.
func (p *Presenter) RefreshAll() {
	if !p.reg.Reconciled() {
		return
	}
	for _, t := range p.reg.tasks {
		p.RefreshOne(t)
	}
}

// Resized records the dimension cap implied by the new panel extent and
// schedules applying it on the next idle turn. Multiple resizes before the
// idle fires coalesce to the last value.
func (p *Presenter) Resized(availableExtent, maxItemExtent int) {
	if maxItemExtent < 1 {
		maxItemExtent = 1
	}
	p.pendingDim = availableExtent / maxItemExtent
	if p.idle != nil {
		return
	}
	p.idle = p.sched.ScheduleIdle(func() {
		p.idle = nil
		p.layout.SetCap(p.pendingDim)
		if p.layout.TakeRelayout() {
			p.RefreshAll()
		}
	})
}

// UpdateName re-reads nothing; the dispatcher already updated the task.
// It reapplies the label to the widget.
func (p *Presenter) UpdateName(t *Task) {
	if t.widget == nil {
		return
	}
	tooltip := ""
	if p.reg.Policy().Tooltips {
		tooltip = t.Name
	}
	t.widget.SetLabel(t.DisplayName(), tooltip)
}

// UpdateIcon resolves the task's icon through the source chain and
// reassigns the widget image only when the winning source's content
// changed since the last resolution.
func (p *Presenter) UpdateIcon(t *Task) {
	img, sig := p.resolveIcon(t.Window)
	if sig == t.iconSig {
		return
	}
	t.iconSig = sig
	t.icon = img
	if t.widget != nil {
		t.widget.SetIcon(img)
	}
}

// resolveIcon tries the EWMH ARGB property, then the legacy pixmap pair,
// then the built-in fallback. The first source that yields a sane image
// wins. The returned signature identifies the source and its raw content
// so callers can detect a no-op resolution without comparing pixels.
func (p *Presenter) resolveIcon(w xproto.Window) (image.Image, string) {
	size := p.reg.Policy().IconSize

	if iw, ih, argb, err := p.icons.IconARGB(w); err == nil {
		if iw >= IconMinDim && iw <= IconMaxDim && ih >= IconMinDim && ih <= IconMaxDim && len(argb) >= iw*ih {
			return scaleIcon(argbToImage(iw, ih, argb), size), fmt.Sprintf("argb:%x", hashARGB(iw, ih, argb))
		}
		slog.Debug("Rejecting malformed ARGB icon", "window", w, "width", iw, "height", ih)
	}

	if img, err := p.icons.IconPixmap(w); err == nil && img != nil {
		return scaleIcon(img, size), fmt.Sprintf("pixmap:%x", hashImage(img))
	}

	return p.fallbackIcon, "fallback"
}

// SetUrgent starts or stops the urgency flash. A flash timer exists iff
// the task is actively flashing.
func (p *Presenter) SetUrgent(t *Task, urgent bool) {
	if t.Urgent == urgent {
		return
	}
	t.Urgent = urgent

	if urgent && p.reg.Policy().UseUrgencyHint {
		if t.flash != nil {
			return
		}
		t.flash = p.sched.ScheduleEvery(FlashInterval, func() {
			t.flashOn = !t.flashOn
			if t.widget != nil {
				t.widget.SetFlash(t.flashOn)
			}
		})
		return
	}

	p.stopFlash(t)
}

func (p *Presenter) stopFlash(t *Task) {
	if t.flash != nil {
		t.flash.Cancel()
		t.flash = nil
	}
	t.flashOn = false
	if t.widget != nil {
		t.widget.SetFlash(false)
	}
}

// release tears down a task's presentation resources. Wired as the
// registry's removal hook so cancellation is synchronous with removal.
func (p *Presenter) release(t *Task) {
	if t.flash != nil {
		t.flash.Cancel()
		t.flash = nil
	}
	if t.widget != nil {
		t.widget.Destroy()
		t.widget = nil
	}
	t.icon = nil
	t.iconSig = ""
}

// Close cancels the outstanding deferred-layout callback if one is
// pending. Registry teardown handles the tasks themselves.
func (p *Presenter) Close() {
	if p.idle != nil {
		p.idle.Cancel()
		p.idle = nil
	}
}

func hashARGB(w, h int, argb []uint32) uint64 {
	d := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(w)<<32|uint64(h))
	d.Write(buf[:])
	for _, px := range argb {
		binary.LittleEndian.PutUint32(buf[:4], px)
		d.Write(buf[:4])
	}
	return d.Sum64()
}

func hashImage(img image.Image) uint64 {
	d := fnv.New64a()
	var buf [8]byte
	b := img.Bounds()
	binary.LittleEndian.PutUint64(buf[:], uint64(b.Dx())<<32|uint64(b.Dy()))
	d.Write(buf[:])
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			binary.LittleEndian.PutUint64(buf[:], uint64(r)<<48|uint64(g)<<32|uint64(bl)<<16|uint64(a))
			d.Write(buf[:])
		}
	}
	return d.Sum64()
}

func argbToImage(w, h int, argb []uint32) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := argb[y*w+x]
			img.SetRGBA(x, y, color.RGBA{
				A: uint8(px >> 24),
				R: uint8(px >> 16),
				G: uint8(px >> 8),
				B: uint8(px),
			})
		}
	}
	return img
}

func scaleIcon(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// defaultIcon is the fixed last-resort icon: a flat gray tile.
func defaultIcon(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	gray := color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, gray)
		}
	}
	return img
}
