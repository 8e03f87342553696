package wm

import (
	"fmt"
	"image"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil/ewmh"
	"github.com/jezek/xgbutil/icccm"
	"github.com/jezek/xgbutil/xgraphics"
)

// IconARGB implements taskbar.IconSource with the _NET_WM_ICON property.
// When a window publishes several sizes the largest is returned; the
// presenter validates dimensions and scales.
func (c *Client) IconARGB(w xproto.Window) (int, int, []uint32, error) {
	icons, err := ewmh.WmIconGet(c.X, w)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(icons) == 0 {
		return 0, 0, nil, fmt.Errorf("window %d: no ARGB icon", w)
	}

	best := icons[0]
	for _, icon := range icons[1:] {
		if icon.Width*icon.Height > best.Width*best.Height {
			best = icon
		}
	}

	argb := make([]uint32, len(best.Data))
	for i, px := range best.Data {
		argb[i] = uint32(px)
	}
	return int(best.Width), int(best.Height), argb, nil
}

// IconPixmap reads the legacy WM_HINTS icon pixmap and composites the
// optional 1-bit mask into the alpha channel.
func (c *Client) IconPixmap(w xproto.Window) (image.Image, error) {
	hints, err := icccm.WmHintsGet(c.X, w)
	if err != nil {
		return nil, err
	}
	if hints.Flags&icccm.HintIconPixmap == 0 || hints.IconPixmap == 0 {
		return nil, fmt.Errorf("window %d: no icon pixmap", w)
	}

	img, err := xgraphics.NewDrawable(c.X, xproto.Drawable(hints.IconPixmap))
	if err != nil {
		return nil, err
	}

	if hints.Flags&icccm.HintIconMask == 0 || hints.IconMask == 0 {
		return img, nil
	}
	mask, err := xgraphics.NewDrawable(c.X, xproto.Drawable(hints.IconMask))
	if err != nil {
		// A broken mask does not invalidate the pixmap itself.
		return img, nil
	}

	return compositeMask(img, mask), nil
}

// compositeMask copies the pixmap into an RGBA image whose alpha channel
// is driven by the mask: zero mask pixels become transparent.
func compositeMask(img, mask image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	mb := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			var a uint32 = 0xffff
			if x < mb.Max.X && y < mb.Max.Y {
				mr, mg, mbl, _ := mask.At(x, y).RGBA()
				if mr == 0 && mg == 0 && mbl == 0 {
					a = 0
				}
			}
			i := out.PixOffset(x, y)
			out.Pix[i+0] = uint8(r >> 8)
			out.Pix[i+1] = uint8(g >> 8)
			out.Pix[i+2] = uint8(bl >> 8)
			out.Pix[i+3] = uint8(a >> 8)
		}
	}
	return out
}
