// Package grid arranges a variable number of equally sized items into a
// capped grid. It is pure geometry: the panel's taskbar and launchbar feed
// it their visible item count and get back a preferred size and per-item
// rectangles. It retains no per-item identity between passes.
package grid

import (
	"github.com/ItsNotGoodName/x-panel/internal/core"
)

type Orientation int

const (
	// RowMajor caps the number of rows; items fill new columns as they
	// overflow. This is the mode for horizontal panels.
	RowMajor Orientation = iota
	// ColumnMajor caps the number of columns.
	ColumnMajor
)

// Separator is the gap in pixels left between adjacent rows and columns.
const Separator = 1

// MinW and MinH are the degenerate preferred size reported when the grid
// holds no items. A resizable container embedding this layout must impose
// its own minimum-size floor or it will collapse to this placeholder.
const (
	MinW = 2
	MinH = 2
)

type Rect struct {
	X int
	Y int
	W int
	H int
}

type Layout struct {
	orientation Orientation
	cellMaxW    int
	cellMaxH    int
	cap         int

	// relayout is flagged whenever a mutation actually changed the
	// configuration; the owner checks and clears it once per pass.
	relayout bool
}

func New(orientation Orientation, cellMaxW, cellMaxH, dimensionCap int) *Layout {
	l := &Layout{orientation: orientation}
	l.SetCellMax(cellMaxW, cellMaxH)
	l.SetCap(dimensionCap)
	l.relayout = false
	return l
}

func (l *Layout) Orientation() Orientation { return l.orientation }
func (l *Layout) Cap() int                 { return l.cap }
func (l *Layout) CellMax() (w, h int)      { return l.cellMaxW, l.cellMaxH }

// SetCap clamps to 1 and requests a relayout only when the value changed.
func (l *Layout) SetCap(dimensionCap int) {
	dimensionCap = core.Clamp(dimensionCap, 1, 1<<30)
	if dimensionCap == l.cap {
		return
	}
	l.cap = dimensionCap
	l.relayout = true
}

func (l *Layout) SetCellMax(w, h int) {
	w = core.Clamp(w, 1, 1<<30)
	h = core.Clamp(h, 1, 1<<30)
	if w == l.cellMaxW && h == l.cellMaxH {
		return
	}
	l.cellMaxW, l.cellMaxH = w, h
	l.relayout = true
}

// TakeRelayout reports whether a mutation since the last call requires a
// fresh layout pass, and clears the flag.
func (l *Layout) TakeRelayout() bool {
	r := l.relayout
	l.relayout = false
	return r
}

// Dims derives the row and column counts for n items. The orientation only
// decides which axis the cap binds; it does not change placement order.
func (l *Layout) Dims(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	dim := l.cap
	if n < dim {
		dim = n
	}
	if l.orientation == RowMajor {
		rows = dim
		cols = core.CeilDiv(n, rows)
	} else {
		cols = dim
		rows = core.CeilDiv(n, cols)
	}
	return rows, cols
}

// Preferred reports the total size wanted for n items at full cell size,
// including separators between rows and columns.
func (l *Layout) Preferred(n int) (w, h int) {
	if n <= 0 {
		return MinW, MinH
	}
	rows, cols := l.Dims(n)
	w = l.cellMaxW*cols + (cols-1)*Separator
	h = l.cellMaxH*rows + (rows-1)*Separator
	return w, h
}

// Allocate places n items into the given rectangle in row-major order,
// wrapping after every cols items. Every cell is at least 1x1 and never
// exceeds the configured cell maximum. Returns nil when n == 0.
func (l *Layout) Allocate(n, availW, availH int) []Rect {
	if n <= 0 {
		return nil
	}
	rows, cols := l.Dims(n)

	cellW := (availW - (cols-1)*Separator) / cols
	if cellW > l.cellMaxW {
		cellW = l.cellMaxW
	}
	if cellW < 1 {
		cellW = 1
	}
	cellH := (availH - (rows-1)*Separator) / rows
	if cellH > l.cellMaxH {
		cellH = l.cellMaxH
	}
	if cellH < 1 {
		cellH = 1
	}

	rects := make([]Rect, n)
	for i := 0; i < n; i++ {
		row, col := i/cols, i%cols
		rects[i] = Rect{
			X: col * (cellW + Separator),
			Y: row * (cellH + Separator),
			W: cellW,
			H: cellH,
		}
	}
	return rects
}
