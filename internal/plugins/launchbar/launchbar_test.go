package launchbar

import (
	"testing"

	"github.com/ItsNotGoodName/x-panel/internal/config"
	"github.com/ItsNotGoodName/x-panel/internal/grid"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	nextWID xproto.Window
	mapped  []xproto.Window
	placed  map[xproto.Window]grid.Rect
}

func newFakeHost() *fakeHost {
	return &fakeHost{nextWID: 0x100, placed: make(map[xproto.Window]grid.Rect)}
}

func (h *fakeHost) CreateSubWindow() (xproto.Window, error) {
	h.nextWID++
	return h.nextWID, nil
}

func (h *fakeHost) MapSub(wid xproto.Window) error {
	h.mapped = append(h.mapped, wid)
	return nil
}

func (h *fakeHost) ConfigureSub(wid xproto.Window, r grid.Rect, offsetX, offsetY int) error {
	r.X += offsetX
	r.Y += offsetY
	h.placed[wid] = r
	return nil
}

func buttons(commands ...string) []config.Button {
	out := make([]config.Button, 0, len(commands))
	for _, c := range commands {
		out = append(out, config.Button{Command: c})
	}
	return out
}

func TestNewCreatesButtonWindows(t *testing.T) {
	host := newFakeHost()
	lb, err := New(host, buttons("xterm", "firefox", "files"), true, 24)
	require.NoError(t, err)

	assert.Equal(t, 3, lb.Len())
	assert.Len(t, host.mapped, 3)
}

func TestSetRegionPlacesButtons(t *testing.T) {
	host := newFakeHost()
	lb, err := New(host, buttons("a", "b", "c", "d"), true, 24)
	require.NoError(t, err)

	// Region two cells tall: buttons wrap into two rows of two.
	lb.SetRegion(grid.Rect{X: 10, Y: 0, W: 49, H: 49})
	require.Len(t, host.placed, 4)
	for _, r := range host.placed {
		assert.GreaterOrEqual(t, r.X, 10)
		assert.LessOrEqual(t, r.W, 24)
		assert.LessOrEqual(t, r.H, 24)
	}
}

func TestClickRunsCommand(t *testing.T) {
	host := newFakeHost()
	lb, err := New(host, buttons("xterm"), true, 24)
	require.NoError(t, err)

	var ran []string
	lb.run = func(command string) { ran = append(ran, command) }

	assert.True(t, lb.Click(lb.buttons[0].wid))
	assert.Equal(t, []string{"xterm"}, ran)

	assert.False(t, lb.Click(0xdead), "foreign windows are not claimed")
	assert.Len(t, ran, 1)
}
