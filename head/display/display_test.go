package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/envnode/hardware/epaper"
	tele_api "github.com/temoto/envnode/head/tele/api"
	"github.com/temoto/envnode/log2"
)

func testDisplay(t testing.TB) (*Display, *epaper.Driver) {
	cfg, err := epaper.DefaultConfig(epaper.Model213)
	require.NoError(t, err)
	log := log2.NewTest(t, log2.LDebug)
	drv := epaper.NewDriver(cfg, epaper.NewMockTransport(), log)
	require.NoError(t, drv.Init())
	return New(drv, log), drv
}

func pixel(t testing.TB, fb *epaper.Framebuffer, x, y int) epaper.Color {
	c, err := fb.At(x, y)
	require.NoErrorf(t, err, "pixel x=%d y=%d", x, y)
	return c
}

func hasBlack(t testing.TB, fb *epaper.Framebuffer, x0, y0, x1, y1 int) bool {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if pixel(t, fb, x, y) == epaper.ColorBlack {
				return true
			}
		}
	}
	return false
}

func TestDashboardLayout(t *testing.T) {
	t.Parallel()
	dsp, drv := testDisplay(t)
	r := &tele_api.Telemetry_Reading{
		TemperatureC: 21.5,
		HumidityPct:  48,
		SoilPct:      55.5,
		BatteryVolt:  3.9,
	}
	require.NoError(t, dsp.ShowDashboard(r))

	fb := drv.FB()
	width, height := fb.LogicalSize()
	require.Equal(t, 122, width)
	require.Equal(t, 250, height)

	// centered header lands at x 29..93
	assert.True(t, hasBlack(t, fb, 29, 5, 93, 12), "title missing")
	assert.False(t, hasBlack(t, fb, 0, 5, 28, 12), "title must be centered")

	// separator spans margin to margin at y=17
	for _, x := range []int{10, 60, 111} {
		assert.Equalf(t, epaper.ColorBlack, pixel(t, fb, x, 17), "separator x=%d", x)
	}
	assert.Equal(t, epaper.ColorWhite, pixel(t, fb, 9, 17))
	assert.Equal(t, epaper.ColorWhite, pixel(t, fb, 112, 17))

	// four value rows, one band each
	for i := 0; i < 4; i++ {
		y := 25 + i*14
		assert.Truef(t, hasBlack(t, fb, 10, y, 80, y+7), "row %d empty", i)
	}

	// battery bar at y=81: outline edges plus 3.9V fill ending at x=86
	barY := 81
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 10, barY))
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 111, barY))
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 111, barY+7))
	assert.Equal(t, epaper.ColorWhite, pixel(t, fb, 112, barY))
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 86, barY+4), "inside fill")
	assert.Equal(t, epaper.ColorWhite, pixel(t, fb, 87, barY+4), "past fill")
}

func TestBatteryBarClamp(t *testing.T) {
	t.Parallel()
	dsp, drv := testDisplay(t)

	require.NoError(t, dsp.ShowDashboard(&tele_api.Telemetry_Reading{BatteryVolt: 4.8}))
	fb := drv.FB()
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 111, 85), "full fill must reach the outline")

	require.NoError(t, dsp.ShowDashboard(&tele_api.Telemetry_Reading{BatteryVolt: 2.0}))
	assert.Equal(t, epaper.ColorWhite, pixel(t, fb, 60, 85), "dead pack interior stays empty")
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 10, 85), "outline survives")
}

func TestShowMessage(t *testing.T) {
	t.Parallel()
	dsp, drv := testDisplay(t)
	require.NoError(t, dsp.ShowMessage("LOW BATTERY"))
	fb := drv.FB()
	// size 2 text lands in a 16px band from y=30, overflow clips at the
	// right edge
	assert.True(t, hasBlack(t, fb, 10, 30, 111, 45))
	assert.False(t, hasBlack(t, fb, 10, 5, 111, 25), "message screen is cleared first")
}

func TestTranslateFolds(t *testing.T) {
	t.Parallel()
	dsp, _ := testDisplay(t)
	require.NotNil(t, dsp.tr, "us-ascii translator must load")
	out := dsp.Translate("t=21°C")
	for i := 0; i < len(out); i++ {
		require.Lessf(t, out[i], byte(0x80), "byte %d of %q", i, out)
	}
	assert.Contains(t, out, "t=21")
	assert.Contains(t, out, "C")
}

func TestPairingQR(t *testing.T) {
	t.Parallel()
	dsp, drv := testDisplay(t)
	require.NoError(t, dsp.ShowPairing(17))
	fb := drv.FB()

	// v1 code is 21 modules, scale 5, centered: x0=8, 105px square
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 8, 4), "top-left finder corner")
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 112, 4), "top-right finder corner")
	assert.Equal(t, epaper.ColorBlack, pixel(t, fb, 8, 108), "bottom-left finder corner")
	// label under the code at y=115
	assert.True(t, hasBlack(t, fb, 26, 115, 96, 122), "label missing")
	assert.False(t, hasBlack(t, fb, 0, 124, 111, 180), "below label stays clear")
}

func TestNotInitialized(t *testing.T) {
	t.Parallel()
	cfg, err := epaper.DefaultConfig(epaper.Model213)
	require.NoError(t, err)
	log := log2.NewTest(t, log2.LDebug)
	dsp := New(epaper.NewDriver(cfg, epaper.NewMockTransport(), log), log)
	require.Error(t, dsp.ShowDashboard(&tele_api.Telemetry_Reading{}))
	require.Error(t, dsp.ShowMessage("x"))
	require.Error(t, dsp.ShowPairing(1))
}
