package epaper

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/envnode/helpers"
)

func TestPixelPacking(t *testing.T) {
	t.Parallel()
	fb, err := NewFramebuffer(122, 250, 0)
	require.NoError(t, err)
	require.Equal(t, 16*250, len(fb.Bytes()))

	require.NoError(t, fb.SetPixel(0, 0, ColorBlack))
	assert.Equal(t, byte(0x7f), fb.Bytes()[0])

	require.NoError(t, fb.SetPixel(121, 249, ColorBlack))
	assert.Equal(t, byte(0xbf), fb.Bytes()[249*16+15])

	require.NoError(t, fb.SetPixel(0, 0, ColorWhite))
	assert.Equal(t, byte(0xff), fb.Bytes()[0])
}

func TestPixelRotate(t *testing.T) {
	t.Parallel()
	// 180° maps the logical origin to the far panel corner
	fb, err := NewFramebuffer(122, 250, 2)
	require.NoError(t, err)
	require.NoError(t, fb.SetPixel(0, 0, ColorBlack))
	assert.Equal(t, byte(0xbf), fb.Bytes()[249*16+15])

	// 90°: (x,y) -> (h-1-y, x)
	fb90, err := NewFramebuffer(8, 8, 1)
	require.NoError(t, err)
	require.NoError(t, fb90.SetPixel(1, 2, ColorBlack))
	assert.Equal(t, ColorBlack, fb90.at(5, 1))

	// 270°: (x,y) -> (y, w-1-x)
	fb270, err := NewFramebuffer(8, 8, 3)
	require.NoError(t, err)
	require.NoError(t, fb270.SetPixel(1, 2, ColorBlack))
	assert.Equal(t, ColorBlack, fb270.at(2, 6))
}

func TestPixelBounds(t *testing.T) {
	t.Parallel()
	fb, err := NewFramebuffer(122, 250, 0)
	require.NoError(t, err)
	for _, xy := range [][2]int{{122, 0}, {0, 250}, {-1, 0}, {0, -1}, {9999, 9999}} {
		err = fb.SetPixel(xy[0], xy[1], ColorBlack)
		assert.Truef(t, errors.IsNotValid(err), "x=%d y=%d expected NotValid, got %v", xy[0], xy[1], err)
	}
	for i, b := range fb.Bytes() {
		require.Equalf(t, byte(0xff), b, "byte %d modified by rejected pixel", i)
	}
}

func TestClearFill(t *testing.T) {
	t.Parallel()
	fb, err := NewFramebuffer(16, 4, 0)
	require.NoError(t, err)
	fb.Fill(ColorBlack)
	for _, b := range fb.Bytes() {
		require.Equal(t, byte(0x00), b)
	}
	fb.Clear()
	for _, b := range fb.Bytes() {
		require.Equal(t, byte(0xff), b)
	}
	fb.Fill(ColorWhite)
	for _, b := range fb.Bytes() {
		require.Equal(t, byte(0xff), b)
	}
}

func TestLinePixels(t *testing.T) {
	t.Parallel()
	fb, err := NewFramebuffer(8, 8, 0)
	require.NoError(t, err)
	fb.Line(1, 3, 6, 3, ColorBlack)
	for x := 1; x <= 6; x++ {
		assert.Equalf(t, ColorBlack, fb.at(x, 3), "x=%d", x)
	}
	assert.Equal(t, ColorWhite, fb.at(0, 3))
	assert.Equal(t, ColorWhite, fb.at(7, 3))

	diag, err := NewFramebuffer(8, 8, 0)
	require.NoError(t, err)
	diag.Line(0, 0, 7, 7, ColorBlack)
	for i := 0; i < 8; i++ {
		assert.Equalf(t, ColorBlack, diag.at(i, i), "i=%d", i)
	}
}

func TestLineSymmetry(t *testing.T) {
	t.Parallel()
	rnd := helpers.RandUnix()
	for i := 0; i < 100; i++ {
		x0, y0 := rnd.Intn(32), rnd.Intn(32)
		x1, y1 := rnd.Intn(32), rnd.Intn(32)
		a, err := NewFramebuffer(32, 32, 0)
		require.NoError(t, err)
		b, err := NewFramebuffer(32, 32, 0)
		require.NoError(t, err)
		a.Line(x0, y0, x1, y1, ColorBlack)
		b.Line(x1, y1, x0, y0, ColorBlack)
		require.Equalf(t, a.Bytes(), b.Bytes(), "line (%d,%d)-(%d,%d) direction changed pixels", x0, y0, x1, y1)
	}
}

func TestRect(t *testing.T) {
	t.Parallel()
	filled, err := NewFramebuffer(16, 16, 0)
	require.NoError(t, err)
	filled.Rect(2, 3, 4, 5, ColorBlack, true)
	for y := 3; y < 8; y++ {
		for x := 2; x < 6; x++ {
			require.Equalf(t, ColorBlack, filled.at(x, y), "x=%d y=%d", x, y)
		}
	}
	assert.Equal(t, ColorWhite, filled.at(1, 3))
	assert.Equal(t, ColorWhite, filled.at(6, 3))

	outline, err := NewFramebuffer(16, 16, 0)
	require.NoError(t, err)
	outline.Rect(2, 3, 4, 5, ColorBlack, false)
	assert.Equal(t, ColorBlack, outline.at(2, 3))
	assert.Equal(t, ColorBlack, outline.at(5, 7))
	assert.Equal(t, ColorWhite, outline.at(3, 4), "outline interior must stay empty")

	// overflow clips quietly
	clipped, err := NewFramebuffer(8, 8, 0)
	require.NoError(t, err)
	clipped.Rect(6, 6, 10, 10, ColorBlack, true)
	assert.Equal(t, ColorBlack, clipped.at(7, 7))
	assert.Equal(t, ColorWhite, clipped.at(5, 5))

	// rotation 1 on a square panel still covers every byte
	rot, err := NewFramebuffer(8, 8, 1)
	require.NoError(t, err)
	rot.Rect(0, 0, 8, 8, ColorBlack, true)
	for i, b := range rot.Bytes() {
		require.Equalf(t, byte(0x00), b, "byte %d not filled", i)
	}

	// on a non-square panel rotation 1 maps most of the logical plane
	// outside the physical one, those pixels are dropped
	tall, err := NewFramebuffer(8, 16, 1)
	require.NoError(t, err)
	tall.Rect(0, 0, 16, 8, ColorBlack, true)
	for i, b := range tall.Bytes() {
		require.Equalf(t, byte(0xff), b, "byte %d must stay white", i)
	}
}

func TestTextGlyph(t *testing.T) {
	t.Parallel()
	fb, err := NewFramebuffer(16, 16, 0)
	require.NoError(t, err)
	// '!' is a single glyph column: bits 0..4 and 6
	fb.Text(0, 0, "!", 1, AlignLeft)
	for _, y := range []int{0, 1, 2, 3, 4, 6} {
		assert.Equalf(t, ColorBlack, fb.at(2, y), "y=%d", y)
	}
	assert.Equal(t, ColorWhite, fb.at(2, 5))
	assert.Equal(t, ColorWhite, fb.at(2, 7))
}

func TestTextSubstitute(t *testing.T) {
	t.Parallel()
	a, err := NewFramebuffer(16, 16, 0)
	require.NoError(t, err)
	b, err := NewFramebuffer(16, 16, 0)
	require.NoError(t, err)
	a.Text(0, 0, "\x07", 1, AlignLeft)
	b.Text(0, 0, "?", 1, AlignLeft)
	assert.Equal(t, b.Bytes(), a.Bytes(), "non-printable must render as ?")
}

func TestTextAlign(t *testing.T) {
	t.Parallel()
	// "AB" renders 11px wide: 2 advances minus trailing spacing
	a, err := NewFramebuffer(64, 16, 0)
	require.NoError(t, err)
	b, err := NewFramebuffer(64, 16, 0)
	require.NoError(t, err)
	a.Text(30, 0, "AB", 1, AlignCenter)
	b.Text(25, 0, "AB", 1, AlignLeft)
	assert.Equal(t, b.Bytes(), a.Bytes())

	c, err := NewFramebuffer(64, 16, 0)
	require.NoError(t, err)
	d, err := NewFramebuffer(64, 16, 0)
	require.NoError(t, err)
	c.Text(40, 0, "AB", 1, AlignRight)
	d.Text(29, 0, "AB", 1, AlignLeft)
	assert.Equal(t, d.Bytes(), c.Bytes())

	// shift clamps at the left edge
	e, err := NewFramebuffer(64, 16, 0)
	require.NoError(t, err)
	f, err := NewFramebuffer(64, 16, 0)
	require.NoError(t, err)
	e.Text(3, 0, "AB", 1, AlignRight)
	f.Text(0, 0, "AB", 1, AlignLeft)
	assert.Equal(t, f.Bytes(), e.Bytes())
}

func TestTextNewline(t *testing.T) {
	t.Parallel()
	a, err := NewFramebuffer(32, 32, 0)
	require.NoError(t, err)
	b, err := NewFramebuffer(32, 32, 0)
	require.NoError(t, err)
	a.Text(2, 1, "A\nB", 1, AlignLeft)
	b.Text(2, 1, "A", 1, AlignLeft)
	b.Text(2, 1+9, "B", 1, AlignLeft)
	assert.Equal(t, b.Bytes(), a.Bytes())
}

func TestTextScale(t *testing.T) {
	t.Parallel()
	fb, err := NewFramebuffer(16, 20, 0)
	require.NoError(t, err)
	fb.Text(0, 0, "!", 2, AlignLeft)
	// glyph column 2 lands on x 4..5, each font row covers two panel rows
	for _, y := range []int{0, 1, 8, 9, 12, 13} {
		assert.Equalf(t, ColorBlack, fb.at(4, y), "y=%d", y)
		assert.Equalf(t, ColorBlack, fb.at(5, y), "y=%d", y)
	}
	assert.Equal(t, ColorWhite, fb.at(4, 10))
	assert.Equal(t, ColorWhite, fb.at(4, 11))
}

func TestBitmap(t *testing.T) {
	t.Parallel()
	fb, err := NewFramebuffer(8, 8, 0)
	require.NoError(t, err)
	fb.Bitmap(1, 1, [][]bool{
		{true, false},
		{false, true},
	})
	assert.Equal(t, ColorBlack, fb.at(1, 1))
	assert.Equal(t, ColorWhite, fb.at(2, 1))
	assert.Equal(t, ColorWhite, fb.at(1, 2))
	assert.Equal(t, ColorBlack, fb.at(2, 2))
}
