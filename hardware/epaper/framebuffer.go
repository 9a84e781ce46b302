package epaper

import (
	"strings"

	"github.com/juju/errors"
)

// Color of one pixel. Panel RAM packs 8 pixels per byte, 1=white 0=black.
type Color uint8

const (
	ColorBlack Color = 0
	ColorWhite Color = 1
)

type Align uint8

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Framebuffer is the in-memory image in panel RAM layout: rows padded to
// whole bytes, top-left origin, bit 7 is the leftmost pixel of a byte.
// Drawing happens in logical coordinates, rotation is applied per pixel.
// Not safe for concurrent use.
type Framebuffer struct {
	buf         []byte
	width       int // physical panel size
	height      int
	bytesPerRow int
	rotation    uint8 // clockwise quarter turns 0..3
}

func NewFramebuffer(width, height uint16, rotation uint8) (*Framebuffer, error) {
	if width == 0 || height == 0 {
		return nil, errors.NotValidf("framebuffer size=%dx%d", width, height)
	}
	if rotation > 3 {
		return nil, errors.NotValidf("framebuffer rotation=%d", rotation)
	}
	fb := &Framebuffer{
		width:       int(width),
		height:      int(height),
		bytesPerRow: (int(width) + 7) / 8,
		rotation:    rotation,
	}
	fb.buf = make([]byte, fb.bytesPerRow*fb.height)
	fb.Clear()
	return fb, nil
}

func (fb *Framebuffer) Size() (width, height int) { return fb.width, fb.height }

// LogicalSize returns the drawing surface size after rotation.
func (fb *Framebuffer) LogicalSize() (width, height int) {
	if fb.rotation%2 == 1 {
		return fb.height, fb.width
	}
	return fb.width, fb.height
}

// Bytes returns the live buffer in panel RAM layout.
func (fb *Framebuffer) Bytes() []byte { return fb.buf }

func (fb *Framebuffer) Clear() { fb.memset(0xff) }

func (fb *Framebuffer) Fill(color Color) {
	if color == ColorBlack {
		fb.memset(0x00)
	} else {
		fb.memset(0xff)
	}
}

func (fb *Framebuffer) memset(b byte) {
	for i := range fb.buf {
		fb.buf[i] = b
	}
}

func (fb *Framebuffer) rotate(x, y int) (int, int) {
	switch fb.rotation {
	case 1: // 90° clockwise
		return fb.height - 1 - y, x
	case 2: // 180°
		return fb.width - 1 - x, fb.height - 1 - y
	case 3: // 270° clockwise
		return y, fb.width - 1 - x
	}
	return x, y
}

// SetPixel draws one logical pixel. Out of panel bounds after rotation is an
// error and the buffer is not modified.
func (fb *Framebuffer) SetPixel(x, y int, color Color) error {
	rx, ry := fb.rotate(x, y)
	if rx < 0 || ry < 0 || rx >= fb.width || ry >= fb.height {
		return errors.NotValidf("pixel x=%d y=%d rotation=%d", x, y, fb.rotation)
	}
	i := ry*fb.bytesPerRow + rx/8
	bit := byte(1) << uint(7-rx%8)
	if color == ColorBlack {
		fb.buf[i] &^= bit
	} else {
		fb.buf[i] |= bit
	}
	return nil
}

// At reads back one logical pixel.
func (fb *Framebuffer) At(x, y int) (Color, error) {
	rx, ry := fb.rotate(x, y)
	if rx < 0 || ry < 0 || rx >= fb.width || ry >= fb.height {
		return ColorWhite, errors.NotValidf("pixel x=%d y=%d rotation=%d", x, y, fb.rotation)
	}
	return fb.at(rx, ry), nil
}

// at reads back a pixel in physical coordinates, no rotation.
func (fb *Framebuffer) at(rx, ry int) Color {
	i := ry*fb.bytesPerRow + rx/8
	if fb.buf[i]&(byte(1)<<uint(7-rx%8)) != 0 {
		return ColorWhite
	}
	return ColorBlack
}

// Line draws with Bresenham, endpoints inclusive. Reversed endpoints produce
// the same pixel set. Out of bounds pixels are clipped.
func (fb *Framebuffer) Line(x0, y0, x1, y1 int, color Color) {
	// canonical endpoint order, plain Bresenham is not direction-symmetric
	if x1 < x0 || (x1 == x0 && y1 < y0) {
		x0, x1 = x1, x0
		y0, y1 = y1, y0
	}
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		_ = fb.SetPixel(x0, y0, color)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Rect draws filled or outline. Filled mode clips every pixel, outline mode
// is four Line calls so duplicate corners are harmless.
func (fb *Framebuffer) Rect(x, y, w, h int, color Color, filled bool) {
	if filled {
		// Fill clips against the physical panel size.
		for row := y; row < y+h && row < fb.height; row++ {
			for col := x; col < x+w && col < fb.width; col++ {
				_ = fb.SetPixel(col, row, color)
			}
		}
		return
	}
	fb.Line(x, y, x+w-1, y, color)
	fb.Line(x, y+h-1, x+w-1, y+h-1, color)
	fb.Line(x, y, x, y+h-1, color)
	fb.Line(x+w-1, y, x+w-1, y+h-1, color)
}

// Text renders s with the builtin 5x8 font scaled size times. Only black
// glyph pixels are drawn, background stays as is. Characters outside ASCII
// 32..126 render as '?'. Newline returns the cursor to the aligned start x.
// Alignment shift is computed from the first line only and clamps at 0.
func (fb *Framebuffer) Text(x, y int, s string, size int, align Align) {
	if size < 1 {
		size = 1
	}
	w := 0
	for i := 0; i < len(s) && s[i] != '\n'; i++ {
		w += 5*size + size
	}
	if w > 0 {
		w -= size // no spacing after the last character
	}
	startX := x
	switch align {
	case AlignCenter:
		if x > w/2 {
			startX = x - w/2
		} else {
			startX = 0
		}
	case AlignRight:
		if x > w {
			startX = x - w
		} else {
			startX = 0
		}
	}
	cx, cy := startX, y
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			cx = startX
			cy += 8*size + size
			continue
		}
		if c < 32 || c > 126 {
			c = '?'
		}
		glyph := &font5x8[c-32]
		for col := 0; col < 5; col++ {
			line := glyph[col]
			for row := 0; row < 8; row++ {
				if line&(byte(1)<<uint(row)) == 0 {
					continue
				}
				for sy := 0; sy < size; sy++ {
					for sx := 0; sx < size; sx++ {
						_ = fb.SetPixel(cx+col*size+sx, cy+row*size+sy, ColorBlack)
					}
				}
			}
		}
		cx += 5*size + size
	}
}

// Bitmap draws a prerendered monochrome matrix, true cells as black.
func (fb *Framebuffer) Bitmap(x, y int, rows [][]bool) {
	for ry, row := range rows {
		for rx, set := range row {
			if set {
				_ = fb.SetPixel(x+rx, y+ry, ColorBlack)
			}
		}
	}
}

// String dumps physical panel contents as terminal art, two cells per pixel.
func (fb *Framebuffer) String() string {
	b := strings.Builder{}
	b.Grow((fb.width*2 + 1) * fb.height)
	for ry := 0; ry < fb.height; ry++ {
		for rx := 0; rx < fb.width; rx++ {
			if fb.at(rx, ry) == ColorBlack {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
