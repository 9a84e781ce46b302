// Package epaper drives SSD168x e-paper panels: a packed monochrome
// framebuffer with drawing primitives, plus the model-specific controller
// sequences to push it to glass over SPI.
package epaper

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/envnode/log2"
)

type Config struct {
	Model        Model
	Width        uint16
	Height       uint16
	Rotation     uint8 // clockwise quarter turns 0..3
	Partial      bool  // allow partial refresh between full ones
	FullInterval uint32
}

// Driver owns the framebuffer and panel state. All methods must be called
// from a single goroutine, there is no internal locking. Transport lifetime
// belongs to the caller.
//
// Init must not be called twice on a live driver.
type Driver struct {
	log *log2.Log
	tp  Transport
	cfg Config
	fb  *Framebuffer
	ops modelOps

	initialized  bool
	powered      bool
	partialCount uint32
}

func NewDriver(cfg Config, tp Transport, log *log2.Log) *Driver {
	return &Driver{log: log, tp: tp, cfg: cfg}
}

func (d *Driver) Config() Config { return d.cfg }

// FB returns the framebuffer for direct drawing, nil before Init.
func (d *Driver) FB() *Framebuffer { return d.fb }

func (d *Driver) Init() error {
	ops, ok := modelTable[d.cfg.Model]
	if !ok {
		return errors.NotSupportedf("epaper model=%s", d.cfg.Model)
	}
	fb, err := NewFramebuffer(d.cfg.Width, d.cfg.Height, d.cfg.Rotation)
	if err != nil {
		return errors.Trace(err)
	}
	d.ops = ops
	d.fb = fb
	if err := d.tp.Power(true); err != nil {
		d.fb = nil
		return errors.Annotate(err, "epaper power")
	}
	if err := d.ops.bringUp(d); err != nil {
		_ = d.tp.Power(false)
		d.fb = nil
		return errors.Annotatef(err, "epaper init model=%s", d.cfg.Model)
	}
	d.initialized = true
	d.powered = true
	d.partialCount = 0
	d.log.Debugf("epaper: init done model=%s size=%dx%d fb=%dB",
		d.cfg.Model, d.cfg.Width, d.cfg.Height, len(fb.Bytes()))
	return nil
}

// Deinit is idempotent and safe on a never initialized driver.
func (d *Driver) Deinit() error {
	if !d.initialized {
		return nil
	}
	if err := d.PowerOff(); err != nil {
		return errors.Trace(err)
	}
	d.fb = nil
	d.initialized = false
	return nil
}

// PowerOn raises the panel rail and re-runs bring-up: the controller does
// not retain configuration through rail power-down.
func (d *Driver) PowerOn() error {
	if !d.initialized {
		return errors.Errorf("epaper: not initialized")
	}
	if d.powered {
		return nil
	}
	if err := d.tp.Power(true); err != nil {
		return errors.Trace(err)
	}
	if err := d.ops.bringUp(d); err != nil {
		return errors.Annotate(err, "epaper power-on")
	}
	d.powered = true
	return nil
}

// PowerOff puts deep-sleep capable controllers to sleep before dropping
// the rail. Idempotent.
func (d *Driver) PowerOff() error {
	if !d.powered {
		return nil
	}
	if d.cfg.Model == Model213 {
		if err := d.tp.Command(cmdDeepSleep, 0x01); err != nil {
			return errors.Trace(err)
		}
	}
	if err := d.tp.Power(false); err != nil {
		return errors.Trace(err)
	}
	d.powered = false
	return nil
}

// Update pushes the framebuffer to the panel. Full refresh happens when
// forced or when the partial counter reaches the configured interval,
// and resets the counter.
func (d *Driver) Update(forceFull bool) error {
	if !d.initialized {
		return errors.Errorf("epaper: not initialized")
	}
	full := forceFull || !d.cfg.Partial || d.partialCount >= d.cfg.FullInterval
	begin := time.Now()
	if full {
		d.partialCount = 0
	} else {
		d.partialCount++
		d.log.Debugf("epaper: partial update %d/%d", d.partialCount, d.cfg.FullInterval)
	}
	if err := d.ops.update(d, full); err != nil {
		return errors.Annotatef(err, "epaper update full=%t", full)
	}
	d.log.Debugf("epaper: update full=%t took=%s", full, time.Since(begin))
	return nil
}

func (d *Driver) Clear() error {
	if d.fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	d.fb.Clear()
	return nil
}

func (d *Driver) Fill(color Color) error {
	if d.fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	d.fb.Fill(color)
	return nil
}

func (d *Driver) SetPixel(x, y int, color Color) error {
	if d.fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	return d.fb.SetPixel(x, y, color)
}

func (d *Driver) Line(x0, y0, x1, y1 int, color Color) error {
	if d.fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	d.fb.Line(x0, y0, x1, y1, color)
	return nil
}

func (d *Driver) Rect(x, y, w, h int, color Color, filled bool) error {
	if d.fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	d.fb.Rect(x, y, w, h, color, filled)
	return nil
}

func (d *Driver) Text(x, y int, s string, size int, align Align) error {
	if d.fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	d.fb.Text(x, y, s, size, align)
	return nil
}

func (d *Driver) Bitmap(x, y int, rows [][]bool) error {
	if d.fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	d.fb.Bitmap(x, y, rows)
	return nil
}
