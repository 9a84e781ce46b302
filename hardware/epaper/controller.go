package epaper

import (
	"time"

	"github.com/juju/errors"
)

// SSD168x command bytes shared by the supported panels.
const (
	cmdDriverOutput   = 0x01
	cmdDeepSleep      = 0x10
	cmdDataEntryMode  = 0x11
	cmdSwReset        = 0x12
	cmdTempSensor     = 0x18
	cmdMasterActivate = 0x20
	cmdUpdateControl1 = 0x21
	cmdUpdateControl2 = 0x22
	cmdWriteRAM       = 0x24 // current bank
	cmdWriteRAMPrev   = 0x26 // previous bank, feeds differential refresh
	cmdBorderWaveform = 0x3c
	cmdRAMXRange      = 0x44
	cmdRAMYRange      = 0x45
	cmdRAMXCounter    = 0x4e
	cmdRAMYCounter    = 0x4f
)

const (
	busyTimeoutInit   = 2000 * time.Millisecond
	busyTimeoutUpdate = 5000 * time.Millisecond

	updateModeFull    byte = 0xf7
	updateModePartial byte = 0xff
)

type ctlStep struct {
	cmd  byte
	data []byte
}

func (d *Driver) ctlSeq(steps []ctlStep) error {
	for _, s := range steps {
		if err := d.tp.Command(s.cmd, s.data...); err != nil {
			return errors.Annotatef(err, "cmd=%02x", s.cmd)
		}
	}
	return nil
}

// softReset runs the common hardware+software reset prefix: pulse the reset
// line, wait idle, SWRESET, wait idle again.
func (d *Driver) softReset() error {
	if err := d.tp.Reset(); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.BusyWait(busyTimeoutInit); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Command(cmdSwReset); err != nil {
		return errors.Trace(err)
	}
	time.Sleep(10 * time.Millisecond)
	return errors.Trace(d.tp.BusyWait(busyTimeoutInit))
}

func (d *Driver) setRAMCounters() error {
	if err := d.tp.Command(cmdRAMXCounter, 0x00); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(d.tp.Command(cmdRAMYCounter, 0x00, 0x00))
}

// DEPG0213BN on SSD1680.
func (d *Driver) bringUp213() error {
	if err := d.softReset(); err != nil {
		return errors.Annotate(err, "reset")
	}
	steps := []ctlStep{
		{cmdDriverOutput, []byte{0x27, 0x01, 0x00}}, // 296 scan lines
		{cmdDataEntryMode, []byte{0x03}},            // X and Y increment
		{cmdRAMXRange, []byte{0x00, 0x0f}},          // 16 bytes covers 122px
		{cmdRAMYRange, []byte{0x00, 0x00, 0x27, 0x01}},
		{cmdBorderWaveform, []byte{0x05}},
		{cmdUpdateControl1, []byte{0x00, 0x80}},
		{cmdTempSensor, []byte{0x80}}, // internal sensor
	}
	if err := d.ctlSeq(steps); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(d.tp.BusyWait(busyTimeoutInit))
}

// GDEH0154D67 on SSD1681.
func (d *Driver) bringUp154() error {
	if err := d.softReset(); err != nil {
		return errors.Annotate(err, "reset")
	}
	steps := []ctlStep{
		{cmdDriverOutput, []byte{0xc7, 0x00, 0x00}}, // 200 scan lines
		{cmdDataEntryMode, []byte{0x03}},
		{cmdRAMXRange, []byte{0x00, 0x18}}, // 25 bytes covers 200px
		{cmdRAMYRange, []byte{0x00, 0x00, 0xc7, 0x00}},
		{cmdBorderWaveform, []byte{0x01}}, // white border
		{cmdTempSensor, []byte{0x80}},
		{cmdUpdateControl2, []byte{0xb1}}, // load LUT
	}
	if err := d.ctlSeq(steps); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Command(cmdMasterActivate); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(d.tp.BusyWait(busyTimeoutInit))
}

func (d *Driver) update213(full bool) error {
	// Both RAM banks are rewritten every time so the previous bank always
	// holds the last pushed frame for differential refresh.
	buf := d.fb.Bytes()
	if err := d.setRAMCounters(); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Command(cmdWriteRAMPrev); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Data(buf); err != nil {
		return errors.Trace(err)
	}
	if err := d.setRAMCounters(); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Command(cmdWriteRAM); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Data(buf); err != nil {
		return errors.Trace(err)
	}
	mode := updateModePartial
	if full {
		mode = updateModeFull
	}
	if err := d.tp.Command(cmdUpdateControl2, mode); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Command(cmdMasterActivate); err != nil {
		return errors.Trace(err)
	}
	time.Sleep(10 * time.Millisecond)
	return errors.Trace(d.tp.BusyWait(busyTimeoutUpdate))
}

func (d *Driver) update154(full bool) error {
	buf := d.fb.Bytes()
	if err := d.setRAMCounters(); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Command(cmdWriteRAM); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Data(buf); err != nil {
		return errors.Trace(err)
	}
	if full {
		// rewrite the previous bank too, clears accumulated ghosting
		if err := d.tp.Command(cmdWriteRAMPrev); err != nil {
			return errors.Trace(err)
		}
		if err := d.tp.Data(buf); err != nil {
			return errors.Trace(err)
		}
	}
	mode := updateModePartial
	if full {
		mode = updateModeFull
	}
	if err := d.tp.Command(cmdUpdateControl2, mode); err != nil {
		return errors.Trace(err)
	}
	if err := d.tp.Command(cmdMasterActivate); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(d.tp.BusyWait(busyTimeoutUpdate))
}
