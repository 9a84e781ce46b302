// Package display renders the node screens: sensor dashboard, pairing
// QR and service messages. Drawing only, refresh scheduling stays with
// the caller.
package display

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/temoto/envnode/hardware/epaper"
	tele_api "github.com/temoto/envnode/head/tele/api"
	"github.com/temoto/envnode/log2"
)

// Dashboard geometry. Panel is used portrait, 122x250 on the 2.13".
const (
	marginX    = 10
	titleY     = 5
	lineStep   = 14
	barWidth   = 102
	barHeight  = 8
	msgX       = 10
	msgY       = 30
	msgSize    = 2
	qrTopY     = 4
	qrLabelGap = 6
)

type Display struct {
	Log *log2.Log
	drv *epaper.Driver
	tr  charset.Translator
}

func New(drv *epaper.Driver, log *log2.Log) *Display {
	dsp := &Display{Log: log, drv: drv}
	tr, err := charset.TranslatorTo("us-ascii")
	if err != nil {
		log.Errorf("display: charset us-ascii err=%v", err)
	} else {
		dsp.tr = tr
	}
	return dsp
}

func (dsp *Display) Init() error   { return errors.Trace(dsp.drv.Init()) }
func (dsp *Display) Deinit() error { return errors.Trace(dsp.drv.Deinit()) }

// Refresh pushes the drawn frame to glass.
func (dsp *Display) Refresh(full bool) error { return errors.Trace(dsp.drv.Update(full)) }

// Sleep powers the panel down between wake cycles. E-paper keeps the
// image without power.
func (dsp *Display) Sleep() error { return errors.Trace(dsp.drv.PowerOff()) }

// Wake brings a slept panel back, no-op when already up.
func (dsp *Display) Wake() error { return errors.Trace(dsp.drv.PowerOn()) }

// ShowDashboard draws the sensor overview.
func (dsp *Display) ShowDashboard(r *tele_api.Telemetry_Reading) error {
	fb := dsp.drv.FB()
	if fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	fb.Clear()
	width, _ := fb.LogicalSize()

	y := titleY
	fb.Text(width/2, y, "Sensor Data", 1, epaper.AlignCenter)
	y += 12
	fb.Line(marginX, y, width-marginX-1, y, epaper.ColorBlack)
	y += 8
	fb.Text(marginX, y, fmt.Sprintf("T:%.1fC", r.TemperatureC), 1, epaper.AlignLeft)
	y += lineStep
	fb.Text(marginX, y, fmt.Sprintf("H:%.0f%%", r.HumidityPct), 1, epaper.AlignLeft)
	y += lineStep
	fb.Text(marginX, y, fmt.Sprintf("S:%.0f%%", r.SoilPct), 1, epaper.AlignLeft)
	y += lineStep
	fb.Text(marginX, y, fmt.Sprintf("B:%.2fV", r.BatteryVolt), 1, epaper.AlignLeft)
	y += lineStep
	dsp.batteryBar(fb, marginX, y, r.BatteryVolt)
	return nil
}

// batteryBar outline with fill proportional to volts inside the li-ion
// 3.0..4.2 window. +2 keeps a sliver visible on a dead pack.
func (dsp *Display) batteryBar(fb *epaper.Framebuffer, x, y int, volt float64) {
	fill := int((volt-3.0)/1.2*100) + 2
	if fill < 0 {
		fill = 0
	} else if fill > barWidth {
		fill = barWidth
	}
	fb.Rect(x, y, barWidth, barHeight, epaper.ColorBlack, false)
	if fill > 0 {
		fb.Rect(x, y, fill, barHeight, epaper.ColorBlack, true)
	}
}

// ShowMessage clears the panel and draws one large service message.
func (dsp *Display) ShowMessage(msg string) error {
	fb := dsp.drv.FB()
	if fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	fb.Clear()
	fb.Text(msgX, msgY, dsp.Translate(msg), msgSize, epaper.AlignLeft)
	return nil
}

// ShowPairing draws the provisioning QR with the node URL beneath.
func (dsp *Display) ShowPairing(nodeId int32) error {
	fb := dsp.drv.FB()
	if fb == nil {
		return errors.Errorf("epaper: not initialized")
	}
	url := fmt.Sprintf("envnode://%d", nodeId)
	qr, err := qrcode.New(url, qrcode.Low)
	if err != nil {
		return errors.Annotate(err, "display qr")
	}
	qr.DisableBorder = true
	bm := qr.Bitmap()
	side := len(bm)
	if side == 0 {
		return errors.Errorf("display qr empty url=%s", url)
	}

	fb.Clear()
	width, height := fb.LogicalSize()
	// fit inside side margins and leave room for the label line
	scale := (width - 2*qrTopY) / side
	if hs := (height - qrTopY - qrLabelGap - 8 - 8) / side; hs < scale {
		scale = hs
	}
	if scale < 1 {
		scale = 1
	}
	qsize := side * scale
	rows := make([][]bool, qsize)
	for i := range rows {
		rows[i] = make([]bool, qsize)
	}
	for ry, row := range bm {
		for rx, dark := range row {
			if !dark {
				continue
			}
			for sy := 0; sy < scale; sy++ {
				for sx := 0; sx < scale; sx++ {
					rows[ry*scale+sy][rx*scale+sx] = true
				}
			}
		}
	}
	x0 := (width - qsize) / 2
	if x0 < 0 {
		x0 = 0
	}
	fb.Bitmap(x0, qrTopY, rows)
	fb.Text(width/2, qrTopY+qsize+qrLabelGap, url, 1, epaper.AlignCenter)
	return nil
}

// Translate folds text to the panel font range, unmapped runes become
// substitutes instead of multibyte garbage.
func (dsp *Display) Translate(s string) string {
	if dsp.tr == nil || s == "" {
		return s
	}
	_, tb, err := dsp.tr.Translate([]byte(s), true)
	if err != nil {
		dsp.Log.Errorf("display: translate s=%q err=%v", s, err)
		return s
	}
	// translator reuses single internal buffer, make a copy
	return string(tb)
}
