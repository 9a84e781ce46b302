package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/temoto/envnode/hardware/epaper"
	"github.com/temoto/envnode/helpers/cli"
	"github.com/temoto/envnode/log2"
)

const usage = `syntax: commands separated by whitespace
(panel)
- init           driver bring-up
- clear          white framebuffer
- fill           black framebuffer
- dot=X,Y        black pixel
- line=X0,Y0,X1,Y1
- rect=X,Y,W,H   outline, rectf= filled
- text=X,Y,SIZE,STRING   STRING without spaces
- qr=STRING      QR code at origin
- update         refresh panel, honors full_interval
- update=full    force full refresh
- show           dump framebuffer to log
- power=on|off   panel power rail
- sN             pause N milliseconds

(meta)
- log=yes|no     debug logging
`

var log = log2.NewStderr(log2.LDebug)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	dry := cmdline.Bool("dry", false, "mock transport, no hardware")
	modelName := cmdline.String("model", "213", "panel model 154|213|290|420")
	spiPort := cmdline.String("spi", "", "SPI port, empty=first")
	pinChip := cmdline.String("gpio-chip", "/dev/gpiochip0", "")
	pinDC := cmdline.String("pin-dc", "25", "")
	pinReset := cmdline.String("pin-reset", "17", "")
	pinBusy := cmdline.String("pin-busy", "24", "")
	pinPower := cmdline.String("pin-power", "", "optional switchable rail")
	rotation := cmdline.Uint("rotation", 0, "0..3 quarter turns")
	cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	model, err := epaper.ParseModel(*modelName)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	config, err := epaper.DefaultConfig(model)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	config.Rotation = uint8(*rotation)

	var tp epaper.Transport
	if *dry {
		tp = epaper.NewMockTransport()
	} else {
		tp, err = epaper.NewTransport(epaper.TransportConfig{
			SpiBus:   *spiPort,
			PinChip:  *pinChip,
			PinDC:    *pinDC,
			PinReset: *pinReset,
			PinBusy:  *pinBusy,
			PinPower: *pinPower,
		}, log)
		if err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
	}
	defer tp.Close()
	drv := epaper.NewDriver(config, tp, log)

	cli.MainLoop("envnode-epaper-cli", newExecutor(drv), newCompleter())
}

func newExecutor(drv *epaper.Driver) func(string) {
	return func(line string) {
		for _, word := range strings.Split(line, " ") {
			word = strings.TrimSpace(word)
			if word == "" {
				continue
			}
			if err := execWord(drv, word); err != nil {
				log.Errorf("word=%s err=%v", word, err)
				return
			}
		}
	}
}

func execWord(drv *epaper.Driver, word string) error {
	switch {
	case word == "help":
		log.Infof(usage)
	case word == "init":
		return drv.Init()
	case word == "clear":
		return drv.Clear()
	case word == "fill":
		return drv.Fill(epaper.ColorBlack)
	case word == "update":
		return drv.Update(false)
	case word == "update=full":
		return drv.Update(true)
	case word == "show":
		fb := drv.FB()
		if fb == nil {
			return errors.Errorf("not initialized")
		}
		log.Infof("framebuffer:\n%s", fb.String())
	case word == "power=on":
		return drv.PowerOn()
	case word == "power=off":
		return drv.PowerOff()
	case word == "log=yes":
		log.SetLevel(log2.LDebug)
	case word == "log=no":
		log.SetLevel(log2.LInfo)
	case strings.HasPrefix(word, "dot="):
		a, err := parseInts(word[4:], 2)
		if err != nil {
			return err
		}
		return drv.SetPixel(a[0], a[1], epaper.ColorBlack)
	case strings.HasPrefix(word, "line="):
		a, err := parseInts(word[5:], 4)
		if err != nil {
			return err
		}
		return drv.Line(a[0], a[1], a[2], a[3], epaper.ColorBlack)
	case strings.HasPrefix(word, "rect="):
		a, err := parseInts(word[5:], 4)
		if err != nil {
			return err
		}
		return drv.Rect(a[0], a[1], a[2], a[3], epaper.ColorBlack, false)
	case strings.HasPrefix(word, "rectf="):
		a, err := parseInts(word[6:], 4)
		if err != nil {
			return err
		}
		return drv.Rect(a[0], a[1], a[2], a[3], epaper.ColorBlack, true)
	case strings.HasPrefix(word, "text="):
		parts := strings.SplitN(word[5:], ",", 4)
		if len(parts) != 4 {
			return errors.Errorf("syntax: text=X,Y,SIZE,STRING")
		}
		a, err := parseInts(strings.Join(parts[:3], ","), 3)
		if err != nil {
			return err
		}
		return drv.Text(a[0], a[1], parts[3], a[2], epaper.AlignLeft)
	case strings.HasPrefix(word, "qr="):
		qr, err := qrcode.New(word[3:], qrcode.Medium)
		if err != nil {
			return errors.Annotate(err, "qr")
		}
		qr.DisableBorder = true
		return drv.Bitmap(0, 0, qr.Bitmap())
	case word[0] == 's':
		i, err := strconv.ParseUint(word[1:], 10, 32)
		if err != nil {
			return errors.Annotatef(err, "word=%s", word)
		}
		time.Sleep(time.Duration(i) * time.Millisecond)
	default:
		return errors.Errorf("unknown command, try help")
	}
	return nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, errors.Errorf("expected %d comma separated numbers in %s", n, s)
	}
	out := make([]int, n)
	for i, p := range parts {
		x, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Annotatef(err, "number=%s", p)
		}
		out[i] = x
	}
	return out, nil
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		prompt.Suggest{Text: "init", Description: "driver bring-up"},
		prompt.Suggest{Text: "clear", Description: "white framebuffer"},
		prompt.Suggest{Text: "fill", Description: "black framebuffer"},
		prompt.Suggest{Text: "dot=", Description: "dot=X,Y black pixel"},
		prompt.Suggest{Text: "line=", Description: "line=X0,Y0,X1,Y1"},
		prompt.Suggest{Text: "rect=", Description: "rect=X,Y,W,H outline"},
		prompt.Suggest{Text: "rectf=", Description: "rectf=X,Y,W,H filled"},
		prompt.Suggest{Text: "text=", Description: "text=X,Y,SIZE,STRING"},
		prompt.Suggest{Text: "qr=", Description: "qr=STRING at origin"},
		prompt.Suggest{Text: "update", Description: "refresh panel"},
		prompt.Suggest{Text: "update=full", Description: "force full refresh"},
		prompt.Suggest{Text: "show", Description: "dump framebuffer to log"},
		prompt.Suggest{Text: "power=on", Description: "panel power rail on"},
		prompt.Suggest{Text: "power=off", Description: "deep sleep"},
		prompt.Suggest{Text: "sN", Description: "pause for N ms"},
	}
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}
