package epaper

import (
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/envnode/log2"
	gpio "github.com/temoto/gpio-cdev-go"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// Transport is the wire seam between the controller sequences and real
// hardware. Command selects DC=command for the first byte and DC=data for
// the rest. BusyWait blocks until the panel reports idle.
type Transport interface {
	Command(cmd byte, data ...byte) error
	Data(b []byte) error
	Reset() error
	BusyWait(timeout time.Duration) error
	Power(on bool) error
	Close() error
}

type TransportConfig struct {
	SpiBus   string
	PinChip  string // /dev/gpiochip0
	PinDC    string // line numbers
	PinReset string
	PinBusy  string
	PinPower string // empty = no switchable rail
}

const transportConsumer = "envnode-epaper"

// spidev transfers are limited by the kernel bufsiz, split big writes.
const spiChunk = 4096

type pinTransport struct {
	log      *log2.Log
	spiPort  spi.PortCloser
	spiConn  spi.Conn
	pinChip  gpio.Chiper
	outLines gpio.Lineser
	busyLine gpio.Lineser
	setDC    gpio.LineSetFunc
	setReset gpio.LineSetFunc
	setPower gpio.LineSetFunc // nil without power rail
}

func NewTransport(cfg TransportConfig, log *log2.Log) (Transport, error) {
	nDC, err := parseLine(cfg.PinDC)
	if err != nil {
		return nil, errors.Annotate(err, "pin dc")
	}
	nReset, err := parseLine(cfg.PinReset)
	if err != nil {
		return nil, errors.Annotate(err, "pin reset")
	}
	nBusy, err := parseLine(cfg.PinBusy)
	if err != nil {
		return nil, errors.Annotate(err, "pin busy")
	}

	if _, err = host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	spiPort, err := spireg.Open(cfg.SpiBus)
	if err != nil {
		return nil, errors.Annotate(err, "SPI Open")
	}
	// panels are slow parts, 4MHz is the safe ceiling
	spiConn, err := spiPort.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		spiPort.Close()
		return nil, errors.Annotate(err, "SPI Connect")
	}

	t := &pinTransport{
		log:     log,
		spiPort: spiPort,
		spiConn: spiConn,
	}
	t.pinChip, err = gpio.Open(cfg.PinChip, transportConsumer)
	if err != nil {
		spiPort.Close()
		return nil, errors.Annotatef(err, "gpio open chip=%s", cfg.PinChip)
	}
	outs := []uint32{nDC, nReset}
	if cfg.PinPower != "" {
		nPower, err := parseLine(cfg.PinPower)
		if err != nil {
			t.close()
			return nil, errors.Annotate(err, "pin power")
		}
		outs = append(outs, nPower)
	}
	t.outLines, err = t.pinChip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, transportConsumer, outs...)
	if err != nil {
		t.close()
		return nil, errors.Annotate(err, "gpio output lines")
	}
	t.setDC = t.outLines.SetFunc(nDC)
	t.setReset = t.outLines.SetFunc(nReset)
	if cfg.PinPower != "" {
		t.setPower = t.outLines.SetFunc(outs[2])
	}
	t.busyLine, err = t.pinChip.OpenLines(gpio.GPIOHANDLE_REQUEST_INPUT, transportConsumer, nBusy)
	if err != nil {
		t.close()
		return nil, errors.Annotate(err, "gpio busy line")
	}

	// reset line idles high, rail starts down
	t.setReset(1)
	if t.setPower != nil {
		t.setPower(0)
	}
	if err = t.outLines.Flush(); err != nil {
		t.close()
		return nil, errors.Annotate(err, "gpio flush")
	}
	return t, nil
}

func parseLine(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.NotValidf("gpio line=%s must be number", s)
	}
	return uint32(n), nil
}

func (t *pinTransport) dc(level byte) error {
	t.setDC(level)
	return errors.Trace(t.outLines.Flush())
}

func (t *pinTransport) Command(cmd byte, data ...byte) error {
	if err := t.dc(0); err != nil {
		return errors.Annotatef(err, "cmd=%02x", cmd)
	}
	if err := t.spiConn.Tx([]byte{cmd}, nil); err != nil {
		return errors.Annotatef(err, "cmd=%02x", cmd)
	}
	if len(data) == 0 {
		return nil
	}
	return errors.Annotatef(t.Data(data), "cmd=%02x", cmd)
}

func (t *pinTransport) Data(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := t.dc(1); err != nil {
		return errors.Trace(err)
	}
	for len(b) > 0 {
		n := len(b)
		if n > spiChunk {
			n = spiChunk
		}
		if err := t.spiConn.Tx(b[:n], nil); err != nil {
			return errors.Trace(err)
		}
		b = b[n:]
	}
	return nil
}

func (t *pinTransport) Reset() error {
	t.setReset(0)
	if err := t.outLines.Flush(); err != nil {
		return errors.Trace(err)
	}
	time.Sleep(10 * time.Millisecond)
	t.setReset(1)
	if err := t.outLines.Flush(); err != nil {
		return errors.Trace(err)
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

func (t *pinTransport) BusyWait(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		data, err := t.busyLine.Read()
		if err != nil {
			return errors.Trace(err)
		}
		if data.Values[0] == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Timeoutf("epaper busy after %s", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Power switches the rail and waits for it to settle. No-op without a
// configured power pin.
func (t *pinTransport) Power(on bool) error {
	if t.setPower == nil {
		return nil
	}
	if on {
		t.setPower(1)
		if err := t.outLines.Flush(); err != nil {
			return errors.Trace(err)
		}
		time.Sleep(100 * time.Millisecond)
		return nil
	}
	time.Sleep(100 * time.Millisecond)
	t.setPower(0)
	return errors.Trace(t.outLines.Flush())
}

func (t *pinTransport) Close() error {
	t.close()
	return nil
}

func (t *pinTransport) close() {
	if t.busyLine != nil {
		t.busyLine.Close()
	}
	if t.outLines != nil {
		t.outLines.Close()
	}
	if t.pinChip != nil {
		t.pinChip.Close()
	}
	if t.spiPort != nil {
		t.spiPort.Close()
	}
}
