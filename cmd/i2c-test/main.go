// Bench tool: scan the I2C bus, optionally read the AHT20 sensor.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/envnode/hardware/aht20"
	"github.com/temoto/envnode/hardware/i2c"
	"github.com/temoto/envnode/log2"
)

var log = log2.NewStderr(log2.LDebug)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	busNo := cmdline.Uint("bus", 1, "i2c bus number, /dev/i2c-N")
	probe := cmdline.Bool("aht20", false, "init AHT20 and read until interrupted")
	intervalMs := cmdline.Uint("interval", 2000, "AHT20 read interval, ms")
	cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	bus := i2c.NewI2CBus(byte(*busNo))
	if err := bus.Init(); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	defer bus.Close()

	scan(bus)
	if *probe {
		readLoop(bus, time.Duration(*intervalMs)*time.Millisecond)
	}
}

// scan probes every valid 7-bit address with a one byte read, NACK
// means nobody home.
func scan(bus i2c.I2CBus) {
	found := 0
	buf := [1]byte{}
	for addr := byte(0x03); addr <= 0x77; addr++ {
		if err := bus.Tx(addr, nil, buf[:]); err != nil {
			continue
		}
		tag := ""
		if addr == aht20.Addr {
			tag = " (aht20?)"
		}
		log.Infof("device addr=%02x%s", addr, tag)
		found++
	}
	log.Infof("scan done, %d devices", found)
}

func readLoop(bus i2c.I2CBus, interval time.Duration) {
	sensor := aht20.NewSensor(bus, log)
	if err := sensor.Init(); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	for {
		m, err := sensor.Measure()
		if err != nil {
			log.Errorf("measure: %v", err)
		} else {
			log.Infof("%s", m.String())
		}
		time.Sleep(interval)
	}
}
