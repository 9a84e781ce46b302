package monitor

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/envnode/log2"
	gpio "github.com/temoto/gpio-cdev-go"
)

// Li-ion pack window for the percent estimate.
const (
	batteryEmptyVolt = 3.0
	batteryFullVolt  = 4.2
)

type batterySensor struct {
	adc     ADC
	channel int
	divider float64
	lowVolt float64
}

// read returns pack volts after undoing the external divider, percent
// inside the 3.0..4.2V window and the low flag.
func (b *batterySensor) read() (volt, pct float64, low bool, err error) {
	pin, err := b.adc.ReadVoltage(b.channel)
	if err != nil {
		return 0, 0, false, errors.Annotate(err, "battery")
	}
	volt = pin * b.divider
	pct = (volt - batteryEmptyVolt) / (batteryFullVolt - batteryEmptyVolt) * 100
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	return volt, pct, volt < b.lowVolt, nil
}

const soilConsumer = "envnode-soil"

// soilSensor samples the moisture probe. Resistive probes corrode under
// constant bias so the probe rail is switched on only around the sample.
type soilSensor struct {
	log      *log2.Log
	adc      ADC
	channel  int
	dryVolt  float64
	wetVolt  float64
	settle   time.Duration
	chip     gpio.Chiper
	lines    gpio.Lineser
	setPower gpio.LineSetFunc // nil = probe is always powered
}

func (s *soilSensor) read() (float64, error) {
	if s.setPower != nil {
		s.setPower(1)
		if err := s.lines.Flush(); err != nil {
			return 0, errors.Annotate(err, "soil power on")
		}
		time.Sleep(s.settle)
	}
	v, err := s.adc.ReadVoltage(s.channel)
	if s.setPower != nil {
		s.setPower(0)
		if ferr := s.lines.Flush(); ferr != nil && err == nil {
			err = errors.Annotate(ferr, "soil power off")
		}
	}
	if err != nil {
		return 0, errors.Annotate(err, "soil")
	}
	pct := (s.dryVolt - v) / (s.dryVolt - s.wetVolt) * 100
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	s.log.Debugf("monitor: soil volt=%.3f pct=%.1f", v, pct)
	return pct, nil
}

func (s *soilSensor) Close() {
	if s.lines != nil {
		s.lines.Close()
	}
	if s.chip != nil {
		s.chip.Close()
	}
}
