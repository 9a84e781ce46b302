// Package aht20 reads the AHT20 temperature and humidity sensor over
// I2C. Bus lifetime belongs to the caller, the sensor may share it with
// other devices.
package aht20

import (
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/envnode/hardware/i2c"
	"github.com/temoto/envnode/helpers/atomic_float"
	"github.com/temoto/envnode/helpers/cacheval"
	"github.com/temoto/envnode/log2"
)

const Addr byte = 0x38

const (
	cmdSoftReset = 0xba
	cmdCalibrate = 0xbe
	cmdMeasure   = 0xac

	statusBusy = 0x80

	delayReset     = 20 * time.Millisecond
	delayCalibrate = 10 * time.Millisecond
	// datasheet says measurement takes up to 80ms
	delayMeasure   = 85 * time.Millisecond
	delayBusyRetry = 20 * time.Millisecond
)

// Sampling faster self-heats the die and skews temperature up, the
// datasheet wants at least 2s between conversions.
const MinInterval = 2 * time.Second

type Measurement struct {
	// Temperature in degrees Celsius.
	Temperature float32
	// Humidity in percent relative.
	Humidity float32
}

func (m Measurement) String() string {
	return fmt.Sprintf("temp=%.1fC rh=%.1f%%", m.Temperature, m.Humidity)
}

type Sensor struct {
	Log *log2.Log

	// CacheValid overrides the conversion rate limit: zero means
	// MinInterval, negative disables caching.
	CacheValid time.Duration

	bus         i2c.I2CBus
	initialized bool
	temp        cacheval.Int32   // centidegrees
	hum         atomic_float.F32 // percent, stored right before temp
}

func NewSensor(bus i2c.I2CBus, log *log2.Log) *Sensor {
	return &Sensor{Log: log, bus: bus}
}

// Init soft resets the sensor and loads calibration.
func (s *Sensor) Init() error {
	if err := s.bus.Tx(Addr, []byte{cmdSoftReset}, nil); err != nil {
		return errors.Annotate(err, "aht20 soft reset")
	}
	time.Sleep(delayReset)
	if err := s.bus.Tx(Addr, []byte{cmdCalibrate, 0x08, 0x00}, nil); err != nil {
		return errors.Annotate(err, "aht20 calibrate")
	}
	time.Sleep(delayCalibrate)
	valid := s.CacheValid
	if valid == 0 {
		valid = MinInterval
	}
	s.temp.Init(valid)
	s.initialized = true
	s.Log.Debugf("aht20: init addr=%02x", Addr)
	return nil
}

// Measure returns the current temperature and humidity, converting at
// most once per MinInterval and serving the cache in between.
func (s *Sensor) Measure() (Measurement, error) {
	if !s.initialized {
		return Measurement{}, errors.Errorf("aht20: not initialized")
	}
	var convErr error
	centi := s.temp.GetOrUpdate(func() {
		m, err := s.convert()
		if err != nil {
			convErr = err
			return
		}
		s.hum.Store(m.Humidity)
		s.temp.Set(int32(m.Temperature * 100))
	})
	if convErr != nil {
		return Measurement{}, errors.Trace(convErr)
	}
	return Measurement{
		Temperature: float32(centi) / 100,
		Humidity:    s.hum.Load(),
	}, nil
}

// convert triggers one conversion and reads it back. Blocks for the
// conversion delay, about 85ms.
func (s *Sensor) convert() (Measurement, error) {
	m := Measurement{}
	if err := s.bus.Tx(Addr, []byte{cmdMeasure, 0x33, 0x00}, nil); err != nil {
		return m, errors.Annotate(err, "aht20 trigger")
	}
	time.Sleep(delayMeasure)

	buf := [6]byte{}
	if err := s.bus.Tx(Addr, nil, buf[:]); err != nil {
		return m, errors.Annotate(err, "aht20 read")
	}
	if buf[0]&statusBusy != 0 {
		s.Log.Debugf("aht20: busy after measurement delay, retry")
		time.Sleep(delayBusyRetry)
		if err := s.bus.Tx(Addr, nil, buf[:]); err != nil {
			return m, errors.Annotate(err, "aht20 read retry")
		}
		if buf[0]&statusBusy != 0 {
			return m, errors.Timeoutf("aht20 busy after measurement delay")
		}
	}

	humRaw := uint32(buf[1])<<12 | uint32(buf[2])<<4 | uint32(buf[3])>>4
	tempRaw := (uint32(buf[3])&0x0f)<<16 | uint32(buf[4])<<8 | uint32(buf[5])
	m.Humidity = float32(humRaw) / (1 << 20) * 100
	m.Temperature = float32(tempRaw)/(1<<20)*200 - 50
	return m, nil
}
