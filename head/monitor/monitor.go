// Package monitor polls the node sensors and fans readings out to
// telemetry and display.
package monitor

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/envnode/hardware/aht20"
	tele_api "github.com/temoto/envnode/head/tele/api"
	"github.com/temoto/envnode/log2"
	"github.com/temoto/envnode/state"
	gpio "github.com/temoto/gpio-cdev-go"
)

type ReadingFunc func(*tele_api.Telemetry_Reading)

type System struct { //nolint:maligned
	Log *log2.Log

	// ADC may be preset before Start; tests and -dry runs use MockADC.
	ADC ADC
	// Rssi is an optional link quality source attached to each reading.
	Rssi func() int32

	g       *state.Global
	alive   *alive.Alive
	env     *aht20.Sensor
	battery *batterySensor
	soil    *soilSensor

	mu   sync.Mutex
	subs map[string]ReadingFunc

	last    atomic.Value // *tele_api.Telemetry_Reading
	pending int32        // measurements left in current cycle
}

func (sys *System) Start(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	sys.g = g
	sys.Log = g.Log
	sys.alive = alive.NewAlive()
	sys.subs = make(map[string]ReadingFunc, 4)
	mcfg := &g.Config.Monitor

	if mcfg.Battery.Enable || mcfg.Soil.Enable {
		if err := sys.initADC(mcfg.Adc.Device); err != nil {
			return errors.Annotate(err, "monitor")
		}
	}

	// Sensor bring-up failure downgrades to a partial node, not a dead one.
	if mcfg.Env.Enable {
		if err := sys.initEnv(g); err != nil {
			g.Error(errors.Annotate(err, "monitor env disabled"))
		}
	}
	if mcfg.Battery.Enable {
		sys.battery = &batterySensor{
			adc:     sys.ADC,
			channel: mcfg.Battery.AdcChannel,
			divider: mcfg.Battery.Divider,
			lowVolt: mcfg.Battery.LowVolt,
		}
	}
	if mcfg.Soil.Enable {
		if err := sys.initSoil(g); err != nil {
			g.Error(errors.Annotate(err, "monitor soil disabled"))
		}
	}
	if sys.env == nil && sys.battery == nil && sys.soil == nil {
		sys.Log.Infof("monitor: no sensors enabled")
	}
	return nil
}

func (sys *System) initADC(device string) error {
	if sys.ADC != nil {
		return nil
	}
	if device == "" {
		return errors.NotValidf("config: monitor.adc.device=empty")
	}
	adc, err := NewIioADC(device)
	if err != nil {
		return errors.Trace(err)
	}
	sys.ADC = adc
	return nil
}

func (sys *System) initEnv(g *state.Global) error {
	bus, err := g.I2CBus()
	if err != nil {
		return errors.Trace(err)
	}
	env := aht20.NewSensor(bus, sys.Log)
	if err = env.Init(); err != nil {
		return errors.Trace(err)
	}
	sys.env = env
	return nil
}

func (sys *System) initSoil(g *state.Global) error {
	scfg := &g.Config.Monitor.Soil
	s := &soilSensor{
		log:     sys.Log,
		adc:     sys.ADC,
		channel: scfg.AdcChannel,
		dryVolt: scfg.DryVolt,
		wetVolt: scfg.WetVolt,
		settle:  time.Duration(scfg.PowerSettleMs) * time.Millisecond,
	}
	if scfg.PowerPin != "" {
		line64, err := strconv.ParseUint(scfg.PowerPin, 10, 16)
		if err != nil {
			return errors.NotValidf("config: monitor.soil.power_pin=%s must be number", scfg.PowerPin)
		}
		if scfg.PowerPinChip == "" {
			return errors.NotValidf("config: monitor.soil.power_pin_chip=empty")
		}
		if s.chip, err = gpio.Open(scfg.PowerPinChip, soilConsumer); err != nil {
			return errors.Annotatef(err, "gpio open chip=%s", scfg.PowerPinChip)
		}
		line := uint32(line64)
		if s.lines, err = s.chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, soilConsumer, line); err != nil {
			s.chip.Close()
			return errors.Annotate(err, "gpio power line")
		}
		s.setPower = s.lines.SetFunc(line)
		s.setPower(0)
		if err = s.lines.Flush(); err != nil {
			s.Close()
			return errors.Annotate(err, "gpio flush")
		}
	}
	sys.soil = s
	return nil
}

// Cycle schedules one run of node.measure_count measurements spaced
// monitor.interval_sec apart, first sample right away. Ignored while a
// previous cycle still runs.
func (sys *System) Cycle() {
	count := int32(sys.g.Config.Node.MeasureCount)
	if !atomic.CompareAndSwapInt32(&sys.pending, 0, count) {
		sys.Log.Errorf("monitor: cycle already running")
		return
	}
	if !sys.alive.Add(1) {
		atomic.StoreInt32(&sys.pending, 0)
		return
	}
	go sys.worker()
}

func (sys *System) worker() {
	defer sys.alive.Done()
	interval := time.Duration(sys.g.Config.Monitor.IntervalSec) * time.Second
	for {
		sys.publish(sys.Measure())
		if atomic.AddInt32(&sys.pending, -1) <= 0 {
			return
		}
		select {
		case <-time.After(interval):
		case <-sys.alive.StopChan():
			atomic.StoreInt32(&sys.pending, 0)
			return
		}
	}
}

// Measure reads all enabled sensors once. Partial failure yields a
// partial reading, errors go to telemetry.
func (sys *System) Measure() *tele_api.Telemetry_Reading {
	r := &tele_api.Telemetry_Reading{}
	if sys.env != nil {
		if m, err := sys.env.Measure(); err != nil {
			sys.g.Error(errors.Annotate(err, "monitor env"))
		} else {
			r.TemperatureC = float64(m.Temperature)
			r.HumidityPct = float64(m.Humidity)
		}
	}
	if sys.battery != nil {
		if volt, pct, low, err := sys.battery.read(); err != nil {
			sys.g.Error(errors.Annotate(err, "monitor battery"))
		} else {
			r.BatteryVolt = volt
			r.BatteryPct = pct
			r.LowBattery = low
		}
	}
	if sys.soil != nil {
		if pct, err := sys.soil.read(); err != nil {
			sys.g.Error(errors.Annotate(err, "monitor soil"))
		} else {
			r.SoilPct = pct
		}
	}
	if sys.Rssi != nil {
		r.Rssi = sys.Rssi()
	}
	sys.g.Tele.StatModify(func(s *tele_api.Stat) { s.MeasureCount++ })
	return r
}

func (sys *System) publish(r *tele_api.Telemetry_Reading) {
	sys.last.Store(r)
	sys.g.Tele.Reading(r)
	sys.mu.Lock()
	for _, fun := range sys.subs {
		fun(r)
	}
	sys.mu.Unlock()
}

// Subscribe registers fun to run on every reading, in cycle order.
func (sys *System) Subscribe(name string, fun ReadingFunc) {
	sys.mu.Lock()
	if _, ok := sys.subs[name]; ok {
		panic("code error monitor duplicate subscribe name=" + name)
	}
	sys.subs[name] = fun
	sys.mu.Unlock()
}

// Latest returns the most recent reading, nil before the first one.
func (sys *System) Latest() *tele_api.Telemetry_Reading {
	if x := sys.last.Load(); x != nil {
		return x.(*tele_api.Telemetry_Reading)
	}
	return nil
}

// WaitForCompletion blocks until the scheduled cycle finishes.
func (sys *System) WaitForCompletion(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for atomic.LoadInt32(&sys.pending) > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
	return true
}

func (sys *System) Stop() {
	sys.alive.Stop()
	sys.alive.Wait()
	if sys.soil != nil {
		sys.soil.Close()
	}
}
