package state

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/envnode/hardware/epaper"
	"github.com/temoto/envnode/hardware/espnow"
	"github.com/temoto/envnode/hardware/i2c"
	"github.com/temoto/envnode/hardware/input"
	"github.com/temoto/envnode/log2"
)

func (g *Global) Epaper() (*epaper.Driver, error) {
	var err error

	g.initEpaperOnce.Do(func() {
		defer recoverFatal(g.Log) // fix sync.Once silent panic

		// This may only be already set by NewTestContext()
		if g.Hardware.Epaper.Driver != nil {
			return
		}

		devConfig := &g.Config.Hardware.Epaper
		var model epaper.Model
		if model, err = epaper.ParseModel(devConfig.Model); err != nil {
			err = errors.Annotatef(err, "config: epaper.model=%s", devConfig.Model)
			return
		}
		var cfg epaper.Config
		if cfg, err = epaper.DefaultConfig(model); err != nil {
			return
		}
		cfg.Rotation = uint8(devConfig.Rotation)
		cfg.Partial = devConfig.Partial
		cfg.FullInterval = uint32(devConfig.FullInterval)

		epaperLog := g.Log.Clone(log2.LInfo)
		if devConfig.LogDebug {
			epaperLog.SetLevel(log2.LDebug)
		}

		var tp epaper.Transport
		tp, err = epaper.NewTransport(epaper.TransportConfig{
			SpiBus:   devConfig.Spi,
			PinChip:  devConfig.PinChip,
			PinDC:    devConfig.PinDC,
			PinReset: devConfig.PinReset,
			PinBusy:  devConfig.PinBusy,
			PinPower: devConfig.PinPower,
		}, epaperLog)
		if err != nil {
			err = errors.Annotatef(err, "config: epaper=%+v", devConfig)
			return
		}
		g.Hardware.Epaper.Driver = epaper.NewDriver(cfg, tp, epaperLog)
	})

	return g.Hardware.Epaper.Driver, err
}

// Espnow returns the radio driver, brought up and with configured peers
// added. Tests preset Hardware.Espnow.Radio with a mock before first call.
func (g *Global) Espnow() (*espnow.Driver, error) {
	var err error

	g.initEspnowOnce.Do(func() {
		defer recoverFatal(g.Log) // fix sync.Once silent panic

		// This may only be already set by NewTestContext()
		if g.Hardware.Espnow.Driver != nil {
			return
		}

		devConfig := &g.Config.Hardware.Espnow
		radio := g.Hardware.Espnow.Radio
		if radio == nil {
			if devConfig.Bridge == "" {
				err = errors.NotValidf("config: espnow.bridge=empty")
				return
			}
			radio = espnow.NewBridgeRadio(devConfig.Bridge, g.Log)
			g.Hardware.Espnow.Radio = radio
		}

		espnowLog := g.Log.Clone(log2.LInfo)
		if devConfig.LogDebug {
			espnowLog.SetLevel(log2.LDebug)
		}

		driver := espnow.NewDriver(espnow.Config{
			NodeID:      uint8(devConfig.NodeId),
			Channel:     uint8(devConfig.Channel),
			Encrypt:     devConfig.Encrypt,
			PMK:         []byte(devConfig.PMK),
			SendTimeout: time.Duration(devConfig.SendTimeoutMs) * time.Millisecond,
			MaxRetries:  devConfig.MaxRetries,
		}, radio, espnowLog)
		if err = driver.Init(); err != nil {
			err = errors.Annotate(err, "espnow bring-up")
			return
		}
		for _, pc := range devConfig.Peers {
			var peer espnow.Peer
			if peer.MAC, err = espnow.ParseMAC(pc.MAC); err != nil {
				err = errors.Annotatef(err, "config: espnow.peer=%s mac=%s", pc.Name, pc.MAC)
				return
			}
			peer.Channel = uint8(pc.Channel)
			peer.Encrypt = pc.Encrypt
			peer.LMK = []byte(pc.LMK)
			if err = driver.AddPeer(peer); err != nil {
				err = errors.Annotatef(err, "config: espnow.peer=%s", pc.Name)
				return
			}
		}
		g.Hardware.Espnow.Driver = driver
	})

	return g.Hardware.Espnow.Driver, err
}

// EspnowPeer resolves a configured peer name to its address.
func (g *Global) EspnowPeer(name string) (espnow.MAC, error) {
	for _, pc := range g.Config.Hardware.Espnow.Peers {
		if pc.Name == name {
			return espnow.ParseMAC(pc.MAC)
		}
	}
	return espnow.MAC{}, errors.NotFoundf("config: espnow.peer=%s", name)
}

// SetI2CBus presets the bus, tests hand in a mock before first I2CBus().
func (g *Global) SetI2CBus(bus i2c.I2CBus) { g.Hardware.i2c.Store(bus) }

func (g *Global) I2CBus() (i2c.I2CBus, error) {
	if x := g.Hardware.i2c.Load(); x != nil {
		return x.(i2c.I2CBus), nil
	}

	g.lk.Lock()
	defer g.lk.Unlock()
	if x := g.Hardware.i2c.Load(); x != nil {
		return x.(i2c.I2CBus), nil
	}

	bus := i2c.NewI2CBus(byte(g.Config.Hardware.I2C.Bus))
	if err := bus.Init(); err != nil {
		return nil, errors.Annotatef(err, "config: i2c.bus=%d", g.Config.Hardware.I2C.Bus)
	}
	g.Hardware.i2c.Store(bus)

	return bus, nil
}

func (g *Global) initInput() {
	g.initInputOnce.Do(func() {
		defer recoverFatal(g.Log) // fix sync.Once silent panic
		g.Hardware.Input = input.NewDispatch(g.Log, g.Alive.StopChan())

		// support more input sources here
		sources := make([]input.Source, 0, 4)

		if !g.Config.Hardware.Input.DevInputEvent.Enable {
			g.Log.Infof("input=%s disabled", input.DevInputEventTag)
		} else {
			src, err := input.NewDevInputEventSource(g.Config.Hardware.Input.DevInputEvent.Device)
			err = errors.Annotatef(err, "input=%s", input.DevInputEventTag)
			if err != nil {
				g.Log.Error(errors.ErrorStack(err))
			} else if src != nil {
				sources = append(sources, src)
			}
		}

		go g.Hardware.Input.Run(sources)
	})
}
