// Battery sensor mode of operation: wake, measure, report, sleep.
package node

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/envnode/cmd/envnode/subcmd"
	"github.com/temoto/envnode/hardware/espnow"
	"github.com/temoto/envnode/hardware/input"
	"github.com/temoto/envnode/head/display"
	"github.com/temoto/envnode/head/monitor"
	tele_api "github.com/temoto/envnode/head/tele/api"
	"github.com/temoto/envnode/helpers"
	"github.com/temoto/envnode/state"
)

var Mod = subcmd.Mod{Name: "node", Main: Main}

const (
	failureDelayMin   = 60 * time.Second
	failureDelayMax   = 10 * time.Minute
	teleFlushTimeout  = 30 * time.Second
	radioDrainTimeout = 5 * time.Second
)

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.Log.Infof("envnode version=%s node=%d", g.BuildVersion, g.Config.Node.Id)

	g.Tele.State(tele_api.State_Boot)
	g.Tele.StatModify(func(s *tele_api.Stat) { s.BootCount++ })

	var dsp *display.Display
	if g.Config.Hardware.Epaper.Enable {
		drv, err := g.Epaper()
		if err != nil {
			return errors.Annotate(err, "epaper init")
		}
		if err = drv.Init(); err != nil {
			return errors.Annotate(err, "epaper bring-up")
		}
		dsp = display.New(drv, g.Log)
	}

	var radio *espnow.Driver
	var uplink *espnow.MAC
	if g.Config.Hardware.Espnow.Enable {
		var err error
		if radio, err = g.Espnow(); err != nil {
			return errors.Annotate(err, "espnow init")
		}
		if name := g.Config.Hardware.Espnow.Gateway; name == "" {
			g.Log.Infof("espnow: no gateway peer, readings stay local")
		} else {
			mac, err := g.EspnowPeer(name)
			if err != nil {
				return errors.Annotate(err, "espnow uplink")
			}
			uplink = &mac
		}
	}

	mon := &monitor.System{}
	if radio != nil {
		mon.Rssi = func() int32 { return int32(radio.LastRSSI()) }
	}
	if err := mon.Start(ctx); err != nil {
		return errors.Annotate(err, "monitor start")
	}

	if uplink != nil {
		var sent espnow.Stat
		mon.Subscribe("espnow-uplink", func(r *tele_api.Telemetry_Reading) {
			tm := &tele_api.Telemetry{
				NodeId:       int32(g.Config.Node.Id),
				TimeUnixNano: time.Now().UnixNano(),
				Reading:      r,
				BuildVersion: g.BuildVersion,
			}
			payload, err := proto.Marshal(tm)
			if err != nil {
				g.Error(errors.Annotate(err, "uplink marshal"))
				return
			}
			if err = radio.Send(*uplink, payload); err != nil {
				g.Error(errors.Annotate(err, "uplink"))
			}
			// Radio counters ride along as deltas since the last reading.
			st := radio.Stat()
			g.Tele.StatModify(func(s *tele_api.Stat) {
				s.TxFrames += st.TxFrames - sent.TxFrames
				s.TxRetries += st.TxRetries - sent.TxRetries
				s.RxFrames += st.RxFrames - sent.RxFrames
				s.RxDrop += (st.RxDropShort + st.RxDropCRC) - (sent.RxDropShort + sent.RxDropCRC)
			})
			sent = st
		})
	}

	sleepSec := int32(g.Config.Node.SleepSec)
	var fullRefresh int32
	wakeCh := make(chan struct{}, 1)
	g.Hardware.Input.SubscribeFunc("service-button", func(e input.Event) {
		if e.Up {
			return
		}
		g.Log.Infof("service button key=%d", e.Key)
		// Operator poke: redraw from scratch and measure right away.
		atomic.StoreInt32(&fullRefresh, 1)
		select {
		case wakeCh <- struct{}{}:
		default:
		}
	}, g.Alive.StopChan())
	go commandLoop(ctx, mon, &sleepSec)
	go subcmd.SdWatchdogLoop(g)
	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Debugf("node init complete")

	interval := time.Duration(g.Config.Monitor.IntervalSec) * time.Second
	budget := time.Duration(g.Config.Node.MeasureCount)*interval + 30*time.Second
	retry := &helpers.Backoff{Min: failureDelayMin, Max: failureDelayMax, K: 2}

	for g.Alive.IsRunning() {
		if err := runCycle(g, mon, dsp, budget, &fullRefresh); err != nil {
			g.Error(err)
			g.Tele.State(tele_api.State_Problem)
			if dsp != nil {
				if err = dsp.Wake(); err == nil {
					if err = dsp.ShowMessage("sensor error"); err == nil {
						err = dsp.Refresh(false)
					}
				}
				if err != nil {
					g.Log.Errorf("display: %v", err)
				}
			}
			displaySleep(g, dsp)
			retry.Failure()
			if !sleep(g, wakeCh, retry.DelayBefore()) {
				break
			}
			continue
		}
		retry.Reset()
		if g.Config.Node.SleepMode == "oneshot" {
			break
		}
		g.Tele.State(tele_api.State_Sleep)
		displaySleep(g, dsp)
		if !sleep(g, wakeCh, time.Duration(atomic.LoadInt32(&sleepSec))*time.Second) {
			break
		}
	}

	// Orderly power-down: sensors first, then display and radio, tele
	// flush last so shutdown errors still reach the operator.
	g.Tele.State(tele_api.State_Sleep)
	mon.Stop()
	if dsp != nil {
		if err := dsp.Sleep(); err != nil {
			g.Log.Errorf("display sleep: %v", err)
		}
	}
	if radio != nil {
		if err := radio.WaitSendDone(radioDrainTimeout); err != nil {
			g.Log.Errorf("espnow drain: %v", err)
		}
		if err := radio.Deinit(); err != nil {
			g.Log.Errorf("espnow deinit: %v", err)
		}
	}
	if !g.Tele.WaitEmpty(teleFlushTimeout) {
		g.Log.Errorf("tele not flushed, telemetry stays queued")
	}
	g.Tele.Close()
	return nil
}

// runCycle is one wake period: measure, update the panel, flush tele.
func runCycle(g *state.Global, mon *monitor.System, dsp *display.Display, budget time.Duration, fullRefresh *int32) error {
	g.Tele.State(tele_api.State_Nominal)
	mon.Cycle()
	if !mon.WaitForCompletion(budget) {
		return errors.Timeoutf("measure cycle after %v", budget)
	}
	r := mon.Latest()
	if r == nil {
		return errors.Errorf("measure cycle produced no reading")
	}
	if r.LowBattery {
		g.Tele.State(tele_api.State_LowBattery)
	}

	// Display trouble degrades the node, does not kill it.
	if dsp != nil {
		full := atomic.CompareAndSwapInt32(fullRefresh, 1, 0)
		if err := dsp.Wake(); err != nil {
			g.Error(errors.Annotate(err, "display wake"))
		} else if err = dsp.ShowDashboard(r); err != nil {
			g.Error(errors.Annotate(err, "dashboard"))
		} else if err = dsp.Refresh(full); err != nil {
			g.Error(errors.Annotate(err, "dashboard refresh"))
		}
	}

	if !g.Tele.WaitEmpty(teleFlushTimeout) {
		g.Log.Errorf("tele not flushed, telemetry stays queued")
	}
	return nil
}

func commandLoop(ctx context.Context, mon *monitor.System, sleepSec *int32) {
	g := state.GetGlobal(ctx)
	stopCh := g.Alive.StopChan()
	for {
		select {
		case <-stopCh:
			return
		case cmd := <-g.Tele.CommandChan():
			switch {
			case cmd.Measure != nil:
				mon.Cycle()
				g.Tele.CommandReplyErr(&cmd, nil)
				g.Log.Infof("admin requested measure")
			case cmd.SetSleep != nil:
				err := setSleep(sleepSec, cmd.SetSleep.SleepSec)
				g.Tele.CommandReplyErr(&cmd, err)
				g.Log.Infof("admin set sleep_sec=%d err=%v", cmd.SetSleep.SleepSec, err)
			}
		}
	}
}

func setSleep(dst *int32, sec int32) error {
	if sec < 1 || sec > 86400 {
		return errors.NotValidf("sleep_sec=%d valid range 1..86400", sec)
	}
	atomic.StoreInt32(dst, sec)
	return nil
}

// displaySleep drops the panel rail for the host sleep period. E-paper
// keeps the image unpowered.
func displaySleep(g *state.Global, dsp *display.Display) {
	if dsp == nil {
		return
	}
	if err := dsp.Sleep(); err != nil {
		g.Log.Errorf("display sleep: %v", err)
	}
}

// sleep waits the interval out unless the button wakes the node early
// or stop arrives.
func sleep(g *state.Global, wake <-chan struct{}, d time.Duration) bool {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-tmr.C:
		return true
	case <-wake:
		return true
	case <-g.Alive.StopChan():
		return false
	}
}
