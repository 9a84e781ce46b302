package state

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/envnode/hardware/epaper"
	"github.com/temoto/envnode/hardware/espnow"
	"github.com/temoto/envnode/hardware/input"
	tele_api "github.com/temoto/envnode/head/tele/api"
	"github.com/temoto/envnode/helpers"
	"github.com/temoto/envnode/log2"
)

type Global struct {
	Alive    *alive.Alive
	Config   *Config
	Hardware struct {
		Epaper struct {
			Driver *epaper.Driver
		}
		Espnow struct {
			Driver *espnow.Driver
			Radio  espnow.Radio
		}
		Input *input.Dispatch
		i2c   atomic.Value // i2c.I2CBus
	}
	Log  *log2.Log
	Tele tele_api.Teler

	BuildVersion string

	lk sync.Mutex

	initEpaperOnce sync.Once
	initEspnowOnce sync.Once
	initInputOnce  sync.Once
}

const ContextKey = "run/state-global"

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg

	if g.Config.Persist.Root == "" {
		g.Config.Persist.Root = "./tmp-envnode-db"
		g.Log.Errorf("config: persist.root=empty changed=%s", g.Config.Persist.Root)
	}
	g.Log.Debugf("config: persist.root=%s", g.Config.Persist.Root)

	// Since tele is remote error reporting mechanism, it must be inited before anything else
	if g.Config.Tele.PersistPath == "" {
		g.Config.Tele.PersistPath = filepath.Join(g.Config.Persist.Root, "tele")
	}
	g.Config.Tele.NodeId = g.Config.Node.Id
	g.Config.Tele.BuildVersion = g.BuildVersion
	// Tele.Init gets g.Log clone before SetErrorFunc, so Tele.Log.Error doesn't recurse on itself
	if err := g.Tele.Init(ctx, g.Log.Clone(log2.LInfo), g.Config.Tele); err != nil {
		g.Tele = tele_api.Noop{}
		return errors.Annotate(err, "tele init")
	}
	g.Log.SetErrorFunc(g.Tele.Error)

	errs := make([]error, 0)

	if g.Config.Node.SleepMode == "" {
		g.Config.Node.SleepMode = "loop"
	}
	switch g.Config.Node.SleepMode {
	case "loop", "oneshot": // valid
	default:
		errs = append(errs, errors.NotValidf("config: node.sleep_mode=%s valid: loop, oneshot", g.Config.Node.SleepMode))
	}
	if g.Config.Node.SleepSec <= 0 {
		g.Config.Node.SleepSec = 10
	}
	if g.Config.Node.MeasureCount <= 0 {
		g.Config.Node.MeasureCount = 1
	}

	if g.Config.Monitor.IntervalSec <= 0 {
		g.Config.Monitor.IntervalSec = 10
	}
	if g.Config.Monitor.Battery.Divider == 0 {
		g.Config.Monitor.Battery.Divider = 2.0
	}
	if g.Config.Monitor.Battery.LowVolt == 0 {
		g.Config.Monitor.Battery.LowVolt = 3.2
	}
	if g.Config.Monitor.Soil.DryVolt == 0 {
		g.Config.Monitor.Soil.DryVolt = 3.0
	}
	if g.Config.Monitor.Soil.WetVolt == 0 {
		g.Config.Monitor.Soil.WetVolt = 1.0
	}
	if g.Config.Monitor.Soil.PowerSettleMs == 0 {
		g.Config.Monitor.Soil.PowerSettleMs = 50
	}
	if g.Config.Monitor.Soil.DryVolt <= g.Config.Monitor.Soil.WetVolt {
		errs = append(errs, errors.NotValidf("config: monitor.soil dry_volt=%g must be above wet_volt=%g",
			g.Config.Monitor.Soil.DryVolt, g.Config.Monitor.Soil.WetVolt))
	}

	if g.Config.Hardware.Epaper.FullInterval <= 0 {
		g.Config.Hardware.Epaper.FullInterval = 10
	}
	if g.Config.Hardware.Espnow.NodeId == 0 {
		g.Config.Hardware.Espnow.NodeId = g.Config.Node.Id
	}
	if g.Config.Hardware.Espnow.SendTimeoutMs <= 0 {
		g.Config.Hardware.Espnow.SendTimeoutMs = 100
	}
	// max_retries=-1 disables retransmits, 0 means default
	if g.Config.Hardware.Espnow.MaxRetries == 0 {
		g.Config.Hardware.Espnow.MaxRetries = 3
	}
	if g.Config.Gateway.ReassemblyTimeoutSec <= 0 {
		g.Config.Gateway.ReassemblyTimeoutSec = 60
	}

	g.initInput()

	return helpers.FoldErrors(errs)
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Tele.Error(err)
		// Log directly, g.Log error mirror already points to g.Tele.Error.
		g.Log.Log(log2.LError, "error: "+errors.ErrorStack(err))
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}

func recoverFatal(f helpers.Fataler) {
	if x := recover(); x != nil {
		f.Fatal(x)
	}
}
