// Mains-powered bridge mode of operation: radio in, MQTT out.
package gateway

import (
	"context"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/envnode/cmd/envnode/subcmd"
	head_gateway "github.com/temoto/envnode/head/gateway"
	tele_api "github.com/temoto/envnode/head/tele/api"
	"github.com/temoto/envnode/state"
)

var Mod = subcmd.Mod{Name: "gateway", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.Log.Infof("envnode gateway version=%s", g.BuildVersion)
	g.Tele.State(tele_api.State_Boot)

	sys := &head_gateway.System{}
	if err := sys.Start(ctx); err != nil {
		return errors.Annotate(err, "gateway start")
	}

	go subcmd.SdWatchdogLoop(g)
	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Tele.State(tele_api.State_Nominal)
	g.Log.Debugf("gateway init complete")

	g.Alive.Wait()

	sys.Stop()
	g.Tele.Close()
	return nil
}
