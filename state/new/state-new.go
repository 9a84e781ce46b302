// Sorry, workaround to import cycles.
package state_new

import (
	"context"
	"testing"

	"github.com/temoto/alive/v2"
	"github.com/temoto/envnode/hardware/epaper"
	"github.com/temoto/envnode/hardware/espnow"
	"github.com/temoto/envnode/hardware/i2c"
	tele_api "github.com/temoto/envnode/head/tele/api"
	"github.com/temoto/envnode/log2"
	"github.com/temoto/envnode/state"
)

func NewContext(log *log2.Log, teler tele_api.Teler) (context.Context, *state.Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &state.Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Tele:  teler,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, state.ContextKey, g)

	return ctx, g
}

func NewTestContext(t testing.TB, confString string) (context.Context, *state.Global) {
	fs := state.NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log, tele_api.NewStub())

	// Hardware accessors must not reach real devices under test.
	g.Hardware.Espnow.Radio = &espnow.MockRadio{}
	g.SetI2CBus(&i2c.MockBus{})
	epaperConfig, err := epaper.DefaultConfig(epaper.Model213)
	if err != nil {
		t.Fatal(err)
	}
	g.Hardware.Epaper.Driver = epaper.NewDriver(epaperConfig, epaper.NewMockTransport(), log)

	g.MustInit(ctx, state.MustReadConfig(log, fs, "test-inline"))

	return ctx, g
}
