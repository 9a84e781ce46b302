package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	cmd_gateway "github.com/temoto/envnode/cmd/envnode/gateway"
	"github.com/temoto/envnode/cmd/envnode/node"
	"github.com/temoto/envnode/cmd/envnode/subcmd"
	"github.com/temoto/envnode/head/tele"
	"github.com/temoto/envnode/log2"
	"github.com/temoto/envnode/state"
	state_new "github.com/temoto/envnode/state/new"
)

var log = log2.NewStderr(log2.LDebug)

// Set by link flags: go build -ldflags "-X main.BuildVersion=$(git describe --always --dirty)"
var BuildVersion string = "unknown"

var modules = []subcmd.Mod{
	node.Mod,
	cmd_gateway.Mod,
}

func main() {
	flagConfig := flag.String("config", "envnode.hcl", "")
	flagVersion := flag.Bool("version", false, "print build version and exit")
	flag.Parse()
	if *flagVersion {
		fmt.Printf("envnode %s\n", BuildVersion)
		return
	}

	log.SetFlags(log2.LInteractiveFlags)
	if subcmd.SdNotify("start") {
		// under systemd assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	}

	mod, err := subcmd.Parse(flag.Arg(0), modules)
	if err != nil {
		log.Fatalf("%v\nusage: envnode [flags] command\ncommands: node, gateway", err)
	}

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	ctx, g := state_new.NewContext(log, new(tele.Tele))
	g.BuildVersion = BuildVersion
	g.Log.Infof("envnode version=%s command=%s", BuildVersion, mod.Name)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		g.Log.Infof("term signal")
		g.Stop()
	}()

	if err := mod.Main(ctx, config); err != nil {
		g.Error(err)
		log.Fatal(errors.ErrorStack(err))
	}
}
