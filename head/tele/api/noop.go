package tele_api

import (
	"context"
	"time"

	tele_config "github.com/temoto/envnode/head/tele/config"
	"github.com/temoto/envnode/log2"
)

type Noop struct{}

var _ Teler = Noop{} // compile-time interface test

func (Noop) Init(context.Context, *log2.Log, tele_config.Config) error { return nil }

func (Noop) Close() {}

func (Noop) Error(error) {}

func (Noop) State(State) {}

func (Noop) StatModify(func(*Stat)) {}

func (Noop) Report(ctx context.Context) error { return nil }

func (Noop) Reading(*Telemetry_Reading) {}

func (Noop) CommandChan() <-chan Command { return nil }

func (Noop) CommandReplyErr(*Command, error) {}

func (Noop) WaitEmpty(time.Duration) bool { return true }
