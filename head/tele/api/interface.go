package tele_api

import (
	"context"
	"time"

	tele_config "github.com/temoto/envnode/head/tele/config"
	"github.com/temoto/envnode/log2"
)

//go:generate protoc --go_out=./ tele.proto

// Teler interface is the telemetry client, sensor node side.
// Not for external public usage.
type Teler interface {
	Init(context.Context, *log2.Log, tele_config.Config) error
	Close()
	State(State)
	Error(error)
	StatModify(func(*Stat))
	Report(ctx context.Context) error
	Reading(*Telemetry_Reading)
	CommandChan() <-chan Command
	CommandReplyErr(*Command, error)
	WaitEmpty(timeout time.Duration) bool
}

type stub struct{}

func (stub) Init(context.Context, *log2.Log, tele_config.Config) error {
	return nil
}
func (stub) Close()                           {}
func (stub) State(State)                      {}
func (stub) Error(error)                      {}
func (stub) StatModify(func(*Stat))           {}
func (stub) Report(ctx context.Context) error { return nil }
func (stub) Reading(*Telemetry_Reading)       {}
func (stub) CommandChan() <-chan Command      { return nil }
func (stub) CommandReplyErr(*Command, error)  {}
func (stub) WaitEmpty(time.Duration) bool     { return true }

func NewStub() Teler { return stub{} }
