package tele

import (
	"context"
	"sync/atomic"
	"time"

	tele_api "github.com/temoto/envnode/head/tele/api"
)

const logMsgDisabled = "tele disabled"

func (self *Tele) State(s tele_api.State) {
	if !self.enabled {
		self.log.Errorf(logMsgDisabled)
		return
	}

	self.log.Infof("tele.State s=%v", s)
	self.stateCh <- s
}

func (self *Tele) Error(e error) {
	if !self.enabled {
		self.log.Errorf(logMsgDisabled)
		return
	}

	self.log.Errorf("tele.Error e=%v", e)
	tmerr := tele_api.Telemetry_Error{
		Message: e.Error(),
	}
	if err := self.qpushTelemetry(&tele_api.Telemetry{Error: &tmerr}); err != nil {
		self.log.Errorf("CRITICAL qpushTelemetry telemetry_error=%#v err=%v", tmerr, err)
	}
}

func (self *Tele) Reading(r *tele_api.Telemetry_Reading) {
	if !self.enabled {
		self.log.Errorf(logMsgDisabled)
		return
	}

	self.log.Infof("tele.Reading r=%s", r.String())
	self.lastReading.Store(r)
	if err := self.qpushTelemetry(&tele_api.Telemetry{Reading: r}); err != nil {
		self.log.Errorf("CRITICAL qpushTelemetry reading=%#v err=%v", r, err)
	}
	if self.influx != nil {
		self.influx.Push(r, time.Now())
	}
}

// Report sends the last known reading together with accumulated stat.
func (self *Tele) Report(ctx context.Context) error {
	if !self.enabled {
		self.log.Errorf(logMsgDisabled)
		return nil
	}

	tm := &tele_api.Telemetry{}
	if r, ok := self.lastReading.Load().(*tele_api.Telemetry_Reading); ok {
		tm.Reading = r
	}
	err := self.qpushTelemetry(tm)
	if err != nil {
		self.log.Errorf("CRITICAL report err=%v", err)
	}
	return err
}

func (self *Tele) CommandChan() <-chan tele_api.Command {
	return self.commandCh
}

func (self *Tele) CommandReplyErr(c *tele_api.Command, e error) {
	if !self.enabled {
		self.log.Errorf(logMsgDisabled)
		return
	}
	errText := ""
	if e != nil {
		errText = e.Error()
	}
	r := tele_api.Response{
		CommandId: c.Id,
		Error:     errText,
	}
	err := self.qpushCommandResponse(c, &r)
	if err != nil {
		self.log.Errorf("CRITICAL command=%#v response=%#v err=%v", c, r, err)
	}
}

func (self *Tele) StatModify(fun func(s *tele_api.Stat)) {
	if !self.enabled {
		self.log.Errorf(logMsgDisabled)
		return
	}

	self.stat.Lock()
	fun(&self.stat)
	self.stat.Unlock()
}

// WaitEmpty blocks until queued messages are handed to transport or
// timeout elapses. Use before deep sleep to not lose readings.
func (self *Tele) WaitEmpty(timeout time.Duration) bool {
	if !self.enabled {
		return true
	}

	deadline := time.Now().Add(timeout)
	for {
		if atomic.LoadInt32(&self.pending) <= 0 && (self.influx == nil || self.influx.Empty()) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}
