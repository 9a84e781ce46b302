package tele

import (
	"context"
	"fmt"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	tele_api "github.com/temoto/envnode/head/tele/api"
)

func (self *Tele) onCommandMessage(ctx context.Context, payload []byte) bool {
	cmd := new(tele_api.Command)
	err := proto.Unmarshal(payload, cmd)
	if err != nil {
		self.log.Errorf("tele command parse raw=%x err=%v", payload, err)
		// TODO reply error
		return true
	}
	self.log.Debugf("tele command raw=%x task=%#v", payload, cmd.String())
	// TODO store command in persistent queue, send MQTT ack, execute later
	self.dispatchCommand(ctx, cmd)
	return true
}

func (self *Tele) dispatchCommand(ctx context.Context, cmd *tele_api.Command) {
	switch {
	case cmd.Report != nil:
		self.CommandReplyErr(cmd, self.cmdReport(ctx, cmd))

	case cmd.Measure != nil, cmd.SetSleep != nil:
		// Node owner executes and replies when done.
		select {
		case self.commandCh <- *cmd:
		default:
			self.CommandReplyErr(cmd, errors.Errorf("command busy"))
		}

	default:
		err := fmt.Errorf("unknown command=%#v", cmd)
		self.log.Error(err.Error())
		self.CommandReplyErr(cmd, err)
	}
}

func (self *Tele) cmdReport(ctx context.Context, cmd *tele_api.Command) error {
	return errors.Annotate(self.Report(ctx), "cmdReport")
}
