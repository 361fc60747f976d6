// Package player replays cached commands as bursts through the IR
// transmitter.
package player

import (
	"fmt"
	"time"

	"irbridge/internal/bus"
	"irbridge/internal/command"
	"irbridge/internal/ir"
	"irbridge/internal/logger"
)

var ErrNullCommand = fmt.Errorf("null command")

// Player sends a command 1+RepeatCount times with a blocking pause between
// bursts. The pause runs on the caller's goroutine, which is the run loop:
// bus messages queue up and learning does not tick during playback.
type Player struct {
	tx     ir.Transmitter
	ind    ir.Indicator
	status *bus.StatusEmitter
	sleep  func(time.Duration)
}

func New(tx ir.Transmitter, ind ir.Indicator, status *bus.StatusEmitter) *Player {
	return &Player{tx: tx, ind: ind, status: status, sleep: time.Sleep}
}

// Play replays cmd. Transmit failures are logged and the burst loop keeps
// going; the request outcome only reflects whether a command was there to
// play at all.
func (p *Player) Play(cmd *command.StoredCommand) error {
	if cmd == nil {
		logger.Errorf("play called with no command")
		p.status.Emit("ERR:NULL_COMMAND")
		return ErrNullCommand
	}

	total := 1 + cmd.RepeatCount
	if cmd.RepeatCount > 0 {
		logger.Infof("executing %s: %d bursts, %dms interval", cmd.Name, total, cmd.RepeatIntervalMs)
	} else {
		logger.Infof("executing %s", cmd.Name)
	}

	for i := 0; i < total; i++ {
		if i > 0 {
			p.sleep(time.Duration(cmd.RepeatIntervalMs) * time.Millisecond)
			logger.Debugf("sending burst #%d of %s", i+1, cmd.Name)
		}

		p.ind.Pulse()
		var err error
		switch cmd.Kind {
		case command.KindRaw:
			err = p.tx.SendRaw(cmd.Data, cmd.FrequencyKHz)
		default:
			// Protocol repeats stay 0: bursts are this loop's job.
			err = p.tx.Send(cmd.ProtocolName, cmd.Address, cmd.Command, 0)
		}
		if err != nil {
			logger.Errorf("transmit burst #%d of %s failed: %v", i+1, cmd.Name, err)
		}
	}

	p.status.Emitf("OK:%s", cmd.Name)
	return nil
}
