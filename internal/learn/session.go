// Package learn captures a new IR command by watching a human press the
// same remote button repeatedly, inferring both the signal and its natural
// repeat cadence.
package learn

import (
	"encoding/json"
	"fmt"
	"time"

	"irbridge/internal/bus"
	"irbridge/internal/command"
	"irbridge/internal/ir"
	"irbridge/internal/logger"
)

const (
	// MaxSession is the absolute ceiling on a learning session. It is set
	// at StartListen and re-anchored once when the base signal arrives.
	MaxSession = 10 * time.Second
	// IdleTimeout ends capture once no signal has arrived for this long.
	IdleTimeout = 500 * time.Millisecond
)

var ErrStateConflict = fmt.Errorf("learning session already active")

// State of the session. At most one session is live at a time; all access
// happens on the run-loop goroutine.
type State uint8

const (
	StateIdle State = iota
	StateArmed
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateCapturing:
		return "capturing"
	default:
		return "idle"
	}
}

// Session drives one capture: arm the receiver, take the first signal as
// the base, count matching repeats, and on timeout publish the learned
// command and upsert it into the store.
type Session struct {
	store  *command.Store
	recv   ir.Receiver
	pub    bus.Publisher
	topics bus.Topics
	status *bus.StatusEmitter
	now    func() time.Time

	state           State
	targetName      string
	base            ir.Signal
	capturedRepeats int
	firstSignal     time.Time
	lastSignal      time.Time
	lastRepeat      time.Time
	deadline        time.Time
}

func NewSession(store *command.Store, recv ir.Receiver, pub bus.Publisher, topics bus.Topics, status *bus.StatusEmitter) *Session {
	return &Session{
		store:  store,
		recv:   recv,
		pub:    pub,
		topics: topics,
		status: status,
		now:    time.Now,
	}
}

// SetClock overrides the session's time source.
func (s *Session) SetClock(now func() time.Time) { s.now = now }

// State returns the current session state.
func (s *Session) State() State { return s.state }

// Active reports whether a session is live.
func (s *Session) Active() bool { return s.state != StateIdle }

// Target returns the name being learned ("" when idle).
func (s *Session) Target() string { return s.targetName }

// StartListen arms the receiver and opens the capture window for name.
// Valid only from Idle; otherwise the existing session is left untouched.
func (s *Session) StartListen(name string) error {
	if s.state != StateIdle {
		logger.Warnf("listen request for %q ignored, already learning %q", name, s.targetName)
		return ErrStateConflict
	}
	if err := s.recv.Arm(); err != nil {
		logger.Errorf("cannot arm IR receiver: %v", err)
		return err
	}

	s.targetName = name
	s.capturedRepeats = 0
	s.deadline = s.now().Add(MaxSession)
	s.state = StateArmed

	s.status.Emitf("learn_start:%s", name)
	logger.Infof("learn mode started for %q", name)
	return nil
}

// OnSignal feeds a decoded signal into the session. The first signal
// becomes the base and re-anchors the session deadline; later signals only
// count when they match the base.
func (s *Session) OnSignal(sig ir.Signal) {
	now := s.now()
	switch s.state {
	case StateArmed:
		s.base = sig
		s.capturedRepeats = 0
		s.firstSignal = now
		s.lastSignal = now
		s.lastRepeat = now
		s.deadline = now.Add(MaxSession)
		s.state = StateCapturing
		logger.Infof("base signal captured for %q, listening for bursts", s.targetName)

	case StateCapturing:
		if !signalsMatch(s.base, sig) {
			logger.Infof("different signal during capture of %q, ignoring", s.targetName)
			return
		}
		interval := now.Sub(s.lastSignal)
		s.capturedRepeats++
		s.lastSignal = now
		s.lastRepeat = now
		logger.Infof("burst #%d detected (interval %v)", s.capturedRepeats+1, interval)
		s.status.Emitf("learn_burst_detected:%d", s.capturedRepeats+1)
	}
}

// Tick advances the two session timers: the absolute deadline in any
// active state, and the idle window once capturing.
func (s *Session) Tick() {
	if s.state == StateIdle {
		return
	}
	now := s.now()
	if now.After(s.deadline) {
		logger.Infof("learning timeout for %q (max %v reached)", s.targetName, MaxSession)
		s.finalize()
		return
	}
	if s.state == StateCapturing && now.Sub(s.lastSignal) > IdleTimeout {
		logger.Infof("burst sequence for %q complete (%v idle)", s.targetName, now.Sub(s.lastSignal))
		s.finalize()
	}
}

// finalize ends the session: with no base signal it reports no_signal and
// touches nothing; otherwise it stores and publishes the learned command.
// All paths disarm the receiver and return to Idle.
func (s *Session) finalize() {
	defer s.reset()

	if s.state == StateArmed {
		logger.Infof("learning timeout for %q, no signal received", s.targetName)
		s.status.Emit("learn_timeout:no_signal")
		return
	}

	avgInterval := 0
	if s.capturedRepeats > 0 {
		total := s.lastRepeat.Sub(s.firstSignal)
		avgInterval = int(total.Milliseconds()) / s.capturedRepeats
	}

	cmd := s.buildCommand(avgInterval)
	if err := s.store.Upsert(cmd); err != nil {
		logger.Errorf("cannot cache learned command %q: %v", s.targetName, err)
		s.status.Emit("ERR:CACHE_FULL")
		return
	}

	payload, _ := command.Encode(cmd)
	if err := s.pub.Publish(s.topics.Command(cmd.Name), payload, true); err != nil {
		logger.Errorf("cannot publish learned command %q: %v", cmd.Name, err)
	}
	s.publishLearnLog(cmd)

	if s.capturedRepeats > 0 {
		logger.Infof("learned %q: %d total bursts, avg interval %dms", cmd.Name, s.capturedRepeats+1, avgInterval)
		s.status.Emitf("learn_success:%s,bursts:%d", cmd.Name, s.capturedRepeats+1)
	} else {
		logger.Infof("learned %q: single burst", cmd.Name)
		s.status.Emitf("learn_success:%s", cmd.Name)
	}
}

func (s *Session) buildCommand(avgInterval int) command.StoredCommand {
	cmd := command.StoredCommand{
		Name:             s.targetName,
		RepeatCount:      s.capturedRepeats,
		RepeatIntervalMs: avgInterval,
	}
	if s.base.Known() {
		cmd.Kind = command.KindProtocol
		cmd.ProtocolName = s.base.Protocol
		cmd.Address = s.base.Address
		cmd.Command = s.base.Command
		return cmd
	}

	cmd.Kind = command.KindRaw
	cmd.FrequencyKHz = 38
	raw := s.recv.RawBuffer()
	if len(raw) > command.MaxRawData {
		logger.Warnf("raw buffer for %q exceeds %d values, truncating", s.targetName, command.MaxRawData)
		raw = raw[:command.MaxRawData]
	}
	cmd.Data = append([]uint16(nil), raw...)
	return cmd
}

func (s *Session) publishLearnLog(cmd command.StoredCommand) {
	var entry any
	if cmd.Kind == command.KindProtocol {
		entry = struct {
			Name  string `json:"name"`
			Proto string `json:"proto"`
			Addr  uint16 `json:"addr"`
			Cmd   uint16 `json:"cmd"`
		}{cmd.Name, cmd.ProtocolName, cmd.Address, cmd.Command}
	} else {
		entry = struct {
			Name string `json:"name"`
			Raw  bool   `json:"raw"`
			Len  int    `json:"len"`
		}{cmd.Name, true, cmd.Length()}
	}
	payload, _ := json.Marshal(entry)
	if err := s.pub.Publish(s.topics.Learn(), payload, false); err != nil {
		logger.Errorf("cannot publish learn log for %q: %v", cmd.Name, err)
	}
}

func (s *Session) reset() {
	s.recv.Disarm()
	s.state = StateIdle
	s.targetName = ""
	s.base = ir.Signal{}
	s.capturedRepeats = 0
	s.firstSignal = time.Time{}
	s.lastSignal = time.Time{}
	s.lastRepeat = time.Time{}
	s.deadline = time.Time{}
}

// signalsMatch compares two signals the way capture classification needs:
// protocols must be equal; known protocols then compare address and
// command, unknown ones compare raw length only. Raw waveform content is
// deliberately not compared.
func signalsMatch(a, b ir.Signal) bool {
	if a.Protocol != b.Protocol {
		return false
	}
	if a.Known() {
		return a.Address == b.Address && a.Command == b.Command
	}
	return a.RawLen == b.RawLen
}
